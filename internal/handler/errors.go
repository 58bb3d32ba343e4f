package handler

import (
	"errors"
	"net/http"

	"invoicegen/internal/logger"
	"invoicegen/internal/middleware"
	"invoicegen/internal/service"
	"invoicegen/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrQuotaExceeded):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrConflict):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log := logger.WithComponent("http")
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, response.Error(status, "internal server error"))
		return
	}
	c.JSON(status, response.ErrorWithDetails(status, err.Error(), errorDetails(err)))
}

func errorDetails(err error) interface{} {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return gin.H{"field": ve.Field}
	}
	var qe *service.QuotaExceededError
	if errors.As(err, &qe) {
		return gin.H{"limit": qe.Limit, "max": qe.Max, "used": qe.Used}
	}
	return nil
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

// currentUser reads the caller set by middleware.RequireAuth.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
	}
	return id, ok
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func optionalQueryID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "Invalid "+name+": must be a UUID")
		return nil, false
	}
	return &id, true
}
