package handler

import (
	"net/http"

	"invoicegen/internal/service"
	"invoicegen/pkg/pagination"
	"invoicegen/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/audit-logs", h.GetAuditLogs)
}

// GetAuditLogs returns the caller's audit trail newest first
// @Summary      Get audit logs
// @Description  Requires a plan with the audit_logs feature
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        skip   query     int  false  "Rows to skip (default 0)"
// @Param        limit  query     int  false  "Page size (default 10, max 100)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      402    {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), userID, page.Skip, page.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"skip":  page.Skip,
		"limit": page.Limit,
	}))
}
