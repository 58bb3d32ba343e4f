package handler

import (
	"net/http"

	"invoicegen/internal/service"
	"invoicegen/pkg/response"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	billingService service.BillingService
}

func NewBillingHandler(billingService service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// RegisterPublicRoutes exposes the plan catalogue without a session.
func (h *BillingHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.GET("/api/billing/plans", h.ListPlans)
}

func (h *BillingHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/billing")
	{
		group.GET("/usage", h.GetUsage)
		group.GET("/features/:feature", h.HasFeature)
	}
}

// ListPlans returns the seeded billing plans
// @Summary      List plans
// @Tags         billing
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.PlanResponse}
// @Router       /api/billing/plans [get]
func (h *BillingHandler) ListPlans(c *gin.Context) {
	plans, err := h.billingService.ListPlans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, plans))
}

// GetUsage reports the caller's plan and consumption
// @Summary      Get usage
// @Description  Invoice usage for the current month is included when business_id is given
// @Tags         billing
// @Security     BearerAuth
// @Produce      json
// @Param        business_id  query     string  false  "Business ID"
// @Success      200          {object}  response.Response{data=service.UsageResponse}
// @Failure      404          {object}  response.Response
// @Router       /api/billing/usage [get]
func (h *BillingHandler) GetUsage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	businessID, ok := optionalQueryID(c, "business_id")
	if !ok {
		return
	}
	usage, err := h.billingService.Usage(c.Request.Context(), userID, businessID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, usage))
}

// HasFeature reports whether the caller's plan includes a feature
// @Summary      Check feature
// @Tags         billing
// @Security     BearerAuth
// @Produce      json
// @Param        feature  path      string  true  "Feature name"
// @Success      200      {object}  response.Response{data=object}
// @Router       /api/billing/features/{feature} [get]
func (h *BillingHandler) HasFeature(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	feature := c.Param("feature")
	allowed, err := h.billingService.HasFeature(c.Request.Context(), userID, feature)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"feature": feature,
		"enabled": allowed,
	}))
}
