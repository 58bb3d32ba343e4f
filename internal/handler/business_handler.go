package handler

import (
	"net/http"

	"invoicegen/internal/service"
	"invoicegen/pkg/pagination"
	"invoicegen/pkg/response"

	"github.com/gin-gonic/gin"
)

type BusinessHandler struct {
	businessService service.BusinessService
	clientService   service.ClientService
}

func NewBusinessHandler(businessService service.BusinessService, clientService service.ClientService) *BusinessHandler {
	return &BusinessHandler{businessService: businessService, clientService: clientService}
}

func (h *BusinessHandler) RegisterRoutes(router *gin.RouterGroup) {
	businesses := router.Group("/api/businesses")
	{
		businesses.POST("", h.CreateBusiness)
		businesses.GET("", h.ListBusinesses)
		businesses.GET("/:id", h.GetBusiness)
	}
	clients := router.Group("/api/clients")
	{
		clients.POST("", h.CreateClient)
		clients.GET("", h.ListClients)
	}
}

// CreateBusiness creates a business profile within the plan's business limit
// @Summary      Create business
// @Tags         businesses
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBusinessRequest  true  "Business Payload"
// @Success      201      {object}  response.Response{data=service.BusinessResponse}
// @Failure      400      {object}  response.Response
// @Failure      402      {object}  response.Response
// @Router       /api/businesses [post]
func (h *BusinessHandler) CreateBusiness(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.CreateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	business, err := h.businessService.CreateBusiness(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, business))
}

// ListBusinesses returns the caller's business profiles
// @Summary      List businesses
// @Tags         businesses
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.BusinessResponse}
// @Router       /api/businesses [get]
func (h *BusinessHandler) ListBusinesses(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	businesses, err := h.businessService.ListBusinesses(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, businesses))
}

// GetBusiness returns one business profile
// @Summary      Get business
// @Tags         businesses
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Business ID"
// @Success      200  {object}  response.Response{data=service.BusinessResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/businesses/{id} [get]
func (h *BusinessHandler) GetBusiness(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	business, err := h.businessService.GetBusiness(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, business))
}

// ListClients returns the clients of a business
// @Summary      List clients
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        business_id  query     string  true   "Business ID"
// @Param        skip         query     int     false  "Rows to skip (default 0)"
// @Param        limit        query     int     false  "Page size (default 10, max 100)"
// @Success      200          {object}  response.Response{data=[]service.ClientView}
// @Failure      404          {object}  response.Response
// @Router       /api/clients [get]
func (h *BusinessHandler) ListClients(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	businessID, ok := optionalQueryID(c, "business_id")
	if !ok {
		return
	}
	if businessID == nil {
		badRequest(c, "business_id is required")
		return
	}
	page := pagination.Parse(c)
	clients, err := h.clientService.ListClients(c.Request.Context(), userID, *businessID, page.Skip, page.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, clients))
}

// CreateClient adds a client to one of the caller's businesses
// @Summary      Create client
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateClientRequest  true  "Client Payload"
// @Success      201      {object}  response.Response{data=service.ClientView}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/clients [post]
func (h *BusinessHandler) CreateClient(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	client, err := h.clientService.CreateClient(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, client))
}
