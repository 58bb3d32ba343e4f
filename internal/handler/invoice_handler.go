package handler

import (
	"context"
	"net/http"

	"invoicegen/internal/service"
	"invoicegen/pkg/pagination"
	"invoicegen/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	paymentService service.PaymentService
}

func NewInvoiceHandler(invoiceService service.InvoiceService, paymentService service.PaymentService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		paymentService: paymentService,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/:id", h.GetInvoice)
		invoices.PUT("/:id", h.UpdateInvoice)
		invoices.DELETE("/:id", h.DeleteInvoice)
		invoices.GET("/:id/items", h.ListItems)

		invoices.POST("/:id/send", h.SendInvoice)
		invoices.POST("/:id/view", h.MarkViewed)
		invoices.POST("/:id/mark-paid", h.MarkPaid)
		invoices.POST("/:id/cancel", h.CancelInvoice)
		invoices.POST("/:id/refund", h.RefundInvoice)
	}
}

// CreateInvoice prices and numbers a new draft invoice
// @Summary      Create invoice
// @Description  Validates line items, enforces the monthly invoice quota and assigns the next invoice number
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      402      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      503      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns the caller's invoices newest first
// @Summary      List invoices
// @Description  Paginated listing with optional business, client and status filters. Served from cache when possible.
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        business_id  query     string  false  "Filter by business"
// @Param        client_id    query     string  false  "Filter by client"
// @Param        status       query     string  false  "Filter by stored status (draft, sent, viewed, paid, cancelled, refunded)"
// @Param        skip         query     int     false  "Rows to skip (default 0)"
// @Param        limit        query     int     false  "Page size (default 10, max 100)"
// @Success      200          {object}  response.Response{data=[]service.InvoiceView}
// @Failure      400          {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	businessID, ok := optionalQueryID(c, "business_id")
	if !ok {
		return
	}
	clientID, ok := optionalQueryID(c, "client_id")
	if !ok {
		return
	}
	page := pagination.Parse(c)

	invoices, err := h.invoiceService.ListInvoices(c.Request.Context(), userID, service.InvoiceFilter{
		BusinessID: businessID,
		ClientID:   clientID,
		Status:     c.Query("status"),
		Skip:       page.Skip,
		Limit:      page.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoices))
}

// GetInvoice returns one invoice with its items and client
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	h.invoiceAction(c, http.StatusOK, h.invoiceService.GetInvoice)
}

// UpdateInvoice edits a draft invoice
// @Summary      Update invoice
// @Description  Only draft invoices can be edited. Amounts are fixed at creation.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.UpdateInvoiceRequest  true  "Update Invoice Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// DeleteInvoice removes a draft or cancelled invoice with its items and payments
// @Summary      Delete invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"id": id}))
}

// ListItems returns the line items of an invoice in entry order
// @Summary      List invoice items
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=[]service.InvoiceItemResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/items [get]
func (h *InvoiceHandler) ListItems(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.invoiceService.ListItems(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// SendInvoice moves a draft to sent
// @Summary      Send invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/send [post]
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	h.invoiceAction(c, http.StatusOK, h.invoiceService.SendInvoice)
}

// MarkViewed records that the client opened a sent invoice
// @Summary      Mark invoice viewed
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/view [post]
func (h *InvoiceHandler) MarkViewed(c *gin.Context) {
	h.invoiceAction(c, http.StatusOK, h.invoiceService.MarkViewed)
}

// MarkPaid settles the outstanding balance with a recorded payment
// @Summary      Mark invoice paid
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/mark-paid [post]
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	h.invoiceAction(c, http.StatusOK, h.invoiceService.MarkPaid)
}

// CancelInvoice cancels an unpaid invoice
// @Summary      Cancel invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/cancel [post]
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	h.invoiceAction(c, http.StatusOK, h.invoiceService.CancelInvoice)
}

// RefundInvoice refunds every completed payment of a paid invoice
// @Summary      Refund invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/refund [post]
func (h *InvoiceHandler) RefundInvoice(c *gin.Context) {
	h.invoiceAction(c, http.StatusOK, h.invoiceService.RefundInvoice)
}

type invoiceFunc func(ctx context.Context, userID, id uuid.UUID) (service.InvoiceResponse, error)

func (h *InvoiceHandler) invoiceAction(c *gin.Context, status int, fn invoiceFunc) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := fn(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, response.Success(status, invoice))
}
