package handler

import (
	"net/http"

	"invoicegen/internal/service"
	"invoicegen/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices/:id")
	{
		invoices.POST("/payments", h.RecordPayment)
		invoices.GET("/payments", h.ListPayments)
		invoices.POST("/reconcile", h.ReconcileInvoice)
	}

	payments := router.Group("/api/payments")
	{
		payments.PUT("/:id", h.UpdatePayment)
		payments.DELETE("/:id", h.DeletePayment)
		payments.POST("/:id/refund", h.RefundPayment)
	}
}

// RecordPayment applies a payment to an invoice
// @Summary      Record payment
// @Description  Overpayments are rejected. A payment that covers the balance marks the invoice paid.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.RecordPaymentRequest  true  "Payment Payload"
// @Success      201      {object}  response.Response{data=service.PaymentResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/payments [post]
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	invoiceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	res, err := h.paymentService.RecordPayment(c.Request.Context(), userID, invoiceID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// ListPayments returns an invoice's payments in payment date order
// @Summary      List payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=[]service.PaymentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	invoiceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	payments, err := h.paymentService.ListPayments(c.Request.Context(), userID, invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}

// ReconcileInvoice recomputes amount_paid from the completed payments
// @Summary      Reconcile invoice
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceView}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/reconcile [post]
func (h *PaymentHandler) ReconcileInvoice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	invoiceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.paymentService.ReconcileInvoice(c.Request.Context(), userID, invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// UpdatePayment amends a payment and the invoice aggregates with it
// @Summary      Update payment
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Payment ID"
// @Param        payload  body      service.UpdatePaymentRequest  true  "Payment Payload"
// @Success      200      {object}  response.Response{data=service.PaymentResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/payments/{id} [put]
func (h *PaymentHandler) UpdatePayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.paymentService.UpdatePayment(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// DeletePayment voids a payment
// @Summary      Delete payment
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  response.Response{data=service.InvoiceView}
// @Failure      404  {object}  response.Response
// @Router       /api/payments/{id} [delete]
func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.paymentService.DeletePayment(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// RefundPayment refunds a completed payment
// @Summary      Refund payment
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  response.Response{data=service.PaymentResult}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/payments/{id}/refund [post]
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.paymentService.RefundPayment(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
