package handler

import (
	"net/http"

	"invoicegen/internal/logger"
	"invoicegen/internal/middleware"
	"invoicegen/internal/service"

	"github.com/gin-gonic/gin"
)

// Services are the dependencies of every HTTP handler.
type Services struct {
	Auth     service.AuthService
	Business service.BusinessService
	Client   service.ClientService
	Product  service.ProductService
	Category service.CategoryService
	Invoice  service.InvoiceService
	Payment  service.PaymentService
	Billing  service.BillingService
	Audit    service.AuditService
}

// Mount registers the public and authenticated API routes on router.
func Mount(router *gin.Engine, s Services, secret []byte, release bool) {
	authHandler := NewAuthHandler(s.Auth, release)
	businessHandler := NewBusinessHandler(s.Business, s.Client)
	invoiceHandler := NewInvoiceHandler(s.Invoice, s.Payment)
	paymentHandler := NewPaymentHandler(s.Payment)
	billingHandler := NewBillingHandler(s.Billing)
	catalogHandler := NewCatalogHandler(s.Product, s.Category)
	auditHandler := NewAuditHandler(s.Audit)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	public := router.Group("")
	authHandler.RegisterRoutes(public)
	billingHandler.RegisterPublicRoutes(public)

	protected := router.Group("")
	protected.Use(middleware.RequireAuth(secret))
	authHandler.RegisterProtectedRoutes(protected)
	businessHandler.RegisterRoutes(protected)
	catalogHandler.RegisterRoutes(protected)
	invoiceHandler.RegisterRoutes(protected)
	paymentHandler.RegisterRoutes(protected)
	billingHandler.RegisterRoutes(protected)
	auditHandler.RegisterRoutes(protected)
}

// NewRouter builds an engine with request logging and panic recovery.
func NewRouter(s Services, secret []byte, release bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware())
	Mount(router, s, secret, release)
	return router
}
