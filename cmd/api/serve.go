package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"invoicegen/internal/cache"
	"invoicegen/internal/database"
	"invoicegen/internal/handler"
	"invoicegen/internal/logger"
	"invoicegen/internal/repository"
	"invoicegen/internal/service"
	"invoicegen/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Example: `  # Serve with the default env file, migrating first
  invoicegen serve

  # Serve against an already migrated database
  invoicegen serve --migrate=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("migrate", true, "Run schema migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("server")

	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store cache.Store = cache.Nop{}
	rdb, err := cache.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, invoice listings will not be cached")
	} else {
		defer rdb.Close()
		store = cache.NewRedisStore(rdb)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	defer wsHub.Stop()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	businessRepo := repository.NewBusinessRepository(db)
	clientRepo := repository.NewClientRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	billingRepo := repository.NewBillingRepository(db)

	billingService := service.NewBillingService(billingRepo, userRepo, invoiceRepo, businessRepo, cfg.Plans, nil)
	services := handler.Services{
		Auth:     service.NewAuthService(userRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.ExpireHours)*time.Hour),
		Business: service.NewBusinessService(businessRepo, auditRepo, billingService, txManager),
		Client:   service.NewClientService(clientRepo, businessRepo, auditRepo, txManager),
		Product:  service.NewProductService(productRepo, categoryRepo, businessRepo, auditRepo, txManager),
		Category: service.NewCategoryService(categoryRepo, productRepo, businessRepo, auditRepo, txManager),
		Invoice: service.NewInvoiceService(invoiceRepo, businessRepo, clientRepo, productRepo, paymentRepo, auditRepo,
			billingService, txManager, store, wsHub, service.InvoiceOptions{
				CacheTTL:      cfg.Invoice.CacheTTL,
				NumberRetries: cfg.Invoice.NumberRetries,
			}),
		Payment: service.NewPaymentService(paymentRepo, invoiceRepo, auditRepo, txManager, store, wsHub, nil),
		Billing: billingService,
		Audit:   service.NewAuditService(auditRepo, billingService),
	}

	release := cfg.Server.Mode == gin.ReleaseMode
	gin.SetMode(cfg.Server.Mode)
	secret := []byte(cfg.JWT.Secret)

	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	handler.Mount(router, services, secret, release)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
