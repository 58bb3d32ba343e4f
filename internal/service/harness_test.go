package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"invoicegen/internal/cache"
	"invoicegen/internal/config"
	"invoicegen/internal/model"
	"invoicegen/internal/repository"
	"invoicegen/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	db       *gorm.DB
	redis    *miniredis.Miniredis
	fx       testutil.Fixture
	billing  BillingService
	invoices InvoiceService
	payments PaymentService
	products ProductService
	catalog  CategoryService
	events   *recordingPublisher
}

// newHarness wires the real services over SQLite and, when withCache is set, miniredis.
func newHarness(t *testing.T, withCache bool) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	fx := testutil.Seed(t, db)

	var store cache.Store = cache.Nop{}
	var srv *miniredis.Miniredis
	if withCache {
		s, client := testutil.NewRedis(t)
		srv = s
		store = cache.NewRedisStore(client)
	}

	txManager := repository.NewTransactionManager(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	businessRepo := repository.NewBusinessRepository(db)
	clientRepo := repository.NewClientRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	userRepo := repository.NewUserRepository(db)

	billing := NewBillingService(billingRepo, userRepo, invoiceRepo, businessRepo, config.DefaultPlanTable(), nil)
	events := &recordingPublisher{}

	return &harness{
		db:      db,
		redis:   srv,
		fx:      fx,
		billing: billing,
		invoices: NewInvoiceService(invoiceRepo, businessRepo, clientRepo, productRepo, paymentRepo, auditRepo, billing,
			txManager, store, events, InvoiceOptions{CacheTTL: 300 * time.Second, NumberRetries: 3}),
		payments: NewPaymentService(paymentRepo, invoiceRepo, auditRepo, txManager, store, events, nil),
		products: NewProductService(productRepo, categoryRepo, businessRepo, auditRepo, txManager),
		catalog:  NewCategoryService(categoryRepo, productRepo, businessRepo, auditRepo, txManager),
		events:   events,
	}
}

func (h *harness) setPlan(t *testing.T, plan model.PlanType) {
	t.Helper()
	require.NoError(t, h.db.Model(&model.User{}).Where("id = ?", h.fx.User.ID).
		Update("subscription_plan", plan).Error)
}

func (h *harness) request(items ...InvoiceItemRequest) CreateInvoiceRequest {
	if len(items) == 0 {
		items = []InvoiceItemRequest{{Description: "Design work", Quantity: "2", UnitPrice: "100.00", TaxRate: "10"}}
	}
	today := time.Now().UTC().Format("2006-01-02")
	return CreateInvoiceRequest{
		BusinessID:  h.fx.Business.ID.String(),
		ClientID:    h.fx.Client.ID.String(),
		InvoiceDate: today,
		DueDate:     time.Now().UTC().AddDate(0, 0, 30).Format("2006-01-02"),
		Items:       items,
	}
}

func (h *harness) create(t *testing.T) InvoiceResponse {
	t.Helper()
	inv, err := h.invoices.CreateInvoice(context.Background(), h.fx.User.ID, h.request())
	require.NoError(t, err)
	return inv
}

func (h *harness) user() uuid.UUID { return h.fx.User.ID }
