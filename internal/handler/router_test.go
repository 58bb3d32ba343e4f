package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invoicegen/internal/cache"
	"invoicegen/internal/config"
	"invoicegen/internal/repository"
	"invoicegen/internal/service"
	"invoicegen/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("handler-test-secret")

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Details    map[string]any  `json:"details"`
}

type api struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	store := cache.NewRedisStore(rdb)

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

	billing := service.NewBillingService(billingRepo, userRepo, invoiceRepo, businessRepo, config.DefaultPlanTable(), nil)
	services := Services{
		Auth:     service.NewAuthService(userRepo, string(testSecret), time.Hour),
		Business: service.NewBusinessService(businessRepo, auditRepo, billing, txManager),
		Client:   service.NewClientService(clientRepo, businessRepo, auditRepo, txManager),
		Product:  service.NewProductService(productRepo, categoryRepo, businessRepo, auditRepo, txManager),
		Category: service.NewCategoryService(categoryRepo, productRepo, businessRepo, auditRepo, txManager),
		Invoice: service.NewInvoiceService(invoiceRepo, businessRepo, clientRepo, productRepo, paymentRepo, auditRepo, billing,
			txManager, store, nil, service.InvoiceOptions{}),
		Payment: service.NewPaymentService(paymentRepo, invoiceRepo, auditRepo, txManager, store, nil, nil),
		Billing: billing,
		Audit:   service.NewAuditService(auditRepo, billing),
	}
	return &api{t: t, router: NewRouter(services, testSecret, false)}
}

func (a *api) do(method, path string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (a *api) decode(env envelope, into interface{}) {
	a.t.Helper()
	require.NoError(a.t, json.Unmarshal(env.Data, into))
}

// signIn registers a fresh account and keeps its token.
func (a *api) signIn() {
	a.t.Helper()
	creds := map[string]string{"email": "owner@example.com", "password": "correct-horse"}
	code, env := a.do(http.MethodPost, "/auth/register", creds)
	require.Equal(a.t, http.StatusCreated, code, env.Error)

	code, env = a.do(http.MethodPost, "/auth/login", creds)
	require.Equal(a.t, http.StatusOK, code, env.Error)
	var tok service.TokenResponse
	a.decode(env, &tok)
	a.token = tok.Token
}

// setup creates a business and a client and returns their ids.
func (a *api) setup() (string, string) {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/businesses", map[string]string{"business_name": "Acme Studio"})
	require.Equal(a.t, http.StatusCreated, code, env.Error)
	var biz service.BusinessResponse
	a.decode(env, &biz)

	code, env = a.do(http.MethodPost, "/api/clients", map[string]string{
		"business_id":  biz.ID.String(),
		"client_type":  "company",
		"company_name": "Globex",
	})
	require.Equal(a.t, http.StatusCreated, code, env.Error)
	var client service.ClientView
	a.decode(env, &client)
	return biz.ID.String(), client.ID.String()
}

func invoicePayload(businessID, clientID string) map[string]interface{} {
	today := time.Now().UTC()
	return map[string]interface{}{
		"business_id":  businessID,
		"client_id":    clientID,
		"invoice_date": today.Format("2006-01-02"),
		"due_date":     today.AddDate(0, 0, 30).Format("2006-01-02"),
		"items": []map[string]string{
			{"description": "Design work", "quantity": "2", "unit_price": "100.00", "tax_rate": "10"},
		},
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	a := newAPI(t)

	code, env := a.do(http.MethodGet, "/api/invoices", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "error", env.Status)

	code, _ = a.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = a.do(http.MethodGet, "/api/billing/plans", nil)
	assert.Equal(t, http.StatusOK, code, env.Error)
}

func TestRouter_InvoiceFlow(t *testing.T) {
	a := newAPI(t)
	a.signIn()
	businessID, clientID := a.setup()

	code, env := a.do(http.MethodPost, "/api/invoices", invoicePayload(businessID, clientID))
	require.Equal(t, http.StatusCreated, code, env.Error)
	var inv service.InvoiceResponse
	a.decode(env, &inv)
	assert.Equal(t, "INV-00001", inv.InvoiceNumber)
	assert.Equal(t, "220.00", inv.TotalAmount)
	require.Len(t, inv.Items, 1)

	base := "/api/invoices/" + inv.ID.String()

	code, env = a.do(http.MethodPost, base+"/send", nil)
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = a.do(http.MethodPost, base+"/payments", map[string]string{"amount": "300.00", "payment_method": "cash"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "amount", env.Details["field"])

	code, env = a.do(http.MethodPost, base+"/payments", map[string]string{"amount": "100.00", "payment_method": "bank_transfer"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var res service.PaymentResult
	a.decode(env, &res)
	assert.Equal(t, "120.00", res.Invoice.AmountDue)

	code, env = a.do(http.MethodPost, base+"/mark-paid", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	a.decode(env, &inv)
	assert.Equal(t, "paid", string(inv.Status))
	assert.Equal(t, "0.00", inv.AmountDue)

	code, _ = a.do(http.MethodPost, base+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = a.do(http.MethodGet, base+"/payments", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var payments []service.PaymentResponse
	a.decode(env, &payments)
	assert.Len(t, payments, 2)

	code, env = a.do(http.MethodGet, "/api/invoices?status=paid&business_id="+businessID, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var views []service.InvoiceView
	a.decode(env, &views)
	require.Len(t, views, 1)
	assert.Equal(t, inv.ID, views[0].ID)
}

func TestRouter_ErrorMapping(t *testing.T) {
	a := newAPI(t)
	a.signIn()
	businessID, clientID := a.setup()

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"malformed id", http.MethodGet, "/api/invoices/not-a-uuid", nil, http.StatusBadRequest},
		{"unknown invoice", http.MethodGet, "/api/invoices/00000000-0000-0000-0000-000000000001", nil, http.StatusNotFound},
		{"bad status filter", http.MethodGet, "/api/invoices?status=lost", nil, http.StatusBadRequest},
		{"empty items", http.MethodPost, "/api/invoices", map[string]interface{}{
			"business_id": businessID, "client_id": clientID, "items": []interface{}{},
		}, http.StatusBadRequest},
		{"second business on free plan", http.MethodPost, "/api/businesses", map[string]string{"business_name": "Second"}, http.StatusPaymentRequired},
		{"audit logs on free plan", http.MethodGet, "/api/audit-logs", nil, http.StatusPaymentRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := a.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, code, env.Error)
			assert.Equal(t, "error", env.Status)
		})
	}
}

func TestRouter_QuotaDetails(t *testing.T) {
	a := newAPI(t)
	a.signIn()
	a.setup()

	code, env := a.do(http.MethodPost, "/api/businesses", map[string]string{"business_name": "Second"})
	require.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, service.LimitBusinesses, env.Details["limit"])
	assert.EqualValues(t, 1, env.Details["max"])
	assert.EqualValues(t, 1, env.Details["used"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&service.ValidationError{Field: "amount", Message: "bad"}, http.StatusBadRequest},
		{fmt.Errorf("load: %w", service.ErrNotFound), http.StatusNotFound},
		{&service.QuotaExceededError{Limit: service.LimitInvoicesPerMonth, Max: 5, Used: 5}, http.StatusPaymentRequired},
		{service.ErrInvalidTransition, http.StatusConflict},
		{service.ErrConflict, http.StatusServiceUnavailable},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRouter_CatalogFlow(t *testing.T) {
	a := newAPI(t)
	a.signIn()
	businessID, clientID := a.setup()

	code, env := a.do(http.MethodPost, "/api/categories", map[string]string{"business_id": businessID, "name": "Hardware", "color": "#3366FF"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var category service.CategoryView
	a.decode(env, &category)

	code, env = a.do(http.MethodPost, "/api/products", map[string]interface{}{
		"business_id":     businessID,
		"category_id":     category.ID.String(),
		"sku":             "BOLT-8",
		"name":            "Bolt",
		"unit_price":      "0.40",
		"tax_rate":        "10",
		"track_inventory": true,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var product service.ProductView
	a.decode(env, &product)

	code, env = a.do(http.MethodPost, "/api/products/"+product.ID.String()+"/stock", map[string]string{"quantity": "100", "adjustment": "add"})
	require.Equal(t, http.StatusOK, code, env.Error)
	a.decode(env, &product)
	assert.Equal(t, "100", product.QuantityInStock)

	code, env = a.do(http.MethodGet, "/api/products?business_id="+businessID+"&search=bolt", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var page service.ProductPage
	a.decode(env, &page)
	assert.Equal(t, int64(1), page.Total)

	code, _ = a.do(http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusBadRequest, code, "business_id is required")

	payload := invoicePayload(businessID, clientID)
	payload["items"] = []map[string]string{{"product_id": product.ID.String(), "quantity": "10"}}
	code, env = a.do(http.MethodPost, "/api/invoices", payload)
	require.Equal(t, http.StatusCreated, code, env.Error)
	var inv service.InvoiceResponse
	a.decode(env, &inv)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Bolt", inv.Items[0].Description)
	assert.Equal(t, "4.40", inv.TotalAmount)

	code, env = a.do(http.MethodDelete, "/api/categories/"+category.ID.String(), nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var deleted struct {
		Removed bool `json:"removed"`
	}
	a.decode(env, &deleted)
	assert.False(t, deleted.Removed)
}
