package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoicegen/internal/cache"
	"invoicegen/internal/calc"
	"invoicegen/internal/logger"
	"invoicegen/internal/model"
	"invoicegen/internal/repository"
	"invoicegen/pkg/isodate"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- DTOs ---

// InvoiceItemRequest is one line. When ProductID is set, an empty description, unit price, unit of
// measure or tax rate is taken from the catalogue product.
type InvoiceItemRequest struct {
	ProductID     *string            `json:"product_id" binding:"omitempty,uuid"`
	Description   string             `json:"description"`
	Quantity      string             `json:"quantity" binding:"required"`
	UnitPrice     string             `json:"unit_price"`
	UnitOfMeasure string             `json:"unit_of_measure"`
	TaxRate       string             `json:"tax_rate"`
	DiscountType  model.DiscountType `json:"discount_type"`
	DiscountValue string             `json:"discount_value"`
}

type CreateInvoiceRequest struct {
	BusinessID          string               `json:"business_id" binding:"required,uuid"`
	ClientID            string               `json:"client_id" binding:"required,uuid"`
	InvoiceDate         string               `json:"invoice_date" binding:"required"`
	DueDate             string               `json:"due_date" binding:"required"`
	PaymentTerms        model.PaymentTerms   `json:"payment_terms"`
	Items               []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
	DiscountType        model.DiscountType   `json:"discount_type"`
	DiscountValue       string               `json:"discount_value"`
	ShippingAmount      string               `json:"shipping_amount"`
	Currency            string               `json:"currency"`
	Notes               string               `json:"notes"`
	PaymentInstructions string               `json:"payment_instructions"`
}

// UpdateInvoiceRequest edits a DRAFT invoice. Amounts are fixed at creation.
type UpdateInvoiceRequest struct {
	InvoiceDate         *string             `json:"invoice_date"`
	DueDate             *string             `json:"due_date"`
	PaymentTerms        *model.PaymentTerms `json:"payment_terms"`
	Notes               *string             `json:"notes"`
	PaymentInstructions *string             `json:"payment_instructions"`
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, userID uuid.UUID, req CreateInvoiceRequest) (InvoiceResponse, error)
	GetInvoice(ctx context.Context, userID, id uuid.UUID) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, userID uuid.UUID, filter InvoiceFilter) ([]InvoiceView, error)
	ListItems(ctx context.Context, userID, id uuid.UUID) ([]InvoiceItemResponse, error)
	UpdateInvoice(ctx context.Context, userID, id uuid.UUID, req UpdateInvoiceRequest) (InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, userID, id uuid.UUID) error

	SendInvoice(ctx context.Context, userID, id uuid.UUID) (InvoiceResponse, error)
	MarkViewed(ctx context.Context, userID, id uuid.UUID) (InvoiceResponse, error)
	MarkPaid(ctx context.Context, userID, id uuid.UUID) (InvoiceResponse, error)
	CancelInvoice(ctx context.Context, userID, id uuid.UUID) (InvoiceResponse, error)
	RefundInvoice(ctx context.Context, userID, id uuid.UUID) (InvoiceResponse, error)
}

type InvoiceOptions struct {
	CacheTTL      time.Duration
	NumberRetries int
	Now           func() time.Time
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	businessRepo repository.BusinessRepository
	clientRepo   repository.ClientRepository
	productRepo  repository.ProductRepository
	auditRepo    repository.AuditRepository
	ledger       *paymentLedger
	billing      BillingService
	txManager    repository.TransactionManager
	cache        cache.Store
	events       EventPublisher
	opts         InvoiceOptions
	log          zerolog.Logger
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	businessRepo repository.BusinessRepository,
	clientRepo repository.ClientRepository,
	productRepo repository.ProductRepository,
	paymentRepo repository.PaymentRepository,
	auditRepo repository.AuditRepository,
	billing BillingService,
	txManager repository.TransactionManager,
	store cache.Store,
	events EventPublisher,
	opts InvoiceOptions,
) InvoiceService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NumberRetries < 1 {
		opts.NumberRetries = 3
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 300 * time.Second
	}
	if store == nil {
		store = cache.Nop{}
	}
	if events == nil {
		events = NopPublisher()
	}
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		businessRepo: businessRepo,
		clientRepo:   clientRepo,
		productRepo:  productRepo,
		auditRepo:    auditRepo,
		ledger:       newPaymentLedger(paymentRepo, auditRepo, opts.Now),
		billing:      billing,
		txManager:    txManager,
		cache:        store,
		events:       events,
		opts:         opts,
		log:          logger.WithComponent("invoice"),
	}
}

// --- Creation ---

// invoiceDraft is a validated, fully priced creation request.
type invoiceDraft struct {
	businessID uuid.UUID
	clientID   uuid.UUID
	invoice    model.Invoice
}

func parseMoney(field, raw string, required bool) (decimal.Decimal, error) {
	if raw == "" {
		if required {
			return decimal.Zero, invalid(field, "is required")
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalid(field, "%q is not a number", raw)
	}
	return d, nil
}

func parseDiscount(t model.DiscountType, raw string) (calc.Discount, error) {
	if !t.Valid() {
		return calc.Discount{}, invalid("discount_type", "must be percentage or fixed")
	}
	v, err := parseMoney("discount_value", raw, false)
	if err != nil {
		return calc.Discount{}, err
	}
	return calc.Discount{Type: t, Value: v}, nil
}

// withFieldPrefix qualifies the field of a validation failure, e.g. "quantity" becomes "items[2].quantity".
func withFieldPrefix(err error, prefix string) error {
	var fe *calc.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: prefix + fe.Field, Message: fe.Message}
	}
	var ve *ValidationError
	if prefix != "" && errors.As(err, &ve) {
		return &ValidationError{Field: prefix + ve.Field, Message: ve.Message}
	}
	return err
}

// parseItem validates one line request and prices it. Field names in errors are relative to the item.
func parseItem(in InvoiceItemRequest, sortOrder int) (calc.Line, model.InvoiceItem, error) {
	if strings.TrimSpace(in.Description) == "" {
		return calc.Line{}, model.InvoiceItem{}, invalid("description", "is required")
	}
	qty, err := parseMoney("quantity", in.Quantity, true)
	if err != nil {
		return calc.Line{}, model.InvoiceItem{}, err
	}
	price, err := parseMoney("unit_price", in.UnitPrice, true)
	if err != nil {
		return calc.Line{}, model.InvoiceItem{}, err
	}
	rate, err := parseMoney("tax_rate", in.TaxRate, false)
	if err != nil {
		return calc.Line{}, model.InvoiceItem{}, err
	}
	discount, err := parseDiscount(in.DiscountType, in.DiscountValue)
	if err != nil {
		return calc.Line{}, model.InvoiceItem{}, err
	}
	var productID *uuid.UUID
	if in.ProductID != nil {
		id, err := uuid.Parse(*in.ProductID)
		if err != nil {
			return calc.Line{}, model.InvoiceItem{}, invalid("product_id", "must be a UUID")
		}
		productID = &id
	}

	line, err := calc.ComputeLine(calc.LineInput{Quantity: qty, UnitPrice: price, Discount: discount, TaxRate: rate})
	if err != nil {
		return calc.Line{}, model.InvoiceItem{}, err
	}
	// the document is summed from the rounded lines so the header matches the stored items
	line = line.Rounded()

	return line, model.InvoiceItem{
		ProductID:      productID,
		Description:    in.Description,
		Quantity:       qty,
		UnitPrice:      price,
		UnitOfMeasure:  in.UnitOfMeasure,
		TaxRate:        rate,
		TaxAmount:      line.TaxAmount,
		DiscountType:   discount.Type,
		DiscountValue:  discount.Value,
		DiscountAmount: line.DiscountAmount,
		LineTotal:      line.Total,
		SortOrder:      sortOrder,
	}, nil
}

func (s *invoiceService) buildDraft(req CreateInvoiceRequest) (*invoiceDraft, error) {
	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		return nil, invalid("business_id", "must be a UUID")
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, invalid("client_id", "must be a UUID")
	}

	invoiceDate, err := isodate.Parse(req.InvoiceDate)
	if err != nil {
		return nil, invalid("invoice_date", "must be YYYY-MM-DD")
	}
	dueDate, err := isodate.Parse(req.DueDate)
	if err != nil {
		return nil, invalid("due_date", "must be YYYY-MM-DD")
	}
	if dueDate.Before(invoiceDate.Time) {
		return nil, invalid("due_date", "must not be before invoice_date")
	}

	terms := req.PaymentTerms
	if terms == "" {
		terms = model.PaymentTermsNet30
	}
	if !terms.Valid() {
		return nil, invalid("payment_terms", "unknown value %q", terms)
	}
	if len(req.Items) == 0 {
		return nil, invalid("items", "at least one line item is required")
	}

	lines := make([]calc.Line, 0, len(req.Items))
	items := make([]model.InvoiceItem, 0, len(req.Items))
	for i, in := range req.Items {
		line, item, err := parseItem(in, i)
		if err != nil {
			return nil, withFieldPrefix(err, fmt.Sprintf("items[%d].", i))
		}
		lines = append(lines, line)
		items = append(items, item)
	}

	docDiscount, err := parseDiscount(req.DiscountType, req.DiscountValue)
	if err != nil {
		return nil, err
	}
	shipping, err := parseMoney("shipping_amount", req.ShippingAmount, false)
	if err != nil {
		return nil, err
	}
	doc, err := calc.ComputeDocument(lines, docDiscount, shipping)
	if err != nil {
		return nil, withFieldPrefix(err, "")
	}
	totals := doc.Rounded()

	return &invoiceDraft{
		businessID: businessID,
		clientID:   clientID,
		invoice: model.Invoice{
			BusinessID:          businessID,
			ClientID:            clientID,
			Status:              model.InvoiceStatusDraft,
			InvoiceDate:         datatypes.Date(invoiceDate.Time),
			DueDate:             datatypes.Date(dueDate.Time),
			PaymentTerms:        terms,
			Subtotal:            totals.Subtotal,
			DiscountType:        docDiscount.Type,
			DiscountValue:       docDiscount.Value,
			DiscountAmount:      totals.DiscountAmount,
			TaxAmount:           totals.TaxAmount,
			ShippingAmount:      totals.ShippingAmount,
			TotalAmount:         totals.Total,
			AmountPaid:          decimal.Zero,
			AmountDue:           totals.Total,
			Currency:            req.Currency,
			Notes:               req.Notes,
			PaymentInstructions: req.PaymentInstructions,
			Items:               items,
		},
	}, nil
}

func formatInvoiceNumber(prefix string, n int) string {
	return fmt.Sprintf("%s-%05d", prefix, n)
}

// withProductDefaults fills empty line fields from the referenced catalogue products.
// A product outside the invoice's business is reported as not found.
func (s *invoiceService) withProductDefaults(ctx context.Context, userID uuid.UUID, req CreateInvoiceRequest) (CreateInvoiceRequest, error) {
	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		return req, nil
	}
	items := make([]InvoiceItemRequest, len(req.Items))
	copy(items, req.Items)
	for i := range items {
		in := &items[i]
		if in.ProductID == nil {
			continue
		}
		id, err := uuid.Parse(*in.ProductID)
		if err != nil {
			continue
		}
		product, err := s.productRepo.FindOwned(ctx, id, userID)
		if err == nil && product.BusinessID != businessID {
			err = gorm.ErrRecordNotFound
		}
		if err != nil {
			return req, translate(err, fmt.Sprintf("items[%d].product", i))
		}
		if !product.IsActive {
			return req, invalid(fmt.Sprintf("items[%d].product_id", i), "product is inactive")
		}
		if in.Description == "" {
			in.Description = lo.Ternary(product.Description != "", product.Description, product.Name)
		}
		if in.UnitPrice == "" {
			in.UnitPrice = product.UnitPrice.String()
		}
		if in.UnitOfMeasure == "" {
			in.UnitOfMeasure = product.UnitOfMeasure
		}
		if in.TaxRate == "" {
			in.TaxRate = product.EffectiveTaxRate().String()
		}
	}
	req.Items = items
	return req, nil
}

func (s *invoiceService) CreateInvoice(ctx context.Context, userID uuid.UUID, req CreateInvoiceRequest) (InvoiceResponse, error) {
	req, err := s.withProductDefaults(ctx, userID, req)
	if err != nil {
		return InvoiceResponse{}, err
	}
	draft, err := s.buildDraft(req)
	if err != nil {
		return InvoiceResponse{}, err
	}

	var created *model.Invoice
	for attempt := 1; attempt <= s.opts.NumberRetries; attempt++ {
		created, err = s.insert(ctx, userID, draft)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		// the failed attempt rolled back its increment, so the counter still points at the taken number
		var next int
		syncErr := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			var err error
			next, err = s.businessRepo.SyncInvoiceCounter(txCtx, draft.businessID)
			return err
		})
		if syncErr != nil {
			err = syncErr
			break
		}
		s.log.Warn().Str("business_id", draft.businessID.String()).Int("attempt", attempt).Int("next_number", next).
			Msg("invoice number collision, retrying")
	}
	if err != nil {
		return InvoiceResponse{}, translate(err, "create invoice")
	}

	s.afterWrite(ctx, userID, created, EventInvoiceCreated)
	return s.GetInvoice(ctx, userID, created.ID)
}

// insert runs one attempt: ownership, number reservation, quota and persistence share a transaction.
// Reserving the number first takes the business row lock, so the quota count below cannot race
// with another creation for the same business.
func (s *invoiceService) insert(ctx context.Context, userID uuid.UUID, draft *invoiceDraft) (*model.Invoice, error) {
	inv := draft.invoice
	inv.Items = append([]model.InvoiceItem(nil), draft.invoice.Items...)
	inv.CreatedBy = &userID

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		business, err := s.businessRepo.FindOwned(txCtx, draft.businessID, userID)
		if err != nil {
			return fmt.Errorf("business: %w", err)
		}
		if _, err := s.clientRepo.FindInBusiness(txCtx, draft.clientID, business.ID); err != nil {
			return fmt.Errorf("client: %w", err)
		}
		for _, item := range inv.Items {
			if item.ProductID == nil {
				continue
			}
			if _, err := s.productRepo.FindInBusiness(txCtx, *item.ProductID, business.ID); err != nil {
				return fmt.Errorf("product: %w", err)
			}
		}

		prefix, number, err := s.businessRepo.ReserveInvoiceNumber(txCtx, business.ID)
		if err != nil {
			return fmt.Errorf("reserve invoice number: %w", err)
		}

		decision, err := s.billing.CanCreateInvoice(txCtx, business)
		if err != nil {
			return err
		}
		if err := decision.Err(); err != nil {
			return err
		}

		inv.InvoiceNumber = formatInvoiceNumber(prefix, number)
		if inv.Currency == "" {
			inv.Currency = business.Currency
		}
		if err := s.invoiceRepo.Create(txCtx, &inv); err != nil {
			return err
		}

		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &userID,
			Action:     model.ActionCreateInvoice,
			EntityID:   inv.ID.String(),
			EntityName: inv.InvoiceNumber,
			Details: datatypes.JSONMap{
				"business_id":  business.ID.String(),
				"total_amount": inv.TotalAmount.StringFixed(2),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// --- Reads ---

func (s *invoiceService) GetInvoice(ctx context.Context, userID, id uuid.UUID) (InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindOwnedWithDetails(ctx, id, userID)
	if err != nil {
		return InvoiceResponse{}, translate(err, "invoice")
	}
	return toInvoiceResponse(inv, s.opts.Now()), nil
}

func (s *invoiceService) ListItems(ctx context.Context, userID, id uuid.UUID) ([]InvoiceItemResponse, error) {
	if _, err := s.invoiceRepo.FindOwned(ctx, id, userID); err != nil {
		return nil, translate(err, "invoice")
	}
	items, err := s.invoiceRepo.ListItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	res := make([]InvoiceItemResponse, 0, len(items))
	for _, it := range items {
		res = append(res, toItemResponse(it))
	}
	return res, nil
}

// --- Draft edits ---

func (s *invoiceService) UpdateInvoice(ctx context.Context, userID, id uuid.UUID, req UpdateInvoiceRequest) (InvoiceResponse, error) {
	var inv *model.Invoice
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		inv, err = s.invoiceRepo.LockOwned(txCtx, id, userID)
		if err != nil {
			return translate(err, "invoice")
		}
		if inv.Status != model.InvoiceStatusDraft {
			return fmt.Errorf("%w: only draft invoices can be edited, status is %s", ErrInvalidTransition, inv.Status)
		}

		invoiceDate := isodate.New(time.Time(inv.InvoiceDate))
		dueDate := isodate.New(time.Time(inv.DueDate))
		if req.InvoiceDate != nil {
			if invoiceDate, err = isodate.Parse(*req.InvoiceDate); err != nil {
				return invalid("invoice_date", "must be YYYY-MM-DD")
			}
		}
		if req.DueDate != nil {
			if dueDate, err = isodate.Parse(*req.DueDate); err != nil {
				return invalid("due_date", "must be YYYY-MM-DD")
			}
		}
		if dueDate.Before(invoiceDate.Time) {
			return invalid("due_date", "must not be before invoice_date")
		}
		inv.InvoiceDate = datatypes.Date(invoiceDate.Time)
		inv.DueDate = datatypes.Date(dueDate.Time)

		if req.PaymentTerms != nil {
			if !req.PaymentTerms.Valid() {
				return invalid("payment_terms", "unknown value %q", *req.PaymentTerms)
			}
			inv.PaymentTerms = *req.PaymentTerms
		}
		if req.Notes != nil {
			inv.Notes = *req.Notes
		}
		if req.PaymentInstructions != nil {
			inv.PaymentInstructions = *req.PaymentInstructions
		}

		if err := s.invoiceRepo.Update(txCtx, inv); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		return s.audit(txCtx, userID, inv, model.ActionUpdateInvoice)
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	s.afterWrite(ctx, userID, inv, "")
	return s.GetInvoice(ctx, userID, id)
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, userID, id uuid.UUID) error {
	var inv *model.Invoice
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		inv, err = s.invoiceRepo.LockOwned(txCtx, id, userID)
		if err != nil {
			return translate(err, "invoice")
		}
		switch inv.Status {
		case model.InvoiceStatusDraft, model.InvoiceStatusCancelled:
		default:
			return fmt.Errorf("%w: cannot delete a %s invoice", ErrInvalidTransition, inv.Status)
		}
		if err := s.invoiceRepo.Delete(txCtx, inv.ID); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		return s.audit(txCtx, userID, inv, model.ActionDeleteInvoice)
	})
	if err != nil {
		return err
	}
	s.afterWrite(ctx, userID, inv, "")
	return nil
}

// --- Lifecycle ---

type transition struct {
	action string
	from   []model.InvoiceStatus
	event  string
	apply  func(txCtx context.Context, inv *model.Invoice, now time.Time) error
}

func (s *invoiceService) SendInvoice(ctx context.Context, userID, id uuid.UUID) (InvoiceResponse, error) {
	return s.transition(ctx, userID, id, transition{
		action: model.ActionSendInvoice,
		from:   []model.InvoiceStatus{model.InvoiceStatusDraft},
		event:  EventInvoiceSent,
		apply: func(_ context.Context, inv *model.Invoice, now time.Time) error {
			inv.Status = model.InvoiceStatusSent
			inv.SentAt = &now
			return nil
		},
	})
}

// MarkViewed is idempotent: viewing an already viewed invoice keeps the first viewed_at.
func (s *invoiceService) MarkViewed(ctx context.Context, userID, id uuid.UUID) (InvoiceResponse, error) {
	return s.transition(ctx, userID, id, transition{
		action: model.ActionViewInvoice,
		from:   []model.InvoiceStatus{model.InvoiceStatusSent, model.InvoiceStatusViewed},
		apply: func(_ context.Context, inv *model.Invoice, now time.Time) error {
			inv.Status = model.InvoiceStatusViewed
			if inv.ViewedAt == nil {
				inv.ViewedAt = &now
			}
			return nil
		},
	})
}

// MarkPaid settles the outstanding balance with a recorded payment so amount_paid stays
// derivable from the invoice's payments.
func (s *invoiceService) MarkPaid(ctx context.Context, userID, id uuid.UUID) (InvoiceResponse, error) {
	return s.transition(ctx, userID, id, transition{
		action: model.ActionMarkInvoicePaid,
		from:   []model.InvoiceStatus{model.InvoiceStatusDraft, model.InvoiceStatusSent, model.InvoiceStatusViewed},
		event:  EventInvoicePaid,
		apply: func(txCtx context.Context, inv *model.Invoice, now time.Time) error {
			if !inv.AmountDue.IsPositive() {
				inv.Status = model.InvoiceStatusPaid
				inv.PaidAt = &now
				return nil
			}
			_, err := s.ledger.record(txCtx, userID, inv, paymentInput{
				Amount: inv.AmountDue,
				Method: model.PaymentMethodOther,
				Notes:  "Marked as paid",
				Date:   now,
			})
			return err
		},
	})
}

func (s *invoiceService) CancelInvoice(ctx context.Context, userID, id uuid.UUID) (InvoiceResponse, error) {
	return s.transition(ctx, userID, id, transition{
		action: model.ActionCancelInvoice,
		from:   []model.InvoiceStatus{model.InvoiceStatusDraft, model.InvoiceStatusSent, model.InvoiceStatusViewed},
		event:  EventInvoiceCancelled,
		apply: func(_ context.Context, inv *model.Invoice, now time.Time) error {
			inv.Status = model.InvoiceStatusCancelled
			inv.CancelledAt = &now
			return nil
		},
	})
}

// RefundInvoice refunds every completed payment and moves the invoice to REFUNDED.
func (s *invoiceService) RefundInvoice(ctx context.Context, userID, id uuid.UUID) (InvoiceResponse, error) {
	return s.transition(ctx, userID, id, transition{
		action: model.ActionRefundInvoice,
		from:   []model.InvoiceStatus{model.InvoiceStatusPaid},
		event:  EventInvoiceRefunded,
		apply: func(txCtx context.Context, inv *model.Invoice, now time.Time) error {
			return s.ledger.refundAll(txCtx, inv, now)
		},
	})
}

func (s *invoiceService) transition(ctx context.Context, userID, id uuid.UUID, t transition) (InvoiceResponse, error) {
	var inv *model.Invoice
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		inv, err = s.invoiceRepo.LockOwned(txCtx, id, userID)
		if err != nil {
			return translate(err, "invoice")
		}

		allowed := false
		for _, st := range t.from {
			if inv.Status == st {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: cannot %s a %s invoice", ErrInvalidTransition, t.action, inv.Status)
		}

		if err := t.apply(txCtx, inv, s.opts.Now().UTC()); err != nil {
			return translate(err, "invoice")
		}
		if err := s.invoiceRepo.Update(txCtx, inv); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		return s.audit(txCtx, userID, inv, t.action)
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	s.afterWrite(ctx, userID, inv, t.event)
	return s.GetInvoice(ctx, userID, id)
}

func (s *invoiceService) audit(txCtx context.Context, userID uuid.UUID, inv *model.Invoice, action string) error {
	return s.auditRepo.Log(txCtx, &model.AuditLog{
		UserID:     &userID,
		Action:     action,
		EntityID:   inv.ID.String(),
		EntityName: inv.InvoiceNumber,
		Details: datatypes.JSONMap{
			"status":      string(inv.Status),
			"amount_paid": inv.AmountPaid.StringFixed(2),
			"amount_due":  inv.AmountDue.StringFixed(2),
		},
	})
}

// afterWrite runs once the transaction has committed.
func (s *invoiceService) afterWrite(ctx context.Context, userID uuid.UUID, inv *model.Invoice, event string) {
	invalidateInvoiceLists(ctx, s.cache, s.log, userID)
	if event == "" {
		return
	}
	s.events.Publish(newInvoiceEvent(event, userID, inv, s.opts.Now()))
}
