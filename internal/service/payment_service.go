package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"invoicegen/internal/cache"
	"invoicegen/internal/logger"
	"invoicegen/internal/model"
	"invoicegen/internal/reconcile"
	"invoicegen/internal/repository"
	"invoicegen/pkg/isodate"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// --- DTOs ---

type RecordPaymentRequest struct {
	Amount          string              `json:"amount" binding:"required"`
	PaymentMethod   model.PaymentMethod `json:"payment_method" binding:"required"`
	PaymentDate     string              `json:"payment_date"`
	TransactionID   string              `json:"transaction_id"`
	ReferenceNumber string              `json:"reference_number"`
	Notes           string              `json:"notes"`
}

type UpdatePaymentRequest struct {
	Amount          *string              `json:"amount"`
	PaymentMethod   *model.PaymentMethod `json:"payment_method"`
	Status          *model.PaymentStatus `json:"status"`
	PaymentDate     *string              `json:"payment_date"`
	ReferenceNumber *string              `json:"reference_number"`
	Notes           *string              `json:"notes"`
}

type PaymentResponse struct {
	ID              uuid.UUID           `json:"id"`
	InvoiceID       uuid.UUID           `json:"invoice_id"`
	PaymentNumber   string              `json:"payment_number"`
	PaymentDate     time.Time           `json:"payment_date"`
	Amount          string              `json:"amount"`
	PaymentMethod   model.PaymentMethod `json:"payment_method"`
	Status          model.PaymentStatus `json:"status"`
	TransactionID   string              `json:"transaction_id"`
	ReferenceNumber string              `json:"reference_number"`
	Notes           string              `json:"notes"`
	CreatedAt       time.Time           `json:"created_at"`
}

// PaymentResult pairs a payment with the invoice aggregates it produced.
type PaymentResult struct {
	Payment PaymentResponse `json:"payment"`
	Invoice InvoiceView     `json:"invoice"`
}

func toPaymentResponse(p *model.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		InvoiceID:       p.InvoiceID,
		PaymentNumber:   p.PaymentNumber,
		PaymentDate:     utc(p.PaymentDate),
		Amount:          p.Amount.StringFixed(2),
		PaymentMethod:   p.Method,
		Status:          p.Status,
		TransactionID:   p.TransactionID,
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
		CreatedAt:       utc(p.CreatedAt),
	}
}

// --- Ledger ---

type paymentInput struct {
	Amount          decimal.Decimal
	Method          model.PaymentMethod
	Date            time.Time
	TransactionID   string
	ReferenceNumber string
	Notes           string
}

// paymentLedger writes payments and moves the invoice aggregates in the same step.
// Callers hold the invoice row lock and persist the invoice afterwards.
type paymentLedger struct {
	paymentRepo repository.PaymentRepository
	auditRepo   repository.AuditRepository
	now         func() time.Time
}

func newPaymentLedger(paymentRepo repository.PaymentRepository, auditRepo repository.AuditRepository, now func() time.Time) *paymentLedger {
	return &paymentLedger{paymentRepo: paymentRepo, auditRepo: auditRepo, now: now}
}

func (l *paymentLedger) paymentNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("PAY-%s-%s", at.UTC().Format("20060102"), suffix)
}

func (l *paymentLedger) record(txCtx context.Context, userID uuid.UUID, inv *model.Invoice, in paymentInput) (*model.Payment, error) {
	now := l.now().UTC()
	if err := reconcile.Apply(inv, in.Amount, now); err != nil {
		return nil, err
	}
	date := in.Date
	if date.IsZero() {
		date = now
	}
	payment := &model.Payment{
		InvoiceID:       inv.ID,
		PaymentNumber:   l.paymentNumber(now),
		PaymentDate:     date.UTC(),
		Amount:          in.Amount,
		Method:          in.Method,
		Status:          model.PaymentStatusCompleted,
		TransactionID:   in.TransactionID,
		ReferenceNumber: in.ReferenceNumber,
		Notes:           in.Notes,
		CreatedBy:       &userID,
	}
	if err := l.paymentRepo.Create(txCtx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return payment, l.audit(txCtx, userID, model.ActionCreatePayment, payment, inv)
}

// refundAll flips every completed payment to refunded and zeroes amount_paid.
func (l *paymentLedger) refundAll(txCtx context.Context, inv *model.Invoice, at time.Time) error {
	if _, err := l.paymentRepo.MarkRefunded(txCtx, inv.ID); err != nil {
		return fmt.Errorf("failed to refund payments: %w", err)
	}
	return reconcile.Void(inv, inv.AmountPaid, reconcile.VoidRefund, at)
}

func (l *paymentLedger) audit(txCtx context.Context, userID uuid.UUID, action string, p *model.Payment, inv *model.Invoice) error {
	return l.auditRepo.Log(txCtx, &model.AuditLog{
		UserID:     &userID,
		Action:     action,
		EntityID:   p.ID.String(),
		EntityName: p.PaymentNumber,
		Details: datatypes.JSONMap{
			"invoice_id":     inv.ID.String(),
			"invoice_number": inv.InvoiceNumber,
			"amount":         p.Amount.StringFixed(2),
			"status":         string(p.Status),
			"invoice_status": string(inv.Status),
			"amount_due":     inv.AmountDue.StringFixed(2),
		},
	})
}

func contribution(p *model.Payment) decimal.Decimal {
	if p.Status.Counts() {
		return p.Amount
	}
	return decimal.Zero
}

// --- Service ---

type PaymentService interface {
	RecordPayment(ctx context.Context, userID, invoiceID uuid.UUID, req RecordPaymentRequest) (PaymentResult, error)
	ListPayments(ctx context.Context, userID, invoiceID uuid.UUID) ([]PaymentResponse, error)
	UpdatePayment(ctx context.Context, userID, paymentID uuid.UUID, req UpdatePaymentRequest) (PaymentResult, error)
	DeletePayment(ctx context.Context, userID, paymentID uuid.UUID) (InvoiceView, error)
	RefundPayment(ctx context.Context, userID, paymentID uuid.UUID) (PaymentResult, error)
	// ReconcileInvoice recomputes the aggregates from the sum of completed payments.
	ReconcileInvoice(ctx context.Context, userID, invoiceID uuid.UUID) (InvoiceView, error)
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	invoiceRepo repository.InvoiceRepository
	auditRepo   repository.AuditRepository
	ledger      *paymentLedger
	txManager   repository.TransactionManager
	cache       cache.Store
	events      EventPublisher
	now         func() time.Time
	log         zerolog.Logger
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	store cache.Store,
	events EventPublisher,
	now func() time.Time,
) PaymentService {
	if now == nil {
		now = time.Now
	}
	if store == nil {
		store = cache.Nop{}
	}
	if events == nil {
		events = NopPublisher()
	}
	return &paymentService{
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		auditRepo:   auditRepo,
		ledger:      newPaymentLedger(paymentRepo, auditRepo, now),
		txManager:   txManager,
		cache:       store,
		events:      events,
		now:         now,
		log:         logger.WithComponent("payment"),
	}
}

func parsePaymentDate(raw string) (time.Time, error) {
	d, err := isodate.Parse(raw)
	if err != nil {
		return time.Time{}, invalid("payment_date", "must be YYYY-MM-DD or RFC 3339")
	}
	return d.Time, nil
}

func (s *paymentService) RecordPayment(ctx context.Context, userID, invoiceID uuid.UUID, req RecordPaymentRequest) (PaymentResult, error) {
	amount, err := parseMoney("amount", req.Amount, true)
	if err != nil {
		return PaymentResult{}, err
	}
	if !req.PaymentMethod.Valid() {
		return PaymentResult{}, invalid("payment_method", "unknown value %q", req.PaymentMethod)
	}
	in := paymentInput{
		Amount:          amount,
		Method:          req.PaymentMethod,
		TransactionID:   req.TransactionID,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}
	if req.PaymentDate != "" {
		if in.Date, err = parsePaymentDate(req.PaymentDate); err != nil {
			return PaymentResult{}, err
		}
	}

	var (
		inv     *model.Invoice
		payment *model.Payment
	)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		inv, err = s.invoiceRepo.LockOwned(txCtx, invoiceID, userID)
		if err != nil {
			return translate(err, "invoice")
		}
		payment, err = s.ledger.record(txCtx, userID, inv, in)
		if err != nil {
			return translate(err, "invoice")
		}
		return s.invoiceRepo.Update(txCtx, inv)
	})
	if err != nil {
		return PaymentResult{}, err
	}

	events := []string{EventPaymentRecorded}
	if inv.Status == model.InvoiceStatusPaid {
		events = append(events, EventInvoicePaid)
	}
	s.afterWrite(ctx, userID, inv, events...)
	return s.result(payment, inv), nil
}

func (s *paymentService) ListPayments(ctx context.Context, userID, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	if _, err := s.invoiceRepo.FindOwned(ctx, invoiceID, userID); err != nil {
		return nil, translate(err, "invoice")
	}
	payments, err := s.paymentRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	res := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		res = append(res, toPaymentResponse(&payments[i]))
	}
	return res, nil
}

// lockPayment resolves a payment and locks its invoice, both scoped to the owner.
func (s *paymentService) lockPayment(txCtx context.Context, userID, paymentID uuid.UUID) (*model.Payment, *model.Invoice, error) {
	payment, err := s.paymentRepo.FindOwned(txCtx, paymentID, userID)
	if err != nil {
		return nil, nil, translate(err, "payment")
	}
	inv, err := s.invoiceRepo.LockOwned(txCtx, payment.InvoiceID, userID)
	if err != nil {
		return nil, nil, translate(err, "invoice")
	}
	return payment, inv, nil
}

func (s *paymentService) UpdatePayment(ctx context.Context, userID, paymentID uuid.UUID, req UpdatePaymentRequest) (PaymentResult, error) {
	var (
		inv     *model.Invoice
		payment *model.Payment
	)
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		payment, inv, err = s.lockPayment(txCtx, userID, paymentID)
		if err != nil {
			return err
		}
		if inv.Status.Closed() {
			return fmt.Errorf("%w: invoice is %s", ErrInvalidTransition, inv.Status)
		}
		before := contribution(payment)

		if req.Amount != nil {
			amount, err := parseMoney("amount", *req.Amount, true)
			if err != nil {
				return err
			}
			if !amount.IsPositive() {
				return invalid("amount", "must be greater than zero")
			}
			payment.Amount = amount
		}
		if req.Status != nil {
			if !req.Status.Valid() || *req.Status == model.PaymentStatusRefunded {
				return invalid("status", "must be pending, completed or failed")
			}
			payment.Status = *req.Status
		}
		if req.PaymentMethod != nil {
			if !req.PaymentMethod.Valid() {
				return invalid("payment_method", "unknown value %q", *req.PaymentMethod)
			}
			payment.Method = *req.PaymentMethod
		}
		if req.PaymentDate != nil {
			if payment.PaymentDate, err = parsePaymentDate(*req.PaymentDate); err != nil {
				return err
			}
		}
		if req.ReferenceNumber != nil {
			payment.ReferenceNumber = *req.ReferenceNumber
		}
		if req.Notes != nil {
			payment.Notes = *req.Notes
		}

		if err := reconcile.Amend(inv, before, contribution(payment), s.now().UTC()); err != nil {
			return translate(err, "invoice")
		}
		if err := s.paymentRepo.Update(txCtx, payment); err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		if err := s.invoiceRepo.Update(txCtx, inv); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		return s.ledger.audit(txCtx, userID, model.ActionUpdatePayment, payment, inv)
	})
	if err != nil {
		return PaymentResult{}, err
	}

	s.afterWrite(ctx, userID, inv)
	return s.result(payment, inv), nil
}

func (s *paymentService) DeletePayment(ctx context.Context, userID, paymentID uuid.UUID) (InvoiceView, error) {
	var inv *model.Invoice
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		payment, locked, err := s.lockPayment(txCtx, userID, paymentID)
		if err != nil {
			return err
		}
		inv = locked

		if err := reconcile.Void(inv, contribution(payment), reconcile.VoidDelete, s.now().UTC()); err != nil {
			return translate(err, "invoice")
		}
		if err := s.paymentRepo.Delete(txCtx, payment.ID); err != nil {
			return translate(err, "payment")
		}
		if err := s.invoiceRepo.Update(txCtx, inv); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		return s.ledger.audit(txCtx, userID, model.ActionDeletePayment, payment, inv)
	})
	if err != nil {
		return InvoiceView{}, err
	}

	s.afterWrite(ctx, userID, inv)
	return s.view(inv), nil
}

// RefundPayment refunds one completed payment. The invoice becomes REFUNDED.
func (s *paymentService) RefundPayment(ctx context.Context, userID, paymentID uuid.UUID) (PaymentResult, error) {
	var (
		inv     *model.Invoice
		payment *model.Payment
	)
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		payment, inv, err = s.lockPayment(txCtx, userID, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != model.PaymentStatusCompleted {
			return fmt.Errorf("%w: cannot refund a %s payment", ErrInvalidTransition, payment.Status)
		}

		now := s.now().UTC()
		if err := reconcile.Void(inv, payment.Amount, reconcile.VoidRefund, now); err != nil {
			return translate(err, "invoice")
		}
		payment.Status = model.PaymentStatusRefunded
		if err := s.paymentRepo.Update(txCtx, payment); err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		if err := s.invoiceRepo.Update(txCtx, inv); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		return s.ledger.audit(txCtx, userID, model.ActionRefundPayment, payment, inv)
	})
	if err != nil {
		return PaymentResult{}, err
	}

	s.afterWrite(ctx, userID, inv, EventInvoiceRefunded)
	return s.result(payment, inv), nil
}

func (s *paymentService) ReconcileInvoice(ctx context.Context, userID, invoiceID uuid.UUID) (InvoiceView, error) {
	var inv *model.Invoice
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		inv, err = s.invoiceRepo.LockOwned(txCtx, invoiceID, userID)
		if err != nil {
			return translate(err, "invoice")
		}
		sum, err := s.paymentRepo.SumCounted(txCtx, inv.ID)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}
		if err := reconcile.Resync(inv, sum, s.now().UTC()); err != nil {
			return translate(err, "invoice")
		}
		if err := s.invoiceRepo.Update(txCtx, inv); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &userID,
			Action:     model.ActionReconcile,
			EntityID:   inv.ID.String(),
			EntityName: inv.InvoiceNumber,
			Details: datatypes.JSONMap{
				"amount_paid": inv.AmountPaid.StringFixed(2),
				"amount_due":  inv.AmountDue.StringFixed(2),
			},
		})
	})
	if err != nil {
		return InvoiceView{}, err
	}

	s.afterWrite(ctx, userID, inv)
	return s.view(inv), nil
}

func (s *paymentService) view(inv *model.Invoice) InvoiceView {
	v := toInvoiceView(inv, nil)
	v.EffectiveStatus = inv.EffectiveStatus(s.now())
	return v
}

func (s *paymentService) result(p *model.Payment, inv *model.Invoice) PaymentResult {
	return PaymentResult{Payment: toPaymentResponse(p), Invoice: s.view(inv)}
}

func (s *paymentService) afterWrite(ctx context.Context, userID uuid.UUID, inv *model.Invoice, events ...string) {
	invalidateInvoiceLists(ctx, s.cache, s.log, userID)
	for _, event := range events {
		s.events.Publish(newInvoiceEvent(event, userID, inv, s.now()))
	}
}
