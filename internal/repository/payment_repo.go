package repository

import (
	"context"

	"invoicegen/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.Payment, error)
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.Payment, error)
	// SumCounted totals the payments that contribute to amount_paid.
	SumCounted(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
	Update(ctx context.Context, payment *model.Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
	// MarkRefunded flips every completed payment of the invoice to refunded.
	MarkRefunded(ctx context.Context, invoiceID uuid.UUID) (int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	err := GetDB(ctx, r.db).
		Joins("JOIN invoices ON invoices.id = payments.invoice_id").
		Joins("JOIN business_profiles ON business_profiles.id = invoices.business_id").
		Where("payments.id = ? AND business_profiles.user_id = ?", id, userID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	err := GetDB(ctx, r.db).Where("invoice_id = ?", invoiceID).Order("payment_date asc").Order("created_at asc").Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) SumCounted(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := GetDB(ctx, r.db).Model(&model.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("invoice_id = ? AND status = ?", invoiceID, model.PaymentStatusCompleted).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Save(payment).Error
}

func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Delete(&model.Payment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *paymentRepository) MarkRefunded(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Payment{}).
		Where("invoice_id = ? AND status = ?", invoiceID, model.PaymentStatusCompleted).
		Update("status", model.PaymentStatusRefunded)
	return res.RowsAffected, res.Error
}
