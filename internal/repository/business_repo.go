package repository

import (
	"context"
	"strconv"
	"strings"

	"invoicegen/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BusinessRepository interface {
	Create(ctx context.Context, business *model.BusinessProfile) error
	FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.BusinessProfile, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.BusinessProfile, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	// ReserveInvoiceNumber atomically increments the business counter and returns the value it held.
	// The increment holds the row lock until the surrounding transaction ends.
	ReserveInvoiceNumber(ctx context.Context, id uuid.UUID) (prefix string, number int, err error)
	// SyncInvoiceCounter moves the counter past the highest number already issued under the
	// current prefix and returns the next number it will hand out.
	SyncInvoiceCounter(ctx context.Context, id uuid.UUID) (int, error)
}

type businessRepository struct {
	db *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepository{db: db}
}

func (r *businessRepository) Create(ctx context.Context, business *model.BusinessProfile) error {
	return GetDB(ctx, r.db).Create(business).Error
}

func (r *businessRepository) FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.BusinessProfile, error) {
	var business model.BusinessProfile
	if err := GetDB(ctx, r.db).First(&business, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *businessRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.BusinessProfile, error) {
	var businesses []model.BusinessProfile
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).Order("created_at asc").Find(&businesses).Error; err != nil {
		return nil, err
	}
	return businesses, nil
}

func (r *businessRepository) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.BusinessProfile{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	return count, err
}

func (r *businessRepository) ReserveInvoiceNumber(ctx context.Context, id uuid.UUID) (string, int, error) {
	db := GetDB(ctx, r.db)
	res := db.Model(&model.BusinessProfile{}).
		Where("id = ?", id).
		UpdateColumn("next_invoice_number", gorm.Expr("next_invoice_number + ?", 1))
	if res.Error != nil {
		return "", 0, res.Error
	}
	if res.RowsAffected == 0 {
		return "", 0, gorm.ErrRecordNotFound
	}

	var business model.BusinessProfile
	if err := db.Select("invoice_prefix", "next_invoice_number").First(&business, "id = ?", id).Error; err != nil {
		return "", 0, err
	}
	return business.InvoicePrefix, business.NextInvoiceNumber - 1, nil
}

func (r *businessRepository) SyncInvoiceCounter(ctx context.Context, id uuid.UUID) (int, error) {
	db := GetDB(ctx, r.db)
	var business model.BusinessProfile
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "invoice_prefix", "next_invoice_number").
		First(&business, "id = ?", id).Error; err != nil {
		return 0, err
	}

	prefix := business.InvoicePrefix + "-"
	var numbers []string
	if err := db.Model(&model.Invoice{}).
		Where("business_id = ? AND invoice_number LIKE ?", id, prefix+"%").
		Pluck("invoice_number", &numbers).Error; err != nil {
		return 0, err
	}

	next := business.NextInvoiceNumber
	for _, n := range numbers {
		v, err := strconv.Atoi(strings.TrimPrefix(n, prefix))
		if err == nil && v >= next {
			next = v + 1
		}
	}
	if next == business.NextInvoiceNumber {
		return next, nil
	}
	err := db.Model(&model.BusinessProfile{}).Where("id = ?", id).
		UpdateColumn("next_invoice_number", next).Error
	return next, err
}
