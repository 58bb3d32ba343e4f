package repository

import (
	"context"
	"time"

	"invoicegen/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceListFilter scopes a listing to the owner's businesses. Nil fields are not filtered.
// DueBefore keeps sent or viewed invoices whose due date is earlier, which is how OVERDUE is queried.
type InvoiceListFilter struct {
	UserID     uuid.UUID
	BusinessID *uuid.UUID
	ClientID   *uuid.UUID
	Status     *model.InvoiceStatus
	DueBefore  *time.Time
	Skip       int
	Limit      int
}

type InvoiceRepository interface {
	// Create inserts the invoice together with its items.
	Create(ctx context.Context, invoice *model.Invoice) error
	FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.Invoice, error)
	// LockOwned loads the invoice with a row lock held until the transaction ends.
	LockOwned(ctx context.Context, id, userID uuid.UUID) (*model.Invoice, error)
	FindOwnedWithDetails(ctx context.Context, id, userID uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, error)
	ListItems(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoiceItem, error)
	CountCreatedSince(ctx context.Context, businessID uuid.UUID, since time.Time) (int64, error)
	Update(ctx context.Context, invoice *model.Invoice) error
	// Delete removes the invoice along with its items and payments.
	Delete(ctx context.Context, id uuid.UUID) error
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func ownedScope(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("invoices.business_id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).Model(&model.BusinessProfile{}).Select("id").Where("user_id = ?", userID))
	}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Scopes(ownedScope(userID)).First(&invoice, "invoices.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) LockOwned(ctx context.Context, id, userID uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(ownedScope(userID)).
		First(&invoice, "invoices.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindOwnedWithDetails(ctx context.Context, id, userID uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).
		Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc") }).
		Scopes(ownedScope(userID)).
		First(&invoice, "invoices.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, f InvoiceListFilter) ([]model.Invoice, error) {
	query := GetDB(ctx, r.db).Scopes(ownedScope(f.UserID))
	if f.BusinessID != nil {
		query = query.Where("invoices.business_id = ?", *f.BusinessID)
	}
	if f.ClientID != nil {
		query = query.Where("invoices.client_id = ?", *f.ClientID)
	}
	if f.Status != nil {
		query = query.Where("invoices.status = ?", *f.Status)
	}
	if f.DueBefore != nil {
		query = query.
			Where("invoices.status IN ?", []model.InvoiceStatus{model.InvoiceStatusSent, model.InvoiceStatusViewed}).
			Where("invoices.due_date < ?", datatypes.Date(*f.DueBefore))
	}

	var invoices []model.Invoice
	err := query.
		Order("invoices.created_at desc").
		Order("invoices.id desc").
		Offset(f.Skip).Limit(f.Limit).
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) ListItems(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoiceItem, error) {
	var items []model.InvoiceItem
	err := GetDB(ctx, r.db).Where("invoice_id = ?", invoiceID).Order("sort_order asc").Find(&items).Error
	return items, err
}

func (r *invoiceRepository) CountCreatedSince(ctx context.Context, businessID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Where("business_id = ? AND created_at >= ?", businessID, since).
		Count(&count).Error
	return count, err
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(invoice).Error
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("invoice_id = ?", id).Delete(&model.Payment{}).Error; err != nil {
		return err
	}
	if err := db.Where("invoice_id = ?", id).Delete(&model.InvoiceItem{}).Error; err != nil {
		return err
	}
	res := db.Delete(&model.Invoice{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
