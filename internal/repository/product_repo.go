package repository

import (
	"context"

	"invoicegen/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductListFilter narrows a catalogue listing. Search matches name, SKU or description.
type ProductListFilter struct {
	BusinessID      uuid.UUID
	CategoryID      *uuid.UUID
	Search          string
	IncludeInactive bool
	LowStockOnly    bool
	Skip            int
	Limit           int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.Product, error)
	FindInBusiness(ctx context.Context, id, businessID uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, businessID uuid.UUID, sku string) (*model.Product, error)
	List(ctx context.Context, filter ProductListFilter) ([]model.Product, int64, error)
	// LockOwned loads the product with a row lock held until the transaction ends.
	LockOwned(ctx context.Context, id, userID uuid.UUID) (*model.Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) error
	CountInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func productOwnedScope(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("products.business_id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).Model(&model.BusinessProfile{}).Select("id").Where("user_id = ?", userID))
	}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}

func (r *productRepository) FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Scopes(productOwnedScope(userID)).First(&product, "products.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindInBusiness(ctx context.Context, id, businessID uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ? AND business_id = ?", id, businessID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindBySKU(ctx context.Context, businessID uuid.UUID, sku string) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Where("business_id = ? AND sku = ?", businessID, sku).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, f ProductListFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{}).Where("business_id = ?", f.BusinessID)
	if !f.IncludeInactive {
		db = db.Where("is_active = ?", true)
	}
	if f.CategoryID != nil {
		db = db.Where("category_id = ?", *f.CategoryID)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		db = db.Where("(LOWER(name) LIKE LOWER(?) OR LOWER(sku) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?))", like, like, like)
	}
	if f.LowStockOnly {
		db = db.Where("track_inventory = ? AND quantity_in_stock <= low_stock_threshold", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("name asc").Offset(f.Skip).Limit(f.Limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) LockOwned(ctx context.Context, id, userID uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(productOwnedScope(userID)).
		First(&product, "products.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).Where("id = ?", id).Update("quantity_in_stock", quantity).Error
}

func (r *productRepository) CountInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Product{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}
