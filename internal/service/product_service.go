package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoicegen/internal/model"
	"invoicegen/internal/repository"
	"invoicegen/pkg/pagination"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateProductRequest struct {
	BusinessID        string  `json:"business_id" binding:"required,uuid"`
	CategoryID        *string `json:"category_id" binding:"omitempty,uuid"`
	SKU               string  `json:"sku"`
	Name              string  `json:"name" binding:"required"`
	Description       string  `json:"description"`
	UnitPrice         string  `json:"unit_price" binding:"required"`
	CostPrice         string  `json:"cost_price"`
	UnitOfMeasure     string  `json:"unit_of_measure"`
	TaxRate           string  `json:"tax_rate"`
	IsTaxable         *bool   `json:"is_taxable"`
	TrackInventory    bool    `json:"track_inventory"`
	QuantityInStock   string  `json:"quantity_in_stock"`
	LowStockThreshold string  `json:"low_stock_threshold"`
	ImageURL          string  `json:"image_url" binding:"omitempty,url"`
}

// UpdateProductRequest changes only the fields that are present. Stock moves through AdjustStock.
type UpdateProductRequest struct {
	CategoryID        *string `json:"category_id" binding:"omitempty,uuid"`
	SKU               *string `json:"sku"`
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	UnitPrice         *string `json:"unit_price"`
	CostPrice         *string `json:"cost_price"`
	UnitOfMeasure     *string `json:"unit_of_measure"`
	TaxRate           *string `json:"tax_rate"`
	IsTaxable         *bool   `json:"is_taxable"`
	TrackInventory    *bool   `json:"track_inventory"`
	LowStockThreshold *string `json:"low_stock_threshold"`
	ImageURL          *string `json:"image_url" binding:"omitempty,url"`
	IsActive          *bool   `json:"is_active"`
}

type AdjustStockRequest struct {
	Quantity   string                `json:"quantity" binding:"required"`
	Adjustment model.StockAdjustment `json:"adjustment"`
}

type ProductListQuery struct {
	BusinessID      uuid.UUID
	CategoryID      *uuid.UUID
	Search          string
	IncludeInactive bool
	LowStockOnly    bool
	Skip            int
	Limit           int
}

type ProductView struct {
	ID                uuid.UUID  `json:"id"`
	BusinessID        uuid.UUID  `json:"business_id"`
	CategoryID        *uuid.UUID `json:"category_id"`
	SKU               *string    `json:"sku"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	UnitPrice         string     `json:"unit_price"`
	CostPrice         string     `json:"cost_price"`
	UnitOfMeasure     string     `json:"unit_of_measure"`
	TaxRate           string     `json:"tax_rate"`
	IsTaxable         bool       `json:"is_taxable"`
	TrackInventory    bool       `json:"track_inventory"`
	QuantityInStock   string     `json:"quantity_in_stock"`
	LowStockThreshold string     `json:"low_stock_threshold"`
	LowStock          bool       `json:"low_stock"`
	ImageURL          string     `json:"image_url"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type ProductPage struct {
	Products []ProductView `json:"products"`
	Total    int64         `json:"total"`
	Skip     int           `json:"skip"`
	Limit    int           `json:"limit"`
}

// --- Interface ---

type ProductService interface {
	CreateProduct(ctx context.Context, userID uuid.UUID, req CreateProductRequest) (*ProductView, error)
	GetProduct(ctx context.Context, userID, id uuid.UUID) (*ProductView, error)
	ListProducts(ctx context.Context, userID uuid.UUID, q ProductListQuery) (ProductPage, error)
	UpdateProduct(ctx context.Context, userID, id uuid.UUID, req UpdateProductRequest) (*ProductView, error)
	// DeleteProduct deactivates the product. Invoice lines that reference it are untouched.
	DeleteProduct(ctx context.Context, userID, id uuid.UUID) error
	AdjustStock(ctx context.Context, userID, id uuid.UUID, req AdjustStockRequest) (*ProductView, error)
	// DuplicateProduct copies the product as "<name> (Copy)" without SKU and with no stock.
	DuplicateProduct(ctx context.Context, userID, id uuid.UUID) (*ProductView, error)
}

type productService struct {
	repo         repository.ProductRepository
	categoryRepo repository.CategoryRepository
	businessRepo repository.BusinessRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewProductService(
	repo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	businessRepo repository.BusinessRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ProductService {
	return &productService{
		repo:         repo,
		categoryRepo: categoryRepo,
		businessRepo: businessRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func toProductView(p *model.Product) *ProductView {
	return &ProductView{
		ID:                p.ID,
		BusinessID:        p.BusinessID,
		CategoryID:        p.CategoryID,
		SKU:               p.SKU,
		Name:              p.Name,
		Description:       p.Description,
		UnitPrice:         p.UnitPrice.StringFixed(2),
		CostPrice:         p.CostPrice.StringFixed(2),
		UnitOfMeasure:     p.UnitOfMeasure,
		TaxRate:           p.TaxRate.String(),
		IsTaxable:         p.IsTaxable,
		TrackInventory:    p.TrackInventory,
		QuantityInStock:   p.QuantityInStock.String(),
		LowStockThreshold: p.LowStockThreshold.String(),
		LowStock:          p.LowStock(),
		ImageURL:          p.ImageURL,
		IsActive:          p.IsActive,
		CreatedAt:         utc(p.CreatedAt),
		UpdatedAt:         utc(p.UpdatedAt),
	}
}

var hundred = decimal.NewFromInt(100)

func parseNonNegative(field, raw string, required bool) (decimal.Decimal, error) {
	d, err := parseMoney(field, raw, required)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, invalid(field, "must not be negative")
	}
	return d, nil
}

func parseTaxRate(raw string) (decimal.Decimal, error) {
	rate, err := parseNonNegative("tax_rate", raw, false)
	if err != nil {
		return decimal.Zero, err
	}
	if rate.GreaterThan(hundred) {
		return decimal.Zero, invalid("tax_rate", "must be between 0 and 100")
	}
	return rate, nil
}

func normalizeSKU(raw string) *string {
	sku := strings.TrimSpace(raw)
	if sku == "" {
		return nil
	}
	return &sku
}

// checkCategory requires an active product category of the same business.
func (s *productService) checkCategory(ctx context.Context, raw *string, businessID uuid.UUID) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, invalid("category_id", "must be a UUID")
	}
	category, err := s.categoryRepo.FindInBusiness(ctx, id, businessID)
	if err != nil {
		return nil, translate(err, "category")
	}
	if category.CategoryType != model.CategoryProduct || !category.IsActive {
		return nil, invalid("category_id", "must be an active product category")
	}
	return &id, nil
}

func (s *productService) checkSKU(ctx context.Context, p *model.Product) error {
	if p.SKU == nil {
		return nil
	}
	existing, err := s.repo.FindBySKU(ctx, p.BusinessID, *p.SKU)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != p.ID:
		return invalid("sku", "%q is already used by another product", *p.SKU)
	}
	return nil
}

func (s *productService) audit(ctx context.Context, userID uuid.UUID, action string, p *model.Product, details datatypes.JSONMap) error {
	if details == nil {
		details = datatypes.JSONMap{}
	}
	details["business_id"] = p.BusinessID.String()
	return s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     &userID,
		Action:     action,
		EntityID:   p.ID.String(),
		EntityName: p.Name,
		Details:    details,
	})
}

func (s *productService) CreateProduct(ctx context.Context, userID uuid.UUID, req CreateProductRequest) (*ProductView, error) {
	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		return nil, invalid("business_id", "must be a UUID")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	price, err := parseNonNegative("unit_price", req.UnitPrice, true)
	if err != nil {
		return nil, err
	}
	cost, err := parseNonNegative("cost_price", req.CostPrice, false)
	if err != nil {
		return nil, err
	}
	rate, err := parseTaxRate(req.TaxRate)
	if err != nil {
		return nil, err
	}
	stock, err := parseNonNegative("quantity_in_stock", req.QuantityInStock, false)
	if err != nil {
		return nil, err
	}
	threshold, err := parseNonNegative("low_stock_threshold", req.LowStockThreshold, false)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		BusinessID:        businessID,
		SKU:               normalizeSKU(req.SKU),
		Name:              name,
		Description:       req.Description,
		UnitPrice:         price,
		CostPrice:         cost,
		UnitOfMeasure:     lo.Ternary(req.UnitOfMeasure == "", "unit", req.UnitOfMeasure),
		TaxRate:           rate,
		IsTaxable:         lo.FromPtrOr(req.IsTaxable, true),
		TrackInventory:    req.TrackInventory,
		QuantityInStock:   stock,
		LowStockThreshold: threshold,
		ImageURL:          req.ImageURL,
		IsActive:          true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.businessRepo.FindOwned(txCtx, businessID, userID); err != nil {
			return translate(err, "business")
		}
		if product.CategoryID, err = s.checkCategory(txCtx, req.CategoryID, businessID); err != nil {
			return err
		}
		if err := s.checkSKU(txCtx, product); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, product); err != nil {
			return translate(err, "create product")
		}
		return s.audit(txCtx, userID, model.ActionCreateProduct, product, nil)
	})
	if err != nil {
		return nil, err
	}
	return toProductView(product), nil
}

func (s *productService) GetProduct(ctx context.Context, userID, id uuid.UUID) (*ProductView, error) {
	product, err := s.repo.FindOwned(ctx, id, userID)
	if err != nil {
		return nil, translate(err, "product")
	}
	return toProductView(product), nil
}

func (s *productService) ListProducts(ctx context.Context, userID uuid.UUID, q ProductListQuery) (ProductPage, error) {
	if _, err := s.businessRepo.FindOwned(ctx, q.BusinessID, userID); err != nil {
		return ProductPage{}, translate(err, "business")
	}
	page := pagination.Normalize(q.Skip, q.Limit)
	products, total, err := s.repo.List(ctx, repository.ProductListFilter{
		BusinessID:      q.BusinessID,
		CategoryID:      q.CategoryID,
		Search:          strings.TrimSpace(q.Search),
		IncludeInactive: q.IncludeInactive,
		LowStockOnly:    q.LowStockOnly,
		Skip:            page.Skip,
		Limit:           page.Limit,
	})
	if err != nil {
		return ProductPage{}, fmt.Errorf("failed to list products: %w", err)
	}
	return ProductPage{
		Products: lo.Map(products, func(p model.Product, _ int) ProductView { return *toProductView(&p) }),
		Total:    total,
		Skip:     page.Skip,
		Limit:    page.Limit,
	}, nil
}

// applyProductUpdate copies the present fields onto p and returns the names that changed.
func applyProductUpdate(p *model.Product, req UpdateProductRequest) ([]string, error) {
	var changed []string
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		p.Name = name
		changed = append(changed, "name")
	}
	if req.SKU != nil {
		p.SKU = normalizeSKU(*req.SKU)
		changed = append(changed, "sku")
	}
	if req.Description != nil {
		p.Description = *req.Description
		changed = append(changed, "description")
	}
	if req.UnitPrice != nil {
		v, err := parseNonNegative("unit_price", *req.UnitPrice, true)
		if err != nil {
			return nil, err
		}
		p.UnitPrice = v
		changed = append(changed, "unit_price")
	}
	if req.CostPrice != nil {
		v, err := parseNonNegative("cost_price", *req.CostPrice, false)
		if err != nil {
			return nil, err
		}
		p.CostPrice = v
		changed = append(changed, "cost_price")
	}
	if req.UnitOfMeasure != nil && *req.UnitOfMeasure != "" {
		p.UnitOfMeasure = *req.UnitOfMeasure
		changed = append(changed, "unit_of_measure")
	}
	if req.TaxRate != nil {
		v, err := parseTaxRate(*req.TaxRate)
		if err != nil {
			return nil, err
		}
		p.TaxRate = v
		changed = append(changed, "tax_rate")
	}
	if req.IsTaxable != nil {
		p.IsTaxable = *req.IsTaxable
		changed = append(changed, "is_taxable")
	}
	if req.TrackInventory != nil {
		p.TrackInventory = *req.TrackInventory
		changed = append(changed, "track_inventory")
	}
	if req.LowStockThreshold != nil {
		v, err := parseNonNegative("low_stock_threshold", *req.LowStockThreshold, false)
		if err != nil {
			return nil, err
		}
		p.LowStockThreshold = v
		changed = append(changed, "low_stock_threshold")
	}
	if req.ImageURL != nil {
		p.ImageURL = *req.ImageURL
		changed = append(changed, "image_url")
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
		changed = append(changed, "is_active")
	}
	return changed, nil
}

func (s *productService) UpdateProduct(ctx context.Context, userID, id uuid.UUID, req UpdateProductRequest) (*ProductView, error) {
	var product *model.Product
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if product, err = s.repo.LockOwned(txCtx, id, userID); err != nil {
			return translate(err, "product")
		}
		changed, err := applyProductUpdate(product, req)
		if err != nil {
			return err
		}
		if req.CategoryID != nil {
			if product.CategoryID, err = s.checkCategory(txCtx, req.CategoryID, product.BusinessID); err != nil {
				return err
			}
			changed = append(changed, "category_id")
		}
		if len(changed) == 0 {
			return nil
		}
		if err := s.checkSKU(txCtx, product); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, product); err != nil {
			return translate(err, "update product")
		}
		return s.audit(txCtx, userID, model.ActionUpdateProduct, product, datatypes.JSONMap{"fields": changed})
	})
	if err != nil {
		return nil, err
	}
	return toProductView(product), nil
}

func (s *productService) DeleteProduct(ctx context.Context, userID, id uuid.UUID) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.repo.LockOwned(txCtx, id, userID)
		if err != nil {
			return translate(err, "product")
		}
		if !product.IsActive {
			return nil
		}
		product.IsActive = false
		if err := s.repo.Update(txCtx, product); err != nil {
			return err
		}
		return s.audit(txCtx, userID, model.ActionDeleteProduct, product, datatypes.JSONMap{"deactivated": true})
	})
}

// nextStock applies one adjustment. Subtracting more than is on hand leaves zero.
func nextStock(current, qty decimal.Decimal, adj model.StockAdjustment) decimal.Decimal {
	switch adj {
	case model.StockAdd:
		return current.Add(qty)
	case model.StockSubtract:
		return decimal.Max(current.Sub(qty), decimal.Zero)
	case model.StockSet:
	}
	return qty
}

func (s *productService) AdjustStock(ctx context.Context, userID, id uuid.UUID, req AdjustStockRequest) (*ProductView, error) {
	adj := lo.Ternary(req.Adjustment == "", model.StockSet, req.Adjustment)
	if !adj.Valid() {
		return nil, invalid("adjustment", "must be set, add or subtract")
	}
	qty, err := parseNonNegative("quantity", req.Quantity, true)
	if err != nil {
		return nil, err
	}

	var product *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if product, err = s.repo.LockOwned(txCtx, id, userID); err != nil {
			return translate(err, "product")
		}
		if !product.TrackInventory {
			return invalid("track_inventory", "inventory tracking is disabled for this product")
		}
		before := product.QuantityInStock
		product.QuantityInStock = nextStock(before, qty, adj)
		if err := s.repo.UpdateStock(txCtx, product.ID, product.QuantityInStock); err != nil {
			return err
		}
		return s.audit(txCtx, userID, model.ActionAdjustStock, product, datatypes.JSONMap{
			"adjustment": string(adj),
			"quantity":   qty.String(),
			"before":     before.String(),
			"after":      product.QuantityInStock.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return toProductView(product), nil
}

func (s *productService) DuplicateProduct(ctx context.Context, userID, id uuid.UUID) (*ProductView, error) {
	var dup model.Product
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		src, err := s.repo.FindOwned(txCtx, id, userID)
		if err != nil {
			return translate(err, "product")
		}
		dup = *src
		dup.ID = uuid.Nil
		dup.SKU = nil
		dup.Name = src.Name + " (Copy)"
		dup.QuantityInStock = decimal.Zero
		dup.IsActive = true
		dup.CreatedAt = time.Time{}
		dup.UpdatedAt = time.Time{}
		if err := s.repo.Create(txCtx, &dup); err != nil {
			return err
		}
		return s.audit(txCtx, userID, model.ActionCreateProduct, &dup, datatypes.JSONMap{"duplicated_from": src.ID.String()})
	})
	if err != nil {
		return nil, err
	}
	return toProductView(&dup), nil
}
