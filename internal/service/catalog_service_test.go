package service

import (
	"context"
	"errors"
	"testing"

	"invoicegen/internal/model"
	"invoicegen/internal/testutil"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireField(t *testing.T, err error, field string) {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, field, ve.Field)
}

func (h *harness) product(t *testing.T, req CreateProductRequest) *ProductView {
	t.Helper()
	req.BusinessID = h.fx.Business.ID.String()
	if req.UnitPrice == "" {
		req.UnitPrice = "10"
	}
	p, err := h.products.CreateProduct(context.Background(), h.user(), req)
	require.NoError(t, err)
	return p
}

func TestCreateProduct(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	p := h.product(t, CreateProductRequest{SKU: " WID-1 ", Name: "Widget", UnitPrice: "9.5", TaxRate: "7.5"})
	require.NotNil(t, p.SKU)
	assert.Equal(t, "WID-1", *p.SKU)
	assert.Equal(t, "9.50", p.UnitPrice)
	assert.Equal(t, "unit", p.UnitOfMeasure)
	assert.True(t, p.IsTaxable)
	assert.True(t, p.IsActive)

	untaxed := h.product(t, CreateProductRequest{Name: "Gift card", IsTaxable: lo.ToPtr(false)})
	got, err := h.products.GetProduct(ctx, h.user(), untaxed.ID)
	require.NoError(t, err)
	assert.False(t, got.IsTaxable)

	tests := []struct {
		name  string
		req   CreateProductRequest
		field string
	}{
		{"duplicate sku", CreateProductRequest{SKU: "WID-1", Name: "Other", UnitPrice: "1"}, "sku"},
		{"blank name", CreateProductRequest{Name: "  ", UnitPrice: "1"}, "name"},
		{"negative price", CreateProductRequest{Name: "X", UnitPrice: "-1"}, "unit_price"},
		{"tax over 100", CreateProductRequest{Name: "X", UnitPrice: "1", TaxRate: "101"}, "tax_rate"},
		{"bad stock", CreateProductRequest{Name: "X", UnitPrice: "1", QuantityInStock: "lots"}, "quantity_in_stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.BusinessID = h.fx.Business.ID.String()
			_, err := h.products.CreateProduct(ctx, h.user(), tt.req)
			requireField(t, err, tt.field)
		})
	}

	other := testutil.Seed(t, h.db)
	_, err = h.products.CreateProduct(ctx, other.User.ID, CreateProductRequest{BusinessID: h.fx.Business.ID.String(), Name: "X", UnitPrice: "1"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.products.GetProduct(ctx, other.User.ID, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductCategoryMustMatch(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	business := h.fx.Business.ID.String()

	expense, err := h.catalog.CreateCategory(ctx, h.user(), CreateCategoryRequest{BusinessID: business, CategoryType: model.CategoryExpense, Name: "Travel"})
	require.NoError(t, err)
	tools, err := h.catalog.CreateCategory(ctx, h.user(), CreateCategoryRequest{BusinessID: business, Name: "Tools"})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryProduct, tools.CategoryType)

	_, err = h.products.CreateProduct(ctx, h.user(), CreateProductRequest{BusinessID: business, Name: "Saw", UnitPrice: "20", CategoryID: lo.ToPtr(expense.ID.String())})
	requireField(t, err, "category_id")

	saw := h.product(t, CreateProductRequest{Name: "Saw", CategoryID: lo.ToPtr(tools.ID.String())})
	require.NotNil(t, saw.CategoryID)
	assert.Equal(t, tools.ID, *saw.CategoryID)

	page, err := h.products.ListProducts(ctx, h.user(), ProductListQuery{BusinessID: h.fx.Business.ID, CategoryID: &tools.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 10, page.Limit)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.product(t, CreateProductRequest{SKU: "A", Name: "Alpha"})
	beta := h.product(t, CreateProductRequest{SKU: "B", Name: "Beta"})

	updated, err := h.products.UpdateProduct(ctx, h.user(), beta.ID, UpdateProductRequest{
		Name:      lo.ToPtr("Beta v2"),
		UnitPrice: lo.ToPtr("11.25"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Beta v2", updated.Name)
	assert.Equal(t, "11.25", updated.UnitPrice)
	require.NotNil(t, updated.SKU)
	assert.Equal(t, "B", *updated.SKU)

	_, err = h.products.UpdateProduct(ctx, h.user(), beta.ID, UpdateProductRequest{SKU: lo.ToPtr("A")})
	requireField(t, err, "sku")

	require.NoError(t, h.products.DeleteProduct(ctx, h.user(), beta.ID))
	got, err := h.products.GetProduct(ctx, h.user(), beta.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	page, err := h.products.ListProducts(ctx, h.user(), ProductListQuery{BusinessID: h.fx.Business.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	page, err = h.products.ListProducts(ctx, h.user(), ProductListQuery{BusinessID: h.fx.Business.ID, IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	var actions []string
	require.NoError(t, h.db.Model(&model.AuditLog{}).Where("entity_id = ?", beta.ID.String()).
		Order("created_at asc").Pluck("action", &actions).Error)
	assert.Equal(t, []string{model.ActionCreateProduct, model.ActionUpdateProduct, model.ActionDeleteProduct}, actions)
}

func TestAdjustStock(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	p := h.product(t, CreateProductRequest{Name: "Bolt", TrackInventory: true, QuantityInStock: "10", LowStockThreshold: "3"})

	steps := []struct {
		adj  model.StockAdjustment
		qty  string
		want string
		low  bool
	}{
		{model.StockAdd, "5", "15", false},
		{model.StockSubtract, "12", "3", true},
		{model.StockSubtract, "99", "0", true},
		{"", "40", "40", false},
	}
	for _, s := range steps {
		got, err := h.products.AdjustStock(ctx, h.user(), p.ID, AdjustStockRequest{Quantity: s.qty, Adjustment: s.adj})
		require.NoError(t, err)
		assert.Equal(t, s.want, got.QuantityInStock, "%s %s", s.adj, s.qty)
		assert.Equal(t, s.low, got.LowStock)
	}

	_, err := h.products.AdjustStock(ctx, h.user(), p.ID, AdjustStockRequest{Quantity: "1", Adjustment: "double"})
	requireField(t, err, "adjustment")
	_, err = h.products.AdjustStock(ctx, h.user(), p.ID, AdjustStockRequest{Quantity: "-1"})
	requireField(t, err, "quantity")

	untracked := h.product(t, CreateProductRequest{Name: "Service hour"})
	_, err = h.products.AdjustStock(ctx, h.user(), untracked.ID, AdjustStockRequest{Quantity: "1"})
	requireField(t, err, "track_inventory")

	_, err = h.products.AdjustStock(ctx, h.user(), uuid.New(), AdjustStockRequest{Quantity: "1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateProduct(t *testing.T) {
	h := newHarness(t, false)
	src := h.product(t, CreateProductRequest{SKU: "W-1", Name: "Widget", UnitPrice: "4.20", TrackInventory: true, QuantityInStock: "7"})

	dup, err := h.products.DuplicateProduct(context.Background(), h.user(), src.ID)
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, dup.ID)
	assert.Equal(t, "Widget (Copy)", dup.Name)
	assert.Nil(t, dup.SKU)
	assert.Equal(t, "0", dup.QuantityInStock)
	assert.Equal(t, "4.20", dup.UnitPrice)
	assert.True(t, dup.TrackInventory)

	// a second copy does not collide on SKU
	_, err = h.products.DuplicateProduct(context.Background(), h.user(), src.ID)
	require.NoError(t, err)
}

func TestCategoryTree(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	business := h.fx.Business.ID.String()
	create := func(name string, parent *uuid.UUID, typ model.CategoryType) (*CategoryView, error) {
		req := CreateCategoryRequest{BusinessID: business, Name: name, CategoryType: typ}
		if parent != nil {
			req.ParentID = lo.ToPtr(parent.String())
		}
		return h.catalog.CreateCategory(ctx, h.user(), req)
	}

	root, err := create("Hardware", nil, model.CategoryProduct)
	require.NoError(t, err)
	child, err := create("Fasteners", &root.ID, model.CategoryProduct)
	require.NoError(t, err)
	grandchild, err := create("Bolts", &child.ID, model.CategoryProduct)
	require.NoError(t, err)

	_, err = create("Hardware", nil, model.CategoryProduct)
	requireField(t, err, "name")
	_, err = create("Hardware", nil, model.CategoryInvoice)
	require.NoError(t, err, "same name under another type")
	_, err = create("Misc", &root.ID, model.CategoryExpense)
	requireField(t, err, "parent_id")
	_, err = create("Misc", nil, "gadgets")
	requireField(t, err, "category_type")

	_, err = h.catalog.UpdateCategory(ctx, h.user(), root.ID, UpdateCategoryRequest{ParentID: lo.ToPtr(root.ID.String())})
	requireField(t, err, "parent_id")
	_, err = h.catalog.UpdateCategory(ctx, h.user(), root.ID, UpdateCategoryRequest{ParentID: lo.ToPtr(grandchild.ID.String())})
	requireField(t, err, "parent_id")

	moved, err := h.catalog.UpdateCategory(ctx, h.user(), grandchild.ID, UpdateCategoryRequest{ParentID: lo.ToPtr(""), Name: lo.ToPtr("Bolts & nuts")})
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)
	assert.Equal(t, "Bolts & nuts", moved.Name)

	products := model.CategoryProduct
	listed, err := h.catalog.ListCategories(ctx, h.user(), h.fx.Business.ID, &products, false)
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	other := testutil.Seed(t, h.db)
	_, err = h.catalog.ListCategories(ctx, other.User.ID, h.fx.Business.ID, nil, false)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.catalog.UpdateCategory(ctx, other.User.ID, root.ID, UpdateCategoryRequest{Name: lo.ToPtr("Mine")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategory(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	business := h.fx.Business.ID.String()

	root, err := h.catalog.CreateCategory(ctx, h.user(), CreateCategoryRequest{BusinessID: business, Name: "Hardware"})
	require.NoError(t, err)
	child, err := h.catalog.CreateCategory(ctx, h.user(), CreateCategoryRequest{BusinessID: business, Name: "Fasteners", ParentID: lo.ToPtr(root.ID.String())})
	require.NoError(t, err)
	h.product(t, CreateProductRequest{Name: "Bolt", CategoryID: lo.ToPtr(child.ID.String())})

	_, err = h.catalog.DeleteCategory(ctx, h.user(), root.ID)
	requireField(t, err, "id")

	removed, err := h.catalog.DeleteCategory(ctx, h.user(), child.ID)
	require.NoError(t, err)
	assert.False(t, removed, "in use, only deactivated")

	removed, err = h.catalog.DeleteCategory(ctx, h.user(), root.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	all, err := h.catalog.ListCategories(ctx, h.user(), h.fx.Business.ID, nil, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, child.ID, all[0].ID)
	assert.False(t, all[0].IsActive)
}
