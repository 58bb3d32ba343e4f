package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"invoicegen/internal/model"
	"invoicegen/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newInvoice(f testutil.Fixture, number string, total string) *model.Invoice {
	t := decimal.RequireFromString(total)
	day := datatypes.Date(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	return &model.Invoice{
		BusinessID:    f.Business.ID,
		ClientID:      f.Client.ID,
		InvoiceNumber: number,
		Status:        model.InvoiceStatusDraft,
		InvoiceDate:   day,
		DueDate:       day,
		PaymentTerms:  model.PaymentTermsNet30,
		Subtotal:      t,
		TotalAmount:   t,
		AmountDue:     t,
		Currency:      "USD",
		Items: []model.InvoiceItem{{
			Description: "Consulting",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   t,
			LineTotal:   t,
		}},
	}
}

func TestReserveInvoiceNumber_Sequential(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewBusinessRepository(db)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		prefix, n, err := repo.ReserveInvoiceNumber(ctx, f.Business.ID)
		require.NoError(t, err)
		assert.Equal(t, "INV", prefix)
		assert.Equal(t, want, n)
	}

	_, _, err := repo.ReserveInvoiceNumber(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReserveInvoiceNumber_RolledBackWithTransaction(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewBusinessRepository(db)
	tx := NewTransactionManager(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := tx.RunInTx(ctx, func(txCtx context.Context) error {
		_, _, err := repo.ReserveInvoiceNumber(txCtx, f.Business.ID)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, n, err := repo.ReserveInvoiceNumber(ctx, f.Business.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInvoiceRepository_OwnershipAndDuplicateNumber(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	other := testutil.Seed(t, db)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()

	inv := newInvoice(f, "INV-00001", "100.00")
	require.NoError(t, repo.Create(ctx, inv))

	got, err := repo.FindOwnedWithDetails(ctx, inv.ID, f.User.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.NotNil(t, got.Client)
	assert.Equal(t, "Globex", got.Client.CompanyName)

	_, err = repo.FindOwned(ctx, inv.ID, other.User.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	dup := newInvoice(f, "INV-00001", "5.00")
	assert.ErrorIs(t, repo.Create(ctx, dup), gorm.ErrDuplicatedKey)

	sameNumberOtherBusiness := newInvoice(other, "INV-00001", "5.00")
	assert.NoError(t, repo.Create(ctx, sameNumberOtherBusiness))
}

func TestInvoiceRepository_ListFiltersAndOrder(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()

	var ids []uuid.UUID
	for i, n := range []string{"INV-00001", "INV-00002", "INV-00003"} {
		inv := newInvoice(f, n, "10.00")
		if i == 1 {
			inv.Status = model.InvoiceStatusSent
		}
		require.NoError(t, repo.Create(ctx, inv))
		ids = append(ids, inv.ID)
		time.Sleep(2 * time.Millisecond)
	}

	all, err := repo.List(ctx, InvoiceListFilter{UserID: f.User.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[2].ID)

	sent := model.InvoiceStatusSent
	filtered, err := repo.List(ctx, InvoiceListFilter{UserID: f.User.ID, Status: &sent, Limit: 10})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, ids[1], filtered[0].ID)

	page, err := repo.List(ctx, InvoiceListFilter{UserID: f.User.ID, Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)

	none, err := repo.List(ctx, InvoiceListFilter{UserID: uuid.New(), Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInvoiceRepository_CountCreatedSince(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewInvoiceRepository(db)
	ctx := context.Background()

	old := newInvoice(f, "INV-00001", "10.00")
	old.CreatedAt = time.Now().UTC().AddDate(0, -2, 0)
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, newInvoice(f, "INV-00002", "10.00")))

	count, err := repo.CountCreatedSince(ctx, f.Business.ID, time.Now().UTC().AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestInvoiceRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	invoices := NewInvoiceRepository(db)
	payments := NewPaymentRepository(db)
	ctx := context.Background()

	inv := newInvoice(f, "INV-00001", "10.00")
	require.NoError(t, invoices.Create(ctx, inv))
	require.NoError(t, payments.Create(ctx, &model.Payment{
		InvoiceID:     inv.ID,
		PaymentNumber: "PAY-1",
		PaymentDate:   time.Now().UTC(),
		Amount:        decimal.NewFromInt(4),
		Method:        model.PaymentMethodCash,
		Status:        model.PaymentStatusCompleted,
	}))

	require.NoError(t, invoices.Delete(ctx, inv.ID))

	items, err := invoices.ListItems(ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	left, err := payments.ListByInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.ErrorIs(t, invoices.Delete(ctx, inv.ID), gorm.ErrRecordNotFound)
}

func TestPaymentRepository_SumCountedAndRefund(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	invoices := NewInvoiceRepository(db)
	payments := NewPaymentRepository(db)
	ctx := context.Background()

	inv := newInvoice(f, "INV-00001", "100.00")
	require.NoError(t, invoices.Create(ctx, inv))

	sum, err := payments.SumCounted(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, sum.IsZero())

	for i, st := range []model.PaymentStatus{model.PaymentStatusCompleted, model.PaymentStatusCompleted, model.PaymentStatusFailed} {
		require.NoError(t, payments.Create(ctx, &model.Payment{
			InvoiceID:     inv.ID,
			PaymentNumber: "PAY-" + uuid.NewString()[:8],
			PaymentDate:   time.Now().UTC(),
			Amount:        decimal.NewFromFloat(12.5 * float64(i+1)),
			Method:        model.PaymentMethodBankTransfer,
			Status:        st,
		}))
	}

	sum, err = payments.SumCounted(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "37.50", sum.StringFixed(2))

	n, err := payments.MarkRefunded(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	sum, err = payments.SumCounted(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, sum.IsZero())
}

func TestPaymentRepository_FindOwned(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	other := testutil.Seed(t, db)
	invoices := NewInvoiceRepository(db)
	payments := NewPaymentRepository(db)
	ctx := context.Background()

	inv := newInvoice(f, "INV-00001", "100.00")
	require.NoError(t, invoices.Create(ctx, inv))
	p := &model.Payment{
		InvoiceID:     inv.ID,
		PaymentNumber: "PAY-X",
		PaymentDate:   time.Now().UTC(),
		Amount:        decimal.NewFromInt(1),
		Method:        model.PaymentMethodCash,
		Status:        model.PaymentStatusCompleted,
	}
	require.NoError(t, payments.Create(ctx, p))

	got, err := payments.FindOwned(ctx, p.ID, f.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAY-X", got.PaymentNumber)

	_, err = payments.FindOwned(ctx, p.ID, other.User.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestBillingRepository_UpsertPlanAndSubscription(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewBillingRepository(db)
	ctx := context.Background()

	max := 50
	plan := &model.BillingPlan{PlanType: model.PlanStarter, Name: "Starter", MaxInvoicesPerMonth: &max, Features: datatypes.NewJSONSlice([]string{"reminders"}), IsActive: true}
	require.NoError(t, repo.UpsertPlan(ctx, plan))

	max = 60
	again := &model.BillingPlan{PlanType: model.PlanStarter, Name: "Starter+", MaxInvoicesPerMonth: &max, Features: datatypes.NewJSONSlice([]string{"reminders", "custom_branding"}), IsActive: true}
	require.NoError(t, repo.UpsertPlan(ctx, again))

	stored, err := repo.FindPlan(ctx, model.PlanStarter)
	require.NoError(t, err)
	assert.Equal(t, "Starter+", stored.Name)
	require.NotNil(t, stored.MaxInvoicesPerMonth)
	assert.Equal(t, 60, *stored.MaxInvoicesPerMonth)
	assert.Nil(t, stored.MaxBusinesses)
	assert.ElementsMatch(t, []string{"reminders", "custom_branding"}, []string(stored.Features))

	require.NoError(t, repo.CreateSubscription(ctx, &model.Subscription{UserID: f.User.ID, PlanID: stored.ID, Status: model.SubscriptionTrialing}))
	sub, err := repo.FindSubscription(ctx, f.User.ID)
	require.NoError(t, err)
	require.NotNil(t, sub.Plan)
	assert.Equal(t, model.PlanStarter, sub.Plan.PlanType)
}

func TestSyncInvoiceCounter_SkipsIssuedNumbers(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	other := testutil.Seed(t, db)
	repo := NewBusinessRepository(db)
	invoices := NewInvoiceRepository(db)
	ctx := context.Background()

	require.NoError(t, invoices.Create(ctx, newInvoice(f, "INV-00001", "10.00")))
	require.NoError(t, invoices.Create(ctx, newInvoice(f, "INV-00007", "10.00")))
	require.NoError(t, invoices.Create(ctx, newInvoice(f, "OLD-00042", "10.00")))
	require.NoError(t, invoices.Create(ctx, newInvoice(other, "INV-00099", "10.00")))

	next, err := repo.SyncInvoiceCounter(ctx, f.Business.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, next)

	_, n, err := repo.ReserveInvoiceNumber(ctx, f.Business.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	// a counter already ahead is left alone
	next, err = repo.SyncInvoiceCounter(ctx, f.Business.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, next)

	_, err = repo.SyncInvoiceCounter(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductRepository_ScopedToBusiness(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	other := testutil.Seed(t, db)
	repo := NewProductRepository(db)
	ctx := context.Background()

	sku := "WID-1"
	widget := &model.Product{BusinessID: f.Business.ID, SKU: &sku, Name: "Widget", UnitPrice: decimal.RequireFromString("9.99"), IsActive: true}
	require.NoError(t, repo.Create(ctx, widget))

	_, err := repo.FindInBusiness(ctx, widget.ID, other.Business.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindOwned(ctx, widget.ID, other.User.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	got, err := repo.FindOwned(ctx, widget.ID, f.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Name)

	found, err := repo.FindBySKU(ctx, f.Business.ID, "WID-1")
	require.NoError(t, err)
	assert.Equal(t, widget.ID, found.ID)

	dup := &model.Product{BusinessID: f.Business.ID, SKU: &sku, Name: "Widget again", IsActive: true}
	assert.ErrorIs(t, repo.Create(ctx, dup), gorm.ErrDuplicatedKey)

	sameSKUOtherBusiness := &model.Product{BusinessID: other.Business.ID, SKU: &sku, Name: "Widget", IsActive: true}
	assert.NoError(t, repo.Create(ctx, sameSKUOtherBusiness))

	// products without a SKU never collide
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &model.Product{BusinessID: f.Business.ID, Name: "Loose item", IsActive: true}))
	}
}

func TestProductRepository_ListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewProductRepository(db)
	ctx := context.Background()

	products := []*model.Product{
		{BusinessID: f.Business.ID, Name: "Bolt", Description: "steel", IsActive: true, TrackInventory: true,
			QuantityInStock: decimal.NewFromInt(2), LowStockThreshold: decimal.NewFromInt(5)},
		{BusinessID: f.Business.ID, Name: "Anchor", IsActive: true, TrackInventory: true,
			QuantityInStock: decimal.NewFromInt(50), LowStockThreshold: decimal.NewFromInt(5)},
		{BusinessID: f.Business.ID, Name: "Crate", Description: "Steel box", IsActive: true},
	}
	for _, p := range products {
		require.NoError(t, repo.Create(ctx, p))
	}
	retired := &model.Product{BusinessID: f.Business.ID, Name: "Drum", IsActive: true}
	require.NoError(t, repo.Create(ctx, retired))
	retired.IsActive = false
	require.NoError(t, repo.Update(ctx, retired))

	names := func(ps []model.Product) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Name)
		}
		return out
	}

	all, total, err := repo.List(ctx, ProductListFilter{BusinessID: f.Business.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []string{"Anchor", "Bolt", "Crate"}, names(all))

	withInactive, total, err := repo.List(ctx, ProductListFilter{BusinessID: f.Business.ID, IncludeInactive: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, withInactive, 4)

	searched, _, err := repo.List(ctx, ProductListFilter{BusinessID: f.Business.ID, Search: "STEEL", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bolt", "Crate"}, names(searched))

	low, _, err := repo.List(ctx, ProductListFilter{BusinessID: f.Business.ID, LowStockOnly: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bolt"}, names(low))

	paged, total, err := repo.List(ctx, ProductListFilter{BusinessID: f.Business.ID, Skip: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []string{"Bolt"}, names(paged))
}

func TestCategoryRepository_NameTakenAmongSiblings(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	root := &model.Category{BusinessID: f.Business.ID, CategoryType: model.CategoryProduct, Name: "Hardware", IsActive: true}
	require.NoError(t, repo.Create(ctx, root))

	taken, err := repo.NameTaken(ctx, &model.Category{BusinessID: f.Business.ID, CategoryType: model.CategoryProduct, Name: "Hardware"})
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.NameTaken(ctx, &model.Category{BusinessID: f.Business.ID, CategoryType: model.CategoryExpense, Name: "Hardware"})
	require.NoError(t, err)
	assert.False(t, taken, "other type")

	taken, err = repo.NameTaken(ctx, &model.Category{BusinessID: f.Business.ID, CategoryType: model.CategoryProduct, Name: "Hardware", ParentID: &root.ID})
	require.NoError(t, err)
	assert.False(t, taken, "other level")

	taken, err = repo.NameTaken(ctx, root)
	require.NoError(t, err)
	assert.False(t, taken, "itself")

	child := &model.Category{BusinessID: f.Business.ID, CategoryType: model.CategoryProduct, Name: "Bolts", ParentID: &root.ID, IsActive: true}
	require.NoError(t, repo.Create(ctx, child))
	n, err := repo.CountActiveChildren(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
