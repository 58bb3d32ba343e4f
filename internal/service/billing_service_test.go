package service

import (
	"context"
	"testing"

	"invoicegen/internal/config"
	"invoicegen/internal/model"
	"invoicegen/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscribe(t *testing.T, h *harness, plan model.PlanType, status model.SubscriptionStatus) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewBillingRepository(h.db)
	_, err := h.billing.SeedPlans(ctx)
	require.NoError(t, err)
	p, err := repo.FindPlan(ctx, plan)
	require.NoError(t, err)
	require.NoError(t, repo.CreateSubscription(ctx, &model.Subscription{UserID: h.user(), PlanID: p.ID, Status: status}))
}

func TestGetPlanLimits_FallsBackToStoredPlan(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	limits, err := h.billing.GetPlanLimits(ctx, h.user())
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, limits.Plan)
	assert.Equal(t, 5, limits.MaxInvoicesPerMonth)
	assert.Equal(t, 1, limits.MaxBusinesses)

	h.setPlan(t, model.PlanEnterprise)
	limits, err = h.billing.GetPlanLimits(ctx, h.user())
	require.NoError(t, err)
	assert.Equal(t, config.Unlimited, limits.MaxInvoicesPerMonth)
	assert.Equal(t, config.Unlimited, limits.MaxBusinesses)
}

func TestGetPlanLimits_SubscriptionWins(t *testing.T) {
	h := newHarness(t, false)
	subscribe(t, h, model.PlanStarter, model.SubscriptionTrialing)

	limits, err := h.billing.GetPlanLimits(context.Background(), h.user())
	require.NoError(t, err)
	assert.Equal(t, model.PlanStarter, limits.Plan)
	assert.Equal(t, 50, limits.MaxInvoicesPerMonth)
	assert.Equal(t, 2, limits.MaxBusinesses)
	assert.Contains(t, limits.Features, "reminders")
}

func TestCanCreateInvoice_InactiveSubscription(t *testing.T) {
	h := newHarness(t, false)
	subscribe(t, h, model.PlanPro, model.SubscriptionPastDue)

	d, err := h.billing.CanCreateInvoice(context.Background(), h.fx.Business)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, LimitSubscription, d.Limit)

	_, err = h.invoices.CreateInvoice(context.Background(), h.user(), h.request())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestCanCreateInvoice_Unlimited(t *testing.T) {
	h := newHarness(t, false)
	subscribe(t, h, model.PlanEnterprise, model.SubscriptionActive)

	d, err := h.billing.CanCreateInvoice(context.Background(), h.fx.Business)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, config.Unlimited, d.Max)
}

func TestCanCreateBusiness(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	d, err := h.billing.CanCreateBusiness(ctx, h.user())
	require.NoError(t, err)
	assert.False(t, d.Allowed, "free plan allows a single business and the fixture already has one")
	assert.Equal(t, int64(1), d.Used)

	h.setPlan(t, model.PlanStarter)
	d, err = h.billing.CanCreateBusiness(ctx, h.user())
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestHasFeature(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	ok, err := h.billing.HasFeature(ctx, h.user(), "audit_logs")
	require.NoError(t, err)
	assert.False(t, ok)

	h.setPlan(t, model.PlanEnterprise)
	ok, err = h.billing.HasFeature(ctx, h.user(), "audit_logs")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUsageAndPlans(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	h.create(t)
	h.create(t)

	usage, err := h.billing.Usage(ctx, h.user(), &h.fx.Business.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, usage.Plan)
	assert.Equal(t, int64(1), usage.ActiveBusinesses)
	require.NotNil(t, usage.InvoicesThisMonth)
	assert.Equal(t, int64(2), *usage.InvoicesThisMonth)

	n, err := h.billing.SeedPlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	_, err = h.billing.SeedPlans(ctx)
	require.NoError(t, err, "seeding is idempotent")

	plans, err := h.billing.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 4)
	assert.Equal(t, model.PlanFree, plans[0].PlanType)
	assert.Equal(t, "0.00", plans[0].PriceMonthly)
	assert.Nil(t, plans[3].MaxBusinesses, "enterprise is unlimited")
}
