package reconcile

import (
	"testing"
	"time"

	"invoicegen/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sentInvoice(total string) *model.Invoice {
	t := dec(total)
	return &model.Invoice{
		Status:      model.InvoiceStatusSent,
		TotalAmount: t,
		AmountPaid:  decimal.Zero,
		AmountDue:   t,
	}
}

func assertDerived(t *testing.T, inv *model.Invoice) {
	t.Helper()
	assert.True(t, inv.AmountDue.Equal(inv.TotalAmount.Sub(inv.AmountPaid)), "due %s total %s paid %s", inv.AmountDue, inv.TotalAmount, inv.AmountPaid)
	assert.False(t, inv.AmountDue.IsNegative())
}

func TestApply_PartialThenFull(t *testing.T) {
	inv := sentInvoice("220.00")

	require.NoError(t, Apply(inv, dec("100.00"), now))
	assert.Equal(t, "100.00", inv.AmountPaid.StringFixed(2))
	assert.Equal(t, "120.00", inv.AmountDue.StringFixed(2))
	assert.Equal(t, model.InvoiceStatusSent, inv.Status)
	assert.Nil(t, inv.PaidAt)

	require.NoError(t, Apply(inv, dec("120.00"), now))
	assert.Equal(t, "0.00", inv.AmountDue.StringFixed(2))
	assert.Equal(t, model.InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.PaidAt)
	assert.Equal(t, now, *inv.PaidAt)
	assertDerived(t, inv)
}

func TestApply_RejectsOverpayment(t *testing.T) {
	inv := sentInvoice("50.00")
	err := Apply(inv, dec("50.01"), now)
	assert.ErrorIs(t, err, ErrOverpayment)
	assert.True(t, inv.AmountPaid.IsZero(), "invoice untouched on rejection")
}

func TestApply_RejectsNonPositive(t *testing.T) {
	inv := sentInvoice("50.00")
	assert.ErrorIs(t, Apply(inv, decimal.Zero, now), ErrNonPositiveAmount)
	assert.ErrorIs(t, Apply(inv, dec("-1"), now), ErrNonPositiveAmount)
}

func TestApply_RejectsClosedInvoice(t *testing.T) {
	inv := sentInvoice("50.00")
	inv.Status = model.InvoiceStatusCancelled
	assert.ErrorIs(t, Apply(inv, dec("10"), now), ErrInvoiceClosed)
}

func TestAmend_ReopensPaidInvoice(t *testing.T) {
	inv := sentInvoice("100.00")
	require.NoError(t, Apply(inv, dec("100.00"), now))
	require.Equal(t, model.InvoiceStatusPaid, inv.Status)

	require.NoError(t, Amend(inv, dec("100.00"), dec("60.00"), now))
	assert.Equal(t, model.InvoiceStatusSent, inv.Status)
	assert.Nil(t, inv.PaidAt)
	assert.Equal(t, "40.00", inv.AmountDue.StringFixed(2))
	assertDerived(t, inv)
}

func TestAmend_CompletesInvoice(t *testing.T) {
	inv := sentInvoice("100.00")
	require.NoError(t, Apply(inv, dec("60.00"), now))

	require.NoError(t, Amend(inv, dec("60.00"), dec("100.00"), now))
	assert.Equal(t, model.InvoiceStatusPaid, inv.Status)
	assertDerived(t, inv)
}

func TestVoid_DeleteSolePaymentRevertsToSent(t *testing.T) {
	inv := sentInvoice("220.00")
	require.NoError(t, Apply(inv, dec("220.00"), now))
	require.Equal(t, model.InvoiceStatusPaid, inv.Status)

	require.NoError(t, Void(inv, dec("220.00"), VoidDelete, now))
	assert.Equal(t, model.InvoiceStatusSent, inv.Status)
	assert.Equal(t, "220.00", inv.AmountDue.StringFixed(2))
	assert.True(t, inv.AmountPaid.IsZero())
	assert.Nil(t, inv.PaidAt)
}

func TestVoid_RefundForcesRefunded(t *testing.T) {
	inv := sentInvoice("80.00")
	require.NoError(t, Apply(inv, dec("80.00"), now))

	require.NoError(t, Void(inv, dec("80.00"), VoidRefund, now))
	assert.Equal(t, model.InvoiceStatusRefunded, inv.Status)
	assert.Equal(t, "80.00", inv.AmountDue.StringFixed(2))
	assertDerived(t, inv)
}

func TestVoid_CannotGoNegative(t *testing.T) {
	inv := sentInvoice("80.00")
	require.NoError(t, Apply(inv, dec("10.00"), now))
	assert.ErrorIs(t, Void(inv, dec("10.01"), VoidDelete, now), ErrNegativePaid)
}

func TestResync_MatchesSum(t *testing.T) {
	inv := sentInvoice("300.00")
	inv.AmountPaid = dec("999")

	require.NoError(t, Resync(inv, dec("300.00"), now))
	assert.Equal(t, model.InvoiceStatusPaid, inv.Status)
	assertDerived(t, inv)
}

func TestSequence_KeepsDerivation(t *testing.T) {
	inv := sentInvoice("500.00")
	steps := []func() error{
		func() error { return Apply(inv, dec("125.50"), now) },
		func() error { return Apply(inv, dec("74.50"), now) },
		func() error { return Amend(inv, dec("74.50"), dec("374.50"), now) },
		func() error { return Void(inv, dec("125.50"), VoidDelete, now) },
		func() error { return Apply(inv, dec("125.50"), now) },
	}
	for _, step := range steps {
		require.NoError(t, step())
		assertDerived(t, inv)
	}
	assert.Equal(t, model.InvoiceStatusPaid, inv.Status)
}
