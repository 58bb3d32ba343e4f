// Package reconcile keeps an invoice's payment aggregates in step with its payments.
//
// Every operation funnels through settle, which derives amount_due and the
// paid/unpaid status from the total and the new amount_paid.
package reconcile

import (
	"errors"
	"fmt"
	"time"

	"invoicegen/internal/model"

	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveAmount = errors.New("payment amount must be greater than zero")
	ErrOverpayment       = errors.New("payment exceeds the amount due")
	ErrNegativePaid      = errors.New("amount paid cannot drop below zero")
	ErrInvoiceClosed     = errors.New("invoice is closed for payments")
)

type VoidKind string

const (
	VoidDelete VoidKind = "delete"
	VoidRefund VoidKind = "refund"
)

// Apply records a new payment of amount against inv.
func Apply(inv *model.Invoice, amount decimal.Decimal, at time.Time) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if inv.Status.Closed() {
		return fmt.Errorf("%w: status %s", ErrInvoiceClosed, inv.Status)
	}
	return settle(inv, inv.AmountPaid.Add(amount), at)
}

// Amend replaces a payment's contribution of oldAmount with newAmount.
func Amend(inv *model.Invoice, oldAmount, newAmount decimal.Decimal, at time.Time) error {
	if newAmount.IsNegative() {
		return ErrNonPositiveAmount
	}
	return settle(inv, inv.AmountPaid.Add(newAmount.Sub(oldAmount)), at)
}

// Void removes a payment's contribution. A refund forces the invoice to REFUNDED.
func Void(inv *model.Invoice, amount decimal.Decimal, kind VoidKind, at time.Time) error {
	if err := settle(inv, inv.AmountPaid.Sub(amount), at); err != nil {
		return err
	}
	switch kind {
	case VoidRefund:
		inv.Status = model.InvoiceStatusRefunded
	case VoidDelete:
	default:
		return fmt.Errorf("unknown void kind %q", kind)
	}
	return nil
}

// Resync sets amount_paid to the sum of the invoice's counted payments.
func Resync(inv *model.Invoice, activeSum decimal.Decimal, at time.Time) error {
	return settle(inv, activeSum, at)
}

func settle(inv *model.Invoice, paid decimal.Decimal, at time.Time) error {
	if paid.IsNegative() {
		return ErrNegativePaid
	}
	due := inv.TotalAmount.Sub(paid)
	if due.IsNegative() {
		return fmt.Errorf("%w: due %s, paid would be %s", ErrOverpayment, inv.TotalAmount.Sub(inv.AmountPaid).StringFixed(2), paid.StringFixed(2))
	}

	inv.AmountPaid = paid
	inv.AmountDue = due

	switch inv.Status {
	case model.InvoiceStatusCancelled, model.InvoiceStatusRefunded:
		// amounts only
	case model.InvoiceStatusPaid:
		if due.IsPositive() {
			inv.Status = model.InvoiceStatusSent
			inv.PaidAt = nil
		}
	case model.InvoiceStatusDraft, model.InvoiceStatusSent, model.InvoiceStatusViewed, model.InvoiceStatusOverdue:
		if !due.IsPositive() && paid.IsPositive() {
			inv.Status = model.InvoiceStatusPaid
			paidAt := at
			inv.PaidAt = &paidAt
		}
	}
	return nil
}
