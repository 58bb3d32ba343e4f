// Package calc computes invoice line and document amounts.
//
// Amounts are carried at full precision through every step and only rounded
// to currency precision by Rounded, which callers apply right before persisting.
// Rounded recomputes totals from the rounded parts so the stored identities hold exactly.
package calc

import (
	"fmt"

	"invoicegen/internal/model"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places money is persisted with.
const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// FieldError reports an input that cannot be computed.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Discount is an optional percentage or fixed reduction. The zero value applies no discount.
type Discount struct {
	Type  model.DiscountType
	Value decimal.Decimal
}

// amount resolves the discount against base. Fixed discounts larger than base are rejected.
func (d Discount) amount(base decimal.Decimal) (decimal.Decimal, error) {
	if d.Value.IsNegative() {
		return decimal.Zero, &FieldError{Field: "discount_value", Message: "must not be negative"}
	}
	switch d.Type {
	case model.DiscountNone:
		return decimal.Zero, nil
	case model.DiscountPercentage:
		if d.Value.GreaterThan(hundred) {
			return decimal.Zero, &FieldError{Field: "discount_value", Message: "percentage must be between 0 and 100"}
		}
		return base.Mul(d.Value).Div(hundred), nil
	case model.DiscountFixed:
		if d.Value.GreaterThan(base) {
			return decimal.Zero, &FieldError{Field: "discount_value", Message: "fixed discount exceeds the amount it applies to"}
		}
		return d.Value, nil
	}
	return decimal.Zero, &FieldError{Field: "discount_type", Message: fmt.Sprintf("unknown discount type %q", d.Type)}
}

type LineInput struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  Discount
	TaxRate   decimal.Decimal // percent, 10 means 10%
}

type Line struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableBase    decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// ComputeLine prices a single line: discount applies to quantity*unit_price and tax to what remains.
func ComputeLine(in LineInput) (Line, error) {
	if in.Quantity.IsNegative() {
		return Line{}, &FieldError{Field: "quantity", Message: "must not be negative"}
	}
	if in.UnitPrice.IsNegative() {
		return Line{}, &FieldError{Field: "unit_price", Message: "must not be negative"}
	}
	if in.TaxRate.IsNegative() {
		return Line{}, &FieldError{Field: "tax_rate", Message: "must not be negative"}
	}

	subtotal := in.Quantity.Mul(in.UnitPrice)
	discount, err := in.Discount.amount(subtotal)
	if err != nil {
		return Line{}, err
	}
	base := subtotal.Sub(discount)
	tax := base.Mul(in.TaxRate).Div(hundred)

	return Line{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxableBase:    base,
		TaxAmount:      tax,
		Total:          base.Add(tax),
	}, nil
}

// Rounded returns the line at currency precision with Total rebuilt from the rounded parts.
func (l Line) Rounded() Line {
	sub := l.Subtotal.Round(CurrencyPlaces)
	disc := l.DiscountAmount.Round(CurrencyPlaces)
	tax := l.TaxAmount.Round(CurrencyPlaces)
	return Line{
		Subtotal:       sub,
		DiscountAmount: disc,
		TaxableBase:    sub.Sub(disc),
		TaxAmount:      tax,
		Total:          sub.Sub(disc).Add(tax),
	}
}

type Document struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingAmount decimal.Decimal
	Total          decimal.Decimal
}

// ComputeDocument aggregates lines. Subtotal is the gross sum of line subtotals, tax is the sum
// of line taxes, and the document discount applies to the gross subtotal.
func ComputeDocument(lines []Line, discount Discount, shipping decimal.Decimal) (Document, error) {
	if shipping.IsNegative() {
		return Document{}, &FieldError{Field: "shipping_amount", Message: "must not be negative"}
	}

	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal)
		tax = tax.Add(l.TaxAmount)
	}

	disc, err := discount.amount(subtotal)
	if err != nil {
		return Document{}, err
	}

	return Document{
		Subtotal:       subtotal,
		DiscountAmount: disc,
		TaxAmount:      tax,
		ShippingAmount: shipping,
		Total:          subtotal.Sub(disc).Add(tax).Add(shipping),
	}, nil
}

// Rounded returns the document at currency precision with Total rebuilt from the rounded parts.
func (d Document) Rounded() Document {
	sub := d.Subtotal.Round(CurrencyPlaces)
	disc := d.DiscountAmount.Round(CurrencyPlaces)
	tax := d.TaxAmount.Round(CurrencyPlaces)
	ship := d.ShippingAmount.Round(CurrencyPlaces)
	return Document{
		Subtotal:       sub,
		DiscountAmount: disc,
		TaxAmount:      tax,
		ShippingAmount: ship,
		Total:          sub.Sub(disc).Add(tax).Add(ship),
	}
}
