package calc

import (
	"errors"
	"testing"

	"invoicegen/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeLine_NoDiscount(t *testing.T) {
	line, err := ComputeLine(LineInput{Quantity: dec("2"), UnitPrice: dec("100.00"), TaxRate: dec("10")})
	require.NoError(t, err)

	assert.True(t, line.Subtotal.Equal(dec("200")))
	assert.True(t, line.DiscountAmount.IsZero())
	assert.True(t, line.TaxAmount.Equal(dec("20")))
	assert.True(t, line.Total.Equal(dec("220")))
}

func TestComputeLine_PercentageDiscount(t *testing.T) {
	line, err := ComputeLine(LineInput{
		Quantity:  dec("3"),
		UnitPrice: dec("50"),
		Discount:  Discount{Type: model.DiscountPercentage, Value: dec("10")},
		TaxRate:   dec("20"),
	})
	require.NoError(t, err)

	assert.True(t, line.Subtotal.Equal(dec("150")))
	assert.True(t, line.DiscountAmount.Equal(dec("15")))
	assert.True(t, line.TaxableBase.Equal(dec("135")))
	assert.True(t, line.TaxAmount.Equal(dec("27")))
	assert.True(t, line.Total.Equal(dec("162")))
}

func TestComputeLine_FixedDiscount(t *testing.T) {
	line, err := ComputeLine(LineInput{
		Quantity:  dec("1"),
		UnitPrice: dec("80"),
		Discount:  Discount{Type: model.DiscountFixed, Value: dec("30")},
		TaxRate:   dec("0"),
	})
	require.NoError(t, err)
	assert.True(t, line.Total.Equal(dec("50")))
}

func TestComputeLine_FixedDiscountAboveSubtotalRejected(t *testing.T) {
	_, err := ComputeLine(LineInput{
		Quantity:  dec("1"),
		UnitPrice: dec("10"),
		Discount:  Discount{Type: model.DiscountFixed, Value: dec("10.01")},
	})
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "discount_value", fe.Field)
}

func TestComputeLine_RejectsNegativeInputs(t *testing.T) {
	cases := map[string]LineInput{
		"quantity":   {Quantity: dec("-1"), UnitPrice: dec("1")},
		"unit_price": {Quantity: dec("1"), UnitPrice: dec("-1")},
		"tax_rate":   {Quantity: dec("1"), UnitPrice: dec("1"), TaxRate: dec("-5")},
	}
	for field, in := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := ComputeLine(in)
			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, field, fe.Field)
		})
	}
}

func TestComputeLine_PercentageOver100Rejected(t *testing.T) {
	_, err := ComputeLine(LineInput{
		Quantity:  dec("1"),
		UnitPrice: dec("10"),
		Discount:  Discount{Type: model.DiscountPercentage, Value: dec("101")},
	})
	assert.Error(t, err)
}

func TestComputeDocument_TotalIdentity(t *testing.T) {
	inputs := []LineInput{
		{Quantity: dec("3"), UnitPrice: dec("19.99"), TaxRate: dec("7.25")},
		{Quantity: dec("1.5"), UnitPrice: dec("33.33"), TaxRate: dec("19"), Discount: Discount{Type: model.DiscountPercentage, Value: dec("12.5")}},
		{Quantity: dec("7"), UnitPrice: dec("0.99"), TaxRate: dec("0"), Discount: Discount{Type: model.DiscountFixed, Value: dec("1.10")}},
	}
	lines := make([]Line, 0, len(inputs))
	for _, in := range inputs {
		l, err := ComputeLine(in)
		require.NoError(t, err)
		lines = append(lines, l)
	}

	for _, discount := range []Discount{
		{},
		{Type: model.DiscountPercentage, Value: dec("5")},
		{Type: model.DiscountFixed, Value: dec("3.333")},
	} {
		doc, err := ComputeDocument(lines, discount, dec("4.95"))
		require.NoError(t, err)

		r := doc.Rounded()
		want := r.Subtotal.Sub(r.DiscountAmount).Add(r.TaxAmount).Add(r.ShippingAmount)
		assert.True(t, r.Total.Equal(want), "total %s != %s", r.Total, want)
		assert.True(t, r.Total.Equal(r.Total.Round(2)))
	}
}

func TestComputeDocument_Example(t *testing.T) {
	line, err := ComputeLine(LineInput{Quantity: dec("2"), UnitPrice: dec("100.00"), TaxRate: dec("10")})
	require.NoError(t, err)

	doc, err := ComputeDocument([]Line{line}, Discount{}, decimal.Zero)
	require.NoError(t, err)
	r := doc.Rounded()

	assert.Equal(t, "200.00", r.Subtotal.StringFixed(2))
	assert.Equal(t, "20.00", r.TaxAmount.StringFixed(2))
	assert.Equal(t, "220.00", r.Total.StringFixed(2))
}

func TestComputeDocument_DiscountOnGrossSubtotal(t *testing.T) {
	a, _ := ComputeLine(LineInput{Quantity: dec("1"), UnitPrice: dec("100"), TaxRate: dec("10"), Discount: Discount{Type: model.DiscountFixed, Value: dec("20")}})
	b, _ := ComputeLine(LineInput{Quantity: dec("1"), UnitPrice: dec("100"), TaxRate: dec("0")})

	doc, err := ComputeDocument([]Line{a, b}, Discount{Type: model.DiscountPercentage, Value: dec("10")}, decimal.Zero)
	require.NoError(t, err)

	assert.True(t, doc.Subtotal.Equal(dec("200")))
	assert.True(t, doc.DiscountAmount.Equal(dec("20")))
	assert.True(t, doc.TaxAmount.Equal(dec("8")))
	assert.True(t, doc.Total.Equal(dec("188")))
}

func TestComputeDocument_RejectsNegativeShipping(t *testing.T) {
	_, err := ComputeDocument(nil, Discount{}, dec("-1"))
	assert.Error(t, err)
}

func TestLineRounded_KeepsIdentity(t *testing.T) {
	l, err := ComputeLine(LineInput{Quantity: dec("0.333"), UnitPrice: dec("10.01"), TaxRate: dec("8.875"), Discount: Discount{Type: model.DiscountPercentage, Value: dec("3")}})
	require.NoError(t, err)

	r := l.Rounded()
	assert.True(t, r.Total.Equal(r.Subtotal.Sub(r.DiscountAmount).Add(r.TaxAmount)))
}
