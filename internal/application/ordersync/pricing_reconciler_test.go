package ordersync

import (
	"testing"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPricingReconciler_Reconcile(t *testing.T) {
	order := &domain.Order{
		Items: []domain.LineItem{
			{Quantity: dec("2"), UnitPrice: dec("10.00"), OptionPrice: dec("2.50")},
			{Quantity: dec("1"), UnitPrice: dec("40.00")},
		},
		Amount:   dec("76.00"),
		Discount: dec("5.00"),
		Tax:      dec("4.00"),
		Shipping: dec("12.00"),
	}

	totals := NewPricingReconciler().Reconcile(order)

	assert.True(t, dec("65.00").Equal(totals.ItemsTotal), "items total uses unit + option price")
	assert.True(t, dec("60.00").Equal(totals.TargetSubtotal), "target subtotal = amount - tax - shipping")
	assert.True(t, dec("5.00").Equal(totals.Discount))
	assert.True(t, dec("81.00").Equal(totals.Total))
	assert.True(t, dec("5.00").Equal(totals.Discrepancy()))
	assert.True(t, dec("5.00").Equal(totals.Total.Sub(totals.OrderAmount)), "total exceeds amount by the discount")
}

func TestPricingReconciler_ItemsTotalInvariant(t *testing.T) {
	cases := [][]domain.LineItem{
		{},
		{{Quantity: dec("0"), UnitPrice: dec("9.99")}},
		{{Quantity: dec("3"), UnitPrice: dec("0.333"), OptionPrice: dec("0.667")}},
		{
			{Quantity: dec("1"), UnitPrice: dec("19.99"), OptionPrice: dec("5.01")},
			{Quantity: dec("4"), UnitPrice: dec("2.25")},
			{Quantity: dec("10"), UnitPrice: dec("0"), OptionPrice: dec("1.10")},
		},
	}

	r := NewPricingReconciler()
	for _, items := range cases {
		order := &domain.Order{Items: items, Amount: dec("100"), Tax: dec("7.25"), Shipping: dec("3.50")}

		expected := decimal.Zero
		for _, item := range items {
			expected = expected.Add(item.Quantity.Mul(item.UnitPrice.Add(item.OptionPrice)))
		}

		totals := r.Reconcile(order)
		assert.True(t, expected.Equal(totals.ItemsTotal))
		assert.True(t, dec("89.25").Equal(totals.TargetSubtotal))
	}
}

func TestPricingReconciler_NoItems(t *testing.T) {
	totals := NewPricingReconciler().Reconcile(&domain.Order{Amount: dec("10")})
	assert.True(t, totals.ItemsTotal.IsZero())
}

func TestPricingReconciler_FallsBackToLineDiscounts(t *testing.T) {
	order := &domain.Order{
		Items: []domain.LineItem{
			{Quantity: dec("1"), UnitPrice: dec("10"), Discount: dec("1.50")},
			{Quantity: dec("1"), UnitPrice: dec("10"), Discount: dec("0.50")},
		},
	}

	totals := NewPricingReconciler().Reconcile(order)
	assert.True(t, dec("2.00").Equal(totals.Discount))
}
