package ordersync

import (
	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/shopspring/decimal"
)

// PricingReconciler computes the authoritative monetary values of an order.
// It never produces a discount line: discount is reported only, and the
// destination total may exceed the cart amount by exactly the discount.
type PricingReconciler struct{}

// NewPricingReconciler creates a PricingReconciler
func NewPricingReconciler() *PricingReconciler {
	return &PricingReconciler{}
}

// Reconcile returns the reconciled totals for order
func (r *PricingReconciler) Reconcile(order *domain.Order) domain.ReconciledTotals {
	itemsTotal := decimal.Zero
	lineDiscounts := decimal.Zero
	for _, item := range order.Items {
		itemsTotal = itemsTotal.Add(item.LineTotal())
		lineDiscounts = lineDiscounts.Add(item.Discount)
	}

	discount := order.Discount
	if discount.IsZero() {
		discount = lineDiscounts
	}

	return domain.ReconciledTotals{
		ItemsTotal:     itemsTotal,
		TargetSubtotal: order.Amount.Sub(order.Tax).Sub(order.Shipping),
		Discount:       discount,
		Tax:            order.Tax,
		Shipping:       order.Shipping,
		Total:          itemsTotal.Add(order.Tax).Add(order.Shipping),
		OrderAmount:    order.Amount,
	}
}
