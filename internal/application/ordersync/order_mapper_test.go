package ordersync

import (
	"strings"
	"testing"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapTestOrder(t *testing.T, order *domain.Order, opts Options) (*domain.SalesOrderPayload, error) {
	t.Helper()
	totals := NewPricingReconciler().Reconcile(order)
	return NewOrderMapper(nil, opts).Map(order, &domain.Customer{ID: 12, IsPerson: true}, totals)
}

func TestOrderMapper_Map(t *testing.T) {
	order := testOrder("1001")

	payload, err := mapTestOrder(t, order, testOptions())

	require.NoError(t, err)
	assert.Equal(t, 12, payload.EntityID)
	assert.Equal(t, 3, payload.SubsidiaryID)
	assert.Equal(t, 7, payload.DepartmentID)
	assert.Equal(t, "CART-1001", payload.ExternalID)
	assert.Equal(t, "1001", payload.OtherRefNum)
	assert.Equal(t, true, payload.CustomFields[DefaultShipImmediatelyField])

	require.Len(t, payload.Items, 2)
	assert.Equal(t, "501", payload.Items[0].ItemID)
	assert.True(t, dec("12.50").Equal(payload.Items[0].Rate), "rate is the effective price")
	assert.True(t, dec("25.00").Equal(payload.Items[0].Amount))
	assert.Equal(t, "502", payload.Items[1].ItemID)

	assert.Equal(t, "John Smith", payload.ShipAddress.Addressee)
	assert.Equal(t, "9 Elm St", payload.ShipAddress.Addr1)
	assert.Equal(t, "Dallas", payload.ShipAddress.City)
	assert.Equal(t, "US", payload.ShipAddress.Country)
	assert.True(t, dec("12.00").Equal(payload.ShippingCost))
	assert.True(t, dec("4.00").Equal(payload.TaxTotal))
}

func TestOrderMapper_NoDiscountLine(t *testing.T) {
	order := testOrder("1001")
	require.True(t, order.Discount.IsPositive())

	payload, err := mapTestOrder(t, order, testOptions())
	require.NoError(t, err)

	for _, line := range payload.Items {
		assert.False(t, line.Amount.IsNegative())
		assert.False(t, strings.Contains(strings.ToLower(line.ItemID), "discount"))
	}
	assert.Len(t, payload.Items, len(order.Items))
	assert.True(t, order.Discount.Equal(payload.Total().Sub(order.Amount)), "total exceeds amount by exactly the discount")
}

func TestOrderMapper_CatalogKeySource(t *testing.T) {
	opts := testOptions()
	opts.CatalogKeySource = domain.CatalogKeyItemID

	payload, err := mapTestOrder(t, testOrder("1001"), opts)

	require.NoError(t, err)
	assert.Equal(t, "SKU-501", payload.Items[0].ItemID)
}

func TestOrderMapper_DropShipAddressee(t *testing.T) {
	order := testOrder("1001")
	order.PaymentMethod = "Drop Ship - Vendor Account"
	order.Shipments[0].Company = "Buyer Inc"

	payload, err := mapTestOrder(t, order, testOptions())

	require.NoError(t, err)
	assert.Equal(t, "9 Elm St, Dallas, TX 75001", payload.ShipAddress.Addressee)
}

func TestOrderMapper_FallsBackToBillingAddress(t *testing.T) {
	order := testOrder("1001")
	order.Shipments = nil

	payload, err := mapTestOrder(t, order, testOptions())

	require.NoError(t, err)
	assert.Equal(t, "1 Main St", payload.ShipAddress.Addr1)
	assert.Equal(t, "John Smith", payload.ShipAddress.Addressee)
}

func TestOrderMapper_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *domain.Order)
		field  string
	}{
		{"no line items", func(o *domain.Order) { o.Items = nil }, "item"},
		{"missing catalog key", func(o *domain.Order) { o.Items[0].CatalogID, o.Items[0].ItemID = "", "" }, "item[0].item"},
		{"zero quantity", func(o *domain.Order) { o.Items[1].Quantity = dec("0") }, "item[1].quantity"},
		{"missing ship city", func(o *domain.Order) { o.Shipments[0].City = "" }, "shippingAddress.city"},
		{"missing ship street", func(o *domain.Order) { o.Shipments[0].Address = "" }, "shippingAddress.addr1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := testOrder("1001")
			tt.mutate(order)

			payload, err := mapTestOrder(t, order, testOptions())

			assert.Nil(t, payload)
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, tt.field)
		})
	}
}

func TestOrderMapper_MissingEntity(t *testing.T) {
	order := testOrder("1001")
	totals := NewPricingReconciler().Reconcile(order)

	_, err := NewOrderMapper(nil, testOptions()).Map(order, nil, totals)
	assert.Equal(t, domain.ErrorKindValidation, domain.KindOf(err))

	_, err = NewOrderMapper(nil, testOptions()).Map(order, &domain.Customer{}, totals)
	assert.Equal(t, domain.ErrorKindValidation, domain.KindOf(err))
}
