package ordersync

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// ---------------------------------------------------------------------------
// LineItem Tests
// ---------------------------------------------------------------------------

func TestLineItem_EffectivePriceIncludesOptionPrice(t *testing.T) {
	item := LineItem{
		Quantity:    decimal.NewFromInt(3),
		UnitPrice:   decimal.RequireFromString("10.00"),
		OptionPrice: decimal.RequireFromString("2.50"),
	}

	assert.True(t, decimal.RequireFromString("12.50").Equal(item.EffectivePrice()))
	assert.True(t, decimal.RequireFromString("37.50").Equal(item.LineTotal()))
}

func TestLineItem_CatalogKey(t *testing.T) {
	tests := []struct {
		name     string
		item     LineItem
		source   CatalogKeySource
		expected string
	}{
		{"catalog id preferred", LineItem{CatalogID: "501", ItemID: "SKU-1"}, CatalogKeyCatalogID, "501"},
		{"item id preferred", LineItem{CatalogID: "501", ItemID: "SKU-1"}, CatalogKeyItemID, "SKU-1"},
		{"falls back to item id", LineItem{ItemID: "SKU-1"}, CatalogKeyCatalogID, "SKU-1"},
		{"falls back to catalog id", LineItem{CatalogID: " 501 "}, CatalogKeyItemID, "501"},
		{"both empty", LineItem{}, CatalogKeyCatalogID, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.item.CatalogKey(tt.source))
		})
	}
}

func TestCatalogKeySource_IsValid(t *testing.T) {
	assert.True(t, CatalogKeyCatalogID.IsValid())
	assert.True(t, CatalogKeyItemID.IsValid())
	assert.False(t, CatalogKeySource("sku").IsValid())
}

// ---------------------------------------------------------------------------
// Order Tests
// ---------------------------------------------------------------------------

func TestOrder_IsDropShip(t *testing.T) {
	markers := []string{"Drop Ship"}

	tests := []struct {
		name     string
		order    Order
		expected bool
	}{
		{"payment method marker", Order{PaymentMethod: "Net 30 - DROP SHIP"}, true},
		{"shipment method marker", Order{Shipments: []Shipment{{MethodName: "drop ship ground"}}}, true},
		{"no marker", Order{PaymentMethod: "Credit Card", Shipments: []Shipment{{MethodName: "UPS Ground"}}}, false},
		{"empty order", Order{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.order.IsDropShip(markers))
		})
	}
}

func TestOrder_IsDropShip_IgnoresBlankMarkers(t *testing.T) {
	order := Order{PaymentMethod: "Credit Card"}
	assert.False(t, order.IsDropShip([]string{"", "  "}))
}

func TestOrder_FirstShipment(t *testing.T) {
	assert.Nil(t, (&Order{}).FirstShipment())

	order := Order{Shipments: []Shipment{{City: "Austin"}, {City: "Dallas"}}}
	assert.Equal(t, "Austin", order.FirstShipment().City)
}

func TestOrderStatus_IsSyncable(t *testing.T) {
	assert.True(t, OrderStatusNew.IsSyncable())
	assert.True(t, OrderStatusShipped.IsSyncable())
	assert.False(t, OrderStatusCancelled.IsSyncable())
	assert.False(t, OrderStatusNotCompleted.IsSyncable())
}

func TestJoinName(t *testing.T) {
	assert.Equal(t, "Jane Doe", JoinName("Jane", "Doe"))
	assert.Equal(t, "Jane", JoinName(" Jane ", ""))
	assert.Equal(t, "", JoinName("", " "))
}
