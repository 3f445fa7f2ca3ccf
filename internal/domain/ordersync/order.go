package ordersync

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Cart Order
// ---------------------------------------------------------------------------

// OrderStatus is the cart's numeric order status code
type OrderStatus int

const (
	OrderStatusNew              OrderStatus = 1
	OrderStatusProcessing       OrderStatus = 2
	OrderStatusPartial          OrderStatus = 3
	OrderStatusShipped          OrderStatus = 4
	OrderStatusCancelled        OrderStatus = 5
	OrderStatusNotCompleted     OrderStatus = 6
	OrderStatusUnpaid           OrderStatus = 7
	OrderStatusBackordered      OrderStatus = 8
	OrderStatusPendingReview    OrderStatus = 9
	OrderStatusPartiallyShipped OrderStatus = 10
)

// IsSyncable returns false for statuses that must never produce a sales order
func (s OrderStatus) IsSyncable() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusNotCompleted:
		return false
	default:
		return true
	}
}

// Order is a placed storefront order. It is read-only input to the sync.
type Order struct {
	// OrderID is the external order identifier, used as the natural key
	OrderID string
	// OrderDate is when the order was placed
	OrderDate time.Time
	// Status is the cart status code at fetch time
	Status OrderStatus
	// Billing holds the billing contact and address
	Billing BillingContact
	// Items are the ordered line items
	Items []LineItem
	// Amount is the cart's authoritative post-discount order amount
	Amount decimal.Decimal
	// Discount is the order-level discount
	Discount decimal.Decimal
	// Tax is the total sales tax
	Tax decimal.Decimal
	// Shipping is the total shipping cost
	Shipping decimal.Decimal
	// PaymentMethod is the payment method name; may carry a drop-ship marker
	PaymentMethod string
	// Shipments are the shipment blocks, each with its own address
	Shipments []Shipment
	// CustomerComments is the free-text note left by the buyer
	CustomerComments string
}

// FirstShipment returns the first shipment block, or nil if there is none
func (o *Order) FirstShipment() *Shipment {
	if len(o.Shipments) == 0 {
		return nil
	}
	return &o.Shipments[0]
}

// IsDropShip reports whether the order's payment method, or the first
// shipment's method name, contains one of the given markers (case-insensitive).
func (o *Order) IsDropShip(markers []string) bool {
	candidates := []string{o.PaymentMethod}
	if s := o.FirstShipment(); s != nil {
		candidates = append(candidates, s.MethodName)
	}
	for _, marker := range markers {
		m := strings.ToLower(strings.TrimSpace(marker))
		if m == "" {
			continue
		}
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c), m) {
				return true
			}
		}
	}
	return false
}

// BillingContact holds the billing name, contact and address fields
type BillingContact struct {
	FirstName string
	LastName  string
	Company   string
	Email     string
	Phone     string
	Address   string
	Address2  string
	City      string
	State     string
	Zip       string
	Country   string
}

// FullName returns "first last" with absent parts omitted
func (b BillingContact) FullName() string {
	return JoinName(b.FirstName, b.LastName)
}

// Shipment is one shipment block of an order
type Shipment struct {
	FirstName  string
	LastName   string
	Company    string
	Address    string
	Address2   string
	City       string
	State      string
	Zip        string
	Country    string
	Phone      string
	Email      string
	MethodName string
	Cost       decimal.Decimal
}

// FullName returns "first last" with absent parts omitted
func (s Shipment) FullName() string {
	return JoinName(s.FirstName, s.LastName)
}

// HasStreetCityState reports whether the minimum address components are present
func (s Shipment) HasStreetCityState() bool {
	return strings.TrimSpace(s.Address) != "" &&
		strings.TrimSpace(s.City) != "" &&
		strings.TrimSpace(s.State) != ""
}

// LineItem is one ordered product line
type LineItem struct {
	// CatalogID is the cart catalog identifier
	CatalogID string
	// ItemID is the cart's SKU / per-line item identifier
	ItemID string
	// Description is the item name shown to the buyer
	Description string
	// Quantity ordered
	Quantity decimal.Decimal
	// UnitPrice is the base price per unit
	UnitPrice decimal.Decimal
	// OptionPrice is an additive per-unit price modifier not folded into UnitPrice
	OptionPrice decimal.Decimal
	// Discount is the per-line discount
	Discount decimal.Decimal
}

// EffectivePrice returns UnitPrice + OptionPrice
func (l LineItem) EffectivePrice() decimal.Decimal {
	return l.UnitPrice.Add(l.OptionPrice)
}

// LineTotal returns Quantity * EffectivePrice
func (l LineItem) LineTotal() decimal.Decimal {
	return l.Quantity.Mul(l.EffectivePrice())
}

// CatalogKeySource selects which line item field is the destination catalog key
type CatalogKeySource string

const (
	CatalogKeyCatalogID CatalogKeySource = "catalog_id"
	CatalogKeyItemID    CatalogKeySource = "item_id"
)

// IsValid returns true if the source is a known value
func (s CatalogKeySource) IsValid() bool {
	return s == CatalogKeyCatalogID || s == CatalogKeyItemID
}

// CatalogKey returns the line's catalog key per source, falling back to
// the other field when the preferred one is empty.
func (l LineItem) CatalogKey(source CatalogKeySource) string {
	primary, secondary := l.CatalogID, l.ItemID
	if source == CatalogKeyItemID {
		primary, secondary = l.ItemID, l.CatalogID
	}
	if k := strings.TrimSpace(primary); k != "" {
		return k
	}
	return strings.TrimSpace(secondary)
}

// JoinName joins non-empty name parts with a single space
func JoinName(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
