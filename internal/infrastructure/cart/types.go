package cart

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/ordersync/internal/domain/ordersync"
)

// flexID accepts a JSON number or string and keeps its text form
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// Order is the cart API order document
type Order struct {
	OrderID              flexID          `json:"OrderID"`
	InvoiceNumber        flexID          `json:"InvoiceNumber"`
	OrderDate            string          `json:"OrderDate"`
	OrderStatusID        int             `json:"OrderStatusID"`
	BillingFirstName     string          `json:"BillingFirstName"`
	BillingLastName      string          `json:"BillingLastName"`
	BillingCompany       string          `json:"BillingCompany"`
	BillingAddress       string          `json:"BillingAddress"`
	BillingAddress2      string          `json:"BillingAddress2"`
	BillingCity          string          `json:"BillingCity"`
	BillingState         string          `json:"BillingState"`
	BillingZipCode       string          `json:"BillingZipCode"`
	BillingCountry       string          `json:"BillingCountry"`
	BillingPhoneNumber   string          `json:"BillingPhoneNumber"`
	BillingEmail         string          `json:"BillingEmail"`
	BillingPaymentMethod string          `json:"BillingPaymentMethod"`
	OrderAmount          decimal.Decimal `json:"OrderAmount"`
	OrderDiscount        decimal.Decimal `json:"OrderDiscount"`
	SalesTax             decimal.Decimal `json:"SalesTax"`
	SalesTax2            decimal.Decimal `json:"SalesTax2"`
	SalesTax3            decimal.Decimal `json:"SalesTax3"`
	CustomerComments     string          `json:"CustomerComments"`
	ShipmentList         []Shipment      `json:"ShipmentList"`
	OrderItemList        []OrderItem     `json:"OrderItemList"`
}

// Shipment is one entry of an order's ShipmentList
type Shipment struct {
	ShipmentID         flexID          `json:"ShipmentID"`
	ShipmentFirstName  string          `json:"ShipmentFirstName"`
	ShipmentLastName   string          `json:"ShipmentLastName"`
	ShipmentCompany    string          `json:"ShipmentCompany"`
	ShipmentAddress    string          `json:"ShipmentAddress"`
	ShipmentAddress2   string          `json:"ShipmentAddress2"`
	ShipmentCity       string          `json:"ShipmentCity"`
	ShipmentState      string          `json:"ShipmentState"`
	ShipmentZipCode    string          `json:"ShipmentZipCode"`
	ShipmentCountry    string          `json:"ShipmentCountry"`
	ShipmentPhone      string          `json:"ShipmentPhone"`
	ShipmentEmail      string          `json:"ShipmentEmail"`
	ShipmentMethodName string          `json:"ShipmentMethodName"`
	ShipmentCost       decimal.Decimal `json:"ShipmentCost"`
}

// OrderItem is one entry of an order's OrderItemList
type OrderItem struct {
	CatalogID       flexID          `json:"CatalogID"`
	ItemID          flexID          `json:"ItemID"`
	ItemDescription string          `json:"ItemDescription"`
	ItemQuantity    decimal.Decimal `json:"ItemQuantity"`
	ItemUnitPrice   decimal.Decimal `json:"ItemUnitPrice"`
	ItemOptionPrice decimal.Decimal `json:"ItemOptionPrice"`
	ItemDiscount    decimal.Decimal `json:"ItemDiscount"`
}

// apiMessage is the cart API's error envelope entry
type apiMessage struct {
	Key     string `json:"Key"`
	Message string `json:"Message"`
}

var orderDateLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006 3:04:05 PM",
	"2006-01-02 15:04:05",
}

func parseOrderDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ToDomain converts the API document to the domain order
func (o *Order) ToDomain() ordersync.Order {
	order := ordersync.Order{
		OrderID:   string(o.OrderID),
		OrderDate: parseOrderDate(o.OrderDate),
		Status:    ordersync.OrderStatus(o.OrderStatusID),
		Billing: ordersync.BillingContact{
			FirstName: strings.TrimSpace(o.BillingFirstName),
			LastName:  strings.TrimSpace(o.BillingLastName),
			Company:   strings.TrimSpace(o.BillingCompany),
			Email:     strings.TrimSpace(o.BillingEmail),
			Phone:     strings.TrimSpace(o.BillingPhoneNumber),
			Address:   strings.TrimSpace(o.BillingAddress),
			Address2:  strings.TrimSpace(o.BillingAddress2),
			City:      strings.TrimSpace(o.BillingCity),
			State:     strings.TrimSpace(o.BillingState),
			Zip:       strings.TrimSpace(o.BillingZipCode),
			Country:   strings.TrimSpace(o.BillingCountry),
		},
		Amount:           o.OrderAmount,
		Discount:         o.OrderDiscount,
		Tax:              o.SalesTax.Add(o.SalesTax2).Add(o.SalesTax3),
		PaymentMethod:    o.BillingPaymentMethod,
		CustomerComments: o.CustomerComments,
		Shipping:         decimal.Zero,
	}

	for _, s := range o.ShipmentList {
		order.Shipping = order.Shipping.Add(s.ShipmentCost)
		order.Shipments = append(order.Shipments, ordersync.Shipment{
			FirstName:  strings.TrimSpace(s.ShipmentFirstName),
			LastName:   strings.TrimSpace(s.ShipmentLastName),
			Company:    strings.TrimSpace(s.ShipmentCompany),
			Address:    strings.TrimSpace(s.ShipmentAddress),
			Address2:   strings.TrimSpace(s.ShipmentAddress2),
			City:       strings.TrimSpace(s.ShipmentCity),
			State:      strings.TrimSpace(s.ShipmentState),
			Zip:        strings.TrimSpace(s.ShipmentZipCode),
			Country:    strings.TrimSpace(s.ShipmentCountry),
			Phone:      strings.TrimSpace(s.ShipmentPhone),
			Email:      strings.TrimSpace(s.ShipmentEmail),
			MethodName: s.ShipmentMethodName,
			Cost:       s.ShipmentCost,
		})
	}

	for _, it := range o.OrderItemList {
		order.Items = append(order.Items, ordersync.LineItem{
			CatalogID:   string(it.CatalogID),
			ItemID:      string(it.ItemID),
			Description: it.ItemDescription,
			Quantity:    it.ItemQuantity,
			UnitPrice:   it.ItemUnitPrice,
			OptionPrice: it.ItemOptionPrice,
			Discount:    it.ItemDiscount,
		})
	}
	return order
}
