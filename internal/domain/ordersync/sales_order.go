package ordersync

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Accounting Sales Order
// ---------------------------------------------------------------------------

// SalesOrderPayload is the create request for an accounting sales order
type SalesOrderPayload struct {
	// EntityID is the resolved customer's internal ID
	EntityID int `json:"entity" validate:"required,gt=0"`
	// SubsidiaryID and DepartmentID are configuration constants
	SubsidiaryID int `json:"subsidiary" validate:"required,gt=0"`
	DepartmentID int `json:"department,omitempty"`
	// ExternalID is the deterministic external reference key
	ExternalID string `json:"externalId" validate:"required"`
	// OtherRefNum carries the raw cart order ID for humans
	OtherRefNum string    `json:"otherRefNum,omitempty"`
	TranDate    time.Time `json:"tranDate"`
	Memo        string    `json:"memo,omitempty"`
	// ShipAddress is built from the first shipment block
	ShipAddress  Address         `json:"shippingAddress"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	TaxTotal     decimal.Decimal `json:"taxTotal"`
	// Items are built from effective prices; never a discount line
	Items []SalesOrderLine `json:"item" validate:"required,min=1,dive"`
	// CustomFields holds destination custom body fields such as the ship-immediately flag
	CustomFields map[string]any `json:"customFields,omitempty"`
}

// ItemsTotal returns the sum of all line amounts
func (p *SalesOrderPayload) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range p.Items {
		total = total.Add(line.Amount)
	}
	return total
}

// Total returns the order total the accounting system will compute
func (p *SalesOrderPayload) Total() decimal.Decimal {
	return p.ItemsTotal().Add(p.ShippingCost).Add(p.TaxTotal)
}

// SalesOrderLine is one mapped line item
type SalesOrderLine struct {
	// ItemID is the catalog key in the destination item master
	ItemID      string          `json:"item" validate:"required"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	// Rate is the effective price (unit + option)
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// SalesOrderRef is the normalized result of a create call
type SalesOrderRef struct {
	ID                int
	TransactionNumber string
}

// SalesOrder is a sales order read back from the accounting system
type SalesOrder struct {
	ID                int
	TransactionNumber string
	ExternalID        string
	EntityID          int
	Status            string
	Total             decimal.Decimal
	CreatedAt         time.Time
}

// ItemValidation is the result of checking a catalog key in the destination
type ItemValidation struct {
	Exists bool
	Usable bool
}
