package ordersync

import (
	"time"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
)

// Options holds the destination constants and policy knobs of the Core
type Options struct {
	// ExternalRefPrefix is prepended to the cart order ID to form the external reference key
	ExternalRefPrefix string
	// SubsidiaryID and DepartmentID are stamped on every sales order
	SubsidiaryID int
	DepartmentID int
	// ShipImmediatelyField is the custom body field set to true on every sales order
	ShipImmediatelyField string
	// CustomerNameSeparator joins the order ID prefix and the new customer's name
	CustomerNameSeparator string
	// DefaultCountry is the ISO code used when an address has no country
	DefaultCountry string
	// DropShipMarkers are matched against the payment method to detect drop-ship orders
	DropShipMarkers []string
	// CatalogKeySource selects the line item field used as the destination item key
	CatalogKeySource domain.CatalogKeySource
	// ValidateItems checks every catalog key with the accounting system before create
	ValidateItems bool
	// MaxBatchSize is the hard cap on orders per bulk call
	MaxBatchSize int
	// BulkDelay is the pause between orders in a bulk run
	BulkDelay time.Duration
}

// Default option values
const (
	DefaultCustomerNameSeparator = " - "
	DefaultCountry               = "US"
	DefaultMaxBatchSize          = 100
	DefaultBulkDelay             = 500 * time.Millisecond
	DefaultShipImmediatelyField  = "custbody_ship_immediately"
)

// DefaultOptions returns options with every default applied
func DefaultOptions() Options {
	o := Options{}
	o.applyDefaults()
	return o
}

func (o *Options) applyDefaults() {
	if o.ExternalRefPrefix == "" {
		o.ExternalRefPrefix = domain.DefaultExternalRefPrefix
	}
	if o.ShipImmediatelyField == "" {
		o.ShipImmediatelyField = DefaultShipImmediatelyField
	}
	if o.CustomerNameSeparator == "" {
		o.CustomerNameSeparator = DefaultCustomerNameSeparator
	}
	if o.DefaultCountry == "" {
		o.DefaultCountry = DefaultCountry
	}
	if !o.CatalogKeySource.IsValid() {
		o.CatalogKeySource = domain.CatalogKeyCatalogID
	}
	if o.MaxBatchSize <= 0 {
		o.MaxBatchSize = DefaultMaxBatchSize
	}
	if o.BulkDelay < 0 {
		o.BulkDelay = 0
	}
}

// ExternalRef returns the external reference key for an order ID
func (o Options) ExternalRef(orderID string) string {
	return domain.ExternalReferenceKey(o.ExternalRefPrefix, orderID)
}
