package ordersync

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/go-playground/validator/v10"
)

// OrderMapper assembles the sales order payload for an order
type OrderMapper struct {
	addresses *AddressBookBuilder
	opts      Options
	validate  *validator.Validate
}

// NewOrderMapper creates an OrderMapper
func NewOrderMapper(addresses *AddressBookBuilder, opts Options) *OrderMapper {
	opts.applyDefaults()
	if addresses == nil {
		addresses = NewAddressBookBuilder(opts.DefaultCountry)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so errors match the destination schema
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &OrderMapper{
		addresses: addresses,
		opts:      opts,
		validate:  v,
	}
}

// Map builds the payload. Every line is priced at its effective price and no
// discount or adjustment line is ever added. A *ValidationError is returned
// for a missing entity, zero lines or an incomplete shipping address.
func (m *OrderMapper) Map(
	order *domain.Order,
	customer *domain.Customer,
	totals domain.ReconciledTotals,
) (*domain.SalesOrderPayload, error) {
	if order == nil {
		return nil, &domain.ValidationError{Fields: []string{"order"}, Message: "order is required"}
	}
	if customer == nil || customer.ID <= 0 {
		return nil, &domain.ValidationError{Fields: []string{"entity"}, Message: "resolved customer is required"}
	}
	if len(order.Items) == 0 {
		return nil, &domain.ValidationError{Fields: []string{"item"}, Message: "order has no line items"}
	}

	lines, err := m.mapLines(order.Items)
	if err != nil {
		return nil, err
	}

	payload := &domain.SalesOrderPayload{
		EntityID:     customer.ID,
		SubsidiaryID: m.opts.SubsidiaryID,
		DepartmentID: m.opts.DepartmentID,
		ExternalID:   m.opts.ExternalRef(order.OrderID),
		OtherRefNum:  order.OrderID,
		TranDate:     order.OrderDate,
		Memo:         strings.TrimSpace(order.CustomerComments),
		ShipAddress:  m.shippingAddress(order),
		ShippingCost: totals.Shipping,
		TaxTotal:     totals.Tax,
		Items:        lines,
		CustomFields: map[string]any{
			m.opts.ShipImmediatelyField: true,
		},
	}

	if err := m.validate.Struct(payload); err != nil {
		return nil, toValidationError(err)
	}

	return payload, nil
}

func (m *OrderMapper) mapLines(items []domain.LineItem) ([]domain.SalesOrderLine, error) {
	lines := make([]domain.SalesOrderLine, 0, len(items))
	var invalid []string

	for i, item := range items {
		key := item.CatalogKey(m.opts.CatalogKeySource)
		if key == "" {
			invalid = append(invalid, fmt.Sprintf("item[%d].item", i))
		}
		if !item.Quantity.IsPositive() {
			invalid = append(invalid, fmt.Sprintf("item[%d].quantity", i))
		}

		rate := item.EffectivePrice()
		lines = append(lines, domain.SalesOrderLine{
			ItemID:      key,
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			Rate:        rate,
			Amount:      item.Quantity.Mul(rate),
		})
	}

	if len(invalid) > 0 {
		return nil, &domain.ValidationError{Fields: invalid, Message: "line items incomplete"}
	}
	return lines, nil
}

// shippingAddress uses the first shipment block, or the billing address when
// the order has no shipment.
func (m *OrderMapper) shippingAddress(order *domain.Order) domain.Address {
	if ship := order.FirstShipment(); ship != nil {
		return m.addresses.ShipmentAddress(*ship, order.IsDropShip(m.opts.DropShipMarkers))
	}

	bill := order.Billing
	return m.addresses.ShipmentAddress(domain.Shipment{
		FirstName: bill.FirstName,
		LastName:  bill.LastName,
		Company:   bill.Company,
		Address:   bill.Address,
		Address2:  bill.Address2,
		City:      bill.City,
		State:     bill.State,
		Zip:       bill.Zip,
		Country:   bill.Country,
		Phone:     bill.Phone,
	}, order.IsDropShip(m.opts.DropShipMarkers))
}

func toValidationError(err error) *domain.ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &domain.ValidationError{Message: err.Error()}
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		ns := fe.Namespace()
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		fields = append(fields, ns)
	}
	return &domain.ValidationError{Fields: fields, Message: "sales order payload invalid"}
}
