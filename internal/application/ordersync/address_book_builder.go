package ordersync

import (
	"strings"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
)

// CustomerInfo is the customer-level view of an order used to build addresses
type CustomerInfo struct {
	Billing domain.BillingContact
	// Shipment is the first shipment block, if any
	Shipment *domain.Shipment
	DropShip bool
}

// CustomerInfoFromOrder extracts the customer-level view of an order
func CustomerInfoFromOrder(order *domain.Order, dropShipMarkers []string) CustomerInfo {
	return CustomerInfo{
		Billing:  order.Billing,
		Shipment: order.FirstShipment(),
		DropShip: order.IsDropShip(dropShipMarkers),
	}
}

// AddressBookBuilder converts billing and shipment data into a default
// address string and a structured address book.
type AddressBookBuilder struct {
	defaultCountry string
}

// NewAddressBookBuilder creates an AddressBookBuilder; defaultCountry is used
// for address-book entries without a country.
func NewAddressBookBuilder(defaultCountry string) *AddressBookBuilder {
	if defaultCountry == "" {
		defaultCountry = DefaultCountry
	}
	return &AddressBookBuilder{defaultCountry: defaultCountry}
}

// BuildDefaultAddress returns the newline-joined default address. Lines are,
// in order: full name, company, street, "city, state zip", country, phone.
// Absent fields produce no line.
func (b *AddressBookBuilder) BuildDefaultAddress(info CustomerInfo) string {
	bill := info.Billing
	lines := nonEmpty(
		bill.FullName(),
		strings.TrimSpace(bill.Company),
		streetLine(bill.Address, bill.Address2),
		cityStateZip(bill.City, bill.State, bill.Zip),
		strings.TrimSpace(bill.Country),
		strings.TrimSpace(bill.Phone),
	)
	return strings.Join(lines, "\n")
}

// BuildAddressBook returns a billing entry (default billing) and a shipping
// entry from the first shipment (default shipping). Each is emitted only when
// street, city and state are all present.
func (b *AddressBookBuilder) BuildAddressBook(info CustomerInfo) domain.AddressBook {
	var book domain.AddressBook

	bill := info.Billing
	if hasStreetCityState(bill.Address, bill.City, bill.State) {
		addressee := strings.TrimSpace(bill.Company)
		if addressee == "" {
			addressee = bill.FullName()
		}
		book.Entries = append(book.Entries, domain.AddressEntry{
			DefaultBilling: true,
			Label:          "Billing",
			Address: domain.Address{
				Addressee: addressee,
				Addr1:     strings.TrimSpace(bill.Address),
				Addr2:     strings.TrimSpace(bill.Address2),
				City:      strings.TrimSpace(bill.City),
				State:     strings.TrimSpace(bill.State),
				Zip:       strings.TrimSpace(bill.Zip),
				Country:   b.country(bill.Country),
				Phone:     strings.TrimSpace(bill.Phone),
			},
		})
	}

	if ship := info.Shipment; ship != nil && ship.HasStreetCityState() {
		book.Entries = append(book.Entries, domain.AddressEntry{
			DefaultShipping: true,
			Label:           "Shipping",
			Address:         b.ShipmentAddress(*ship, info.DropShip),
		})
	}

	return book
}

// ShipmentAddress converts a shipment block into a structured address
func (b *AddressBookBuilder) ShipmentAddress(ship domain.Shipment, dropShip bool) domain.Address {
	return domain.Address{
		Addressee: ShipmentAddressee(ship, dropShip),
		Addr1:     strings.TrimSpace(ship.Address),
		Addr2:     strings.TrimSpace(ship.Address2),
		City:      strings.TrimSpace(ship.City),
		State:     strings.TrimSpace(ship.State),
		Zip:       strings.TrimSpace(ship.Zip),
		Country:   b.country(ship.Country),
		Phone:     strings.TrimSpace(ship.Phone),
	}
}

// ShipmentAddressee returns the shipment company, else the shipment name.
// Drop-ship orders always get the address itself as addressee so the carrier
// label carries no buyer name.
func ShipmentAddressee(ship domain.Shipment, dropShip bool) string {
	if dropShip {
		return strings.Join(nonEmpty(
			ship.Address,
			ship.Address2,
			ship.City,
			domain.JoinName(ship.State, ship.Zip),
		), ", ")
	}
	if company := strings.TrimSpace(ship.Company); company != "" {
		return company
	}
	return ship.FullName()
}

func (b *AddressBookBuilder) country(c string) string {
	if c = strings.TrimSpace(c); c != "" {
		return c
	}
	return b.defaultCountry
}

func streetLine(addr1, addr2 string) string {
	return strings.Join(nonEmpty(addr1, addr2), ", ")
}

// cityStateZip renders "city, state zip" with absent parts dropped
func cityStateZip(city, state, zip string) string {
	return strings.Join(nonEmpty(city, domain.JoinName(state, zip)), ", ")
}

func hasStreetCityState(street, city, state string) bool {
	return strings.TrimSpace(street) != "" &&
		strings.TrimSpace(city) != "" &&
		strings.TrimSpace(state) != ""
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
