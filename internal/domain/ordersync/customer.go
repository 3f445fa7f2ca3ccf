package ordersync

// ---------------------------------------------------------------------------
// Accounting Customer
// ---------------------------------------------------------------------------

// Customer is an accounting-system customer record
type Customer struct {
	// ID is the accounting system's internal numeric ID
	ID int
	// EntityID is the entity name shown in the accounting system
	EntityID string
	// IsPerson distinguishes a person record from a company record
	IsPerson bool
	// CompanyName is set on company records and on prefixed new customers
	CompanyName string
	FirstName   string
	LastName    string
	// Email is the primary lookup and dedup key
	Email string
	Phone string
	// ParentID is the parent company when this person is a sub-entity
	ParentID *int
	// DefaultAddress is the newline-joined default address text
	DefaultAddress string
	// AddressBook is only populated when requested or after create
	AddressBook AddressBook
}

// IsCompany returns true if the record represents an organization
func (c *Customer) IsCompany() bool {
	return !c.IsPerson
}

// AddressBook is an ordered list of customer addresses
type AddressBook struct {
	Entries []AddressEntry
}

// IsEmpty returns true if the book holds no entries
func (b AddressBook) IsEmpty() bool {
	return len(b.Entries) == 0
}

// DefaultBilling returns the default billing entry, or nil
func (b AddressBook) DefaultBilling() *AddressEntry {
	for i := range b.Entries {
		if b.Entries[i].DefaultBilling {
			return &b.Entries[i]
		}
	}
	return nil
}

// DefaultShipping returns the default shipping entry, or nil
func (b AddressBook) DefaultShipping() *AddressEntry {
	for i := range b.Entries {
		if b.Entries[i].DefaultShipping {
			return &b.Entries[i]
		}
	}
	return nil
}

// AddressEntry is one address-book entry
type AddressEntry struct {
	DefaultBilling  bool
	DefaultShipping bool
	Label           string
	Address         Address
}

// Address is a structured postal address as stored in the accounting system
type Address struct {
	Addressee string `json:"addressee" validate:"required"`
	Addr1     string `json:"addr1" validate:"required"`
	Addr2     string `json:"addr2,omitempty"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
	Phone     string `json:"addrPhone,omitempty"`
}

// CustomerPayload is the create request for a new accounting customer.
// The parent company is never part of the payload; it is passed to
// AccountingGateway.CreateCustomer as a separate parameter.
type CustomerPayload struct {
	IsPerson       bool
	CompanyName    string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	SubsidiaryID   int
	DefaultAddress string
	AddressBook    AddressBook
}
