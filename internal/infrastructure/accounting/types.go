package accounting

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/ordersync/internal/domain/ordersync"
)

// ref is a record reference: {"id": "123"} on write, {"id": "123", "refName": "..."} on read
type ref struct {
	ID      string `json:"id"`
	RefName string `json:"refName,omitempty"`
}

func refTo(id int) *ref {
	if id <= 0 {
		return nil
	}
	return &ref{ID: strconv.Itoa(id)}
}

// UnmarshalJSON accepts a bare string as well as the object form
func (r *ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	type plain ref
	return json.Unmarshal(data, (*plain)(r))
}

func (r *ref) intID() int {
	if r == nil {
		return 0
	}
	n, _ := strconv.Atoi(strings.TrimSpace(r.ID))
	return n
}

// ---------------------------------------------------------------------------
// Customer
// ---------------------------------------------------------------------------

type addressRecord struct {
	Addressee string `json:"addressee,omitempty"`
	Addr1     string `json:"addr1,omitempty"`
	Addr2     string `json:"addr2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   *ref   `json:"country,omitempty"`
	AddrPhone string `json:"addrPhone,omitempty"`
}

func addressFromDomain(a ordersync.Address) *addressRecord {
	rec := &addressRecord{
		Addressee: a.Addressee,
		Addr1:     a.Addr1,
		Addr2:     a.Addr2,
		City:      a.City,
		State:     a.State,
		Zip:       a.Zip,
		AddrPhone: a.Phone,
	}
	if a.Country != "" {
		rec.Country = &ref{ID: a.Country}
	}
	return rec
}

func (a *addressRecord) toDomain() ordersync.Address {
	if a == nil {
		return ordersync.Address{}
	}
	addr := ordersync.Address{
		Addressee: a.Addressee,
		Addr1:     a.Addr1,
		Addr2:     a.Addr2,
		City:      a.City,
		State:     a.State,
		Zip:       a.Zip,
		Phone:     a.AddrPhone,
	}
	if a.Country != nil {
		addr.Country = a.Country.ID
	}
	return addr
}

type addressBookItem struct {
	DefaultBilling  bool           `json:"defaultBilling"`
	DefaultShipping bool           `json:"defaultShipping"`
	Label           string         `json:"label,omitempty"`
	Address         *addressRecord `json:"addressBookAddress"`
}

type addressBookList struct {
	Items []addressBookItem `json:"items"`
}

type customerRecord struct {
	ID             string           `json:"id,omitempty"`
	EntityID       string           `json:"entityId,omitempty"`
	IsPerson       bool             `json:"isPerson"`
	CompanyName    string           `json:"companyName,omitempty"`
	FirstName      string           `json:"firstName,omitempty"`
	LastName       string           `json:"lastName,omitempty"`
	Email          string           `json:"email,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	Subsidiary     *ref             `json:"subsidiary,omitempty"`
	Parent         *ref             `json:"parent,omitempty"`
	DefaultAddress string           `json:"defaultAddress,omitempty"`
	AddressBook    *addressBookList `json:"addressBook,omitempty"`
}

func customerFromPayload(p *ordersync.CustomerPayload) *customerRecord {
	rec := &customerRecord{
		IsPerson:       p.IsPerson,
		CompanyName:    p.CompanyName,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Email:          p.Email,
		Phone:          p.Phone,
		Subsidiary:     refTo(p.SubsidiaryID),
		DefaultAddress: p.DefaultAddress,
	}
	if !p.AddressBook.IsEmpty() {
		rec.AddressBook = &addressBookList{}
		for _, e := range p.AddressBook.Entries {
			rec.AddressBook.Items = append(rec.AddressBook.Items, addressBookItem{
				DefaultBilling:  e.DefaultBilling,
				DefaultShipping: e.DefaultShipping,
				Label:           e.Label,
				Address:         addressFromDomain(e.Address),
			})
		}
	}
	return rec
}

func (c *customerRecord) toDomain() *ordersync.Customer {
	cust := &ordersync.Customer{
		ID:             atoi(c.ID),
		EntityID:       c.EntityID,
		IsPerson:       c.IsPerson,
		CompanyName:    c.CompanyName,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		Phone:          c.Phone,
		DefaultAddress: c.DefaultAddress,
	}
	if id := c.Parent.intID(); id > 0 {
		cust.ParentID = &id
	}
	if c.AddressBook != nil {
		for _, it := range c.AddressBook.Items {
			cust.AddressBook.Entries = append(cust.AddressBook.Entries, ordersync.AddressEntry{
				DefaultBilling:  it.DefaultBilling,
				DefaultShipping: it.DefaultShipping,
				Label:           it.Label,
				Address:         it.Address.toDomain(),
			})
		}
	}
	return cust
}

// ---------------------------------------------------------------------------
// Sales Order
// ---------------------------------------------------------------------------

type salesOrderLine struct {
	Item        *ref        `json:"item"`
	Description string      `json:"description,omitempty"`
	Quantity    json.Number `json:"quantity"`
	Rate        json.Number `json:"rate"`
	Amount      json.Number `json:"amount"`
}

// number renders d as a bare JSON number
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type salesOrderLines struct {
	Items []salesOrderLine `json:"items"`
}

// salesOrderRequest is the create body. Custom body fields are merged in at
// the top level by MarshalJSON.
type salesOrderRequest struct {
	Entity          *ref            `json:"entity"`
	Subsidiary      *ref            `json:"subsidiary,omitempty"`
	Department      *ref            `json:"department,omitempty"`
	ExternalID      string          `json:"externalId"`
	OtherRefNum     string          `json:"otherRefNum,omitempty"`
	TranDate        string          `json:"tranDate,omitempty"`
	Memo            string          `json:"memo,omitempty"`
	ShippingAddress *addressRecord  `json:"shippingAddress,omitempty"`
	ShippingCost    json.Number     `json:"shippingCost"`
	TaxTotal        json.Number     `json:"taxTotal"`
	Item            salesOrderLines `json:"item"`

	custom map[string]any
}

func (r salesOrderRequest) MarshalJSON() ([]byte, error) {
	type plain salesOrderRequest
	base, err := json.Marshal(plain(r))
	if err != nil || len(r.custom) == 0 {
		return base, err
	}
	merged := make(map[string]any, len(r.custom)+10)
	for k, v := range r.custom {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func salesOrderFromPayload(p *ordersync.SalesOrderPayload) salesOrderRequest {
	req := salesOrderRequest{
		Entity:          refTo(p.EntityID),
		Subsidiary:      refTo(p.SubsidiaryID),
		Department:      refTo(p.DepartmentID),
		ExternalID:      p.ExternalID,
		OtherRefNum:     p.OtherRefNum,
		Memo:            p.Memo,
		ShippingAddress: addressFromDomain(p.ShipAddress),
		ShippingCost:    number(p.ShippingCost),
		TaxTotal:        number(p.TaxTotal),
		custom:          p.CustomFields,
	}
	if !p.TranDate.IsZero() {
		req.TranDate = p.TranDate.Format("2006-01-02")
	}
	for _, line := range p.Items {
		req.Item.Items = append(req.Item.Items, salesOrderLine{
			Item:        &ref{ID: line.ItemID},
			Description: line.Description,
			Quantity:    number(line.Quantity),
			Rate:        number(line.Rate),
			Amount:      number(line.Amount),
		})
	}
	return req
}

type salesOrderRecord struct {
	ID          string          `json:"id"`
	TranID      string          `json:"tranId"`
	ExternalID  string          `json:"externalId"`
	Entity      *ref            `json:"entity"`
	Status      *ref            `json:"status"`
	Total       decimal.Decimal `json:"total"`
	CreatedDate string          `json:"createdDate"`
}

func (r *salesOrderRecord) toDomain() *ordersync.SalesOrder {
	so := &ordersync.SalesOrder{
		ID:                atoi(r.ID),
		TransactionNumber: r.TranID,
		ExternalID:        r.ExternalID,
		EntityID:          r.Entity.intID(),
		Total:             r.Total,
	}
	if r.Status != nil {
		so.Status = r.Status.RefName
		if so.Status == "" {
			so.Status = r.Status.ID
		}
	}
	if t, err := time.Parse(time.RFC3339, r.CreatedDate); err == nil {
		so.CreatedAt = t
	}
	return so
}

// ---------------------------------------------------------------------------
// Query and errors
// ---------------------------------------------------------------------------

type queryRequest struct {
	Q string `json:"q"`
}

type queryResponse struct {
	Items        []map[string]any `json:"items"`
	HasMore      bool             `json:"hasMore"`
	TotalResults int              `json:"totalResults"`
}

type errorDetail struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"o:errorCode"`
	ErrorPath string `json:"o:errorPath,omitempty"`
}

type errorResponse struct {
	Type         string        `json:"type"`
	Title        string        `json:"title"`
	Status       int           `json:"status"`
	ErrorDetails []errorDetail `json:"o:errorDetails"`
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
