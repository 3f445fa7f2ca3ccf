package ordersync

import (
	"context"
	"errors"
	"strings"

	domain "github.com/erp/ordersync/internal/domain/ordersync"
	"go.uber.org/zap"
)

// CustomerResolver finds or creates the accounting customer for an order
type CustomerResolver struct {
	gateway   domain.AccountingGateway
	addresses *AddressBookBuilder
	opts      Options
	logger    *zap.Logger
}

// NewCustomerResolver creates a CustomerResolver
func NewCustomerResolver(
	gateway domain.AccountingGateway,
	addresses *AddressBookBuilder,
	opts Options,
	logger *zap.Logger,
) *CustomerResolver {
	opts.applyDefaults()
	if addresses == nil {
		addresses = NewAddressBookBuilder(opts.DefaultCountry)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerResolver{
		gateway:   gateway,
		addresses: addresses,
		opts:      opts,
		logger:    logger,
	}
}

// Resolve returns the customer the order's sales order must be attached to.
// A company found by email is replaced by its person sub-entity when one can
// be found or created; any failure there falls back to the company itself.
func (r *CustomerResolver) Resolve(ctx context.Context, order *domain.Order) (*domain.Customer, error) {
	email := strings.TrimSpace(order.Billing.Email)
	if email == "" {
		return nil, &domain.CustomerResolutionError{Reason: "billing email is missing"}
	}

	log := r.logger.With(zap.String("order_id", order.OrderID), zap.String("email", email))

	existing, err := r.gateway.FindCustomerByEmail(ctx, email, false)
	if err != nil {
		return nil, &domain.CustomerResolutionError{Email: email, Reason: "customer lookup failed", Err: err}
	}

	if existing == nil {
		return r.createCustomer(ctx, order, email, log)
	}

	log = log.With(zap.Int("customer_id", existing.ID))
	if existing.IsPerson {
		log.Debug("Using existing person customer")
		return existing, nil
	}

	return r.resolveCompanyContact(ctx, order, existing, log), nil
}

// createCustomer creates a person customer with a generated address book.
// The name is prefixed with the order ID so repeated orders never collide.
func (r *CustomerResolver) createCustomer(
	ctx context.Context,
	order *domain.Order,
	email string,
	log *zap.Logger,
) (*domain.Customer, error) {
	bill := order.Billing
	info := CustomerInfoFromOrder(order, r.opts.DropShipMarkers)

	// New customers are always person records. The unique name goes in the
	// company name field whether it came from the billing company or the
	// person's full name.
	payload := &domain.CustomerPayload{
		IsPerson:       true,
		CompanyName:    r.UniqueCustomerName(order),
		FirstName:      strings.TrimSpace(bill.FirstName),
		LastName:       strings.TrimSpace(bill.LastName),
		Email:          email,
		Phone:          strings.TrimSpace(bill.Phone),
		SubsidiaryID:   r.opts.SubsidiaryID,
		DefaultAddress: r.addresses.BuildDefaultAddress(info),
		AddressBook:    r.addresses.BuildAddressBook(info),
	}

	created, err := r.gateway.CreateCustomer(ctx, payload, nil)
	if err == nil {
		log.Info("Created customer", zap.Int("customer_id", created.ID), zap.String("company_name", payload.CompanyName))
		return created, nil
	}

	var shapeErr *domain.ResponseShapeError
	if errors.As(err, &shapeErr) {
		log.Warn("Customer create returned no identifier, looking up by email", zap.Error(err))
		found, lookupErr := r.gateway.FindCustomerByEmail(ctx, email, false)
		if lookupErr == nil && found != nil {
			return found, nil
		}
		if lookupErr != nil {
			err = errors.Join(err, lookupErr)
		}
	}

	return nil, &domain.CustomerResolutionError{Email: email, Reason: "customer create failed", Err: err}
}

// resolveCompanyContact finds or creates the person sub-entity of company.
// It never fails: the company is returned when the sub-flow cannot complete.
func (r *CustomerResolver) resolveCompanyContact(
	ctx context.Context,
	order *domain.Order,
	company *domain.Customer,
	log *zap.Logger,
) *domain.Customer {
	bill := order.Billing
	entityName := bill.FullName()
	if entityName == "" {
		log.Warn("Billing name missing, attaching order to company customer")
		return company
	}

	result, err := r.gateway.ExecuteAnalyticQuery(ctx, childContactQuery(entityName, company.ID))
	if err != nil {
		log.Warn("Contact lookup under company failed, falling back to company", zap.Error(err))
		return company
	}
	if result != nil && len(result.Items) > 0 {
		contact := customerFromRow(result.Items[0])
		log.Debug("Using existing company contact", zap.Int("contact_id", contact.ID))
		return contact
	}

	payload := &domain.CustomerPayload{
		IsPerson:     true,
		FirstName:    strings.TrimSpace(bill.FirstName),
		LastName:     strings.TrimSpace(bill.LastName),
		Email:        strings.TrimSpace(bill.Email),
		Phone:        strings.TrimSpace(bill.Phone),
		SubsidiaryID: r.opts.SubsidiaryID,
	}
	parentID := company.ID

	contact, err := r.gateway.CreateCustomer(ctx, payload, &parentID)
	if err != nil {
		log.Warn("Contact create under company failed, falling back to company", zap.Error(err))
		return company
	}

	log.Info("Created company contact", zap.Int("contact_id", contact.ID))
	return contact
}

// UniqueCustomerName returns "{orderID}{separator}{company or full name}"
func (r *CustomerResolver) UniqueCustomerName(order *domain.Order) string {
	name := strings.TrimSpace(order.Billing.Company)
	if name == "" {
		name = order.Billing.FullName()
	}
	if name == "" {
		name = strings.TrimSpace(order.Billing.Email)
	}
	return order.OrderID + r.opts.CustomerNameSeparator + name
}
