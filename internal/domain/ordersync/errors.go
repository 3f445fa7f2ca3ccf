package ordersync

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for the order sync context
var (
	ErrOrderIDRequired       = errors.New("ordersync: order ID is required")
	ErrOrderRequired         = errors.New("ordersync: order is required")
	ErrBatchTooLarge         = errors.New("ordersync: batch exceeds the maximum size")
	ErrEmptyBatch            = errors.New("ordersync: no order IDs given")
	ErrInvalidDateRange      = errors.New("ordersync: start must be before end")
	ErrCartUnavailable       = errors.New("ordersync: cart service unavailable")
	ErrAccountingUnavailable = errors.New("ordersync: accounting service unavailable")
)

// ErrorKind classifies sync failures so callers never match on messages
type ErrorKind string

const (
	ErrorKindNone               ErrorKind = ""
	ErrorKindNotFound           ErrorKind = "NOT_FOUND"
	ErrorKindValidation         ErrorKind = "VALIDATION"
	ErrorKindCustomerResolution ErrorKind = "CUSTOMER_RESOLUTION"
	ErrorKindGateway            ErrorKind = "GATEWAY"
	ErrorKindDuplicateOrder     ErrorKind = "DUPLICATE_ORDER"
	ErrorKindResponseShape      ErrorKind = "RESPONSE_SHAPE"
	ErrorKindInternal           ErrorKind = "INTERNAL"
)

// KindOf returns the kind of the first typed error found in err's chain
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	var (
		notFound   *NotFoundError
		validation *ValidationError
		customer   *CustomerResolutionError
		duplicate  *DuplicateOrderError
		shape      *ResponseShapeError
		gateway    *GatewayError
	)
	switch {
	case errors.As(err, &customer):
		return ErrorKindCustomerResolution
	case errors.As(err, &validation):
		return ErrorKindValidation
	case errors.As(err, &duplicate):
		return ErrorKindDuplicateOrder
	case errors.As(err, &shape):
		return ErrorKindResponseShape
	case errors.As(err, &notFound):
		return ErrorKindNotFound
	case errors.As(err, &gateway):
		return ErrorKindGateway
	case errors.Is(err, ErrCartUnavailable), errors.Is(err, ErrAccountingUnavailable):
		return ErrorKindGateway
	default:
		return ErrorKindInternal
	}
}

// IsRetryable reports whether err is transient, so that repeating the same
// sync later can succeed. It looks through wrappers such as
// CustomerResolutionError rather than at the outer kind.
func IsRetryable(err error) bool {
	var (
		gateway *GatewayError
		shape   *ResponseShapeError
	)
	switch {
	case err == nil:
		return false
	case errors.As(err, &gateway):
		return gateway.IsAmbiguous() ||
			gateway.StatusCode == http.StatusRequestTimeout ||
			gateway.StatusCode == http.StatusTooManyRequests
	case errors.As(err, &shape):
		return true
	case errors.Is(err, ErrCartUnavailable), errors.Is(err, ErrAccountingUnavailable):
		return true
	default:
		return false
	}
}

// NotFoundError reports an absent order or customer
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ValidationError reports missing required fields before any network call
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s (%s)", e.Message, strings.Join(e.Fields, ", "))
}

// CustomerResolutionError reports a missing email or an exhausted resolution flow
type CustomerResolutionError struct {
	Email  string
	Reason string
	Err    error
}

func (e *CustomerResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("customer resolution failed: %s: %v", e.Reason, e.Err)
	}
	return "customer resolution failed: " + e.Reason
}

func (e *CustomerResolutionError) Unwrap() error {
	return e.Err
}

// GatewayError reports a network or HTTP failure talking to a collaborator.
// StatusCode is zero for transport failures.
type GatewayError struct {
	Gateway    string
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s failed", e.Gateway, e.Operation)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " with status %d", e.StatusCode)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsAmbiguous reports whether the request may have been applied despite the
// failure: transport errors and 5xx responses.
func (e *GatewayError) IsAmbiguous() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// DuplicateOrderError reports that the destination already holds the order.
// ExistingID is the conflicting record's internal ID when the destination
// names it, zero otherwise.
type DuplicateOrderError struct {
	ExternalRef string
	ExistingID  int
	Detail      string
}

func (e *DuplicateOrderError) Error() string {
	return fmt.Sprintf("sales order with external reference %q already exists: %s", e.ExternalRef, e.Detail)
}

// ResponseShapeError reports a success status with an unusable body
type ResponseShapeError struct {
	Operation  string
	StatusCode int
	Detail     string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("%s returned status %d with unexpected response shape: %s", e.Operation, e.StatusCode, e.Detail)
}
