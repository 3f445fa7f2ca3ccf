package ordersync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	gatewayErr := &GatewayError{Gateway: "accounting", Operation: "create sales order", StatusCode: 500}

	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"nil", nil, ErrorKindNone},
		{"not found", &NotFoundError{Resource: "order", ID: "1"}, ErrorKindNotFound},
		{"validation", &ValidationError{Message: "no lines"}, ErrorKindValidation},
		{"gateway", gatewayErr, ErrorKindGateway},
		{"wrapped gateway", fmt.Errorf("fetch order: %w", gatewayErr), ErrorKindGateway},
		{"duplicate", &DuplicateOrderError{ExternalRef: "CART-1"}, ErrorKindDuplicateOrder},
		{"response shape", &ResponseShapeError{Operation: "create", StatusCode: 204}, ErrorKindResponseShape},
		{"customer wraps gateway", &CustomerResolutionError{Reason: "lookup", Err: gatewayErr}, ErrorKindCustomerResolution},
		{"cart unavailable sentinel", fmt.Errorf("%w: dial tcp", ErrCartUnavailable), ErrorKindGateway},
		{"plain error", errors.New("boom"), ErrorKindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestGatewayError_IsAmbiguous(t *testing.T) {
	assert.True(t, (&GatewayError{}).IsAmbiguous())
	assert.True(t, (&GatewayError{StatusCode: 502}).IsAmbiguous())
	assert.False(t, (&GatewayError{StatusCode: 400}).IsAmbiguous())
}

func TestIsRetryable(t *testing.T) {
	outage := &GatewayError{Gateway: "accounting", Operation: "find customer", StatusCode: 503}
	rejected := &GatewayError{Gateway: "accounting", Operation: "create customer", StatusCode: 400}

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"server error", outage, true},
		{"transport error", &GatewayError{Gateway: "cart", Operation: "get order"}, true},
		{"rate limited", &GatewayError{Gateway: "accounting", StatusCode: 429}, true},
		{"request timeout", &GatewayError{Gateway: "accounting", StatusCode: 408}, true},
		{"rejected request", rejected, false},
		{"customer lookup outage", &CustomerResolutionError{Email: "a@b.c", Reason: "customer lookup failed", Err: outage}, true},
		{"customer create rejected", &CustomerResolutionError{Email: "a@b.c", Reason: "customer creation failed", Err: rejected}, false},
		{"customer missing email", &CustomerResolutionError{Reason: "order has no email"}, false},
		{"response shape", &ResponseShapeError{Operation: "create", StatusCode: 204}, true},
		{"sentinel", fmt.Errorf("%w: dial tcp", ErrAccountingUnavailable), true},
		{"validation", &ValidationError{Message: "no lines"}, false},
		{"duplicate", &DuplicateOrderError{ExternalRef: "CART-1"}, false},
		{"not found", &NotFoundError{Resource: "order", ID: "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestNewFailedResult_MarksRetryable(t *testing.T) {
	outage := &GatewayError{Gateway: "accounting", Operation: "find customer", StatusCode: 503}
	result := NewFailedResult("1001", SyncStageCustomer, &CustomerResolutionError{Reason: "customer lookup failed", Err: outage})
	assert.Equal(t, ErrorKindCustomerResolution, result.ErrorKind)
	assert.True(t, result.Retryable)

	result = NewFailedResult("1001", SyncStageMapping, &ValidationError{Message: "no lines"})
	assert.False(t, result.Retryable)
}

func TestGatewayError_Error(t *testing.T) {
	err := &GatewayError{Gateway: "cart", Operation: "get order", StatusCode: 503, Body: "maintenance"}
	assert.Equal(t, "cart get order failed with status 503: maintenance", err.Error())

	wrapped := &GatewayError{Gateway: "cart", Operation: "get order", Err: ErrCartUnavailable}
	assert.ErrorIs(t, wrapped, ErrCartUnavailable)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: []string{"entity", "item"}, Message: "sales order payload invalid"}
	assert.Equal(t, "validation failed: sales order payload invalid (entity, item)", err.Error())
}
