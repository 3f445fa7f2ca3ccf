package shared

// DomainError represents an error code and message surfaced to API callers
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound        = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput    = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUpstream        = NewDomainError("UPSTREAM_ERROR", "An upstream system failed")
	ErrDuplicate       = NewDomainError("DUPLICATE", "Resource already exists")
	ErrUnavailable     = NewDomainError("SERVICE_UNAVAILABLE", "A dependency is unavailable")
	ErrPayloadTooLarge = NewDomainError("PAYLOAD_TOO_LARGE", "Request exceeds the allowed size")
)
