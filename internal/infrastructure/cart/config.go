package cart

import (
	"errors"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the HTTP timeout used when none is configured
	DefaultTimeout = 30 * time.Second
	// DefaultPageSize is the page size for date range pulls
	DefaultPageSize = 100
	// MaxPageSize is the largest page the cart API accepts
	MaxPageSize = 300
)

// Errors for cart configuration
var (
	ErrConfigMissingBaseURL    = errors.New("cart: base url is required")
	ErrConfigMissingSecureURL  = errors.New("cart: secure url is required")
	ErrConfigMissingPrivateKey = errors.New("cart: private key is required")
	ErrConfigMissingToken      = errors.New("cart: token is required")
)

// Config holds credentials and limits for the cart REST API
type Config struct {
	// BaseURL is the REST API root, e.g. https://apirest.example.com/api/v2
	BaseURL string
	// SecureURL identifies the store and is sent on every request
	SecureURL string
	// PrivateKey is the application key issued to this integration
	PrivateKey string
	// Token is the store's access token
	Token string
	// Timeout bounds each HTTP request
	Timeout time.Duration
	// PageSize is the number of orders requested per page
	PageSize int
}

// Validate checks required fields and fills defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrConfigMissingBaseURL
	}
	if strings.TrimSpace(c.SecureURL) == "" {
		return ErrConfigMissingSecureURL
	}
	if c.PrivateKey == "" {
		return ErrConfigMissingPrivateKey
	}
	if c.Token == "" {
		return ErrConfigMissingToken
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PageSize > MaxPageSize {
		c.PageSize = MaxPageSize
	}
	return nil
}
