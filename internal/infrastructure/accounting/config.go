package accounting

import (
	"errors"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the HTTP timeout used when none is configured
	DefaultTimeout = 60 * time.Second
	// DefaultRequestsPerSecond keeps well under the destination's concurrency governance
	DefaultRequestsPerSecond = 4.0
	// DefaultBurst is the limiter burst size
	DefaultBurst = 2
	// DefaultQueryLimit is the row limit of one analytic query page
	DefaultQueryLimit = 1000
)

// Errors for accounting configuration
var (
	ErrConfigMissingBaseURL     = errors.New("accounting: base url is required")
	ErrConfigMissingAccountID   = errors.New("accounting: account id is required")
	ErrConfigMissingConsumerKey = errors.New("accounting: consumer key and secret are required")
	ErrConfigMissingToken       = errors.New("accounting: token id and secret are required")
)

// Config holds the REST endpoint, token-based credentials and rate limits
type Config struct {
	// BaseURL is the REST services root, e.g. https://1234567.suitetalk.api.example.com
	BaseURL string
	// AccountID is the account realm used in the OAuth header
	AccountID      string
	ConsumerKey    string
	ConsumerSecret string
	TokenID        string
	TokenSecret    string
	// Timeout bounds each HTTP request
	Timeout time.Duration
	// RequestsPerSecond and Burst configure the client-side rate limiter
	RequestsPerSecond float64
	Burst             int
	// QueryLimit is the page size for analytic queries
	QueryLimit int
}

// Validate checks required fields and fills defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrConfigMissingBaseURL
	}
	if strings.TrimSpace(c.AccountID) == "" {
		return ErrConfigMissingAccountID
	}
	if c.ConsumerKey == "" || c.ConsumerSecret == "" {
		return ErrConfigMissingConsumerKey
	}
	if c.TokenID == "" || c.TokenSecret == "" {
		return ErrConfigMissingToken
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = DefaultBurst
	}
	if c.QueryLimit <= 0 {
		c.QueryLimit = DefaultQueryLimit
	}
	return nil
}

// realm is the account ID in the form the OAuth realm expects
func (c *Config) realm() string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(c.AccountID), "-", "_"))
}
