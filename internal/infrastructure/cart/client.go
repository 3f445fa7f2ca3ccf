package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

const (
	gatewayName = "cart"

	// maxResponseSize caps how much of a response body is read (10MB)
	maxResponseSize = 10 * 1024 * 1024
	// maxErrorBody caps the body text kept on a GatewayError
	maxErrorBody = 512
	// maxPages stops a runaway date range pull
	maxPages = 1000

	dateParamLayout = "01/02/2006"
)

// RequestObserver receives one callback per outbound request
type RequestObserver interface {
	ObserveRequest(ctx context.Context, gateway, operation string, statusCode int, d time.Duration)
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithRequestObserver reports each request to o
func WithRequestObserver(o RequestObserver) Option {
	return func(cl *Client) {
		cl.observer = o
	}
}

// Client is the REST implementation of ordersync.CartGateway
type Client struct {
	config     *Config
	httpClient *http.Client
	observer   RequestObserver
	logger     *zap.Logger
}

var _ ordersync.CartGateway = (*Client)(nil)

// NewClient validates config and creates a Client
func NewClient(config *Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.With(zap.String("gateway", gatewayName)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetOrder fetches one order. A missing order yields *ordersync.NotFoundError.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*ordersync.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ordersync.ErrOrderIDRequired
	}

	ctx, span := telemetry.StartServiceSpan(ctx, gatewayName, "get_order",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID),
	)
	defer span.End()

	var orders []Order
	status, err := c.get(ctx, "get_order", "/Orders/"+url.PathEscape(orderID), nil, &orders)
	telemetry.SetAttribute(span, telemetry.SpanAttrGatewayStatus, status)
	if status == http.StatusNotFound || (err == nil && len(orders) == 0) {
		return nil, &ordersync.NotFoundError{Resource: "cart order", ID: orderID}
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	order := orders[0].ToDomain()
	if order.OrderID == "" {
		order.OrderID = orderID
	}
	return &order, nil
}

// GetOrdersByDateRange pages through orders placed between start and end,
// optionally restricted to one status.
func (c *Client) GetOrdersByDateRange(ctx context.Context, start, end time.Time, status *ordersync.OrderStatus) ([]ordersync.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, gatewayName, "get_orders_by_date_range",
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	query := url.Values{}
	query.Set("datestart", start.Format(dateParamLayout))
	query.Set("dateend", end.Format(dateParamLayout))
	query.Set("limit", strconv.Itoa(c.config.PageSize))
	if status != nil {
		query.Set("orderstatus", strconv.Itoa(int(*status)))
	}

	var result []ordersync.Order
	for page := 0; page < maxPages; page++ {
		query.Set("offset", strconv.Itoa(page*c.config.PageSize))

		var orders []Order
		code, err := c.get(ctx, "get_orders", "/Orders", query, &orders)
		if code == http.StatusNotFound {
			break
		}
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		for i := range orders {
			result = append(result, orders[i].ToDomain())
		}
		if len(orders) < c.config.PageSize {
			break
		}
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrBatchSize, len(result))
	c.logger.Debug("Pulled orders by date range",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("count", len(result)),
	)
	return result, nil
}

// get performs a GET and decodes a 2xx JSON body into out. The returned
// status is 0 when no response was received.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out any) (int, error) {
	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("cart: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("SecureURL", c.config.SecureURL)
	req.Header.Set("PrivateKey", c.config.PrivateKey)
	req.Header.Set("Token", c.config.Token)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(ctx, operation, 0, started)
		return 0, &ordersync.GatewayError{
			Gateway:   gatewayName,
			Operation: operation,
			Err:       fmt.Errorf("%w: %v", ordersync.ErrCartUnavailable, err),
		}
	}
	defer resp.Body.Close()
	c.observe(ctx, operation, resp.StatusCode, started)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, &ordersync.GatewayError{
			Gateway:    gatewayName,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: read body: %v", ordersync.ErrCartUnavailable, err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &ordersync.GatewayError{
			Gateway:    gatewayName,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       errorText(body),
		}
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, &ordersync.ResponseShapeError{
			Operation:  gatewayName + " " + operation,
			StatusCode: resp.StatusCode,
			Detail:     err.Error(),
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) observe(ctx context.Context, operation string, status int, started time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(ctx, gatewayName, operation, status, time.Since(started))
	}
}

// errorText extracts the API's message list, falling back to the raw body
func errorText(body []byte) string {
	var msgs []apiMessage
	if err := json.Unmarshal(body, &msgs); err == nil && len(msgs) > 0 {
		parts := make([]string, 0, len(msgs))
		for _, m := range msgs {
			if m.Message != "" {
				parts = append(parts, m.Message)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}

// DecodeWebhookOrders decodes a webhook body holding either one order
// document or an array of them.
func DecodeWebhookOrders(body []byte) ([]ordersync.Order, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, errors.New("cart: empty webhook payload")
	}

	var docs []Order
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &docs); err != nil {
			return nil, fmt.Errorf("cart: decode webhook payload: %w", err)
		}
	} else {
		var doc Order
		if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
			return nil, fmt.Errorf("cart: decode webhook payload: %w", err)
		}
		docs = []Order{doc}
	}

	orders := make([]ordersync.Order, 0, len(docs))
	for i := range docs {
		order := docs[i].ToDomain()
		if order.OrderID == "" {
			return nil, fmt.Errorf("cart: webhook order %d: %w", i, ordersync.ErrOrderIDRequired)
		}
		orders = append(orders, order)
	}
	if len(orders) == 0 {
		return nil, errors.New("cart: webhook payload holds no orders")
	}
	return orders, nil
}
