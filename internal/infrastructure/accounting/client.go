package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/time/rate"

	"github.com/erp/ordersync/internal/domain/ordersync"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

const (
	gatewayName = "accounting"

	recordPath = "/services/rest/record/v1"
	queryPath  = "/services/rest/query/v1/suiteql"

	// maxResponseSize caps how much of a response body is read (10MB)
	maxResponseSize = 10 * 1024 * 1024
	// maxErrorBody caps the body text kept on a GatewayError
	maxErrorBody = 512

	// duplicateRecordCode is the error code returned when externalId is taken
	duplicateRecordCode = "DUP_RCRD"
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

// WithSigner replaces the OAuth signer
func WithSigner(s *Signer) Option {
	return func(cl *Client) {
		cl.signer = s
	}
}

// Client is the REST implementation of ordersync.AccountingGateway
type Client struct {
	config     *Config
	httpClient *http.Client
	signer     *Signer
	limiter    *rate.Limiter
	observer   RequestObserver
	logger     *zap.Logger
	fold       cases.Caser
}

var _ ordersync.AccountingGateway = (*Client)(nil)

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
		signer:     NewSigner(config),
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		logger:     logger.With(zap.String("gateway", gatewayName)),
		fold:       cases.Fold(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// response is a fully read HTTP response
type response struct {
	status int
	header http.Header
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

// FindCustomerByEmail returns the lowest-ID customer whose email matches
// case-insensitively, or nil, nil.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string, includeAddresses bool) (*ordersync.Customer, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}

	query := fmt.Sprintf(
		"SELECT id, entityid, isperson, companyname, firstname, lastname, email, phone, parent "+
			"FROM customer WHERE LOWER(email) = %s ORDER BY id",
		ordersync.QuoteLiteral(strings.ToLower(email)),
	)
	result, err := c.ExecuteAnalyticQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	want := c.fold.String(email)
	for _, row := range result.Items {
		if c.fold.String(strings.TrimSpace(row.String("email"))) != want {
			continue
		}
		cust := &ordersync.Customer{
			ID:          row.Int("id"),
			EntityID:    row.String("entityid"),
			IsPerson:    row.Bool("isperson"),
			CompanyName: row.String("companyname"),
			FirstName:   row.String("firstname"),
			LastName:    row.String("lastname"),
			Email:       row.String("email"),
			Phone:       row.String("phone"),
			ParentID:    row.IntPtr("parent"),
		}
		if includeAddresses {
			full, err := c.getCustomer(ctx, cust.ID)
			if err != nil {
				return nil, err
			}
			if full != nil {
				cust.DefaultAddress = full.DefaultAddress
				cust.AddressBook = full.AddressBook
			}
		}
		return cust, nil
	}
	return nil, nil
}

func (c *Client) getCustomer(ctx context.Context, id int) (*ordersync.Customer, error) {
	q := url.Values{"expandSubResources": {"true"}}
	resp, err := c.do(ctx, "get_customer", http.MethodGet, recordPath+"/customer/"+strconv.Itoa(id), q, nil, "")
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return nil, nil
	}
	if !resp.ok() {
		return nil, c.gatewayError("get_customer", resp)
	}
	var rec customerRecord
	if err := json.Unmarshal(resp.body, &rec); err != nil {
		return nil, &ordersync.ResponseShapeError{Operation: "accounting get_customer", StatusCode: resp.status, Detail: err.Error()}
	}
	return rec.toDomain(), nil
}

// CreateCustomer creates the customer, then assigns parentID with a
// separate update. The returned customer echoes the payload with its new ID.
func (c *Client) CreateCustomer(ctx context.Context, payload *ordersync.CustomerPayload, parentID *int) (*ordersync.Customer, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, gatewayName, "create_customer", telemetry.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	resp, err := c.do(ctx, "create_customer", http.MethodPost, recordPath+"/customer", nil, customerFromPayload(payload), "")
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !resp.ok() {
		err := c.gatewayError("create_customer", resp)
		telemetry.RecordError(span, err)
		return nil, err
	}
	id, err := createdID("create_customer", resp)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	cust := &ordersync.Customer{
		ID:             id,
		IsPerson:       payload.IsPerson,
		CompanyName:    payload.CompanyName,
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Email:          payload.Email,
		Phone:          payload.Phone,
		DefaultAddress: payload.DefaultAddress,
		AddressBook:    payload.AddressBook,
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrCustomerID, id)

	if parentID != nil {
		patch := &customerRecord{IsPerson: payload.IsPerson, Parent: refTo(*parentID)}
		resp, err := c.do(ctx, "set_customer_parent", http.MethodPatch, recordPath+"/customer/"+strconv.Itoa(id), nil, patch, "")
		if err == nil && !resp.ok() {
			err = c.gatewayError("set_customer_parent", resp)
		}
		if err != nil {
			c.logger.Warn("Customer created but parent assignment failed, removing it",
				zap.Int("customer_id", id),
				zap.Int("parent_id", *parentID),
				zap.Error(err),
			)
			telemetry.RecordError(span, err)
			c.deleteCustomer(ctx, id)
			return nil, fmt.Errorf("assign parent %d to customer %d: %w", *parentID, id, err)
		}
		parent := *parentID
		cust.ParentID = &parent
	}
	return cust, nil
}

// deleteCustomer removes a customer left half-created. It runs detached from
// ctx cancellation so a timed-out create still cleans up.
func (c *Client) deleteCustomer(ctx context.Context, id int) {
	ctx = context.WithoutCancel(ctx)
	resp, err := c.do(ctx, "delete_customer", http.MethodDelete, recordPath+"/customer/"+strconv.Itoa(id), nil, nil, "")
	if err == nil && !resp.ok() && resp.status != http.StatusNotFound {
		err = c.gatewayError("delete_customer", resp)
	}
	if err != nil {
		c.logger.Error("Orphaned customer left in accounting system",
			zap.Int("customer_id", id),
			zap.Error(err),
		)
	}
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

// ValidateItem checks that the catalog key names an existing, active item
func (c *Client) ValidateItem(ctx context.Context, itemID string) (ordersync.ItemValidation, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return ordersync.ItemValidation{}, nil
	}

	where := "itemid = " + ordersync.QuoteLiteral(itemID)
	if n, err := strconv.Atoi(itemID); err == nil {
		where = fmt.Sprintf("(id = %d OR %s)", n, where)
	}
	result, err := c.ExecuteAnalyticQuery(ctx, "SELECT id, itemid, isinactive FROM item WHERE "+where)
	if err != nil {
		return ordersync.ItemValidation{}, err
	}

	v := ordersync.ItemValidation{}
	for _, row := range result.Items {
		v.Exists = true
		if !row.Bool("isinactive") {
			v.Usable = true
			break
		}
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Sales Orders
// ---------------------------------------------------------------------------

// CreateSalesOrder posts the order. The record API answers 204 with a
// Location header; a JSON body with an id is accepted as well.
func (c *Client) CreateSalesOrder(ctx context.Context, payload *ordersync.SalesOrderPayload) (*ordersync.SalesOrderRef, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, gatewayName, "create_sales_order",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrExternalRef, payload.ExternalID),
	)
	defer span.End()

	resp, err := c.do(ctx, "create_sales_order", http.MethodPost, recordPath+"/salesOrder", nil, salesOrderFromPayload(payload), "")
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrGatewayStatus, resp.status)

	if !resp.ok() {
		if detail, dup := duplicateDetail(resp.body); dup {
			return nil, &ordersync.DuplicateOrderError{
				ExternalRef: payload.ExternalID,
				ExistingID:  existingRecordID(detail),
				Detail:      detail,
			}
		}
		err := c.gatewayError("create_sales_order", resp)
		telemetry.RecordError(span, err)
		return nil, err
	}

	ref := &ordersync.SalesOrderRef{}
	if len(bytes.TrimSpace(resp.body)) > 0 {
		var rec salesOrderRecord
		if err := json.Unmarshal(resp.body, &rec); err == nil {
			ref.ID = atoi(rec.ID)
			ref.TransactionNumber = rec.TranID
		}
	}
	if ref.ID == 0 {
		id, err := createdID("create_sales_order", resp)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		ref.ID = id
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrSalesOrderID, ref.ID)
	return ref, nil
}

// GetSalesOrderByID reads one sales order, or nil, nil when it does not exist
func (c *Client) GetSalesOrderByID(ctx context.Context, id int) (*ordersync.SalesOrder, error) {
	resp, err := c.do(ctx, "get_sales_order", http.MethodGet, recordPath+"/salesOrder/"+strconv.Itoa(id), nil, nil, "")
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return nil, nil
	}
	if !resp.ok() {
		return nil, c.gatewayError("get_sales_order", resp)
	}
	var rec salesOrderRecord
	if err := json.Unmarshal(resp.body, &rec); err != nil {
		return nil, &ordersync.ResponseShapeError{Operation: "accounting get_sales_order", StatusCode: resp.status, Detail: err.Error()}
	}
	so := rec.toDomain()
	if so.ID == 0 {
		so.ID = id
	}
	return so, nil
}

// ---------------------------------------------------------------------------
// Analytic Query
// ---------------------------------------------------------------------------

// ExecuteAnalyticQuery runs a read-only SuiteQL query and returns the first page
func (c *Client) ExecuteAnalyticQuery(ctx context.Context, query string) (*ordersync.QueryResult, error) {
	q := url.Values{"limit": {strconv.Itoa(c.config.QueryLimit)}, "offset": {"0"}}
	resp, err := c.do(ctx, "query", http.MethodPost, queryPath, q, queryRequest{Q: query}, "transient")
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.gatewayError("query", resp)
	}

	var qr queryResponse
	if err := json.Unmarshal(resp.body, &qr); err != nil {
		return nil, &ordersync.ResponseShapeError{Operation: "accounting query", StatusCode: resp.status, Detail: err.Error()}
	}
	result := &ordersync.QueryResult{HasMore: qr.HasMore, TotalResults: qr.TotalResults}
	for _, item := range qr.Items {
		delete(item, "links")
		result.Items = append(result.Items, ordersync.QueryRow(item))
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// do waits for the limiter, signs and sends one request. A transport failure
// is returned as an error; any HTTP response is returned as-is.
func (c *Client) do(ctx context.Context, operation, method, p string, query url.Values, body any, prefer string) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ordersync.GatewayError{
			Gateway:   gatewayName,
			Operation: operation,
			Err:       fmt.Errorf("rate limiter: %w", err),
		}
	}

	endpoint := c.config.BaseURL + p
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("accounting: encode %s request: %w", operation, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("accounting: failed to create request: %w", err)
	}
	auth, err := c.signer.Authorization(method, endpoint)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(ctx, operation, 0, started)
		return nil, &ordersync.GatewayError{
			Gateway:   gatewayName,
			Operation: operation,
			Err:       fmt.Errorf("%w: %v", ordersync.ErrAccountingUnavailable, err),
		}
	}
	defer resp.Body.Close()
	c.observe(ctx, operation, resp.StatusCode, started)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &ordersync.GatewayError{
			Gateway:    gatewayName,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: read body: %v", ordersync.ErrAccountingUnavailable, err),
		}
	}

	if resp.StatusCode >= 400 {
		c.logger.Debug("Accounting request failed",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
		)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func (c *Client) observe(ctx context.Context, operation string, status int, started time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(ctx, gatewayName, operation, status, time.Since(started))
	}
}

func (c *Client) gatewayError(operation string, resp *response) error {
	return &ordersync.GatewayError{
		Gateway:    gatewayName,
		Operation:  operation,
		StatusCode: resp.status,
		Body:       errorText(resp.body),
	}
}

// createdID reads the new record's ID from the Location header
func createdID(operation string, resp *response) (int, error) {
	loc := strings.TrimSpace(resp.header.Get("Location"))
	if loc == "" {
		return 0, &ordersync.ResponseShapeError{
			Operation:  "accounting " + operation,
			StatusCode: resp.status,
			Detail:     "no Location header and no record id in body",
		}
	}
	if u, err := url.Parse(loc); err == nil {
		loc = u.Path
	}
	id, err := strconv.Atoi(path.Base(loc))
	if err != nil || id <= 0 {
		return 0, &ordersync.ResponseShapeError{
			Operation:  "accounting " + operation,
			StatusCode: resp.status,
			Detail:     fmt.Sprintf("cannot parse record id from Location %q", loc),
		}
	}
	return id, nil
}

// duplicateDetail reports whether an error body signals a duplicate external ID
func duplicateDetail(body []byte) (string, bool) {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return "", false
	}
	for _, d := range er.ErrorDetails {
		if d.ErrorCode == duplicateRecordCode {
			return d.Detail, true
		}
		lower := strings.ToLower(d.Detail)
		if strings.Contains(lower, "duplicate") && strings.Contains(lower, "external") {
			return d.Detail, true
		}
	}
	return "", false
}

var existingIDPattern = regexp.MustCompile(`(?i)\b(?:internal\s*id|record\s*id|id)\s*[:=#]?\s*(\d+)`)

// existingRecordID pulls the conflicting record's internal ID out of a
// duplicate error detail, or returns 0 when the detail does not name one.
func existingRecordID(detail string) int {
	m := existingIDPattern.FindStringSubmatch(detail)
	if m == nil {
		return 0
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return id
}

// errorText extracts error details, falling back to the raw body
func errorText(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		parts := make([]string, 0, len(er.ErrorDetails))
		for _, d := range er.ErrorDetails {
			if d.ErrorCode != "" {
				parts = append(parts, d.ErrorCode+": "+d.Detail)
			} else if d.Detail != "" {
				parts = append(parts, d.Detail)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
		if er.Title != "" {
			return er.Title
		}
	}
	return truncateText(strings.TrimSpace(string(body)), maxErrorBody)
}

// truncateText cuts text to at most limit bytes without splitting a rune
func truncateText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
