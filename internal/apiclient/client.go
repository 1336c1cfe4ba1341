// Package apiclient is a thin wrapper over the lending backend's REST API.
// It attaches the session token, returns the raw response and leaves
// interpretation to the caller: a non-2xx status is not an error, an
// unreachable backend is a *TransportError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/models/dto"
	"github.com/hongminglow/lending-console/internal/reconcile"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:5000/api"

// TokenSource yields the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// Response is a fully read backend answer.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status <= 299
}

// TransportError means the request never got an HTTP answer.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client calls the backend REST API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	usePatch   bool
	log        logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithPatchUpdates sends updates as PATCH instead of PUT.
func WithPatchUpdates() Option {
	return func(c *Client) { c.usePatch = true }
}

// WithLogger sets the request logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// New builds a client for baseURL. tokens may be nil for a client that only
// logs in and registers.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login posts credentials to /auth/login.
func (c *Client) Login(ctx context.Context, creds dto.LoginRequest) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/auth/login", creds, false)
}

// Register posts a new staff profile to /auth/register.
func (c *Client) Register(ctx context.Context, profile dto.RegisterRequest) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/auth/register", profile, false)
}

func (c *Client) ListCustomers(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/customers", nil, true)
}

func (c *Client) CreateCustomer(ctx context.Context, fields models.CustomerFields) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/customers", fields, true)
}

func (c *Client) UpdateCustomer(ctx context.Context, id models.ID, fields models.CustomerFields) (*Response, error) {
	return c.do(ctx, c.updateMethod(), itemPath("/customers", id), fields, true)
}

func (c *Client) DeleteCustomer(ctx context.Context, id models.ID) (*Response, error) {
	return c.do(ctx, http.MethodDelete, itemPath("/customers", id), nil, true)
}

func (c *Client) ListLoans(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/loans", nil, true)
}

func (c *Client) CreateLoan(ctx context.Context, fields models.LoanFields) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/loans", fields, true)
}

func (c *Client) UpdateLoan(ctx context.Context, id models.ID, fields models.LoanFields) (*Response, error) {
	return c.do(ctx, c.updateMethod(), itemPath("/loans", id), fields, true)
}

func (c *Client) DeleteLoan(ctx context.Context, id models.ID) (*Response, error) {
	return c.do(ctx, http.MethodDelete, itemPath("/loans", id), nil, true)
}

func (c *Client) ListTransactions(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/transactions", nil, true)
}

// Classify turns a call result into a reconciliation outcome.
func Classify(resp *Response, err error) reconcile.Outcome {
	if err != nil || resp == nil {
		if err == nil {
			err = fmt.Errorf("no response")
		}
		return reconcile.Unreachable(err)
	}
	return reconcile.Classify(resp.Status, resp.Body, nil)
}

func (c *Client) updateMethod() string {
	if c.usePatch {
		return http.MethodPatch
	}
	return http.MethodPut
}

func (c *Client) do(ctx context.Context, method, path string, payload any, authenticated bool) (*Response, error) {
	reqURL := c.baseURL + path

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s payload: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if authenticated && c.tokens != nil {
		if token, ok := c.tokens.Token(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{"method": method, "path": path}).WithError(err).Debug("backend unreachable")
		return nil, &TransportError{Method: method, URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: reqURL, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("backend call")

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

func itemPath(collection string, id models.ID) string {
	return collection + "/" + url.PathEscape(id.String())
}
