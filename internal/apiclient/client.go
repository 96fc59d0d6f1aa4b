package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-console/internal/models"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
	"github.com/noah-isme/backoffice-console/pkg/middleware/requestid"
)

// DefaultTimeout bounds every backend call when the config leaves it unset.
const DefaultTimeout = 10 * time.Second

// Config configures the marketplace API client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// TokenSource yields the bearer token attached to outgoing requests.
type TokenSource interface {
	Token() string
}

// Observer receives one observation per backend call.
type Observer interface {
	ObserveUpstream(method, route string, status int, duration time.Duration)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithObserver wires request metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client is the single HTTP client every screen talks to the backend through.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	tokens    TokenSource
	observer  Observer
	logger    *zap.Logger

	mu             sync.RWMutex
	onUnauthorized func(ctx context.Context)
}

// New constructs a Client.
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource swaps the bearer token source after construction.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

// OnUnauthorized registers the global handler run whenever the backend answers 401.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}

	// Token overrides the token source, used when verifying a persisted token.
	Token string
	// Anonymous requests carry no bearer token and never trigger the 401 handler.
	Anonymous bool
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	Error      *apiError          `json:"error,omitempty"`
	Message    string             `json:"message,omitempty"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details []string          `json:"details,omitempty"`
}

// Do executes req and decodes the envelope's data into out when out is non-nil.
func (c *Client) Do(ctx context.Context, req Request, out interface{}) (*models.Pagination, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build backend request")
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		c.observe(req, 0, duration)
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			return nil, appErrors.Wrap(err, appErrors.ErrCancelled.Code, appErrors.ErrCancelled.Status, appErrors.ErrCancelled.Message)
		}
		c.logger.Warn("backend request failed", zap.String("method", req.Method), zap.String("path", req.Path), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, appErrors.ErrNetwork.Message)
	}
	defer resp.Body.Close() //nolint:errcheck
	c.observe(req, resp.StatusCode, duration)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "failed to read backend response")
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "malformed backend response")
		}
	}

	if resp.StatusCode >= 300 {
		appErr := statusError(resp.StatusCode, env)
		if resp.StatusCode == http.StatusUnauthorized && !req.Anonymous {
			c.unauthorized(ctx)
		}
		if appErr.Status >= http.StatusInternalServerError {
			c.logger.Error("backend request errored", zap.String("method", req.Method), zap.String("path", req.Path), zap.Int("status", resp.StatusCode), zap.String("message", appErr.Message))
		}
		return nil, appErr
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "unexpected backend payload")
		}
	}

	return env.Pagination, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	reqID := requestid.FromContext(ctx)
	if reqID == "" {
		reqID = requestid.New()
	}
	httpReq.Header.Set(requestid.HeaderKey, reqID)

	if !req.Anonymous {
		token := req.Token
		if token == "" {
			c.mu.RLock()
			ts := c.tokens
			c.mu.RUnlock()
			if ts != nil {
				token = ts.Token()
			}
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return httpReq, nil
}

func (c *Client) unauthorized(ctx context.Context) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
}

func (c *Client) observe(req Request, status int, duration time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(req.Method, routeLabel(req.Path), status, duration)
}

// routeLabel keeps metric cardinality low by dropping record IDs from paths.
func routeLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 1; i < len(parts); i += 2 {
		parts[i] = ":id"
	}
	return "/" + strings.Join(parts, "/")
}

func statusError(status int, env envelope) *appErrors.Error {
	message := env.Message
	var fields map[string]string
	if env.Error != nil {
		if env.Error.Message != "" {
			message = env.Error.Message
		}
		fields = env.Error.Fields
		if len(fields) == 0 && len(env.Error.Details) > 0 {
			detail := strings.Join(env.Error.Details, "; ")
			if message == "" {
				message = detail
			} else {
				message = message + ": " + detail
			}
		}
	}

	var base *appErrors.Error
	switch {
	case status == http.StatusUnauthorized:
		base = appErrors.ErrUnauthorized
	case status == http.StatusForbidden:
		base = appErrors.ErrForbidden
	case status == http.StatusNotFound:
		base = appErrors.ErrNotFound
	case status == http.StatusConflict:
		base = appErrors.ErrConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return appErrors.Validation(orDefault(message, appErrors.ErrValidation.Message), fields)
	case status >= http.StatusInternalServerError:
		base = appErrors.ErrInternal
		// Server messages are not shown to operators.
		message = ""
	default:
		base = appErrors.New("BACKEND_ERROR", status, "request rejected by backend")
	}

	return appErrors.Clone(base, message)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
