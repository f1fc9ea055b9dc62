// Package api is the HTTP client for the Nexora backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	nexerrors "github.com/felixgeelhaar/nexora/internal/errors"
	"github.com/felixgeelhaar/nexora/internal/log"
	"github.com/felixgeelhaar/nexora/internal/metrics"
	"github.com/felixgeelhaar/nexora/internal/telemetry"
	"github.com/felixgeelhaar/nexora/internal/version"
)

// RequestIDHeader carries a per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

const maxResponseBytes = 16 << 20

// RequestValidator checks an outgoing request against the backend contract
// before it is sent. path is relative to the API base URL.
type RequestValidator interface {
	Validate(method, path string, body []byte) error
}

// Client is the Nexora backend API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	userAgent  string
	validator  RequestValidator
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithCredentials sets where the auth token comes from.
func WithCredentials(src CredentialSource) Option {
	return func(c *Client) { c.creds = src }
}

// WithValidator enables contract validation of outgoing requests.
func WithValidator(v RequestValidator) Option {
	return func(c *Client) { c.validator = v }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracer overrides the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the API rooted at baseURL, e.g.
// https://scopesmith-backend.onrender.com/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		creds:     StaticCredentials(""),
		userAgent: version.GetInfo().UserAgent(),
		tracer:    telemetry.Tracer("api"),
		logger:    log.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WithCredentials returns a copy of the client using src for auth.
func (c *Client) WithCredentials(src CredentialSource) *Client {
	cp := *c
	cp.creds = src
	return &cp
}

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do performs one request. Non-2xx responses return *Error; transport
// failures return a NexoraError with code API-002 unless ctx was cancelled.
// Nothing is retried.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	route := RouteLabel(path)
	ctx, span := c.tracer.Start(ctx, method+" "+route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	if c.validator != nil {
		if err := c.validator.Validate(method, path, payload); err != nil {
			err = nexerrors.Wrap(nexerrors.ErrCodeAPIContract, fmt.Sprintf("%s %s violates the API contract", method, path), err)
			telemetry.RecordError(span, err)
			return err
		}
	}

	req, err := c.newRequest(ctx, method, path, query, payload)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	requestID := req.Header.Get(RequestIDHeader)
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
		attribute.String("nexora.request_id", requestID),
	)
	logger := c.logger.WithContext(ctx).With("method", method, "path", path, "request_id", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveAPI(method, route, 0, elapsed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%s %s: %w", method, path, ctxErr)
		} else {
			err = nexerrors.NewAPIUnreachableError(c.baseURL, err)
		}
		telemetry.RecordError(span, err)
		logger.Debug("api request failed", "error", err, "duration", elapsed)
		return err
	}
	defer resp.Body.Close()

	c.metrics.ObserveAPI(method, route, resp.StatusCode, elapsed)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	logger.Debug("api request", "status", resp.StatusCode, "duration", elapsed)

	if err := parseResponse(resp, out); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	return req, nil
}

// parseResponse decodes a 2xx body into target or converts the response to
// *Error.
func parseResponse(resp *http.Response, target any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newError(resp.StatusCode, body)
	}

	if target == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		return nexerrors.Wrap(nexerrors.ErrCodeAPIDecode, "failed to decode response", err)
	}
	return nil
}

var idSegment = regexp.MustCompile(`/\d+(/|$)`)

// RouteLabel replaces numeric path segments with {id} so metrics and span
// names stay low-cardinality.
func RouteLabel(path string) string {
	for {
		next := idSegment.ReplaceAllString(path, "/{id}$1")
		if next == path {
			return path
		}
		path = next
	}
}
