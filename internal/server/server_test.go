package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nexora/internal/health"
	"github.com/felixgeelhaar/nexora/internal/log"
	"github.com/felixgeelhaar/nexora/internal/metrics"
)

var storefront = Content{
	ProjectID: 6,
	Title:     "Storefront",
	HTML:      "<h1>Storefront</h1><p>Payments via Stripe.</p>",
}

func newServer(t *testing.T, opts ...Option) (*Server, *metrics.Metrics) {
	t.Helper()
	reg, m := metrics.NewRegistry()
	opts = append([]Option{WithLogger(log.Discard()), WithMetrics(m, metrics.HandlerFor(reg))}, opts...)
	s, err := New(storefront, Config{Address: "127.0.0.1:0"}, opts...)
	require.NoError(t, err)
	return s, m
}

func get(t *testing.T, h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewDefaults(t *testing.T) {
	s, _ := newServer(t)

	assert.Equal(t, 10*time.Second, s.shutdownTimeout)
	assert.Equal(t, 10*time.Second, s.httpServer.ReadTimeout)
	assert.Equal(t, 10*time.Second, s.httpServer.WriteTimeout)
	assert.Equal(t, 60*time.Second, s.httpServer.IdleTimeout)
	assert.Equal(t, "127.0.0.1:0", s.httpServer.Addr)
}

func TestServePage(t *testing.T) {
	s, m := newServer(t)

	rec := get(t, s.Handler(), "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, contentSecurityPolicy, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Body.String(), "<title>Storefront</title>")
	assert.Contains(t, rec.Body.String(), "Payments via Stripe.")

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	cached := get(t, s.Handler(), "/", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, cached.Code)
	assert.Empty(t, cached.Body.String())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PreviewRequests.WithLabelValues("/", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PreviewRequests.WithLabelValues("/", "304")))
}

func TestServeFragment(t *testing.T) {
	s, _ := newServer(t)

	rec := get(t, s.Handler(), "/report.html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, storefront.HTML, rec.Body.String())
}

func TestSetContentChangesETag(t *testing.T) {
	s, _ := newServer(t)
	before := get(t, s.Handler(), "/report.html", nil).Header().Get("ETag")

	updated := storefront
	updated.HTML = "<p>Payments via Adyen.</p>"
	require.NoError(t, s.SetContent(updated))

	rec := get(t, s.Handler(), "/report.html", map[string]string{"If-None-Match": before})
	assert.Equal(t, http.StatusOK, rec.Code, "stale ETag must not match")
	assert.Equal(t, updated.HTML, rec.Body.String())
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		content  string
		shutdown bool
		code     int
		status   health.Status
	}{
		{"healthy", nil, storefront.HTML, false, http.StatusOK, health.StatusHealthy},
		{"empty report", nil, "", false, http.StatusOK, health.StatusDegraded},
		{
			"failing dependency",
			[]Option{WithChecker(health.NewCheckFunc("backend", func(ctx context.Context) *health.Result {
				return health.Unhealthy("connection refused")
			}))},
			storefront.HTML, false, http.StatusServiceUnavailable, health.StatusUnhealthy,
		},
		{"shutting down", nil, storefront.HTML, true, http.StatusServiceUnavailable, health.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newServer(t, tt.opts...)
			c := storefront
			c.HTML = tt.content
			require.NoError(t, s.SetContent(c))
			if tt.shutdown {
				s.inShutdown.Store(true)
			}

			rec := get(t, s.Handler(), "/health", nil)
			assert.Equal(t, tt.code, rec.Code)

			var body healthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, 6, body.ProjectID)
			if !tt.shutdown {
				assert.Contains(t, body.Checks, "report")
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newServer(t)
	get(t, s.Handler(), "/", nil)

	rec := get(t, s.Handler(), "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `nexora_preview_requests_total{code="200",route="/"} 1`)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x")))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeAndShutdown(t *testing.T) {
	s, _ := newServer(t)

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Serve(listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/report.html")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, storefront.HTML, string(body))

	require.NoError(t, s.Shutdown(context.Background()))
	assert.True(t, s.IsShuttingDown())

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, http.ErrServerClosed), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
