package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	nexerrors "github.com/felixgeelhaar/nexora/internal/errors"
	"github.com/felixgeelhaar/nexora/internal/log"
	"github.com/felixgeelhaar/nexora/internal/metrics"
)

// newTestServer starts an HTTP server bound to IPv4-only loopback so tests work
// inside restricted sandboxes that forbid IPv6 listeners.
func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start test server: %v", err)
	}

	server := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	server.Start()
	t.Cleanup(server.Close)
	return server
}

func newClient(srv *httptest.Server, opts ...Option) *Client {
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	return New(srv.URL+"/api/", opts...)
}

func TestClientSendsAuthAndHeaders(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 3, "name": "Portal"}`))
	}))

	client := newClient(srv, WithCredentials(StaticCredentials("abc123")))

	var out struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	err := client.Post(context.Background(), "/projects/project/", map[string]any{"name": "Portal"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "/api/projects/project/", got.URL.Path)
	assert.Equal(t, "Token abc123", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Contains(t, got.Header.Get("User-Agent"), "nexora/")
	assert.Len(t, got.Header.Get(RequestIDHeader), 36)
	assert.JSONEq(t, `{"name":"Portal"}`, string(gotBody))
	assert.Equal(t, 3, out.ID)
}

func TestClientWithoutTokenOmitsAuthorization(t *testing.T) {
	var auth string
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, newClient(srv).Post(context.Background(), "/auth/logout/", nil, nil))
	assert.Empty(t, auth)
}

func TestClientQueryParameters(t *testing.T) {
	var rawQuery string
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"results": [], "count": 0}`))
	}))

	var page Page[map[string]any]
	err := newClient(srv).Get(context.Background(), "/admin/users/", url.Values{"role": {"admin"}, "search": {"ana"}}, &page)
	require.NoError(t, err)
	assert.Equal(t, "role=admin&search=ana", rawQuery)
	assert.Equal(t, 0, page.Count)
}

func TestClientErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"detail wins", 400, `{"detail": "Bad project", "message": "ignored"}`, "Bad project"},
		{"message fallback", 500, `{"message": "Server exploded"}`, "Server exploded"},
		{"validation map", 400, `{"name": ["This field is required."]}`, DefaultErrorMessage},
		{"not json", 502, `<html>Bad Gateway</html>`, DefaultErrorMessage},
		{"empty body", 404, ``, DefaultErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			err := newClient(srv).Get(context.Background(), "/projects/project/", nil, nil)
			require.Error(t, err)

			apiErr, ok := AsError(err)
			require.True(t, ok, "expected *api.Error, got %T", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.body, string(apiErr.Data))
		})
	}
}

func TestFieldErrors(t *testing.T) {
	apiErr := newError(400, []byte(`{"email": ["Enter a valid email address."]}`))
	assert.Equal(t, map[string][]string{"email": {"Enter a valid email address."}}, apiErr.FieldErrors())

	assert.Nil(t, newError(400, []byte(`{"detail": "x"}`)).FieldErrors())
}

func TestErrorPredicates(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &Error{Status: 401, Message: "Invalid token."})
	assert.True(t, IsUnauthorized(wrapped))
	assert.True(t, IsUnauthorized(&Error{Status: 403}))
	assert.False(t, IsUnauthorized(&Error{Status: 404}))
	assert.True(t, IsNotFound(&Error{Status: 404}))
	assert.False(t, IsNotFound(errors.New("404")))
	assert.Equal(t, 401, (&Error{Status: 401}).HTTPStatus())
	assert.Equal(t, "Invalid token. (HTTP 401)", (&Error{Status: 401, Message: "Invalid token."}).Error())
}

func TestClientNetworkError(t *testing.T) {
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	_, reg := metrics.NewRegistry()
	client := New("http://"+addr+"/api", WithLogger(log.Discard()), WithMetrics(reg), WithTimeout(2*time.Second))

	err = client.Get(context.Background(), "/auth/me/", nil, nil)
	require.Error(t, err)

	var nexErr *nexerrors.NexoraError
	require.ErrorAs(t, err, &nexErr)
	assert.Equal(t, nexerrors.ErrCodeAPIUnreachable, nexErr.Code)
	_, isAPI := AsError(err)
	assert.False(t, isAPI)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.APIErrors.WithLabelValues("/auth/me/", "network")))
}

func TestClientContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := newClient(srv).Get(ctx, "/projects/project/", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientDecodeError(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	}))

	var out Envelope[[]int]
	err := newClient(srv).Get(context.Background(), "/projects/project/", nil, &out)

	var nexErr *nexerrors.NexoraError
	require.ErrorAs(t, err, &nexErr)
	assert.Equal(t, nexerrors.ErrCodeAPIDecode, nexErr.Code)
}

type rejectAll struct{ calls int }

func (r *rejectAll) Validate(method, path string, body []byte) error {
	r.calls++
	return errors.New("unknown operation")
}

func TestClientContractValidation(t *testing.T) {
	hits := 0
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))

	validator := &rejectAll{}
	err := newClient(srv, WithValidator(validator)).Post(context.Background(), "/nope/", map[string]int{"a": 1}, nil)

	var nexErr *nexerrors.NexoraError
	require.ErrorAs(t, err, &nexErr)
	assert.Equal(t, nexerrors.ErrCodeAPIContract, nexErr.Code)
	assert.Equal(t, 1, validator.calls)
	assert.Zero(t, hits, "invalid request must not reach the backend")
}

func TestClientMetricsAndSpans(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "ok"})
	}))

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, reg := metrics.NewRegistry()

	client := newClient(srv, WithMetrics(reg), WithTracer(tp.Tracer("test")))
	require.NoError(t, client.Get(context.Background(), "/projects/get_next_question/12/", nil, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.APIRequests.WithLabelValues("GET", "/projects/get_next_question/{id}/", "200")))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /projects/get_next_question/{id}/", spans[0].Name())
}

func TestCredentialSources(t *testing.T) {
	calls := 0
	src := CredentialFunc(func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("keyring locked")
	})

	client := New("http://127.0.0.1:1/api", WithLogger(log.Discard()), WithCredentials(src))
	err := client.Get(context.Background(), "/auth/me/", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyring locked")
	assert.Equal(t, 1, calls)

	token, err := StaticCredentials("t").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t", token)

	swapped := client.WithCredentials(StaticCredentials("x"))
	assert.NotSame(t, client, swapped)
	assert.Equal(t, client.BaseURL(), swapped.BaseURL())
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/projects/project/", "/projects/project/"},
		{"/projects/project/42/", "/projects/project/{id}/"},
		{"/admin/users/7/toggle/", "/admin/users/{id}/toggle/"},
		{"/admin/reports/1/regenerate/", "/admin/reports/{id}/regenerate/"},
		{"/projects/get_next_question/3", "/projects/get_next_question/{id}"},
		{"/a/1/2/", "/a/{id}/{id}/"},
		{"/projects/generate_report/v2report/", "/projects/generate_report/v2report/"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RouteLabel(tt.in), tt.in)
	}
}
