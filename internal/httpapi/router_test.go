package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/concierge/internal/chat"
	"github.com/sells-group/concierge/internal/model"
	"github.com/sells-group/concierge/internal/monitoring"
	"github.com/sells-group/concierge/internal/session"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeChat struct {
	handleFunc func(ctx context.Context, req chat.Request) (*chat.Response, error)
	last       chat.Request
}

func (f *fakeChat) Handle(ctx context.Context, req chat.Request) (*chat.Response, error) {
	f.last = req
	if f.handleFunc != nil {
		return f.handleFunc(ctx, req)
	}
	return &chat.Response{
		Text:      "happy to help",
		Intent:    model.IntentDefaultChat,
		Timestamp: 1700000000000,
	}, nil
}

type fakeVerifier struct {
	ok  bool
	err error
}

func (f *fakeVerifier) Verify(_ context.Context, _, _ string) (bool, error) {
	return f.ok, f.err
}

func defaultOptions() (Options, *fakeChat) {
	fc := &fakeChat{}
	svc := session.NewService("test-secret")
	return Options{
		Chat:    fc,
		Gate:    session.NewGate(svc, nil, false, false, false),
		Metrics: monitoring.NewRegistry(),
	}, fc
}

type errEnvelope struct {
	Error struct {
		Category string `json:"category"`
		Detail   string `json:"detail"`
	} `json:"error"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errEnvelope {
	t.Helper()
	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestHealthEndpoint(t *testing.T) {
	opts, _ := defaultOptions()
	h := NewRouter(opts)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	opts, _ := defaultOptions()
	opts.Metrics.RecordRequest(model.IntentDefaultChat)
	opts.Metrics.RecordScrape(monitoring.ScrapeCompleted)
	h := NewRouter(opts)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var snap monitoring.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.Requests)
	assert.Equal(t, int64(1), snap.Intents["default_chat"])
	assert.Equal(t, int64(1), snap.Scrapes["completed"])
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestSecurityHeadersSet(t *testing.T) {
	opts, _ := defaultOptions()
	h := NewRouter(opts)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rr.Header().Get("Referrer-Policy"))
}

func TestRequestIDGenerated(t *testing.T) {
	opts, _ := defaultOptions()
	h := NewRouter(opts)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestRequestIDCallerValueKept(t *testing.T) {
	opts, _ := defaultOptions()
	h := NewRouter(opts)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "caller-supplied-id")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "caller-supplied-id", rr.Header().Get("X-Request-Id"))
}

func TestCORSPreflightConfiguredOrigin(t *testing.T) {
	opts, _ := defaultOptions()
	opts.CORSOrigins = []string{"https://app.example.com"}
	h := NewRouter(opts)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightUnknownOriginDenied(t *testing.T) {
	opts, _ := defaultOptions()
	opts.CORSOrigins = []string{"https://app.example.com"}
	h := NewRouter(opts)

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
