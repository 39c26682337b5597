package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/tenant"
	"github.com/facegate/facegate/internal/vision"
)

// testConfig creates a config with embedded policies and defaults.
func testConfig() *config.Config {
	return config.Load()
}

// fakeCoordinator returns a canned outcome or error for every match call.
type fakeCoordinator struct {
	outcome recognition.MatchOutcome
	err     error

	mu         sync.Mutex
	matchCalls int
	probeCalls int
}

func (f *fakeCoordinator) Match(ctx context.Context, scope tenant.Scope, frame vision.Frame) (recognition.MatchOutcome, error) {
	f.mu.Lock()
	f.matchCalls++
	f.mu.Unlock()
	return f.outcome, f.err
}

func (f *fakeCoordinator) MatchProbe(ctx context.Context, scope tenant.Scope, probe []float32) (recognition.MatchOutcome, error) {
	f.mu.Lock()
	f.probeCalls++
	f.mu.Unlock()
	return f.outcome, f.err
}

// fakeRecorder captures Record calls.
type fakeRecorder struct {
	mu      sync.Mutex
	records []recordedCall
}

type recordedCall struct {
	scope      tenant.Scope
	memberID   string
	confidence float64
}

func (f *fakeRecorder) Record(scope tenant.Scope, memberID string, confidence float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, recordedCall{scope, memberID, confidence})
}

func (f *fakeRecorder) calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedCall, len(f.records))
	copy(out, f.records)
	return out
}

// fakeInvalidator counts roster invalidations per scope key.
type fakeInvalidator struct {
	mu     sync.Mutex
	scopes []string
}

func (f *fakeInvalidator) Invalidate(scope tenant.Scope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes = append(f.scopes, scope.Key())
}

func (f *fakeInvalidator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scopes)
}

// requestWithTenant creates a request carrying a tenant scope in context.
func requestWithTenant(method, path, body string, scope tenant.Scope) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	return req.WithContext(tenant.NewContext(req.Context(), scope))
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message.
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
