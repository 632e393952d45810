package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IntelliTect/Coalesce-sub010/internal/auth"
	"github.com/IntelliTect/Coalesce-sub010/internal/bulksave"
	"github.com/IntelliTect/Coalesce-sub010/internal/config"
	"github.com/IntelliTect/Coalesce-sub010/internal/crud"
	"github.com/IntelliTect/Coalesce-sub010/internal/handler"
	"github.com/IntelliTect/Coalesce-sub010/internal/store"
	"github.com/IntelliTect/Coalesce-sub010/internal/testkit"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func testConfig(authEnabled bool) *config.Config {
	return &config.Config{
		CORS:    config.CORSConfig{AllowOrigin: "http://localhost:3000"},
		Metrics: config.MetricsConfig{Enabled: true},
		Auth: config.AuthConfig{
			Enabled: authEnabled,
			JWT: config.JWTConfig{
				ValidationType: "HS256",
				Issuer:         "auth-service",
				Audience:       "coalesce-api",
				HMACSecret:     "super-secret",
				ClockSkewSec:   5,
				RolesClaim:     "roles",
			},
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	h := testkit.SQLite(t)
	cat := testkit.Catalog(t)
	factory := crud.NewFactory(h.Dialect)
	reg := prometheus.NewRegistry()
	api := &handler.API{
		Catalog:  cat,
		Factory:  factory,
		DB:       h.DB,
		BulkSave: bulksave.NewService(cat, factory, store.NewManager(h.DB), bulksave.NewMetrics(reg)),
	}

	var v *auth.JWTValidator
	if cfg.Auth.Enabled {
		var err error
		v, err = auth.NewJWTValidator(cfg.Auth.JWT)
		if err != nil {
			t.Fatalf("NewJWTValidator failed: %v", err)
		}
	}
	return New(Options{Config: cfg, API: api, Validator: v, Gatherer: reg})
}

func signToken(t *testing.T, cfg config.JWTConfig, roles ...string) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   cfg.Issuer,
		"aud":   cfg.Audience,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Minute).Unix(),
		"sub":   "user-1",
		"roles": roles,
	}).SignedString([]byte(cfg.HMACSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func send(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

const productBatch = `{"save": [{"type": "Product", "data": {"name": "Widget"}}]}`

func TestRouter_RequestID(t *testing.T) {
	h := newTestRouter(t, testConfig(false))

	w := send(h, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if got := w.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Fatalf("expected a generated uuid, got %q", got)
	}

	w = send(h, http.MethodGet, "/healthz", "", map[string]string{"X-Request-ID": "abc-123"})
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("request id not reused: %q", got)
	}
}

func TestRouter_Preflight(t *testing.T) {
	h := newTestRouter(t, testConfig(true))

	w := send(h, http.MethodOptions, "/api/Case/bulkSave", "", map[string]string{"Origin": "http://localhost:3000"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-Request-ID") {
		t.Fatalf("request id header not allowed: %q", got)
	}

	// actual responses let the browser read the request id
	w = send(h, http.MethodPost, "/api/Product/bulkSave", productBatch, map[string]string{"Origin": "http://localhost:3000"})
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != "X-Request-ID" {
		t.Fatalf("request id not exposed: %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id")
	}

	w = send(h, http.MethodGet, "/healthz", "", map[string]string{"Origin": "http://localhost:3000"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("health should not carry CORS headers: %q", got)
	}
}

func TestRouter_AuthDisabledActsAsTrusted(t *testing.T) {
	h := newTestRouter(t, testConfig(false))

	w := send(h, http.MethodPost, "/api/Product/bulkSave", productBatch, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
}

func TestRouter_AuthEnabled(t *testing.T) {
	cfg := testConfig(true)
	h := newTestRouter(t, cfg)

	// anonymous callers reach the handler and are refused there
	w := send(h, http.MethodPost, "/api/Product/bulkSave", productBatch, nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "You are not permitted to create Product items.") {
		t.Fatalf("unexpected anonymous response %d: %s", w.Code, w.Body.String())
	}

	w = send(h, http.MethodPost, "/api/Product/bulkSave", productBatch, map[string]string{"Authorization": "Bearer not-a-token"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status for bad token: %d", w.Code)
	}

	w = send(h, http.MethodPost, "/api/Product/bulkSave", productBatch, map[string]string{"Authorization": "Token abc"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status for bad scheme: %d", w.Code)
	}

	w = send(h, http.MethodPost, "/api/Product/bulkSave", productBatch, map[string]string{
		"Authorization": "Bearer " + signToken(t, cfg.Auth.JWT, "Support"),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status without role: %d", w.Code)
	}

	w = send(h, http.MethodPost, "/api/Product/bulkSave", productBatch, map[string]string{
		"Authorization": "Bearer " + signToken(t, cfg.Auth.JWT, "Admin"),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status for admin %d: %s", w.Code, w.Body.String())
	}

	// health stays open
	w = send(h, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected health status: %d", w.Code)
	}
}

func TestWithAuth_EnabledWithoutValidatorRefuses(t *testing.T) {
	reached := false
	h := withAuth(config.AuthConfig{Enabled: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/bulkSave", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if reached {
		t.Fatalf("request must not reach the handler")
	}
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(t, testConfig(false))
	send(h, http.MethodPost, "/api/bulkSave", productBatch, nil)
	send(h, http.MethodPost, "/api/bulkSave", `{"save": [{"type": "Nope", "data": {}}]}`, nil)

	w := send(h, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`coalesce_bulk_save_requests_total{outcome="success"} 1`,
		`coalesce_bulk_save_requests_total{outcome="parse_error"} 1`,
		`coalesce_bulk_save_items_total{op="save"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output lacks %q:\n%s", want, body)
		}
	}
}

func TestRouter_MetricsDisabled(t *testing.T) {
	cfg := testConfig(false)
	cfg.Metrics.Enabled = false
	h := newTestRouter(t, cfg)

	w := send(h, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestWithRecovery(t *testing.T) {
	h := withRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}
