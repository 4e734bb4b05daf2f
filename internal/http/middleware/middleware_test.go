package middleware_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tailaid/tailaid-api/internal/auth"
	"github.com/tailaid/tailaid-api/internal/config"
	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/http/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders(t *testing.T) {
	cfg := &config.SecurityConfig{
		EnableHSTS:            true,
		HSTSMaxAge:            3600,
		HSTSIncludeSubdomains: true,
		ContentSecurityPolicy: "default-src 'self'",
		FrameOptions:          "DENY",
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
	}

	rr := httptest.NewRecorder()
	middleware.SecurityHeaders(cfg)(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'self'", rr.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "no-referrer", rr.Header().Get("Referrer-Policy"))
	assert.Equal(t, "max-age=3600; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
	assert.Empty(t, rr.Header().Get("Permissions-Policy"))
}

func TestSecurityHeaders_HSTSDisabled(t *testing.T) {
	rr := httptest.NewRecorder()
	middleware.SecurityHeaders(&config.SecurityConfig{})(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"))
	assert.Empty(t, rr.Header().Get("X-Content-Type-Options"))
}

func corsConfig(origins ...string) *config.CORSConfig {
	return &config.CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}
}

func corsRequest(t *testing.T, h http.Handler, origin string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	req.Header.Set("Origin", origin)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		environment string
		origin      string
		wantAllowed bool
	}{
		{"explicit origin allowed", []string{"https://tailaid.app"}, "production", "https://tailaid.app", true},
		{"explicit origin rejects others", []string{"https://tailaid.app"}, "production", "https://evil.example", false},
		{"wildcard allows any", []string{"*"}, "development", "https://anything.example", true},
		{"development default allows any", nil, "development", "http://localhost:19006", true},
		{"production default denies", nil, "production", "https://tailaid.app", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := middleware.CORS(corsConfig(tt.origins...), tt.environment, zap.NewNop())(okHandler)
			rr := corsRequest(t, h, tt.origin)

			if tt.wantAllowed {
				assert.Equal(t, tt.origin, rr.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORS_WildcardInProductionWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	middleware.CORS(corsConfig("*"), "production", zap.New(core))

	assert.Equal(t, 1, logs.Len())
}

func TestLogging_SetsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	var seen string
	h := middleware.Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.RequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/alerts", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(middleware.RequestIDHeader))
	require.Equal(t, 1, logs.Len())

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, seen, fields["request_id"])
	assert.Equal(t, int64(http.StatusCreated), fields["status_code"])
	assert.Equal(t, "/api/v1/alerts", fields["path"])
}

func TestLogging_ReusesIncomingRequestID(t *testing.T) {
	h := middleware.Logging(zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "client-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "client-123", rr.Header().Get(middleware.RequestIDHeader))
}

func TestLogging_IncludesTrackedUser(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	user := &auth.UserContext{UserID: uuid.New(), Name: "Oslo Dyreklinikk", Role: domain.RoleHospital}

	withUser := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserContext(r.Context(), user)))
		})
	}
	h := middleware.Logging(zap.New(core))(withUser(middleware.TrackUser(okHandler)))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, user.UserID.String(), fields["user_id"])
	assert.Equal(t, "hospital", fields["user_role"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := middleware.Logging(zap.NewNop())(middleware.Recovery(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rr := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var body domain.APIError
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, domain.ErrorTypeInternal, body.Type)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "boom", logs.All()[0].ContextMap()["panic"])
}

func rateLimitConfig() *config.RateLimitConfig {
	return &config.RateLimitConfig{
		Enabled:                true,
		RequestsPerMinute:      3,
		LoginRequestsPerMinute: 1,
		WhitelistIPs:           []string{"10.0.0.1"},
		WhitelistPaths:         []string{"/health", "/docs/*"},
	}
}

func hit(h http.Handler, path, ip string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":40000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestRateLimiter_LimitByIP(t *testing.T) {
	h := middleware.NewRateLimiter(rateLimitConfig(), zap.NewNop()).LimitByIP(okHandler)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "/api/v1/alerts", "203.0.113.5"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/api/v1/alerts", "203.0.113.5"))

	// Other clients have their own counter
	assert.Equal(t, http.StatusOK, hit(h, "/api/v1/alerts", "203.0.113.6"))
}

func TestRateLimiter_Whitelists(t *testing.T) {
	h := middleware.NewRateLimiter(rateLimitConfig(), zap.NewNop()).LimitByIP(okHandler)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "/api/v1/alerts", "10.0.0.1"))
		assert.Equal(t, http.StatusOK, hit(h, "/health", "203.0.113.7"))
		assert.Equal(t, http.StatusOK, hit(h, "/docs/index.html", "203.0.113.7"))
	}
}

func TestRateLimiter_LimitLogin(t *testing.T) {
	h := middleware.NewRateLimiter(rateLimitConfig(), zap.NewNop()).LimitLogin(okHandler)

	assert.Equal(t, http.StatusOK, hit(h, "/api/v1/auth/login", "198.51.100.9"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/login", nil)
	req.RemoteAddr = "198.51.100.9:40001"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	var body domain.APIError
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, domain.ErrorTypeTooManyRequests, body.Type)
}

func TestRateLimiter_IgnoresForwardedHeaders(t *testing.T) {
	h := middleware.NewRateLimiter(rateLimitConfig(), zap.NewNop()).LimitLogin(okHandler)

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "198.51.100.20:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("192.0.2.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes[rr.Code]++
	}
	assert.Equal(t, map[int]int{http.StatusOK: 1, http.StatusTooManyRequests: 4}, codes)

	// A whitelisted address in a header does not bypass the limit
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "198.51.100.20:40000"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestRateLimiter_Disabled(t *testing.T) {
	cfg := rateLimitConfig()
	cfg.Enabled = false
	h := middleware.NewRateLimiter(cfg, zap.NewNop()).LimitLogin(okHandler)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "/api/v1/auth/login", "198.51.100.10"))
	}
}
