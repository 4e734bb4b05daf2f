package middleware

import (
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/tailaid/tailaid-api/internal/config"
	"github.com/tailaid/tailaid-api/internal/domain"
	"go.uber.org/zap"
)

// rateWindow is the fixed window both limits are counted over
const rateWindow = time.Minute

// RateLimiter throttles clients by IP. Login has its own, smaller budget.
type RateLimiter struct {
	cfg    *config.RateLimitConfig
	logger *zap.Logger
	bypass bypassList

	general func(http.Handler) http.Handler
	login   func(http.Handler) http.Handler
}

func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:    cfg,
		logger: logger,
		bypass: newBypassList(cfg.WhitelistIPs, cfg.WhitelistPaths),
	}
	rl.general = rl.limiter(cfg.RequestsPerMinute)
	rl.login = rl.limiter(cfg.LoginRequestsPerMinute)

	if cfg.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("requests_per_minute", cfg.RequestsPerMinute),
			zap.Int("login_requests_per_minute", cfg.LoginRequestsPerMinute),
			zap.Int("bypass_ips", len(cfg.WhitelistIPs)),
			zap.Int("bypass_paths", len(cfg.WhitelistPaths)),
		)
	} else {
		logger.Warn("Rate limiting disabled")
	}
	return rl
}

// limiter counts per connection address. Each call gets its own counters.
func (rl *RateLimiter) limiter(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return nil
	}
	return httprate.Limit(perMinute, rateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rl.tooManyRequests),
	)
}

// LimitByIP applies the general per-IP limit
func (rl *RateLimiter) LimitByIP(next http.Handler) http.Handler {
	return rl.wrap(rl.general, next)
}

// LimitLogin applies the login limit
func (rl *RateLimiter) LimitLogin(next http.Handler) http.Handler {
	return rl.wrap(rl.login, next)
}

func (rl *RateLimiter) wrap(limiter func(http.Handler) http.Handler, next http.Handler) http.Handler {
	if !rl.cfg.Enabled || limiter == nil {
		return next
	}

	limited := limiter(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.bypass.matches(remoteIP(r), r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	rl.logger.Warn("rate limit exceeded",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("client_ip", remoteIP(r)),
		zap.String("request_id", RequestID(r.Context())),
	)

	w.Header().Set("Retry-After", "60")
	writeAPIError(w, http.StatusTooManyRequests, domain.ErrorTypeTooManyRequests, "Too many requests. Please try again later.")
}

// bypassList holds IPs and paths that are never limited. A path ending in
// "/*" matches everything below it.
type bypassList struct {
	ips      []string
	paths    []string
	prefixes []string
}

func newBypassList(ips, paths []string) bypassList {
	b := bypassList{ips: slices.Clone(ips)}
	for _, p := range paths {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			b.prefixes = append(b.prefixes, prefix)
			continue
		}
		b.paths = append(b.paths, p)
	}
	return b
}

func (b bypassList) matches(ip, path string) bool {
	if slices.Contains(b.ips, ip) || slices.Contains(b.paths, path) {
		return true
	}
	return slices.ContainsFunc(b.prefixes, func(prefix string) bool {
		return strings.HasPrefix(path, prefix)
	})
}

// remoteIP is the connection address. Proxy headers are client controlled
// and never decide whether a request is limited.
func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
