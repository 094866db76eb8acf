package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MonkyMars/gecho"
)

const (
	scopeAuth    = "auth"
	scopeAdmin   = "admin"
	scopeGeneral = "general"
)

var authPaths = []string{
	"/api/users/login",
	"/api/users/signup",
	"/api/users/token/refresh",
	"/api/users/logout",
}

var adminOrderPaths = []string{
	"/api/orders/orders",
	"/api/orders/update",
	"/api/orders/delete",
	"/api/orders/stats",
}

// rateLimitFor determines the scope and limit to apply to a request
func (mw *Middleware) rateLimitFor(path, method string) (string, int, time.Duration) {
	path = strings.TrimSuffix(path, "/")

	for _, p := range authPaths {
		if path == p {
			return scopeAuth, mw.cfg.RateLimit.AuthLimit, mw.cfg.RateLimit.AuthWindow
		}
	}

	isAdmin := strings.HasPrefix(path, "/debug")
	if strings.HasPrefix(path, "/api/products") && method != http.MethodGet {
		isAdmin = true
	}
	for _, p := range adminOrderPaths {
		if strings.HasPrefix(path, p) {
			isAdmin = true
		}
	}
	if isAdmin {
		return scopeAdmin, mw.cfg.RateLimit.AdminLimit, mw.cfg.RateLimit.AdminWindow
	}

	return scopeGeneral, mw.cfg.RateLimit.GeneralLimit, mw.cfg.RateLimit.GeneralWindow
}

// getClientIP extracts the client IP. chi's RealIP has already folded
// X-Forwarded-For and X-Real-IP into RemoteAddr.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit applies a fixed window limit per client and scope. Cache errors
// let the request through.
func (mw *Middleware) RateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mw.cfg.RateLimit.Enabled || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			// Skip rate limiting for probes and scrapes
			if r.URL.Path == "/" || r.URL.Path == "/metrics" || strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := getClientIP(r)
			scope, limit, window := mw.rateLimitFor(r.URL.Path, r.Method)

			count, ttl, err := mw.cacheService.IncrementRateLimit(r.Context(), clientIP, scope, window)
			if err != nil {
				mw.logger.Warn("Rate limit cache error, allowing request",
					gecho.Field("error", err),
					gecho.Field("ip", clientIP),
					gecho.Field("scope", scope),
				)
				next.ServeHTTP(w, r)
				return
			}

			if ttl <= 0 {
				ttl = window
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, limit-count)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

			if count > limit {
				retryAfter := int(ttl.Round(time.Second).Seconds())
				mw.logger.Warn("Rate limit exceeded",
					gecho.Field("ip", clientIP),
					gecho.Field("scope", scope),
					gecho.Field("count", count),
					gecho.Field("limit", limit),
				)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				gecho.TooManyRequests(w,
					gecho.WithMessage("Rate limit exceeded. Please try again later."),
					gecho.WithData(map[string]any{
						"limit":       limit,
						"window":      window.String(),
						"retry_after": retryAfter,
					}),
					gecho.Send(),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
