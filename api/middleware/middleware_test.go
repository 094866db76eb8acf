package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"perfumery_server/config"
	"perfumery_server/lib"
	"perfumery_server/services"
	"perfumery_server/structs"
	"strings"
	"testing"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

const testSecret = "test-access-secret"

func newTestMiddleware(t *testing.T) (*Middleware, *structs.Config, *services.CacheService) {
	t.Helper()
	logger := gecho.NewLogger(gecho.NewConfig(gecho.WithLogLevel(gecho.ParseLogLevel("error"))))

	cfg := config.Load()
	cfg.Auth.AccessTokenSecret = testSecret
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.GeneralLimit = 3
	cfg.RateLimit.GeneralWindow = time.Minute
	cfg.RateLimit.AuthLimit = 1
	cfg.RateLimit.AuthWindow = time.Minute
	cfg.RateLimit.AdminLimit = 2
	cfg.RateLimit.AdminWindow = time.Minute

	mr := miniredis.RunT(t)
	cfg.Cache.Address = mr.Addr()
	cache := services.NewCacheService(logger, cfg, services.NewRedisClient(cfg.Cache))
	t.Cleanup(func() { cache.Close() })

	authService := services.NewAuthService(logger, cfg, nil, cache, nil, nil)
	return NewMiddleware(cfg, logger, authService, cache), cfg, cache
}

func token(t *testing.T, role string) (string, *structs.AuthClaims) {
	t.Helper()
	now := time.Now()
	claims := &structs.AuthClaims{
		Sub:   uuid.New(),
		Email: "noor@example.com",
		Role:  role,
		Iat:   now,
		Exp:   now.Add(time.Hour),
		Jti:   uuid.New(),
	}
	tok, err := lib.SignToken(claims, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	return tok, claims
}

// claimsEcho answers 200 and reports the subject it saw, if any
var claimsEcho = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if claims, ok := GetClaimsFromContext(r.Context()); ok {
		w.Header().Set("X-Sub", claims.Sub.String())
	}
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		r.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestRequireAuth(t *testing.T) {
	mw, _, cache := newTestMiddleware(t)
	h := mw.RequireAuth(claimsEcho)

	if rec := serve(h, http.MethodGet, "/api/cart", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", rec.Code)
	}
	if rec := serve(h, http.MethodGet, "/api/cart", "not.a.jwt"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d", rec.Code)
	}

	tok, claims := token(t, structs.RoleCustomer)
	rec := serve(h, http.MethodGet, "/api/cart", tok)
	if rec.Code != http.StatusOK || rec.Header().Get("X-Sub") != claims.Sub.String() {
		t.Fatalf("valid token = %d, sub %q", rec.Code, rec.Header().Get("X-Sub"))
	}

	if err := cache.BlacklistToken(t.Context(), claims.Jti, claims.Exp); err != nil {
		t.Fatal(err)
	}
	if rec := serve(h, http.MethodGet, "/api/cart", tok); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token status = %d", rec.Code)
	}
}

func TestOptionalAuth(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)
	h := mw.OptionalAuth(claimsEcho)

	rec := serve(h, http.MethodGet, "/api/orders/x", "")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Sub") != "" {
		t.Fatalf("anonymous = %d, sub %q", rec.Code, rec.Header().Get("X-Sub"))
	}

	rec = serve(h, http.MethodGet, "/api/orders/x", "garbage")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Sub") != "" {
		t.Fatalf("bad token = %d, sub %q", rec.Code, rec.Header().Get("X-Sub"))
	}

	tok, claims := token(t, structs.RoleCustomer)
	rec = serve(h, http.MethodGet, "/api/orders/x", tok)
	if rec.Header().Get("X-Sub") != claims.Sub.String() {
		t.Fatalf("valid token sub = %q", rec.Header().Get("X-Sub"))
	}
}

func TestRequireAdmin(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)
	h := mw.RequireAuth(mw.RequireAdmin(claimsEcho))

	customer, _ := token(t, structs.RoleCustomer)
	if rec := serve(h, http.MethodGet, "/api/orders/stats", customer); rec.Code != http.StatusForbidden {
		t.Fatalf("customer status = %d", rec.Code)
	}
	admin, _ := token(t, structs.RoleAdmin)
	if rec := serve(h, http.MethodGet, "/api/orders/stats", admin); rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d", rec.Code)
	}
	if rec := serve(mw.RequireAdmin(claimsEcho), http.MethodGet, "/api/orders/stats", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("admin without auth status = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)
	h := mw.RateLimit()(claimsEcho)

	for i := range 3 {
		rec := serve(h, http.MethodGet, "/api/products", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
		if got, want := rec.Header().Get("X-RateLimit-Remaining"), []string{"2", "1", "0"}[i]; got != want {
			t.Fatalf("request %d remaining = %q, want %q", i+1, got, want)
		}
	}
	rec := serve(h, http.MethodGet, "/api/products", "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("over limit = %d, retry-after %q", rec.Code, rec.Header().Get("Retry-After"))
	}

	// auth has its own, stricter bucket
	if rec := serve(h, http.MethodPost, "/api/users/login", ""); rec.Code != http.StatusOK {
		t.Fatalf("first login status = %d", rec.Code)
	}
	if rec := serve(h, http.MethodPost, "/api/users/login/", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second login status = %d", rec.Code)
	}

	// probes are never limited
	for range 5 {
		if rec := serve(h, http.MethodGet, "/health/server", ""); rec.Code != http.StatusOK {
			t.Fatalf("health status = %d", rec.Code)
		}
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	mw, _, cache := newTestMiddleware(t)
	cache.Close()

	if rec := serve(mw.RateLimit()(claimsEcho), http.MethodGet, "/api/products", ""); rec.Code != http.StatusOK {
		t.Fatalf("status with cache down = %d", rec.Code)
	}
}

func TestRateLimitScopes(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	tests := []struct {
		method, path, want string
	}{
		{http.MethodPost, "/api/users/signup", scopeAuth},
		{http.MethodPost, "/api/users/token/refresh/", scopeAuth},
		{http.MethodGet, "/api/users/me", scopeGeneral},
		{http.MethodGet, "/api/products/", scopeGeneral},
		{http.MethodPost, "/api/products/", scopeAdmin},
		{http.MethodDelete, "/api/products/abc", scopeAdmin},
		{http.MethodGet, "/api/orders/stats", scopeAdmin},
		{http.MethodPut, "/api/orders/update/abc", scopeAdmin},
		{http.MethodPost, "/api/orders/create", scopeGeneral},
		{http.MethodDelete, "/debug/cache", scopeAdmin},
	}
	for _, tt := range tests {
		if scope, _, _ := mw.rateLimitFor(tt.path, tt.method); scope != tt.want {
			t.Errorf("%s %s scope = %s, want %s", tt.method, tt.path, scope, tt.want)
		}
	}
}

func TestSecurityHeadersAndBodyLimit(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	rec := serve(mw.SecurityHeaders()(claimsEcho), http.MethodGet, "/", "")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("headers = %v", rec.Header())
	}

	var called bool
	var readErr error
	h := mw.BodyLimit(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, readErr = io.ReadAll(r.Body)
	}))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long for the limit")))
	if rec.Code != http.StatusBadRequest || called {
		t.Fatalf("declared oversize body: status %d, handler called %v", rec.Code, called)
	}

	// unknown length is only caught while reading
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long for the limit"))
	r.ContentLength = -1
	h.ServeHTTP(httptest.NewRecorder(), r)
	if !called || readErr == nil {
		t.Fatal("body over the limit was read without error")
	}
}
