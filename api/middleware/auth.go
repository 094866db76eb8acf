package middleware

import (
	"context"
	"errors"
	"net/http"
	"perfumery_server/lib"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
)

// Context keys for storing user data in request context
type contextKey string

const ClaimsContextKey contextKey = "claims"

// RequireAuth protects routes to only logged-in users
func (mw *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := mw.authenticate(r)
		if err != nil {
			mw.logger.Debug("Rejected unauthenticated request", gecho.Field("error", err), gecho.Field("path", r.URL.Path))
			message := "Invalid or missing access token"
			if errors.Is(err, lib.ErrExpiredToken) {
				message = "Access token has expired"
			}
			gecho.Unauthorized(w, gecho.WithMessage(message), gecho.Send())
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches claims when a valid bearer token is present and
// lets anonymous requests through. A bad token is treated as no token.
func (mw *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := mw.authenticate(r)
		if err != nil {
			mw.logger.Debug("Ignoring invalid bearer token on public route", gecho.Field("error", err))
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin protects routes to only admin users
// Must be used after RequireAuth
func (mw *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaimsFromContext(r.Context())
		if !ok {
			gecho.Unauthorized(w, gecho.WithMessage("Invalid or missing access token"), gecho.Send())
			return
		}

		if !claims.IsAdmin() {
			mw.logger.Warn("Non-admin user attempted to access admin route", gecho.Field("user_id", claims.Sub), gecho.Field("role", claims.Role))
			gecho.Forbidden(w, gecho.WithMessage("Admin access required"), gecho.Send())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (mw *Middleware) authenticate(r *http.Request) (*structs.AuthClaims, error) {
	token, err := lib.BearerToken(r)
	if err != nil {
		return nil, err
	}
	return mw.authService.Authenticate(r.Context(), token)
}

// GetClaimsFromContext is a helper function to extract the claims from request context
func GetClaimsFromContext(ctx context.Context) (*structs.AuthClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*structs.AuthClaims)
	return claims, ok && claims != nil
}

// ClaimsOrNil returns the caller's claims, or nil for anonymous requests
func ClaimsOrNil(ctx context.Context) *structs.AuthClaims {
	claims, _ := GetClaimsFromContext(ctx)
	return claims
}
