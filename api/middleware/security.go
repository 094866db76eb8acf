package middleware

import (
	"net/http"

	"github.com/MonkyMars/gecho"
)

// The API only ever answers JSON or PNG, so nothing needs to be framed or scripted
var securityHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "strict-origin-when-cross-origin",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	"Permissions-Policy":      "geolocation=(), camera=(), payment=()",
}

func (mw *Middleware) SecurityHeaders() func(http.Handler) http.Handler {
	production := mw.cfg.Server.Environment == "production"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := w.Header()
			for name, value := range securityHeaders {
				header.Set(name, value)
			}
			if production {
				header.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimit rejects requests that declare a body over maxBytes and caps the
// rest, so chunked uploads fail on read instead.
func (mw *Middleware) BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				gecho.BadRequest(w, gecho.WithMessage("Request body too large"), gecho.Send())
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
