package middleware

import (
	"net/http"

	"github.com/MonkyMars/gecho"
)

// RequestLogger logs one line per request with the middleware logger
func (mw *Middleware) RequestLogger() func(http.Handler) http.Handler {
	return gecho.Handlers.CreateLoggingMiddleware(mw.logger)
}
