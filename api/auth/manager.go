package auth

import (
	"perfumery_server/api/middleware"
	"perfumery_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type AuthRoutesManager struct {
	logger      *gecho.Logger
	authService *services.AuthService
	mw          *middleware.Middleware
}

func NewAuthRoutesManager(logger *gecho.Logger, authService *services.AuthService, mw *middleware.Middleware) *AuthRoutesManager {
	return &AuthRoutesManager{
		logger:      logger,
		authService: authService,
		mw:          mw,
	}
}

func (ar *AuthRoutesManager) RegisterRoutes(r chi.Router) {
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/signup", ar.HandleSignup)
		r.Post("/login", ar.HandleLogin)
		r.Post("/token/refresh", ar.HandleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(ar.mw.RequireAuth)
			r.Post("/logout", ar.HandleLogout)
			r.Get("/me", ar.HandleMe)
		})
	})
}
