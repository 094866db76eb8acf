package debug

import (
	"perfumery_server/api/middleware"
	"perfumery_server/services"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type DebugRoutesManager struct {
	logger       *gecho.Logger
	cfg          *structs.Config
	cacheService *services.CacheService
	mw           *middleware.Middleware
}

func NewDebugRoutesManager(logger *gecho.Logger, cfg *structs.Config, cacheService *services.CacheService, mw *middleware.Middleware) *DebugRoutesManager {
	return &DebugRoutesManager{
		logger:       logger,
		cfg:          cfg,
		cacheService: cacheService,
		mw:           mw,
	}
}

func (drm *DebugRoutesManager) RegisterRoutes(r chi.Router) {
	// Debug routes - only in non-production environments
	if drm.cfg.Server.Environment == "production" {
		return
	}
	r.Route("/debug", func(r chi.Router) {
		r.Use(drm.mw.RequireAuth)
		r.Use(drm.mw.RequireAdmin)
		r.Delete("/cache", drm.ClearCache)
	})
}
