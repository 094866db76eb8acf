package health

import (
	"perfumery_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthRoutesManager struct {
	logger        *gecho.Logger
	healthService *services.HealthService
}

func NewHealthRoutesManager(logger *gecho.Logger, healthService *services.HealthService) *HealthRoutesManager {
	return &HealthRoutesManager{
		logger:        logger,
		healthService: healthService,
	}
}

func (hrm *HealthRoutesManager) RegisterRoutes(r chi.Router) {
	r.Get("/health/server", hrm.GetServerHealth)
	r.Get("/health/database", hrm.GetDatabaseHealth)

	// Prometheus metrics endpoint
	RegisterMetrics()
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}
