package health

import (
	"net/http"

	"github.com/MonkyMars/gecho"
)

func (hrm *HealthRoutesManager) GetServerHealth(w http.ResponseWriter, r *http.Request) {
	healthStatus := hrm.healthService.GetServerHealthStatus()
	gecho.Success(w,
		gecho.WithData(healthStatus),
		gecho.Send(),
	)
}

// GetDatabaseHealth reports Postgres and Redis connectivity, 503 when either is down
func (hrm *HealthRoutesManager) GetDatabaseHealth(w http.ResponseWriter, r *http.Request) {
	status := hrm.healthService.GetDatabaseHealthStatus(r.Context())
	if !status.Healthy() {
		hrm.logger.Warn("Dependency health check failed",
			gecho.Field("database", status.Database.Connected),
			gecho.Field("cache", status.Cache.Connected),
		)
		gecho.ServiceUnavailable(w,
			gecho.WithMessage("Dependency health check failed"),
			gecho.WithData(status),
			gecho.Send(),
		)
		return
	}
	gecho.Success(w,
		gecho.WithData(status),
		gecho.Send(),
	)
}
