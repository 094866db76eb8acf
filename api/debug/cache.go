package debug

import (
	"net/http"
	"perfumery_server/api/middleware"
	"perfumery_server/handling"

	"github.com/MonkyMars/gecho"
)

// ClearCache flushes the Redis database, including carts and the token blacklist
func (drm *DebugRoutesManager) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := drm.cacheService.ClearAll(r.Context()); err != nil {
		handling.HandleError(err, "Failed to clear the cache", drm.logger, w)
		return
	}

	claims, _ := middleware.GetClaimsFromContext(r.Context())
	drm.logger.Warn("Cache cleared", gecho.Field("admin_id", claims.Sub))
	gecho.Success(w,
		gecho.WithMessage("Cache cleared"),
		gecho.Send(),
	)
}
