package api

import (
	"github.com/go-chi/chi/v5"
)

// routeGroup is implemented by every *RoutesManager in the api subpackages
type routeGroup interface {
	RegisterRoutes(r chi.Router)
}

type routerManager struct {
	groups []routeGroup
}

// NewRouterManager mounts groups in order. Groups sharing a prefix must be
// registered by a single manager, chi panics on a second Route("/api/x").
func NewRouterManager(groups ...routeGroup) *routerManager {
	return &routerManager{groups: groups}
}

func (rm *routerManager) RegisterRoutes(r chi.Router) {
	for _, group := range rm.groups {
		group.RegisterRoutes(r)
	}
}
