package cart

import (
	"perfumery_server/api/middleware"
	"perfumery_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type CartRoutesManager struct {
	logger      *gecho.Logger
	cartService *services.CartService
	mw          *middleware.Middleware
}

func NewCartRoutesManager(logger *gecho.Logger, cartService *services.CartService, mw *middleware.Middleware) *CartRoutesManager {
	return &CartRoutesManager{
		logger:      logger,
		cartService: cartService,
		mw:          mw,
	}
}

func (crm *CartRoutesManager) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(crm.mw.RequireAuth)

		r.Get("/", crm.GetCart)
		r.Delete("/", crm.ClearCart)
		r.Post("/items", crm.AddItem)
		r.Post("/items/{id}/increment", crm.IncrementItem)
		r.Post("/items/{id}/decrement", crm.DecrementItem)
		r.Delete("/items/{id}", crm.RemoveItem)
		r.Post("/checkout", crm.Checkout)
	})
}
