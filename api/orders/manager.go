package orders

import (
	"perfumery_server/api/middleware"
	"perfumery_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type OrderRoutesManager struct {
	logger         *gecho.Logger
	orderService   *services.OrderService
	paymentService *services.PaymentService
	mw             *middleware.Middleware
}

func NewOrderRoutesManager(
	logger *gecho.Logger,
	orderService *services.OrderService,
	paymentService *services.PaymentService,
	mw *middleware.Middleware,
) *OrderRoutesManager {
	return &OrderRoutesManager{
		logger:         logger,
		orderService:   orderService,
		paymentService: paymentService,
		mw:             mw,
	}
}

func (orm *OrderRoutesManager) RegisterRoutes(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		// Guests may order and pay; a bearer token links the order to the user
		r.Group(func(r chi.Router) {
			r.Use(orm.mw.OptionalAuth)
			r.Post("/create", orm.CreateOrder)
			r.Get("/{id}", orm.GetOrder)
			r.Get("/{id}/qr", orm.GetOrderQR)
			r.Post("/{id}/pay", orm.PayOrder)
			r.Post("/{id}/payment-intent", orm.CreatePaymentIntent)
		})

		r.Group(func(r chi.Router) {
			r.Use(orm.mw.RequireAuth)
			r.Get("/mine", orm.GetMyOrders)
		})

		// Order management
		r.Group(func(r chi.Router) {
			r.Use(orm.mw.RequireAuth)
			r.Use(orm.mw.RequireAdmin)
			r.Get("/orders", orm.ListOrders)
			r.Get("/stats", orm.GetStats)
			r.Put("/update/{id}", orm.UpdateOrderStatus)
			r.Delete("/delete/{id}", orm.DeleteOrder)
		})
	})
}
