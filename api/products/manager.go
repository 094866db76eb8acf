package products

import (
	"perfumery_server/api/middleware"
	"perfumery_server/services"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type ProductRoutesManager struct {
	logger         *gecho.Logger
	cfg            *structs.Config
	productService *services.ProductService
	mw             *middleware.Middleware
}

func NewProductRoutesManager(
	logger *gecho.Logger,
	cfg *structs.Config,
	productService *services.ProductService,
	mw *middleware.Middleware,
) *ProductRoutesManager {
	return &ProductRoutesManager{
		logger:         logger,
		cfg:            cfg,
		productService: productService,
		mw:             mw,
	}
}

func (prm *ProductRoutesManager) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", prm.FetchAllProducts)
		r.Get("/categories", prm.FetchCategories)
		r.Get("/{id}", prm.FetchProductByID)

		// Catalog management
		r.Group(func(r chi.Router) {
			r.Use(prm.mw.RequireAuth)
			r.Use(prm.mw.RequireAdmin)
			r.Post("/", prm.CreateProduct)
			r.Post("/add", prm.CreateProduct)
			r.Put("/{id}", prm.UpdateProduct)
			r.Delete("/{id}", prm.DeleteProduct)
		})
	})
}
