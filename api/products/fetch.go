package products

import (
	"net/http"
	"perfumery_server/handling"

	"github.com/MonkyMars/gecho"
)

// FetchAllProducts handles GET /api/products/ with filtering, sorting and pagination
func (prm *ProductRoutesManager) FetchAllProducts(w http.ResponseWriter, r *http.Request) {
	opts, err := handling.ParseProductListOptions(r)
	if err != nil {
		prm.logger.Debug("Invalid query parameters", gecho.Field("error", err))
		gecho.BadRequest(w,
			gecho.WithMessage(err.Error()),
			gecho.Send(),
		)
		return
	}

	prm.logger.Debug("Fetching products",
		gecho.Field("category", opts.Category),
		gecho.Field("page", opts.Page),
		gecho.Field("page_size", opts.PageSize),
	)

	result, err := prm.productService.List(r.Context(), *opts)
	if err != nil {
		handling.HandleError(err, "Failed to fetch products", prm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(map[string]any{
			"products":   result.Products,
			"pagination": result.Pagination,
			"filters":    result.Filters,
		}),
		gecho.Send(),
	)
}

// FetchProductByID handles GET /api/products/{id}
func (prm *ProductRoutesManager) FetchProductByID(w http.ResponseWriter, r *http.Request) {
	id, err := handling.ParseID(r, "id")
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage("Invalid product id"), gecho.Send())
		return
	}

	product, err := prm.productService.Get(r.Context(), id)
	if err != nil {
		handling.HandleError(err, "Failed to fetch product", prm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(product),
		gecho.Send(),
	)
}

// FetchCategories handles GET /api/products/categories
func (prm *ProductRoutesManager) FetchCategories(w http.ResponseWriter, r *http.Request) {
	counts, err := prm.productService.Categories(r.Context())
	if err != nil {
		handling.HandleError(err, "Failed to fetch categories", prm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(counts),
		gecho.Send(),
	)
}
