package products

import (
	"net/http"
	"perfumery_server/handling"

	"github.com/MonkyMars/gecho"
)

// CreateProduct accepts the admin form (multipart with an optional image) or JSON
func (prm *ProductRoutesManager) CreateProduct(w http.ResponseWriter, r *http.Request) {
	input, image, err := handling.ParseProductForm(r, prm.cfg.Storage.MaxImageBytes)
	if err != nil {
		prm.logger.Debug("Failed to parse product form", gecho.Field("error", err))
		handling.HandleError(err, "Please check the product information and try again", prm.logger, w)
		return
	}

	product, err := prm.productService.Create(r.Context(), input, image)
	if err != nil {
		handling.HandleError(err, "Unable to create product. Please try again", prm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(product),
		gecho.WithMessage("Product created successfully"),
		gecho.Send(),
	)
}
