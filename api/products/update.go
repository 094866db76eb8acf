package products

import (
	"net/http"
	"perfumery_server/handling"

	"github.com/MonkyMars/gecho"
)

// UpdateProduct applies a partial update. Omitted fields keep their value.
func (prm *ProductRoutesManager) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := handling.ParseID(r, "id")
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage("Invalid product id"), gecho.Send())
		return
	}

	input, image, err := handling.ParseProductForm(r, prm.cfg.Storage.MaxImageBytes)
	if err != nil {
		handling.HandleError(err, "Please check the product information and try again", prm.logger, w)
		return
	}

	product, err := prm.productService.Update(r.Context(), id, input, image)
	if err != nil {
		handling.HandleError(err, "Unable to update product. Please try again", prm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(product),
		gecho.WithMessage("Product updated successfully"),
		gecho.Send(),
	)
}
