package products

import (
	"net/http"
	"perfumery_server/handling"

	"github.com/MonkyMars/gecho"
)

func (prm *ProductRoutesManager) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := handling.ParseID(r, "id")
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage("Invalid product id"), gecho.Send())
		return
	}

	if err := prm.productService.Delete(r.Context(), id); err != nil {
		handling.HandleError(err, "Unable to delete product. Please try again", prm.logger, w)
		return
	}

	prm.logger.Info("Product deleted", gecho.Field("product_id", id))
	gecho.Success(w,
		gecho.WithMessage("Product deleted successfully"),
		gecho.Send(),
	)
}
