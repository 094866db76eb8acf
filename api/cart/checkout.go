package cart

import (
	"net/http"
	"perfumery_server/api/middleware"
	"perfumery_server/handling"
	"perfumery_server/lib"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
)

// Checkout turns the cart into an order and empties it
func (crm *CartRoutesManager) Checkout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaimsFromContext(r.Context())

	body, err := lib.ExtractAndValidateBody[structs.CheckoutRequest](r)
	if err != nil {
		handling.HandleError(err, "Please check your delivery details", crm.logger, w)
		return
	}

	order, err := crm.cartService.Checkout(r.Context(), claims.Sub, body)
	if err != nil {
		handling.HandleError(err, "Unable to place the order. Please try again", crm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Order placed successfully"),
		gecho.WithData(order),
		gecho.Send(),
	)
}
