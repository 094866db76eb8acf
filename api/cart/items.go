package cart

import (
	"context"
	"net/http"
	"perfumery_server/api/middleware"
	"perfumery_server/handling"
	"perfumery_server/lib"
	"perfumery_server/services"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

func (crm *CartRoutesManager) GetCart(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaimsFromContext(r.Context())

	view, err := crm.cartService.Get(r.Context(), claims.Sub)
	crm.respond(w, view, err, "Failed to load your cart")
}

func (crm *CartRoutesManager) ClearCart(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaimsFromContext(r.Context())

	view, err := crm.cartService.Clear(r.Context(), claims.Sub)
	crm.respond(w, view, err, "Failed to clear your cart")
}

// AddItem puts a product in the cart; a missing quantity adds one unit
func (crm *CartRoutesManager) AddItem(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaimsFromContext(r.Context())

	body, err := lib.ExtractAndValidateBody[structs.CartItemRequest](r)
	if err != nil {
		handling.HandleError(err, "Please check the cart item", crm.logger, w)
		return
	}

	view, err := crm.cartService.Add(r.Context(), claims.Sub, body.ProductID, body.Quantity)
	crm.respond(w, view, err, "Failed to add the item to your cart")
}

func (crm *CartRoutesManager) IncrementItem(w http.ResponseWriter, r *http.Request) {
	crm.withItem(w, r, crm.cartService.Increment)
}

func (crm *CartRoutesManager) DecrementItem(w http.ResponseWriter, r *http.Request) {
	crm.withItem(w, r, crm.cartService.Decrement)
}

func (crm *CartRoutesManager) RemoveItem(w http.ResponseWriter, r *http.Request) {
	crm.withItem(w, r, crm.cartService.Remove)
}

type itemMutation func(ctx context.Context, userID, productID uuid.UUID) (*services.CartView, error)

func (crm *CartRoutesManager) withItem(w http.ResponseWriter, r *http.Request, mutate itemMutation) {
	claims, _ := middleware.GetClaimsFromContext(r.Context())

	productID, err := handling.ParseID(r, "id")
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage("Invalid product id"), gecho.Send())
		return
	}

	view, err := mutate(r.Context(), claims.Sub, productID)
	crm.respond(w, view, err, "Failed to update your cart")
}

func (crm *CartRoutesManager) respond(w http.ResponseWriter, view *services.CartView, err error, msg string) {
	if err != nil {
		handling.HandleError(err, msg, crm.logger, w)
		return
	}
	gecho.Success(w,
		gecho.WithData(view),
		gecho.Send(),
	)
}
