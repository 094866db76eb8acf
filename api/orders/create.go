package orders

import (
	"net/http"
	"perfumery_server/api/middleware"
	"perfumery_server/handling"
	"perfumery_server/lib"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

// CreateOrder prices the basket server-side, takes the stock and stores the order
func (orm *OrderRoutesManager) CreateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[structs.OrderRequest](r)
	if err != nil {
		orm.logger.Debug("Failed to extract and validate order body", gecho.Field("error", err))
		handling.HandleError(err, "Please check the order information and try again", orm.logger, w)
		return
	}

	var userID *uuid.UUID
	if claims, ok := middleware.GetClaimsFromContext(r.Context()); ok {
		userID = &claims.Sub
	}

	order, err := orm.orderService.CreateOrder(r.Context(), body, userID)
	if err != nil {
		handling.HandleError(err, "Unable to place the order. Please try again", orm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Order placed successfully"),
		gecho.WithData(order),
		gecho.Send(),
	)
}
