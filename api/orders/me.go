package orders

import (
	"net/http"
	"perfumery_server/api/middleware"
	"perfumery_server/handling"

	"github.com/MonkyMars/gecho"
)

func (orm *OrderRoutesManager) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaimsFromContext(r.Context())

	orders, err := orm.orderService.ListUserOrders(r.Context(), claims.Sub)
	if err != nil {
		handling.HandleError(err, "Failed to fetch your orders", orm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(orders),
		gecho.Send(),
	)
}

// GetOrder is open to the owner, an admin, or anyone holding a guest order's id
func (orm *OrderRoutesManager) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := handling.ParseID(r, "id")
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage("Invalid order id"), gecho.Send())
		return
	}

	order, err := orm.orderService.GetOrder(r.Context(), id, middleware.ClaimsOrNil(r.Context()))
	if err != nil {
		handling.HandleError(err, "Failed to fetch order", orm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(order),
		gecho.Send(),
	)
}

// GetOrderQR serves the receipt QR code as a PNG
func (orm *OrderRoutesManager) GetOrderQR(w http.ResponseWriter, r *http.Request) {
	id, err := handling.ParseID(r, "id")
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage("Invalid order id"), gecho.Send())
		return
	}

	png, err := orm.orderService.ReceiptQR(r.Context(), id, middleware.ClaimsOrNil(r.Context()))
	if err != nil {
		handling.HandleError(err, "Failed to render receipt", orm.logger, w)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		orm.logger.Warn("Failed to write receipt", gecho.Field("error", err))
	}
}
