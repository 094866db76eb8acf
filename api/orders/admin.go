package orders

import (
	"net/http"
	"perfumery_server/handling"
	"perfumery_server/lib"
	"perfumery_server/structs"
	"perfumery_server/structs/tables"

	"github.com/MonkyMars/gecho"
)

// ListOrders handles GET /api/orders/orders with status and search filters
func (orm *OrderRoutesManager) ListOrders(w http.ResponseWriter, r *http.Request) {
	opts, err := handling.ParseOrderListOptions(r)
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage(err.Error()), gecho.Send())
		return
	}

	result, err := orm.orderService.ListOrders(r.Context(), *opts)
	if err != nil {
		handling.HandleError(err, "Failed to fetch orders", orm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(result),
		gecho.Send(),
	)
}

func (orm *OrderRoutesManager) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := orm.orderService.Stats(r.Context())
	if err != nil {
		handling.HandleError(err, "Failed to fetch dashboard stats", orm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(stats),
		gecho.Send(),
	)
}

func (orm *OrderRoutesManager) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := handling.ParseID(r, "id")
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage("Invalid order id"), gecho.Send())
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.UpdateOrderStatusRequest](r)
	if err != nil {
		handling.HandleError(err, "Please provide a valid status", orm.logger, w)
		return
	}

	order, err := orm.orderService.UpdateOrderStatus(r.Context(), id, tables.OrderStatus(body.Status))
	if err != nil {
		handling.HandleError(err, "Failed to update order status", orm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Order status updated"),
		gecho.WithData(order),
		gecho.Send(),
	)
}

func (orm *OrderRoutesManager) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := handling.ParseID(r, "id")
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage("Invalid order id"), gecho.Send())
		return
	}

	if err := orm.orderService.DeleteOrder(r.Context(), id); err != nil {
		handling.HandleError(err, "Failed to delete order", orm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Order deleted"),
		gecho.Send(),
	)
}
