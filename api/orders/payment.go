package orders

import (
	"net/http"
	"perfumery_server/api/middleware"
	"perfumery_server/handling"
	"perfumery_server/lib"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
)

// PayOrder runs the demo card payment. Card data is never logged.
func (orm *OrderRoutesManager) PayOrder(w http.ResponseWriter, r *http.Request) {
	id, err := handling.ParseID(r, "id")
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage("Invalid order id"), gecho.Send())
		return
	}

	body, err := lib.ExtractAndValidateBody[structs.PaymentRequest](r)
	if err != nil {
		handling.HandleError(err, "Please check the card details and try again", orm.logger, w)
		return
	}

	order, err := orm.paymentService.PayWithCard(r.Context(), id, middleware.ClaimsOrNil(r.Context()), body)
	if err != nil {
		handling.HandleError(err, "Payment could not be processed", orm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Payment successful"),
		gecho.WithData(order),
		gecho.Send(),
	)
}

func (orm *OrderRoutesManager) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	id, err := handling.ParseID(r, "id")
	if err != nil {
		gecho.BadRequest(w, gecho.WithMessage("Invalid order id"), gecho.Send())
		return
	}

	intent, err := orm.paymentService.CreatePaymentIntent(r.Context(), id, middleware.ClaimsOrNil(r.Context()))
	if err != nil {
		handling.HandleError(err, "Payment could not be started", orm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(intent),
		gecho.Send(),
	)
}
