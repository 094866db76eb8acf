package handling

import (
	"errors"
	"net/http"
	"perfumery_server/lib"

	"github.com/MonkyMars/gecho"
)

var (
	notFoundErrors = []error{
		lib.ErrNotFound,
		lib.ErrProductNotFound,
		lib.ErrOrderNotFound,
	}
	conflictErrors = []error{
		lib.ErrConflict,
		lib.ErrEmailTaken,
		lib.ErrInsufficientStock,
		lib.ErrInvalidTransition,
		lib.ErrOrderNotPayable,
		lib.ErrOutOfStock,
	}
	badRequestErrors = []error{
		lib.ErrInvalid,
		lib.ErrInvalidCard,
		lib.ErrCardExpired,
		lib.ErrEmptyCart,
		lib.ErrItemNotInCart,
		lib.ErrInvalidQuantity,
		lib.ErrUnsupportedImageType,
		lib.ErrImageTooLarge,
		lib.ErrEmptyBody,
		lib.ErrMalformedBody,
	}
	unauthorizedErrors = []error{
		lib.ErrInvalidCredentials,
		lib.ErrInvalidToken,
		lib.ErrExpiredToken,
		lib.ErrUnauthorized,
	}
	unavailableErrors = []error{
		lib.ErrPaymentUnavailable,
		lib.ErrStorageUnavailable,
	}
)

// HandleError answers a request that failed with err. Domain errors get
// their own status and message; anything else is logged and hidden behind
// a 500 carrying msg. The response is sent before it returns.
func HandleError(err error, msg string, logger *gecho.Logger, w http.ResponseWriter) {
	var validationErr *lib.ValidationError
	if errors.As(err, &validationErr) {
		gecho.BadRequest(w,
			gecho.WithMessage("Please check the submitted fields"),
			gecho.WithData(validationErr),
			gecho.Send(),
		)
		return
	}

	switch {
	case isAny(err, notFoundErrors):
		gecho.NotFound(w, gecho.WithMessage(err.Error()), gecho.Send())
	case isAny(err, conflictErrors):
		gecho.Conflict(w, gecho.WithMessage(err.Error()), gecho.Send())
	case isAny(err, badRequestErrors):
		gecho.BadRequest(w, gecho.WithMessage(err.Error()), gecho.Send())
	case isAny(err, unauthorizedErrors):
		gecho.Unauthorized(w, gecho.WithMessage(err.Error()), gecho.Send())
	case errors.Is(err, lib.ErrForbidden):
		gecho.Forbidden(w, gecho.WithMessage(err.Error()), gecho.Send())
	case isAny(err, unavailableErrors):
		gecho.ServiceUnavailable(w, gecho.WithMessage(err.Error()), gecho.Send())
	default:
		logger.Error("An error occurred", gecho.Field("error", err), gecho.Field("msg", msg), gecho.WithCallerSkip(3))
		gecho.InternalServerError(w, gecho.WithMessage(msg), gecho.Send())
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
