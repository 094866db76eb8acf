package auth

import (
	"net/http"
	"perfumery_server/handling"
	"perfumery_server/lib"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
)

// HandleRefresh swaps a refresh token for a new pair; the old one is revoked
func (ar *AuthRoutesManager) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[structs.RefreshTokenRequest](r)
	if err != nil {
		handling.HandleError(err, "Refresh token missing", ar.logger, w)
		return
	}

	result, err := ar.authService.Refresh(r.Context(), body.Refresh)
	if err != nil {
		ar.logger.Debug("Failed to refresh access token", gecho.Field("error", err))
		handling.HandleError(err, "Unable to refresh your session", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Access token refreshed successfully"),
		gecho.WithData(result),
		gecho.Send(),
	)
}
