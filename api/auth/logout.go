package auth

import (
	"errors"
	"net/http"
	"perfumery_server/api/middleware"
	"perfumery_server/handling"
	"perfumery_server/lib"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
)

// HandleLogout revokes the access token and, when sent, the refresh token
func (ar *AuthRoutesManager) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaimsFromContext(r.Context())

	refresh := ""
	body, err := lib.ExtractAndValidateBody[structs.LogoutRequest](r)
	switch {
	case err == nil:
		refresh = body.Refresh
	case !errors.Is(err, lib.ErrEmptyBody):
		handling.HandleError(err, "Invalid logout request", ar.logger, w)
		return
	}

	if err := ar.authService.Logout(r.Context(), claims, refresh); err != nil {
		handling.HandleError(err, "Unable to log you out. Please try again", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Logged out successfully"),
		gecho.Send(),
	)
}
