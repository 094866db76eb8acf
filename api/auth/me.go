package auth

import (
	"net/http"
	"perfumery_server/api/middleware"
	"perfumery_server/handling"

	"github.com/MonkyMars/gecho"
)

func (ar *AuthRoutesManager) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaimsFromContext(r.Context())

	user, err := ar.authService.Me(r.Context(), claims.Sub)
	if err != nil {
		handling.HandleError(err, "Failed to fetch your account", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(user),
		gecho.Send(),
	)
}
