package auth

import (
	"net/http"
	"perfumery_server/handling"
	"perfumery_server/lib"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
)

func (ar *AuthRoutesManager) HandleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[structs.LoginRequest](r)
	if err != nil {
		handling.HandleError(err, "Please check your login information", ar.logger, w)
		return
	}

	result, err := ar.authService.Login(r.Context(), body)
	if err != nil {
		handling.HandleError(err, "Unable to log you in. Please try again", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("Login successful"),
		gecho.WithData(result),
		gecho.Send(),
	)
}
