package auth

import (
	"net/http"
	"perfumery_server/handling"
	"perfumery_server/lib"
	"perfumery_server/structs"

	"github.com/MonkyMars/gecho"
)

func (ar *AuthRoutesManager) HandleSignup(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[structs.SignupRequest](r)
	if err != nil {
		ar.logger.Debug("Failed to extract and validate signup body", gecho.Field("error", err))
		handling.HandleError(err, "Please check your registration information", ar.logger, w)
		return
	}

	user, err := ar.authService.Signup(r.Context(), body)
	if err != nil {
		handling.HandleError(err, "Unable to create your account. Please try again", ar.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("User created successfully"),
		gecho.WithData(map[string]any{
			"user": user,
		}),
		gecho.Send(),
	)
}
