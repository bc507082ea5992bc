package controllers

import (
	"net/http"

	"github.com/driftlabs/driftpay-backend/api/responses"
	"github.com/driftlabs/driftpay-backend/api/validators"
	"github.com/driftlabs/driftpay-backend/internal/auth"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
)

type tokenRequest struct {
	ClientID     string `json:"client_id" validate:"required,min=3,max=128"`
	ClientSecret string `json:"client_secret" validate:"required,min=8,max=256"`
}

// AuthToken exchanges service-account credentials for a bearer token.
func AuthToken(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := svc.IssueToken(r.Context(), auth.TokenRequest{
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, token)
	}
}
