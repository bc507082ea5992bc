package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/driftlabs/driftpay-backend/api/responses"
	"github.com/driftlabs/driftpay-backend/api/validators"
	"github.com/driftlabs/driftpay-backend/internal/checkout"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
)

type createSessionRequest struct {
	SellerID    string `json:"seller_id" validate:"required,uuid4"`
	AmountCents int64  `json:"amount_cents" validate:"required,min=50"`
	Quantity    int64  `json:"quantity" validate:"omitempty,min=1,max=100"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	ProductName string `json:"product_name" validate:"required,min=1,max=250"`
	SuccessURL  string `json:"success_url" validate:"required,url"`
	CancelURL   string `json:"cancel_url" validate:"required,url"`
}

// CheckoutCreateSession starts a hosted checkout for one seller's product.
func CheckoutCreateSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sellerID, err := uuid.Parse(req.SellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "seller id must be a valid uuid"))
			return
		}

		quantity := req.Quantity
		if quantity == 0 {
			quantity = 1
		}

		result, err := svc.CreateSession(r.Context(), checkout.CreateSessionInput{
			SellerID:    sellerID,
			AmountCents: req.AmountCents,
			Quantity:    quantity,
			Currency:    req.Currency,
			ProductName: req.ProductName,
			SuccessURL:  req.SuccessURL,
			CancelURL:   req.CancelURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
