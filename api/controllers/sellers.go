package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/driftlabs/driftpay-backend/api/responses"
	"github.com/driftlabs/driftpay-backend/api/validators"
	"github.com/driftlabs/driftpay-backend/internal/sellers"
	"github.com/driftlabs/driftpay-backend/pkg/db/models"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/pagination"
	"github.com/driftlabs/driftpay-backend/pkg/types"
)

type registerSellerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=120"`
	Country     string `json:"country" validate:"omitempty,len=2"`
}

type sellerResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	DisplayName        string     `json:"display_name"`
	Country            string     `json:"country"`
	VerificationStatus string     `json:"verification_status"`
	PayoutMode         string     `json:"payout_mode"`
	StripeAccountID    *string    `json:"stripe_account_id,omitempty"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type sellerDetailResponse struct {
	Seller         sellerResponse `json:"seller"`
	PendingBalance types.Money    `json:"pending_balance"`
	SaleCount      int64          `json:"sale_count"`
}

type saleResponse struct {
	ID              uuid.UUID   `json:"id"`
	Status          string      `json:"status"`
	RoutingStrategy string      `json:"routing_strategy"`
	Gross           types.Money `json:"gross"`
	Fee             types.Money `json:"fee"`
	Net             types.Money `json:"net"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

type settlementResponse struct {
	ID          uuid.UUID   `json:"id"`
	Status      string      `json:"status"`
	Amount      types.Money `json:"amount"`
	SaleCount   int64       `json:"sale_count"`
	TransferID  *string     `json:"transfer_id,omitempty"`
	SettledAt   *time.Time  `json:"settled_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	LastError   *string     `json:"last_error,omitempty"`
	Attempts    int         `json:"attempts"`
}

type pageResponse[T any] struct {
	Items  []T    `json:"items"`
	Cursor string `json:"cursor,omitempty"`
}

// SellerRegister creates a new seller in the unprovisioned state.
func SellerRegister(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerSellerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		seller, err := svc.Register(r.Context(), sellers.RegisterInput{
			Email:       req.Email,
			DisplayName: req.DisplayName,
			Country:     req.Country,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toSellerResponse(seller))
	}
}

// SellerGet returns the seller and its current pending balance.
func SellerGet(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sellerDetailResponse{
			Seller:         toSellerResponse(&detail.Seller),
			PendingBalance: types.NewMoney(detail.Ledger.PendingCents, "usd"),
			SaleCount:      detail.Ledger.SaleCount,
		})
	}
}

// SellerSales lists the seller's sale history, newest first.
func SellerSales(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListSales(r.Context(), sellerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]saleResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, toSaleResponse(&page.Items[i]))
		}
		responses.WriteSuccess(w, pageResponse[saleResponse]{Items: items, Cursor: page.Cursor})
	}
}

// SellerSettlements lists the seller's settlement attempts, newest first.
func SellerSettlements(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListSettlements(r.Context(), sellerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]settlementResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, toSettlementResponse(&page.Items[i]))
		}
		responses.WriteSuccess(w, pageResponse[settlementResponse]{Items: items, Cursor: page.Cursor})
	}
}

func sellerIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "sellerID"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id must be a valid uuid")
	}
	return id, nil
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func toSellerResponse(seller *models.Seller) sellerResponse {
	return sellerResponse{
		ID:                 seller.ID,
		Email:              seller.Email,
		DisplayName:        seller.DisplayName,
		Country:            seller.Country,
		VerificationStatus: string(seller.VerificationStatus),
		PayoutMode:         string(seller.PayoutMode),
		StripeAccountID:    seller.StripeAccountID,
		VerifiedAt:         seller.VerifiedAt,
		CreatedAt:          seller.CreatedAt,
	}
}

func toSaleResponse(sale *models.Sale) saleResponse {
	currency := string(sale.Currency)
	return saleResponse{
		ID:              sale.ID,
		Status:          string(sale.Status),
		RoutingStrategy: string(sale.RoutingStrategy),
		Gross:           types.NewMoney(sale.GrossCents, currency),
		Fee:             types.NewMoney(sale.FeeCents, currency),
		Net:             types.NewMoney(sale.NetCents, currency),
		CompletedAt:     sale.CompletedAt,
		CreatedAt:       sale.CreatedAt,
	}
}

func toSettlementResponse(settlement *models.Settlement) settlementResponse {
	return settlementResponse{
		ID:         settlement.ID,
		Status:     string(settlement.Status),
		Amount:     types.NewMoney(settlement.AmountCents, string(settlement.Currency)),
		SaleCount:  settlement.SaleCount,
		TransferID: settlement.StripeTransferID,
		SettledAt:  settlement.SettledAt,
		CreatedAt:  settlement.CreatedAt,
		LastError:  settlement.LastError,
		Attempts:   settlement.AttemptCount,
	}
}
