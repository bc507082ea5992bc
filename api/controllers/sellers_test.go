package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/driftlabs/driftpay-backend/internal/ledger"
	"github.com/driftlabs/driftpay-backend/internal/sellers"
	"github.com/driftlabs/driftpay-backend/pkg/db/models"
	"github.com/driftlabs/driftpay-backend/pkg/enums"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/pagination"
)

type fakeSellerService struct {
	register        func(ctx context.Context, input sellers.RegisterInput) (*models.Seller, error)
	get             func(ctx context.Context, id uuid.UUID) (*sellers.SellerWithLedger, error)
	listSales       func(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*sellers.SaleList, error)
	listSettlements func(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*sellers.SettlementList, error)
}

func (f *fakeSellerService) Register(ctx context.Context, input sellers.RegisterInput) (*models.Seller, error) {
	return f.register(ctx, input)
}

func (f *fakeSellerService) Get(ctx context.Context, id uuid.UUID) (*sellers.SellerWithLedger, error) {
	return f.get(ctx, id)
}

func (f *fakeSellerService) ListSales(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*sellers.SaleList, error) {
	return f.listSales(ctx, sellerID, params)
}

func (f *fakeSellerService) ListSettlements(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*sellers.SettlementList, error) {
	return f.listSettlements(ctx, sellerID, params)
}

func requestWithSellerID(method, target, sellerID string, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rc := chi.NewRouteContext()
	rc.URLParams.Add("sellerID", sellerID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestSellerRegister_Success(t *testing.T) {
	sellerID := uuid.New()
	svc := &fakeSellerService{
		register: func(ctx context.Context, input sellers.RegisterInput) (*models.Seller, error) {
			if input.Email != "merchant@example.com" {
				t.Fatalf("unexpected email %q", input.Email)
			}
			return &models.Seller{
				ID:                 sellerID,
				Email:              input.Email,
				DisplayName:        input.DisplayName,
				Country:            "US",
				VerificationStatus: enums.VerificationStatusUnprovisioned,
				PayoutMode:         enums.PayoutModeManual,
				CreatedAt:          time.Now().UTC(),
			}, nil
		},
	}
	handler := SellerRegister(svc, nil)

	body := `{"email":"merchant@example.com","display_name":"Drift Goods"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sellers", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data sellerResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.ID != sellerID {
		t.Fatalf("unexpected seller id %s", payload.Data.ID)
	}
	if payload.Data.VerificationStatus != string(enums.VerificationStatusUnprovisioned) {
		t.Fatalf("unexpected status %s", payload.Data.VerificationStatus)
	}
}

func TestSellerRegister_RejectsInvalidEmail(t *testing.T) {
	svc := &fakeSellerService{
		register: func(ctx context.Context, input sellers.RegisterInput) (*models.Seller, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	handler := SellerRegister(svc, nil)

	body := `{"email":"not-an-email","display_name":"Drift Goods"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sellers", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSellerGet_Success(t *testing.T) {
	sellerID := uuid.New()
	svc := &fakeSellerService{
		get: func(ctx context.Context, id uuid.UUID) (*sellers.SellerWithLedger, error) {
			if id != sellerID {
				t.Fatalf("unexpected id %s", id)
			}
			return &sellers.SellerWithLedger{
				Seller: models.Seller{
					ID:                 sellerID,
					Email:              "merchant@example.com",
					DisplayName:        "Drift Goods",
					VerificationStatus: enums.VerificationStatusProvisionedUnverified,
				},
				Ledger: ledger.LedgerState{
					SellerID:     sellerID,
					PendingCents: 12345,
					SaleCount:    3,
				},
			}, nil
		},
	}
	handler := SellerGet(svc, nil)

	req := requestWithSellerID(http.MethodGet, "/api/v1/sellers/"+sellerID.String(), sellerID.String(), "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data sellerDetailResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.PendingBalance.Cents != 12345 {
		t.Fatalf("unexpected balance %d", payload.Data.PendingBalance.Cents)
	}
	if payload.Data.PendingBalance.Display != "123.45" {
		t.Fatalf("unexpected display %s", payload.Data.PendingBalance.Display)
	}
	if payload.Data.SaleCount != 3 {
		t.Fatalf("unexpected sale count %d", payload.Data.SaleCount)
	}
}

func TestSellerGet_RejectsBadID(t *testing.T) {
	svc := &fakeSellerService{}
	handler := SellerGet(svc, nil)

	req := requestWithSellerID(http.MethodGet, "/api/v1/sellers/nope", "nope", "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSellerGet_NotFound(t *testing.T) {
	svc := &fakeSellerService{
		get: func(ctx context.Context, id uuid.UUID) (*sellers.SellerWithLedger, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		},
	}
	handler := SellerGet(svc, nil)

	req := requestWithSellerID(http.MethodGet, "/api/v1/sellers/"+uuid.NewString(), uuid.NewString(), "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSellerSales_PassesPagination(t *testing.T) {
	sellerID := uuid.New()
	svc := &fakeSellerService{
		listSales: func(ctx context.Context, id uuid.UUID, params pagination.Params) (*sellers.SaleList, error) {
			if params.Limit != 10 {
				t.Fatalf("expected limit 10, got %d", params.Limit)
			}
			if params.Cursor != "abc" {
				t.Fatalf("expected cursor abc, got %q", params.Cursor)
			}
			return &sellers.SaleList{
				Items: []models.Sale{
					{
						ID:              uuid.New(),
						SellerID:        id,
						Status:          enums.SaleStatusCompleted,
						RoutingStrategy: enums.RoutingStrategyPlatformHeld,
						GrossCents:      5000,
						FeeCents:        500,
						NetCents:        4500,
						Currency:        enums.CurrencyUSD,
					},
				},
				Cursor: "next",
			}, nil
		},
	}
	handler := SellerSales(svc, nil)

	req := requestWithSellerID(http.MethodGet, "/api/v1/sellers/"+sellerID.String()+"/sales?limit=10&cursor=abc", sellerID.String(), "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data pageResponse[saleResponse] `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Data.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(payload.Data.Items))
	}
	if payload.Data.Items[0].Net.Cents != 4500 {
		t.Fatalf("unexpected net %d", payload.Data.Items[0].Net.Cents)
	}
	if payload.Data.Cursor != "next" {
		t.Fatalf("unexpected cursor %q", payload.Data.Cursor)
	}
}

func TestSellerSettlements_Success(t *testing.T) {
	sellerID := uuid.New()
	transferID := "tr_123"
	svc := &fakeSellerService{
		listSettlements: func(ctx context.Context, id uuid.UUID, params pagination.Params) (*sellers.SettlementList, error) {
			return &sellers.SettlementList{
				Items: []models.Settlement{
					{
						ID:               uuid.New(),
						SellerID:         id,
						Status:           enums.SettlementStatusSucceeded,
						AmountCents:      4500,
						SaleCount:        1,
						Currency:         enums.CurrencyUSD,
						StripeTransferID: &transferID,
						AttemptCount:     1,
					},
				},
			}, nil
		},
	}
	handler := SellerSettlements(svc, nil)

	req := requestWithSellerID(http.MethodGet, "/api/v1/sellers/"+sellerID.String()+"/settlements", sellerID.String(), "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data pageResponse[settlementResponse] `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Data.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(payload.Data.Items))
	}
	if payload.Data.Items[0].TransferID == nil || *payload.Data.Items[0].TransferID != transferID {
		t.Fatalf("expected transfer id preserved")
	}
}
