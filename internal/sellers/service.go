package sellers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/driftlabs/driftpay-backend/internal/ledger"
	"github.com/driftlabs/driftpay-backend/pkg/db"
	"github.com/driftlabs/driftpay-backend/pkg/db/models"
	"github.com/driftlabs/driftpay-backend/pkg/enums"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/pagination"
)

const defaultCountry = "US"

type ledgerReader interface {
	GetBySeller(ctx context.Context, sellerID uuid.UUID) (*ledger.LedgerState, error)
}

type saleLister interface {
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Sale, *pagination.Cursor, error)
}

type settlementLister interface {
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Settlement, *pagination.Cursor, error)
}

// RegisterInput is the validated payload for a new seller account.
type RegisterInput struct {
	Email       string
	DisplayName string
	Country     string
}

// SellerWithLedger pairs the seller row with its current earnings state.
// Unprovisioned sellers get a zero-value ledger.
type SellerWithLedger struct {
	Seller models.Seller      `json:"seller"`
	Ledger ledger.LedgerState `json:"ledger"`
}

// SaleList is one page of a seller's sale history.
type SaleList struct {
	Items  []models.Sale `json:"items"`
	Cursor string        `json:"cursor,omitempty"`
}

// SettlementList is one page of a seller's settlement history.
type SettlementList struct {
	Items  []models.Settlement `json:"items"`
	Cursor string              `json:"cursor,omitempty"`
}

// Service covers seller registration and read models.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Seller, error)
	Get(ctx context.Context, id uuid.UUID) (*SellerWithLedger, error)
	ListSales(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*SaleList, error)
	ListSettlements(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*SettlementList, error)
}

type service struct {
	repo        Repository
	ledger      ledgerReader
	sales       saleLister
	settlements settlementLister
	logg        *logger.Logger
}

// NewService builds the sellers service.
func NewService(repo Repository, ledgerSvc ledgerReader, sales saleLister, settlements settlementLister, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("seller repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if sales == nil {
		return nil, fmt.Errorf("sale lister required")
	}
	if settlements == nil {
		return nil, fmt.Errorf("settlement lister required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		ledger:      ledgerSvc,
		sales:       sales,
		settlements: settlements,
		logg:        logg,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Seller, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name required")
	}
	country := strings.ToUpper(strings.TrimSpace(input.Country))
	if country == "" {
		country = defaultCountry
	}
	if len(country) != 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "country must be a two-letter code")
	}

	seller := &models.Seller{
		ID:                 uuid.New(),
		Email:              email,
		DisplayName:        displayName,
		Country:            country,
		VerificationStatus: enums.VerificationStatusUnprovisioned,
		PayoutMode:         enums.PayoutModeManual,
	}
	if err := s.repo.Create(ctx, seller); err != nil {
		if db.IsUniqueViolation(err, "email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create seller")
	}

	s.logg.Info(s.logg.WithSellerID(ctx, seller.ID.String()), "seller registered")
	return seller, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SellerWithLedger, error) {
	seller, err := s.loadSeller(ctx, id)
	if err != nil {
		return nil, err
	}
	state, err := s.ledger.GetBySeller(ctx, seller.ID)
	if err != nil {
		return nil, err
	}
	return &SellerWithLedger{Seller: *seller, Ledger: *state}, nil
}

func (s *service) ListSales(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*SaleList, error) {
	if err := s.checkListParams(ctx, sellerID, params); err != nil {
		return nil, err
	}
	items, next, err := s.sales.ListBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	return &SaleList{Items: items, Cursor: encodeCursor(next)}, nil
}

func (s *service) ListSettlements(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*SettlementList, error) {
	if err := s.checkListParams(ctx, sellerID, params); err != nil {
		return nil, err
	}
	items, next, err := s.settlements.ListBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlements")
	}
	return &SettlementList{Items: items, Cursor: encodeCursor(next)}, nil
}

func (s *service) loadSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	seller, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	return seller, nil
}

// checkListParams rejects malformed cursors before the repository query so
// clients get a 400 rather than a dependency error.
func (s *service) checkListParams(ctx context.Context, sellerID uuid.UUID, params pagination.Params) error {
	if _, err := s.loadSeller(ctx, sellerID); err != nil {
		return err
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return nil
}

func encodeCursor(cursor *pagination.Cursor) string {
	if cursor == nil {
		return ""
	}
	return pagination.EncodeCursor(*cursor)
}
