package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/driftlabs/driftpay-backend/internal/ledger"
	"github.com/driftlabs/driftpay-backend/internal/routing"
	"github.com/driftlabs/driftpay-backend/internal/sellers"
	"github.com/driftlabs/driftpay-backend/pkg/db"
	"github.com/driftlabs/driftpay-backend/pkg/db/models"
	"github.com/driftlabs/driftpay-backend/pkg/enums"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/outbox"
	"github.com/driftlabs/driftpay-backend/pkg/outbox/payloads"
	pkgstripe "github.com/driftlabs/driftpay-backend/pkg/stripe"
)

const actorSourceWebhook = "stripe_webhook"

// CompletionOutcome classifies what a completion delivery did. Orphaned and
// duplicate deliveries are benign no-ops the webhook acknowledges with 200.
type CompletionOutcome string

const (
	CompletionRecorded         CompletionOutcome = "completed"
	CompletionOrphanedEvent    CompletionOutcome = "orphaned_event"
	CompletionDuplicateIgnored CompletionOutcome = "duplicate_ignored"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type destinationEnsurer interface {
	EnsureDestinationAccount(ctx context.Context, sellerID uuid.UUID) (string, error)
}

type routingDecider interface {
	DecideRouting(ctx context.Context, seller *models.Seller, grossCents int64, feeRateBp int) (*routing.RoutingPlan, error)
}

type sessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params pkgstripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

type saleRecorder interface {
	RecordSale(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, netCents int64) (*ledger.LedgerState, error)
}

// Service orchestrates sale session creation and completion.
type Service interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*SessionResult, error)
	CompleteSale(ctx context.Context, correlationKey string) (CompletionOutcome, error)
}

// CreateSessionInput is the validated request for one hosted checkout.
// AmountCents is the unit price; the charged gross is AmountCents*Quantity.
type CreateSessionInput struct {
	SellerID    uuid.UUID
	AmountCents int64
	Quantity    int64
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
}

// SessionResult returns everything the caller needs to send the buyer to
// the hosted payment page.
type SessionResult struct {
	SaleID     uuid.UUID             `json:"sale_id"`
	SessionID  string                `json:"session_id"`
	URL        string                `json:"url"`
	Strategy   enums.RoutingStrategy `json:"strategy"`
	GrossCents int64                 `json:"gross_cents"`
	FeeCents   int64                 `json:"fee_cents"`
	NetCents   int64                 `json:"net_cents"`
}

// ServiceParams collects the orchestration's collaborators.
type ServiceParams struct {
	SaleRepo          Repository
	SellerRepo        sellers.Repository
	Onboarding        destinationEnsurer
	Routing           routingDecider
	Sessions          sessionCreator
	Ledger            saleRecorder
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Logger            *logger.Logger
	FeeRateBp         int
	Currency          enums.Currency
}

type service struct {
	repo       Repository
	sellerRepo sellers.Repository
	onboarding destinationEnsurer
	routing    routingDecider
	sessions   sessionCreator
	ledger     saleRecorder
	txRunner   txRunner
	outbox     outboxPublisher
	logg       *logger.Logger
	feeRateBp  int
	currency   enums.Currency
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.SaleRepo == nil {
		return nil, fmt.Errorf("sale repository required")
	}
	if params.SellerRepo == nil {
		return nil, fmt.Errorf("seller repository required")
	}
	if params.Onboarding == nil {
		return nil, fmt.Errorf("onboarding service required")
	}
	if params.Routing == nil {
		return nil, fmt.Errorf("routing service required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session client required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.FeeRateBp < 0 || params.FeeRateBp > 10000 {
		return nil, fmt.Errorf("fee rate %d outside [0,10000] basis points", params.FeeRateBp)
	}
	if !params.Currency.IsValid() {
		return nil, fmt.Errorf("invalid platform currency %q", params.Currency)
	}
	return &service{
		repo:       params.SaleRepo,
		sellerRepo: params.SellerRepo,
		onboarding: params.Onboarding,
		routing:    params.Routing,
		sessions:   params.Sessions,
		ledger:     params.Ledger,
		txRunner:   params.TransactionRunner,
		outbox:     params.Outbox,
		logg:       params.Logger,
		feeRateBp:  params.FeeRateBp,
		currency:   params.Currency,
	}, nil
}

// CreateSession provisions the seller's destination account if needed,
// decides routing, creates the hosted session, and persists the sale. The
// provider session exists before the row does: an insert failure orphans the
// session and its completion webhook becomes a logged no-op.
func (s *service) CreateSession(ctx context.Context, input CreateSessionInput) (*SessionResult, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	seller, err := s.sellerRepo.FindByID(ctx, input.SellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}

	accountID, err := s.onboarding.EnsureDestinationAccount(ctx, seller.ID)
	if err != nil {
		return nil, err
	}
	seller.StripeAccountID = &accountID

	grossCents := input.AmountCents * input.Quantity
	plan, err := s.routing.DecideRouting(ctx, seller, grossCents, s.feeRateBp)
	if err != nil {
		return nil, err
	}

	saleID := uuid.New()
	session, err := s.sessions.CreateCheckoutSession(ctx, pkgstripe.CheckoutSessionCreateParams{
		CorrelationKey:       saleID.String(),
		ProductName:          input.ProductName,
		AmountCents:          input.AmountCents,
		Quantity:             input.Quantity,
		Currency:             string(s.currency),
		SuccessURL:           input.SuccessURL,
		CancelURL:            input.CancelURL,
		Direct:               plan.Strategy == enums.RoutingStrategyDirect,
		ApplicationFeeCents:  plan.FeeCents,
		DestinationAccountID: accountID,
		TransferGroup:        pkgstripe.SellerTransferGroup(seller.ID.String()),
		Metadata:             plan.Metadata,
		IdempotencyKey:       "sale:" + saleID.String(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	sale := &models.Sale{
		ID:                saleID,
		SellerID:          seller.ID,
		CorrelationKey:    session.ID,
		Status:            enums.SaleStatusCreated,
		RoutingStrategy:   plan.Strategy,
		GrossCents:        plan.GrossCents,
		FeeCents:          plan.FeeCents,
		NetCents:          plan.NetCents,
		FeeRateBp:         s.feeRateBp,
		Currency:          s.currency,
		ProviderSessionID: &session.ID,
	}
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, sale); err != nil {
			if db.IsUniqueViolation(err, "correlation_key") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sale already recorded for this session")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist sale")
		}
		return nil
	})
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"seller_id":  seller.ID.String(),
			"session_id": session.ID,
		})
		s.logg.Error(logCtx, "sale row insert failed, session orphaned", err)
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"seller_id":   seller.ID.String(),
		"sale_id":     saleID.String(),
		"session_id":  session.ID,
		"strategy":    string(plan.Strategy),
		"gross_cents": plan.GrossCents,
	})
	s.logg.Info(logCtx, "sale session created")

	return &SessionResult{
		SaleID:     saleID,
		SessionID:  session.ID,
		URL:        session.URL,
		Strategy:   plan.Strategy,
		GrossCents: plan.GrossCents,
		FeeCents:   plan.FeeCents,
		NetCents:   plan.NetCents,
	}, nil
}

// CompleteSale transitions the sale to completed and, for platform-held
// routing, credits the seller's ledger in the same transaction. The row lock
// plus the status check make re-delivery a no-op.
func (s *service) CompleteSale(ctx context.Context, correlationKey string) (CompletionOutcome, error) {
	if strings.TrimSpace(correlationKey) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "correlation key required")
	}

	var outcome CompletionOutcome
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale, err := repo.FindByCorrelationKeyForUpdate(ctx, correlationKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = CompletionOrphanedEvent
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if sale.Status == enums.SaleStatusCompleted {
			outcome = CompletionDuplicateIgnored
			return nil
		}

		now := time.Now().UTC()
		if err := repo.Update(ctx, sale.ID, map[string]any{
			"status":       enums.SaleStatusCompleted,
			"completed_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete sale")
		}

		if sale.RoutingStrategy == enums.RoutingStrategyPlatformHeld {
			if _, err := s.ledger.RecordSale(ctx, tx, sale.SellerID, sale.NetCents); err != nil {
				return err
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleCompleted,
			AggregateType: enums.AggregateSale,
			AggregateID:   sale.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{Source: actorSourceWebhook},
			Data: payloads.SaleCompletedEvent{
				SaleID:          sale.ID,
				SellerID:        sale.SellerID,
				CorrelationKey:  sale.CorrelationKey,
				RoutingStrategy: sale.RoutingStrategy,
				GrossCents:      sale.GrossCents,
				FeeCents:        sale.FeeCents,
				NetCents:        sale.NetCents,
				Currency:        sale.Currency,
				CompletedAt:     now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit sale completed event")
		}

		outcome = CompletionRecorded
		return nil
	})
	if err != nil {
		return "", err
	}

	switch outcome {
	case CompletionOrphanedEvent:
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"correlation_key": correlationKey}),
			"completion for unknown session, ignoring")
	case CompletionDuplicateIgnored:
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"correlation_key": correlationKey}),
			"completion re-delivered for settled sale, ignoring")
	}
	return outcome, nil
}

func (s *service) validateInput(input CreateSessionInput) error {
	if input.SellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if strings.TrimSpace(input.ProductName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if strings.TrimSpace(input.SuccessURL) == "" || strings.TrimSpace(input.CancelURL) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "success and cancel urls required")
	}
	if !strings.EqualFold(strings.TrimSpace(input.Currency), string(s.currency)) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("currency must be %s", s.currency))
	}
	return nil
}
