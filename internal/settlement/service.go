package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/driftlabs/driftpay-backend/internal/ledger"
	"github.com/driftlabs/driftpay-backend/internal/sellers"
	"github.com/driftlabs/driftpay-backend/pkg/db/models"
	"github.com/driftlabs/driftpay-backend/pkg/enums"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/metrics"
	"github.com/driftlabs/driftpay-backend/pkg/outbox"
	"github.com/driftlabs/driftpay-backend/pkg/outbox/payloads"
	pkgstripe "github.com/driftlabs/driftpay-backend/pkg/stripe"
)

const (
	actorSourceWebhook = "stripe_webhook"

	// Automatic payouts map to the provider's daily schedule.
	payoutIntervalDaily = "daily"

	outcomeTransferFailed = "transfer_failed"
)

type ledgerService interface {
	Snapshot(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*ledger.LedgerState, error)
	Reduce(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, byCents int64) error
}

type transferClient interface {
	CreateTransfer(ctx context.Context, params pkgstripe.TransferCreateParams) (*stripe.Transfer, error)
	UpdatePayoutSchedule(ctx context.Context, accountID, interval string) (*stripe.Account, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service reconciles a seller's held balance when the provider reports a
// verification change. The transfer always happens strictly before the
// ledger clear: a crash in between leaves the pending row and its
// idempotency key behind, so the retry replays the same transfer instead of
// minting a new one.
type Service interface {
	OnVerificationChanged(ctx context.Context, providerAccountID string, chargesEnabled, transfersActive bool) (enums.SettlementOutcome, error)
}

// ServiceParams collects the reconciler's collaborators.
type ServiceParams struct {
	SellerRepo        sellers.Repository
	SettlementRepo    Repository
	Ledger            ledgerService
	Transfers         transferClient
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Logger            *logger.Logger
	Metrics           *metrics.PaymentMetrics
	Currency          enums.Currency
	TransferTimeout   time.Duration
}

type service struct {
	sellerRepo      sellers.Repository
	repo            Repository
	ledger          ledgerService
	transfers       transferClient
	txRunner        txRunner
	outbox          outboxPublisher
	logg            *logger.Logger
	metrics         *metrics.PaymentMetrics
	currency        enums.Currency
	transferTimeout time.Duration
}

// NewService builds the settlement reconciler.
func NewService(params ServiceParams) (Service, error) {
	if params.SellerRepo == nil {
		return nil, fmt.Errorf("seller repository required")
	}
	if params.SettlementRepo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Transfers == nil {
		return nil, fmt.Errorf("transfer client required")
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
	if !params.Currency.IsValid() {
		return nil, fmt.Errorf("invalid settlement currency %q", params.Currency)
	}
	if params.TransferTimeout <= 0 {
		return nil, fmt.Errorf("transfer timeout must be positive")
	}
	return &service{
		sellerRepo:      params.SellerRepo,
		repo:            params.SettlementRepo,
		ledger:          params.Ledger,
		transfers:       params.Transfers,
		txRunner:        params.TransactionRunner,
		outbox:          params.Outbox,
		logg:            params.Logger,
		metrics:         params.Metrics,
		currency:        params.Currency,
		transferTimeout: params.TransferTimeout,
	}, nil
}

// OnVerificationChanged runs the reconciliation for one account.updated
// delivery. Orphaned and partial verifications are acknowledged no-ops;
// only a failed transfer returns an error so the provider re-delivers.
func (s *service) OnVerificationChanged(ctx context.Context, providerAccountID string, chargesEnabled, transfersActive bool) (enums.SettlementOutcome, error) {
	if providerAccountID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "provider account id required")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"account_id": providerAccountID})

	if !chargesEnabled || !transfersActive {
		s.logg.Info(logCtx, "account update without full verification, nothing to settle")
		s.countOutcome(enums.SettlementOutcomeNotFullyVerified)
		return enums.SettlementOutcomeNotFullyVerified, nil
	}

	seller, err := s.sellerRepo.FindByStripeAccountID(ctx, providerAccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(logCtx, "verification event for unknown account, ignoring")
			s.countOutcome(enums.SettlementOutcomeOrphanedEvent)
			return enums.SettlementOutcomeOrphanedEvent, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up seller by account")
	}
	logCtx = s.logg.WithSellerID(logCtx, seller.ID.String())

	// Phase 1: snapshot under locks and make the transfer intent durable.
	var (
		row            *models.Settlement
		markedVerified bool
	)
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		sellerRepo := s.sellerRepo.WithTx(tx)
		locked, err := sellerRepo.FindByIDForUpdate(ctx, seller.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock seller")
		}

		snapshot, err := s.ledger.Snapshot(ctx, tx, seller.ID)
		if err != nil {
			return err
		}

		if snapshot.PendingCents <= 0 {
			markedVerified = true
			return s.markVerified(ctx, sellerRepo, locked, tx)
		}

		row, err = s.ensurePendingRow(ctx, tx, locked, snapshot)
		return err
	})
	if err != nil {
		return "", err
	}

	if markedVerified {
		s.logg.Info(logCtx, "seller verified with no held balance")
		s.flipPayoutSchedule(ctx, seller.ID, providerAccountID)
		s.countOutcome(enums.SettlementOutcomeMarkedVerified)
		return enums.SettlementOutcomeMarkedVerified, nil
	}

	// Phase 2: move the money. No DB transaction is open here.
	transfer, err := s.executeTransfer(ctx, row)
	if err != nil {
		s.recordTransferFailure(ctx, row, err)
		if s.metrics != nil {
			s.metrics.IncSettlement(outcomeTransferFailed)
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transfer held funds")
	}

	// Phase 3: clear the ledger and finalize the row.
	now := time.Now().UTC()
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		sellerRepo := s.sellerRepo.WithTx(tx)
		if _, err := sellerRepo.FindByIDForUpdate(ctx, seller.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "relock seller")
		}

		if err := s.ledger.Reduce(ctx, tx, seller.ID, row.AmountCents); err != nil {
			return err
		}

		if err := s.repo.WithTx(tx).Update(ctx, row.ID, map[string]any{
			"status":             enums.SettlementStatusSucceeded,
			"stripe_transfer_id": transfer.ID,
			"settled_at":         now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize settlement row")
		}

		if err := sellerRepo.Update(ctx, seller.ID, map[string]any{
			"verification_status": enums.VerificationStatusVerified,
			"verified_at":         now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark seller verified")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementSucceeded,
			AggregateType: enums.AggregateSettlement,
			AggregateID:   row.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{Source: actorSourceWebhook},
			Data: payloads.SettlementSucceededEvent{
				SettlementID:     row.ID,
				SellerID:         seller.ID,
				AmountCents:      row.AmountCents,
				SaleCount:        row.SaleCount,
				Currency:         row.Currency,
				StripeTransferID: transfer.ID,
				SettledAt:        now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit settlement event")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellerVerified,
			AggregateType: enums.AggregateSeller,
			AggregateID:   seller.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{Source: actorSourceWebhook},
			Data: payloads.SellerVerifiedEvent{
				SellerID:        seller.ID,
				StripeAccountID: providerAccountID,
				VerifiedAt:      now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit verified event")
		}
		return nil
	})
	if err != nil {
		// The transfer already happened. The row is still pending with its
		// idempotency key, so the provider-side dedupe absorbs the retry.
		return "", err
	}

	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"settlement_id": row.ID.String(),
		"amount_cents":  row.AmountCents,
		"transfer_id":   transfer.ID,
	}), "held balance settled")

	// Phase 4: best-effort payout schedule flip. Funds are already safe.
	s.flipPayoutSchedule(ctx, seller.ID, providerAccountID)
	s.countOutcome(enums.SettlementOutcomeSettled)
	return enums.SettlementOutcomeSettled, nil
}

func (s *service) markVerified(ctx context.Context, sellerRepo sellers.Repository, seller *models.Seller, tx *gorm.DB) error {
	if seller.VerificationStatus == enums.VerificationStatusVerified {
		return nil
	}
	now := time.Now().UTC()
	if err := sellerRepo.Update(ctx, seller.ID, map[string]any{
		"verification_status": enums.VerificationStatusVerified,
		"verified_at":         now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark seller verified")
	}

	accountID := ""
	if seller.StripeAccountID != nil {
		accountID = *seller.StripeAccountID
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSellerVerified,
		AggregateType: enums.AggregateSeller,
		AggregateID:   seller.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{Source: actorSourceWebhook},
		Data: payloads.SellerVerifiedEvent{
			SellerID:        seller.ID,
			StripeAccountID: accountID,
			VerifiedAt:      now,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit verified event")
	}
	return nil
}

// ensurePendingRow returns the seller's open transfer intent, creating one
// from the snapshot when none exists. A pending row whose destination no
// longer matches the seller's current account is superseded, never reused:
// its key would replay a transfer to the dead account.
func (s *service) ensurePendingRow(ctx context.Context, tx *gorm.DB, seller *models.Seller, snapshot *ledger.LedgerState) (*models.Settlement, error) {
	if seller.StripeAccountID == nil || *seller.StripeAccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "verified seller has no destination account")
	}

	repo := s.repo.WithTx(tx)
	row, err := repo.FindPendingBySellerForUpdate(ctx, seller.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending settlement")
	}
	if err == nil {
		if row.DestinationAccountID == *seller.StripeAccountID {
			return row, nil
		}
		if err := repo.Update(ctx, row.ID, map[string]any{
			"status":     enums.SettlementStatusFailed,
			"last_error": "destination account changed before transfer",
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "supersede stale settlement")
		}
	}

	fresh := &models.Settlement{
		ID:                   uuid.New(),
		SellerID:             seller.ID,
		Status:               enums.SettlementStatusPending,
		AmountCents:          snapshot.PendingCents,
		SaleCount:            snapshot.SaleCount,
		Currency:             s.currency,
		DestinationAccountID: *seller.StripeAccountID,
	}
	fresh.IdempotencyKey = SettlementIdempotencyKey(seller.ID, fresh.ID)
	if err := repo.Create(ctx, fresh); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create settlement row")
	}
	return fresh, nil
}

func (s *service) executeTransfer(ctx context.Context, row *models.Settlement) (*stripe.Transfer, error) {
	transferCtx, cancel := context.WithTimeout(ctx, s.transferTimeout)
	defer cancel()

	return s.transfers.CreateTransfer(transferCtx, pkgstripe.TransferCreateParams{
		AmountCents:          row.AmountCents,
		Currency:             string(row.Currency),
		DestinationAccountID: row.DestinationAccountID,
		TransferGroup:        pkgstripe.SellerTransferGroup(row.SellerID.String()),
		Description:          fmt.Sprintf("driftpay settlement %s", row.ID),
		Metadata: map[string]string{
			pkgstripe.MetadataSellerID: row.SellerID.String(),
		},
		IdempotencyKey: row.IdempotencyKey,
	})
}

// recordTransferFailure annotates the pending row so operators can see the
// retry history. The row keeps its status and key; the next delivery retries
// with the same snapshot.
func (s *service) recordTransferFailure(ctx context.Context, row *models.Settlement, transferErr error) {
	message := transferErr.Error()
	updates := map[string]any{
		"attempt_count": row.AttemptCount + 1,
		"last_error":    message,
	}
	if err := s.repo.Update(ctx, row.ID, updates); err != nil {
		s.logg.Error(ctx, "record transfer failure", err)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"settlement_id": row.ID.String(),
		"seller_id":     row.SellerID.String(),
		"attempt":       row.AttemptCount + 1,
	})
	s.logg.Warn(logCtx, "settlement transfer failed, will retry on redelivery")
}

// flipPayoutSchedule moves the seller to automatic payouts after
// verification. Failures only log: the marked_verified path re-runs this on
// the next account.updated delivery.
func (s *service) flipPayoutSchedule(ctx context.Context, sellerID uuid.UUID, accountID string) {
	seller, err := s.sellerRepo.FindByID(ctx, sellerID)
	if err != nil {
		s.logg.Error(ctx, "load seller for payout flip", err)
		return
	}
	if seller.PayoutMode == enums.PayoutModeAutomatic {
		return
	}

	flipCtx, cancel := context.WithTimeout(ctx, s.transferTimeout)
	defer cancel()
	if _, err := s.transfers.UpdatePayoutSchedule(flipCtx, accountID, payoutIntervalDaily); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"seller_id":  sellerID.String(),
			"account_id": accountID,
		})
		s.logg.Warn(logCtx, "payout schedule flip failed, retrying on next verification event")
		return
	}

	if err := s.sellerRepo.Update(ctx, sellerID, map[string]any{
		"payout_mode": enums.PayoutModeAutomatic,
	}); err != nil {
		s.logg.Error(ctx, "persist payout mode", err)
	}
}

func (s *service) countOutcome(outcome enums.SettlementOutcome) {
	if s.metrics != nil {
		s.metrics.IncSettlement(string(outcome))
	}
}

// SettlementIdempotencyKey is stable per settlement row, so a crash between
// the transfer and the ledger clear replays as the same provider transfer.
func SettlementIdempotencyKey(sellerID, settlementID uuid.UUID) string {
	return fmt.Sprintf("settlement:%s:%s", sellerID, settlementID)
}
