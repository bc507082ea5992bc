package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/driftlabs/driftpay-backend/pkg/db"
	"github.com/driftlabs/driftpay-backend/pkg/db/models"
	"github.com/driftlabs/driftpay-backend/pkg/enums"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/outbox"
	"github.com/driftlabs/driftpay-backend/pkg/outbox/payloads"
)

const actorSourceWebhook = "stripe_webhook"

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service tracks the platform's pending liability toward each seller. Every
// mutation runs inside the caller's transaction under the per-seller row lock
// so concurrent completions and settlements serialize.
type Service interface {
	Initialize(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) error
	RecordSale(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, netCents int64) (*LedgerState, error)
	Snapshot(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*LedgerState, error)
	Reduce(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, byCents int64) error
	GetBySeller(ctx context.Context, sellerID uuid.UUID) (*LedgerState, error)
}

// LedgerState is a point-in-time view of one seller's ledger row.
type LedgerState struct {
	LedgerID         uuid.UUID  `json:"ledger_id"`
	SellerID         uuid.UUID  `json:"seller_id"`
	PendingCents     int64      `json:"pending_cents"`
	SaleCount        int64      `json:"sale_count"`
	NotificationSent bool       `json:"notification_sent"`
	NotifiedAt       *time.Time `json:"notified_at,omitempty"`
}

type service struct {
	repo            Repository
	outbox          outboxPublisher
	notifyThreshold int64
}

// NewService wires a ledger service with the provided repository and outbox.
// notifyThreshold is the completed sale count at which the one-time
// onboarding nudge event fires.
func NewService(repo Repository, publisher outboxPublisher, notifyThreshold int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notifyThreshold < 1 {
		return nil, fmt.Errorf("notify threshold must be >= 1, got %d", notifyThreshold)
	}
	return &service{
		repo:            repo,
		outbox:          publisher,
		notifyThreshold: int64(notifyThreshold),
	}, nil
}

// Initialize upserts the zero-balance ledger row for a freshly provisioned
// seller. Safe to call repeatedly.
func (s *service) Initialize(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if sellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}

	repo := s.repo.WithTx(tx)
	if _, err := repo.FindBySellerID(ctx, sellerID); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load earnings ledger")
	}

	if err := repo.Create(ctx, &models.EarningsLedger{SellerID: sellerID}); err != nil {
		if dbpkg.IsUniqueViolation(err, "seller_id") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create earnings ledger")
	}
	return nil
}

// RecordSale credits the net amount of one completed platform-held sale and
// bumps the sale counter. When the counter first reaches the configured
// threshold the notification flag flips and a threshold event is queued in
// the same transaction; the flag never flips back, so later sales are silent.
func (s *service) RecordSale(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, netCents int64) (*LedgerState, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if netCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "net cents must be non-negative")
	}

	repo := s.repo.WithTx(tx)
	row, err := s.lockOrCreate(ctx, repo, sellerID)
	if err != nil {
		return nil, err
	}

	pending := row.PendingCents + netCents
	count := row.SaleCount + 1
	updates := map[string]any{
		"pending_cents": pending,
		"sale_count":    count,
	}

	var notifiedAt *time.Time
	crossedThreshold := !row.NotificationSent && count >= s.notifyThreshold
	if crossedThreshold {
		now := time.Now().UTC()
		notifiedAt = &now
		updates["notification_sent"] = true
		updates["notified_at"] = now
	}

	if err := repo.Update(ctx, row.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update earnings ledger")
	}

	if crossedThreshold {
		event := outbox.DomainEvent{
			EventType:     enums.EventLedgerThresholdReached,
			AggregateType: enums.AggregateEarningsLedger,
			AggregateID:   row.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{Source: actorSourceWebhook},
			Data: payloads.LedgerThresholdReachedEvent{
				SellerID:     sellerID,
				LedgerID:     row.ID,
				PendingCents: pending,
				SaleCount:    count,
				Threshold:    s.notifyThreshold,
			},
		}
		// The flag flip and the event insert share the transaction; the
		// deduping emit keeps webhook re-delivery from queueing a second nudge.
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit threshold event")
		}
	}

	return &LedgerState{
		LedgerID:         row.ID,
		SellerID:         sellerID,
		PendingCents:     pending,
		SaleCount:        count,
		NotificationSent: row.NotificationSent || crossedThreshold,
		NotifiedAt:       coalesceTime(notifiedAt, row.NotifiedAt),
	}, nil
}

// Snapshot reads the ledger row under the caller's row lock. The reconciler
// uses the returned values as the settlement amounts.
func (s *service) Snapshot(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*LedgerState, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}

	row, err := s.repo.WithTx(tx).FindBySellerIDForUpdate(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &LedgerState{SellerID: sellerID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load earnings ledger")
	}
	return stateFromRow(row), nil
}

// Reduce subtracts a settled snapshot from the pending balance. The amount
// must have been snapshotted under the same lock discipline, so reducing past
// zero indicates a reconciler bug and is rejected.
func (s *service) Reduce(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID, byCents int64) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if sellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if byCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reduce amount must be non-negative")
	}
	if byCents == 0 {
		return nil
	}

	repo := s.repo.WithTx(tx)
	row, err := repo.FindBySellerIDForUpdate(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "ledger missing for seller with settled funds")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load earnings ledger")
	}
	if row.PendingCents < byCents {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("reduce %d exceeds pending balance %d", byCents, row.PendingCents))
	}

	updates := map[string]any{"pending_cents": row.PendingCents - byCents}
	if err := repo.Update(ctx, row.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update earnings ledger")
	}
	return nil
}

// GetBySeller reads the ledger without locking. Sellers that were never
// provisioned get a zero-value state.
func (s *service) GetBySeller(ctx context.Context, sellerID uuid.UUID) (*LedgerState, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	row, err := s.repo.FindBySellerID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &LedgerState{SellerID: sellerID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load earnings ledger")
	}
	return stateFromRow(row), nil
}

func (s *service) lockOrCreate(ctx context.Context, repo Repository, sellerID uuid.UUID) (*models.EarningsLedger, error) {
	row, err := repo.FindBySellerIDForUpdate(ctx, sellerID)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load earnings ledger")
	}

	// Provisioning normally creates the row before any sale can complete;
	// healing here covers rows lost to manual intervention.
	if err := repo.Create(ctx, &models.EarningsLedger{SellerID: sellerID}); err != nil && !dbpkg.IsUniqueViolation(err, "seller_id") {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create earnings ledger")
	}
	row, err = repo.FindBySellerIDForUpdate(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload earnings ledger")
	}
	return row, nil
}

func stateFromRow(row *models.EarningsLedger) *LedgerState {
	return &LedgerState{
		LedgerID:         row.ID,
		SellerID:         row.SellerID,
		PendingCents:     row.PendingCents,
		SaleCount:        row.SaleCount,
		NotificationSent: row.NotificationSent,
		NotifiedAt:       row.NotifiedAt,
	}
}

func coalesceTime(a, b *time.Time) *time.Time {
	if a != nil {
		return a
	}
	return b
}
