package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/driftlabs/driftpay-backend/internal/sellers"
	"github.com/driftlabs/driftpay-backend/pkg/enums"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/outbox"
	"github.com/driftlabs/driftpay-backend/pkg/outbox/payloads"
	pkgstripe "github.com/driftlabs/driftpay-backend/pkg/stripe"
)

const actorSourceCheckout = "checkout"

type accountClient interface {
	CreateAccount(ctx context.Context, params pkgstripe.AccountCreateParams) (*stripe.Account, error)
	RetrieveAccount(ctx context.Context, accountID string) (*stripe.Account, error)
}

type ledgerInitializer interface {
	Initialize(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service guarantees a seller has a usable provider destination account
// before any sale session is created against it.
type Service interface {
	EnsureDestinationAccount(ctx context.Context, sellerID uuid.UUID) (string, error)
}

type service struct {
	sellerRepo       sellers.Repository
	ledger           ledgerInitializer
	accounts         accountClient
	txRunner         txRunner
	outbox           outboxPublisher
	logg             *logger.Logger
	provisionTimeout time.Duration
}

// NewService builds the provisioning gate. provisionTimeout bounds each
// provider call made while the seller row lock is held.
func NewService(sellerRepo sellers.Repository, ledger ledgerInitializer, accounts accountClient, runner txRunner, publisher outboxPublisher, logg *logger.Logger, provisionTimeout time.Duration) (Service, error) {
	if sellerRepo == nil {
		return nil, fmt.Errorf("seller repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger initializer required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account client required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if provisionTimeout <= 0 {
		return nil, fmt.Errorf("provision timeout must be positive")
	}
	return &service{
		sellerRepo:       sellerRepo,
		ledger:           ledger,
		accounts:         accounts,
		txRunner:         runner,
		outbox:           publisher,
		logg:             logg,
		provisionTimeout: provisionTimeout,
	}, nil
}

// EnsureDestinationAccount returns the seller's provider account id, creating
// the account on first use. The seller row lock serializes concurrent
// first-time calls and the deterministic idempotency key makes a crashed or
// retried creation converge on a single provider identity.
func (s *service) EnsureDestinationAccount(ctx context.Context, sellerID uuid.UUID) (string, error) {
	if sellerID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}

	var accountID string
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.sellerRepo.WithTx(tx)
		seller, err := repo.FindByIDForUpdate(ctx, sellerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
		}

		if seller.StripeAccountID != nil && *seller.StripeAccountID != "" {
			confirmed, err := s.confirmAccount(ctx, sellerID, *seller.StripeAccountID)
			if err != nil {
				return err
			}
			if confirmed {
				accountID = *seller.StripeAccountID
				return nil
			}
			// The provider no longer knows this identity. Clear it and
			// provision a fresh one under the same lock.
			if err := repo.Update(ctx, sellerID, map[string]any{
				"stripe_account_id":   nil,
				"verification_status": enums.VerificationStatusUnprovisioned,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear lost destination account")
			}
		}

		created, err := s.createAccount(ctx, seller.ID, seller.Email, seller.Country, seller.DisplayName)
		if err != nil {
			return err
		}

		capabilities := make(pq.StringArray, 0, 2)
		for _, capability := range enums.RequiredCapabilities() {
			capabilities = append(capabilities, string(capability))
		}
		if err := repo.Update(ctx, sellerID, map[string]any{
			"stripe_account_id":      created.ID,
			"verification_status":    enums.VerificationStatusProvisionedUnverified,
			"payout_mode":            enums.PayoutModeManual,
			"requested_capabilities": capabilities,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist destination account")
		}

		if err := s.ledger.Initialize(ctx, tx, sellerID); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventSellerProvisioned,
			AggregateType: enums.AggregateSeller,
			AggregateID:   sellerID,
			Version:       1,
			Actor:         &outbox.ActorRef{Source: actorSourceCheckout},
			Data: payloads.SellerProvisionedEvent{
				SellerID:        sellerID,
				StripeAccountID: created.ID,
				ProvisionedAt:   time.Now().UTC(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit provisioned event")
		}

		accountID = created.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return accountID, nil
}

// confirmAccount reports whether the stored provider identity still exists.
// Only a definitive "gone" answer (404 or a deletion tombstone) returns
// false; transient provider trouble aborts the call so a live identity is
// never abandoned on a network blip.
func (s *service) confirmAccount(ctx context.Context, sellerID uuid.UUID, accountID string) (bool, error) {
	confirmCtx, cancel := context.WithTimeout(ctx, s.provisionTimeout)
	defer cancel()

	acct, err := s.accounts.RetrieveAccount(confirmCtx, accountID)
	if err != nil {
		var appErr *pkgerrors.Error
		if errors.As(err, &appErr) && appErr.Code() == pkgerrors.CodeNotFound {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"seller_id":  sellerID.String(),
				"account_id": accountID,
			})
			s.logg.Warn(logCtx, "destination account lost at provider, reprovisioning")
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm destination account")
	}
	if acct != nil && acct.Deleted {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"seller_id":  sellerID.String(),
			"account_id": accountID,
		})
		s.logg.Warn(logCtx, "destination account deleted at provider, reprovisioning")
		return false, nil
	}
	return true, nil
}

func (s *service) createAccount(ctx context.Context, sellerID uuid.UUID, email, country, displayName string) (*stripe.Account, error) {
	createCtx, cancel := context.WithTimeout(ctx, s.provisionTimeout)
	defer cancel()

	acct, err := s.accounts.CreateAccount(createCtx, pkgstripe.AccountCreateParams{
		SellerID:       sellerID.String(),
		Email:          email,
		Country:        country,
		DisplayName:    displayName,
		IdempotencyKey: ProvisionIdempotencyKey(sellerID),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "destination account provisioning failed")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"seller_id":  sellerID.String(),
		"account_id": acct.ID,
	})
	s.logg.Info(logCtx, "destination account provisioned")
	return acct, nil
}

// ProvisionIdempotencyKey is deterministic per seller so the provider
// collapses retried creations onto one account.
func ProvisionIdempotencyKey(sellerID uuid.UUID) string {
	return "provision:" + sellerID.String()
}
