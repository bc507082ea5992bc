package routing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/driftlabs/driftpay-backend/pkg/db/models"
	"github.com/driftlabs/driftpay-backend/pkg/enums"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/metrics"
	pkgstripe "github.com/driftlabs/driftpay-backend/pkg/stripe"
)

type accountRetriever interface {
	RetrieveAccount(ctx context.Context, accountID string) (*stripe.Account, error)
}

// Service decides, per checkout, whether funds flow straight to the seller or
// stay on the platform balance until verification completes.
type Service interface {
	DecideRouting(ctx context.Context, seller *models.Seller, grossCents int64, feeRateBp int) (*RoutingPlan, error)
}

// RoutingPlan carries the strategy plus the exact money split and the session
// metadata the completion handler later relies on.
type RoutingPlan struct {
	Strategy   enums.RoutingStrategy `json:"strategy"`
	GrossCents int64                 `json:"gross_cents"`
	FeeCents   int64                 `json:"fee_cents"`
	NetCents   int64                 `json:"net_cents"`
	Degraded   bool                  `json:"degraded"`
	Metadata   map[string]string     `json:"metadata"`
}

type service struct {
	accounts          accountRetriever
	logg              *logger.Logger
	metrics           *metrics.PaymentMetrics
	capabilityTimeout time.Duration
}

// NewService builds the routing decision service. capabilityTimeout bounds
// the live capability lookup against the provider.
func NewService(accounts accountRetriever, logg *logger.Logger, payments *metrics.PaymentMetrics, capabilityTimeout time.Duration) (Service, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account retriever required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if capabilityTimeout <= 0 {
		return nil, fmt.Errorf("capability timeout must be positive")
	}
	return &service{
		accounts:          accounts,
		logg:              logg,
		metrics:           payments,
		capabilityTimeout: capabilityTimeout,
	}, nil
}

// ComputeFeeSplit splits gross into platform fee and seller net using
// round-half-up integer math. The remainder always lands in the fee, so
// fee + net == gross holds for every input.
func ComputeFeeSplit(grossCents int64, feeRateBp int) (feeCents, netCents int64, err error) {
	if grossCents < 0 {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "gross amount must be non-negative")
	}
	if feeRateBp < 0 || feeRateBp > 10000 {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("fee rate %d outside [0,10000] basis points", feeRateBp))
	}
	feeCents = (grossCents*int64(feeRateBp) + 5000) / 10000
	netCents = grossCents - feeCents
	return feeCents, netCents, nil
}

func (s *service) DecideRouting(ctx context.Context, seller *models.Seller, grossCents int64, feeRateBp int) (*RoutingPlan, error) {
	if seller == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller required")
	}
	if seller.StripeAccountID == nil || *seller.StripeAccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "seller has no destination account")
	}

	feeCents, netCents, err := ComputeFeeSplit(grossCents, feeRateBp)
	if err != nil {
		return nil, err
	}

	strategy, degraded := s.lookupStrategy(ctx, seller)
	if s.metrics != nil {
		s.metrics.IncRoutingDecision(string(strategy), degraded)
	}

	return &RoutingPlan{
		Strategy:   strategy,
		GrossCents: grossCents,
		FeeCents:   feeCents,
		NetCents:   netCents,
		Degraded:   degraded,
		Metadata: map[string]string{
			pkgstripe.MetadataSellerID: seller.ID.String(),
			pkgstripe.MetadataStrategy: string(strategy),
			pkgstripe.MetadataNetCents: strconv.FormatInt(netCents, 10),
		},
	}, nil
}

// lookupStrategy asks the provider for the account's live transfer
// capability. The provider answer wins over the locally cached verification
// status; when the provider cannot answer we hold the funds rather than risk
// a transfer to an unready destination.
func (s *service) lookupStrategy(ctx context.Context, seller *models.Seller) (enums.RoutingStrategy, bool) {
	capCtx, cancel := context.WithTimeout(ctx, s.capabilityTimeout)
	defer cancel()

	acct, err := s.accounts.RetrieveAccount(capCtx, *seller.StripeAccountID)
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"seller_id":  seller.ID.String(),
			"account_id": *seller.StripeAccountID,
			"error":      err.Error(),
		})
		s.logg.Warn(logCtx, "capability check failed, holding funds on platform")
		return enums.RoutingStrategyPlatformHeld, true
	}

	if pkgstripe.TransfersActive(acct) {
		return enums.RoutingStrategyDirect, false
	}
	return enums.RoutingStrategyPlatformHeld, false
}
