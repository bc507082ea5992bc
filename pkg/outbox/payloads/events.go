package payloads

import (
	"time"

	"github.com/driftlabs/driftpay-backend/pkg/enums"
	"github.com/google/uuid"
)

// SellerProvisionedEvent signals that a destination account now exists for
// the seller.
type SellerProvisionedEvent struct {
	SellerID        uuid.UUID `json:"seller_id"`
	StripeAccountID string    `json:"stripe_account_id"`
	ProvisionedAt   time.Time `json:"provisioned_at"`
}

// SellerVerifiedEvent is emitted when identity verification completes and the
// seller may receive funds directly.
type SellerVerifiedEvent struct {
	SellerID        uuid.UUID `json:"seller_id"`
	StripeAccountID string    `json:"stripe_account_id"`
	VerifiedAt      time.Time `json:"verified_at"`
}

// SaleCompletedEvent carries the immutable facts of one completed sale.
type SaleCompletedEvent struct {
	SaleID          uuid.UUID             `json:"sale_id"`
	SellerID        uuid.UUID             `json:"seller_id"`
	CorrelationKey  string                `json:"correlation_key"`
	RoutingStrategy enums.RoutingStrategy `json:"routing_strategy"`
	GrossCents      int64                 `json:"gross_cents"`
	FeeCents        int64                 `json:"fee_cents"`
	NetCents        int64                 `json:"net_cents"`
	Currency        enums.Currency        `json:"currency"`
	CompletedAt     time.Time             `json:"completed_at"`
}

// SettlementSucceededEvent reports that held funds reached the seller's
// destination account.
type SettlementSucceededEvent struct {
	SettlementID     uuid.UUID      `json:"settlement_id"`
	SellerID         uuid.UUID      `json:"seller_id"`
	AmountCents      int64          `json:"amount_cents"`
	SaleCount        int64          `json:"sale_count"`
	Currency         enums.Currency `json:"currency"`
	StripeTransferID string         `json:"stripe_transfer_id"`
	SettledAt        time.Time      `json:"settled_at"`
}

// LedgerThresholdReachedEvent tells downstream systems to nudge a seller whose
// held balance keeps growing while verification is incomplete.
type LedgerThresholdReachedEvent struct {
	SellerID     uuid.UUID `json:"seller_id"`
	LedgerID     uuid.UUID `json:"ledger_id"`
	PendingCents int64     `json:"pending_cents"`
	SaleCount    int64     `json:"sale_count"`
	Threshold    int64     `json:"threshold"`
}
