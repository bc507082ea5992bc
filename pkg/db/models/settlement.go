package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/driftlabs/driftpay-backend/pkg/enums"
)

// Settlement snapshots one attempt to transfer a seller's held balance. The
// row is committed before the provider transfer executes so a crash between
// the two leaves a pending record carrying the idempotency key to retry with.
type Settlement struct {
	ID                   uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID             uuid.UUID              `gorm:"column:seller_id;type:uuid;not null;index"`
	Status               enums.SettlementStatus `gorm:"column:status;type:settlement_status_enum;not null;default:'pending'"`
	AmountCents          int64                  `gorm:"column:amount_cents;not null"`
	SaleCount            int64                  `gorm:"column:sale_count;not null"`
	Currency             enums.Currency         `gorm:"column:currency;type:currency_enum;not null;default:'usd'"`
	IdempotencyKey       string                 `gorm:"column:idempotency_key;not null;uniqueIndex"`
	DestinationAccountID string                 `gorm:"column:destination_account_id;not null"`
	StripeTransferID     *string                `gorm:"column:stripe_transfer_id"`
	AttemptCount         int                    `gorm:"column:attempt_count;not null;default:0"`
	LastError            *string                `gorm:"column:last_error"`
	SettledAt            *time.Time             `gorm:"column:settled_at"`
	CreatedAt            time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
