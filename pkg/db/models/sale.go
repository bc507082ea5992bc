package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/driftlabs/driftpay-backend/pkg/enums"
)

// Sale records one buyer payment routed through the platform. CorrelationKey
// carries the provider's payment reference and is unique, which makes
// completion idempotent across webhook re-deliveries.
type Sale struct {
	ID                uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID          uuid.UUID             `gorm:"column:seller_id;type:uuid;not null;index"`
	CorrelationKey    string                `gorm:"column:correlation_key;not null;uniqueIndex"`
	Status            enums.SaleStatus      `gorm:"column:status;type:sale_status_enum;not null;default:'created'"`
	RoutingStrategy   enums.RoutingStrategy `gorm:"column:routing_strategy;type:routing_strategy_enum;not null"`
	GrossCents        int64                 `gorm:"column:gross_cents;not null"`
	FeeCents          int64                 `gorm:"column:fee_cents;not null"`
	NetCents          int64                 `gorm:"column:net_cents;not null"`
	FeeRateBp         int                   `gorm:"column:fee_rate_bp;not null;default:0"`
	Currency          enums.Currency        `gorm:"column:currency;type:currency_enum;not null;default:'usd'"`
	ProviderSessionID *string               `gorm:"column:provider_session_id"`
	CompletedAt       *time.Time            `gorm:"column:completed_at"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
