package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/driftlabs/driftpay-backend/pkg/enums"
)

// Seller represents a merchant selling through the platform. The provider
// destination account is provisioned lazily on first checkout, so
// StripeAccountID stays nil until the onboarding gate runs.
type Seller struct {
	ID                    uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email                 string                   `gorm:"column:email;not null;uniqueIndex"`
	DisplayName           string                   `gorm:"column:display_name;not null"`
	Country               string                   `gorm:"column:country;not null;default:'US'"`
	VerificationStatus    enums.VerificationStatus `gorm:"column:verification_status;type:verification_status_enum;not null;default:'unprovisioned'"`
	PayoutMode            enums.PayoutMode         `gorm:"column:payout_mode;type:payout_mode_enum;not null;default:'manual'"`
	StripeAccountID       *string                  `gorm:"column:stripe_account_id;unique"`
	RequestedCapabilities pq.StringArray           `gorm:"column:requested_capabilities;type:text[];default:ARRAY[]::text[]"`
	VerifiedAt            *time.Time               `gorm:"column:verified_at"`
	CreatedAt             time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
