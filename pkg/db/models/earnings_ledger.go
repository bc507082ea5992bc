package models

import (
	"time"

	"github.com/google/uuid"
)

// EarningsLedger accumulates the platform's liability toward a seller whose
// sales were held pending verification. One row per seller; updates run under
// a row lock so concurrent sale completions serialize.
type EarningsLedger struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID         uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;uniqueIndex"`
	PendingCents     int64      `gorm:"column:pending_cents;not null;default:0"`
	SaleCount        int64      `gorm:"column:sale_count;not null;default:0"`
	NotificationSent bool       `gorm:"column:notification_sent;not null;default:false"`
	NotifiedAt       *time.Time `gorm:"column:notified_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
