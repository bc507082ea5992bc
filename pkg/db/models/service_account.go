package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceAccount is a machine caller of the API. Secrets are stored as
// argon2id hashes and exchanged for short-lived access tokens.
type ServiceAccount struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID   string     `gorm:"column:client_id;not null;uniqueIndex"`
	Name       string     `gorm:"column:name;not null"`
	SecretHash string     `gorm:"column:secret_hash;not null"`
	IsActive   bool       `gorm:"column:is_active;not null;default:true"`
	LastUsedAt *time.Time `gorm:"column:last_used_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
