package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/driftlabs/driftpay-backend/pkg/db/models"
)

// Repository exposes service-account persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a service-account repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByClientID retrieves the service account matching the provided client id.
func (r *Repository) FindByClientID(ctx context.Context, clientID string) (*models.ServiceAccount, error) {
	var account models.ServiceAccount
	if err := r.db.WithContext(ctx).Where("client_id = ?", clientID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateLastUsed refreshes the account's last_used_at timestamp.
func (r *Repository) UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ServiceAccount{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error
}
