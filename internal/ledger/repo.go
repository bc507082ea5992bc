package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/driftlabs/driftpay-backend/pkg/db/models"
)

// Repository manages persistence for earnings ledger rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.EarningsLedger, error)
	FindBySellerIDForUpdate(ctx context.Context, sellerID uuid.UUID) (*models.EarningsLedger, error)
	Create(ctx context.Context, ledger *models.EarningsLedger) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.EarningsLedger, error) {
	var ledger models.EarningsLedger
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *repository) FindBySellerIDForUpdate(ctx context.Context, sellerID uuid.UUID) (*models.EarningsLedger, error) {
	var ledger models.EarningsLedger
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("seller_id = ?", sellerID).
		First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *repository) Create(ctx context.Context, ledger *models.EarningsLedger) error {
	return r.db.WithContext(ctx).Create(ledger).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.EarningsLedger{}).
		Where("id = ?", id).
		Updates(updates).Error
}
