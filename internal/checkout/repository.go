package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/driftlabs/driftpay-backend/pkg/db/models"
	"github.com/driftlabs/driftpay-backend/pkg/pagination"
)

// Repository manages sale persistence. The correlation key is the provider's
// session id and carries a unique index, so completion lookups and webhook
// dedup both run through it.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.Sale) error
	FindByCorrelationKey(ctx context.Context, key string) (*models.Sale, error)
	FindByCorrelationKeyForUpdate(ctx context.Context, key string) (*models.Sale, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Sale, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sale repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) FindByCorrelationKey(ctx context.Context, key string) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Where("correlation_key = ?", key).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindByCorrelationKeyForUpdate(ctx context.Context, key string) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("correlation_key = ?", key).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Sale, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Sale{}).Where("seller_id = ?", sellerID)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var sales []models.Sale
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&sales).Error; err != nil {
		return nil, nil, err
	}

	if len(sales) > normalized {
		sales = sales[:normalized]
		last := sales[normalized-1]
		return sales, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return sales, nil, nil
}
