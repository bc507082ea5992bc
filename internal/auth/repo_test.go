package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/driftlabs/driftpay-backend/pkg/db/models"
)

func setupAccountTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS service_accounts (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  secret_hash TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  last_used_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(ddl).Error)
	return conn
}

func TestAccountRepositoryFindByClientID(t *testing.T) {
	conn := setupAccountTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	account := &models.ServiceAccount{
		ID:         uuid.New(),
		ClientID:   "svc-checkout",
		Name:       "checkout frontend",
		SecretHash: "$argon2id$v=19$m=8,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2hoYXNoaGFzaA",
		IsActive:   true,
	}
	require.NoError(t, conn.WithContext(ctx).Create(account).Error)

	got, err := repo.FindByClientID(ctx, "svc-checkout")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.Equal(t, account.SecretHash, got.SecretHash)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.LastUsedAt)

	_, err = repo.FindByClientID(ctx, "svc-absent")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAccountRepositoryUpdateLastUsed(t *testing.T) {
	conn := setupAccountTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	account := &models.ServiceAccount{
		ID:         uuid.New(),
		ClientID:   "svc-checkout",
		Name:       "checkout frontend",
		SecretHash: "hash",
		IsActive:   true,
	}
	require.NoError(t, conn.WithContext(ctx).Create(account).Error)

	usedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastUsed(ctx, account.ID, usedAt))

	got, err := repo.FindByClientID(ctx, "svc-checkout")
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.WithinDuration(t, usedAt, *got.LastUsedAt, time.Second)
}
