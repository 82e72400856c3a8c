package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketapi/internal/model"
)

var apiKeyRowColumns = []string{"id", "user_id", "provider", "sealed_key", "masked_key", "status", "last_validated_at", "created_at"}

func TestAPIKeyPostgres_Upsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAPIKeyPostgres(db)
	now := time.Now().UTC()

	k := &model.APIKey{
		ID:        "key-1",
		UserID:    "user-1",
		Provider:  "openai",
		SealedKey: "sealed",
		MaskedKey: "sk-...abcd",
		Status:    model.APIKeyUnverified,
		CreatedAt: now,
	}

	mock.ExpectQuery(`INSERT INTO api_keys (.+) ON CONFLICT \(user_id, provider\) DO UPDATE`).
		WithArgs(k.ID, k.UserID, k.Provider, k.SealedKey, k.MaskedKey, "unverified", now).
		WillReturnRows(sqlmock.NewRows(apiKeyRowColumns).
			AddRow("key-0", "user-1", "openai", "sealed", "sk-...abcd", "unverified", nil, now))

	got, err := repo.Upsert(context.Background(), k)

	require.NoError(t, err)
	assert.Equal(t, "key-0", got.ID, "existing row keeps its id")
	assert.Nil(t, got.LastValidatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyPostgres_FindByProvider(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAPIKeyPostgres(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT (.+) FROM api_keys WHERE user_id = \$1 AND provider = \$2`).
		WithArgs("user-1", "anthropic").
		WillReturnRows(sqlmock.NewRows(apiKeyRowColumns).
			AddRow("key-1", "user-1", "anthropic", "sealed", "sk-...wxyz", "valid", now, now))

	got, err := repo.FindByProvider(context.Background(), "user-1", "anthropic")

	require.NoError(t, err)
	assert.Equal(t, model.APIKeyValid, got.Status)
	require.NotNil(t, got.LastValidatedAt)
	assert.Equal(t, now, *got.LastValidatedAt)
}

func TestAPIKeyPostgres_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAPIKeyPostgres(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT (.+) FROM api_keys WHERE user_id = \$1 ORDER BY provider`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(apiKeyRowColumns).
			AddRow("key-1", "user-1", "anthropic", "s1", "m1", "valid", now, now).
			AddRow("key-2", "user-1", "openai", "s2", "m2", "unverified", nil, now))

	keys, err := repo.List(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "anthropic", keys[0].Provider)
	assert.Equal(t, "openai", keys[1].Provider)
}

func TestAPIKeyPostgres_UpdateStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAPIKeyPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE api_keys SET status").
		WithArgs("invalid", sqlmock.AnyArg(), "key-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.UpdateStatus(ctx, "user-1", "key-1", model.APIKeyInvalid))

	mock.ExpectExec("UPDATE api_keys SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "user-1", "missing", model.APIKeyValid), sql.ErrNoRows)
}

func TestAPIKeyPostgres_Delete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAPIKeyPostgres(db)

	mock.ExpectExec(`DELETE FROM api_keys WHERE id = \$1 AND user_id = \$2`).
		WithArgs("key-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), "user-1", "key-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
