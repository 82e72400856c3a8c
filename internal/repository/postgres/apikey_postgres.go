package postgres

import (
	"context"
	"database/sql"
	"time"

	"marketapi/internal/model"
	"marketapi/internal/repository"
)

// APIKeyPostgres is a PostgreSQL implementation of repository.APIKeyRepository.
type APIKeyPostgres struct {
	db *sql.DB
}

// NewAPIKeyPostgres creates a new APIKeyPostgres repository.
func NewAPIKeyPostgres(db *sql.DB) *APIKeyPostgres {
	return &APIKeyPostgres{db: db}
}

var _ repository.APIKeyRepository = (*APIKeyPostgres)(nil)

const apiKeyColumns = `id, user_id, provider, sealed_key, masked_key, status, last_validated_at, created_at`

func scanAPIKey(s scanner) (*model.APIKey, error) {
	var (
		k         model.APIKey
		status    string
		validated sql.NullTime
	)
	if err := s.Scan(
		&k.ID,
		&k.UserID,
		&k.Provider,
		&k.SealedKey,
		&k.MaskedKey,
		&status,
		&validated,
		&k.CreatedAt,
	); err != nil {
		return nil, err
	}
	k.Status = model.APIKeyStatus(status)
	if validated.Valid {
		t := validated.Time
		k.LastValidatedAt = &t
	}
	return &k, nil
}

// Upsert stores the key, replacing any key the user already has for the provider.
// Replacing a key resets its validation state.
func (r *APIKeyPostgres) Upsert(ctx context.Context, k *model.APIKey) (*model.APIKey, error) {
	const q = `
		INSERT INTO api_keys (id, user_id, provider, sealed_key, masked_key, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, provider) DO UPDATE
		SET sealed_key = EXCLUDED.sealed_key,
		    masked_key = EXCLUDED.masked_key,
		    status = EXCLUDED.status,
		    last_validated_at = NULL
		RETURNING ` + apiKeyColumns
	row := r.db.QueryRowContext(ctx, q,
		k.ID,
		k.UserID,
		k.Provider,
		k.SealedKey,
		k.MaskedKey,
		string(k.Status),
		k.CreatedAt,
	)
	return scanAPIKey(row)
}

func (r *APIKeyPostgres) FindByID(ctx context.Context, userID, id string) (*model.APIKey, error) {
	const q = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1 AND user_id = $2`
	return scanAPIKey(r.db.QueryRowContext(ctx, q, id, userID))
}

func (r *APIKeyPostgres) FindByProvider(ctx context.Context, userID, provider string) (*model.APIKey, error) {
	const q = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE user_id = $1 AND provider = $2`
	return scanAPIKey(r.db.QueryRowContext(ctx, q, userID, provider))
}

// List returns every key the user stored, ordered by provider name.
func (r *APIKeyPostgres) List(ctx context.Context, userID string) ([]model.APIKey, error) {
	const q = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE user_id = $1 ORDER BY provider`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]model.APIKey, 0)
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

func (r *APIKeyPostgres) UpdateStatus(ctx context.Context, userID, id string, status model.APIKeyStatus) error {
	const q = `UPDATE api_keys SET status = $1, last_validated_at = $2 WHERE id = $3 AND user_id = $4`
	res, err := r.db.ExecContext(ctx, q, string(status), time.Now().UTC(), id, userID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *APIKeyPostgres) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
