package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"marketapi/internal/model"
	"marketapi/internal/repository"
)

// RolePostgres stores user roles.
type RolePostgres struct {
	db *sql.DB
}

func NewRolePostgres(db *sql.DB) *RolePostgres {
	return &RolePostgres{db: db}
}

var _ repository.RoleRepository = (*RolePostgres)(nil)

func (r *RolePostgres) Get(ctx context.Context, userID string) (*model.UserRole, error) {
	var ur model.UserRole
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, role, updated_at FROM user_roles WHERE user_id = $1`, userID,
	).Scan(&ur.UserID, &ur.Role, &ur.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ur, nil
}

func (r *RolePostgres) Set(ctx context.Context, userID, role string) (*model.UserRole, error) {
	const q = `
		INSERT INTO user_roles (user_id, role, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = now()
		RETURNING user_id, role, updated_at`
	var ur model.UserRole
	if err := r.db.QueryRowContext(ctx, q, userID, role).Scan(&ur.UserID, &ur.Role, &ur.UpdatedAt); err != nil {
		return nil, err
	}
	return &ur, nil
}

// PreferencePostgres stores user preferences as a JSONB document.
type PreferencePostgres struct {
	db *sql.DB
}

func NewPreferencePostgres(db *sql.DB) *PreferencePostgres {
	return &PreferencePostgres{db: db}
}

var _ repository.PreferenceRepository = (*PreferencePostgres)(nil)

func scanPreferences(s scanner) (*model.UserPreferences, error) {
	var (
		p   model.UserPreferences
		raw []byte
	)
	if err := s.Scan(&p.UserID, &raw, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Preferences = map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	return &p, nil
}

func (r *PreferencePostgres) Get(ctx context.Context, userID string) (*model.UserPreferences, error) {
	return scanPreferences(r.db.QueryRowContext(ctx,
		`SELECT user_id, preferences, updated_at FROM user_preferences WHERE user_id = $1`, userID))
}

func (r *PreferencePostgres) Upsert(ctx context.Context, p *model.UserPreferences) (*model.UserPreferences, error) {
	raw, err := json.Marshal(p.Preferences)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO user_preferences (user_id, preferences, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET preferences = EXCLUDED.preferences, updated_at = now()
		RETURNING user_id, preferences, updated_at`
	return scanPreferences(r.db.QueryRowContext(ctx, q, p.UserID, raw))
}

// BillingPostgres reads billing records.
type BillingPostgres struct {
	db *sql.DB
}

func NewBillingPostgres(db *sql.DB) *BillingPostgres {
	return &BillingPostgres{db: db}
}

var _ repository.BillingRepository = (*BillingPostgres)(nil)

func (r *BillingPostgres) List(ctx context.Context, userID string, page repository.PageQuery) (*repository.PageResult[model.BillingRecord], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM billing_records WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, err
	}

	const q = `
		SELECT id, user_id, amount_cents, currency, description, status, created_at
		FROM billing_records
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, q, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.BillingRecord, 0)
	for rows.Next() {
		var b model.BillingRecord
		if err := rows.Scan(&b.ID, &b.UserID, &b.AmountCents, &b.Currency, &b.Description, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.BillingRecord]{Items: items, Total: total}, nil
}
