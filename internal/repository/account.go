package repository

import (
	"context"

	"marketapi/internal/model"
)

// RoleRepository stores platform roles.
type RoleRepository interface {
	// Get returns sql.ErrNoRows when the user has no explicit role.
	Get(ctx context.Context, userID string) (*model.UserRole, error)
	Set(ctx context.Context, userID, role string) (*model.UserRole, error)
}

// PreferenceRepository stores one preferences document per user.
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*model.UserPreferences, error)
	Upsert(ctx context.Context, p *model.UserPreferences) (*model.UserPreferences, error)
}

// BillingRepository reads billing records written by the billing pipeline.
type BillingRepository interface {
	List(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.BillingRecord], error)
}
