package repository

import (
	"context"

	"marketapi/internal/model"
)

// APIKeyRepository stores sealed provider credentials, one per user and provider.
type APIKeyRepository interface {
	// Upsert inserts the key or replaces the existing key for the same user and provider.
	Upsert(ctx context.Context, k *model.APIKey) (*model.APIKey, error)
	FindByID(ctx context.Context, userID, id string) (*model.APIKey, error)
	FindByProvider(ctx context.Context, userID, provider string) (*model.APIKey, error)
	List(ctx context.Context, userID string) ([]model.APIKey, error)
	UpdateStatus(ctx context.Context, userID, id string, status model.APIKeyStatus) error
	Delete(ctx context.Context, userID, id string) error
}
