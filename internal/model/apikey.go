package model

import "time"

// APIKeyStatus records the outcome of the last validation against the provider.
type APIKeyStatus string

const (
	APIKeyUnverified APIKeyStatus = "unverified"
	APIKeyValid      APIKeyStatus = "valid"
	APIKeyInvalid    APIKeyStatus = "invalid"
)

// APIKey is a user's credential for one LLM provider. SealedKey is encrypted at rest
// and never serialized.
type APIKey struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	Provider        string       `json:"provider"`
	SealedKey       string       `json:"-"`
	MaskedKey       string       `json:"masked_key"`
	Status          APIKeyStatus `json:"status"`
	LastValidatedAt *time.Time   `json:"last_validated_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}
