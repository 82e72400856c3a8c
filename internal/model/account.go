package model

import "time"

// Role names understood by the admin guard.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserRole is the platform role assigned to a user.
type UserRole struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPreferences is a free-form settings document kept per user.
type UserPreferences struct {
	UserID      string         `json:"user_id"`
	Preferences map[string]any `json:"preferences"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// BillingRecord is one charge or credit on a user's account.
type BillingRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
