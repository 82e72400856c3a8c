package repository

import (
	"context"
	"time"

	"marketapi/internal/model"
)

// MetricRepository stores client metric events and provider usage records.
type MetricRepository interface {
	CreateEvent(ctx context.Context, e *model.MetricEvent) (*model.MetricEvent, error)
	RecordUsage(ctx context.Context, u *model.APIUsage) error
	// UsageSummary aggregates provider usage created at or after since.
	UsageSummary(ctx context.Context, since time.Time) ([]model.ProviderUsage, error)
}
