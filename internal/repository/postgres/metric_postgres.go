package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"marketapi/internal/model"
	"marketapi/internal/repository"
)

// MetricPostgres stores metric events and provider usage.
type MetricPostgres struct {
	db *sql.DB
}

func NewMetricPostgres(db *sql.DB) *MetricPostgres {
	return &MetricPostgres{db: db}
}

var _ repository.MetricRepository = (*MetricPostgres)(nil)

func (r *MetricPostgres) CreateEvent(ctx context.Context, e *model.MetricEvent) (*model.MetricEvent, error) {
	tags := e.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO metric_events (id, user_id, name, value, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, name, value, tags, created_at`
	var (
		out     model.MetricEvent
		rawTags []byte
	)
	if err := r.db.QueryRowContext(ctx, q, e.ID, e.UserID, e.Name, e.Value, raw, e.CreatedAt).
		Scan(&out.ID, &out.UserID, &out.Name, &out.Value, &rawTags, &out.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawTags, &out.Tags); err != nil {
		return nil, fmt.Errorf("decode metric tags: %w", err)
	}
	return &out, nil
}

func (r *MetricPostgres) RecordUsage(ctx context.Context, u *model.APIUsage) error {
	const q = `
		INSERT INTO api_usage (id, user_id, provider, success, cached, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.UserID, u.Provider, u.Success, u.Cached, u.LatencyMS, u.CreatedAt)
	return err
}

func (r *MetricPostgres) UsageSummary(ctx context.Context, since time.Time) ([]model.ProviderUsage, error) {
	const q = `
		SELECT provider,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE success),
		       COUNT(*) FILTER (WHERE cached),
		       COALESCE(AVG(latency_ms), 0)
		FROM api_usage
		WHERE created_at >= $1
		GROUP BY provider
		ORDER BY provider`
	rows, err := r.db.QueryContext(ctx, q, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ProviderUsage, 0)
	for rows.Next() {
		var u model.ProviderUsage
		if err := rows.Scan(&u.Provider, &u.Calls, &u.Successes, &u.CacheHits, &u.AvgLatencyMS); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
