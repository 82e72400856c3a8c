package model

import "time"

// MetricEvent is a named numeric sample reported by a client.
type MetricEvent struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Tags      map[string]string `json:"tags"`
	CreatedAt time.Time         `json:"created_at"`
}

// APIUsage records a single provider call made on behalf of a user.
type APIUsage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Provider  string    `json:"provider"`
	Success   bool      `json:"success"`
	Cached    bool      `json:"cached"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// ProviderUsage aggregates APIUsage rows for one provider.
type ProviderUsage struct {
	Provider     string  `json:"provider"`
	Calls        int     `json:"calls"`
	Successes    int     `json:"successes"`
	CacheHits    int     `json:"cache_hits"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	SuccessRate  float64 `json:"success_rate"`
}
