package model

import "time"

// AnalysisStatus is the lifecycle state of an analysis run.
type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisRunning   AnalysisStatus = "running"
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisPartial   AnalysisStatus = "partial"
	AnalysisFailed    AnalysisStatus = "failed"
)

// Analysis is one competitor analysis request and the reports each provider produced for it.
type Analysis struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Competitors []string         `json:"competitors"`
	Industry    string           `json:"industry"`
	Focus       string           `json:"focus"`
	Providers   []string         `json:"providers"`
	Status      AnalysisStatus   `json:"status"`
	Results     []ProviderResult `json:"results"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ProviderResult is the outcome of asking one provider about one competitor.
type ProviderResult struct {
	Provider   string            `json:"provider"`
	Model      string            `json:"model"`
	Competitor string            `json:"competitor"`
	Report     *CompetitorReport `json:"report,omitempty"`
	Raw        string            `json:"raw,omitempty"`
	Error      string            `json:"error,omitempty"`
	LatencyMS  int64             `json:"latency_ms"`
	Cached     bool              `json:"cached"`
}

// Succeeded reports whether the provider returned a usable report.
func (r ProviderResult) Succeeded() bool {
	return r.Error == "" && r.Report != nil
}

// CompetitorReport is the normalized JSON document every provider is asked to return.
type CompetitorReport struct {
	CompetitorName      string   `json:"competitor_name"`
	Summary             string   `json:"summary"`
	Strengths           []string `json:"strengths"`
	Weaknesses          []string `json:"weaknesses"`
	Opportunities       []string `json:"opportunities"`
	Threats             []string `json:"threats"`
	MarketPosition      string   `json:"market_position"`
	PricingStrategy     string   `json:"pricing_strategy"`
	TargetAudience      string   `json:"target_audience"`
	KeyProducts         []string `json:"key_products"`
	MarketShareEstimate string   `json:"market_share_estimate"`
	SWOTScore           int      `json:"swot_score"`
}
