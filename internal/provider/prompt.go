package provider

import (
	"fmt"
	"strings"
)

const (
	defaultMaxTokens   = 2000
	defaultTemperature = 0.3
)

// reportSchema is the single JSON shape every provider is asked to produce.
// It mirrors model.CompetitorReport.
const reportSchema = `{
  "competitor_name": "string",
  "summary": "string, 2-3 sentences",
  "strengths": ["string"],
  "weaknesses": ["string"],
  "opportunities": ["string"],
  "threats": ["string"],
  "market_position": "leader | challenger | follower | niche",
  "pricing_strategy": "string",
  "target_audience": "string",
  "key_products": ["string"],
  "market_share_estimate": "string, e.g. \"5-10%\" or \"unknown\"",
  "swot_score": "integer 0-100, overall competitive strength"
}`

// AnalysisInput describes one competitor to analyze.
type AnalysisInput struct {
	Competitor string
	Industry   string
	Focus      string
}

// BuildPrompt renders the analysis request for one competitor.
func BuildPrompt(in AnalysisInput) Prompt {
	system := "You are a senior market research analyst. " +
		"Answer with a single JSON object that matches this schema exactly, " +
		"with no commentary and no markdown:\n" + reportSchema

	var b strings.Builder
	fmt.Fprintf(&b, "Produce a competitive analysis of %q.", strings.TrimSpace(in.Competitor))
	if industry := strings.TrimSpace(in.Industry); industry != "" {
		fmt.Fprintf(&b, "\nIndustry: %s.", industry)
	}
	if focus := strings.TrimSpace(in.Focus); focus != "" {
		fmt.Fprintf(&b, "\nFocus the analysis on: %s.", focus)
	}
	b.WriteString("\nIf a fact is unknown, say so rather than inventing it.")

	return Prompt{
		System:      system,
		User:        b.String(),
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
		JSON:        true,
	}
}
