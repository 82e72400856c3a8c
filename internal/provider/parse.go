package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"marketapi/internal/model"
)

// StripFences removes a surrounding markdown code fence such as ```json ... ```.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")

	// Drop a language tag on the opening line.
	end := strings.IndexAny(s, "\n{[")
	if end < 0 {
		end = len(s)
	}
	if isLangTag(s[:end]) {
		s = s[end:]
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isLangTag(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// ParseReport extracts a CompetitorReport from provider text. It tolerates code fences
// and prose around the JSON object.
func ParseReport(text string) (*model.CompetitorReport, error) {
	body := StripFences(text)
	if body == "" {
		return nil, ErrEmptyResponse
	}

	var r model.CompetitorReport
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		start := strings.IndexByte(body, '{')
		end := strings.LastIndexByte(body, '}')
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
		}
		r = model.CompetitorReport{}
		if err := json.Unmarshal([]byte(body[start:end+1]), &r); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
		}
	}

	if strings.TrimSpace(r.CompetitorName) == "" {
		return nil, fmt.Errorf("%w: missing competitor_name", ErrInvalidReport)
	}
	normalize(&r)
	return &r, nil
}

func normalize(r *model.CompetitorReport) {
	r.CompetitorName = strings.TrimSpace(r.CompetitorName)
	r.SWOTScore = min(max(r.SWOTScore, 0), 100)
	for _, list := range []*[]string{&r.Strengths, &r.Weaknesses, &r.Opportunities, &r.Threats, &r.KeyProducts} {
		if *list == nil {
			*list = []string{}
		}
	}
}
