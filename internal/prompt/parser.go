package prompt

import (
	"encoding/json"
	"strings"

	"github.com/health-intelligence-engine/internal/domain"
)

// summaryDocument accepts both camelCase and snake_case keys.
type summaryDocument struct {
	Summary           string   `json:"summary"`
	KeyInsights       []string `json:"keyInsights"`
	KeyInsightsSnake  []string `json:"key_insights"`
	RiskFactors       []string `json:"riskFactors"`
	RiskFactorsSnake  []string `json:"risk_factors"`
	Recommendations   []string `json:"recommendations"`
	HealthTrends      []string `json:"healthTrends"`
	HealthTrendsSnake []string `json:"health_trends"`
	UrgencyLevel      string   `json:"urgencyLevel"`
	UrgencyLevelSnake string   `json:"urgency_level"`
}

// ParseSummary extracts summary fields from provider output. It never fails:
// when no usable JSON object is present the result is the degraded shape, with
// Summary set to the raw text, empty lists, UrgencyLow and Structured false.
func ParseSummary(raw string) domain.SummaryFields {
	if object, ok := ExtractJSONObject(raw); ok {
		var doc summaryDocument
		if err := json.Unmarshal([]byte(object), &doc); err == nil {
			return fromDocument(doc, raw)
		}
	}
	return degraded(raw)
}

func degraded(raw string) domain.SummaryFields {
	return domain.SummaryFields{
		Summary:         raw,
		KeyInsights:     []string{},
		RiskFactors:     []string{},
		Recommendations: []string{},
		HealthTrends:    []string{},
		UrgencyLevel:    domain.UrgencyLow,
		Structured:      false,
	}
}

func fromDocument(doc summaryDocument, raw string) domain.SummaryFields {
	summary := strings.TrimSpace(doc.Summary)
	if summary == "" {
		summary = raw
	}

	urgency := domain.UrgencyLevel(strings.ToLower(strings.TrimSpace(firstNonEmpty(doc.UrgencyLevel, doc.UrgencyLevelSnake))))
	if !urgency.IsValid() {
		urgency = domain.UrgencyLow
	}

	return domain.SummaryFields{
		Summary:         summary,
		KeyInsights:     cleanList(doc.KeyInsights, doc.KeyInsightsSnake),
		RiskFactors:     cleanList(doc.RiskFactors, doc.RiskFactorsSnake),
		Recommendations: cleanList(doc.Recommendations),
		HealthTrends:    cleanList(doc.HealthTrends, doc.HealthTrendsSnake),
		UrgencyLevel:    urgency,
		Structured:      true,
	}
}

// ExtractJSONObject returns the first brace-balanced JSON object in text. Braces
// inside string literals are ignored. Candidates that are not valid JSON are
// skipped and scanning resumes after their opening brace.
func ExtractJSONObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := matchBrace(text, start); ok {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at start.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func cleanList(lists ...[]string) []string {
	out := []string{}
	for _, list := range lists {
		for _, item := range list {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
