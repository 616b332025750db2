package corpus

import (
	"strings"
)

// aliases maps common patient wording onto the weight table vocabulary.
var aliases = map[string]string{
	"fever":                "high_fever",
	"diarrhea":             "diarrhoea",
	"shortness_of_breath":  "breathlessness",
	"difficulty_breathing": "breathlessness",
	"rash":                 "skin_rash",
	"stomach_ache":         "stomach_pain",
	"stomachache":          "stomach_pain",
	"weakness":             "weakness_in_limbs",
	"sore_throat":          "throat_irritation",
	"sneezing":             "continuous_sneezing",
	"appetite_loss":        "loss_of_appetite",
	"body_ache":            "muscle_pain",
	"body_aches":           "muscle_pain",
	"tiredness":            "fatigue",
	"stuffy_nose":          "congestion",
}

// NormalizeSymptom converts a free-text symptom name into the corpus token
// format: lowercase, trimmed, with spaces and hyphens turned into single
// underscores, then mapped through the alias table.
func NormalizeSymptom(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		if r == ' ' || r == '-' || r == '_' || r == '\t' {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteRune(r)
		lastUnderscore = false
	}

	token := strings.Trim(b.String(), "_")
	if alias, ok := aliases[token]; ok {
		return alias
	}
	return token
}

// DisplayName turns a corpus token back into readable words.
func DisplayName(token string) string {
	return strings.ReplaceAll(token, "_", " ")
}
