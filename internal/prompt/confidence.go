package prompt

import (
	"math"

	"github.com/health-intelligence-engine/internal/domain"
)

// Confidence scores how well a summary is grounded: 0.5 base, plus 0.2 for
// medical reports, 0.2 for clinical notes, 0.1 for symptom checks, 0.1 for key
// insights and 0.1 for recommendations, capped at 1.
func Confidence(pc *domain.PatientContext, fields domain.SummaryFields) float64 {
	score := 0.5
	if pc != nil {
		if len(pc.MedicalReports) > 0 {
			score += 0.2
		}
		if len(pc.ClinicalNotes) > 0 {
			score += 0.2
		}
		if len(pc.SymptomChecks) > 0 {
			score += 0.1
		}
	}
	if len(fields.KeyInsights) > 0 {
		score += 0.1
	}
	if len(fields.Recommendations) > 0 {
		score += 0.1
	}
	return math.Round(math.Min(score, 1.0)*100) / 100
}
