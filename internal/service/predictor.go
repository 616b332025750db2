package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/health-intelligence-engine/internal/corpus"
	"github.com/health-intelligence-engine/internal/domain"
)

const (
	maxPredictions = 5

	baseWeight     = 0.7
	coverageWeight = 0.3

	highSeverityScore   = 30
	mediumSeverityScore = 15
	highTopConfidence   = 0.6
	mediumTopConfidence = 0.5

	narrativeHighConfidence     = 0.7
	narrativeModerateConfidence = 0.4
)

var (
	genericRecommendations = []string{
		"Monitor symptoms for 24-48 hours",
		"Track symptom duration and severity",
	}
	fallbackRecommendations = []string{
		"Insufficient data for a reliable assessment",
		"Consult a healthcare professional for a proper evaluation",
	}
)

// SymptomPredictor scores reported symptoms against the disease corpus using a
// weighted Dice overlap blended with profile coverage.
type SymptomPredictor struct {
	logger *logrus.Logger
	corpus *corpus.Corpus
}

// NewSymptomPredictor creates a new symptom predictor
func NewSymptomPredictor(logger *logrus.Logger, c *corpus.Corpus) *SymptomPredictor {
	return &SymptomPredictor{
		logger: logger,
		corpus: c,
	}
}

// candidate carries the unrounded score used for ordering.
type candidate struct {
	result     domain.PredictionResult
	confidence float64
}

// Predict ranks disease candidates for the reported symptoms. The output is a
// pure function of the input and the corpus.
func (p *SymptomPredictor) Predict(symptoms []domain.ReportedSymptom) (*domain.PredictionReport, error) {
	reported, err := p.normalizeInput(symptoms)
	if err != nil {
		return nil, err
	}

	reportedSet := make(map[string]bool, len(reported))
	reportedScore := 0
	for _, s := range reported {
		reportedSet[s] = true
		reportedScore += p.corpus.Weight(s)
	}

	var candidates []candidate
	for _, disease := range p.corpus.Diseases() {
		matched := make([]string, 0, len(disease.Symptoms))
		overlapScore, diseaseScore := 0, 0
		for _, s := range disease.Symptoms {
			w := p.corpus.Weight(s)
			diseaseScore += w
			if reportedSet[s] {
				matched = append(matched, s)
				overlapScore += w
			}
		}
		if len(matched) == 0 {
			continue
		}

		base := 0.0
		if denom := reportedScore + diseaseScore; denom > 0 {
			base = 2 * float64(overlapScore) / float64(denom)
		}
		coverage := float64(len(matched)) / float64(len(disease.Symptoms))
		confidence := clamp01(baseWeight*base + coverageWeight*coverage)

		candidates = append(candidates, candidate{
			confidence: confidence,
			result: domain.PredictionResult{
				Disease:              disease.Name,
				Confidence:           round4(confidence),
				MatchingSymptomCount: len(matched),
				MatchedSymptoms:      matched,
				SeverityClass:        disease.SeverityClass,
			},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.confidence != b.confidence {
			return a.confidence > b.confidence
		}
		if a.result.MatchingSymptomCount != b.result.MatchingSymptomCount {
			return a.result.MatchingSymptomCount > b.result.MatchingSymptomCount
		}
		return a.result.Disease < b.result.Disease
	})
	if len(candidates) > maxPredictions {
		candidates = candidates[:maxPredictions]
	}

	predictions := make([]domain.PredictionResult, len(candidates))
	for i, c := range candidates {
		predictions[i] = c.result
	}

	var top *candidate
	if len(candidates) > 0 {
		top = &candidates[0]
	}
	overall := determineOverallSeverity(reportedScore, top)

	report := &domain.PredictionReport{
		Predictions:        predictions,
		OverallSeverity:    overall,
		SeverityScore:      reportedScore,
		Recommendations:    p.buildRecommendations(top),
		AINarrative:        buildNarrative(reported, predictions),
		NormalizedSymptoms: reported,
	}

	p.logger.WithFields(logrus.Fields{
		"reported_symptoms": len(reported),
		"predictions":       len(predictions),
		"severity_score":    reportedScore,
		"overall_severity":  overall.String(),
	}).Info("Completed symptom prediction")

	return report, nil
}

// normalizeInput validates the request and returns the de-duplicated list of
// normalized symptom tokens in first-seen order.
func (p *SymptomPredictor) normalizeInput(symptoms []domain.ReportedSymptom) ([]string, error) {
	if len(symptoms) == 0 {
		return nil, domain.NewInvalidInputError("at least one symptom is required",
			domain.NewValidationError("symptoms", "list is empty", nil))
	}

	seen := make(map[string]bool, len(symptoms))
	out := make([]string, 0, len(symptoms))
	for i, s := range symptoms {
		name := corpus.NormalizeSymptom(s.Name)
		if name == "" {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("symptom %d has no name", i+1),
				domain.NewValidationError(fmt.Sprintf("symptoms[%d].name", i), "must not be empty", s.Name))
		}
		if _, err := domain.ParseSymptomSeverity(string(s.Severity)); err != nil {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("symptom %q has an invalid severity", s.Name),
				domain.NewValidationError(fmt.Sprintf("symptoms[%d].severity", i), "must be mild, moderate or severe", s.Severity))
		}
		if !p.corpus.Known(name) {
			p.logger.WithField("symptom", name).Debug("Reported symptom not in weight table")
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

func determineOverallSeverity(totalScore int, top *candidate) domain.SeverityClass {
	if totalScore >= highSeverityScore ||
		(top != nil && top.result.SeverityClass == domain.SeverityHigh && top.confidence > highTopConfidence) {
		return domain.SeverityHigh
	}
	if totalScore >= mediumSeverityScore ||
		(top != nil && top.result.SeverityClass == domain.SeverityMedium && top.confidence > mediumTopConfidence) {
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}

func (p *SymptomPredictor) buildRecommendations(top *candidate) []string {
	if top == nil {
		return append([]string(nil), fallbackRecommendations...)
	}

	var recs []string
	if disease, ok := p.corpus.Disease(top.result.Disease); ok {
		recs = append(recs, disease.Recommendations...)
	}
	recs = append(recs, genericRecommendations...)
	return dedupe(recs)
}

func buildNarrative(reported []string, predictions []domain.PredictionResult) string {
	if len(predictions) == 0 {
		return "There's not enough symptom information to make a reliable assessment."
	}

	names := make([]string, len(reported))
	for i, s := range reported {
		names[i] = corpus.DisplayName(s)
	}

	top := predictions[0]
	var b strings.Builder
	fmt.Fprintf(&b, "Based on your symptoms (%s), the most likely condition is %s with a %d%% match. ",
		strings.Join(names, ", "), top.Disease, int(math.Round(top.Confidence*100)))

	if len(predictions) > 1 {
		end := len(predictions)
		if end > 3 {
			end = 3
		}
		others := make([]string, 0, end-1)
		for _, p := range predictions[1:end] {
			others = append(others, p.Disease)
		}
		fmt.Fprintf(&b, "Other possibilities include %s. ", strings.Join(others, ", "))
	}

	switch {
	case top.Confidence >= narrativeHighConfidence:
		b.WriteString("The analysis has high confidence in this assessment.")
	case top.Confidence >= narrativeModerateConfidence:
		b.WriteString("The analysis has moderate confidence in this assessment.")
	default:
		b.WriteString("The analysis has low confidence in this assessment and more information may be needed.")
	}
	b.WriteString(" This is not a diagnosis; consult a healthcare professional.")
	return b.String()
}

// dedupe removes repeated strings, keeping the first occurrence.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
