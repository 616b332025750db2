package corpus

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-intelligence-engine/internal/domain"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := LoadEmbedded()
	require.NoError(t, err)

	assert.NotEmpty(t, c.Diseases())
	assert.Equal(t, 7, c.Weight("high_fever"))
	assert.Equal(t, 7, c.Weight("chest_pain"))
	assert.Equal(t, 4, c.Weight("breathlessness"))
	assert.Equal(t, 0, c.Weight("not_a_symptom"))
	assert.True(t, c.Known("cough"))

	names := make([]string, 0, len(c.Diseases()))
	for _, d := range c.Diseases() {
		names = append(names, d.Name)
		assert.NotEmpty(t, d.Symptoms, "disease %s must have symptoms", d.Name)
		assert.True(t, d.SeverityClass.IsValid())
		for _, s := range d.Symptoms {
			assert.True(t, c.Known(s), "disease %s references unknown symptom %s", d.Name, s)
		}
	}
	assert.True(t, sort.StringsAreSorted(names), "diseases should be sorted by name")

	pneumonia, ok := c.Disease("Pneumonia")
	require.True(t, ok)
	assert.Equal(t, domain.SeverityHigh, pneumonia.SeverityClass)
	assert.True(t, pneumonia.HasSymptom("chest_pain"))
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	weightsPath := filepath.Join(dir, "weights.csv")
	profilesPath := filepath.Join(dir, "profiles.yaml")

	require.NoError(t, os.WriteFile(weightsPath, []byte("symptom,weight\nitching,1\nskin rash,3\n"), 0o644))
	require.NoError(t, os.WriteFile(profilesPath, []byte(`
Fungal Infection:
  severity: LOW
  symptoms: [itching, Skin-Rash, itching]
  recommendations: [Keep the area dry]
`), 0o644))

	c, err := Load(Options{SymptomWeightsPath: weightsPath, DiseaseProfilesPath: profilesPath})
	require.NoError(t, err)

	d, ok := c.Disease("Fungal Infection")
	require.True(t, ok)
	assert.Equal(t, []string{"itching", "skin_rash"}, d.Symptoms)
	assert.Equal(t, domain.SeverityLow, d.SeverityClass)
	assert.Equal(t, 3, c.Weight("skin_rash"))
}

func TestNewRejectsInvalidData(t *testing.T) {
	tests := []struct {
		name     string
		weights  []domain.SymptomWeight
		diseases []domain.DiseaseProfile
		errMsg   string
	}{
		{
			name:    "weight out of range",
			weights: []domain.SymptomWeight{{Name: "cough", Weight: 9}},
			errMsg:  "outside",
		},
		{
			name:     "empty symptom set",
			weights:  []domain.SymptomWeight{{Name: "cough", Weight: 4}},
			diseases: []domain.DiseaseProfile{{Name: "Empty", SeverityClass: domain.SeverityLow}},
			errMsg:   "no symptoms",
		},
		{
			name:     "invalid severity",
			weights:  []domain.SymptomWeight{{Name: "cough", Weight: 4}},
			diseases: []domain.DiseaseProfile{{Name: "Odd", Symptoms: []string{"cough"}, SeverityClass: "extreme"}},
			errMsg:   "invalid severity class",
		},
		{
			name:    "duplicate disease",
			weights: []domain.SymptomWeight{{Name: "cough", Weight: 4}},
			diseases: []domain.DiseaseProfile{
				{Name: "Cold", Symptoms: []string{"cough"}, SeverityClass: domain.SeverityLow},
				{Name: "Cold", Symptoms: []string{"cough"}, SeverityClass: domain.SeverityLow},
			},
			errMsg: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.weights, tt.diseases)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseDiseaseProfilesRejectsUnknownSeverity(t *testing.T) {
	_, err := ParseDiseaseProfiles(strings.NewReader("Flu:\n  severity: urgent\n  symptoms: [cough]\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidSeverityClass)
}

func TestParseSymptomWeightsInvalidRow(t *testing.T) {
	_, err := ParseSymptomWeights(strings.NewReader("symptom,weight\ncough,four\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestNormalizeSymptom(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Chest Pain", "chest_pain"},
		{"  chest-pain ", "chest_pain"},
		{"chest  _ pain", "chest_pain"},
		{"fever", "high_fever"},
		{"Shortness of breath", "breathlessness"},
		{"Diarrhea", "diarrhoea"},
		{"sore throat", "throat_irritation"},
		{"unknown thing", "unknown_thing"},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSymptom(tt.input))
		})
	}

	assert.Equal(t, "chest pain", DisplayName("chest_pain"))
}
