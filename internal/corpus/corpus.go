// Package corpus holds the static symptom and disease reference data used by the
// symptom prediction engine. A Corpus is loaded once and is read-only afterwards,
// so it may be shared freely between goroutines.
package corpus

import (
	"bytes"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/health-intelligence-engine/internal/domain"
)

//go:embed data/symptom_severity.csv data/disease_profiles.yaml
var embedded embed.FS

const (
	embeddedWeightsPath  = "data/symptom_severity.csv"
	embeddedProfilesPath = "data/disease_profiles.yaml"

	minWeight = 1
	maxWeight = 7
)

// Corpus is the immutable symptom weight table plus disease profiles.
type Corpus struct {
	weights  map[string]int
	diseases []domain.DiseaseProfile
	byName   map[string]int
}

// Options points the loader at reference files on disk. Empty paths fall back
// to the embedded data set.
type Options struct {
	SymptomWeightsPath  string
	DiseaseProfilesPath string
}

// diseaseDocument is one entry of the disease YAML document.
type diseaseDocument struct {
	Severity        string   `yaml:"severity"`
	Symptoms        []string `yaml:"symptoms"`
	Recommendations []string `yaml:"recommendations"`
}

// LoadEmbedded loads the reference data compiled into the binary.
func LoadEmbedded() (*Corpus, error) {
	return Load(Options{})
}

// Load reads and validates the reference data.
func Load(opts Options) (*Corpus, error) {
	weightsData, err := readSource(opts.SymptomWeightsPath, embeddedWeightsPath)
	if err != nil {
		return nil, fmt.Errorf("reading symptom weights: %w", err)
	}
	profilesData, err := readSource(opts.DiseaseProfilesPath, embeddedProfilesPath)
	if err != nil {
		return nil, fmt.Errorf("reading disease profiles: %w", err)
	}

	weights, err := ParseSymptomWeights(bytes.NewReader(weightsData))
	if err != nil {
		return nil, fmt.Errorf("parsing symptom weights: %w", err)
	}
	diseases, err := ParseDiseaseProfiles(bytes.NewReader(profilesData))
	if err != nil {
		return nil, fmt.Errorf("parsing disease profiles: %w", err)
	}

	return New(weights, diseases)
}

// New builds a Corpus from already parsed rows. Disease symptom names are
// normalized and de-duplicated; profiles are kept sorted by name.
func New(weights []domain.SymptomWeight, diseases []domain.DiseaseProfile) (*Corpus, error) {
	c := &Corpus{
		weights: make(map[string]int, len(weights)),
		byName:  make(map[string]int, len(diseases)),
	}

	for _, w := range weights {
		name := NormalizeSymptom(w.Name)
		if name == "" {
			return nil, errors.New("symptom weight with empty name")
		}
		if w.Weight < minWeight || w.Weight > maxWeight {
			return nil, fmt.Errorf("symptom %q: weight %d outside %d..%d", name, w.Weight, minWeight, maxWeight)
		}
		c.weights[name] = w.Weight
	}

	for _, d := range diseases {
		profile, err := normalizeProfile(d)
		if err != nil {
			return nil, err
		}
		if _, dup := c.byName[profile.Name]; dup {
			return nil, fmt.Errorf("duplicate disease profile %q", profile.Name)
		}
		c.byName[profile.Name] = len(c.diseases)
		c.diseases = append(c.diseases, profile)
	}

	sort.Slice(c.diseases, func(i, j int) bool { return c.diseases[i].Name < c.diseases[j].Name })
	for i, d := range c.diseases {
		c.byName[d.Name] = i
	}

	return c, nil
}

func normalizeProfile(d domain.DiseaseProfile) (domain.DiseaseProfile, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return domain.DiseaseProfile{}, errors.New("disease profile with empty name")
	}
	if !d.SeverityClass.IsValid() {
		return domain.DiseaseProfile{}, fmt.Errorf("disease %q: %w: %q", name, domain.ErrInvalidSeverityClass, d.SeverityClass)
	}

	seen := make(map[string]bool, len(d.Symptoms))
	symptoms := make([]string, 0, len(d.Symptoms))
	for _, s := range d.Symptoms {
		n := NormalizeSymptom(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		symptoms = append(symptoms, n)
	}
	if len(symptoms) == 0 {
		return domain.DiseaseProfile{}, fmt.Errorf("disease %q has no symptoms", name)
	}

	return domain.DiseaseProfile{
		Name:            name,
		Symptoms:        symptoms,
		SeverityClass:   d.SeverityClass,
		Recommendations: append([]string(nil), d.Recommendations...),
	}, nil
}

// ParseSymptomWeights reads a two-column table of symptom name and integer
// weight. A leading header row is skipped.
func ParseSymptomWeights(r io.Reader) ([]domain.SymptomWeight, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var rows []domain.SymptomWeight
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: expected symptom,weight", line)
		}
		weight, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: invalid weight %q", line, record[1])
		}
		rows = append(rows, domain.SymptomWeight{Name: strings.TrimSpace(record[0]), Weight: weight})
	}
	return rows, nil
}

// ParseDiseaseProfiles reads the keyed disease document.
func ParseDiseaseProfiles(r io.Reader) ([]domain.DiseaseProfile, error) {
	var doc map[string]diseaseDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	profiles := make([]domain.DiseaseProfile, 0, len(doc))
	for name, entry := range doc {
		severity, err := domain.ParseSeverityClass(entry.Severity)
		if err != nil {
			return nil, fmt.Errorf("disease %q: %w", name, err)
		}
		profiles = append(profiles, domain.DiseaseProfile{
			Name:            name,
			Symptoms:        entry.Symptoms,
			SeverityClass:   severity,
			Recommendations: entry.Recommendations,
		})
	}
	return profiles, nil
}

func readSource(path, embeddedPath string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return embedded.ReadFile(embeddedPath)
}

// Weight returns the severity weight of a normalized symptom, or 0 if unknown.
func (c *Corpus) Weight(symptom string) int {
	return c.weights[symptom]
}

// Known reports whether the symptom exists in the weight table.
func (c *Corpus) Known(symptom string) bool {
	_, ok := c.weights[symptom]
	return ok
}

// Diseases returns the disease profiles sorted by name. The slice must not be modified.
func (c *Corpus) Diseases() []domain.DiseaseProfile {
	return c.diseases
}

// Disease looks up a profile by exact name.
func (c *Corpus) Disease(name string) (domain.DiseaseProfile, bool) {
	i, ok := c.byName[name]
	if !ok {
		return domain.DiseaseProfile{}, false
	}
	return c.diseases[i], true
}

// Symptoms returns the weight table sorted by symptom name.
func (c *Corpus) Symptoms() []domain.SymptomWeight {
	out := make([]domain.SymptomWeight, 0, len(c.weights))
	for name, w := range c.weights {
		out = append(out, domain.SymptomWeight{Name: name, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
