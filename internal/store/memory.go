package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/health-intelligence-engine/internal/domain"
)

// MemoryStore is a process-local Store and UsageLedger. Its contents are lost
// on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.PatientProfile
	reports  map[string][]domain.MedicalReport
	notes    map[string][]domain.ClinicalNote
	checks   map[string][]domain.SymptomCheck
	usage    map[string][]domain.UsageEvent
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]domain.PatientProfile),
		reports:  make(map[string][]domain.MedicalReport),
		notes:    make(map[string][]domain.ClinicalNote),
		checks:   make(map[string][]domain.SymptomCheck),
		usage:    make(map[string][]domain.UsageEvent),
	}
}

// SaveProfile creates or replaces a patient profile.
func (s *MemoryStore) SaveProfile(ctx context.Context, profile *domain.PatientProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.PatientID] = *profile
	return nil
}

// GetProfile returns the patient's profile or a NotFound error.
func (s *MemoryStore) GetProfile(ctx context.Context, patientID string) (*domain.PatientProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[patientID]
	if !ok {
		return nil, domain.NewNotFoundError("patient profile", patientID)
	}
	return &profile, nil
}

// AddMedicalReport appends a document record for the patient.
func (s *MemoryStore) AddMedicalReport(ctx context.Context, patientID string, report *domain.MedicalReport) error {
	stamp(&report.ID, &report.CreatedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[patientID] = append(s.reports[patientID], *report)
	return nil
}

// AddClinicalNote appends a clinician note for the patient.
func (s *MemoryStore) AddClinicalNote(ctx context.Context, patientID string, note *domain.ClinicalNote) error {
	stamp(&note.ID, &note.CreatedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[patientID] = append(s.notes[patientID], *note)
	return nil
}

// SaveSymptomCheck records a completed symptom assessment.
func (s *MemoryStore) SaveSymptomCheck(ctx context.Context, patientID string, check *domain.SymptomCheck) error {
	stamp(&check.ID, &check.CreatedAt)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[patientID] = append(s.checks[patientID], *check)
	return nil
}

// ListMedicalReports returns reports created at or after since, newest first.
func (s *MemoryStore) ListMedicalReports(ctx context.Context, patientID string, since time.Time, limit int) ([]domain.MedicalReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recent(s.reports[patientID], since, limit, func(r domain.MedicalReport) time.Time { return r.CreatedAt }), nil
}

// ListClinicalNotes returns notes created at or after since, newest first.
func (s *MemoryStore) ListClinicalNotes(ctx context.Context, patientID string, since time.Time, limit int) ([]domain.ClinicalNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recent(s.notes[patientID], since, limit, func(n domain.ClinicalNote) time.Time { return n.CreatedAt }), nil
}

// ListSymptomChecks returns checks created at or after since, newest first.
func (s *MemoryStore) ListSymptomChecks(ctx context.Context, patientID string, since time.Time, limit int) ([]domain.SymptomCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recent(s.checks[patientID], since, limit, func(c domain.SymptomCheck) time.Time { return c.CreatedAt }), nil
}

// RecordUsage appends a quota-consuming event.
func (s *MemoryStore) RecordUsage(ctx context.Context, event domain.UsageEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[event.PatientID] = append(s.usage[event.PatientID], event)
	return nil
}

// CountUsageSince counts the patient's events created at or after since.
func (s *MemoryStore) CountUsageSince(ctx context.Context, patientID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.usage[patientID] {
		if !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// PruneUsageBefore drops usage events created before cutoff.
func (s *MemoryStore) PruneUsageBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for patientID, events := range s.usage {
		kept := events[:0]
		for _, e := range events {
			if e.CreatedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(s.usage, patientID)
			continue
		}
		s.usage[patientID] = kept
	}
	return removed, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// recent filters items to those created at or after since, sorts newest first
// and applies limit. The result never aliases the stored slice.
func recent[T any](items []T, since time.Time, limit int, createdAt func(T) time.Time) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !createdAt(item).Before(since) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return createdAt(out[i]).After(createdAt(out[j]))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
