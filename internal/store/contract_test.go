package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/health-intelligence-engine/internal/domain"
)

type ledgerStore interface {
	Store
	domain.UsageLedger
	domain.UsagePruner
}

// StoreContractSuite runs the same behaviour checks against every in-process store.
type StoreContractSuite struct {
	suite.Suite
	open  func(t *testing.T) ledgerStore
	store ledgerStore
	ctx   context.Context
}

func (s *StoreContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.open(s.T())
}

func (s *StoreContractSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreContractSuite) TestMissingProfile() {
	_, err := s.store.GetProfile(s.ctx, "nobody")
	s.True(domain.IsCode(err, domain.ErrCodeNotFound))
}

func (s *StoreContractSuite) TestNotesNewestFirstWithinWindow() {
	now := time.Now().UTC()
	s.Require().NoError(s.store.SaveProfile(s.ctx, &domain.PatientProfile{PatientID: "p1"}))
	for _, age := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour, 30 * 24 * time.Hour} {
		s.Require().NoError(s.store.AddClinicalNote(s.ctx, "p1", &domain.ClinicalNote{
			Comments:  age.String(),
			CreatedAt: now.Add(-age),
		}))
	}

	notes, err := s.store.ListClinicalNotes(s.ctx, "p1", now.AddDate(0, 0, -7), 2)
	s.Require().NoError(err)
	s.Require().Len(notes, 2)
	s.Equal(time.Hour.String(), notes[0].Comments)
	s.Equal((2 * time.Hour).String(), notes[1].Comments)

	reports, err := s.store.ListMedicalReports(s.ctx, "p1", now.AddDate(0, 0, -7), 3)
	s.Require().NoError(err)
	s.Empty(reports)
}

func (s *StoreContractSuite) TestUsageCountsFromWindowStart() {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.RecordUsage(s.ctx, domain.UsageEvent{PatientID: "p1", Kind: domain.UsageChat, CreatedAt: start.Add(-time.Minute)}))
	s.Require().NoError(s.store.RecordUsage(s.ctx, domain.UsageEvent{PatientID: "p1", Kind: domain.UsageChat, CreatedAt: start}))
	s.Require().NoError(s.store.RecordUsage(s.ctx, domain.UsageEvent{PatientID: "p1", Kind: domain.UsageSummary, CreatedAt: start.Add(time.Hour)}))

	count, err := s.store.CountUsageSince(s.ctx, "p1", start)
	s.Require().NoError(err)
	s.Equal(2, count)

	removed, err := s.store.PruneUsageBefore(s.ctx, start)
	s.Require().NoError(err)
	s.Equal(int64(1), removed)

	count, err = s.store.CountUsageSince(s.ctx, "p1", start.AddDate(-1, 0, 0))
	s.Require().NoError(err)
	s.Equal(2, count)
}

func TestMemoryStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{open: func(t *testing.T) ledgerStore {
		return NewMemoryStore()
	}})
}

func TestSQLiteStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{open: func(t *testing.T) ledgerStore {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "contract.db"))
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		return s
	}})
}
