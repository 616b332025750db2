package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/health-intelligence-engine/internal/cache"
	"github.com/health-intelligence-engine/internal/domain"
	"github.com/health-intelligence-engine/internal/prompt"
	"github.com/health-intelligence-engine/internal/session"
)

// DefaultModel is used when neither the request nor the configuration names a model.
const DefaultModel = "gpt-4o-mini"

const (
	predictCacheNamespace = "predict"
	summaryRequestMessage = "Please summarize my recent health records."
)

// PredictRequest asks for a symptom assessment. PatientID is optional; when it
// is set the assessment can be recorded to the patient's symptom-check history.
type PredictRequest struct {
	PatientID string                   `json:"patient_id,omitempty"`
	Symptoms  []domain.ReportedSymptom `json:"symptoms"`
}

// SummaryRequest asks for a generated health summary.
type SummaryRequest struct {
	PatientID     string `json:"patient_id"`
	Model         string `json:"model,omitempty"`
	TimeframeDays int    `json:"timeframe_days,omitempty"`
}

// ChatRequest is one patient chat turn. An empty ConversationID starts a new
// conversation.
type ChatRequest struct {
	PatientID      string `json:"patient_id"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Model          string `json:"model,omitempty"`
}

// HealthServiceConfig holds the orchestration tunables.
type HealthServiceConfig struct {
	DefaultModel        string
	ContextWindowDays   int
	RecordSymptomChecks bool
	CacheTTL            time.Duration
}

// HealthServiceDeps are the collaborators of HealthService. Recorder and Cache
// are optional.
type HealthServiceDeps struct {
	Predictor     *SymptomPredictor
	Aggregator    *ContextAggregator
	Invoker       domain.ModelInvoker
	Conversations session.ConversationStore
	Quota         *session.QuotaTracker
	Recorder      domain.SymptomCheckRecorder
	Cache         *cache.ResultCache
}

// HealthService implements the inbound operations of the engine on top of the
// predictor, aggregator, provider router and session stores.
type HealthService struct {
	logger *logrus.Logger
	deps   HealthServiceDeps
	config HealthServiceConfig
	now    func() time.Time
}

// HealthServiceOption configures a HealthService.
type HealthServiceOption func(*HealthService)

// WithServiceClock overrides the clock used for message and summary timestamps.
func WithServiceClock(now func() time.Time) HealthServiceOption {
	return func(s *HealthService) {
		s.now = now
	}
}

// NewHealthService creates the orchestrator.
func NewHealthService(logger *logrus.Logger, deps HealthServiceDeps, config HealthServiceConfig, opts ...HealthServiceOption) *HealthService {
	if config.DefaultModel == "" {
		config.DefaultModel = DefaultModel
	}
	if config.ContextWindowDays <= 0 {
		config.ContextWindowDays = DefaultContextWindowDays
	}

	s := &HealthService{
		logger: logger,
		deps:   deps,
		config: config,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict runs a symptom assessment. Identical inputs are served from the
// result cache when one is configured.
func (s *HealthService) Predict(ctx context.Context, req PredictRequest) (*domain.PredictionReport, error) {
	var (
		report *domain.PredictionReport
		key    string
	)

	if s.deps.Cache != nil {
		if k, err := cache.Key(predictCacheNamespace, req.Symptoms); err == nil {
			key = k
			var cached domain.PredictionReport
			if s.deps.Cache.Get(ctx, key, &cached) {
				report = &cached
			}
		}
	}

	if report == nil {
		var err error
		report, err = s.deps.Predictor.Predict(req.Symptoms)
		if err != nil {
			return nil, err
		}
		if key != "" {
			if err := s.deps.Cache.Set(ctx, key, report, s.config.CacheTTL); err != nil {
				s.logger.WithError(err).Warn("Failed to cache prediction")
			}
		}
	}

	if req.PatientID != "" && s.config.RecordSymptomChecks && s.deps.Recorder != nil {
		s.recordSymptomCheck(ctx, req.PatientID, report)
	}

	return report, nil
}

// recordSymptomCheck stores the assessment in the patient's history. Checks for
// patients without a profile are dropped.
func (s *HealthService) recordSymptomCheck(ctx context.Context, patientID string, report *domain.PredictionReport) {
	log := s.logger.WithField("patient_id", patientID)

	if _, err := s.deps.Aggregator.source.GetProfile(ctx, patientID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Info("Skipping symptom check record for unknown patient")
		} else {
			log.WithError(err).Warn("Failed to look up patient before recording symptom check")
		}
		return
	}

	check := &domain.SymptomCheck{
		Symptoms:   report.NormalizedSymptoms,
		AIResponse: report.AINarrative,
		Severity:   report.OverallSeverity,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.deps.Recorder.SaveSymptomCheck(ctx, patientID, check); err != nil {
		log.WithError(err).Warn("Failed to record symptom check")
	}
}

// GenerateSummary produces a health summary grounded in the patient's recent
// context and opens a new conversation seeded with the exchange.
func (s *HealthService) GenerateSummary(ctx context.Context, req SummaryRequest) (*domain.HealthSummary, error) {
	startTime := s.now()

	model, err := s.resolveModel(req.Model)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, req.PatientID); err != nil {
		return nil, err
	}

	pc, err := s.deps.Aggregator.Aggregate(ctx, req.PatientID, s.windowDays(req.TimeframeDays))
	if err != nil {
		return nil, err
	}

	validation := ValidateSnapshot(pc)
	if !validation.IsValid {
		return nil, domain.NewInsufficientContextError(validation.Reason, validation.DataPointCount)
	}

	raw, err := s.deps.Invoker.Invoke(ctx, prompt.BuildSummaryPrompt(pc), model)
	if err != nil {
		return nil, err
	}

	fields := prompt.ParseSummary(raw)
	if !fields.Structured {
		s.logger.WithFields(logrus.Fields{
			"patient_id": req.PatientID,
			"model":      model,
		}).Warn("Provider response was not structured, using text summary")
	}

	now := s.now().UTC()
	summary := &domain.HealthSummary{
		SummaryFields:  fields,
		Confidence:     prompt.Confidence(pc, fields),
		ModelUsed:      model,
		ConversationID: session.NewConversationID(),
		ContextSummary: pc.Counts(),
		GeneratedAt:    now,
	}

	err = s.deps.Conversations.Append(ctx, summary.ConversationID,
		domain.Message{Role: domain.RoleUser, Content: summaryRequestMessage, Timestamp: now},
		domain.Message{Role: domain.RoleAssistant, Content: fields.Summary, Timestamp: now, Model: model},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to seed conversation: %w", err)
	}

	if err := s.deps.Quota.RecordUsage(ctx, req.PatientID, domain.UsageSummary); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":      req.PatientID,
		"model":           model,
		"conversation_id": summary.ConversationID,
		"data_points":     validation.DataPointCount,
		"structured":      fields.Structured,
		"confidence":      summary.Confidence,
		"processing_time": time.Since(startTime),
	}).Info("Health summary generated")

	return summary, nil
}

// Chat answers one patient message in the context of their records and the
// conversation so far.
func (s *HealthService) Chat(ctx context.Context, req ChatRequest) (*domain.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.NewInvalidInputError("message is required",
			domain.NewValidationError("message", "must not be empty", req.Message))
	}

	model, err := s.resolveModel(req.Model)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, req.PatientID); err != nil {
		return nil, err
	}

	pc, err := s.deps.Aggregator.Aggregate(ctx, req.PatientID, s.config.ContextWindowDays)
	if err != nil {
		return nil, err
	}

	conversationID := req.ConversationID
	var history []domain.Message
	if conversationID == "" {
		conversationID = session.NewConversationID()
	} else {
		history, err = s.deps.Conversations.History(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation: %w", err)
		}
	}

	userTurn := domain.Message{Role: domain.RoleUser, Content: message, Timestamp: s.now().UTC()}

	raw, err := s.deps.Invoker.Invoke(ctx, prompt.BuildChatPrompt(message, history, pc), model)
	if err != nil {
		return nil, err
	}
	reply := strings.TrimSpace(raw)

	now := s.now().UTC()
	assistantTurn := domain.Message{Role: domain.RoleAssistant, Content: reply, Timestamp: now, Model: model}
	if err := s.deps.Conversations.Append(ctx, conversationID, userTurn, assistantTurn); err != nil {
		return nil, fmt.Errorf("failed to store conversation: %w", err)
	}

	if err := s.deps.Quota.RecordUsage(ctx, req.PatientID, domain.UsageChat); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":      req.PatientID,
		"model":           model,
		"conversation_id": conversationID,
		"history_length":  len(history),
	}).Info("Chat turn completed")

	return &domain.ChatResponse{
		Response:       reply,
		ConversationID: conversationID,
		ModelUsed:      model,
		ContextSummary: pc.Counts(),
		Timestamp:      now,
	}, nil
}

// ContextSummary reports the patient's recent activity counts.
func (s *HealthService) ContextSummary(ctx context.Context, patientID string, days int) (*domain.ContextSummary, error) {
	return s.deps.Aggregator.Summarize(ctx, patientID, s.windowDays(days))
}

// ValidateContext reports whether the patient's context can ground a summary.
func (s *HealthService) ValidateContext(ctx context.Context, patientID string, days int) (*domain.ContextValidation, error) {
	return s.deps.Aggregator.Validate(ctx, patientID, s.windowDays(days))
}

// ConversationHistory returns the stored messages of a conversation.
func (s *HealthService) ConversationHistory(ctx context.Context, conversationID string) (*domain.ConversationSession, error) {
	if conversationID == "" {
		return nil, domain.NewInvalidInputError("conversation id is required",
			domain.NewValidationError("conversation_id", "must not be empty", conversationID))
	}

	messages, err := s.deps.Conversations.History(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return &domain.ConversationSession{ConversationID: conversationID, Messages: messages}, nil
}

// ClearConversation deletes a conversation.
func (s *HealthService) ClearConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return domain.NewInvalidInputError("conversation id is required",
			domain.NewValidationError("conversation_id", "must not be empty", conversationID))
	}
	return s.deps.Conversations.Clear(ctx, conversationID)
}

// QuotaStatus reports the patient's daily quota.
func (s *HealthService) QuotaStatus(ctx context.Context, patientID string) (*domain.QuotaStatus, error) {
	if patientID == "" {
		return nil, domain.NewInvalidInputError("patient id is required",
			domain.NewValidationError("patient_id", "must not be empty", patientID))
	}
	return s.deps.Quota.CheckQuota(ctx, patientID)
}

// AvailableModels lists the models the router can serve.
func (s *HealthService) AvailableModels() []domain.ModelInfo {
	return s.deps.Invoker.Models()
}

// DefaultModelID returns the model used when a request names none.
func (s *HealthService) DefaultModelID() string {
	return s.config.DefaultModel
}

func (s *HealthService) resolveModel(requested string) (string, error) {
	model := strings.TrimSpace(requested)
	if model == "" {
		model = s.config.DefaultModel
	}
	if err := s.deps.Invoker.Supports(model); err != nil {
		return "", err
	}
	return model, nil
}

func (s *HealthService) checkQuota(ctx context.Context, patientID string) error {
	if patientID == "" {
		return domain.NewInvalidInputError("patient id is required",
			domain.NewValidationError("patient_id", "must not be empty", patientID))
	}

	status, err := s.deps.Quota.CheckQuota(ctx, patientID)
	if err != nil {
		return err
	}
	if !status.Allowed {
		return domain.NewQuotaExceededError(patientID, status.Limit, status.ResetAt)
	}
	return nil
}

func (s *HealthService) windowDays(days int) int {
	if days <= 0 {
		return s.config.ContextWindowDays
	}
	return days
}
