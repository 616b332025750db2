package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/health-intelligence-engine/internal/domain"
	"github.com/health-intelligence-engine/internal/service"
)

// SymptomInput is one reported symptom.
type SymptomInput struct {
	Name     string `json:"name" jsonschema:"symptom name, for example fever or chest pain"`
	Severity string `json:"severity,omitempty" jsonschema:"mild, moderate or severe; defaults to moderate"`
	Duration string `json:"duration,omitempty" jsonschema:"free-text duration such as 3 days"`
}

// PredictSymptomsParams defines parameters for predict_symptoms tool
type PredictSymptomsParams struct {
	PatientID string         `json:"patient_id,omitempty" jsonschema:"patient to record the symptom check for"`
	Symptoms  []SymptomInput `json:"symptoms" jsonschema:"the reported symptoms"`
}

// GenerateSummaryParams defines parameters for generate_health_summary tool
type GenerateSummaryParams struct {
	PatientID     string `json:"patient_id" jsonschema:"patient identifier"`
	Model         string `json:"model,omitempty" jsonschema:"model identifier; the configured default when omitted"`
	TimeframeDays int    `json:"timeframe_days,omitempty" jsonschema:"context window in days"`
}

// ChatParams defines parameters for chat tool
type ChatParams struct {
	PatientID      string `json:"patient_id" jsonschema:"patient identifier"`
	Message        string `json:"message" jsonschema:"the patient's message"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"conversation to continue; a new one is started when omitted"`
	Model          string `json:"model,omitempty" jsonschema:"model identifier"`
}

// ContextSummaryParams defines parameters for get_context_summary tool
type ContextSummaryParams struct {
	PatientID string `json:"patient_id" jsonschema:"patient identifier"`
	Days      int    `json:"days,omitempty" jsonschema:"context window in days"`
}

// ConversationHistoryParams defines parameters for get_conversation_history tool
type ConversationHistoryParams struct {
	ConversationID string `json:"conversation_id" jsonschema:"conversation identifier"`
}

// ListModelsParams is empty; list_models takes no arguments.
type ListModelsParams struct{}

func (s *Server) predictSymptoms(ctx context.Context, _ *mcp.CallToolRequest, params PredictSymptomsParams) (*mcp.CallToolResult, any, error) {
	symptoms := make([]domain.ReportedSymptom, len(params.Symptoms))
	for i, in := range params.Symptoms {
		symptoms[i] = domain.ReportedSymptom{
			Name:     in.Name,
			Severity: domain.SymptomSeverity(in.Severity),
			Duration: in.Duration,
		}
	}

	report, err := s.health.Predict(ctx, service.PredictRequest{PatientID: params.PatientID, Symptoms: symptoms})
	if err != nil {
		return s.errorResult("predict_symptoms", err)
	}
	return jsonResult(report)
}

func (s *Server) generateHealthSummary(ctx context.Context, _ *mcp.CallToolRequest, params GenerateSummaryParams) (*mcp.CallToolResult, any, error) {
	summary, err := s.health.GenerateSummary(ctx, service.SummaryRequest{
		PatientID:     params.PatientID,
		Model:         params.Model,
		TimeframeDays: params.TimeframeDays,
	})
	if err != nil {
		return s.errorResult("generate_health_summary", err)
	}
	return jsonResult(summary)
}

func (s *Server) chat(ctx context.Context, _ *mcp.CallToolRequest, params ChatParams) (*mcp.CallToolResult, any, error) {
	resp, err := s.health.Chat(ctx, service.ChatRequest{
		PatientID:      params.PatientID,
		Message:        params.Message,
		ConversationID: params.ConversationID,
		Model:          params.Model,
	})
	if err != nil {
		return s.errorResult("chat", err)
	}
	return jsonResult(resp)
}

func (s *Server) getContextSummary(ctx context.Context, _ *mcp.CallToolRequest, params ContextSummaryParams) (*mcp.CallToolResult, any, error) {
	summary, err := s.health.ContextSummary(ctx, params.PatientID, params.Days)
	if err != nil {
		return s.errorResult("get_context_summary", err)
	}
	return jsonResult(summary)
}

func (s *Server) getConversationHistory(ctx context.Context, _ *mcp.CallToolRequest, params ConversationHistoryParams) (*mcp.CallToolResult, any, error) {
	history, err := s.health.ConversationHistory(ctx, params.ConversationID)
	if err != nil {
		return s.errorResult("get_conversation_history", err)
	}
	return jsonResult(history)
}

func (s *Server) listModels(ctx context.Context, _ *mcp.CallToolRequest, _ ListModelsParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(map[string]interface{}{
		"models":        s.health.AvailableModels(),
		"default_model": s.health.DefaultModelID(),
	})
}
