package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/health-intelligence-engine/internal/domain"
	"github.com/health-intelligence-engine/internal/service"
)

type summaryBody struct {
	Model         string `json:"model"`
	TimeframeDays int    `json:"timeframe_days"`
}

type chatBody struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	Model          string `json:"model"`
}

func (s *Server) handlePredict(c *gin.Context) {
	var req service.PredictRequest
	if !bindJSON(c, &req, false) {
		return
	}

	report, err := s.health.Predict(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleGenerateSummary(c *gin.Context) {
	var body summaryBody
	if !bindJSON(c, &body, true) {
		return
	}

	summary, err := s.health.GenerateSummary(c.Request.Context(), service.SummaryRequest{
		PatientID:     c.Param("patientId"),
		Model:         body.Model,
		TimeframeDays: body.TimeframeDays,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleChat(c *gin.Context) {
	var body chatBody
	if !bindJSON(c, &body, false) {
		return
	}

	resp, err := s.health.Chat(c.Request.Context(), service.ChatRequest{
		PatientID:      c.Param("patientId"),
		Message:        body.Message,
		ConversationID: body.ConversationID,
		Model:          body.Model,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleContextSummary(c *gin.Context) {
	days, ok := daysParam(c)
	if !ok {
		return
	}

	summary, err := s.health.ContextSummary(c.Request.Context(), c.Param("patientId"), days)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleValidateContext(c *gin.Context) {
	days, ok := daysParam(c)
	if !ok {
		return
	}

	validation, err := s.health.ValidateContext(c.Request.Context(), c.Param("patientId"), days)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, validation)
}

func (s *Server) handleQuota(c *gin.Context) {
	status, err := s.health.QuotaStatus(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"patient_id":   status.PatientID,
		"allowed":      status.Allowed,
		"used":         status.Used,
		"limit":        status.Limit,
		"remaining":    status.Remaining(),
		"window_start": status.WindowStart,
		"reset_at":     status.ResetAt,
	})
}

func (s *Server) handleConversationHistory(c *gin.Context) {
	history, err := s.health.ConversationHistory(c.Request.Context(), c.Param("conversationId"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) handleClearConversation(c *gin.Context) {
	if err := s.health.ClearConversation(c.Request.Context(), c.Param("conversationId")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models":        s.health.AvailableModels(),
		"default_model": s.health.DefaultModelID(),
	})
}

// bindJSON decodes the request body, writing a 400 on failure. An empty body
// is accepted when allowEmpty is set.
func bindJSON(c *gin.Context, out interface{}, allowEmpty bool) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		writeEngineError(c, domain.NewInvalidInputError("request body is not valid JSON", err))
		return false
	}
	return true
}

func daysParam(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("days"))
	if raw == "" {
		return 0, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 || days > service.MaxContextWindowDays {
		msg := fmt.Sprintf("must be an integer between 1 and %d", service.MaxContextWindowDays)
		writeEngineError(c, domain.NewInvalidInputError("days "+msg,
			domain.NewValidationError("days", msg, raw)))
		return 0, false
	}
	return days, true
}
