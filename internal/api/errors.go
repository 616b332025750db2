package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/health-intelligence-engine/internal/domain"
	"github.com/health-intelligence-engine/internal/middleware"
)

// statusForCode maps engine error codes onto HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeInvalidInput, domain.ErrCodeUnsupportedModel:
		return http.StatusBadRequest
	case domain.ErrCodeInsufficientContext:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeQuotaExceeded:
		return http.StatusTooManyRequests
	case domain.ErrCodeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err at a level matching its severity and writes the JSON
// error envelope.
func (s *Server) writeError(c *gin.Context, err error) {
	entry := s.logger.WithFields(logrus.Fields{
		"correlation_id": c.GetString(middleware.CorrelationIDKey),
		"code":           domain.CodeOf(err),
	})
	if status := statusForCode(domain.CodeOf(err)); status >= http.StatusInternalServerError {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.Debug(err.Error())
	}
	writeEngineError(c, err)
}

func writeEngineError(c *gin.Context, err error) {
	var engErr *domain.EngineError
	if !errors.As(err, &engErr) {
		engErr = domain.NewEngineError(domain.ErrCodeInternal, "internal server error", nil, err)
	}

	status := statusForCode(engErr.Code)
	if engErr.Code == domain.ErrCodeQuotaExceeded {
		if retry, ok := retryAfterSeconds(engErr.Details, time.Now()); ok {
			c.Header("Retry-After", strconv.Itoa(retry))
		}
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":          errorBody(engErr),
		"correlation_id": c.GetString(middleware.CorrelationIDKey),
	})
}

func errorBody(engErr *domain.EngineError) gin.H {
	body := gin.H{
		"code":    engErr.Code,
		"message": engErr.Message,
	}
	if len(engErr.Details) > 0 {
		body["details"] = engErr.Details
	}
	return body
}

// retryAfterSeconds derives the Retry-After value from a quota error's reset_at.
func retryAfterSeconds(details map[string]interface{}, now time.Time) (int, bool) {
	raw, ok := details["reset_at"].(string)
	if !ok {
		return 0, false
	}
	resetAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, false
	}
	seconds := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds, true
}
