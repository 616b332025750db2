package api

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/health-intelligence-engine/internal/domain"
	"github.com/health-intelligence-engine/internal/middleware"
	"github.com/health-intelligence-engine/internal/service"
)

const (
	wsReadLimit  = 64 * 1024
	wsWriteWait  = 10 * time.Second
	wsIdleWindow = 5 * time.Minute
)

// wsFrame is the server-to-client message on the chat socket. Exactly one of
// Reply and Error is set.
type wsFrame struct {
	Type  string               `json:"type"`
	Reply *domain.ChatResponse `json:"reply,omitempty"`
	Error gin.H                `json:"error,omitempty"`
}

// handleChatWebsocket runs a chat conversation over a websocket. Each text
// frame carries a chatBody; the conversation id of the first reply is reused
// for later turns that omit one.
func (s *Server) handleChatWebsocket(c *gin.Context) {
	patientID := c.Param("patientId")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.logger.WithFields(logrus.Fields{
		"correlation_id": c.GetString(middleware.CorrelationIDKey),
		"patient_id":     patientID,
	})
	log.Info("Chat websocket opened")

	conn.SetReadLimit(wsReadLimit)
	conversationID := ""

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleWindow))

		var turn chatBody
		if err := conn.ReadJSON(&turn); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				if !s.writeFrame(conn, wsFrame{Type: "error", Error: errorBody(
					domain.NewInvalidInputError("frame is not valid JSON", err))}) {
					return
				}
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("Chat websocket closed unexpectedly")
			} else {
				log.Info("Chat websocket closed")
			}
			return
		}

		if turn.ConversationID == "" {
			turn.ConversationID = conversationID
		}

		resp, err := s.health.Chat(c.Request.Context(), service.ChatRequest{
			PatientID:      patientID,
			Message:        turn.Message,
			ConversationID: turn.ConversationID,
			Model:          turn.Model,
		})

		frame := wsFrame{Type: "reply", Reply: resp}
		if err != nil {
			var engErr *domain.EngineError
			if !errors.As(err, &engErr) {
				log.WithError(err).Error("Chat turn failed")
				engErr = domain.NewEngineError(domain.ErrCodeInternal, "internal server error", nil, err)
			}
			frame = wsFrame{Type: "error", Error: errorBody(engErr)}
		} else {
			conversationID = resp.ConversationID
		}

		if !s.writeFrame(conn, frame) {
			return
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, frame wsFrame) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(frame); err != nil {
		s.logger.WithError(err).Debug("Websocket write failed")
		return false
	}
	return true
}
