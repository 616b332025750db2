// Package mcp exposes the health engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/health-intelligence-engine/internal/domain"
	"github.com/health-intelligence-engine/internal/service"
)

// Server registers the engine's operations as MCP tools.
type Server struct {
	health    *service.HealthService
	mcpServer *mcp.Server
	logger    *logrus.Logger
	tools     []string
}

// NewServer creates a new MCP server instance with all tools registered.
func NewServer(health *service.HealthService, logger *logrus.Logger, info *mcp.Implementation) *Server {
	if info == nil {
		info = &mcp.Implementation{Name: "health-intelligence-engine", Version: "v1.0.0"}
	}

	s := &Server{
		health:    health,
		mcpServer: mcp.NewServer(info, nil),
		logger:    logger,
	}
	s.registerTools()
	return s
}

// Run serves MCP requests over transport until the context is cancelled or
// the client disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// ToolNames returns the registered tool names in registration order.
func (s *Server) ToolNames() []string {
	out := make([]string, len(s.tools))
	copy(out, s.tools)
	return out
}

func (s *Server) registerTools() {
	addTool(s, &mcp.Tool{
		Name:        "predict_symptoms",
		Description: "Rank likely conditions for a list of reported symptoms using weighted symptom overlap.",
	}, s.predictSymptoms)

	addTool(s, &mcp.Tool{
		Name:        "generate_health_summary",
		Description: "Generate an AI health summary from the patient's recent reports, notes and symptom checks.",
	}, s.generateHealthSummary)

	addTool(s, &mcp.Tool{
		Name:        "chat",
		Description: "Send one chat message grounded in the patient's recent health context.",
	}, s.chat)

	addTool(s, &mcp.Tool{
		Name:        "get_context_summary",
		Description: "Count the patient's recent records and report the last activity time.",
	}, s.getContextSummary)

	addTool(s, &mcp.Tool{
		Name:        "get_conversation_history",
		Description: "Return the stored messages of a conversation.",
	}, s.getConversationHistory)

	addTool(s, &mcp.Tool{
		Name:        "list_models",
		Description: "List the model identifiers the engine can route to.",
	}, s.listModels)

	s.logger.WithField("tool_count", len(s.tools)).Info("Successfully registered all tools")
}

func addTool[In any](s *Server, tool *mcp.Tool, handler mcp.ToolHandlerFor[In, any]) {
	mcp.AddTool(s.mcpServer, tool, handler)
	s.tools = append(s.tools, tool.Name)
	s.logger.WithField("tool_name", tool.Name).Debug("Registered MCP tool")
}

// jsonResult renders v as the tool's text content.
func jsonResult(v interface{}) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// errorResult reports an engine failure as a tool error so the client model
// can see the code and message.
func (s *Server) errorResult(tool string, err error) (*mcp.CallToolResult, any, error) {
	code := domain.CodeOf(err)
	message := "internal error"
	var engErr *domain.EngineError
	if errors.As(err, &engErr) {
		message = engErr.Message
	}

	entry := s.logger.WithFields(logrus.Fields{"tool": tool, "code": code})
	if code == domain.ErrCodeInternal {
		entry.WithError(err).Error("Tool execution failed")
	} else {
		entry.Debug("Tool returned an error")
	}

	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%s: %s", code, message)}},
	}, nil, nil
}
