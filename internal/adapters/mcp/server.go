package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/clinical-qa/internal/core/ports"
)

// Server exposes the answering pipeline as an MCP tool so agent frontends
// can call it over stdio.
type Server struct {
	answers ports.AnswerService
	logger  *slog.Logger
}

func NewServer(answers ports.AnswerService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{answers: answers, logger: logger}
}

// MCPServer builds the underlying tool server with the clinical_answer tool
// registered.
func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer("clinical-qa", version, server.WithToolCapabilities(false))

	tool := mcp.NewTool("clinical_answer",
		mcp.WithDescription("Answer a clinical operations question from the hospital knowledge base, with confidence scoring and evidence attribution."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The clinical question, e.g. a protocol, dosage, criteria, contact, or form request."),
		),
	)
	srv.AddTool(tool, s.handleClinicalAnswer)
	return srv
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio(version string) error {
	return server.ServeStdio(s.MCPServer(version))
}

func (s *Server) handleClinicalAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return mcp.NewToolResultError("question must not be empty"), nil
	}

	answer := s.answers.Answer(ctx, question)
	s.logger.Info("mcp_question_answered",
		"category", answer.Category,
		"tier_used", answer.TierUsed,
		"confidence", answer.Confidence,
	)

	payload, err := json.Marshal(answer)
	if err != nil {
		return nil, fmt.Errorf("marshal answer: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
