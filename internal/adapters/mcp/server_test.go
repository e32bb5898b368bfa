package mcpadapter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
)

type answerServiceFake struct {
	answer domain.Answer
	asked  string
}

func (f *answerServiceFake) Answer(_ context.Context, rawQuery string) domain.Answer {
	f.asked = rawQuery
	return f.answer
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var request mcp.CallToolRequest
	request.Params.Name = "clinical_answer"
	request.Params.Arguments = args
	return request
}

func TestClinicalAnswerToolReturnsAnswerJSON(t *testing.T) {
	fake := &answerServiceFake{answer: domain.Answer{
		Text:     "Administer aspirin 325 mg.",
		Category: domain.CategoryProtocol,
		TierUsed: 1,
	}}
	srv := NewServer(fake, nil)

	result, err := srv.handleClinicalAnswer(context.Background(), callRequest(map[string]any{
		"question": "What is the STEMI protocol?",
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result)
	}
	if fake.asked != "What is the STEMI protocol?" {
		t.Fatalf("question not forwarded, got %q", fake.asked)
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	var answer domain.Answer
	if err := json.Unmarshal([]byte(text.Text), &answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.TierUsed != 1 || answer.Category != domain.CategoryProtocol {
		t.Fatalf("unexpected answer: %+v", answer)
	}
}

func TestClinicalAnswerToolRejectsMissingQuestion(t *testing.T) {
	srv := NewServer(&answerServiceFake{}, nil)

	result, err := srv.handleClinicalAnswer(context.Background(), callRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error for missing question")
	}
}

func TestClinicalAnswerToolRejectsBlankQuestion(t *testing.T) {
	srv := NewServer(&answerServiceFake{}, nil)

	result, err := srv.handleClinicalAnswer(context.Background(), callRequest(map[string]any{
		"question": "   ",
	}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error for blank question")
	}
}
