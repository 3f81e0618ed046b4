package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var (
	captureToolName    = "memory_capture"
	captureDescription = "Offer conversational text as a candidate durable memory. The engine decides whether it is capture-worthy, categorizes it, applies per-conversation rate limits, suppresses near-duplicates, and stores accepted memories."
)

// CaptureInput represents the input arguments for the memory_capture tool.
type CaptureInput struct {
	Text            string `json:"text" jsonschema:"the conversational text to consider capturing"`
	ConversationKey string `json:"conversation_key,omitempty" jsonschema:"opaque key identifying the conversation, used for rate limiting"`
}

// CaptureOutput represents the outcome of a capture attempt.
type CaptureOutput struct {
	Stored   bool   `json:"stored"`
	Reason   string `json:"reason,omitempty"`
	ID       string `json:"id,omitempty"`
	Category string `json:"category,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

// handleCapture processes a memory_capture request.
func (s *Server) handleCapture(ctx context.Context, _ *mcp.CallToolRequest, input CaptureInput) (*mcp.CallToolResult, CaptureOutput, error) {
	if input.Text == "" {
		return errorResult("text is required"), CaptureOutput{}, nil
	}

	outcome, err := s.config.Capture.Capture(ctx, input.Text, input.ConversationKey)
	if err != nil {
		s.config.Logger.Error("capture failed", zap.Error(err))
		return errorResult(fmt.Sprintf("Capture failed: %v", err)), CaptureOutput{}, nil
	}

	output := CaptureOutput{
		Stored:   outcome.Stored,
		Reason:   outcome.Reason,
		ID:       outcome.ID,
		Category: string(outcome.Category),
		Warning:  outcome.Warning,
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), CaptureOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
