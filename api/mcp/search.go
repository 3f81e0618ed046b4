package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/search"
)

var (
	searchToolName    = "memory_search"
	searchDescription = "Search the vault and captured memories with hybrid semantic + keyword retrieval. Returns ranked passages with source, line range, provenance, and related notes."
)

// SearchInput represents the input arguments for the memory_search tool.
type SearchInput struct {
	Query      string  `json:"query" jsonschema:"the search query text"`
	MaxResults int     `json:"max_results,omitempty" jsonschema:"number of results to return (default: 5)"`
	MinScore   float64 `json:"min_score,omitempty" jsonschema:"minimum relevance score for vector candidates (default: 0.5)"`
}

// SearchOutput represents the output of the memory_search tool.
type SearchOutput struct {
	Query    string          `json:"query"`
	Results  []search.Result `json:"results"`
	Count    int             `json:"count"`
	Degraded bool            `json:"degraded,omitempty"`
	Warning  string          `json:"warning,omitempty"`
}

// handleSearch processes a memory_search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	if input.Query == "" {
		return errorResult("query is required"), SearchOutput{}, nil
	}

	logger.Debug("MCP search request",
		zap.String("query", input.Query),
		zap.Int("max_results", input.MaxResults),
	)

	resp, err := s.config.Engine.Search(ctx, input.Query, search.Options{
		MaxResults: input.MaxResults,
		MinScore:   input.MinScore,
	})
	if err != nil {
		logger.Error("search failed", zap.Error(err))
		return errorResult(fmt.Sprintf("Search failed: %v", err)), SearchOutput{}, nil
	}

	output := SearchOutput{
		Query:    input.Query,
		Results:  resp.Results,
		Count:    len(resp.Results),
		Degraded: resp.Degraded,
		Warning:  resp.Warning,
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", zap.Error(err))
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
