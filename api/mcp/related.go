package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	relatedToolName    = "vault_related"
	relatedDescription = "Look up a note's graph neighborhood: the notes it links to and the notes that link back to it. The note may be named by full source ID, without its extension, or by bare basename."
)

// RelatedInput represents the input arguments for the vault_related tool.
type RelatedInput struct {
	Note string `json:"note" jsonschema:"the note identifier to look up"`
}

// RelatedOutput represents a note's graph neighborhood.
type RelatedOutput struct {
	Note      string   `json:"note"`
	Links     []string `json:"links"`
	Backlinks []string `json:"backlinks"`
}

// handleRelated processes a vault_related request.
func (s *Server) handleRelated(_ context.Context, _ *mcp.CallToolRequest, input RelatedInput) (*mcp.CallToolResult, RelatedOutput, error) {
	if input.Note == "" {
		return errorResult("note is required"), RelatedOutput{}, nil
	}

	rel := s.config.Graph.Related(input.Note)

	output := RelatedOutput{
		Note:      input.Note,
		Links:     rel.Links,
		Backlinks: rel.Backlinks,
	}
	if output.Links == nil {
		output.Links = []string{}
	}
	if output.Backlinks == nil {
		output.Backlinks = []string{}
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), RelatedOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
