package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	organizeToolName    = "vault_organize"
	organizeDescription = "Report vault hygiene from the link graph: orphan notes nothing links to, and ghost targets that are still referenced but no longer exist as indexed notes."
)

// OrganizeInput represents the input arguments for the vault_organize tool.
type OrganizeInput struct{}

// OrganizeOutput lists vault hygiene findings.
type OrganizeOutput struct {
	Orphans []string `json:"orphans"`
	Ghosts  []string `json:"ghosts"`
	Nodes   int      `json:"nodes"`
}

// handleOrganize processes a vault_organize request.
func (s *Server) handleOrganize(_ context.Context, _ *mcp.CallToolRequest, _ OrganizeInput) (*mcp.CallToolResult, OrganizeOutput, error) {
	output := OrganizeOutput{
		Orphans: s.config.Graph.Orphans(),
		Ghosts:  s.config.Graph.Ghosts(),
		Nodes:   s.config.Graph.Len(),
	}
	if output.Orphans == nil {
		output.Orphans = []string{}
	}
	if output.Ghosts == nil {
		output.Ghosts = []string{}
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), OrganizeOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
