// Package mcp exposes the retrieval engine over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/capture"
	"github.com/quillvault/quill/pkg/graph"
	"github.com/quillvault/quill/pkg/search"
	"github.com/quillvault/quill/pkg/utils"
	"github.com/quillvault/quill/pkg/vector"
)

type Config struct {
	// Engine answers memory_search queries.
	Engine *search.Engine

	// Capture runs the memory_capture pipeline.
	Capture *capture.Service

	// Graph answers vault_related and vault_organize lookups.
	Graph *graph.Graph

	// Vectors lists and deletes stored captures.
	Vectors vector.Driver

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
	httpSrv   *http.Server
}

// NewServer creates a new MCP server with the quill tools.
func NewServer(c Config) (*Server, error) {
	if c.Engine == nil {
		return nil, errors.New("search engine is required")
	}
	if c.Capture == nil {
		return nil, errors.New("capture service is required")
	}
	if c.Graph == nil {
		return nil, errors.New("graph is required")
	}
	if c.Vectors == nil {
		return nil, errors.New("vector driver is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "quill",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        searchToolName,
		Description: searchDescription,
	}, s.handleSearch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        captureToolName,
		Description: captureDescription,
	}, s.handleCapture)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        relatedToolName,
		Description: relatedDescription,
	}, s.handleRelated)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        organizeToolName,
		Description: organizeDescription,
	}, s.handleOrganize)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves the MCP handler on the given address until Shutdown.
func (s *Server) Run(listen string) error {
	s.httpSrv = &http.Server{
		Addr:              listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.config.Logger.Info("starting MCP server",
		zap.String("listen", listen),
	)

	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the MCP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// errorResult wraps a message as a failed tool call.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
