// Package mcp serves the scoring engine as MCP tools over stdio.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/leoprotocol/leoscore/internal/engine"
	"github.com/leoprotocol/leoscore/internal/logging"
)

// Server wraps the MCP SDK server around a scoring engine.
type Server struct {
	mcpServer *mcpsdk.Server
	engine    *engine.Engine
	logger    *zap.Logger
}

// New creates an MCP server exposing eng. The engine stays owned by the caller.
func New(eng *engine.Engine, version string, logger *zap.Logger) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		engine: eng,
		logger: logging.OrNop(logger),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "leoscore",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting on stdio")
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all leoscore tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "leo_score",
		Description: "Score a venture context against the anti-pattern catalog. Returns matched patterns, risk level and prevention recommendations.",
	}, s.handleScore)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "leo_suggest",
		Description: "Suggest catalog patterns that a post-mortem (summary plus five-whys answers) most likely describes.",
	}, s.handleSuggest)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "leo_bypass",
		Description: "Decide whether an issue may skip the full governance process (MICRO_FIX, QUICK_FIX) or requires it (FULL_SD).",
	}, s.handleBypass)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "leo_patterns",
		Description: "List active catalog patterns, optionally filtered by id, category or severity.",
	}, s.handlePatterns)
}
