package mcp

import (
	"context"

	"mdpvis/internal/config"
	"mdpvis/internal/engine"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Server holds the state for the MCP server: one engine session shared by
// every tool call.
type Server struct {
	cfg     *config.AppConfig
	engine  *engine.Engine
	version string
}

// NewServer creates a new MCP server over an engine session.
func NewServer(cfg *config.AppConfig, eng *engine.Engine, version string) *Server {
	return &Server{cfg: cfg, engine: eng, version: version}
}

// Start runs the MCP protocol over stdio until the client disconnects or
// ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := s.build()
	log.Info().Str("version", s.version).Msg("MCP server listening on stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) build() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "mdpvis",
		Version: s.version,
	}, nil)
	s.registerTools(server)
	return server
}
