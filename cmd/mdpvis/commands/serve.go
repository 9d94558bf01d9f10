package commands

import (
	"os"
	"os/signal"
	"syscall"

	"mdpvis/internal/engine"
	"mdpvis/internal/ensemble"
	"mdpvis/internal/mcp"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	archive := ensemble.NewArchive()
	if err := archive.Load(cfg.CacheDir); err != nil {
		log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("Starting with an empty ensemble archive")
		archive = ensemble.NewArchive()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("MCP Server starting Stdio loop")
	server := mcp.NewServer(cfg, engine.New(cfg.Engine, archive), Version)
	return server.Start(ctx)
}
