package commands

import (
	"fmt"
	"os"

	"mdpvis/internal/config"
	"mdpvis/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "mdpvis",
	Short: "MDPvis filters and summarises ensembles of MDP trajectories",
	Long: `Loads batches of simulated Markov decision process rollouts, filters them by
variable ranges at chosen time steps and reports per-step percentile statistics,
either as an MCP server (the default) or from the command line.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := logging.Init(verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Logging to stderr only: %v\n", err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("MDPvis starting")
	},
	RunE: runServe,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(serveCmd, statsCmd, exportCmd, reportCmd)
}
