package main

import (
	"github.com/spf13/cobra"

	"github.com/vytor/fairplay/internal/config"
	"github.com/vytor/fairplay/internal/logger"
)

var (
	// Global flags.
	verbose bool
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fairplay",
	Short: "Replay chess games through an engine and label suspicious moves",
	Long: `Fairplay replays a game move by move through Stockfish, ranks the
candidate moves at every position and labels moves as forced, forced
capture or critical. Long thinks on forced moves are flagged and time
usage on critical moves is summarised per side.

Examples:
  # Analyse a PGN file
  fairplay analyze game.pgn

  # Fetch a lichess game and analyse it
  fairplay fetch https://lichess.org/abcdefgh | fairplay analyze -

  # Print the FEN of every position
  fairplay fens game.pgn`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		level := logger.ParseLevel(cfg.LogLevel)
		if verbose {
			level = logger.DEBUG
		} else if level < logger.WARN {
			level = logger.WARN
		}
		logger.SetDefault(logger.New(
			logger.WithOutput(cmd.ErrOrStderr()),
			logger.WithLevel(level),
			logger.WithFormat(cfg.LogFormat),
		))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}
