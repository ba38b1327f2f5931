package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vytor/fairplay/internal/lichess"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <id|url>",
	Short: "Download a lichess game as PGN with clock comments",
	Long: `Download a game from lichess by its 8 or 12 character id or its URL
and print the PGN, including [%clk] comments, to stdout.

Examples:
  fairplay fetch abcdefgh
  fairplay fetch https://lichess.org/abcdefgh/black > game.pgn`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

var baseURL string

func init() {
	fetchCmd.Flags().StringVar(&baseURL, "base-url", "", "lichess base URL (default LICHESS_BASE_URL)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	url := cfg.LichessBaseURL
	if baseURL != "" {
		url = baseURL
	}

	text, err := lichess.New(url).Fetch(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	return err
}
