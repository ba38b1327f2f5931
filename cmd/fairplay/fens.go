package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vytor/fairplay/internal/analysis"
	"github.com/vytor/fairplay/internal/pgn"
)

var fensCmd = &cobra.Command{
	Use:   "fens [file|-]",
	Short: "Print the FEN of every position in a game",
	Long: `Replay a PGN game and print one FEN per line: the starting position
followed by the position after every move.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFens,
}

func init() {
	rootCmd.AddCommand(fensCmd)
}

func runFens(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	rec, err := pgn.Load(text)
	if err != nil {
		return err
	}

	replay, err := analysis.NewReplay(rec.StartFEN, rec.Moves)
	if err != nil {
		return err
	}
	keys, err := replay.PositionKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}
