package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vytor/fairplay/internal/analysis"
	"github.com/vytor/fairplay/internal/config"
	apperrors "github.com/vytor/fairplay/internal/errors"
	"github.com/vytor/fairplay/internal/logger"
	"github.com/vytor/fairplay/internal/models"
	"github.com/vytor/fairplay/internal/pgn"
	"github.com/vytor/fairplay/internal/stats"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Analyse a PGN game",
	Long: `Analyse a single PGN game read from a file or stdin.

The game needs an Event tag naming a blitz, rapid or classical game and a
TimeControl tag such as "180+2". Clock comments ([%clk 0:02:58]) are used
to compute the time spent on every move.

Examples:
  fairplay analyze game.pgn
  fairplay analyze --depth 14 --top-k 3 --json game.pgn
  fairplay analyze --thresholds strict.yaml - < game.pgn`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var (
	outputJSON     bool
	depth          int
	topK           int
	thresholdsFile string
	stockfishPath  string
	timeout        time.Duration
)

// launchEngine starts the evaluator used by analyze.
var launchEngine analysis.Launcher = analysis.StockfishLauncher

func init() {
	analyzeCmd.Flags().BoolVar(&outputJSON, "json", false, "output the analysis as JSON")
	analyzeCmd.Flags().IntVar(&depth, "depth", 0, "search depth (default STOCKFISH_DEPTH)")
	analyzeCmd.Flags().IntVar(&topK, "top-k", 0, "candidate moves per position (default TOP_K)")
	analyzeCmd.Flags().StringVar(&thresholdsFile, "thresholds", "", "YAML thresholds profile (default THRESHOLDS_FILE)")
	analyzeCmd.Flags().StringVar(&stockfishPath, "stockfish", "", "Stockfish binary (default STOCKFISH_PATH)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 = no limit)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	rec, err := pgn.Load(text)
	if err != nil {
		return err
	}

	c := cfg
	if depth > 0 {
		c.StockfishDepth = depth
	}
	if topK > 0 {
		c.TopK = topK
	}
	if thresholdsFile != "" {
		c.ThresholdsFile = thresholdsFile
	}
	if stockfishPath != "" {
		c.StockfishPath = stockfishPath
	}
	th, err := c.LoadThresholds()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m := stats.NewMemory()
	if verbose {
		defer writeRunMetrics(cmd.ErrOrStderr(), m)
	}
	res, err := analyzeRecord(ctx, c, rec, th, m)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return writeAnalysisJSON(out, rec, c, th, res)
	}
	return writeAnalysisTable(out, rec, res)
}

func analyzeRecord(ctx context.Context, c config.Config, rec models.GameRecord, th analysis.Thresholds, m stats.Collector) (*analysis.Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx).WithPrefix("cli")

	ev, err := launchEngine(ctx, c.EngineOptions())
	if err != nil {
		m.IncCounter(stats.MetricAnalysisFailures, 1)
		m.IncCounter(stats.MetricEngineUnavailable, 1)
		return nil, apperrors.FromDeadline(err)
	}
	defer ev.Close()

	res, err := analysis.Run(ctx, ev, rec, analysis.Options{TopK: c.TopK, Thresholds: &th})
	if err != nil {
		err = apperrors.FromDeadline(err)
		m.IncCounter(stats.MetricAnalysisFailures, 1)
		if errors.Is(err, apperrors.ErrEngineUnavailable) {
			m.IncCounter(stats.MetricEngineUnavailable, 1)
		}
		log.Debug("analysis failed after %v: %v", time.Since(start), err)
		return nil, err
	}
	m.IncCounter(stats.MetricAnalyses, 1)
	m.IncCounter(stats.MetricPliesAnalyzed, int64(len(rec.Moves)))
	m.ObserveHistogram(stats.MetricAnalysisSeconds, time.Since(start).Seconds())
	return res, nil
}

func writeAnalysisJSON(w io.Writer, rec models.GameRecord, c config.Config, th analysis.Thresholds, res *analysis.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(models.Analysis{
		GameType:    rec.Type,
		TimeControl: rec.TimeControl,
		White:       rec.White,
		Black:       rec.Black,
		Result:      rec.Result,
		ECOCode:     rec.ECOCode,
		OpeningName: rec.OpeningName,
		Thresholds:  th,
		TopK:        c.TopK,
		Depth:       c.StockfishDepth,
		Rows:        res.Rows,
		Summary:     res.Summary,
		CreatedAt:   time.Now().UTC(),
	})
}

func writeAnalysisTable(w io.Writer, rec models.GameRecord, res *analysis.Result) error {
	fmt.Fprintf(w, "%s vs %s  %s  %s %d+%d", rec.White, rec.Black, rec.Result, rec.Type,
		rec.TimeControl.BaseSeconds, rec.TimeControl.IncrementSeconds)
	if rec.OpeningName != "" {
		fmt.Fprintf(w, "  %s %s", rec.ECOCode, rec.OpeningName)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSIDE\tMOVE\tCLOCK\tTIME\tEVAL\tSPREAD\tDELTA\tQUALITY\tLABEL\tFLAG")
	for _, row := range res.Rows {
		for _, side := range []models.Side{models.White, models.Black} {
			f := row.Side(side)
			if !f.Present() {
				continue
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				row.Number, side, f.Move,
				num(f.Clock, 0), num(f.TimeSpent, 0), num(f.Eval, 2), num(f.EvalSpread, 2), num(f.EvalDelta, 2),
				f.Quality, label(f.Label), f.Flag)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SIDE\tCRITICAL\tMEAN TIME\tSTDEV\tCV\tFORCED\tFORCED CAPTURE\tFLAGGED\tAVG LOSS")
	for _, side := range []models.Side{models.White, models.Black} {
		s := res.Summary.White
		if side == models.Black {
			s = res.Summary.Black
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			side, s.CriticalCount, fixed(s.MeanTime, 1), fixed(s.StdDevTime, 1), fixed(s.CV, 2),
			s.ForcedCount, s.ForcedCaptureCount, s.FlaggedCount, fixed(s.AvgLoss, 2))
	}
	return tw.Flush()
}

// writeRunMetrics prints the counters and timings of one CLI run.
func writeRunMetrics(w io.Writer, m *stats.Memory) {
	counters := m.Counters()
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tVALUE")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%d\n", name, counters[name])
	}
	for _, v := range m.Observations(stats.MetricAnalysisSeconds) {
		fmt.Fprintf(tw, "%s\t%.3f\n", stats.MetricAnalysisSeconds, v)
	}
	_ = tw.Flush()
}

func num(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func fixed(v float64, prec int) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func label(l *models.Label) string {
	switch {
	case l == nil:
		return "-"
	case *l == models.LabelNone:
		return ""
	default:
		return string(*l)
	}
}
