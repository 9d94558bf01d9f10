package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mdpvis/internal/engine"
	"mdpvis/internal/ensemble"
	"mdpvis/internal/export"
	"mdpvis/internal/stats"
	"mdpvis/internal/visuals"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	filterFlags []string
	anchorTime  int
	chartVars   []string
	exportOut   string
	reportOut   string
	openReport  bool
)

type statsOutput struct {
	Status   engine.Status         `json:"status"`
	Filters  int                   `json:"filters"`
	Summary  *stats.Summary        `json:"summary,omitempty"`
	Ensemble []engine.EnsembleInfo `json:"ensemble"`
}

var statsCmd = &cobra.Command{
	Use:   "stats <ensemble.jsonl>",
	Short: "Print the statistics summary of a filtered ensemble file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadSession(args[0])
		if err != nil {
			return err
		}
		r := e.Statistics()
		out := statsOutput{Status: r.Status, Filters: len(e.Filters()), Ensemble: e.Ensembles()}
		if r.Statistics != nil {
			summary := r.Statistics.Summarize()
			out.Summary = &summary
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
		if r.Statistics == nil {
			return nil
		}
		for _, v := range chartVars {
			rows, ok := r.Statistics.Percentiles[v]
			if !ok {
				return fmt.Errorf("unknown variable %q", v)
			}
			fmt.Fprintln(cmd.OutOrStdout(), visuals.FanChart(v, rows))
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <ensemble.jsonl>",
	Short: "Write the filtered statistics table to an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadSession(args[0])
		if err != nil {
			return err
		}
		return export.WriteWorkbook(exportOut, e.Statistics().Statistics)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <ensemble.jsonl>",
	Short: "Write a Markdown report with Mermaid charts for every variable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadSession(args[0])
		if err != nil {
			return err
		}
		counts := make(map[string]engine.Counts)
		for _, v := range e.Variables() {
			if r := e.BrushCounts(v); r.Counts != nil {
				counts[v] = *r.Counts
			}
		}
		doc := visuals.Report(filepath.Base(args[0]), e.Statistics().Statistics, counts)
		if err := os.WriteFile(reportOut, []byte(doc), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		log.Info().Str("path", reportOut).Msg("Report written")

		if openReport {
			return browser.OpenFile(reportOut)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{statsCmd, exportCmd, reportCmd} {
		c.Flags().StringArrayVarP(&filterFlags, "filter", "f", nil, `range filter "variable@step=lower:upper" (repeatable)`)
		c.Flags().IntVar(&anchorTime, "anchor", 0, "anchor time step for brush counts")
	}
	statsCmd.Flags().StringSliceVar(&chartVars, "chart", nil, "print a Mermaid fan chart for these variables")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "statistics.xlsx", "workbook path")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "report.md", "report path")
	reportCmd.Flags().BoolVar(&openReport, "open", false, "open the report when done")
}

// loadSession reads an ensemble file into a fresh engine and applies the
// command line filters.
func loadSession(path string) (*engine.Engine, error) {
	trajectories, err := ensemble.ReadFile(path)
	if err != nil {
		return nil, err
	}
	e := engine.New(cfg.Engine, nil)
	if r := e.OnNewEnsemble(filepath.Base(path), path, trajectories); r.Status != engine.StatusOK {
		return nil, fmt.Errorf("%s: %s", path, r.Status)
	}
	if r := e.ChangeAnchorTime(anchorTime); r.Status == engine.StatusInvalidRange {
		return nil, fmt.Errorf("anchor time: %s", r.Message)
	}

	for _, raw := range filterFlags {
		f, err := parseFilter(raw)
		if err != nil {
			return nil, err
		}
		r := e.AddFilter(f.variable, f.step, f.lower, f.upper)
		switch r.Status {
		case engine.StatusMissingVariable, engine.StatusInvalidRange:
			return nil, fmt.Errorf("filter %q: %s", raw, r.Message)
		}
		if r.Change != nil && r.Change.Normalized {
			log.Warn().Str("filter", raw).Msg("Swapped inverted filter bounds")
		}
	}
	return e, nil
}

type filterArg struct {
	variable     string
	step         int
	lower, upper float64
}

// parseFilter reads "variable@step=lower:upper". The last '@' separates
// the variable, so names may contain '@'.
func parseFilter(raw string) (filterArg, error) {
	bad := func(reason string) (filterArg, error) {
		return filterArg{}, fmt.Errorf("invalid filter %q: %s (want variable@step=lower:upper)", raw, reason)
	}

	at := strings.LastIndex(raw, "@")
	if at <= 0 {
		return bad("missing variable@step")
	}
	stepStr, bounds, ok := strings.Cut(raw[at+1:], "=")
	if !ok {
		return bad("missing =")
	}
	loStr, hiStr, ok := strings.Cut(bounds, ":")
	if !ok {
		return bad("missing lower:upper")
	}

	step, err := strconv.Atoi(strings.TrimSpace(stepStr))
	if err != nil {
		return bad("step is not an integer")
	}
	lower, err := strconv.ParseFloat(strings.TrimSpace(loStr), 64)
	if err != nil {
		return bad("lower bound is not a number")
	}
	upper, err := strconv.ParseFloat(strings.TrimSpace(hiStr), 64)
	if err != nil {
		return bad("upper bound is not a number")
	}
	return filterArg{variable: raw[:at], step: step, lower: lower, upper: upper}, nil
}
