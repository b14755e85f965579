package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akerimB/kpi-manager/internal/engine"
	"github.com/akerimB/kpi-manager/internal/model"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score KPIs, strategic targets and goals for one or more quarters",
	Long: `Computes KPI achievement for each requested quarter and rolls it up
to strategic targets (SH) and strategic goals (SA). A single quarter is
compared with the quarter before it.

Examples:
  # Network view of SH scores for two quarters
  score --periods 2024-Q1,2024-Q2

  # One factory, goal level, as CSV
  score --periods 2024-Q2 --factory f1 --view goals --format csv

  # Top 5 SH movers within the digital theme
  score --periods 2024-Q1,2024-Q2 --theme digital --view movers --top 5

  # Factory benchmark for the last quarter
  score --periods 2024-Q2 --view benchmark`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("periods", "", "comma-separated quarters (e.g. 2024-Q1,2024-Q2)")
	f.String("factory", "", "score a single factory")
	f.String("scope", "all", "access scope: all or comma-separated factory ids")
	f.String("theme", "", "only KPIs tagged with this theme")
	f.String("kpis", "", "comma-separated KPI ids")
	f.Int("top", 0, "movers list size (0=use config default)")
	f.String("view", "targets", "what to print: kpis, targets, goals, movers or benchmark")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table or csv")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	periodsFlag, _ := cmd.Flags().GetString("periods")
	factoryID, _ := cmd.Flags().GetString("factory")
	scopeFlag, _ := cmd.Flags().GetString("scope")
	theme, _ := cmd.Flags().GetString("theme")
	kpisFlag, _ := cmd.Flags().GetString("kpis")
	top, _ := cmd.Flags().GetInt("top")
	view, _ := cmd.Flags().GetString("view")
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")

	if err := validateFormat(format); err != nil {
		return eris.Wrap(err, "score")
	}
	periods, err := model.ParsePeriods(periodsFlag)
	if err != nil {
		return eris.Wrap(err, "score: --periods")
	}
	kpiIDs, err := parseIDs(kpisFlag)
	if err != nil {
		return eris.Wrap(err, "score: --kpis")
	}

	env, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.Engine.Score(ctx, model.ParseScope(scopeFlag), engine.ScoreRequest{
		Periods:   periods,
		FactoryID: factoryID,
		Theme:     theme,
		KpiIDs:    kpiIDs,
		TopN:      top,
	})
	if err != nil {
		return eris.Wrap(err, "score")
	}

	t, err := scoreTable(res, view)
	if err != nil {
		return err
	}
	zap.L().Info("score complete",
		zap.Int("periods", len(res.Periods)),
		zap.String("view", view),
		zap.Int("rows", len(t.rows)),
	)
	return writeOutput(t, format, outputPath)
}

// scoreTable renders one view of a ScoreResult.
func scoreTable(res *engine.ScoreResult, view string) (table, error) {
	var t table
	periodCols := make([]string, len(res.Periods))
	for i, p := range res.Periods {
		periodCols[i] = p.String()
	}

	switch view {
	case "kpis":
		t.header = append(append([]string{"kpi", "description", "sh"}, periodCols...), "trend", "direction")
		for _, k := range res.Kpis {
			row := []string{strconv.Itoa(k.Number), truncate(k.Description, 40), k.StrategicTargetID}
			for _, s := range k.Series {
				row = append(row, fmtScore(s.Score))
			}
			t.add(append(row, fmtFloat(k.Trend), string(k.Direction))...)
		}
	case "targets":
		t.header = append(append([]string{"code", "title", "weight"}, periodCols...), "trend", "direction")
		for _, sh := range res.Targets {
			row := []string{sh.Code, truncate(sh.Title, 40), fmtWeight(sh.Weight)}
			for _, s := range sh.Series {
				row = append(row, fmtScore(s.Score))
			}
			t.add(append(row, fmtFloat(sh.Trend), string(sh.Direction))...)
		}
	case "goals":
		t.header = append(append([]string{"code", "title"}, periodCols...), "trend", "direction")
		for _, sa := range res.Goals {
			row := []string{sa.Code, truncate(sa.Title, 40)}
			for _, s := range sa.Series {
				row = append(row, fmtScore(s.Score))
			}
			t.add(append(row, fmtFloat(sa.Trend), string(sa.Direction))...)
		}
	case "movers":
		t.header = []string{"list", "code", "title", "previous", "current", "delta"}
		for _, m := range res.Movers.Improving {
			t.add("improving", m.Code, truncate(m.Title, 40), fmtFloat(m.Previous), fmtFloat(m.Current), fmtFloat(m.Delta))
		}
		for _, m := range res.Movers.Declining {
			t.add("declining", m.Code, truncate(m.Title, 40), fmtFloat(m.Previous), fmtFloat(m.Current), fmtFloat(m.Delta))
		}
	case "benchmark":
		t.header = []string{"rank", "factory", "name", "average", "kpis", "achieved", "tier", "percentile"}
		for _, b := range res.Benchmark.Entries {
			t.add(strconv.Itoa(b.Rank), b.FactoryCode, truncate(b.FactoryName, 30), fmtFloat(b.AverageScore),
				strconv.Itoa(b.KpiCount), strconv.Itoa(b.AchievedCount), string(b.Tier), strconv.Itoa(b.Percentile))
		}
	default:
		return t, eris.Errorf("score: --view must be kpis, targets, goals, movers or benchmark (got %q)", view)
	}
	return t, nil
}

func fmtWeight(w *float64) string {
	if w == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *w)
}

// parseIDs parses a comma-separated list of KPI ids.
func parseIDs(s string) ([]int64, error) {
	var out []int64
	for _, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, eris.Errorf("invalid id %q", raw)
		}
		out = append(out, id)
	}
	return out, nil
}
