package main

import (
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/akerimB/kpi-manager/internal/efficiency"
	"github.com/akerimB/kpi-manager/internal/engine"
	"github.com/akerimB/kpi-manager/internal/model"
)

var efficiencyCmd = &cobra.Command{
	Use:   "efficiency",
	Short: "Report action budget efficiency per strategic target and goal",
	Long: `Scores each action's KPI effect per unit of planned cost for a quarter
and sums actions up to strategic targets (SH) and goals (SA).

Modes:
  gap    impact x completion x (1 - current achievement)
  delta  impact x completion x max(0, current - previous achievement)

Examples:
  efficiency --period 2024-Q2
  efficiency --period 2024-Q2 --mode delta --previous 2023-Q4 --factory f1`,
	RunE: runEfficiency,
}

func init() {
	f := efficiencyCmd.Flags()
	f.String("period", "", "quarter to score (e.g. 2024-Q2)")
	f.String("previous", "", "comparison quarter (default: the quarter before --period)")
	f.String("mode", "gap", "effect formula: gap or delta")
	f.String("factory", "", "only actions of this factory")
	f.String("scope", "all", "access scope: all or comma-separated factory ids")
	f.String("level", "targets", "rows to print: actions, targets or goals")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table or csv")

	rootCmd.AddCommand(efficiencyCmd)
}

func runEfficiency(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	periodFlag, _ := cmd.Flags().GetString("period")
	prevFlag, _ := cmd.Flags().GetString("previous")
	modeFlag, _ := cmd.Flags().GetString("mode")
	factoryID, _ := cmd.Flags().GetString("factory")
	scopeFlag, _ := cmd.Flags().GetString("scope")
	level, _ := cmd.Flags().GetString("level")
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")

	if err := validateFormat(format); err != nil {
		return eris.Wrap(err, "efficiency")
	}
	period, err := model.ParsePeriod(periodFlag)
	if err != nil {
		return eris.Wrap(err, "efficiency: --period")
	}
	var prev model.Period
	if prevFlag != "" {
		if prev, err = model.ParsePeriod(prevFlag); err != nil {
			return eris.Wrap(err, "efficiency: --previous")
		}
	}
	mode, err := efficiency.ParseMode(modeFlag)
	if err != nil {
		return err
	}

	env, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	rep, err := env.Engine.BudgetEfficiency(ctx, model.ParseScope(scopeFlag), engine.EfficiencyRequest{
		Period:         period,
		PreviousPeriod: prev,
		Mode:           mode,
		FactoryID:      factoryID,
	})
	if err != nil {
		return eris.Wrap(err, "efficiency")
	}

	t, err := efficiencyTable(rep, level)
	if err != nil {
		return err
	}
	return writeOutput(t, format, outputPath)
}

// efficiencyTable renders one level of a budget-efficiency report.
func efficiencyTable(rep *efficiency.Report, level string) (table, error) {
	var t table
	switch level {
	case "actions":
		t.header = []string{"action", "title", "sh", "factory", "planned", "actual", "effect", "cost_source"}
		for _, a := range rep.Actions {
			t.add(a.Code, truncate(a.Title, 40), a.StrategicTargetID, a.FactoryID,
				fmtFloat(a.Planned), fmtFloat(a.Actual), strconv.FormatFloat(a.Effect, 'f', 4, 64), string(a.CostSource))
		}
	case "targets":
		t.header = []string{"code", "title", "goal", "actions", "planned", "actual", "effect", "efficiency"}
		for _, r := range rep.Targets {
			t.add(r.Code, truncate(r.Title, 40), r.GoalCode, strconv.Itoa(r.ActionCount),
				fmtFloat(r.Planned), fmtFloat(r.Actual), strconv.FormatFloat(r.Effect, 'f', 4, 64), fmtEfficiency(r.Efficiency))
		}
	case "goals":
		t.header = []string{"code", "title", "actions", "planned", "actual", "effect", "efficiency"}
		for _, r := range rep.Goals {
			t.add(r.Code, truncate(r.Title, 40), strconv.Itoa(r.ActionCount),
				fmtFloat(r.Planned), fmtFloat(r.Actual), strconv.FormatFloat(r.Effect, 'f', 4, 64), fmtEfficiency(r.Efficiency))
		}
	default:
		return t, eris.Errorf("efficiency: --level must be actions, targets or goals (got %q)", level)
	}
	return t, nil
}

// fmtEfficiency renders effect per unit cost; undefined is "-".
func fmtEfficiency(e *float64) string {
	if e == nil {
		return "-"
	}
	return strconv.FormatFloat(*e, 'g', 4, 64)
}
