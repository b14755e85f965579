package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/akerimB/kpi-manager/internal/alerting"
	"github.com/akerimB/kpi-manager/internal/engine"
	"github.com/akerimB/kpi-manager/internal/model"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Evaluate alert rules for a quarter",
	Long: `Evaluates the configured alerting.rules against factory KPI rows and
action rows of a quarter and prints the alerts that fire.`,
	RunE: runAlerts,
}

func init() {
	f := alertsCmd.Flags()
	f.String("period", "", "quarter to evaluate (e.g. 2024-Q2)")
	f.String("factory", "", "only this factory")
	f.String("scope", "all", "access scope: all or comma-separated factory ids")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table or csv")

	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	periodFlag, _ := cmd.Flags().GetString("period")
	factoryID, _ := cmd.Flags().GetString("factory")
	scopeFlag, _ := cmd.Flags().GetString("scope")
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")

	if err := validateFormat(format); err != nil {
		return eris.Wrap(err, "alerts")
	}
	period, err := model.ParsePeriod(periodFlag)
	if err != nil {
		return eris.Wrap(err, "alerts: --period")
	}

	env, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	alerts, err := env.Engine.Alerts(ctx, model.ParseScope(scopeFlag), engine.AlertRequest{Period: period, FactoryID: factoryID})
	if err != nil {
		return eris.Wrap(err, "alerts")
	}
	return writeOutput(alertsTable(alerts), format, outputPath)
}

func alertsTable(alerts []alerting.Alert) table {
	t := table{header: []string{"severity", "rule", "subject", "id", "factory", "value", "message"}}
	for _, a := range alerts {
		t.add(a.Severity, a.Rule, string(a.Subject), a.SubjectID, a.FactoryID, fmtFloat(a.Value), a.Message)
	}
	return t
}
