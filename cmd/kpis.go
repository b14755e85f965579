package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/akerimB/kpi-manager/internal/tagging"
)

var kpisCmd = &cobra.Command{
	Use:   "kpis",
	Short: "Manage KPI metadata",
}

var kpisTagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Classify KPI descriptions into theme tags",
	Long: `Applies the keyword rules (built-in, or tagging.rules_path / --rules)
to every KPI description and stores the resulting theme tags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rulesPath, _ := cmd.Flags().GetString("rules")
		if rulesPath == "" {
			rulesPath = cfg.Tagging.RulesPath
		}
		rules, err := tagging.LoadRules(rulesPath)
		if err != nil {
			return err
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Engine.TagKpis(ctx, tagging.NewTagger(rules))
		if err != nil {
			return eris.Wrap(err, "kpis tag")
		}
		fmt.Printf("Updated themes on %d KPIs (%d rules)\n", n, len(rules))
		return nil
	},
}

func init() {
	kpisTagCmd.Flags().String("rules", "", "YAML rule file (overrides tagging.rules_path)")
	kpisCmd.AddCommand(kpisTagCmd)
	rootCmd.AddCommand(kpisCmd)
}
