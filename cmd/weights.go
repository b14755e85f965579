package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Manage hierarchy weights",
}

var weightsRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Normalize raw importance into KPI and SH weights",
	Long: `Normalizes KPI importance within each strategic target (SH) and SH
importance within each strategic goal (SA), then stores the results as
shWeight and goalWeight. Siblings without usable importance receive
uniform weights.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Engine.RecomputeWeights(ctx)
		if err != nil {
			return eris.Wrap(err, "weights recompute")
		}
		fmt.Printf("Updated %d KPI weights and %d SH weights\n", res.KpiWeights, res.TargetWeights)
		return nil
	},
}

func init() {
	weightsCmd.AddCommand(weightsRecomputeCmd)
	rootCmd.AddCommand(weightsCmd)
}
