package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/akerimB/kpi-manager/internal/scoring"
)

// WeightingResult counts the weights a recompute pass wrote.
type WeightingResult struct {
	KpiWeights    int `json:"kpi_weights"`
	TargetWeights int `json:"target_weights"`
}

// RecomputeWeights normalizes raw importance of KPIs within each SH and
// of SHs within each SA, then persists the results as shWeight and
// goalWeight. Siblings with no usable importance get uniform weights.
func (e *Engine) RecomputeWeights(ctx context.Context) (*WeightingResult, error) {
	targets, err := e.store.ListStrategicTargets(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "engine: load strategic targets")
	}
	kpis, err := e.store.ListKpis(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "engine: load kpis")
	}

	kpiGroups := make(map[string][]int)
	var shOrder []string
	for i, k := range kpis {
		if _, ok := kpiGroups[k.StrategicTargetID]; !ok {
			shOrder = append(shOrder, k.StrategicTargetID)
		}
		kpiGroups[k.StrategicTargetID] = append(kpiGroups[k.StrategicTargetID], i)
	}
	kpiWeights := make(map[int64]float64, len(kpis))
	for _, sh := range shOrder {
		idx := kpiGroups[sh]
		raw := make([]float64, len(idx))
		for j, i := range idx {
			raw[j] = scoring.RawWeight(kpis[i].Importance)
		}
		for j, w := range scoring.Normalize(raw) {
			kpiWeights[kpis[idx[j]].ID] = w
		}
	}

	targetGroups := make(map[string][]int)
	var saOrder []string
	for i, t := range targets {
		if _, ok := targetGroups[t.StrategicGoalID]; !ok {
			saOrder = append(saOrder, t.StrategicGoalID)
		}
		targetGroups[t.StrategicGoalID] = append(targetGroups[t.StrategicGoalID], i)
	}
	targetWeights := make(map[string]float64, len(targets))
	for _, sa := range saOrder {
		idx := targetGroups[sa]
		raw := make([]float64, len(idx))
		for j, i := range idx {
			raw[j] = scoring.RawWeight(targets[i].Importance)
		}
		for j, w := range scoring.Normalize(raw) {
			targetWeights[targets[idx[j]].ID] = w
		}
	}

	if err := e.store.UpdateKpiWeights(ctx, kpiWeights); err != nil {
		return nil, eris.Wrap(err, "engine: persist kpi weights")
	}
	if err := e.store.UpdateTargetWeights(ctx, targetWeights); err != nil {
		return nil, eris.Wrap(err, "engine: persist target weights")
	}
	e.log.Info("weights recomputed",
		zap.Int("kpi_weights", len(kpiWeights)),
		zap.Int("target_weights", len(targetWeights)),
	)
	return &WeightingResult{KpiWeights: len(kpiWeights), TargetWeights: len(targetWeights)}, nil
}
