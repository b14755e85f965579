package scoring

import "github.com/akerimB/kpi-manager/internal/model"

// Child is one contributor to a parent score.
type Child struct {
	Score  float64
	Weight *float64
}

// WeightedScore is Σ score_i × w_i with w normalized over the children.
// No children scores 0.
func WeightedScore(children []Child) float64 {
	if len(children) == 0 {
		return 0
	}
	raw := make([]float64, len(children))
	for i, c := range children {
		raw[i] = RawWeight(c.Weight)
	}
	w := Normalize(raw)
	var total float64
	for i, c := range children {
		total += c.Score * w[i]
	}
	return total
}

// Tree is the strategy hierarchy the roll-up walks. Slice order is the
// iteration order and should be stable (by code / number).
type Tree struct {
	Goals   []model.StrategicGoal
	Targets []model.StrategicTarget
	Kpis    []model.KPI
}

// Rollup is the result of aggregating one period.
type Rollup struct {
	// TargetScores and GoalScores hold every node of the tree; nodes
	// without contributing children score 0.
	TargetScores map[string]float64
	GoalScores   map[string]float64

	// TargetHasData / GoalHasData mark nodes with at least one
	// contributing child.
	TargetHasData map[string]bool
	GoalHasData   map[string]bool

	// KpiWeights and TargetWeights are the normalized weights actually
	// applied among contributing siblings.
	KpiWeights    map[int64]float64
	TargetWeights map[string]float64
}

// Aggregate rolls KPI achievements up to SH and SA level for one period.
// achievements holds only KPIs that have data in the period. overrides
// maps a StrategicTarget id to a factory-specific multiplier applied to
// the SH score after weighting; it is not re-normalized.
func Aggregate(tree Tree, achievements map[int64]float64, overrides map[string]float64) Rollup {
	r := Rollup{
		TargetScores:  make(map[string]float64, len(tree.Targets)),
		GoalScores:    make(map[string]float64, len(tree.Goals)),
		TargetHasData: make(map[string]bool, len(tree.Targets)),
		GoalHasData:   make(map[string]bool, len(tree.Goals)),
		KpiWeights:    make(map[int64]float64),
		TargetWeights: make(map[string]float64),
	}

	kpisByTarget := make(map[string][]model.KPI)
	for _, k := range tree.Kpis {
		if _, ok := achievements[k.ID]; ok {
			kpisByTarget[k.StrategicTargetID] = append(kpisByTarget[k.StrategicTargetID], k)
		}
	}

	targetsByGoal := make(map[string][]model.StrategicTarget)
	for _, t := range tree.Targets {
		kpis := kpisByTarget[t.ID]
		r.TargetScores[t.ID] = 0
		if len(kpis) == 0 {
			continue
		}

		children := make([]Child, len(kpis))
		raw := make([]float64, len(kpis))
		for i, k := range kpis {
			children[i] = Child{Score: achievements[k.ID], Weight: k.SHWeight}
			raw[i] = RawWeight(k.SHWeight)
		}
		for i, w := range Normalize(raw) {
			r.KpiWeights[kpis[i].ID] = w
		}

		score := WeightedScore(children)
		if f, ok := overrides[t.ID]; ok {
			score *= f
		}
		r.TargetScores[t.ID] = score
		r.TargetHasData[t.ID] = true
		targetsByGoal[t.StrategicGoalID] = append(targetsByGoal[t.StrategicGoalID], t)
	}

	for _, g := range tree.Goals {
		targets := targetsByGoal[g.ID]
		r.GoalScores[g.ID] = 0
		if len(targets) == 0 {
			continue
		}

		children := make([]Child, len(targets))
		raw := make([]float64, len(targets))
		for i, t := range targets {
			children[i] = Child{Score: r.TargetScores[t.ID], Weight: t.GoalWeight}
			raw[i] = RawWeight(t.GoalWeight)
		}
		for i, w := range Normalize(raw) {
			r.TargetWeights[targets[i].ID] = w
		}

		r.GoalScores[g.ID] = WeightedScore(children)
		r.GoalHasData[g.ID] = true
	}

	return r
}
