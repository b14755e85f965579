// Package efficiency scores how much KPI effect actions deliver per unit
// of money spent, aggregated to StrategicTarget and StrategicGoal level.
package efficiency

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/akerimB/kpi-manager/internal/model"
)

// Mode selects the effect formula.
type Mode string

const (
	// ModeGap rewards impact on KPIs still far from target.
	ModeGap Mode = "gap"
	// ModeDelta rewards realized improvement only.
	ModeDelta Mode = "delta"
)

// ParseMode validates a mode string; empty means ModeGap.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeGap:
		return ModeGap, nil
	case ModeDelta:
		return ModeDelta, nil
	default:
		return "", eris.Errorf("efficiency: unknown mode %q (want gap or delta)", s)
	}
}

// Achievements holds KPI achievement as a fraction in [0,1] (achievement
// percent / 100) for the requested and the previous period. KPIs without
// data are absent and read as 0.
type Achievements struct {
	Current  map[int64]float64
	Previous map[int64]float64
}

// LinkEffect is the effect of one action→KPI link.
//
//	gap:   impact × completion/100 × (1 − current)
//	delta: impact × completion/100 × max(0, current − previous)
func LinkEffect(mode Mode, impactScore, completionPercent, current, previous float64) float64 {
	progress := impactScore * (completionPercent / 100)
	if mode == ModeDelta {
		return progress * math.Max(0, current-previous)
	}
	return progress * (1 - current)
}

// ActionEffect averages LinkEffect over the action's KPI links. An action
// without links has no effect.
func ActionEffect(mode Mode, a model.Action, ach Achievements) float64 {
	if len(a.Kpis) == 0 {
		return 0
	}
	var total float64
	for _, link := range a.Kpis {
		total += LinkEffect(mode, link.ImpactScore, a.CompletionPercent,
			ach.Current[link.KpiID], ach.Previous[link.KpiID])
	}
	return total / float64(len(a.Kpis))
}

// CostSource records which records a cost figure came from.
type CostSource string

const (
	CostFromSteps        CostSource = "steps"
	CostFromPeriodBudget CostSource = "budget_period"
	CostFromBudget       CostSource = "budget"
	CostNone             CostSource = "none"
)

// ResolveCost prefers step costs recorded for the period, then action
// budgets tagged with the period, then untagged action budgets.
func ResolveCost(a model.Action, period model.Period) (planned, actual float64, src CostSource) {
	found := false
	for _, s := range a.Steps {
		if s.Period != period || (s.PlannedCost == nil && s.ActualCost == nil) {
			continue
		}
		found = true
		if s.PlannedCost != nil {
			planned += *s.PlannedCost
		}
		if s.ActualCost != nil {
			actual += *s.ActualCost
		}
	}
	if found {
		return planned, actual, CostFromSteps
	}

	for _, want := range []struct {
		period model.Period
		src    CostSource
	}{{period, CostFromPeriodBudget}, {"", CostFromBudget}} {
		found = false
		planned, actual = 0, 0
		for _, b := range a.Budgets {
			if b.Period != want.period {
				continue
			}
			found = true
			planned += b.PlannedCost
			actual += b.ActualCost
		}
		if found {
			return planned, actual, want.src
		}
	}
	return 0, 0, CostNone
}

// Efficiency is effect / planned when planned > 0; nil means undefined,
// which is distinct from a zero efficiency.
func Efficiency(effect, planned float64) *float64 {
	if planned <= 0 {
		return nil
	}
	e := effect / planned
	return &e
}
