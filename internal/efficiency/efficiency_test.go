package efficiency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akerimB/kpi-manager/internal/model"
)

func ptrFloat64(v float64) *float64 { return &v }

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeGap, m)

	m, err = ParseMode(" Delta ")
	require.NoError(t, err)
	assert.Equal(t, ModeDelta, m)

	_, err = ParseMode("ratio")
	require.Error(t, err)
}

func TestLinkEffect(t *testing.T) {
	tests := []struct {
		name              string
		mode              Mode
		impact, completion float64
		current, previous float64
		want              float64
	}{
		{"gap", ModeGap, 0.5, 80, 0.6, 0, 0.16},
		{"gap fully achieved", ModeGap, 1, 100, 1, 0, 0},
		{"delta improvement", ModeDelta, 0.5, 100, 0.7, 0.5, 0.1},
		{"delta never negative", ModeDelta, 0.5, 100, 0.4, 0.6, 0},
		{"no completion", ModeGap, 1, 0, 0.2, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LinkEffect(tt.mode, tt.impact, tt.completion, tt.current, tt.previous)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestActionEffect(t *testing.T) {
	a := model.Action{
		CompletionPercent: 50,
		Kpis: []model.ActionKpi{
			{KpiID: 1, ImpactScore: 1},
			{KpiID: 2, ImpactScore: 0.4},
		},
	}
	ach := Achievements{Current: map[int64]float64{1: 0.2, 2: 0.5}}
	// ((1*0.5*0.8) + (0.4*0.5*0.5)) / 2
	assert.InDelta(t, 0.25, ActionEffect(ModeGap, a, ach), 1e-9)

	assert.Equal(t, 0.0, ActionEffect(ModeGap, model.Action{CompletionPercent: 100}, ach))
}

func TestResolveCost(t *testing.T) {
	q4 := model.MustPeriod("2024-Q4")
	q3 := model.MustPeriod("2024-Q3")

	t.Run("period step costs win", func(t *testing.T) {
		a := model.Action{
			Steps: []model.ActionStep{
				{Period: q4, PlannedCost: ptrFloat64(100), ActualCost: ptrFloat64(80)},
				{Period: q4, PlannedCost: ptrFloat64(50)},
				{Period: q3, PlannedCost: ptrFloat64(999)},
			},
			Budgets: []model.ActionBudget{{PlannedCost: 5000, ActualCost: 4000}},
		}
		p, act, src := ResolveCost(a, q4)
		assert.Equal(t, 150.0, p)
		assert.Equal(t, 80.0, act)
		assert.Equal(t, CostFromSteps, src)
	})

	t.Run("steps without costs fall back to period budget", func(t *testing.T) {
		a := model.Action{
			Steps:   []model.ActionStep{{Period: q4}},
			Budgets: []model.ActionBudget{{Period: q4, PlannedCost: 300, ActualCost: 100}, {PlannedCost: 5000}},
		}
		p, act, src := ResolveCost(a, q4)
		assert.Equal(t, 300.0, p)
		assert.Equal(t, 100.0, act)
		assert.Equal(t, CostFromPeriodBudget, src)
	})

	t.Run("untagged budget", func(t *testing.T) {
		a := model.Action{Budgets: []model.ActionBudget{{Period: q3, PlannedCost: 1}, {PlannedCost: 5000, ActualCost: 4500}}}
		p, act, src := ResolveCost(a, q4)
		assert.Equal(t, 5000.0, p)
		assert.Equal(t, 4500.0, act)
		assert.Equal(t, CostFromBudget, src)
	})

	t.Run("nothing recorded", func(t *testing.T) {
		p, act, src := ResolveCost(model.Action{}, q4)
		assert.Zero(t, p)
		assert.Zero(t, act)
		assert.Equal(t, CostNone, src)
	})
}

func TestEfficiency(t *testing.T) {
	assert.Nil(t, Efficiency(1, 0))
	assert.Nil(t, Efficiency(0, -5))

	e := Efficiency(0, 100)
	require.NotNil(t, e)
	assert.Equal(t, 0.0, *e)

	e = Efficiency(2, 1000)
	require.NotNil(t, e)
	assert.InDelta(t, 0.002, *e, 1e-12)
}
