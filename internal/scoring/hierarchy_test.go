package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akerimB/kpi-manager/internal/model"
)

func testTree() Tree {
	return Tree{
		Goals: []model.StrategicGoal{{ID: "sa1", Code: "SA1"}, {ID: "sa2", Code: "SA2"}},
		Targets: []model.StrategicTarget{
			{ID: "sh11", Code: "SH1.1", StrategicGoalID: "sa1", GoalWeight: ptrFloat64(0.6)},
			{ID: "sh12", Code: "SH1.2", StrategicGoalID: "sa1", GoalWeight: ptrFloat64(0.4)},
			{ID: "sh21", Code: "SH2.1", StrategicGoalID: "sa2"},
		},
		Kpis: []model.KPI{
			{ID: 1, StrategicTargetID: "sh11", SHWeight: ptrFloat64(0.75)},
			{ID: 2, StrategicTargetID: "sh11", SHWeight: ptrFloat64(0.25)},
			{ID: 3, StrategicTargetID: "sh12"},
			{ID: 4, StrategicTargetID: "sh21"},
		},
	}
}

func TestWeightedScore(t *testing.T) {
	got := WeightedScore([]Child{
		{Score: 80, Weight: ptrFloat64(0.75)},
		{Score: 40, Weight: ptrFloat64(0.25)},
	})
	assert.InDelta(t, 70, got, 1e-9)

	assert.Equal(t, 0.0, WeightedScore(nil))

	uniform := WeightedScore([]Child{{Score: 80}, {Score: 40}})
	assert.InDelta(t, 60, uniform, 1e-9)
}

func TestAggregate(t *testing.T) {
	r := Aggregate(testTree(), map[int64]float64{1: 80, 2: 40, 3: 50}, nil)

	assert.InDelta(t, 70, r.TargetScores["sh11"], 1e-9)
	assert.InDelta(t, 50, r.TargetScores["sh12"], 1e-9)
	assert.Equal(t, 0.0, r.TargetScores["sh21"])
	assert.False(t, r.TargetHasData["sh21"])

	// 70*0.6 + 50*0.4
	assert.InDelta(t, 62, r.GoalScores["sa1"], 1e-9)
	assert.Equal(t, 0.0, r.GoalScores["sa2"])
	assert.True(t, r.GoalHasData["sa1"])
	assert.False(t, r.GoalHasData["sa2"])

	assert.InDelta(t, 0.75, r.KpiWeights[1], 1e-9)
	assert.InDelta(t, 0.6, r.TargetWeights["sh11"], 1e-9)
}

func TestAggregate_RenormalizesOverContributingKpis(t *testing.T) {
	// KPI 2 has no data, so KPI 1 carries the whole target.
	r := Aggregate(testTree(), map[int64]float64{1: 80}, nil)
	assert.InDelta(t, 80, r.TargetScores["sh11"], 1e-9)
	assert.InDelta(t, 1.0, r.KpiWeights[1], 1e-9)
	// Only sh11 contributes to sa1.
	assert.InDelta(t, 80, r.GoalScores["sa1"], 1e-9)
}

func TestAggregate_FactoryOverrideIsNotRenormalized(t *testing.T) {
	r := Aggregate(testTree(), map[int64]float64{1: 80, 2: 40, 3: 50}, map[string]float64{"sh11": 1.5})
	assert.InDelta(t, 105, r.TargetScores["sh11"], 1e-9)
	// 105*0.6 + 50*0.4
	assert.InDelta(t, 83, r.GoalScores["sa1"], 1e-9)
}

func TestAggregate_EmptyTree(t *testing.T) {
	r := Aggregate(Tree{}, nil, nil)
	assert.Empty(t, r.TargetScores)
	assert.Empty(t, r.GoalScores)
}

func TestAggregate_SingleKpiOvershoot(t *testing.T) {
	tree := Tree{
		Goals:   []model.StrategicGoal{{ID: "sa"}},
		Targets: []model.StrategicTarget{{ID: "sh", StrategicGoalID: "sa"}},
		Kpis:    []model.KPI{{ID: 9, StrategicTargetID: "sh", TargetValue: ptrFloat64(100), SHWeight: ptrFloat64(0.3)}},
	}
	ach := Achievement(120, tree.Kpis[0].TargetValue)
	r := Aggregate(tree, map[int64]float64{9: ach}, nil)
	assert.Equal(t, 100.0, r.TargetScores["sh"])
	assert.Equal(t, 100.0, r.GoalScores["sa"])
}
