package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		avg  float64
		want Tier
	}{
		{95, TierPlatinum},
		{90, TierPlatinum},
		{89.9, TierGold},
		{80, TierGold},
		{70, TierSilver},
		{69.99, TierBronze},
		{-5, TierBronze},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.avg), "avg %v", tt.avg)
	}
}

func TestNewBenchmarkEntry(t *testing.T) {
	e := NewBenchmarkEntry("f1", "F1", "Ankara", []float64{100, 80, 60, 79.9})
	assert.InDelta(t, 79.975, e.AverageScore, 1e-9)
	assert.Equal(t, 4, e.KpiCount)
	assert.Equal(t, 2, e.AchievedCount)
	assert.Equal(t, TierSilver, e.Tier)

	empty := NewBenchmarkEntry("f2", "F2", "", nil)
	assert.Equal(t, 0.0, empty.AverageScore)
	assert.Equal(t, TierBronze, empty.Tier)
}

func TestRank(t *testing.T) {
	ranked := Rank([]BenchmarkEntry{
		{FactoryID: "c", AverageScore: 55},
		{FactoryID: "a", AverageScore: 90},
		{FactoryID: "b", AverageScore: 72},
	})
	assert.Equal(t, "a", ranked[0].FactoryID)
	assert.Equal(t, "b", ranked[1].FactoryID)
	assert.Equal(t, "c", ranked[2].FactoryID)
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})
	assert.Equal(t, []int{100, 50, 0}, []int{ranked[0].Percentile, ranked[1].Percentile, ranked[2].Percentile})
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	ranked := Rank([]BenchmarkEntry{
		{FactoryID: "x", AverageScore: 70},
		{FactoryID: "y", AverageScore: 70},
	})
	assert.Equal(t, "x", ranked[0].FactoryID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 2, ranked[1].Rank)
}

func TestRank_Single(t *testing.T) {
	ranked := Rank([]BenchmarkEntry{{FactoryID: "solo", AverageScore: 10}})
	assert.Equal(t, 100, ranked[0].Percentile)
	assert.Empty(t, Rank(nil))
}
