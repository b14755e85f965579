package scoring

import (
	"math"
	"sort"
)

// Tier buckets a factory's average achievement.
type Tier string

const (
	TierPlatinum Tier = "platinum"
	TierGold     Tier = "gold"
	TierSilver   Tier = "silver"
	TierBronze   Tier = "bronze"
)

// AchievedThreshold is the achievement at or above which a KPI counts as
// achieved.
const AchievedThreshold = 80.0

// TierFor maps an average score to its tier.
func TierFor(avg float64) Tier {
	switch {
	case avg >= 90:
		return TierPlatinum
	case avg >= 80:
		return TierGold
	case avg >= 70:
		return TierSilver
	default:
		return TierBronze
	}
}

// BenchmarkEntry is one factory's standing.
type BenchmarkEntry struct {
	FactoryID     string  `json:"factory_id"`
	FactoryCode   string  `json:"factory_code"`
	FactoryName   string  `json:"factory_name"`
	AverageScore  float64 `json:"average_score"`
	KpiCount      int     `json:"kpi_count"`
	AchievedCount int     `json:"achieved_count"`
	Tier          Tier    `json:"tier"`
	Rank          int     `json:"rank"`
	Percentile    int     `json:"percentile"`
}

// NewBenchmarkEntry summarizes a factory's KPI achievements.
func NewBenchmarkEntry(factoryID, code, name string, achievements []float64) BenchmarkEntry {
	e := BenchmarkEntry{FactoryID: factoryID, FactoryCode: code, FactoryName: name, KpiCount: len(achievements)}
	if avg, ok := Mean(achievements); ok {
		e.AverageScore = avg
	}
	for _, a := range achievements {
		if a >= AchievedThreshold {
			e.AchievedCount++
		}
	}
	e.Tier = TierFor(e.AverageScore)
	return e
}

// Rank sorts entries by average score descending (stable, so ties keep
// input order) and assigns rank = index+1 and a percentile that runs
// from 100 for the leader down to 0 for the last entry.
func Rank(entries []BenchmarkEntry) []BenchmarkEntry {
	out := append([]BenchmarkEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AverageScore > out[j].AverageScore })
	for i := range out {
		out[i].Rank = i + 1
		out[i].Percentile = percentile(i, len(out))
	}
	return out
}

func percentile(index, total int) int {
	if total <= 1 {
		return 100
	}
	return int(math.Round((1 - float64(index)/float64(total-1)) * 100))
}
