package scoring

import "math"

const (
	// DefaultTarget replaces a missing or zero KPI target.
	DefaultTarget = 100.0
	// MaxAchievement caps every achievement score.
	MaxAchievement = 100.0
)

// Calculator turns raw KPI values into achievement percentages.
type Calculator struct {
	// FloorNegative clamps negative achievements to 0. Off by default:
	// negative submissions propagate unchanged.
	FloorNegative bool
}

// EffectiveTarget applies the missing-target policy: nil, zero and
// non-finite targets become DefaultTarget.
func EffectiveTarget(target *float64) float64 {
	if target == nil {
		return DefaultTarget
	}
	t := *target
	if t == 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return DefaultTarget
	}
	return t
}

// Achievement returns min(100, value/target*100).
func (c Calculator) Achievement(value float64, target *float64) float64 {
	a := value / EffectiveTarget(target) * 100
	if a > MaxAchievement {
		a = MaxAchievement
	}
	if c.FloorNegative && a < 0 {
		a = 0
	}
	return a
}

// Achievement is Calculator{}.Achievement.
func Achievement(value float64, target *float64) float64 {
	return Calculator{}.Achievement(value, target)
}

// Mean is the arithmetic mean; ok is false for an empty slice.
func Mean(values []float64) (mean float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}
