package scoring

import (
	"github.com/akerimB/kpi-manager/internal/model"
	"github.com/akerimB/kpi-manager/internal/sector"
)

// Sample is one raw KPI value with its optional industry code.
type Sample struct {
	Value    float64
	NaceCode string
}

// Exposure maps a coarse sector label to a factory's share in it.
type Exposure map[string]float64

// ExposureFrom builds an Exposure from stored share records. Later
// duplicates overwrite earlier ones.
func ExposureFrom(shares []model.SectorShare) Exposure {
	exp := make(Exposure, len(shares))
	for _, s := range shares {
		exp[s.Sector] = s.Share
	}
	return exp
}

// Resolution explains how a KPI's representative value was derived.
type Resolution string

const (
	ResolvedPlain    Resolution = "plain_mean"
	ResolvedSector   Resolution = "sector_weighted"
	ResolvedFallback Resolution = "sector_fallback"
)

// sectorWeightingApplies is the gate for the sector-weighted path: a
// factory-specific request, a factory with exposure records, and at
// least one coded sample.
func sectorWeightingApplies(samples []Sample, exp Exposure, factorySpecific bool) bool {
	if !factorySpecific || len(exp) == 0 {
		return false
	}
	for _, s := range samples {
		if s.NaceCode != "" {
			return true
		}
	}
	return false
}

// SectorWeightedMean weights each sample by the factory's share in the
// sample's sector. ok is false when the share total is not positive.
func SectorWeightedMean(samples []Sample, exp Exposure) (mean float64, ok bool) {
	var num, den float64
	for _, s := range samples {
		share := 0.0
		if s.NaceCode != "" {
			share = exp[sector.Label(s.NaceCode)]
		}
		num += s.Value * share
		den += share
	}
	if den <= 0 {
		return 0, false
	}
	return num / den, true
}

// PlainMean averages the raw values.
func PlainMean(samples []Sample) (float64, bool) {
	vals := make([]float64, len(samples))
	for i, s := range samples {
		vals[i] = s.Value
	}
	return Mean(vals)
}

// ResolveValue picks the representative value for a set of samples.
// ok is false when there are no samples.
func ResolveValue(samples []Sample, exp Exposure, factorySpecific bool) (value float64, how Resolution, ok bool) {
	if len(samples) == 0 {
		return 0, "", false
	}
	if sectorWeightingApplies(samples, exp, factorySpecific) {
		if v, ok := SectorWeightedMean(samples, exp); ok {
			return v, ResolvedSector, true
		}
		v, _ := PlainMean(samples)
		return v, ResolvedFallback, true
	}
	v, _ := PlainMean(samples)
	return v, ResolvedPlain, true
}

// KpiAchievement resolves the samples and converts the result into an
// achievement against target.
func (c Calculator) KpiAchievement(samples []Sample, target *float64, exp Exposure, factorySpecific bool) (float64, bool) {
	v, _, ok := ResolveValue(samples, exp, factorySpecific)
	if !ok {
		return 0, false
	}
	return c.Achievement(v, target), true
}
