package engine

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/akerimB/kpi-manager/internal/model"
)

// SubmitValues validates factory submissions and upserts them on
// (kpi, factory, period). The batch is rejected as a whole on the first
// invalid value. Repeated keys within a batch collapse to the last value.
func (e *Engine) SubmitValues(ctx context.Context, scope model.Scope, values []model.KpiValue) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	kpis, err := e.store.ListKpis(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "engine: load kpis")
	}
	known := make(map[int64]bool, len(kpis))
	for _, k := range kpis {
		known[k.ID] = true
	}

	for i, v := range values {
		switch {
		case v.FactoryID == "":
			return 0, eris.Wrapf(ErrMissingSelector, "engine: value %d has no factory id", i)
		case !scope.Allows(v.FactoryID):
			return 0, eris.Wrapf(ErrOutOfScope, "engine: value %d factory %s", i, v.FactoryID)
		case !v.Period.Valid():
			return 0, eris.Wrapf(ErrInvalidInput, "engine: value %d period %q", i, v.Period)
		case math.IsNaN(v.Value) || math.IsInf(v.Value, 0):
			return 0, eris.Wrapf(ErrInvalidInput, "engine: value %d is not finite", i)
		case !known[v.KpiID]:
			return 0, eris.Wrapf(ErrInvalidInput, "engine: value %d unknown kpi %d", i, v.KpiID)
		}
	}

	values = dedupeValues(values)
	n, err := e.store.UpsertKpiValues(ctx, values)
	if err != nil {
		return 0, eris.Wrap(err, "engine: upsert kpi values")
	}
	e.log.Info("kpi values submitted", zap.Int("received", len(values)), zap.Int64("upserted", n))
	return n, nil
}

type valueKey struct {
	kpiID     int64
	factoryID string
	period    model.Period
}

// dedupeValues keeps one value per (kpi, factory, period) in first-seen
// order, carrying the last submitted value. A merge statement cannot
// touch the same target row twice.
func dedupeValues(values []model.KpiValue) []model.KpiValue {
	idx := make(map[valueKey]int, len(values))
	out := make([]model.KpiValue, 0, len(values))
	for _, v := range values {
		k := valueKey{v.KpiID, v.FactoryID, v.Period}
		if i, ok := idx[k]; ok {
			out[i] = v
			continue
		}
		idx[k] = len(out)
		out = append(out, v)
	}
	return out
}
