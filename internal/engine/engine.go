// Package engine orchestrates scoring requests: it loads a snapshot
// from the store under an explicit access scope, then runs the pure
// scoring, efficiency and evidence computations over it.
package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/akerimB/kpi-manager/internal/alerting"
	"github.com/akerimB/kpi-manager/internal/evidence"
	"github.com/akerimB/kpi-manager/internal/model"
	"github.com/akerimB/kpi-manager/internal/scoring"
	"github.com/akerimB/kpi-manager/internal/store"
)

// Options tunes an Engine. Zero values select the defaults.
type Options struct {
	FloorNegative bool
	MoversTopN    int
	EvidenceMinN  int
	Alerter       *alerting.Alerter
}

// Engine serves scoring requests over a Store.
type Engine struct {
	store        store.Store
	calc         scoring.Calculator
	moversTopN   int
	evidenceMinN int
	alerter      *alerting.Alerter
	log          *zap.Logger
}

// New creates an Engine.
func New(st store.Store, opts Options) *Engine {
	e := &Engine{
		store:        st,
		calc:         scoring.Calculator{FloorNegative: opts.FloorNegative},
		moversTopN:   opts.MoversTopN,
		evidenceMinN: opts.EvidenceMinN,
		alerter:      opts.Alerter,
		log:          zap.L().With(zap.String("component", "engine")),
	}
	if e.moversTopN <= 0 {
		e.moversTopN = scoring.DefaultTopN
	}
	if e.evidenceMinN == 0 {
		e.evidenceMinN = evidence.DefaultMinN
	}
	return e
}

// visibleFactories maps a scope to a store filter. nil means every
// factory.
func visibleFactories(scope model.Scope) ([]string, error) {
	if scope.All {
		return nil, nil
	}
	if scope.Empty() {
		return nil, eris.Wrap(ErrOutOfScope, "engine: scope grants no factories")
	}
	return scope.FactoryIDs, nil
}

// checkFactory validates an optional factory selector against scope.
func checkFactory(scope model.Scope, factoryID string) error {
	if factoryID != "" && !scope.Allows(factoryID) {
		return eris.Wrapf(ErrOutOfScope, "engine: factory %s", factoryID)
	}
	return nil
}

// normalizePeriods validates, de-duplicates and sorts periods.
func normalizePeriods(ps []model.Period) ([]model.Period, error) {
	if len(ps) == 0 {
		return nil, eris.Wrap(ErrMissingSelector, "engine: at least one period is required")
	}
	seen := make(map[model.Period]bool, len(ps))
	out := make([]model.Period, 0, len(ps))
	for _, p := range ps {
		if !p.Valid() {
			return nil, eris.Wrapf(ErrInvalidInput, "engine: period %q", p)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	model.SortPeriods(out)
	return out, nil
}

// snapshot is the data one request computes over.
type snapshot struct {
	tree      scoring.Tree
	factories []model.Factory
	values    []model.KpiValue
	exposure  scoring.Exposure
	overrides map[string]float64
}

// loadSnapshot fetches the hierarchy, visible factories and the values
// of the given periods concurrently. Sector shares and weight overrides
// are loaded only for a factory-specific request.
func (e *Engine) loadSnapshot(ctx context.Context, visible []string, periods []model.Period, factoryID string) (*snapshot, error) {
	snap := &snapshot{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		goals, err := e.store.ListStrategicGoals(gctx)
		snap.tree.Goals = goals
		return eris.Wrap(err, "engine: load strategic goals")
	})
	g.Go(func() error {
		targets, err := e.store.ListStrategicTargets(gctx)
		snap.tree.Targets = targets
		return eris.Wrap(err, "engine: load strategic targets")
	})
	g.Go(func() error {
		kpis, err := e.store.ListKpis(gctx)
		snap.tree.Kpis = kpis
		return eris.Wrap(err, "engine: load kpis")
	})
	g.Go(func() error {
		factories, err := e.store.ListFactories(gctx)
		if err != nil {
			return eris.Wrap(err, "engine: load factories")
		}
		for _, f := range factories {
			if visible == nil || contains(visible, f.ID) {
				snap.factories = append(snap.factories, f)
			}
		}
		return nil
	})
	g.Go(func() error {
		values, err := e.store.ListKpiValues(gctx, store.ValueFilter{Periods: periods, FactoryIDs: visible})
		snap.values = values
		return eris.Wrap(err, "engine: load kpi values")
	})
	if factoryID != "" {
		g.Go(func() error {
			shares, err := e.store.ListSectorShares(gctx, factoryID)
			snap.exposure = scoring.ExposureFrom(shares)
			return eris.Wrapf(err, "engine: load sector shares %s", factoryID)
		})
		g.Go(func() error {
			overrides, err := e.store.ListWeightOverrides(gctx, factoryID)
			if err != nil {
				return eris.Wrapf(err, "engine: load weight overrides %s", factoryID)
			}
			snap.overrides = make(map[string]float64, len(overrides))
			for _, o := range overrides {
				snap.overrides[o.StrategicTargetID] = o.Weight
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.log.Error("snapshot load failed", zap.String("factory_id", factoryID), zap.Error(err))
		return nil, err
	}
	return snap, nil
}

// achievements computes KPI achievements for one period. With a
// factoryID only that factory's values count and the sector-weighted
// path may apply; otherwise every loaded value is averaged.
func (e *Engine) achievements(kpis []model.KPI, values []model.KpiValue, period model.Period, factoryID string, exp scoring.Exposure) map[int64]float64 {
	samples := make(map[int64][]scoring.Sample)
	for _, v := range values {
		if v.Period != period || (factoryID != "" && v.FactoryID != factoryID) {
			continue
		}
		samples[v.KpiID] = append(samples[v.KpiID], scoring.Sample{Value: v.Value, NaceCode: v.NaceCode})
	}
	out := make(map[int64]float64, len(samples))
	for _, k := range kpis {
		if a, ok := e.calc.KpiAchievement(samples[k.ID], k.TargetValue, exp, factoryID != ""); ok {
			out[k.ID] = a
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
