package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/akerimB/kpi-manager/internal/efficiency"
	"github.com/akerimB/kpi-manager/internal/model"
	"github.com/akerimB/kpi-manager/internal/store"
)

// EfficiencyRequest selects a budget-efficiency report.
type EfficiencyRequest struct {
	Period         model.Period
	PreviousPeriod model.Period // empty: the canonical previous quarter
	Mode           efficiency.Mode
	FactoryID      string
}

// BudgetEfficiency scores action effect per unit of planned cost and sums
// it to SH and SA level.
func (e *Engine) BudgetEfficiency(ctx context.Context, scope model.Scope, req EfficiencyRequest) (*efficiency.Report, error) {
	if req.Period == "" {
		return nil, eris.Wrap(ErrMissingSelector, "engine: period is required")
	}
	if !req.Period.Valid() {
		return nil, eris.Wrapf(ErrInvalidInput, "engine: period %q", req.Period)
	}
	prev := req.PreviousPeriod
	if prev == "" {
		prev = req.Period.Previous()
	} else if !prev.Valid() {
		return nil, eris.Wrapf(ErrInvalidInput, "engine: previous period %q", prev)
	}
	mode, err := efficiency.ParseMode(string(req.Mode))
	if err != nil {
		return nil, eris.Wrap(ErrInvalidInput, err.Error())
	}
	if err := checkFactory(scope, req.FactoryID); err != nil {
		return nil, err
	}
	visible, err := visibleFactories(scope)
	if err != nil {
		return nil, err
	}
	filter := visible
	if req.FactoryID != "" {
		filter = []string{req.FactoryID}
	}

	var actions []model.Action
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		actions, err = e.store.ListActions(gctx, store.ActionFilter{FactoryIDs: filter})
		return eris.Wrap(err, "engine: load actions")
	})
	var snap *snapshot
	g.Go(func() error {
		var err error
		snap, err = e.loadSnapshot(gctx, filter, []model.Period{prev, req.Period}, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := efficiency.Score(efficiency.Input{
		Mode:           mode,
		Period:         req.Period,
		PreviousPeriod: prev,
		Goals:          snap.tree.Goals,
		Targets:        snap.tree.Targets,
		Actions:        actions,
		Achievements: efficiency.Achievements{
			Current:  fractions(e.achievements(snap.tree.Kpis, snap.values, req.Period, "", nil)),
			Previous: fractions(e.achievements(snap.tree.Kpis, snap.values, prev, "", nil)),
		},
	})
	e.log.Debug("budget efficiency",
		zap.String("period", req.Period.String()),
		zap.String("mode", string(mode)),
		zap.Int("actions", len(actions)),
	)
	return &rep, nil
}

// fractions converts achievement percentages to [0,1] fractions.
func fractions(ach map[int64]float64) map[int64]float64 {
	out := make(map[int64]float64, len(ach))
	for id, a := range ach {
		out[id] = a / 100
	}
	return out
}
