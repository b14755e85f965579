package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/akerimB/kpi-manager/internal/alerting"
	"github.com/akerimB/kpi-manager/internal/efficiency"
	"github.com/akerimB/kpi-manager/internal/model"
	"github.com/akerimB/kpi-manager/internal/store"
)

// AlertRequest selects the rows alert rules are evaluated against.
type AlertRequest struct {
	Period    model.Period
	FactoryID string
}

// Alerts evaluates the configured rules against per-factory KPI rows and
// action rows of the period. KPI trend is the change from the previous
// quarter and is undefined when that quarter has no value.
func (e *Engine) Alerts(ctx context.Context, scope model.Scope, req AlertRequest) ([]alerting.Alert, error) {
	if req.Period == "" {
		return nil, eris.Wrap(ErrMissingSelector, "engine: period is required")
	}
	if !req.Period.Valid() {
		return nil, eris.Wrapf(ErrInvalidInput, "engine: period %q", req.Period)
	}
	if err := checkFactory(scope, req.FactoryID); err != nil {
		return nil, err
	}
	visible, err := visibleFactories(scope)
	if err != nil {
		return nil, err
	}
	if e.alerter == nil || len(e.alerter.Rules()) == 0 {
		return []alerting.Alert{}, nil
	}
	filter := visible
	if req.FactoryID != "" {
		filter = []string{req.FactoryID}
	}

	prev := req.Period.Previous()
	var (
		snap    *snapshot
		actions []model.Action
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = e.loadSnapshot(gctx, filter, []model.Period{prev, req.Period}, "")
		return err
	})
	g.Go(func() error {
		var err error
		actions, err = e.store.ListActions(gctx, store.ActionFilter{FactoryIDs: filter})
		return eris.Wrap(err, "engine: load actions")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var kpiRows []alerting.KpiRow
	for _, f := range snap.factories {
		cur := e.achievements(snap.tree.Kpis, snap.values, req.Period, f.ID, nil)
		before := e.achievements(snap.tree.Kpis, snap.values, prev, f.ID, nil)
		for _, k := range snap.tree.Kpis {
			a, ok := cur[k.ID]
			if !ok {
				continue
			}
			row := alerting.KpiRow{
				KpiID:       k.ID,
				KpiNumber:   k.Number,
				FactoryID:   f.ID,
				Period:      req.Period.String(),
				Achievement: a,
			}
			if b, ok := before[k.ID]; ok {
				row.Trend = ptr(a - b)
			}
			kpiRows = append(kpiRows, row)
		}
	}

	actionRows := make([]alerting.ActionRow, 0, len(actions))
	for _, a := range actions {
		planned, actual, _ := efficiency.ResolveCost(a, req.Period)
		actionRows = append(actionRows, alerting.ActionRow{
			ActionID:   a.ID,
			Code:       a.Code,
			FactoryID:  a.FactoryID,
			Period:     req.Period.String(),
			Completion: a.CompletionPercent,
			Planned:    planned,
			Actual:     actual,
		})
	}

	alerts := e.alerter.Evaluate(kpiRows, actionRows)
	e.log.Info("alerts evaluated",
		zap.String("period", req.Period.String()),
		zap.Int("kpi_rows", len(kpiRows)),
		zap.Int("action_rows", len(actionRows)),
		zap.Int("alerts", len(alerts)),
	)
	return alerts, nil
}
