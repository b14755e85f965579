package engine

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/akerimB/kpi-manager/internal/evidence"
	"github.com/akerimB/kpi-manager/internal/model"
	"github.com/akerimB/kpi-manager/internal/store"
)

// EvidenceRequest selects an anonymized evidence aggregation.
type EvidenceRequest struct {
	Period    model.Period // empty: every period
	FactoryID string
	GroupBy   evidence.GroupBy
	MinN      int // 0 uses the engine default
}

// Evidence groups evidence records by NACE prefix or sector label and
// suppresses groups smaller than MinN.
func (e *Engine) Evidence(ctx context.Context, scope model.Scope, req EvidenceRequest) (*evidence.Result, error) {
	if req.Period != "" && !req.Period.Valid() {
		return nil, eris.Wrapf(ErrInvalidInput, "engine: period %q", req.Period)
	}
	by, err := evidence.ParseGroupBy(string(req.GroupBy))
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

	records, err := e.store.ListEvidence(ctx, store.EvidenceFilter{Period: req.Period, FactoryIDs: filter})
	if err != nil {
		return nil, eris.Wrap(err, "engine: load evidence")
	}
	minN := req.MinN
	if minN == 0 {
		minN = e.evidenceMinN
	}
	res := evidence.Aggregate(records, by, minN)
	return &res, nil
}
