package store

import (
	"context"

	"github.com/akerimB/kpi-manager/internal/model"
	"github.com/akerimB/kpi-manager/internal/resilience"
)

// RetryStore retries transient read failures of the wrapped store.
// Writes pass through unchanged so a partially applied write is never
// replayed.
type RetryStore struct {
	Store
	backend string
	cfg     resilience.RetryConfig
}

// WithRetry wraps s. backend names the store in retry logs.
func WithRetry(s Store, backend string, cfg resilience.RetryConfig) *RetryStore {
	return &RetryStore{Store: s, backend: backend, cfg: cfg}
}

func retryRead[T any](ctx context.Context, r *RetryStore, op string, fn func(context.Context) (T, error)) (T, error) {
	cfg := r.cfg
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(r.backend, op)
	}
	return resilience.DoVal(ctx, cfg, fn)
}

func (r *RetryStore) ListStrategicGoals(ctx context.Context) ([]model.StrategicGoal, error) {
	return retryRead(ctx, r, "list_strategic_goals", r.Store.ListStrategicGoals)
}

func (r *RetryStore) ListStrategicTargets(ctx context.Context) ([]model.StrategicTarget, error) {
	return retryRead(ctx, r, "list_strategic_targets", r.Store.ListStrategicTargets)
}

func (r *RetryStore) ListKpis(ctx context.Context) ([]model.KPI, error) {
	return retryRead(ctx, r, "list_kpis", r.Store.ListKpis)
}

func (r *RetryStore) ListFactories(ctx context.Context) ([]model.Factory, error) {
	return retryRead(ctx, r, "list_factories", r.Store.ListFactories)
}

func (r *RetryStore) ListSectorShares(ctx context.Context, factoryID string) ([]model.SectorShare, error) {
	return retryRead(ctx, r, "list_sector_shares", func(ctx context.Context) ([]model.SectorShare, error) {
		return r.Store.ListSectorShares(ctx, factoryID)
	})
}

func (r *RetryStore) ListWeightOverrides(ctx context.Context, factoryID string) ([]model.WeightOverride, error) {
	return retryRead(ctx, r, "list_weight_overrides", func(ctx context.Context) ([]model.WeightOverride, error) {
		return r.Store.ListWeightOverrides(ctx, factoryID)
	})
}

func (r *RetryStore) ListKpiValues(ctx context.Context, f ValueFilter) ([]model.KpiValue, error) {
	return retryRead(ctx, r, "list_kpi_values", func(ctx context.Context) ([]model.KpiValue, error) {
		return r.Store.ListKpiValues(ctx, f)
	})
}

func (r *RetryStore) ListActions(ctx context.Context, f ActionFilter) ([]model.Action, error) {
	return retryRead(ctx, r, "list_actions", func(ctx context.Context) ([]model.Action, error) {
		return r.Store.ListActions(ctx, f)
	})
}

func (r *RetryStore) ListEvidence(ctx context.Context, f EvidenceFilter) ([]model.Evidence, error) {
	return retryRead(ctx, r, "list_evidence", func(ctx context.Context) ([]model.Evidence, error) {
		return r.Store.ListEvidence(ctx, f)
	})
}
