// Package store persists the strategy hierarchy, factory submissions,
// actions and evidence. PostgresStore is the production backend;
// SQLiteStore serves local runs and tests.
package store

import (
	"context"

	"github.com/akerimB/kpi-manager/internal/model"
)

// ValueFilter narrows ListKpiValues. Empty fields match everything.
type ValueFilter struct {
	Periods    []model.Period
	FactoryIDs []string
	KpiIDs     []int64
}

// ActionFilter narrows ListActions. Empty FactoryIDs matches every factory.
type ActionFilter struct {
	FactoryIDs []string
}

// EvidenceFilter narrows ListEvidence. An empty Period matches every period.
type EvidenceFilter struct {
	Period     model.Period
	FactoryIDs []string
}

// Store is the data-access contract of the scoring engine.
type Store interface {
	// Strategy hierarchy
	ListStrategicGoals(ctx context.Context) ([]model.StrategicGoal, error)
	ListStrategicTargets(ctx context.Context) ([]model.StrategicTarget, error)
	ListKpis(ctx context.Context) ([]model.KPI, error)

	// Factories
	ListFactories(ctx context.Context) ([]model.Factory, error)
	ListSectorShares(ctx context.Context, factoryID string) ([]model.SectorShare, error)
	ListWeightOverrides(ctx context.Context, factoryID string) ([]model.WeightOverride, error)

	// Submissions, actions, evidence
	ListKpiValues(ctx context.Context, f ValueFilter) ([]model.KpiValue, error)
	ListActions(ctx context.Context, f ActionFilter) ([]model.Action, error)
	ListEvidence(ctx context.Context, f EvidenceFilter) ([]model.Evidence, error)

	// Writes
	UpsertKpiValues(ctx context.Context, values []model.KpiValue) (int64, error)
	UpdateKpiWeights(ctx context.Context, weights map[int64]float64) error
	UpdateTargetWeights(ctx context.Context, weights map[string]float64) error
	UpdateKpiThemes(ctx context.Context, themes map[int64][]string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func periodStrings(ps []model.Period) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}
