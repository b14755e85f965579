package engine

import (
	"context"
	"slices"
	"sync"

	"github.com/akerimB/kpi-manager/internal/model"
	"github.com/akerimB/kpi-manager/internal/store"
)

// memStore is an in-memory store.Store for engine tests.
type memStore struct {
	mu sync.Mutex

	goals     []model.StrategicGoal
	targets   []model.StrategicTarget
	kpis      []model.KPI
	factories []model.Factory
	shares    []model.SectorShare
	overrides []model.WeightOverride
	values    []model.KpiValue
	actions   []model.Action
	evidence  []model.Evidence

	kpiWeights    map[int64]float64
	targetWeights map[string]float64
	themes        map[int64][]string
	upserted      []model.KpiValue

	err error // returned by every read when set
}

var _ store.Store = (*memStore)(nil)

func (m *memStore) ListStrategicGoals(context.Context) ([]model.StrategicGoal, error) {
	return m.goals, m.err
}

func (m *memStore) ListStrategicTargets(context.Context) ([]model.StrategicTarget, error) {
	return m.targets, m.err
}

func (m *memStore) ListKpis(context.Context) ([]model.KPI, error) {
	return m.kpis, m.err
}

func (m *memStore) ListFactories(context.Context) ([]model.Factory, error) {
	return m.factories, m.err
}

func (m *memStore) ListSectorShares(_ context.Context, factoryID string) ([]model.SectorShare, error) {
	var out []model.SectorShare
	for _, s := range m.shares {
		if s.FactoryID == factoryID {
			out = append(out, s)
		}
	}
	return out, m.err
}

func (m *memStore) ListWeightOverrides(_ context.Context, factoryID string) ([]model.WeightOverride, error) {
	var out []model.WeightOverride
	for _, o := range m.overrides {
		if o.FactoryID == factoryID {
			out = append(out, o)
		}
	}
	return out, m.err
}

func (m *memStore) ListKpiValues(_ context.Context, f store.ValueFilter) ([]model.KpiValue, error) {
	var out []model.KpiValue
	for _, v := range m.values {
		if len(f.Periods) > 0 && !slices.Contains(f.Periods, v.Period) {
			continue
		}
		if len(f.FactoryIDs) > 0 && !slices.Contains(f.FactoryIDs, v.FactoryID) {
			continue
		}
		if len(f.KpiIDs) > 0 && !slices.Contains(f.KpiIDs, v.KpiID) {
			continue
		}
		out = append(out, v)
	}
	return out, m.err
}

func (m *memStore) ListActions(_ context.Context, f store.ActionFilter) ([]model.Action, error) {
	var out []model.Action
	for _, a := range m.actions {
		if len(f.FactoryIDs) > 0 && !slices.Contains(f.FactoryIDs, a.FactoryID) {
			continue
		}
		out = append(out, a)
	}
	return out, m.err
}

func (m *memStore) ListEvidence(_ context.Context, f store.EvidenceFilter) ([]model.Evidence, error) {
	var out []model.Evidence
	for _, e := range m.evidence {
		if f.Period != "" && e.Period != f.Period {
			continue
		}
		if len(f.FactoryIDs) > 0 && !slices.Contains(f.FactoryIDs, e.FactoryID) {
			continue
		}
		out = append(out, e)
	}
	return out, m.err
}

func (m *memStore) UpsertKpiValues(_ context.Context, values []model.KpiValue) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, values...)
	return int64(len(values)), nil
}

func (m *memStore) UpdateKpiWeights(_ context.Context, w map[int64]float64) error {
	m.kpiWeights = w
	return nil
}

func (m *memStore) UpdateTargetWeights(_ context.Context, w map[string]float64) error {
	m.targetWeights = w
	return nil
}

func (m *memStore) UpdateKpiThemes(_ context.Context, t map[int64][]string) error {
	m.themes = t
	return nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

// fixture builds a two-goal hierarchy with two factories:
//
//	SA1 ─ SH1.1 (goal weight 0.75) ─ KPI 1 (target 100), KPI 2 (target 50)
//	    └ SH1.2 (goal weight 0.25) ─ KPI 3 (no target)
//	SA2 ─ SH2.1 ─ KPI 4
func fixture() *memStore {
	return &memStore{
		goals: []model.StrategicGoal{
			{ID: "sa1", Code: "SA1", Title: "Competitiveness"},
			{ID: "sa2", Code: "SA2", Title: "Sustainability"},
		},
		targets: []model.StrategicTarget{
			{ID: "sh11", Code: "SH1.1", Title: "Productivity", StrategicGoalID: "sa1", GoalWeight: ptr(0.75), Importance: ptr(3)},
			{ID: "sh12", Code: "SH1.2", Title: "Exports", StrategicGoalID: "sa1", GoalWeight: ptr(0.25), Importance: ptr(1)},
			{ID: "sh21", Code: "SH2.1", Title: "Energy", StrategicGoalID: "sa2"},
		},
		kpis: []model.KPI{
			{ID: 1, Number: 1, Description: "Dijital dönüşüm projeleri", TargetValue: ptr(100), SHWeight: ptr(0.5), Importance: ptr(2), StrategicTargetID: "sh11"},
			{ID: 2, Number: 2, Description: "Yalın üretim eğitimleri", TargetValue: ptr(50), SHWeight: ptr(0.5), Importance: ptr(2), StrategicTargetID: "sh11"},
			{ID: 3, Number: 3, Description: "İhracat hacmi", StrategicTargetID: "sh12", Themes: []string{"export"}},
			{ID: 4, Number: 4, Description: "Enerji verimliliği", StrategicTargetID: "sh21"},
		},
		factories: []model.Factory{
			{ID: "f1", Code: "IST", Name: "Istanbul"},
			{ID: "f2", Code: "BUR", Name: "Bursa"},
		},
	}
}


func val(kpi int64, factory, period string, v float64) model.KpiValue {
	return model.KpiValue{KpiID: kpi, FactoryID: factory, Period: model.Period(period), Value: v}
}
