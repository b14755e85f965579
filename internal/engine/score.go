package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/akerimB/kpi-manager/internal/model"
	"github.com/akerimB/kpi-manager/internal/scoring"
)

// ScoreRequest selects what Score computes.
type ScoreRequest struct {
	Periods   []model.Period
	FactoryID string // empty: network view over the scope
	Theme     string // optional theme tag filter
	KpiIDs    []int64
	TopN      int // movers list size; 0 uses the engine default
}

// PeriodScore is one point of a series. Score is nil when the entity
// has no data in the period.
type PeriodScore struct {
	Period model.Period `json:"period"`
	Score  *float64     `json:"score"`
}

// KpiResult is a KPI's achievement series.
type KpiResult struct {
	ID                int64             `json:"id"`
	Number            int               `json:"number"`
	Description       string            `json:"description"`
	Unit              string            `json:"unit,omitempty"`
	Themes            []string          `json:"themes,omitempty"`
	StrategicTargetID string            `json:"strategic_target_id"`
	Weight            *float64          `json:"weight"`
	Series            []PeriodScore     `json:"series"`
	Trend             float64           `json:"trend"`
	Direction         scoring.Direction `json:"direction"`
}

// TargetResult is a Strategic Target's rolled-up series.
type TargetResult struct {
	ID              string            `json:"id"`
	Code            string            `json:"code"`
	Title           string            `json:"title"`
	StrategicGoalID string            `json:"strategic_goal_id"`
	Weight          *float64          `json:"weight"`
	Override        *float64          `json:"override,omitempty"`
	Series          []PeriodScore     `json:"series"`
	Trend           float64           `json:"trend"`
	Direction       scoring.Direction `json:"direction"`
}

// GoalResult is a Strategic Goal's rolled-up series.
type GoalResult struct {
	ID        string            `json:"id"`
	Code      string            `json:"code"`
	Title     string            `json:"title"`
	Series    []PeriodScore     `json:"series"`
	Trend     float64           `json:"trend"`
	Direction scoring.Direction `json:"direction"`
}

// Movers are the Strategic Targets with the largest change between the
// last two periods of the window.
type Movers struct {
	Improving []scoring.Mover `json:"improving"`
	Declining []scoring.Mover `json:"declining"`
}

// Benchmark ranks visible factories on the last period of the window.
type Benchmark struct {
	Period  model.Period             `json:"period"`
	Entries []scoring.BenchmarkEntry `json:"entries"`
}

// ScoreResult is the output of Score.
type ScoreResult struct {
	Periods        []model.Period `json:"periods"`
	PreviousPeriod model.Period   `json:"previous_period,omitempty"`
	FactoryID      string         `json:"factory_id,omitempty"`
	Kpis           []KpiResult    `json:"kpis"`
	Targets        []TargetResult `json:"targets"`
	Goals          []GoalResult   `json:"goals"`
	Movers         Movers         `json:"movers"`
	Benchmark      Benchmark      `json:"benchmark"`
}

// Score computes KPI, SH and SA achievement per period with trends, SH
// movers and a factory benchmark. A single requested period is compared
// with its canonical previous quarter.
func (e *Engine) Score(ctx context.Context, scope model.Scope, req ScoreRequest) (*ScoreResult, error) {
	periods, err := normalizePeriods(req.Periods)
	if err != nil {
		return nil, err
	}
	if err := checkFactory(scope, req.FactoryID); err != nil {
		return nil, err
	}
	visible, err := visibleFactories(scope)
	if err != nil {
		return nil, err
	}

	res := &ScoreResult{FactoryID: req.FactoryID}
	window := periods
	if len(periods) == 1 {
		res.PreviousPeriod = periods[0].Previous()
		window = []model.Period{res.PreviousPeriod, periods[0]}
	}
	res.Periods = window

	snap, err := e.loadSnapshot(ctx, visible, window, req.FactoryID)
	if err != nil {
		return nil, err
	}
	kpis := filterKpis(snap.tree.Kpis, req.Theme, req.KpiIDs)
	tree := scoring.Tree{Goals: snap.tree.Goals, Targets: snap.tree.Targets, Kpis: kpis}

	rollups := make([]scoring.Rollup, len(window))
	achievements := make([]map[int64]float64, len(window))
	for i, p := range window {
		achievements[i] = e.achievements(kpis, snap.values, p, req.FactoryID, snap.exposure)
		rollups[i] = scoring.Aggregate(tree, achievements[i], snap.overrides)
	}
	last := len(window) - 1

	res.Kpis = make([]KpiResult, 0, len(kpis))
	for _, k := range kpis {
		kr := KpiResult{
			ID: k.ID, Number: k.Number, Description: k.Description, Unit: k.Unit,
			Themes: k.Themes, StrategicTargetID: k.StrategicTargetID,
			Series: make([]PeriodScore, len(window)),
		}
		for i, p := range window {
			kr.Series[i] = PeriodScore{Period: p}
			if a, ok := achievements[i][k.ID]; ok {
				kr.Series[i].Score = ptr(a)
			}
		}
		if w, ok := rollups[last].KpiWeights[k.ID]; ok {
			kr.Weight = ptr(w)
		}
		kr.Trend, kr.Direction = seriesTrend(kr.Series)
		res.Kpis = append(res.Kpis, kr)
	}

	res.Targets = make([]TargetResult, 0, len(tree.Targets))
	movers := make([]scoring.Mover, 0, len(tree.Targets))
	for _, t := range tree.Targets {
		tr := TargetResult{
			ID: t.ID, Code: t.Code, Title: t.Title, StrategicGoalID: t.StrategicGoalID,
			Series: make([]PeriodScore, len(window)),
		}
		for i, p := range window {
			tr.Series[i] = PeriodScore{Period: p}
			if rollups[i].TargetHasData[t.ID] {
				tr.Series[i].Score = ptr(rollups[i].TargetScores[t.ID])
			}
		}
		if w, ok := rollups[last].TargetWeights[t.ID]; ok {
			tr.Weight = ptr(w)
		}
		if o, ok := snap.overrides[t.ID]; ok {
			tr.Override = ptr(o)
		}
		tr.Trend, tr.Direction = seriesTrend(tr.Series)
		res.Targets = append(res.Targets, tr)

		prev, cur := tr.Series[last-1].Score, tr.Series[last].Score
		if prev != nil && cur != nil {
			movers = append(movers, scoring.NewMover(t.ID, t.Code, t.Title, *prev, *cur))
		}
	}

	res.Goals = make([]GoalResult, 0, len(tree.Goals))
	for _, g := range tree.Goals {
		gr := GoalResult{ID: g.ID, Code: g.Code, Title: g.Title, Series: make([]PeriodScore, len(window))}
		for i, p := range window {
			gr.Series[i] = PeriodScore{Period: p}
			if rollups[i].GoalHasData[g.ID] {
				gr.Series[i].Score = ptr(rollups[i].GoalScores[g.ID])
			}
		}
		gr.Trend, gr.Direction = seriesTrend(gr.Series)
		res.Goals = append(res.Goals, gr)
	}

	topN := req.TopN
	if topN <= 0 {
		topN = e.moversTopN
	}
	res.Movers.Improving, res.Movers.Declining = scoring.TopMovers(movers, topN)

	res.Benchmark = e.benchmark(kpis, snap.factories, snap.values, window[last])

	e.log.Debug("scored",
		zap.Int("periods", len(window)),
		zap.String("factory_id", req.FactoryID),
		zap.Int("kpis", len(kpis)),
		zap.Int("factories", len(snap.factories)),
	)
	return res, nil
}

// Scorecard is a factory-specific score with the factory's record.
type Scorecard struct {
	Factory model.Factory `json:"factory"`
	*ScoreResult
}

// FactoryScorecard is Score for one required factory.
func (e *Engine) FactoryScorecard(ctx context.Context, scope model.Scope, factoryID string, periods []model.Period) (*Scorecard, error) {
	if factoryID == "" {
		return nil, eris.Wrap(ErrMissingSelector, "engine: factory id is required for a scorecard")
	}
	res, err := e.Score(ctx, scope, ScoreRequest{Periods: periods, FactoryID: factoryID})
	if err != nil {
		return nil, err
	}
	factories, err := e.store.ListFactories(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "engine: load factories")
	}
	for _, f := range factories {
		if f.ID == factoryID {
			return &Scorecard{Factory: f, ScoreResult: res}, nil
		}
	}
	return nil, eris.Wrapf(ErrInvalidInput, "engine: unknown factory %s", factoryID)
}

// benchmark ranks every visible factory on the KPIs it reported in period.
func (e *Engine) benchmark(kpis []model.KPI, factories []model.Factory, values []model.KpiValue, period model.Period) Benchmark {
	entries := make([]scoring.BenchmarkEntry, 0, len(factories))
	for _, f := range factories {
		ach := e.achievements(kpis, values, period, f.ID, nil)
		if len(ach) == 0 {
			continue
		}
		list := make([]float64, 0, len(ach))
		for _, k := range kpis {
			if a, ok := ach[k.ID]; ok {
				list = append(list, a)
			}
		}
		entries = append(entries, scoring.NewBenchmarkEntry(f.ID, f.Code, f.Name, list))
	}
	return Benchmark{Period: period, Entries: scoring.Rank(entries)}
}

// filterKpis applies the theme and id filters. Both are optional.
func filterKpis(kpis []model.KPI, theme string, ids []int64) []model.KPI {
	if theme == "" && len(ids) == 0 {
		return kpis
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]model.KPI, 0, len(kpis))
	for _, k := range kpis {
		if theme != "" && !k.HasTheme(theme) {
			continue
		}
		if len(ids) > 0 && !want[k.ID] {
			continue
		}
		out = append(out, k)
	}
	return out
}

// seriesTrend is the window trend over the periods that carry data.
func seriesTrend(series []PeriodScore) (float64, scoring.Direction) {
	scores := make([]*float64, len(series))
	for i, s := range series {
		scores[i] = s.Score
	}
	t, _ := scoring.SparseWindowTrend(scores)
	return t, scoring.Classify(t)
}

func ptr(v float64) *float64 { return &v }
