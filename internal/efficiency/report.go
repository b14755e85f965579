package efficiency

import (
	"github.com/akerimB/kpi-manager/internal/model"
)

// ActionResult is one action's contribution.
type ActionResult struct {
	ActionID          string     `json:"action_id"`
	Code              string     `json:"code"`
	Title             string     `json:"title"`
	StrategicTargetID string     `json:"strategic_target_id"`
	FactoryID         string     `json:"factory_id"`
	Planned           float64    `json:"planned"`
	Actual            float64    `json:"actual"`
	Effect            float64    `json:"effect"`
	CostSource        CostSource `json:"cost_source"`
}

// Totals are plain sums over actions plus the derived efficiency.
type Totals struct {
	Planned     float64  `json:"planned"`
	Actual      float64  `json:"actual"`
	Effect      float64  `json:"effect"`
	Efficiency  *float64 `json:"efficiency"`
	ActionCount int      `json:"action_count"`
}

func (t *Totals) add(r ActionResult) {
	t.Planned += r.Planned
	t.Actual += r.Actual
	t.Effect += r.Effect
	t.ActionCount++
}

func (t *Totals) finalize() {
	t.Efficiency = Efficiency(t.Effect, t.Planned)
}

// TargetRow aggregates actions of one StrategicTarget.
type TargetRow struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Title    string `json:"title"`
	GoalID   string `json:"goal_id"`
	GoalCode string `json:"goal_code"`
	Totals
}

// GoalRow aggregates actions of every target of one StrategicGoal.
type GoalRow struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
	Totals
}

// Report is the full budget-efficiency result for a period.
type Report struct {
	Period         model.Period   `json:"period"`
	PreviousPeriod model.Period   `json:"previous_period"`
	Mode           Mode           `json:"mode"`
	Actions        []ActionResult `json:"actions"`
	Targets        []TargetRow    `json:"targets"`
	Goals          []GoalRow      `json:"goals"`
	Total          Totals         `json:"total"`
}

// Input is everything Score needs.
type Input struct {
	Mode           Mode
	Period         model.Period
	PreviousPeriod model.Period
	Goals          []model.StrategicGoal
	Targets        []model.StrategicTarget
	Actions        []model.Action
	Achievements   Achievements
}

// Score computes per-action results and sums them, unweighted, to SH and
// SA level. Targets and goals without actions are omitted; row order
// follows the input hierarchy order.
func Score(in Input) Report {
	rep := Report{
		Period:         in.Period,
		PreviousPeriod: in.PreviousPeriod,
		Mode:           in.Mode,
		Actions:        []ActionResult{},
		Targets:        []TargetRow{},
		Goals:          []GoalRow{},
	}

	byTarget := make(map[string]*Totals)
	for _, a := range in.Actions {
		planned, actual, src := ResolveCost(a, in.Period)
		r := ActionResult{
			ActionID:          a.ID,
			Code:              a.Code,
			Title:             a.Title,
			StrategicTargetID: a.StrategicTargetID,
			FactoryID:         a.FactoryID,
			Planned:           planned,
			Actual:            actual,
			Effect:            ActionEffect(in.Mode, a, in.Achievements),
			CostSource:        src,
		}
		rep.Actions = append(rep.Actions, r)
		rep.Total.add(r)

		t, ok := byTarget[a.StrategicTargetID]
		if !ok {
			t = &Totals{}
			byTarget[a.StrategicTargetID] = t
		}
		t.add(r)
	}

	goalCodes := make(map[string]string, len(in.Goals))
	for _, g := range in.Goals {
		goalCodes[g.ID] = g.Code
	}

	byGoal := make(map[string]*Totals)
	for _, sh := range in.Targets {
		t, ok := byTarget[sh.ID]
		if !ok {
			continue
		}
		t.finalize()
		rep.Targets = append(rep.Targets, TargetRow{
			ID: sh.ID, Code: sh.Code, Title: sh.Title,
			GoalID: sh.StrategicGoalID, GoalCode: goalCodes[sh.StrategicGoalID],
			Totals: *t,
		})

		g, ok := byGoal[sh.StrategicGoalID]
		if !ok {
			g = &Totals{}
			byGoal[sh.StrategicGoalID] = g
		}
		g.Planned += t.Planned
		g.Actual += t.Actual
		g.Effect += t.Effect
		g.ActionCount += t.ActionCount
	}

	for _, sa := range in.Goals {
		g, ok := byGoal[sa.ID]
		if !ok {
			continue
		}
		g.finalize()
		rep.Goals = append(rep.Goals, GoalRow{ID: sa.ID, Code: sa.Code, Title: sa.Title, Totals: *g})
	}

	rep.Total.finalize()
	return rep
}
