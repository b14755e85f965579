// Package alerting evaluates threshold rules against scored KPI rows and
// action rows. It returns alerts; delivery is the caller's concern.
package alerting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Severity levels accepted in rule definitions.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// RuleConfig is the configured form of a rule.
type RuleConfig struct {
	Name      string `mapstructure:"name" yaml:"name"`
	Condition string `mapstructure:"condition" yaml:"condition"`
	Severity  string `mapstructure:"severity" yaml:"severity"`
}

// Rule is a compiled RuleConfig.
type Rule struct {
	Name      string
	Severity  string
	Condition Condition
}

// KpiRow is one KPI's scored state for a factory and period. Trend is
// nil when fewer than two periods carry data.
type KpiRow struct {
	KpiID       int64
	KpiNumber   int
	FactoryID   string
	Period      string
	Achievement float64
	Trend       *float64
}

// ActionRow is one action's execution state for a period.
type ActionRow struct {
	ActionID   string
	Code       string
	FactoryID  string
	Period     string
	Completion float64
	Planned    float64
	Actual     float64
}

// BudgetOverrunPct is the percentage by which actual exceeds planned
// cost. It is undefined when nothing was planned.
func (r ActionRow) BudgetOverrunPct() (float64, bool) {
	if r.Planned <= 0 {
		return 0, false
	}
	return (r.Actual - r.Planned) / r.Planned * 100, true
}

// Alert is a rule firing on one row.
type Alert struct {
	ID        string    `json:"id"`
	Rule      string    `json:"rule"`
	Severity  string    `json:"severity"`
	Subject   Subject   `json:"subject"`
	SubjectID string    `json:"subject_id"`
	FactoryID string    `json:"factory_id,omitempty"`
	Period    string    `json:"period,omitempty"`
	Field     Field     `json:"field"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Alerter holds compiled rules.
type Alerter struct {
	rules []Rule
	now   func() time.Time
}

// NewAlerter compiles rule configs. An unnamed rule is named after its
// condition; an empty severity becomes warning.
func NewAlerter(cfgs []RuleConfig) (*Alerter, error) {
	a := &Alerter{now: func() time.Time { return time.Now().UTC() }}
	for _, rc := range cfgs {
		cond, err := ParseCondition(rc.Condition)
		if err != nil {
			return nil, eris.Wrapf(err, "alerting: rule %q", rc.Name)
		}
		sev := rc.Severity
		switch sev {
		case "":
			sev = SeverityWarning
		case SeverityInfo, SeverityWarning, SeverityCritical:
		default:
			return nil, eris.Errorf("alerting: rule %q has unknown severity %q", rc.Name, sev)
		}
		name := rc.Name
		if name == "" {
			name = cond.String()
		}
		a.rules = append(a.rules, Rule{Name: name, Severity: sev, Condition: cond})
	}
	return a, nil
}

// Rules returns the compiled rules.
func (a *Alerter) Rules() []Rule { return a.rules }

// Evaluate checks every rule against every applicable row. Rows whose
// field is undefined (no trend, nothing planned) are skipped.
func (a *Alerter) Evaluate(kpis []KpiRow, actions []ActionRow) []Alert {
	alerts := []Alert{}
	now := a.now()

	for _, r := range a.rules {
		switch r.Condition.Subject() {
		case SubjectKpi:
			for _, row := range kpis {
				v, ok := kpiField(row, r.Condition.Field)
				if !ok || !r.Condition.Holds(v) {
					continue
				}
				alerts = append(alerts, Alert{
					ID:        uuid.NewString(),
					Rule:      r.Name,
					Severity:  r.Severity,
					Subject:   SubjectKpi,
					SubjectID: fmt.Sprintf("%d", row.KpiID),
					FactoryID: row.FactoryID,
					Period:    row.Period,
					Field:     r.Condition.Field,
					Value:     v,
					Threshold: r.Condition.Threshold,
					Message: fmt.Sprintf("KPI %d %s %.1f (%s)",
						row.KpiNumber, r.Condition.Field, v, r.Condition),
					Timestamp: now,
				})
			}
		case SubjectAction:
			for _, row := range actions {
				v, ok := actionField(row, r.Condition.Field)
				if !ok || !r.Condition.Holds(v) {
					continue
				}
				alerts = append(alerts, Alert{
					ID:        uuid.NewString(),
					Rule:      r.Name,
					Severity:  r.Severity,
					Subject:   SubjectAction,
					SubjectID: row.ActionID,
					FactoryID: row.FactoryID,
					Period:    row.Period,
					Field:     r.Condition.Field,
					Value:     v,
					Threshold: r.Condition.Threshold,
					Message: fmt.Sprintf("Action %s %s %.1f (%s)",
						row.Code, r.Condition.Field, v, r.Condition),
					Timestamp: now,
				})
			}
		}
	}
	return alerts
}

func kpiField(row KpiRow, f Field) (float64, bool) {
	switch f {
	case FieldAchievement:
		return row.Achievement, true
	case FieldTrend:
		if row.Trend == nil {
			return 0, false
		}
		return *row.Trend, true
	default:
		return 0, false
	}
}

func actionField(row ActionRow, f Field) (float64, bool) {
	switch f {
	case FieldCompletion:
		return row.Completion, true
	case FieldBudgetOverrunPct:
		return row.BudgetOverrunPct()
	default:
		return 0, false
	}
}
