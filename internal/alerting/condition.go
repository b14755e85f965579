package alerting

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Field names a numeric attribute a condition can test.
type Field string

const (
	FieldAchievement      Field = "achievement"
	FieldTrend            Field = "trend"
	FieldCompletion       Field = "completion"
	FieldBudgetOverrunPct Field = "budget_overrun_pct"
)

// Subject is the kind of row a field belongs to.
type Subject string

const (
	SubjectKpi    Subject = "kpi"
	SubjectAction Subject = "action"
)

func (f Field) subject() (Subject, bool) {
	switch f {
	case FieldAchievement, FieldTrend:
		return SubjectKpi, true
	case FieldCompletion, FieldBudgetOverrunPct:
		return SubjectAction, true
	default:
		return "", false
	}
}

// Condition is a parsed "<field> <op> <value>" expression, e.g.
//
//	achievement < 50
//	trend <= -10
//	completion < 25
//	budget_overrun_pct > 20
type Condition struct {
	Field     Field
	Op        string
	Threshold float64
}

// ParseCondition parses and validates an expression.
func ParseCondition(s string) (Condition, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return Condition{}, eris.Errorf("alerting: condition %q must be <field> <op> <value>", s)
	}
	f := Field(parts[0])
	if _, ok := f.subject(); !ok {
		return Condition{}, eris.Errorf("alerting: unknown field %q", parts[0])
	}
	switch parts[1] {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return Condition{}, eris.Errorf("alerting: unknown operator %q", parts[1])
	}
	v, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Condition{}, eris.Wrapf(err, "alerting: threshold %q", parts[2])
	}
	return Condition{Field: f, Op: parts[1], Threshold: v}, nil
}

// Subject reports which row kind the condition applies to.
func (c Condition) Subject() Subject {
	s, _ := c.Field.subject()
	return s
}

// Holds applies the operator to v.
func (c Condition) Holds(v float64) bool {
	switch c.Op {
	case ">":
		return v > c.Threshold
	case ">=":
		return v >= c.Threshold
	case "<":
		return v < c.Threshold
	case "<=":
		return v <= c.Threshold
	case "==":
		return v == c.Threshold
	case "!=":
		return v != c.Threshold
	default:
		return false
	}
}

func (c Condition) String() string {
	return string(c.Field) + " " + c.Op + " " + strconv.FormatFloat(c.Threshold, 'f', -1, 64)
}
