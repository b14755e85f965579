package model

// ImpactLevel is the categorical strength of an action→KPI link.
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "low"
	ImpactMedium ImpactLevel = "medium"
	ImpactHigh   ImpactLevel = "high"
)

// Action is an initiative under one StrategicTarget run by one factory.
type Action struct {
	ID                string         `json:"id"`
	Code              string         `json:"code"`
	Title             string         `json:"title"`
	StrategicTargetID string         `json:"strategic_target_id"`
	FactoryID         string         `json:"factory_id"`
	CompletionPercent float64        `json:"completion_percent"`
	Kpis              []ActionKpi    `json:"kpis,omitempty"`
	Budgets           []ActionBudget `json:"budgets,omitempty"`
	Steps             []ActionStep   `json:"steps,omitempty"`
}

// ActionKpi links an action to a KPI it is expected to move.
type ActionKpi struct {
	ActionID    string      `json:"action_id"`
	KpiID       int64       `json:"kpi_id"`
	ImpactScore float64     `json:"impact_score"`
	ImpactLevel ImpactLevel `json:"impact_level"`
}

// ActionBudget is an action-level cost record. An empty Period means the
// record is not tied to a quarter.
type ActionBudget struct {
	ActionID    string  `json:"action_id"`
	Period      Period  `json:"period,omitempty"`
	PlannedCost float64 `json:"planned_cost"`
	ActualCost  float64 `json:"actual_cost"`
}

// ActionStep is a unit of work with optional period-scoped costs.
type ActionStep struct {
	ID          string   `json:"id"`
	ActionID    string   `json:"action_id"`
	Title       string   `json:"title"`
	Period      Period   `json:"period,omitempty"`
	PlannedCost *float64 `json:"planned_cost,omitempty"`
	ActualCost  *float64 `json:"actual_cost,omitempty"`
}
