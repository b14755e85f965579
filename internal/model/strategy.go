package model

import "strings"

// StrategicGoal (SA) is the top level of the strategy hierarchy.
type StrategicGoal struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
}

// StrategicTarget (SH) belongs to exactly one StrategicGoal.
type StrategicTarget struct {
	ID              string   `json:"id"`
	Code            string   `json:"code"`
	Title           string   `json:"title"`
	StrategicGoalID string   `json:"strategic_goal_id"`
	GoalWeight      *float64 `json:"goal_weight,omitempty"`
	Importance      *float64 `json:"importance,omitempty"`
}

// KPI is a leaf indicator owned by one StrategicTarget.
type KPI struct {
	ID                int64    `json:"id"`
	Number            int      `json:"number"`
	Description       string   `json:"description"`
	Unit              string   `json:"unit,omitempty"`
	TargetValue       *float64 `json:"target_value,omitempty"`
	Themes            []string `json:"themes,omitempty"`
	SHWeight          *float64 `json:"sh_weight,omitempty"`
	Importance        *float64 `json:"importance,omitempty"`
	StrategicTargetID string   `json:"strategic_target_id"`
}

// HasTheme reports whether the KPI carries the tag (case-insensitive).
func (k KPI) HasTheme(tag string) bool {
	for _, t := range k.Themes {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// SplitThemes parses the stored comma-separated theme column.
func SplitThemes(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinThemes renders theme tags for storage.
func JoinThemes(tags []string) string {
	return strings.Join(tags, ",")
}
