package scoring

import "sort"

// Direction classifies the sign of a trend.
type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Stable Direction = "stable"
)

// DefaultTopN bounds the improving/declining lists.
const DefaultTopN = 8

// Classify maps a delta to its direction.
func Classify(delta float64) Direction {
	switch {
	case delta > 0:
		return Up
	case delta < 0:
		return Down
	default:
		return Stable
	}
}

// WindowTrend is last − first over the window; 0 with fewer than two
// points.
func WindowTrend(scores []float64) float64 {
	if len(scores) < 2 {
		return 0
	}
	return scores[len(scores)-1] - scores[0]
}

// PreviousPeriodTrend compares only the last two points of the window.
func PreviousPeriodTrend(scores []float64) float64 {
	if len(scores) < 2 {
		return 0
	}
	return scores[len(scores)-1] - scores[len(scores)-2]
}

// SparseWindowTrend is WindowTrend over the points that are present.
// ok is false when fewer than two points exist.
func SparseWindowTrend(scores []*float64) (trend float64, ok bool) {
	var present []float64
	for _, s := range scores {
		if s != nil {
			present = append(present, *s)
		}
	}
	if len(present) < 2 {
		return 0, false
	}
	return WindowTrend(present), true
}

// Mover is one entity's change between the last two periods.
type Mover struct {
	ID       string    `json:"id"`
	Code     string    `json:"code"`
	Title    string    `json:"title"`
	Previous float64   `json:"previous"`
	Current  float64   `json:"current"`
	Delta    float64   `json:"delta"`
	Trend    Direction `json:"trend"`
}

// NewMover builds a Mover from the previous and current scores.
func NewMover(id, code, title string, previous, current float64) Mover {
	d := current - previous
	return Mover{ID: id, Code: code, Title: title, Previous: previous, Current: current, Delta: d, Trend: Classify(d)}
}

// TopMovers sorts by delta descending (improving) and ascending
// (declining) and truncates both lists to n. n <= 0 uses DefaultTopN.
// Ties keep input order.
func TopMovers(movers []Mover, n int) (improving, declining []Mover) {
	if n <= 0 {
		n = DefaultTopN
	}
	improving = append([]Mover(nil), movers...)
	sort.SliceStable(improving, func(i, j int) bool { return improving[i].Delta > improving[j].Delta })

	declining = append([]Mover(nil), movers...)
	sort.SliceStable(declining, func(i, j int) bool { return declining[i].Delta < declining[j].Delta })

	if len(improving) > n {
		improving = improving[:n]
	}
	if len(declining) > n {
		declining = declining[:n]
	}
	return improving, declining
}
