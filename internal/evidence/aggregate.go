// Package evidence produces anonymized group statistics over evidence
// records. Groups smaller than the disclosure threshold are suppressed.
package evidence

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/akerimB/kpi-manager/internal/model"
	"github.com/akerimB/kpi-manager/internal/sector"
)

// GroupBy selects the classification key.
type GroupBy string

const (
	GroupByNace2D GroupBy = "nace2d"
	GroupBySector GroupBy = "sector"
)

// DefaultMinN is the default disclosure threshold.
const DefaultMinN = 5

// unclassified keys records whose NACE code has no 2-digit division.
const unclassified = "unknown"

// ParseGroupBy validates a grouping key; empty means GroupByNace2D.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(strings.ToLower(strings.TrimSpace(s))) {
	case "", GroupByNace2D:
		return GroupByNace2D, nil
	case GroupBySector:
		return GroupBySector, nil
	default:
		return "", eris.Errorf("evidence: unknown group_by %q (want nace2d or sector)", s)
	}
}

// EffectiveMinN applies the threshold policy: 0 or unset means
// DefaultMinN, anything else is floored at 1.
func EffectiveMinN(minN int) int {
	if minN == 0 {
		return DefaultMinN
	}
	if minN < 1 {
		return 1
	}
	return minN
}

// Key returns the classification key of a record.
func Key(by GroupBy, naceCode string) string {
	if by == GroupBySector {
		return sector.Label(naceCode)
	}
	if p := sector.Prefix(naceCode); p != "" {
		return p
	}
	return unclassified
}

// Group is one disclosed bucket.
type Group struct {
	Key           string  `json:"key"`
	Count         int     `json:"count"`
	Employees     float64 `json:"employees"`
	Revenue       float64 `json:"revenue"`
	FirmCount     int     `json:"firm_count"`
	ExporterCount int     `json:"exporter_count"`
}

// Result is the output of Aggregate.
type Result struct {
	GroupBy    GroupBy `json:"group_by"`
	MinN       int     `json:"min_n"`
	Groups     []Group `json:"groups"`
	Suppressed int     `json:"suppressed_groups"`
}

// Aggregate groups records and drops every group with fewer than minN
// records. Output is sorted by count descending, then key ascending.
func Aggregate(records []model.Evidence, by GroupBy, minN int) Result {
	minN = EffectiveMinN(minN)

	groups := make(map[string]*Group)
	firms := make(map[string]map[string]bool)
	for _, r := range records {
		k := Key(by, r.NaceCode)
		g, ok := groups[k]
		if !ok {
			g = &Group{Key: k}
			groups[k] = g
			firms[k] = make(map[string]bool)
		}
		g.Count++
		g.Employees += r.EmployeeCount
		g.Revenue += r.Revenue
		if r.Exporter {
			g.ExporterCount++
		}
		firms[k][r.FactoryID] = true
	}

	res := Result{GroupBy: by, MinN: minN, Groups: []Group{}}
	for k, g := range groups {
		if g.Count < minN {
			res.Suppressed++
			continue
		}
		g.FirmCount = len(firms[k])
		res.Groups = append(res.Groups, *g)
	}

	sort.Slice(res.Groups, func(i, j int) bool {
		if res.Groups[i].Count != res.Groups[j].Count {
			return res.Groups[i].Count > res.Groups[j].Count
		}
		return res.Groups[i].Key < res.Groups[j].Key
	})
	return res
}
