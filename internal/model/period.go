package model

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Period is a calendar quarter token in the form "YYYY-Qn".
type Period string

var periodPattern = regexp.MustCompile(`^(\d{4})-Q([1-4])$`)

// ParsePeriod validates and normalizes a period token. Lowercase "q" and
// surrounding whitespace are accepted.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !periodPattern.MatchString(s) {
		return "", eris.Errorf("model: invalid period %q (want YYYY-Qn)", s)
	}
	return Period(s), nil
}

// ParsePeriods parses a comma-separated list of period tokens, drops
// duplicates and returns them in chronological order.
func ParsePeriods(csv string) ([]Period, error) {
	var out []Period
	seen := make(map[Period]bool)
	for _, raw := range strings.Split(csv, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		p, err := ParsePeriod(raw)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	SortPeriods(out)
	return out, nil
}

// MustPeriod is ParsePeriod for literals; it panics on malformed input.
func MustPeriod(s string) Period {
	p, err := ParsePeriod(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Year returns the calendar year, or 0 for a malformed token.
func (p Period) Year() int {
	m := periodPattern.FindStringSubmatch(string(p))
	if m == nil {
		return 0
	}
	y, _ := strconv.Atoi(m[1])
	return y
}

// Quarter returns 1-4, or 0 for a malformed token.
func (p Period) Quarter() int {
	m := periodPattern.FindStringSubmatch(string(p))
	if m == nil {
		return 0
	}
	q, _ := strconv.Atoi(m[2])
	return q
}

// Valid reports whether p is a well-formed token.
func (p Period) Valid() bool {
	return periodPattern.MatchString(string(p))
}

// Previous returns the canonical prior quarter: Q1 rolls back to Q4 of
// the previous year, otherwise Qn becomes Qn-1.
func (p Period) Previous() Period {
	y, q := p.Year(), p.Quarter()
	if q == 0 {
		return ""
	}
	if q == 1 {
		return Period(fmt.Sprintf("%04d-Q4", y-1))
	}
	return Period(fmt.Sprintf("%04d-Q%d", y, q-1))
}

// index orders periods chronologically.
func (p Period) index() int {
	return p.Year()*4 + p.Quarter() - 1
}

// Before reports whether p is chronologically earlier than o.
func (p Period) Before(o Period) bool {
	return p.index() < o.index()
}

func (p Period) String() string {
	return string(p)
}

// SortPeriods orders periods chronologically in place.
func SortPeriods(ps []Period) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Before(ps[j]) })
}
