package model

import (
	"sort"
	"strings"
)

// Scope is the explicit set of factories a caller may see. It is passed
// into every query and aggregation call.
type Scope struct {
	All        bool
	FactoryIDs []string
}

// ScopeAll grants visibility over every factory.
func ScopeAll() Scope {
	return Scope{All: true}
}

// ScopeFactories restricts visibility to the given factory ids.
func ScopeFactories(ids ...string) Scope {
	var clean []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	sort.Strings(clean)
	return Scope{FactoryIDs: clean}
}

// ParseScope reads "all" or a comma-separated factory id allowlist.
// An empty string yields a scope that sees nothing.
func ParseScope(s string) Scope {
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return ScopeAll()
	}
	return ScopeFactories(strings.Split(s, ",")...)
}

// Allows reports whether the factory is visible.
func (s Scope) Allows(factoryID string) bool {
	if s.All {
		return true
	}
	i := sort.SearchStrings(s.FactoryIDs, factoryID)
	return i < len(s.FactoryIDs) && s.FactoryIDs[i] == factoryID
}

// Empty reports whether the scope sees no factory at all.
func (s Scope) Empty() bool {
	return !s.All && len(s.FactoryIDs) == 0
}

// Restrict narrows a factory id list to the visible ones.
func (s Scope) Restrict(ids []string) []string {
	var out []string
	for _, id := range ids {
		if s.Allows(id) {
			out = append(out, id)
		}
	}
	return out
}

func (s Scope) String() string {
	if s.All {
		return "all"
	}
	return strings.Join(s.FactoryIDs, ",")
}
