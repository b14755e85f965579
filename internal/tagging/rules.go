// Package tagging classifies KPI descriptions into theme tags using a
// declarative keyword rule set. Tags are computed once at ingestion and
// persisted on the KPI; scoring never inspects free text.
package tagging

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule maps a keyword set to a tag. A rule matches when any keyword
// occurs in the text as a whole token sequence.
type Rule struct {
	Tag      string   `yaml:"tag"`
	Keywords []string `yaml:"keywords"`
}

// RuleSet is the on-disk format.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() ([]Rule, error) {
	return parseRules(defaultRules)
}

// LoadRules reads a rule set from a YAML file. An empty path returns
// the built-in rules.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tagging: read rules %s", path)
	}
	return parseRules(data)
}

func parseRules(data []byte) ([]Rule, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, eris.Wrap(err, "tagging: parse rules")
	}
	for i, r := range rs.Rules {
		tag := strings.TrimSpace(r.Tag)
		if tag == "" {
			return nil, eris.Errorf("tagging: rule %d has no tag", i)
		}
		if len(r.Keywords) == 0 {
			return nil, eris.Errorf("tagging: rule %q has no keywords", tag)
		}
		rs.Rules[i].Tag = tag
	}
	return rs.Rules, nil
}
