package tagging

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tagger applies a rule set to free text.
type Tagger struct {
	fold  cases.Caser
	rules []compiledRule
}

type compiledRule struct {
	tag      string
	keywords [][]string
}

// NewTagger compiles rules. Keywords are folded with Turkish casing so
// that "İhracat" and "ihracat" match, as do "IŞIK" and "ışık".
func NewTagger(rules []Rule) *Tagger {
	t := &Tagger{fold: cases.Lower(language.Turkish)}
	for _, r := range rules {
		cr := compiledRule{tag: r.Tag}
		for _, kw := range r.Keywords {
			if toks := t.tokens(kw); len(toks) > 0 {
				cr.keywords = append(cr.keywords, toks)
			}
		}
		if len(cr.keywords) > 0 {
			t.rules = append(t.rules, cr)
		}
	}
	return t
}

// Tags returns the sorted, de-duplicated tags whose keywords occur in text.
func (t *Tagger) Tags(text string) []string {
	toks := t.tokens(text)
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range t.rules {
		if seen[r.tag] {
			continue
		}
		for _, kw := range r.keywords {
			if containsSeq(toks, kw) {
				seen[r.tag] = true
				out = append(out, r.tag)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// tokens folds case and splits on anything that is not a letter, digit
// or '.', so "endüstri 4.0" stays a two-token phrase.
func (t *Tagger) tokens(s string) []string {
	folded := t.fold.String(s)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.'
	})
}

func containsSeq(toks, seq []string) bool {
	if len(seq) == 0 || len(seq) > len(toks) {
		return false
	}
outer:
	for i := 0; i+len(seq) <= len(toks); i++ {
		for j, s := range seq {
			if strings.TrimSuffix(toks[i+j], ".") != strings.TrimSuffix(s, ".") {
				continue outer
			}
		}
		return true
	}
	return false
}
