package tagging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	rules, err := DefaultRules()
	require.NoError(t, err)
	assert.NotEmpty(t, rules)
	for _, r := range rules {
		assert.NotEmpty(t, r.Tag)
		assert.NotEmpty(t, r.Keywords)
	}
}

func TestTagger_Tags(t *testing.T) {
	tg := NewTagger([]Rule{
		{Tag: "export", Keywords: []string{"ihracat"}},
		{Tag: "digital", Keywords: []string{"dijital", "endüstri 4.0"}},
		{Tag: "green", Keywords: []string{"enerji verimliliği"}},
	})

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"turkish dotted capital", "İHRACAT yapan firma sayısı", []string{"export"}},
		{"phrase", "Endüstri 4.0 dönüşüm projeleri", []string{"digital"}},
		{"multiple sorted", "Dijital ihracat platformu", []string{"digital", "export"}},
		{"phrase split by punctuation", "Enerji, verimliliği", []string{"green"}},
		{"substring does not match", "ihracatçı", []string{}},
		{"no match", "Toplam ciro", []string{}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tg.Tags(tt.text))
		})
	}
}

func TestTagger_DuplicateTags(t *testing.T) {
	tg := NewTagger([]Rule{
		{Tag: "lean", Keywords: []string{"yalın"}},
		{Tag: "lean", Keywords: []string{"kaizen"}},
	})
	assert.Equal(t, []string{"lean"}, tg.Tags("Yalın kaizen çalışmaları"))
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - tag: lean\n    keywords: [yalın]\n"), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "lean", rules[0].Tag)

	_, err = LoadRules(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rules:\n  - tag: ''\n    keywords: [x]\n"), 0o600))
	_, err = LoadRules(bad)
	require.Error(t, err)

	rules, err = LoadRules("")
	require.NoError(t, err)
	assert.NotEmpty(t, rules)
}
