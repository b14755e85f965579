package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
)

// table is a rendered result: a header plus string rows.
type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// validateFormat rejects anything but table and csv.
func validateFormat(format string) error {
	if format != "table" && format != "csv" {
		return eris.Errorf("--format must be table or csv (got %q)", format)
	}
	return nil
}

// writeOutput renders t to outputPath, or stdout when the path is empty.
func writeOutput(t table, format, outputPath string) error {
	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "create output file %s", outputPath)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	switch format {
	case "csv":
		return writeCSV(w, t)
	case "table":
		return writeTable(w, t)
	default:
		return eris.Errorf("unsupported format %q", format)
	}
}

func writeCSV(w io.Writer, t table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return eris.Wrap(err, "write CSV header")
	}
	for _, r := range t.rows {
		if err := cw.Write(r); err != nil {
			return eris.Wrap(err, "write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "flush CSV")
}

func writeTable(out io.Writer, t table) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	upper := make([]string, len(t.header))
	rule := make([]string, len(t.header))
	for i, h := range t.header {
		upper[i] = strings.ToUpper(h)
		rule[i] = strings.Repeat("-", len(h))
	}
	_, _ = fmt.Fprintln(w, strings.Join(upper, "\t"))
	_, _ = fmt.Fprintln(w, strings.Join(rule, "\t"))
	for _, r := range t.rows {
		_, _ = fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	return eris.Wrap(w.Flush(), "flush table")
}

// fmtScore renders an optional score with one decimal; absent is "-".
func fmtScore(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *s)
}

func fmtFloat(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// truncate shortens s to n runes for compact table display.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
