package output

import (
	"github.com/jedib0t/go-pretty/v6/table"

	"revdepcheck/internal/deps"
)

// summaryTable builds the verdict-count table rendered at the end of a text
// console run and inside the Markdown report.
func summaryTable(results []deps.Result) table.Writer {
	counts := deps.Report{Results: results}.Counts()

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Verdict", "Count"})
	for _, v := range []deps.Verdict{deps.VerdictPass, deps.VerdictFail, deps.VerdictBroken, deps.VerdictError} {
		t.AppendRow(table.Row{string(v), counts[v]})
	}
	t.AppendFooter(table.Row{"TOTAL", len(results)})
	return t
}

// dependentTable builds the per-dependent table for the Markdown report.
func dependentTable(results []deps.Result) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Dependent", "Version", "Verdict", "Detail"})
	for _, r := range results {
		version := r.Dependent.Version
		if version == "" {
			version = "unknown"
		}
		t.AppendRow(table.Row{r.Dependent.Path, version, string(r.Verdict), r.Message})
	}
	return t
}
