package output

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"revdepcheck/internal/deps"
)

// stderrExcerptLines bounds how much compiler output a single regression can
// occupy in the report.
const stderrExcerptLines = 20

// ReportSink accumulates the whole run and renders a Markdown summary on
// Close.
type ReportSink struct {
	path         string
	file         *os.File
	mu           sync.Mutex
	module       string
	results      []deps.Result
	exitCode     int
	haveExitCode bool
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{
		path: path,
		file: f,
	}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case deps.Result:
		s.results = append(s.results, t)
	case Event:
		if t.Type == "run.started" && t.Module != "" {
			s.module = t.Module
		}
		if t.Type == "run.finished" {
			s.exitCode = t.ExitCode
			s.haveExitCode = true
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fails, broken, errs []deps.Result
	for _, r := range s.results {
		switch r.Verdict {
		case deps.VerdictFail:
			fails = append(fails, r)
		case deps.VerdictBroken:
			broken = append(broken, r)
		case deps.VerdictError:
			errs = append(errs, r)
		}
	}

	var b strings.Builder
	b.WriteString("# Reverse Dependency Check Report\n\n")
	if s.module != "" {
		b.WriteString(fmt.Sprintf("Module under test: `%s`\n\n", s.module))
	}

	b.WriteString("## Summary\n\n")
	b.WriteString(summaryTable(s.results).RenderMarkdown())
	b.WriteString("\n\n")

	if s.haveExitCode {
		verdict := "no regressions"
		if s.exitCode != 0 {
			verdict = "regressions detected"
		}
		b.WriteString(fmt.Sprintf("Overall: **%s** (exit code %d)\n\n", verdict, s.exitCode))
	}

	b.WriteString("## Regressions\n\n")
	if len(fails) == 0 {
		b.WriteString("- None\n\n")
	} else {
		b.WriteString("These dependents build against the base release but not against the candidate change.\n\n")
		for _, r := range fails {
			b.WriteString(fmt.Sprintf("### %s\n\n", r.Dependent.Display()))
			if r.Next != nil && r.Next.Stderr != "" {
				b.WriteString("```\n")
				b.WriteString(excerpt(r.Next.Stderr, stderrExcerptLines))
				b.WriteString("```\n")
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Pre-existing breakage\n\n")
	if len(broken) == 0 {
		b.WriteString("- None\n\n")
	} else {
		b.WriteString("These dependents already fail against the base release; they do not count against the candidate change.\n\n")
		for _, r := range broken {
			b.WriteString(fmt.Sprintf("- %s\n", r.Dependent.Display()))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Errors\n\n")
	if len(errs) == 0 {
		b.WriteString("- None\n\n")
	} else {
		for _, r := range errs {
			b.WriteString(fmt.Sprintf("- %s: %s\n", r.Dependent.Display(), r.Message))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Dependents tested\n\n")
	if len(s.results) == 0 {
		b.WriteString("- None\n")
	} else {
		b.WriteString(dependentTable(s.results).RenderMarkdown())
		b.WriteString("\n")
	}

	if _, err := s.file.WriteString(b.String()); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func excerpt(text string, maxLines int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	truncated := false
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		truncated = true
	}
	out := strings.Join(lines, "\n") + "\n"
	if truncated {
		out += "... (truncated)\n"
	}
	return out
}
