package deps

type Verdict string

const (
	// VerdictPass: the dependent builds against both origins.
	VerdictPass Verdict = "PASS"
	// VerdictFail: the dependent builds against base but not next. A genuine
	// regression.
	VerdictFail Verdict = "FAIL"
	// VerdictBroken: the dependent already fails against base. Pre-existing
	// breakage, not attributable to the candidate change.
	VerdictBroken Verdict = "BROKEN"
	// VerdictError: the orchestration itself could not complete before a
	// build verdict could be reached.
	VerdictError Verdict = "ERROR"
)

// Result is the classified outcome of testing one reverse dependent across
// both origins.
type Result struct {
	Dependent Resolved `json:"dependent"`
	Verdict   Verdict  `json:"verdict"`
	// Message carries the orchestration failure for ERROR verdicts.
	Message string   `json:"message,omitempty"`
	Base    *Outcome `json:"base,omitempty"`
	Next    *Outcome `json:"next,omitempty"`
}

// Broken records a dependent that already fails against the base origin.
func Broken(dep Resolved, base Outcome) Result {
	return Result{Dependent: dep, Verdict: VerdictBroken, Base: &base}
}

// Fail records a regression: base succeeded, next failed.
func Fail(dep Resolved, base, next Outcome) Result {
	return Result{Dependent: dep, Verdict: VerdictFail, Base: &base, Next: &next}
}

// Pass records success against both origins.
func Pass(dep Resolved, base, next Outcome) Result {
	return Result{Dependent: dep, Verdict: VerdictPass, Base: &base, Next: &next}
}

// Errored records an orchestration failure that prevented a build verdict.
func Errored(dep Resolved, err error) Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result{Dependent: dep, Verdict: VerdictError, Message: msg}
}

func (r Result) Failed() bool { return r.Verdict == VerdictFail }

// Report is the ordered collection of per-dependent results for one run.
type Report struct {
	Results []Result `json:"results"`
}

// OverallFailed reports whether at least one dependent regressed. BROKEN and
// ERROR entries are reported but never flip the overall verdict.
func (r Report) OverallFailed() bool {
	for _, res := range r.Results {
		if res.Failed() {
			return true
		}
	}
	return false
}

// Counts returns the number of results per verdict.
func (r Report) Counts() map[Verdict]int {
	counts := make(map[Verdict]int, 4)
	for _, res := range r.Results {
		counts[res.Verdict]++
	}
	return counts
}
