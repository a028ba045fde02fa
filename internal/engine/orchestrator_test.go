package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"revdepcheck/internal/deps"
)

// fakeRegistry resolves versions from a fixed table; unknown modules error.
type fakeRegistry struct {
	versions map[string]string
}

func (f *fakeRegistry) Latest(ctx context.Context, modPath string) (string, error) {
	if v, ok := f.versions[modPath]; ok {
		return v, nil
	}
	return "", fmt.Errorf("no such module %s", modPath)
}

// fakeBuilder scripts build outcomes per dependent and origin side.
type fakeBuilder struct {
	mu    sync.Mutex
	calls []string // "path origin"

	// baseFails and nextFails mark dependents whose build fails on that side.
	baseFails map[string]bool
	nextFails map[string]bool
	// infraErr returns an error instead of an outcome for these dependents.
	infraErr map[string]error
	// panicOn makes the build panic for these dependents.
	panicOn map[string]bool
	// delay slows down specific dependents to exercise completion-order skew.
	delay map[string]time.Duration
	// block makes the build wait for ctx cancellation.
	block map[string]bool
}

func (f *fakeBuilder) Build(ctx context.Context, dep deps.Resolved, origin deps.Origin) (deps.Outcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, dep.Path+" "+origin.String())
	f.mu.Unlock()

	if f.panicOn[dep.Path] {
		panic("builder exploded")
	}
	if err := f.infraErr[dep.Path]; err != nil {
		return deps.Outcome{}, err
	}
	if d := f.delay[dep.Path]; d > 0 {
		time.Sleep(d)
	}
	if f.block[dep.Path] {
		<-ctx.Done()
		return deps.Outcome{}, ctx.Err()
	}

	_, isOverride := origin.SourcePath()
	failed := (isOverride && f.nextFails[dep.Path]) || (!isOverride && f.baseFails[dep.Path])
	if failed {
		return deps.Outcome{Stderr: "compile error in " + dep.Path, Succeeded: false}, nil
	}
	return deps.Outcome{Succeeded: true}, nil
}

func (f *fakeBuilder) callsFor(path string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, path+" ") {
			out = append(out, c)
		}
	}
	return out
}

var testOrigins = deps.OriginSet{
	Base: deps.Published(),
	Next: deps.SourceOverride("/src/widgets"),
}

func newTestOrchestrator(t *testing.T, reg Registry, b Builder, concurrency int) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(reg, b, concurrency, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestNewOrchestratorValidates(t *testing.T) {
	reg := &fakeRegistry{}
	b := &fakeBuilder{}

	if _, err := NewOrchestrator(nil, b, 1, time.Minute); err == nil {
		t.Error("nil registry accepted")
	}
	if _, err := NewOrchestrator(reg, nil, 1, time.Minute); err == nil {
		t.Error("nil builder accepted")
	}
	if _, err := NewOrchestrator(reg, b, 0, time.Minute); err == nil {
		t.Error("zero concurrency accepted")
	}
}

func TestRunClassifiesVerdicts(t *testing.T) {
	reg := &fakeRegistry{versions: map[string]string{
		"github.com/acme/alpha": "v1.0.0",
		"github.com/acme/beta":  "v2.3.0",
		"github.com/acme/delta": "v0.9.0",
	}}
	b := &fakeBuilder{
		nextFails: map[string]bool{"github.com/acme/beta": true},
		baseFails: map[string]bool{"github.com/acme/delta": true},
	}
	o := newTestOrchestrator(t, reg, b, 2)

	names := []string{
		"github.com/acme/alpha",
		"github.com/acme/beta",
		"github.com/acme/gamma", // not in the registry: resolution fails
		"github.com/acme/delta",
	}
	report := o.Run(context.Background(), names, testOrigins)

	if len(report.Results) != len(names) {
		t.Fatalf("got %d results for %d names", len(report.Results), len(names))
	}
	wantVerdicts := []deps.Verdict{deps.VerdictPass, deps.VerdictFail, deps.VerdictError, deps.VerdictBroken}
	for i, want := range wantVerdicts {
		if got := report.Results[i].Verdict; got != want {
			t.Errorf("results[%d] (%s) = %s, want %s", i, names[i], got, want)
		}
	}

	if !report.OverallFailed() {
		t.Error("OverallFailed() = false with a FAIL present")
	}

	// The resolved version must ride along on the verdict.
	if got := report.Results[1].Dependent.Version; got != "v2.3.0" {
		t.Errorf("beta version = %q", got)
	}
	// Resolution failures keep a displayable identity with no version.
	if got := report.Results[2].Dependent; got.Path != "github.com/acme/gamma" || got.Version != "" {
		t.Errorf("gamma identity = %+v", got)
	}
}

func TestBrokenSkipsNextBuild(t *testing.T) {
	reg := &fakeRegistry{versions: map[string]string{"github.com/acme/delta": "v0.9.0"}}
	b := &fakeBuilder{baseFails: map[string]bool{"github.com/acme/delta": true}}
	o := newTestOrchestrator(t, reg, b, 1)

	report := o.Run(context.Background(), []string{"github.com/acme/delta"}, testOrigins)

	if got := report.Results[0].Verdict; got != deps.VerdictBroken {
		t.Fatalf("verdict = %s, want BROKEN", got)
	}
	calls := b.callsFor("github.com/acme/delta")
	if len(calls) != 1 || calls[0] != "github.com/acme/delta published" {
		t.Errorf("builds = %v, want only the base build", calls)
	}
	if report.Results[0].Next != nil {
		t.Error("BROKEN result carries a next outcome")
	}
}

func TestRunIsTotalWithDuplicates(t *testing.T) {
	reg := &fakeRegistry{versions: map[string]string{"github.com/acme/alpha": "v1.0.0"}}
	b := &fakeBuilder{}
	o := newTestOrchestrator(t, reg, b, 3)

	names := []string{"github.com/acme/alpha", "github.com/acme/alpha", "github.com/acme/alpha"}
	report := o.Run(context.Background(), names, testOrigins)

	if len(report.Results) != 3 {
		t.Fatalf("got %d results, want one per submission", len(report.Results))
	}
	for i, r := range report.Results {
		if r.Verdict != deps.VerdictPass {
			t.Errorf("results[%d] = %s", i, r.Verdict)
		}
	}
}

func TestResultsKeepSubmissionOrder(t *testing.T) {
	reg := &fakeRegistry{versions: map[string]string{
		"github.com/acme/slow":   "v1.0.0",
		"github.com/acme/medium": "v1.0.0",
		"github.com/acme/fast":   "v1.0.0",
	}}
	b := &fakeBuilder{delay: map[string]time.Duration{
		"github.com/acme/slow":   60 * time.Millisecond,
		"github.com/acme/medium": 20 * time.Millisecond,
	}}
	o := newTestOrchestrator(t, reg, b, 3)

	names := []string{"github.com/acme/slow", "github.com/acme/medium", "github.com/acme/fast"}

	var observed []string
	o.OnResult = func(r deps.Result) {
		observed = append(observed, r.Dependent.Path)
	}

	report := o.Run(context.Background(), names, testOrigins)

	for i, name := range names {
		if got := report.Results[i].Dependent.Path; got != name {
			t.Errorf("results[%d] = %s, want %s", i, got, name)
		}
	}
	// OnResult fires in the same order even though completion order differs.
	for i, name := range names {
		if observed[i] != name {
			t.Errorf("OnResult[%d] = %s, want %s", i, observed[i], name)
		}
	}
}

func TestPanickingJobYieldsErrorVerdict(t *testing.T) {
	reg := &fakeRegistry{versions: map[string]string{
		"github.com/acme/alpha": "v1.0.0",
		"github.com/acme/boom":  "v1.0.0",
		"github.com/acme/gamma": "v1.0.0",
	}}
	b := &fakeBuilder{panicOn: map[string]bool{"github.com/acme/boom": true}}
	o := newTestOrchestrator(t, reg, b, 2)

	names := []string{"github.com/acme/alpha", "github.com/acme/boom", "github.com/acme/gamma"}
	report := o.Run(context.Background(), names, testOrigins)

	if len(report.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(report.Results))
	}
	boom := report.Results[1]
	if boom.Verdict != deps.VerdictError {
		t.Errorf("panicking job verdict = %s, want ERROR", boom.Verdict)
	}
	if boom.Dependent.Path != "github.com/acme/boom" {
		t.Errorf("panicking job identity = %q", boom.Dependent.Path)
	}
	if !strings.Contains(boom.Message, ErrWorkerFault.Error()) {
		t.Errorf("panicking job message = %q", boom.Message)
	}
	// The fault is contained: siblings still pass.
	if report.Results[0].Verdict != deps.VerdictPass || report.Results[2].Verdict != deps.VerdictPass {
		t.Errorf("sibling verdicts = %s, %s", report.Results[0].Verdict, report.Results[2].Verdict)
	}
	if report.OverallFailed() {
		t.Error("OverallFailed() = true; ERROR must not count as a regression")
	}
}

func TestInfrastructureErrorYieldsErrorVerdict(t *testing.T) {
	reg := &fakeRegistry{versions: map[string]string{"github.com/acme/alpha": "v1.0.0"}}
	b := &fakeBuilder{infraErr: map[string]error{"github.com/acme/alpha": errors.New("tmpdir: disk full")}}
	o := newTestOrchestrator(t, reg, b, 1)

	report := o.Run(context.Background(), []string{"github.com/acme/alpha"}, testOrigins)

	r := report.Results[0]
	if r.Verdict != deps.VerdictError {
		t.Fatalf("verdict = %s, want ERROR", r.Verdict)
	}
	if !strings.Contains(r.Message, "disk full") {
		t.Errorf("message = %q", r.Message)
	}
}

func TestBuildTimeoutYieldsErrorVerdict(t *testing.T) {
	reg := &fakeRegistry{versions: map[string]string{"github.com/acme/stuck": "v1.0.0"}}
	b := &fakeBuilder{block: map[string]bool{"github.com/acme/stuck": true}}

	o, err := NewOrchestrator(reg, b, 1, 30*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	report := o.Run(context.Background(), []string{"github.com/acme/stuck"}, testOrigins)

	r := report.Results[0]
	if r.Verdict != deps.VerdictError {
		t.Fatalf("verdict = %s, want ERROR", r.Verdict)
	}
	if !strings.Contains(r.Message, "timed out") {
		t.Errorf("message = %q, want a timeout mention", r.Message)
	}
}

func TestConcurrencyIsBounded(t *testing.T) {
	const limit = 2

	var mu sync.Mutex
	running, peak := 0, 0

	reg := &fakeRegistry{versions: map[string]string{}}
	names := make([]string, 6)
	for i := range names {
		names[i] = fmt.Sprintf("github.com/acme/dep%d", i)
		reg.versions[names[i]] = "v1.0.0"
	}

	b := &countingBuilder{onBuild: func() {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
	}}

	o := newTestOrchestrator(t, reg, b, limit)
	report := o.Run(context.Background(), names, testOrigins)

	if len(report.Results) != len(names) {
		t.Fatalf("got %d results", len(report.Results))
	}
	mu.Lock()
	defer mu.Unlock()
	if peak > limit {
		t.Errorf("peak concurrent builds = %d, limit %d", peak, limit)
	}
}

type countingBuilder struct {
	onBuild func()
}

func (c *countingBuilder) Build(ctx context.Context, dep deps.Resolved, origin deps.Origin) (deps.Outcome, error) {
	if c.onBuild != nil {
		c.onBuild()
	}
	return deps.Outcome{Succeeded: true}, nil
}

func TestCancelledContextErrorsRemainingJobs(t *testing.T) {
	reg := &fakeRegistry{versions: map[string]string{
		"github.com/acme/alpha": "v1.0.0",
		"github.com/acme/beta":  "v1.0.0",
	}}
	b := &fakeBuilder{}
	o := newTestOrchestrator(t, reg, b, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := o.Run(ctx, []string{"github.com/acme/alpha", "github.com/acme/beta"}, testOrigins)

	if len(report.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(report.Results))
	}
	for i, r := range report.Results {
		if r.Verdict != deps.VerdictError {
			t.Errorf("results[%d] = %s, want ERROR after cancellation", i, r.Verdict)
		}
	}
}
