package deps

import (
	"errors"
	"testing"
)

func TestConstructorsClassify(t *testing.T) {
	dep := Resolved{Path: "github.com/acme/consumer", Version: "v1.4.0"}
	good := Outcome{Succeeded: true}
	bad := Outcome{Stderr: "undefined: widgets.New", Succeeded: false}

	tests := []struct {
		name    string
		result  Result
		verdict Verdict
		failed  bool
	}{
		{"pass", Pass(dep, good, good), VerdictPass, false},
		{"fail", Fail(dep, good, bad), VerdictFail, true},
		{"broken", Broken(dep, bad), VerdictBroken, false},
		{"errored", Errored(dep, errors.New("boom")), VerdictError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.result.Verdict != tt.verdict {
				t.Errorf("Verdict = %q, want %q", tt.result.Verdict, tt.verdict)
			}
			if tt.result.Failed() != tt.failed {
				t.Errorf("Failed() = %v, want %v", tt.result.Failed(), tt.failed)
			}
			if tt.result.Dependent != dep {
				t.Errorf("Dependent = %+v, want %+v", tt.result.Dependent, dep)
			}
		})
	}
}

func TestBrokenCarriesNoNextOutcome(t *testing.T) {
	r := Broken(Resolved{Path: "github.com/acme/consumer"}, Outcome{Succeeded: false})
	if r.Base == nil {
		t.Fatal("Base outcome missing")
	}
	if r.Next != nil {
		t.Errorf("Next = %+v, want nil (next is never built when base fails)", r.Next)
	}
}

func TestErroredMessage(t *testing.T) {
	r := Errored(Resolved{Path: "github.com/acme/consumer"}, errors.New("resolve: registry unreachable"))
	if r.Message != "resolve: registry unreachable" {
		t.Errorf("Message = %q", r.Message)
	}

	r = Errored(Resolved{Path: "github.com/acme/consumer"}, nil)
	if r.Message != "unknown error" {
		t.Errorf("Message for nil error = %q, want %q", r.Message, "unknown error")
	}
}

func TestReportOverallFailed(t *testing.T) {
	dep := Resolved{Path: "github.com/acme/consumer", Version: "v1.0.0"}
	good := Outcome{Succeeded: true}
	bad := Outcome{Succeeded: false}

	tests := []struct {
		name    string
		results []Result
		want    bool
	}{
		{"empty", nil, false},
		{"all pass", []Result{Pass(dep, good, good)}, false},
		{"broken only", []Result{Broken(dep, bad)}, false},
		{"error only", []Result{Errored(dep, errors.New("x"))}, false},
		{"one fail among passes", []Result{Pass(dep, good, good), Fail(dep, good, bad), Pass(dep, good, good)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Report{Results: tt.results}.OverallFailed()
			if got != tt.want {
				t.Errorf("OverallFailed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportCounts(t *testing.T) {
	dep := Resolved{Path: "github.com/acme/consumer", Version: "v1.0.0"}
	good := Outcome{Succeeded: true}
	bad := Outcome{Succeeded: false}

	report := Report{Results: []Result{
		Pass(dep, good, good),
		Pass(dep, good, good),
		Fail(dep, good, bad),
		Broken(dep, bad),
	}}
	counts := report.Counts()
	if counts[VerdictPass] != 2 || counts[VerdictFail] != 1 || counts[VerdictBroken] != 1 || counts[VerdictError] != 0 {
		t.Errorf("Counts() = %v", counts)
	}
}

func TestResolvedDisplay(t *testing.T) {
	r := Resolved{Path: "github.com/acme/consumer", Version: "v1.2.3"}
	if got := r.Display(); got != "github.com/acme/consumer@v1.2.3" {
		t.Errorf("Display() = %q", got)
	}

	r = Resolved{Path: "github.com/acme/consumer"}
	if got := r.Display(); got != "github.com/acme/consumer@unknown" {
		t.Errorf("Display() without version = %q", got)
	}
}

func TestOriginString(t *testing.T) {
	if got := Published().String(); got != "published" {
		t.Errorf("Published().String() = %q", got)
	}
	if got := SourceOverride("/tmp/widgets").String(); got != "source:/tmp/widgets" {
		t.Errorf("SourceOverride().String() = %q", got)
	}

	if _, ok := Published().SourcePath(); ok {
		t.Error("Published() reports a source path")
	}
	if path, ok := SourceOverride("/tmp/widgets").SourcePath(); !ok || path != "/tmp/widgets" {
		t.Errorf("SourcePath() = %q, %v", path, ok)
	}
}
