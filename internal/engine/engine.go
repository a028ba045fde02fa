// Package engine orchestrates a reverse dependency check: discover the
// dependents of the module under test, build each one against the base and
// next origins on a bounded worker pool, and reduce the per-dependent
// verdicts to an exit code.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"revdepcheck/internal/builder"
	"revdepcheck/internal/config"
	"revdepcheck/internal/deps"
	gh "revdepcheck/internal/github"
	"revdepcheck/internal/manifest"
	"revdepcheck/internal/output"
	"revdepcheck/internal/registry"
)

// Engine wires discovery, orchestration and output for one run.
type Engine struct {
	Registry *registry.Client
	GitHub   *gh.Client

	// Stdout and Stderr default to the process streams; tests substitute
	// buffers.
	Stdout io.Writer
	Stderr io.Writer

	// newBuilder and orchestrate are seams for tests.
	newBuilder  func(modulePath string) (Builder, error)
	orchestrate func(ctx context.Context, orch *Orchestrator, names []string, origins deps.OriginSet) deps.Report
}

func NewEngine(reg *registry.Client, ghc *gh.Client) *Engine {
	return &Engine{
		Registry: reg,
		GitHub:   ghc,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		newBuilder: func(modulePath string) (Builder, error) {
			return builder.NewLocal(modulePath)
		},
		orchestrate: func(ctx context.Context, orch *Orchestrator, names []string, origins deps.OriginSet) deps.Report {
			return orch.Run(ctx, names, origins)
		},
	}
}

// target is the fully resolved module under test.
type target struct {
	module string
	source string
}

// resolveTarget binds the module path and candidate source tree from the
// manifest and flag overrides.
func resolveTarget(cfg *config.Config) (target, error) {
	manifestPath := manifest.Locate(cfg.Target.Manifest)

	modulePath := cfg.Target.Module
	if modulePath == "" {
		parsed, err := manifest.ModulePath(manifestPath)
		if err != nil {
			return target{}, err
		}
		modulePath = parsed
	}

	source := cfg.Target.Source
	if source == "" {
		source = filepath.Dir(manifestPath)
	}

	return target{module: modulePath, source: source}, nil
}

// exitCodeForRun maps the run outcome to the process exit code:
//
//	0 - every dependent tested cleanly (BROKEN and ERROR do not fail the run)
//	1 - at least one dependent regressed
//	2 - the run itself could not complete
func exitCodeForRun(fatal, regressed bool) int {
	switch {
	case fatal:
		return 2
	case regressed:
		return 1
	default:
		return 0
	}
}

// Run executes one full check and returns the process exit code.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	ctx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	fatal := func(err error) int {
		fmt.Fprintf(e.Stderr, "revdepcheck: %v\n", err)
		return exitCodeForRun(true, false)
	}

	tgt, err := resolveTarget(cfg)
	if err != nil {
		return fatal(err)
	}

	if !cfg.Output.NoConsole {
		fmt.Fprintf(e.Stderr, "discovering reverse dependents of %s\n", tgt.module)
	}
	var lister Lister
	if e.Registry != nil {
		lister = e.Registry
	}
	names, err := DiscoverDependents(ctx, cfg.Discovery, lister, e.GitHub, tgt.module)
	if err != nil {
		return fatal(err)
	}
	names = FilterDependents(names, cfg.Discovery)
	if len(names) == 0 {
		fmt.Fprintln(e.Stderr, "no reverse dependents to test")
		return exitCodeForRun(false, false)
	}

	if cfg.Discovery.DryRun {
		for _, name := range names {
			fmt.Fprintln(e.Stdout, name)
		}
		return exitCodeForRun(false, false)
	}

	origins := deps.OriginSet{
		Base: deps.Published(),
		Next: deps.SourceOverride(tgt.source),
	}
	if cfg.Target.BaseSource != "" {
		origins.Base = deps.SourceOverride(cfg.Target.BaseSource)
	}

	outMgr, err := setupOutputManager(cfg)
	if err != nil {
		return fatal(err)
	}

	writeEvent := func(ev output.Event) {
		if err := outMgr.Write(ev); err != nil {
			fmt.Fprintf(e.Stderr, "revdepcheck: %v\n", err)
		}
	}
	writeEvent(output.Event{Type: "run.started", Module: tgt.module, Dependents: len(names)})

	bld, err := e.newBuilder(tgt.module)
	if err != nil {
		_ = outMgr.Close()
		return fatal(err)
	}

	orch, err := NewOrchestrator(e.Registry, bld, cfg.Runtime.Concurrency, cfg.Runtime.BuildTimeout)
	if err != nil {
		_ = outMgr.Close()
		return fatal(err)
	}
	orch.OnResult = func(r deps.Result) {
		if err := outMgr.Write(r); err != nil {
			fmt.Fprintf(e.Stderr, "revdepcheck: %v\n", err)
		}
	}

	report := e.orchestrate(ctx, orch, names, origins)

	runErr := Aggregate(report)
	exitCode := exitCodeForRun(false, runErr != nil)
	if runErr != nil && !cfg.Output.NoConsole {
		fmt.Fprintf(e.Stderr, "revdepcheck: %v\n", runErr)
	}

	writeEvent(output.Event{Type: "run.finished", Module: tgt.module, ExitCode: exitCode})
	if err := outMgr.Close(); err != nil {
		fmt.Fprintf(e.Stderr, "revdepcheck: %v\n", err)
	}

	return exitCode
}

// setupOutputManager assembles the sink fan-out from the output config.
func setupOutputManager(cfg *config.Config) (*output.Manager, error) {
	mgr := output.NewManager()

	if !cfg.Output.NoConsole {
		if err := mgr.AddSink(output.NewConsoleSink(os.Stdout, cfg.Output.ConsoleFormat)); err != nil {
			return nil, err
		}
	}

	for _, format := range cfg.Output.Emit {
		sink, err := output.NewEmitSink(os.Stdout, format)
		if err != nil {
			return nil, err
		}
		if err := mgr.AddSink(sink); err != nil {
			return nil, err
		}
	}

	if cfg.Output.Out != "" {
		sink, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			return nil, err
		}
		if err := mgr.AddSink(sink); err != nil {
			return nil, err
		}
	}

	if cfg.Output.Report != "" {
		sink, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			return nil, err
		}
		if err := mgr.AddSink(sink); err != nil {
			return nil, err
		}
	}

	return mgr, nil
}
