package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"revdepcheck/internal/deps"
)

// Registry is the subset of the registry client the orchestrator needs.
type Registry interface {
	Latest(ctx context.Context, modPath string) (string, error)
}

// Builder runs one isolated build attempt of a dependent against an origin
// override. A failing compile is a normal Outcome with Succeeded=false; only
// infrastructure faults are returned as errors.
type Builder interface {
	Build(ctx context.Context, dep deps.Resolved, origin deps.Origin) (deps.Outcome, error)
}

// Orchestrator tests every reverse dependent against both origins on a
// bounded worker pool and collects exactly one verdict per dependent.
type Orchestrator struct {
	registry     Registry
	builder      Builder
	concurrency  int64
	buildTimeout time.Duration

	// OnResult, when set, observes each verdict as it is collected, in
	// submission order.
	OnResult func(deps.Result)
}

func NewOrchestrator(reg Registry, b Builder, concurrency int, buildTimeout time.Duration) (*Orchestrator, error) {
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	if b == nil {
		return nil, errors.New("builder is nil")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	return &Orchestrator{
		registry:     reg,
		builder:      b,
		concurrency:  int64(concurrency),
		buildTimeout: buildTimeout,
	}, nil
}

// Run tests the named dependents and returns one result per name, in
// submission order.
//
// Guarantees:
//   - Exactly one result per submitted name, duplicates included.
//   - A job that panics or otherwise fails to report yields a synthetic
//     ERROR verdict; it never aborts the batch.
//   - Results are collected in submission order regardless of completion
//     order.
func (o *Orchestrator) Run(ctx context.Context, names []string, origins deps.OriginSet) deps.Report {
	sem := semaphore.NewWeighted(o.concurrency)

	futures := make([]*resultFuture, 0, len(names))
	for _, name := range names {
		futures = append(futures, o.submit(ctx, sem, name, origins))
	}

	results := make([]deps.Result, 0, len(futures))
	for _, fut := range futures {
		res := fut.take()
		if o.OnResult != nil {
			o.OnResult(res)
		}
		results = append(results, res)
	}
	return deps.Report{Results: results}
}

func (o *Orchestrator) submit(ctx context.Context, sem *semaphore.Weighted, name string, origins deps.OriginSet) *resultFuture {
	fut := newResultFuture(name)
	go func() {
		defer close(fut.ch)
		defer func() {
			// A panicking job must not take the batch down. Nothing was
			// sent, so the collector sees the closed channel and
			// synthesizes an ERROR verdict for this dependent.
			_ = recover()
		}()

		// Acquire can succeed on a done context when the semaphore has
		// capacity, so check the context first.
		if err := ctx.Err(); err != nil {
			fut.ch <- deps.Errored(deps.Resolved{Path: name}, err)
			return
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			fut.ch <- deps.Errored(deps.Resolved{Path: name}, err)
			return
		}
		defer sem.Release(1)

		fut.ch <- o.runOne(ctx, name, origins)
	}()
	return fut
}

// runOne drives the per-dependent state machine: resolve, build against
// base, build against next. Strict linear with four terminal states and no
// retries; the first failing stage terminates the job. Testing next is
// meaningless when the dependent is already broken against base, so BROKEN
// pre-empts FAIL/PASS.
func (o *Orchestrator) runOne(ctx context.Context, name string, origins deps.OriginSet) deps.Result {
	resolver := VersionResolver{Registry: o.registry}
	dep, err := resolver.Resolve(ctx, name)
	if err != nil {
		return deps.Errored(deps.Resolved{Path: name}, err)
	}

	base, err := o.build(ctx, dep, origins.Base)
	if err != nil {
		return deps.Errored(dep, err)
	}
	if base.Failed() {
		return deps.Broken(dep, base)
	}

	next, err := o.build(ctx, dep, origins.Next)
	if err != nil {
		return deps.Errored(dep, err)
	}
	if next.Failed() {
		return deps.Fail(dep, base, next)
	}
	return deps.Pass(dep, base, next)
}

func (o *Orchestrator) build(ctx context.Context, dep deps.Resolved, origin deps.Origin) (deps.Outcome, error) {
	if o.buildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.buildTimeout)
		defer cancel()
	}
	out, err := o.builder.Build(ctx, dep, origin)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return deps.Outcome{}, fmt.Errorf("build of %s against %s timed out after %s: %w", dep.Display(), origin, o.buildTimeout, err)
	}
	return out, err
}
