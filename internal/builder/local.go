// Package builder runs isolated build attempts of a reverse dependent
// against a chosen origin of the module under test.
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"

	"revdepcheck/internal/deps"
)

const workspaceModule = "revdepcheck.invalid/workspace"

// Local builds dependents with the local go toolchain. Each build gets a
// fresh throwaway workspace: a synthesized go.mod that requires the dependent
// at its resolved version, plus a replace directive when the origin is a
// source override.
type Local struct {
	// Module is the module path whose origin is overridden.
	Module string
	// GoTool is the go toolchain binary. Defaults to "go".
	GoTool string

	// runCommand is a test seam for toolchain invocation. exitFailure is
	// true when the command ran and exited non-zero.
	runCommand func(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, exitFailure bool, err error)
}

func NewLocal(modulePath string) (*Local, error) {
	if strings.TrimSpace(modulePath) == "" {
		return nil, errors.New("builder: module path is required")
	}
	l := &Local{Module: modulePath, GoTool: "go"}
	l.runCommand = execCommand
	return l, nil
}

// Build runs one isolated build of dep against the given origin override.
//
// A failing compile is a normal outcome with Succeeded=false; only
// infrastructure faults (workspace creation, toolchain invocation itself)
// are returned as errors. Nothing from another job's workspace is visible
// here; every call starts from an empty directory.
func (l *Local) Build(ctx context.Context, dep deps.Resolved, origin deps.Origin) (deps.Outcome, error) {
	if l.runCommand == nil {
		return deps.Outcome{}, errors.New("builder: not initialized (use NewLocal)")
	}
	if dep.Path == "" {
		return deps.Outcome{}, errors.New("builder: dependent path is required")
	}
	if dep.Version == "" {
		return deps.Outcome{}, fmt.Errorf("builder: %s has no resolved version", dep.Path)
	}

	dir, err := os.MkdirTemp("", "revdepcheck-*")
	if err != nil {
		return deps.Outcome{}, fmt.Errorf("builder: create workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := l.writeWorkspace(dir, dep, origin); err != nil {
		return deps.Outcome{}, err
	}

	// go get resolves the dependency graph with the override applied; a
	// resolution failure against the override is a build failure, not an
	// infrastructure fault.
	steps := [][]string{
		{"get", dep.Path + "@" + dep.Version},
		{"build", dep.Path + "/..."},
	}

	var stdout, stderr strings.Builder
	for _, args := range steps {
		out, errOut, failed, err := l.runCommand(ctx, dir, l.goTool(), args...)
		stdout.WriteString(out)
		stderr.WriteString(errOut)
		if err != nil {
			return deps.Outcome{}, err
		}
		if failed {
			return deps.Outcome{Stdout: stdout.String(), Stderr: stderr.String(), Succeeded: false}, nil
		}
	}
	return deps.Outcome{Stdout: stdout.String(), Stderr: stderr.String(), Succeeded: true}, nil
}

func (l *Local) goTool() string {
	if l.GoTool != "" {
		return l.GoTool
	}
	return "go"
}

func (l *Local) writeWorkspace(dir string, dep deps.Resolved, origin deps.Origin) error {
	var f modfile.File
	if err := f.AddModuleStmt(workspaceModule); err != nil {
		return fmt.Errorf("builder: synthesize go.mod: %w", err)
	}
	if err := f.AddGoStmt("1.21"); err != nil {
		return fmt.Errorf("builder: synthesize go.mod: %w", err)
	}
	if err := f.AddRequire(dep.Path, dep.Version); err != nil {
		return fmt.Errorf("builder: synthesize go.mod: %w", err)
	}
	if path, ok := origin.SourcePath(); ok {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("builder: resolve source override %s: %w", path, err)
		}
		if err := f.AddReplace(l.Module, "", abs, ""); err != nil {
			return fmt.Errorf("builder: synthesize go.mod: %w", err)
		}
	}
	data, err := f.Format()
	if err != nil {
		return fmt.Errorf("builder: format go.mod: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), data, 0o644); err != nil {
		return fmt.Errorf("builder: write go.mod: %w", err)
	}
	return nil
}

func execCommand(ctx context.Context, dir, name string, args ...string) (string, string, bool, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	// Keep builds hermetic: no go.work files or ambient GOFLAGS from the
	// invoking environment.
	env := os.Environ()
	filtered := env[:0]
	for _, entry := range env {
		if strings.HasPrefix(entry, "GOWORK=") || strings.HasPrefix(entry, "GOFLAGS=") {
			continue
		}
		filtered = append(filtered, entry)
	}
	cmd.Env = append(filtered, "GOWORK=off", "GOFLAGS=-mod=mod")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return stdout.String(), stderr.String(), false, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), true, nil
		}
		return stdout.String(), stderr.String(), false, fmt.Errorf("builder: run %s: %w", name, err)
	}
	return stdout.String(), stderr.String(), false, nil
}
