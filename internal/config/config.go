package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/mod/module"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect
	// check behavior, keep the CLI flags in internal/cli/check.go in sync.
	Target    Target
	Discovery Discovery
	Output    Output
	Runtime   Runtime
}

type Target struct {
	// Manifest is the path to the go.mod of the module under test (see
	// --manifest). Falls back to the REVDEPCHECK_MANIFEST environment
	// variable, then ./go.mod.
	Manifest string

	// Module overrides the module path declared in the manifest (see
	// --module).
	Module string

	// Source is the candidate source tree tested as the "next" origin (see
	// --source). Defaults to the manifest's directory.
	Source string

	// BaseSource optionally overrides the "base" origin with a local source
	// tree instead of the published release (see --base-source).
	BaseSource string
}

type Discovery struct {
	// Deps is an explicit list of reverse dependent module paths (see
	// --deps). When set, no discovery is performed.
	Deps []string

	// Source selects how reverse dependents are discovered (see --discover).
	// Allowed values: auto, index, github.
	Source string

	// Index is the base URL of a dependents index service (see --index).
	Index string

	// Proxy is the base URL of the Go module proxy used for version
	// resolution (see --proxy).
	Proxy string

	// Include filters dependents by module path using Go path.Match style
	// (see --include). A pattern without '/' also matches the last path
	// element.
	Include []string

	// Exclude filters dependents out; same matching rules as Include.
	Exclude []string

	// MaxDeps limits how many dependents are tested (see --max-deps).
	// 0 means unlimited.
	MaxDeps int

	// DryRun resolves the dependent set and prints it without testing (see
	// --dry-run).
	DryRun bool
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see
	// --console-format). Allowed values: text, json, ndjson.
	ConsoleFormat string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format). Allowed
	// values: json, ndjson. If empty, it is inferred from the --out file
	// extension.
	OutFormat string

	// Emit writes an additional structured event stream to stdout (see
	// --emit). Allowed values: json, ndjson.
	Emit []string

	// Report writes a Markdown report to this path (see --report).
	Report string

	// NoConsole suppresses the console sink (see --no-console). Use with
	// --emit/--out/--report for machine-readable output.
	NoConsole bool
}

type Runtime struct {
	// Concurrency controls how many dependents are tested in parallel (see
	// --concurrency). Must be >= 1.
	Concurrency int

	// Timeout is the global deadline for the whole run (see --timeout).
	// Must be > 0.
	Timeout time.Duration

	// BuildTimeout bounds each individual build attempt (see
	// --build-timeout). Must be > 0.
	BuildTimeout time.Duration

	// Verbose enables detailed diagnostics (prints every registry and
	// GitHub HTTP call).
	Verbose bool
}

func New() *Config {
	return &Config{
		Discovery: Discovery{
			Source: "auto",
			Proxy:  "https://proxy.golang.org",
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency:  runtime.NumCPU(),
			Timeout:      30 * time.Minute,
			BuildTimeout: 10 * time.Minute,
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Discovery.Deps = splitCommaList(c.Discovery.Deps)
	c.Discovery.Include = splitCommaList(c.Discovery.Include)
	c.Discovery.Exclude = splitCommaList(c.Discovery.Exclude)
	c.Output.Emit = splitCommaList(c.Output.Emit)

	// Target validation
	if c.Target.Module != "" {
		if err := module.CheckPath(c.Target.Module); err != nil {
			return fmt.Errorf("invalid --module value: %w", err)
		}
	}

	// Discovery validation
	for _, dep := range c.Discovery.Deps {
		if err := module.CheckPath(dep); err != nil {
			return fmt.Errorf("invalid --deps entry %q: %w", dep, err)
		}
	}

	c.Discovery.Source = normalizeEnumValue(c.Discovery.Source)
	if c.Discovery.Source == "" {
		c.Discovery.Source = "auto"
	}
	switch c.Discovery.Source {
	case "auto", "index", "github":
	default:
		return fmt.Errorf("unsupported --discover: %s (must be one of: auto, index, github)", c.Discovery.Source)
	}
	if c.Discovery.Source == "index" && c.Discovery.Index == "" {
		return errors.New("--discover index requires --index")
	}
	if strings.TrimSpace(c.Discovery.Proxy) == "" {
		return errors.New("--proxy must not be empty")
	}
	if c.Discovery.MaxDeps < 0 {
		return errors.New("--max-deps must be >= 0")
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		c.Output.ConsoleFormat = "text"
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for _, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", emit)
		}
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Runtime.BuildTimeout <= 0 {
		return errors.New("--build-timeout must be > 0")
	}

	return nil
}

// UsesGitHubDiscovery reports whether the run will need a GitHub client to
// enumerate reverse dependents.
func (c *Config) UsesGitHubDiscovery() bool {
	if len(c.Discovery.Deps) > 0 {
		return false
	}
	switch c.Discovery.Source {
	case "github":
		return true
	case "index":
		return false
	default:
		// auto: index wins when configured, otherwise GitHub code search.
		return c.Discovery.Index == ""
	}
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
