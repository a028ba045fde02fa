package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"revdepcheck/internal/config"
	"revdepcheck/internal/engine"
	"revdepcheck/internal/flags"
	gh "revdepcheck/internal/github"
	"revdepcheck/internal/registry"
)

var cfg = config.New()

// EnvIndexToken carries the bearer token for a private dependents index.
const EnvIndexToken = "REVDEPCHECK_INDEX_TOKEN"

const checkHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	REVDEPCHECK_MANIFEST
		Path to the go.mod of the module under test. Used when --manifest is
		not given; falls back to ./go.mod.

	REVDEPCHECK_INDEX_TOKEN
		Bearer token for a private dependents index (--index).

	GITHUB_TOKEN
		GitHub access token for code-search discovery. When unset, revdepcheck
		tries GitHub CLI authentication (gh auth token); unauthenticated search
		works at a much lower rate limit.

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Build every reverse dependent against the base and candidate origins",
	Long: `Build every reverse dependent of the module under test twice and classify
each one:

	PASS    builds against both the base release and the candidate change
	FAIL    builds against base but not against the candidate: a regression
	BROKEN  already fails against base; not attributable to the candidate
	ERROR   the check itself could not complete for this dependent

Discovery:
	Reverse dependents come from --deps when given. Otherwise revdepcheck
	queries a dependents index (--index) when one is configured, or falls back
	to GitHub code search for go.mod files that require the module.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report: write a Markdown report to a file
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events
	with a "type" field (run.started, dependent.result, run.finished).

Exit codes:
	0 = no regressions (BROKEN and ERROR do not fail the run)
	1 = at least one reverse dependent regressed
	2 = fatal error (the check did not complete)

Examples:
	# Test the module in the current directory against an explicit dependent list
	revdepcheck check --deps github.com/acme/consumer,github.com/acme/widgets

	# Discover dependents from an index service
	revdepcheck check --index https://deps.internal.example.com

	# AI agent: stream machine-readable events to stdout
	revdepcheck check --no-console --emit ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}

		ctx := context.Background()

		reg, ghc, err := buildClients(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}

		eng := engine.NewEngine(reg, ghc)
		os.Exit(eng.Run(ctx, cfg))
	},
}

// buildClients constructs the registry client and, when discovery needs it,
// the GitHub client.
func buildClients(ctx context.Context, cfg *config.Config) (*registry.Client, *gh.Client, error) {
	regOpts := []registry.Option{
		registry.WithVerbose(cfg.Runtime.Verbose, nil),
	}
	if token := strings.TrimSpace(os.Getenv(EnvIndexToken)); token != "" {
		regOpts = append(regOpts, registry.WithToken(token))
	}
	reg, err := registry.NewClient(cfg.Discovery.Proxy, cfg.Discovery.Index, regOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create registry client: %w", err)
	}

	var ghc *gh.Client
	if cfg.UsesGitHubDiscovery() {
		token, err := gh.ResolveAuthToken(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve GitHub auth token: %w", err)
		}
		ghc, err = gh.NewClient(ctx, token, gh.WithVerbose(cfg.Runtime.Verbose, nil))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
	}
	return reg, ghc, nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.SetHelpTemplate(checkHelpTemplate)

	// MAINTAINER NOTE: If you add/change/remove any check-affecting flags here,
	// keep the config field docs in internal/config/config.go in sync.

	// Target
	checkCmd.Flags().StringVar(&cfg.Target.Manifest, flags.FlagManifest, "", "Path to the go.mod of the module under test (default: $REVDEPCHECK_MANIFEST, then ./go.mod)")
	checkCmd.Flags().StringVar(&cfg.Target.Module, flags.FlagModule, "", "Module path under test (default: declared by the manifest)")
	checkCmd.Flags().StringVar(&cfg.Target.Source, flags.FlagSource, "", "Candidate source tree tested as the next origin (default: the manifest's directory)")
	checkCmd.Flags().StringVar(&cfg.Target.BaseSource, flags.FlagBaseSource, "", "Test this source tree as the base origin instead of the published release")

	// Discovery
	checkCmd.Flags().StringSliceVar(&cfg.Discovery.Deps, flags.FlagDeps, nil, "Reverse dependent module path(s) to test (repeatable; comma-separated accepted). Skips discovery")
	checkCmd.Flags().StringVar(&cfg.Discovery.Source, flags.FlagDiscover, "auto", "Discovery source: auto|index|github (default: auto)")
	checkCmd.Flags().StringVar(&cfg.Discovery.Index, flags.FlagIndex, "", "Base URL of a dependents index service")
	checkCmd.Flags().StringVar(&cfg.Discovery.Proxy, flags.FlagProxy, cfg.Discovery.Proxy, "Base URL of the Go module proxy used for version resolution")
	checkCmd.Flags().StringSliceVar(&cfg.Discovery.Include, flags.FlagInclude, nil, "Include pattern(s) (repeatable; comma-separated accepted). Go path.Match style; a pattern without '/' also matches the last path element")
	checkCmd.Flags().StringSliceVar(&cfg.Discovery.Exclude, flags.FlagExclude, nil, "Exclude pattern(s) (repeatable; comma-separated accepted). Same matching rules as --include")
	checkCmd.Flags().IntVar(&cfg.Discovery.MaxDeps, flags.FlagMaxDeps, 0, "Maximum number of dependents to test (0 = unlimited)")
	checkCmd.Flags().BoolVar(&cfg.Discovery.DryRun, flags.FlagDryRun, false, "Resolve the dependent set and print it without testing")

	// Output
	checkCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson (default: text)")
	checkCmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	checkCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	checkCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	checkCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	checkCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report)")

	// Runtime
	checkCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Concurrent build jobs (default: number of CPUs)")
	checkCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout for the whole run (default: 30m)")
	checkCmd.Flags().DurationVar(&cfg.Runtime.BuildTimeout, flags.FlagBuildTimeout, cfg.Runtime.BuildTimeout, "Timeout for each individual build attempt (default: 10m)")
}
