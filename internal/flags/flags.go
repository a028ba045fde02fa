// Package flags defines canonical CLI flag names shared across the CLI and
// engine. Keeping these as constants avoids drift between Cobra flag wiring
// and other code paths that reference flags in messages or generated help.
// IMPORTANT: These are flag *names* without leading dashes.
package flags

const (
	// Target
	FlagManifest   = "manifest"
	FlagModule     = "module"
	FlagSource     = "source"
	FlagBaseSource = "base-source"

	// Discovery
	FlagDeps     = "deps"
	FlagDiscover = "discover"
	FlagIndex    = "index"
	FlagProxy    = "proxy"
	FlagInclude  = "include"
	FlagExclude  = "exclude"
	FlagMaxDeps  = "max-deps"
	FlagDryRun   = "dry-run"

	// Output
	FlagConsoleFormat = "console-format"
	FlagOut           = "out"
	FlagOutFormat     = "out-format"
	FlagEmit          = "emit"
	FlagReport        = "report"
	FlagNoConsole     = "no-console"

	// Runtime
	FlagConcurrency  = "concurrency"
	FlagTimeout      = "timeout"
	FlagBuildTimeout = "build-timeout"
)
