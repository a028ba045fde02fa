package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "revdepcheck",
	Short: "Test the reverse dependents of a Go module against a candidate change",
	Long: `Revdepcheck builds every known reverse dependent of a Go module twice: once
against the published release (base) and once against a local candidate source
tree (next). A dependent that builds against base but not next is a regression
caused by the candidate change.

Examples:
	# Show available commands and global flags
	revdepcheck --help

	# Check the module in the current directory against its published release
	revdepcheck check --deps github.com/acme/consumer

	# List discovered reverse dependents
	revdepcheck deps

	# Print build info
	revdepcheck version

Output:
	By default, commands write human-readable output to stdout.
	The check command supports structured output via emitter flags (see its --help).`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, "verbose", false, "Enable verbose logging (prints every registry and GitHub API call)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
