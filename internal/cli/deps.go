package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"revdepcheck/internal/engine"
	"revdepcheck/internal/flags"
	"revdepcheck/internal/manifest"
)

var depsQuiet bool

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "List the discovered reverse dependents of the module under test",
	Long: `List the reverse dependents that a check run would test, one module path
per line, without building anything.

Discovery follows the same rules as the check command: --deps wins when given,
then the dependents index (--index), then GitHub code search.`,
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

		manifestPath := manifest.Locate(cfg.Target.Manifest)
		modulePath := cfg.Target.Module
		if modulePath == "" {
			modulePath, err = manifest.ModulePath(manifestPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(2)
			}
		}

		names, err := engine.DiscoverDependents(ctx, cfg.Discovery, reg, ghc, modulePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		names = engine.FilterDependents(names, cfg.Discovery)

		out := cmd.OutOrStdout()
		if !depsQuiet {
			header := color.New(color.Bold)
			header.Fprintf(out, "%d reverse dependents of %s\n", len(names), modulePath)
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
	},
}

func init() {
	rootCmd.AddCommand(depsCmd)

	depsCmd.Flags().BoolVar(&depsQuiet, "quiet", false, "Print only module paths, one per line")

	// Discovery works from the same config as the check command.
	depsCmd.Flags().StringVar(&cfg.Target.Manifest, flags.FlagManifest, "", "Path to the go.mod of the module under test (default: $REVDEPCHECK_MANIFEST, then ./go.mod)")
	depsCmd.Flags().StringVar(&cfg.Target.Module, flags.FlagModule, "", "Module path under test (default: declared by the manifest)")
	depsCmd.Flags().StringSliceVar(&cfg.Discovery.Deps, flags.FlagDeps, nil, "Reverse dependent module path(s) (repeatable; comma-separated accepted). Skips discovery")
	depsCmd.Flags().StringVar(&cfg.Discovery.Source, flags.FlagDiscover, "auto", "Discovery source: auto|index|github (default: auto)")
	depsCmd.Flags().StringVar(&cfg.Discovery.Index, flags.FlagIndex, "", "Base URL of a dependents index service")
	depsCmd.Flags().StringVar(&cfg.Discovery.Proxy, flags.FlagProxy, cfg.Discovery.Proxy, "Base URL of the Go module proxy used for version resolution")
	depsCmd.Flags().StringSliceVar(&cfg.Discovery.Include, flags.FlagInclude, nil, "Include pattern(s) (repeatable; comma-separated accepted)")
	depsCmd.Flags().StringSliceVar(&cfg.Discovery.Exclude, flags.FlagExclude, nil, "Exclude pattern(s) (repeatable; comma-separated accepted)")
	depsCmd.Flags().IntVar(&cfg.Discovery.MaxDeps, flags.FlagMaxDeps, 0, "Maximum number of dependents to list (0 = unlimited)")
}
