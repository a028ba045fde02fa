package cli

import (
	"bytes"
	"strings"
	"testing"

	"revdepcheck/internal/flags"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"check": false, "deps": false, "version": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestCheckFlagsRegistered(t *testing.T) {
	names := []string{
		flags.FlagManifest, flags.FlagModule, flags.FlagSource, flags.FlagBaseSource,
		flags.FlagDeps, flags.FlagDiscover, flags.FlagIndex, flags.FlagProxy,
		flags.FlagInclude, flags.FlagExclude, flags.FlagMaxDeps, flags.FlagDryRun,
		flags.FlagConsoleFormat, flags.FlagOut, flags.FlagOutFormat, flags.FlagEmit,
		flags.FlagReport, flags.FlagNoConsole,
		flags.FlagConcurrency, flags.FlagTimeout, flags.FlagBuildTimeout,
	}
	for _, name := range names {
		if checkCmd.Flags().Lookup(name) == nil {
			t.Errorf("check flag --%s not registered", name)
		}
	}
}

func TestCheckHelpDocumentsExitCodes(t *testing.T) {
	var buf bytes.Buffer
	checkCmd.SetOut(&buf)
	defer checkCmd.SetOut(nil)

	if err := checkCmd.Help(); err != nil {
		t.Fatalf("Help(): %v", err)
	}

	help := buf.String()
	for _, want := range []string{
		"Exit codes:",
		"0 = no regressions",
		"1 = at least one reverse dependent regressed",
		"2 = fatal error",
		"REVDEPCHECK_MANIFEST",
		"GITHUB_TOKEN",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("check help missing %q", want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	SetBuildInfo("1.2.3", "abc123", "2026-08-27")
	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	if !strings.Contains(out, "revdepcheck 1.2.3") || !strings.Contains(out, "abc123") {
		t.Errorf("version output = %q", out)
	}
}
