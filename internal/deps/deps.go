// Package deps defines the data model shared by discovery, building and
// reporting: build origins, dependent identities and per-dependent verdicts.
package deps

import "fmt"

// Origin identifies where the module under test is sourced from during a
// build: the published release, or a local source tree override.
//
// Origins are immutable once constructed. One value per side (base, next) is
// shared read-only by every job in a run.
type Origin struct {
	path string
}

// Published returns the origin that uses the registry's current release as-is.
func Published() Origin { return Origin{} }

// SourceOverride returns an origin that replaces the module under test with
// the source tree rooted at path.
func SourceOverride(path string) Origin { return Origin{path: path} }

// SourcePath returns the override path and true when the origin is a source
// override.
func (o Origin) SourcePath() (string, bool) { return o.path, o.path != "" }

func (o Origin) String() string {
	if o.path == "" {
		return "published"
	}
	return "source:" + o.path
}

// OriginSet is the pair of origins under test for a whole run.
type OriginSet struct {
	Base Origin
	Next Origin
}

// Resolved is a reverse dependent bound to a concrete version. Version is
// empty when resolution failed; the dependent keeps a displayable identity
// either way.
type Resolved struct {
	Path    string `json:"path"`
	Version string `json:"version,omitempty"`
}

func (r Resolved) Display() string {
	if r.Version == "" {
		return r.Path + "@unknown"
	}
	return fmt.Sprintf("%s@%s", r.Path, r.Version)
}

// Outcome is the captured result of one isolated build attempt against one
// origin. It is owned by the job that produced it and never mutated after
// creation.
type Outcome struct {
	Stdout    string `json:"stdout,omitempty"`
	Stderr    string `json:"stderr,omitempty"`
	Succeeded bool   `json:"succeeded"`
}

func (o Outcome) Failed() bool { return !o.Succeeded }
