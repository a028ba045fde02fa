package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"revdepcheck/internal/deps"
)

// VersionResolver turns a bare dependent module path into a fully qualified,
// testable identity.
type VersionResolver struct {
	Registry Registry
}

// Resolve binds name to its current published version. On failure the caller
// keeps a displayable identity by falling back to a Resolved with no
// version.
func (r VersionResolver) Resolve(ctx context.Context, name string) (deps.Resolved, error) {
	if r.Registry == nil {
		return deps.Resolved{}, errors.New("version resolver: registry is nil")
	}
	if strings.TrimSpace(name) == "" {
		return deps.Resolved{}, errors.New("version resolver: empty dependent name")
	}

	version, err := r.Registry.Latest(ctx, name)
	if err != nil {
		return deps.Resolved{}, fmt.Errorf("resolve %s: %w", name, err)
	}
	if !semver.IsValid(version) {
		return deps.Resolved{}, fmt.Errorf("resolve %s: registry returned invalid version %q", name, version)
	}
	return deps.Resolved{Path: name, Version: version}, nil
}
