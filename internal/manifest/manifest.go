// Package manifest locates and reads the go.mod manifest of the module under
// test.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/mod/modfile"
)

// EnvManifest overrides the manifest location when no --manifest flag is
// given.
const EnvManifest = "REVDEPCHECK_MANIFEST"

// Locate returns the manifest path to use: the explicit flag value, then the
// REVDEPCHECK_MANIFEST environment variable, then ./go.mod.
func Locate(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(EnvManifest)); p != "" {
		return p
	}
	return "go.mod"
}

// ModulePath parses the manifest at path and returns the declared module
// path.
func ModulePath(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read manifest: %w", err)
	}
	f, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return "", fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if f.Module == nil || f.Module.Mod.Path == "" {
		return "", fmt.Errorf("manifest %s does not declare a module path", path)
	}
	return f.Module.Mod.Path, nil
}
