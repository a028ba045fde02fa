package engine

import (
	"path"
	"strings"

	"revdepcheck/internal/config"
)

// FilterDependents applies the configured include/exclude patterns and the
// dependent cap to a discovered list, preserving order.
//
// Patterns use path.Match syntax. A pattern without a slash also matches the
// last path element, so "go-*" matches "github.com/acme/go-widgets".
func FilterDependents(names []string, cfg config.Discovery) []string {
	filtered := make([]string, 0, len(names))
	for _, name := range names {
		if len(cfg.Include) > 0 && !matchAny(cfg.Include, name) {
			continue
		}
		if matchAny(cfg.Exclude, name) {
			continue
		}
		filtered = append(filtered, name)
	}
	if cfg.MaxDeps > 0 && len(filtered) > cfg.MaxDeps {
		filtered = filtered[:cfg.MaxDeps]
	}
	return filtered
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, err := path.Match(pattern, path.Base(name)); err == nil && ok {
				return true
			}
		}
	}
	return false
}
