package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v81/github"

	"revdepcheck/internal/config"
	gh "revdepcheck/internal/github"
)

// defaultDiscoveryLimit caps open-ended discovery so a wildly popular module
// does not turn one run into thousands of builds. --max-deps overrides it.
const defaultDiscoveryLimit = 500

// Lister is the subset of the registry client used for dependent discovery.
type Lister interface {
	HasIndex() bool
	Dependents(ctx context.Context, modPath string) ([]string, error)
}

// DiscoverDependents produces the list of reverse dependents to test.
//
// An explicit --deps list always wins. Otherwise the configured discovery
// source is consulted: the dependents index when one is configured, or
// GitHub code search as a best-effort fallback.
func DiscoverDependents(ctx context.Context, cfg config.Discovery, index Lister, ghc *gh.Client, modPath string) ([]string, error) {
	if len(cfg.Deps) > 0 {
		return cfg.Deps, nil
	}

	source := cfg.Source
	if source == "auto" {
		if index != nil && index.HasIndex() {
			source = "index"
		} else {
			source = "github"
		}
	}

	switch source {
	case "index":
		if index == nil || !index.HasIndex() {
			return nil, errors.New("discovery source is index but no index endpoint is configured")
		}
		names, err := index.Dependents(ctx, modPath)
		if err != nil {
			return nil, fmt.Errorf("list dependents of %s: %w", modPath, err)
		}
		return names, nil
	case "github":
		if ghc == nil {
			return nil, errors.New("discovery source is github but no GitHub client is configured")
		}
		return searchGitHubDependents(ctx, cfg, ghc, modPath)
	default:
		return nil, fmt.Errorf("unknown discovery source %q", source)
	}
}

// searchGitHubDependents finds repositories whose go.mod mentions modPath.
// Code search is approximate: it surfaces candidates whose builds then
// confirm or refute the dependency, and it only sees modules hosted on
// github.com.
func searchGitHubDependents(ctx context.Context, cfg config.Discovery, ghc *gh.Client, modPath string) ([]string, error) {
	limit := defaultDiscoveryLimit
	if cfg.MaxDeps > 0 && cfg.MaxDeps < limit {
		limit = cfg.MaxDeps
	}

	query := fmt.Sprintf("%q filename:go.mod", modPath)
	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	seen := make(map[string]bool)
	var names []string
	for {
		result, resp, err := ghc.Client.Search.Code(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("search dependents of %s: %w", modPath, err)
		}
		for _, match := range result.CodeResults {
			repo := match.GetRepository()
			if repo == nil {
				continue
			}
			name := "github.com/" + repo.GetFullName()
			if name == modPath || strings.HasPrefix(modPath+"/", name+"/") {
				continue
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
			if len(names) >= limit {
				return names, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}
