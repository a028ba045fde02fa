package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/mod/module"
)

// Latest resolves the current published version of a module via the module
// proxy protocol (GET {proxy}/{escaped}/@latest).
//
// Concurrent lookups for the same module are deduplicated; many dependents
// of the same module resolve at once during a run.
func (c *Client) Latest(ctx context.Context, modPath string) (string, error) {
	esc, err := module.EscapePath(modPath)
	if err != nil {
		return "", fmt.Errorf("registry: invalid module path %q: %w", modPath, err)
	}
	url := c.proxyURL + "/" + esc + "/@latest"

	v, err, _ := c.group.Do("latest:"+modPath, func() (interface{}, error) {
		var payload struct {
			Version string `json:"Version"`
		}
		if err := c.getJSON(ctx, url, &payload); err != nil {
			return nil, err
		}
		if payload.Version == "" {
			return nil, &DecodeError{URL: url, Err: errors.New("missing Version in @latest response")}
		}
		return payload.Version, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Versions lists the known versions of a module (GET {proxy}/{escaped}/@v/list).
// The proxy answers one version per line; the list may be empty for modules
// that only have pseudo-versions.
func (c *Client) Versions(ctx context.Context, modPath string) ([]string, error) {
	esc, err := module.EscapePath(modPath)
	if err != nil {
		return nil, fmt.Errorf("registry: invalid module path %q: %w", modPath, err)
	}
	body, err := c.get(ctx, c.proxyURL+"/"+esc+"/@v/list")
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(body)), nil
}

// Dependents lists the reverse dependents of a module as recorded by the
// dependents index (GET {index}/v1/module/{escaped}/dependents).
//
// The index may report the same dependent more than once; callers are
// expected to tolerate duplicates.
func (c *Client) Dependents(ctx context.Context, modPath string) ([]string, error) {
	if c.indexURL == "" {
		return nil, errors.New("registry: no dependents index configured")
	}
	esc, err := module.EscapePath(modPath)
	if err != nil {
		return nil, fmt.Errorf("registry: invalid module path %q: %w", modPath, err)
	}
	url := c.indexURL + "/v1/module/" + esc + "/dependents"

	var payload struct {
		Dependents []struct {
			Path string `json:"path"`
		} `json:"dependents"`
	}
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(payload.Dependents))
	for _, d := range payload.Dependents {
		if d.Path == "" {
			continue
		}
		out = append(out, d.Path)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: build request for %s: %w", url, err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ProtocolError{URL: url, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", url, err)
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &DecodeError{URL: url, Err: err}
	}
	return nil
}
