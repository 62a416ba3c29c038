package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// DefaultAPIBase is the public GitHub REST endpoint.
	DefaultAPIBase = "https://api.github.com"

	userAgent   = "lsp-resolver"
	httpTimeout = 30 * time.Second

	// releasesPageSize bounds the single listing request used to find the
	// latest qualifying release.
	releasesPageSize = 30
)

// HTTPDoer matches http.Client's Do.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client queries the GitHub releases API for a repository.
type Client struct {
	http    HTTPDoer
	apiBase string
}

// New builds a client with a real HTTP client against the public API.
func New() *Client {
	return NewWith(nil, "")
}

// NewWith allows injecting the HTTP client and API base for testing.
func NewWith(h HTTPDoer, apiBase string) *Client {
	if h == nil {
		h = &http.Client{Timeout: httpTimeout}
	}
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{http: h, apiBase: strings.TrimRight(apiBase, "/")}
}

// LatestRelease returns the newest release of repo ("owner/name") that
// satisfies opts. Releases are scanned in the order GitHub returns them
// (newest first); drafts never qualify. An empty result is an error: there
// is no fallback to a previous resolution.
func (c *Client) LatestRelease(ctx context.Context, repo string, opts ReleaseOptions) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases?per_page=%d", c.apiBase, repo, releasesPageSize)

	var releases []Release
	if err := c.getJSON(ctx, url, &releases); err != nil {
		return nil, fmt.Errorf("failed to fetch releases for %s: %w", repo, err)
	}

	for i := range releases {
		r := &releases[i]
		if r.Draft {
			continue
		}
		if r.Prerelease && !opts.IncludePrerelease {
			continue
		}
		if opts.RequireAssets && len(r.Assets) == 0 {
			continue
		}
		return r, nil
	}

	return nil, fmt.Errorf("no qualifying release found for %s", repo)
}

// ReleaseByTag returns a specific release by tag.
func (c *Client) ReleaseByTag(ctx context.Context, repo, tag string) (*Release, error) {
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}
	url := fmt.Sprintf("%s/repos/%s/releases/tags/%s", c.apiBase, repo, tag)

	var release Release
	if err := c.getJSON(ctx, url, &release); err != nil {
		return nil, fmt.Errorf("failed to fetch release %s of %s: %w", tag, repo, err)
	}
	return &release, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("not found")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GitHub API error: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// IsNewerVersion returns true if latest is newer than current.
func IsNewerVersion(current, latest string) bool {
	if !strings.HasPrefix(current, "v") {
		current = "v" + current
	}
	if !strings.HasPrefix(latest, "v") {
		latest = "v" + latest
	}

	// "dev" and "unknown" builds always update
	if !semver.IsValid(current) {
		return true
	}
	if !semver.IsValid(latest) {
		return false
	}

	return semver.Compare(latest, current) > 0
}
