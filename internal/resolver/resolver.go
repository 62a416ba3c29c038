package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/langtools/lsp-resolver-cli/internal/config"
	"github.com/langtools/lsp-resolver-cli/internal/exitcodes"
	"github.com/langtools/lsp-resolver-cli/internal/fetch"
	"github.com/langtools/lsp-resolver-cli/internal/github"
	"github.com/langtools/lsp-resolver-cli/internal/platform"
)

// Status is a resolver lifecycle phase reported to the status sink.
type Status int

const (
	StatusCheckingForUpdate Status = iota
	StatusDownloading
)

func (s Status) String() string {
	switch s {
	case StatusCheckingForUpdate:
		return "checking for update"
	case StatusDownloading:
		return "downloading"
	}
	return "unknown"
}

// StatusSink receives lifecycle status notifications. Notifications are
// purely observational: they have no effect on control flow, and a sink
// that does nothing is valid.
type StatusSink interface {
	Notify(Status)
}

// StatusFunc adapts a plain function to a StatusSink.
type StatusFunc func(Status)

func (f StatusFunc) Notify(s Status) { f(s) }

// ReleaseFetcher abstracts release metadata lookup (see internal/github).
type ReleaseFetcher interface {
	LatestRelease(ctx context.Context, repo string, opts github.ReleaseOptions) (*github.Release, error)
	ReleaseByTag(ctx context.Context, repo, tag string) (*github.Release, error)
}

// AssetFetcher abstracts asset download and extraction (see internal/fetch).
type AssetFetcher interface {
	DownloadAndExtract(ctx context.Context, url, destDir string, kind platform.ArchiveKind, progress fetch.ProgressFunc) error
}

// Options allows injecting dependencies for testing.
type Options struct {
	Config   config.Config
	Releases ReleaseFetcher
	Assets   AssetFetcher
	Platform func() (platform.Target, error) // defaults to platform.Current
	Progress fetch.ProgressFunc              // optional download progress callback
}

// Resolver locates the managed tool's binary, installing it on first use.
// The resolved path is memoized for the lifetime of the Resolver; repeated
// calls return it without touching the network or the filesystem beyond a
// liveness probe.
type Resolver struct {
	mu         sync.Mutex
	cfg        config.Config
	releases   ReleaseFetcher
	assets     AssetFetcher
	platformFn func() (platform.Target, error)
	progress   fetch.ProgressFunc

	cachedBinaryPath string
	cachedVersion    string
}

// New builds a resolver with real GitHub and download clients.
func New(cfg config.Config) *Resolver {
	return NewWith(Options{Config: cfg})
}

// NewWith builds a resolver from explicit dependencies.
func NewWith(opts Options) *Resolver {
	r := &Resolver{
		cfg:        opts.Config,
		releases:   opts.Releases,
		assets:     opts.Assets,
		platformFn: opts.Platform,
		progress:   opts.Progress,
	}
	if r.releases == nil {
		r.releases = github.NewWith(nil, opts.Config.APIBase)
	}
	if r.assets == nil {
		r.assets = fetch.New()
	}
	if r.platformFn == nil {
		r.platformFn = platform.Current
	}
	return r
}

// Resolve returns the path to the tool's binary, downloading and unpacking
// the latest upstream release on first use. The mutex serializes concurrent
// callers; without it two callers could both install and one's cleanup
// could remove the directory the other is about to return.
func (r *Resolver) Resolve(ctx context.Context, sink StatusSink) (string, error) {
	return r.resolve(ctx, "", sink)
}

// ResolveTag behaves like Resolve but pins a specific release tag instead
// of the latest. A tag that differs from the memoized version bypasses the
// in-memory cache and resolves the pinned release.
func (r *Resolver) ResolveTag(ctx context.Context, tag string, sink StatusSink) (string, error) {
	return r.resolve(ctx, tag, sink)
}

func (r *Resolver) resolve(ctx context.Context, tag string, sink StatusSink) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cachedBinaryPath != "" && isRegularFile(r.cachedBinaryPath) &&
		(tag == "" || strings.TrimPrefix(tag, "v") == r.cachedVersion) {
		return r.cachedBinaryPath, nil
	}

	notify(sink, StatusCheckingForUpdate)

	var (
		release *github.Release
		err     error
	)
	if tag != "" {
		release, err = r.releases.ReleaseByTag(ctx, r.cfg.Repo, tag)
	} else {
		release, err = r.releases.LatestRelease(ctx, r.cfg.Repo, github.ReleaseOptions{
			RequireAssets: true,
		})
	}
	if err != nil {
		return "", exitcodes.WrapError(exitcodes.NetworkError, "failed to fetch release metadata", err)
	}

	target, err := r.platformFn()
	if err != nil {
		return "", err
	}

	assetName := target.AssetName(r.cfg.ToolName)
	asset := release.FindAsset(assetName)
	if asset == nil {
		return "", fmt.Errorf("no asset found matching %q in release %s", assetName, release.TagName)
	}

	versionDirName := fmt.Sprintf("%s-%s", r.cfg.ToolName, release.Version())
	versionDir := filepath.Join(r.cfg.WorkDir, versionDirName)
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return "", exitcodes.WrapError(exitcodes.InstallError, fmt.Sprintf("failed to create directory '%s'", versionDir), err)
	}

	binaryPath := filepath.Join(versionDir, target.BinaryName(r.cfg.ToolName))

	// A previous process may already have installed this exact version.
	if !isRegularFile(binaryPath) {
		notify(sink, StatusDownloading)
		r.logf("downloading %s %s (%s)", r.cfg.ToolName, release.Version(), assetName)

		if err := r.assets.DownloadAndExtract(ctx, asset.BrowserDownloadURL, versionDir, target.ArchiveKind(), r.progress); err != nil {
			return "", exitcodes.WrapError(exitcodes.InstallError, "failed to download file", err)
		}

		if err := fetch.MakeExecutable(binaryPath); err != nil {
			return "", exitcodes.WrapError(exitcodes.InstallError, "failed to mark binary executable", err)
		}

		r.cleanStale(versionDirName)
		r.writeManifest(release.Version(), binaryPath)
		r.logf("installed %s %s at %s", r.cfg.ToolName, release.Version(), binaryPath)
	}

	r.cachedBinaryPath = binaryPath
	r.cachedVersion = release.Version()
	return binaryPath, nil
}

// cleanStale removes every entry in the working directory that is not the
// just-installed version directory. Removal is best-effort: stale entries
// left behind are a cosmetic issue, not a correctness one. Dot-prefixed
// entries are resolver-owned state (manifest, update-check cache, install
// log) and are kept.
func (r *Resolver) cleanStale(keep string) {
	entries, err := os.ReadDir(r.cfg.WorkDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if name == keep || name[0] == '.' {
			continue
		}
		_ = os.RemoveAll(filepath.Join(r.cfg.WorkDir, name))
	}
}

func notify(sink StatusSink, s Status) {
	if sink != nil {
		sink.Notify(s)
	}
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
