package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/langtools/lsp-resolver-cli/internal/config"
	"github.com/langtools/lsp-resolver-cli/internal/exitcodes"
	"github.com/langtools/lsp-resolver-cli/internal/fetch"
	"github.com/langtools/lsp-resolver-cli/internal/github"
	"github.com/langtools/lsp-resolver-cli/internal/platform"
)

// fakeReleases serves canned release metadata and counts lookups.
type fakeReleases struct {
	latest  *github.Release
	byTag   map[string]*github.Release
	err     error
	latestN int
	byTagN  int
}

func (f *fakeReleases) LatestRelease(ctx context.Context, repo string, opts github.ReleaseOptions) (*github.Release, error) {
	f.latestN++
	if f.err != nil {
		return nil, f.err
	}
	if !opts.RequireAssets {
		return nil, fmt.Errorf("resolver must require assets")
	}
	return f.latest, nil
}

func (f *fakeReleases) ReleaseByTag(ctx context.Context, repo, tag string) (*github.Release, error) {
	f.byTagN++
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.byTag[tag]
	if !ok {
		return nil, fmt.Errorf("release %s not found", tag)
	}
	return r, nil
}

// fakeAssets "extracts" canned files into the destination directory.
type fakeAssets struct {
	files map[string]string
	err   error
	calls int
}

func (f *fakeAssets) DownloadAndExtract(ctx context.Context, url, destDir string, kind platform.ArchiveKind, progress fetch.ProgressFunc) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	for name, content := range f.files {
		path := filepath.Join(destDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// sinkRecorder captures status notifications in order.
type sinkRecorder struct {
	statuses []Status
}

func (s *sinkRecorder) Notify(st Status) { s.statuses = append(s.statuses, st) }

func linuxAmd64() (platform.Target, error) {
	return platform.Target{OS: platform.Linux, Arch: platform.X8664}, nil
}

func releaseV(version string) *github.Release {
	return &github.Release{
		TagName: "v" + version,
		Assets: []github.Asset{
			{
				Name:               "crates-lsp-x86_64-unknown-linux-gnu.tar.gz",
				BrowserDownloadURL: "https://example.com/crates-lsp.tar.gz",
				Size:               1024,
			},
		},
	}
}

func newTestResolver(t *testing.T, workDir string, rel *fakeReleases, assets *fakeAssets) *Resolver {
	t.Helper()
	return NewWith(Options{
		Config: config.Config{
			WorkDir:  workDir,
			ToolName: "crates-lsp",
			Repo:     "MathiasPius/crates-lsp",
		},
		Releases: rel,
		Assets:   assets,
		Platform: linuxAmd64,
	})
}

func TestResolveInstallsAndReturnsPath(t *testing.T) {
	workDir := t.TempDir()
	rel := &fakeReleases{latest: releaseV("1.0.0")}
	assets := &fakeAssets{files: map[string]string{"crates-lsp": "bin-v1"}}
	r := newTestResolver(t, workDir, rel, assets)

	sink := &sinkRecorder{}
	path, err := r.Resolve(context.Background(), sink)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := filepath.Join(workDir, "crates-lsp-1.0.0", "crates-lsp")
	if path != want {
		t.Errorf("Resolve() = %q, want %q", path, want)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("resolved path missing: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Errorf("binary mode = %o, want executable", info.Mode().Perm())
	}
	if got := sink.statuses; len(got) != 2 || got[0] != StatusCheckingForUpdate || got[1] != StatusDownloading {
		t.Errorf("statuses = %v, want [checking, downloading]", got)
	}
}

func TestResolveIdempotence(t *testing.T) {
	workDir := t.TempDir()
	rel := &fakeReleases{latest: releaseV("1.0.0")}
	assets := &fakeAssets{files: map[string]string{"crates-lsp": "bin-v1"}}
	r := newTestResolver(t, workDir, rel, assets)

	first, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}

	sink := &sinkRecorder{}
	second, err := r.Resolve(context.Background(), sink)
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}

	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}
	if rel.latestN != 1 {
		t.Errorf("release lookups = %d, want 1 (second call must hit the memory cache)", rel.latestN)
	}
	if assets.calls != 1 {
		t.Errorf("downloads = %d, want 1", assets.calls)
	}
	if len(sink.statuses) != 0 {
		t.Errorf("fast path must not notify the sink, got %v", sink.statuses)
	}
}

func TestResolveCacheLiveness(t *testing.T) {
	workDir := t.TempDir()
	rel := &fakeReleases{latest: releaseV("1.0.0")}
	assets := &fakeAssets{files: map[string]string{"crates-lsp": "bin-v1"}}
	r := newTestResolver(t, workDir, rel, assets)

	path, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// Something external removed the cached binary.
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		t.Fatal(err)
	}

	again, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve() after external delete error = %v", err)
	}
	if rel.latestN != 2 || assets.calls != 2 {
		t.Errorf("lookups=%d downloads=%d, want 2/2 (dangling cache must re-fetch)", rel.latestN, assets.calls)
	}
	if _, err := os.Stat(again); err != nil {
		t.Errorf("returned path is dangling: %v", err)
	}
}

func TestResolveSkipsDownloadWhenVersionInstalled(t *testing.T) {
	workDir := t.TempDir()

	// A previous process installed this exact version.
	versionDir := filepath.Join(workDir, "crates-lsp-1.0.0")
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		t.Fatal(err)
	}
	binary := filepath.Join(versionDir, "crates-lsp")
	if err := os.WriteFile(binary, []byte("bin-v1"), 0o755); err != nil {
		t.Fatal(err)
	}

	rel := &fakeReleases{latest: releaseV("1.0.0")}
	assets := &fakeAssets{files: map[string]string{"crates-lsp": "bin-v1"}}
	r := newTestResolver(t, workDir, rel, assets)

	sink := &sinkRecorder{}
	path, err := r.Resolve(context.Background(), sink)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if path != binary {
		t.Errorf("Resolve() = %q, want %q", path, binary)
	}
	if assets.calls != 0 {
		t.Errorf("downloads = %d, want 0 (version already on disk)", assets.calls)
	}
	if len(sink.statuses) != 1 || sink.statuses[0] != StatusCheckingForUpdate {
		t.Errorf("statuses = %v, want [checking] only", sink.statuses)
	}
}

func TestResolveAssetMiss(t *testing.T) {
	workDir := t.TempDir()
	rel := &fakeReleases{latest: &github.Release{
		TagName: "v1.0.0",
		Assets:  []github.Asset{{Name: "crates-lsp-x86_64-apple-darwin.tar.gz"}},
	}}
	assets := &fakeAssets{}
	r := newTestResolver(t, workDir, rel, assets)

	_, err := r.Resolve(context.Background(), nil)
	if err == nil {
		t.Fatal("expected asset-not-found error")
	}
	want := `"crates-lsp-x86_64-unknown-linux-gnu.tar.gz"`
	if got := err.Error(); !strings.Contains(got, want) {
		t.Errorf("error %q must name the sought filename %s", got, want)
	}
	if assets.calls != 0 {
		t.Errorf("downloads = %d, want 0 on asset miss", assets.calls)
	}
}

func TestResolveReleaseFetchFailure(t *testing.T) {
	r := newTestResolver(t, t.TempDir(), &fakeReleases{err: fmt.Errorf("GitHub API error: 502 Bad Gateway")}, &fakeAssets{})

	_, err := r.Resolve(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("error = %v, want release fetch failure surfaced", err)
	}
	if code := exitcodes.CodeForError(err); code != exitcodes.NetworkError {
		t.Errorf("exit code = %d, want %d (network)", code, exitcodes.NetworkError)
	}
}

func TestResolveDownloadFailure(t *testing.T) {
	rel := &fakeReleases{latest: releaseV("1.0.0")}
	assets := &fakeAssets{err: fmt.Errorf("HTTP 500: Internal Server Error")}
	r := newTestResolver(t, t.TempDir(), rel, assets)

	_, err := r.Resolve(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "failed to download file") {
		t.Fatalf("error = %v, want download failure wrapped with context", err)
	}
	if code := exitcodes.CodeForError(err); code != exitcodes.InstallError {
		t.Errorf("exit code = %d, want %d (install)", code, exitcodes.InstallError)
	}
}

func TestResolveSingleVersionInvariant(t *testing.T) {
	workDir := t.TempDir()
	assets := &fakeAssets{files: map[string]string{"crates-lsp": "bin"}}

	r1 := newTestResolver(t, workDir, &fakeReleases{latest: releaseV("1.0.0")}, assets)
	if _, err := r1.Resolve(context.Background(), nil); err != nil {
		t.Fatalf("resolve v1: %v", err)
	}

	// A later invocation sees a newer upstream release.
	r2 := newTestResolver(t, workDir, &fakeReleases{latest: releaseV("2.0.0")}, assets)
	path, err := r2.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("resolve v2: %v", err)
	}

	installed, err := ListInstalled(workDir, "crates-lsp")
	if err != nil {
		t.Fatal(err)
	}
	if len(installed) != 1 {
		t.Fatalf("version dirs = %d, want exactly 1 after cleanup", len(installed))
	}
	if installed[0].Version != "2.0.0" {
		t.Errorf("surviving version = %s, want 2.0.0", installed[0].Version)
	}
	if installed[0].Binary != path {
		t.Errorf("surviving binary = %q, want %q", installed[0].Binary, path)
	}
	info, err := os.Stat(path)
	if err != nil || info.Mode().Perm()&0o111 == 0 {
		t.Errorf("surviving binary not executable: %v", err)
	}
}

func TestCleanupPreservesResolverState(t *testing.T) {
	workDir := t.TempDir()
	for _, name := range []string{manifestFileName, installLogFileName, ".update-check"} {
		if err := os.WriteFile(filepath.Join(workDir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(workDir, "crates-lsp-0.9.0"), 0o755); err != nil {
		t.Fatal(err)
	}

	rel := &fakeReleases{latest: releaseV("1.0.0")}
	assets := &fakeAssets{files: map[string]string{"crates-lsp": "bin"}}
	r := newTestResolver(t, workDir, rel, assets)
	if _, err := r.Resolve(context.Background(), nil); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(workDir, "crates-lsp-0.9.0")); !os.IsNotExist(err) {
		t.Error("stale version directory survived cleanup")
	}
	for _, name := range []string{manifestFileName, installLogFileName, ".update-check"} {
		if _, err := os.Stat(filepath.Join(workDir, name)); err != nil {
			t.Errorf("resolver state file %s removed by cleanup: %v", name, err)
		}
	}
}

func TestCleanupFailureDoesNotFailResolution(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission-based failure injection does not work as root")
	}

	workDir := t.TempDir()
	stale := filepath.Join(workDir, "stale-entry")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stale, "f"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Read+exec only: RemoveAll cannot unlink the child.
	if err := os.Chmod(stale, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(stale, 0o755) })

	rel := &fakeReleases{latest: releaseV("1.0.0")}
	assets := &fakeAssets{files: map[string]string{"crates-lsp": "bin"}}
	r := newTestResolver(t, workDir, rel, assets)

	path, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve() must succeed despite cleanup failure, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("returned path missing: %v", err)
	}
}

func TestResolveTag(t *testing.T) {
	workDir := t.TempDir()
	rel := &fakeReleases{byTag: map[string]*github.Release{"v0.5.0": releaseV("0.5.0")}}
	assets := &fakeAssets{files: map[string]string{"crates-lsp": "bin"}}
	r := newTestResolver(t, workDir, rel, assets)

	path, err := r.ResolveTag(context.Background(), "v0.5.0", nil)
	if err != nil {
		t.Fatalf("ResolveTag() error = %v", err)
	}
	if want := filepath.Join(workDir, "crates-lsp-0.5.0", "crates-lsp"); path != want {
		t.Errorf("ResolveTag() = %q, want %q", path, want)
	}
	if rel.byTagN != 1 || rel.latestN != 0 {
		t.Errorf("byTag=%d latest=%d, want 1/0", rel.byTagN, rel.latestN)
	}
}

func TestResolveTagBypassesMemo(t *testing.T) {
	workDir := t.TempDir()
	rel := &fakeReleases{
		latest: releaseV("2.0.0"),
		byTag:  map[string]*github.Release{"v1.0.0": releaseV("1.0.0")},
	}
	assets := &fakeAssets{files: map[string]string{"crates-lsp": "bin"}}
	r := newTestResolver(t, workDir, rel, assets)

	latest, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := filepath.Join(workDir, "crates-lsp-2.0.0", "crates-lsp"); latest != want {
		t.Fatalf("Resolve() = %q, want %q", latest, want)
	}

	// A pin that differs from the memoized version must resolve the tag,
	// not return the memoized latest-version path.
	pinned, err := r.ResolveTag(context.Background(), "v1.0.0", nil)
	if err != nil {
		t.Fatalf("ResolveTag() error = %v", err)
	}
	if want := filepath.Join(workDir, "crates-lsp-1.0.0", "crates-lsp"); pinned != want {
		t.Errorf("ResolveTag() = %q, want %q", pinned, want)
	}
	if rel.byTagN != 1 {
		t.Errorf("byTag lookups = %d, want 1", rel.byTagN)
	}

	// The same pin again hits the refreshed memo.
	again, err := r.ResolveTag(context.Background(), "v1.0.0", nil)
	if err != nil {
		t.Fatalf("second ResolveTag() error = %v", err)
	}
	if again != pinned {
		t.Errorf("paths differ: %q vs %q", again, pinned)
	}
	if rel.byTagN != 1 {
		t.Errorf("byTag lookups = %d, want 1 (memo must serve the repeated pin)", rel.byTagN)
	}
}

func TestResolveWritesManifest(t *testing.T) {
	workDir := t.TempDir()
	rel := &fakeReleases{latest: releaseV("1.0.0")}
	assets := &fakeAssets{files: map[string]string{"crates-lsp": "bin-v1"}}
	r := newTestResolver(t, workDir, rel, assets)

	path, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	m, err := LoadManifest(workDir)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if m.Tool != "crates-lsp" || m.Version != "1.0.0" || m.BinaryPath != path {
		t.Errorf("manifest = %+v", m)
	}
	ok, err := m.Verify()
	if err != nil || !ok {
		t.Errorf("Verify() = %v, %v; want true, nil", ok, err)
	}

	// Tampering is detected.
	if err := os.WriteFile(path, []byte("tampered"), 0o755); err != nil {
		t.Fatal(err)
	}
	ok, err = m.Verify()
	if err != nil || ok {
		t.Errorf("Verify() after tamper = %v, %v; want false, nil", ok, err)
	}
}

