package update

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/langtools/lsp-resolver-cli/internal/github"
)

// mockDoer routes requests to canned responses by URL substring
type mockDoer struct {
	responses map[string]*http.Response
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	for key, resp := range m.responses {
		if strings.Contains(req.URL.String(), key) {
			return resp, nil
		}
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Status:     "404 Not Found",
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func textResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode:    code,
		Status:        fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

func platformAssetName() string {
	return fmt.Sprintf("lsp-resolver_%s_%s.tar.gz", runtime.GOOS, runtime.GOARCH)
}

func makeTarGz(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     0o755,
		Size:     int64(len(content)),
		Typeflag: tar.TypeReg,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestAssetForPlatform(t *testing.T) {
	release := &github.Release{
		TagName: "v1.2.0",
		Assets: []github.Asset{
			{Name: "checksums.txt"},
			{Name: platformAssetName(), BrowserDownloadURL: "https://example.com/archive"},
		},
	}

	asset, err := AssetForPlatform(release)
	if err != nil {
		t.Fatalf("AssetForPlatform() error = %v", err)
	}
	if asset.Name != platformAssetName() {
		t.Errorf("asset = %s, want %s", asset.Name, platformAssetName())
	}

	_, err = AssetForPlatform(&github.Release{TagName: "v1.2.0"})
	if err == nil {
		t.Error("expected error for release without platform asset")
	}
}

func TestChecksumAsset(t *testing.T) {
	release := &github.Release{
		TagName: "v1.2.0",
		Assets:  []github.Asset{{Name: "checksums.txt", BrowserDownloadURL: "https://example.com/sums"}},
	}
	asset, err := ChecksumAsset(release)
	if err != nil {
		t.Fatalf("ChecksumAsset() error = %v", err)
	}
	if asset.Name != "checksums.txt" {
		t.Errorf("asset = %s", asset.Name)
	}

	if _, err := ChecksumAsset(&github.Release{TagName: "v1.2.0"}); err == nil {
		t.Error("expected error when checksums.txt missing")
	}
}

func TestCheck(t *testing.T) {
	releasesJSON := fmt.Sprintf(`[{"tag_name":"v2.0.0","assets":[{"name":%q}]}]`, platformAssetName())
	doer := &mockDoer{responses: map[string]*http.Response{
		"/releases": textResponse(200, releasesJSON),
	}}
	client := github.NewWith(doer, "https://api.example.com")
	u := NewWith("v1.0.0", "/usr/local/bin/lsp-resolver", DefaultRepo, client, doer)

	result, err := u.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.CurrentVersion != "1.0.0" || result.LatestVersion != "2.0.0" {
		t.Errorf("versions = %s -> %s", result.CurrentVersion, result.LatestVersion)
	}
	if !result.UpdateAvailable {
		t.Error("UpdateAvailable = false, want true")
	}
}

func TestCheckUpToDate(t *testing.T) {
	doer := &mockDoer{responses: map[string]*http.Response{
		"/releases": textResponse(200, `[{"tag_name":"v1.0.0","assets":[{"name":"x"}]}]`),
	}}
	client := github.NewWith(doer, "https://api.example.com")
	u := NewWith("v1.0.0", "/usr/local/bin/lsp-resolver", DefaultRepo, client, doer)

	result, err := u.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.UpdateAvailable {
		t.Error("UpdateAvailable = true for equal versions")
	}
}

func TestDownload(t *testing.T) {
	payload := "archive-bytes"
	doer := &mockDoer{responses: map[string]*http.Response{
		"example.com/archive": textResponse(200, payload),
	}}
	u := NewWith("v1.0.0", "", DefaultRepo, github.NewWith(doer, ""), doer)

	var lastDownloaded, lastTotal int64
	data, err := u.Download(context.Background(), &github.Asset{
		BrowserDownloadURL: "https://example.com/archive",
	}, func(downloaded, total int64) {
		lastDownloaded, lastTotal = downloaded, total
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(data) != payload {
		t.Errorf("data = %q", data)
	}
	if lastDownloaded != int64(len(payload)) || lastTotal != int64(len(payload)) {
		t.Errorf("progress = %d/%d, want %d/%d", lastDownloaded, lastTotal, len(payload), len(payload))
	}
}

func TestDownloadHTTPError(t *testing.T) {
	doer := &mockDoer{responses: map[string]*http.Response{
		"example.com/archive": textResponse(503, "unavailable"),
	}}
	u := NewWith("v1.0.0", "", DefaultRepo, github.NewWith(doer, ""), doer)

	_, err := u.Download(context.Background(), &github.Asset{BrowserDownloadURL: "https://example.com/archive"}, nil)
	if err == nil || !strings.Contains(err.Error(), "download failed") {
		t.Fatalf("error = %v, want download failure", err)
	}
}

func TestVerifyChecksum(t *testing.T) {
	data := []byte("archive-bytes")
	sum := sha256.Sum256(data)
	good := hex.EncodeToString(sum[:])
	assetName := platformAssetName()

	release := &github.Release{
		TagName: "v1.2.0",
		Assets:  []github.Asset{{Name: "checksums.txt", BrowserDownloadURL: "https://example.com/sums"}},
	}

	tests := []struct {
		name      string
		checksums string
		wantErr   string
	}{
		{
			name:      "match",
			checksums: fmt.Sprintf("%s  %s\n", good, assetName),
		},
		{
			name:      "mismatch",
			checksums: fmt.Sprintf("%s  %s\n", strings.Repeat("0", 64), assetName),
			wantErr:   "checksum mismatch",
		},
		{
			name:      "entry missing",
			checksums: fmt.Sprintf("%s  other-file.tar.gz\n", good),
			wantErr:   "checksum not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &mockDoer{responses: map[string]*http.Response{
				"example.com/sums": textResponse(200, tt.checksums),
			}}
			u := NewWith("v1.0.0", "", DefaultRepo, github.NewWith(doer, ""), doer)

			err := u.VerifyChecksum(context.Background(), data, release, assetName)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("VerifyChecksum() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestExtractBinary(t *testing.T) {
	u := &Updater{}

	tests := []struct {
		name      string
		entryName string
		wantErr   bool
	}{
		{"top level", "lsp-resolver", false},
		{"nested", "dist/lsp-resolver", false},
		{"wrong name", "other-binary", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := makeTarGz(t, tt.entryName, []byte("binary-content"))
			data, err := u.ExtractBinary(archive)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected binary-not-found error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractBinary() error = %v", err)
			}
			if string(data) != "binary-content" {
				t.Errorf("data = %q", data)
			}
		})
	}
}

func TestInstallAndRollback(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "lsp-resolver")
	if err := os.WriteFile(binPath, []byte("old-binary"), 0o755); err != nil {
		t.Fatal(err)
	}

	u := &Updater{CurrentVersion: "v1.0.0", BinaryPath: binPath}

	if err := u.Install([]byte("new-binary")); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	got, err := os.ReadFile(binPath)
	if err != nil || string(got) != "new-binary" {
		t.Fatalf("installed content = %q, err = %v", got, err)
	}
	info, err := os.Stat(binPath)
	if err != nil || info.Mode().Perm()&0o111 == 0 {
		t.Errorf("installed binary not executable: %v", err)
	}

	if err := u.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	got, err = os.ReadFile(binPath)
	if err != nil || string(got) != "old-binary" {
		t.Fatalf("rolled-back content = %q, err = %v", got, err)
	}
}

func TestRollbackWithoutBackup(t *testing.T) {
	u := &Updater{BinaryPath: filepath.Join(t.TempDir(), "lsp-resolver")}
	if err := u.Rollback(); err == nil {
		t.Error("expected error when no backup exists")
	}
}

func TestCache(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadCache(dir); err == nil {
		t.Error("expected error loading missing cache")
	}

	entry := &CacheEntry{
		CheckedAt:       time.Now(),
		LatestVersion:   "2.0.0",
		UpdateAvailable: true,
	}
	if err := SaveCache(dir, entry); err != nil {
		t.Fatalf("SaveCache() error = %v", err)
	}

	loaded, err := LoadCache(dir)
	if err != nil {
		t.Fatalf("LoadCache() error = %v", err)
	}
	if loaded.LatestVersion != "2.0.0" || !loaded.UpdateAvailable {
		t.Errorf("loaded = %+v", loaded)
	}
	if !IsCacheValid(loaded) {
		t.Error("fresh cache reported invalid")
	}

	stale := &CacheEntry{CheckedAt: time.Now().Add(-time.Hour)}
	if IsCacheValid(stale) {
		t.Error("hour-old cache reported valid")
	}
}
