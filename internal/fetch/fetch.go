package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/langtools/lsp-resolver-cli/internal/platform"
)

// ProgressFunc is called during download with bytes downloaded and total
// size (-1 if unknown).
type ProgressFunc func(downloaded, total int64)

// HTTPDoer matches http.Client's Do.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Fetcher downloads release assets and unpacks them.
type Fetcher struct {
	http HTTPDoer
}

// New creates a fetcher with a default HTTP client. Downloads have no
// overall timeout (archives can be large); header and idle timeouts bound
// stalled connections.
func New() *Fetcher {
	return &Fetcher{
		http: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

// NewWith creates a fetcher with a custom HTTP client (for testing).
func NewWith(h HTTPDoer) *Fetcher {
	if h == nil {
		return New()
	}
	return &Fetcher{http: h}
}

// DownloadAndExtract fetches url into a temporary file and unpacks it into
// destDir according to kind. destDir is created if missing.
func (f *Fetcher) DownloadAndExtract(ctx context.Context, url, destDir string, kind platform.ArchiveKind, progress ProgressFunc) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", destDir, err)
	}

	tempDir, err := os.MkdirTemp("", "lsp-resolver-download-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempFile := filepath.Join(tempDir, "asset")
	if err := f.downloadFile(ctx, url, tempFile, progress); err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}

	switch kind {
	case platform.GzipTar:
		err = extractTarGz(tempFile, destDir)
	case platform.Zip:
		err = extractZip(tempFile, destDir)
	case platform.TarLz4:
		err = extractTarLz4(tempFile, destDir)
	default:
		err = fmt.Errorf("unknown archive kind %d", kind)
	}
	if err != nil {
		return fmt.Errorf("extract into %s: %w", destDir, err)
	}
	return nil
}

// downloadFile downloads a file from url to destPath with progress callback.
func (f *Fetcher) downloadFile(ctx context.Context, url, destPath string, progress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	var reader io.Reader = resp.Body
	if progress != nil {
		reader = &progressReader{
			reader:   resp.Body,
			total:    resp.ContentLength,
			progress: progress,
		}
	}

	_, err = io.Copy(out, reader)
	return err
}

// progressReader wraps a reader to report download progress.
type progressReader struct {
	reader   io.Reader
	total    int64
	current  int64
	progress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	if pr.progress != nil {
		pr.progress(pr.current, pr.total)
	}
	return n, err
}
