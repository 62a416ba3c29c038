package resolver

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

const manifestFileName = ".lsp-resolver.json"

// Manifest records the last successful install. It is advisory state for
// the status and doctor commands; the resolver itself only trusts the
// filesystem probe in the resolve path.
type Manifest struct {
	Tool        string    `json:"tool"`
	Version     string    `json:"version"`
	BinaryPath  string    `json:"binary_path"`
	Digest      string    `json:"digest"` // xxhash64 of the installed binary
	InstalledAt time.Time `json:"installed_at"`
}

// ManifestPath returns the manifest location inside a working directory.
func ManifestPath(workDir string) string {
	return filepath.Join(workDir, manifestFileName)
}

// LoadManifest reads the install manifest from the working directory.
func LoadManifest(workDir string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(workDir))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Verify recomputes the binary digest and reports whether it matches.
func (m *Manifest) Verify() (bool, error) {
	digest, err := DigestFile(m.BinaryPath)
	if err != nil {
		return false, err
	}
	return digest == m.Digest, nil
}

// DigestFile returns the xxhash64 digest of a file as a hex string.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// writeManifest records the install. Failures are swallowed: the manifest
// is advisory and must never fail a resolution that already succeeded.
func (r *Resolver) writeManifest(version, binaryPath string) {
	digest, err := DigestFile(binaryPath)
	if err != nil {
		return
	}
	m := Manifest{
		Tool:        r.cfg.ToolName,
		Version:     version,
		BinaryPath:  binaryPath,
		Digest:      digest,
		InstalledAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(ManifestPath(r.cfg.WorkDir), data, 0o644)
}
