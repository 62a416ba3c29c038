package update

import (
	"fmt"
	"runtime"

	"github.com/langtools/lsp-resolver-cli/internal/github"
)

const (
	// DefaultRepo is the GitHub repository the resolver's own releases are
	// published to.
	DefaultRepo = "langtools/lsp-resolver-cli"

	binaryName       = "lsp-resolver"
	checksumFileName = "checksums.txt"
)

// CheckResult describes the outcome of an update check
type CheckResult struct {
	CurrentVersion  string          `json:"current_version" yaml:"current_version"`
	LatestVersion   string          `json:"latest_version" yaml:"latest_version"`
	UpdateAvailable bool            `json:"update_available" yaml:"update_available"`
	Release         *github.Release `json:"-" yaml:"-"`
}

// AssetForPlatform finds the release archive for the running platform.
// Release archives are named lsp-resolver_<goos>_<goarch>.tar.gz.
func AssetForPlatform(release *github.Release) (*github.Asset, error) {
	name := fmt.Sprintf("%s_%s_%s.tar.gz", binaryName, runtime.GOOS, runtime.GOARCH)
	if asset := release.FindAsset(name); asset != nil {
		return asset, nil
	}
	return nil, fmt.Errorf("no release asset for %s/%s", runtime.GOOS, runtime.GOARCH)
}

// ChecksumAsset finds the checksums.txt asset in a release
func ChecksumAsset(release *github.Release) (*github.Asset, error) {
	if asset := release.FindAsset(checksumFileName); asset != nil {
		return asset, nil
	}
	return nil, fmt.Errorf("%s not found in release %s", checksumFileName, release.TagName)
}
