package platform

import (
	"fmt"
	"runtime"
)

// OS is the closed set of operating systems the resolver supports.
type OS int

const (
	Mac OS = iota
	Linux
	Windows
)

// Arch is the closed set of CPU architectures the resolver supports.
type Arch int

const (
	Aarch64 Arch = iota
	X86
	X8664
)

// String returns the upstream release token for the architecture.
func (a Arch) String() string {
	switch a {
	case Aarch64:
		return "aarch64"
	case X86:
		return "x86"
	case X8664:
		return "x86_64"
	}
	return "unknown"
}

// String returns a human-readable OS name.
func (o OS) String() string {
	switch o {
	case Mac:
		return "mac"
	case Linux:
		return "linux"
	case Windows:
		return "windows"
	}
	return "unknown"
}

// Target identifies the platform a binary must be built for.
type Target struct {
	OS   OS
	Arch Arch
}

// Current detects the running platform. Unsupported GOOS/GOARCH pairs are
// an error rather than a silent fallback.
func Current() (Target, error) {
	return fromRuntime(runtime.GOOS, runtime.GOARCH)
}

func fromRuntime(goos, goarch string) (Target, error) {
	var t Target

	switch goos {
	case "darwin":
		t.OS = Mac
	case "linux":
		t.OS = Linux
	case "windows":
		t.OS = Windows
	default:
		return Target{}, fmt.Errorf("unsupported operating system: %s", goos)
	}

	switch goarch {
	case "arm64":
		t.Arch = Aarch64
	case "386":
		t.Arch = X86
	case "amd64":
		t.Arch = X8664
	default:
		return Target{}, fmt.Errorf("unsupported architecture: %s", goarch)
	}

	return t, nil
}

// osToken returns the OS part of the upstream asset name. The token encodes
// both the target triple and the archive extension, matching how crates-lsp
// names its release assets.
func (t Target) osToken() string {
	switch t.OS {
	case Mac:
		return "apple-darwin.tar.gz"
	case Linux:
		return "unknown-linux-gnu.tar.gz"
	case Windows:
		return "pc-windows-msvc.zip"
	}
	return "unknown"
}

// AssetName builds the expected release asset filename for a tool on this
// target. The convention is a contract with the upstream release publisher:
// if upstream renames assets, resolution fails with an asset-not-found error.
func (t Target) AssetName(tool string) string {
	return fmt.Sprintf("%s-%s-%s", tool, t.Arch, t.osToken())
}

// BinaryName returns the executable filename for a tool on this target.
func (t Target) BinaryName(tool string) string {
	if t.OS == Windows {
		return tool + ".exe"
	}
	return tool
}

// ArchiveKind identifies the archive format a release asset uses.
type ArchiveKind int

const (
	GzipTar ArchiveKind = iota
	Zip
	TarLz4
)

// ArchiveKind returns the archive format implied by the target OS.
func (t Target) ArchiveKind() ArchiveKind {
	if t.OS == Windows {
		return Zip
	}
	return GzipTar
}
