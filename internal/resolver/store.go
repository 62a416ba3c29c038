package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

const installLogFileName = ".install.log"

// LogPath returns the install log location inside a working directory.
func LogPath(workDir string) string {
	return filepath.Join(workDir, installLogFileName)
}

// InstalledVersion is one on-disk version directory of the managed tool.
type InstalledVersion struct {
	Version string
	Dir     string
	Binary  string // path to the executable inside Dir, "" if missing
}

// ListInstalled scans the working directory for version directories of the
// given tool, newest version first. After a successful resolution at most
// one should exist.
func ListInstalled(workDir, tool string) ([]InstalledVersion, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil, err
	}

	prefix := tool + "-"
	var out []InstalledVersion
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		iv := InstalledVersion{
			Version: strings.TrimPrefix(entry.Name(), prefix),
			Dir:     filepath.Join(workDir, entry.Name()),
		}
		for _, bin := range []string{tool, tool + ".exe"} {
			p := filepath.Join(iv.Dir, bin)
			if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
				iv.Binary = p
				break
			}
		}
		out = append(out, iv)
	}

	sort.Slice(out, func(i, j int) bool {
		return semver.Compare("v"+out[i].Version, "v"+out[j].Version) > 0
	})
	return out, nil
}

// RemoveInstalled deletes version directories of the tool, keeping the one
// whose version equals keep (pass "" to delete all). Removal failures are
// reported but do not stop the sweep.
func RemoveInstalled(workDir, tool, keep string) (removed []string, errs []error) {
	installed, err := ListInstalled(workDir, tool)
	if err != nil {
		return nil, []error{err}
	}
	for _, iv := range installed {
		if keep != "" && iv.Version == keep {
			continue
		}
		if err := os.RemoveAll(iv.Dir); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, iv.Dir)
	}
	return removed, errs
}
