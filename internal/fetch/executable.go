package fetch

import (
	"fmt"
	"os"
	"runtime"
)

// MakeExecutable ensures path has execute permission. Windows has no
// execute bit, so this is a no-op there and must not fail.
func MakeExecutable(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.Chmod(path, info.Mode().Perm()|0o755); err != nil {
		return fmt.Errorf("set executable permission on %s: %w", path, err)
	}
	return nil
}
