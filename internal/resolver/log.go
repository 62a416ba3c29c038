package resolver

import (
	"fmt"
	"os"
	"time"
)

// logf appends a timestamped line to the install log. Best-effort: the log
// exists for the `logs` command and must never fail a resolution.
func (r *Resolver) logf(format string, args ...any) {
	f, err := os.OpenFile(LogPath(r.cfg.WorkDir), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	line := fmt.Sprintf("%s %s\n", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	_, _ = f.WriteString(line)
}
