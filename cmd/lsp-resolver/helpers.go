package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/langtools/lsp-resolver-cli/internal/config"
	"github.com/langtools/lsp-resolver-cli/internal/fetch"
	"github.com/langtools/lsp-resolver-cli/internal/resolver"
	ui "github.com/langtools/lsp-resolver-cli/internal/ui"
)

// getPrinter returns a UI printer bound to the current --output flag.
func getPrinter() ui.Printer { return ui.NewPrinterFromGlobal(flagOutput) }

// getStderrPrinter returns a printer for human-facing messages when stdout
// carries machine-readable data (the resolved path, a launch descriptor).
func getStderrPrinter() ui.Printer { return ui.NewStderrPrinterFromGlobal(flagOutput) }

// checkSpinner animates the update-check phase of a resolution. On a
// terminal it drives a ui.Spinner from a ticker goroutine; otherwise it
// degrades to a single printed line.
type checkSpinner struct {
	out io.Writer
	tty bool
	p   ui.Printer

	mu      sync.Mutex
	done    chan struct{}
	stopped bool
}

func newCheckSpinner(out io.Writer, tty bool, p ui.Printer) *checkSpinner {
	return &checkSpinner{out: out, tty: tty, p: p}
}

func (s *checkSpinner) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.done != nil {
		return
	}
	if !s.tty {
		s.p.Info("Checking for update...")
		return
	}

	sp := ui.NewSpinner(s.out, "Checking for update...")
	sp.Tick()
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				s.mu.Lock()
				if !s.stopped {
					sp.Tick()
				}
				s.mu.Unlock()
			}
		}
	}(s.done)
}

// stop ends the animation and clears the spinner line. Safe to call more
// than once; start after stop is a no-op.
func (s *checkSpinner) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.done != nil {
		close(s.done)
		s.done = nil
		fmt.Fprint(s.out, "\r\033[K")
	}
}

// newResolveUI builds a resolver wired to stderr feedback: a spinner while
// checking for updates, a line plus progress bar while downloading. Quiet
// mode suppresses all of it. The returned finish func must run after the
// resolution to clear the spinner and close the bar.
func newResolveUI(cfg config.Config, p ui.Printer) (*resolver.Resolver, resolver.StatusSink, func()) {
	var bar *ui.ProgressBar
	spin := newCheckSpinner(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), p)

	progress := fetch.ProgressFunc(func(current, total int64) {
		if flagQuiet {
			return
		}
		if bar == nil {
			bar = ui.NewProgressBar(os.Stderr, total)
		}
		bar.Update(current)
	})

	sink := resolver.StatusFunc(func(s resolver.Status) {
		if flagQuiet {
			return
		}
		switch s {
		case resolver.StatusCheckingForUpdate:
			spin.start()
		case resolver.StatusDownloading:
			spin.stop()
			p.Info("Downloading " + cfg.ToolName + "...")
		}
	})

	finish := func() {
		spin.stop()
		if bar != nil {
			bar.Finish()
		}
	}

	return resolver.NewWith(resolver.Options{Config: cfg, Progress: progress}), sink, finish
}

// versionFromPath derives the installed version from a resolved binary path
// (<workdir>/<tool>-<version>/<binary>).
func versionFromPath(path, tool string) string {
	dir := filepath.Base(filepath.Dir(path))
	return strings.TrimPrefix(dir, tool+"-")
}
