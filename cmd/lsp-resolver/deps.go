package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/langtools/lsp-resolver-cli/internal/config"
	"github.com/langtools/lsp-resolver-cli/internal/resolver"
	ui "github.com/langtools/lsp-resolver-cli/internal/ui"
)

// Prompter abstracts interactive terminal I/O for testability.
type Prompter interface {
	// ReadLine displays the prompt and reads a line of input.
	ReadLine(prompt string) (string, error)
	// IsInteractive returns whether the terminal supports interactive input.
	IsInteractive() bool
}

// Deps holds all injectable dependencies for command handlers.
type Deps struct {
	Cfg      config.Config
	Resolver *resolver.Resolver
	Printer  ui.Printer
	Prompter Prompter
	Output   io.Writer
}

// ttyPrompter is the production implementation of Prompter.
// It uses /dev/tty when stdin is not a terminal (e.g., piped input).
type ttyPrompter struct{}

func (p *ttyPrompter) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)

	var reader *bufio.Reader
	if term.IsTerminal(int(os.Stdin.Fd())) {
		reader = bufio.NewReader(os.Stdin)
	} else {
		tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
		if err != nil {
			return "", fmt.Errorf("no interactive terminal available: %w", err)
		}
		defer tty.Close()
		reader = bufio.NewReader(tty)
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *ttyPrompter) IsInteractive() bool {
	if flagNonInteractive {
		return false
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	// Check if /dev/tty is accessible
	tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
	if err == nil {
		tty.Close()
		return true
	}
	return false
}

// newDeps creates production dependencies from the current flags and config.
func newDeps() *Deps {
	cfg := loadCfg()
	return &Deps{
		Cfg:      cfg,
		Resolver: resolver.New(cfg),
		Printer:  getPrinter(),
		Prompter: &ttyPrompter{},
		Output:   os.Stdout,
	}
}
