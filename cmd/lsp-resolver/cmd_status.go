package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/langtools/lsp-resolver-cli/internal/exitcodes"
	"github.com/langtools/lsp-resolver-cli/internal/resolver"
	ui "github.com/langtools/lsp-resolver-cli/internal/ui"
)

// statusResult aggregates the on-disk state of the working directory.
type statusResult struct {
	Tool         string    `json:"tool" yaml:"tool"`
	Repo         string    `json:"repo" yaml:"repo"`
	WorkDir      string    `json:"work_dir" yaml:"work_dir"`
	Installed    bool      `json:"installed" yaml:"installed"`
	Version      string    `json:"version,omitempty" yaml:"version,omitempty"`
	BinaryPath   string    `json:"binary_path,omitempty" yaml:"binary_path,omitempty"`
	DigestOK     *bool     `json:"digest_ok,omitempty" yaml:"digest_ok,omitempty"`
	InstalledAt  time.Time `json:"installed_at,omitempty" yaml:"installed_at,omitempty"`
	ExtraEntries []string  `json:"extra_entries,omitempty" yaml:"extra_entries,omitempty"`
	Error        string    `json:"error,omitempty" yaml:"error,omitempty"`

	installed []resolver.InstalledVersion // full listing for text rendering
}

func computeStatus(d *Deps) statusResult {
	res := statusResult{
		Tool:    d.Cfg.ToolName,
		Repo:    d.Cfg.Repo,
		WorkDir: d.Cfg.WorkDir,
	}

	installed, err := resolver.ListInstalled(d.Cfg.WorkDir, d.Cfg.ToolName)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if len(installed) > 0 && installed[0].Binary != "" {
		res.Installed = true
		res.Version = installed[0].Version
		res.BinaryPath = installed[0].Binary
	}
	// Anything beyond the newest version should have been swept away.
	if len(installed) > 1 {
		for _, iv := range installed[1:] {
			res.ExtraEntries = append(res.ExtraEntries, iv.Dir)
		}
	}
	res.installed = installed

	if m, err := resolver.LoadManifest(d.Cfg.WorkDir); err == nil {
		res.InstalledAt = m.InstalledAt
		if ok, verr := m.Verify(); verr == nil {
			res.DigestOK = &ok
		}
	}

	return res
}

func printStatusText(res statusResult, p ui.Printer) {
	p.Section("Installation")
	p.KeyValueLine("Tool", res.Tool, "")
	p.KeyValueLine("Repository", res.Repo, "dim")
	p.KeyValueLine("Work directory", res.WorkDir, "dim")

	if !res.Installed {
		p.KeyValueLine("Installed", "no", "yellow")
		p.Info("Run 'lsp-resolver resolve' to install")
		return
	}

	p.KeyValueLine("Installed", "yes", "green")
	p.KeyValueLine("Version", res.Version, "green")
	p.KeyValueLine("Binary", res.BinaryPath, "")
	if !res.InstalledAt.IsZero() {
		p.KeyValueLine("Installed at", res.InstalledAt.Format(time.RFC3339), "dim")
	}
	if res.DigestOK != nil {
		if *res.DigestOK {
			p.KeyValueLine("Digest", "verified", "green")
		} else {
			p.KeyValueLine("Digest", "MISMATCH", "yellow")
		}
	}
	if len(res.installed) > 1 {
		p.Section("On disk")
		rows := make([][]string, 0, len(res.installed))
		for i, iv := range res.installed {
			state := "stale"
			if i == 0 {
				state = "current"
			}
			rows = append(rows, []string{iv.Version, state, iv.Dir})
		}
		p.Textf("%s", ui.Table(p.Colors, []string{"Version", "State", "Directory"}, rows, nil))
		p.Warn("stale version directories present; run 'lsp-resolver clean'")
	}
}

func init() {
	var strict bool

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show installed version and manifest state",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := newDeps()
			res := computeStatus(d)

			p := getPrinter()
			if !p.Structured(res) {
				if flagQuiet {
					fmt.Printf("installed=%v version=%s\n", res.Installed, res.Version)
				} else {
					printStatusText(res, p)
				}
			}

			// Strict mode: exit non-zero if issues detected
			if strict {
				switch {
				case res.Error != "":
					return exitcodes.ValidationErr(res.Error)
				case !res.Installed:
					return exitcodes.PreconditionError("no version installed")
				case res.DigestOK != nil && !*res.DigestOK:
					return exitcodes.ValidationErr("binary digest does not match install manifest")
				}
			}
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero if nothing is installed or the digest mismatches")
	rootCmd.AddCommand(statusCmd)
}
