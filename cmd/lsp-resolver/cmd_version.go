package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/langtools/lsp-resolver-cli/internal/github"
	ui "github.com/langtools/lsp-resolver-cli/internal/ui"
	"github.com/langtools/lsp-resolver-cli/internal/update"
)

var flagVersionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagVersionCheck {
			return runVersionCheck()
		}
		info := map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_date": BuildDate,
		}
		if getPrinter().Structured(info) {
			return nil
		}
		fmt.Printf("lsp-resolver %s (%s) built %s\n", Version, Commit, BuildDate)
		return nil
	},
}

func runVersionCheck() error {
	cfg := loadCfg()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := update.ForceCheck(ctx, cfg.WorkDir, Version)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}

	p := getPrinter()
	if p.Structured(result) {
		return nil
	}
	if result.UpdateAvailable {
		p.Info(fmt.Sprintf("Update available: v%s → v%s", result.CurrentVersion, result.LatestVersion))
		p.Info("Run 'lsp-resolver update' to install")
	} else {
		p.Success(fmt.Sprintf("Up to date (v%s)", result.CurrentVersion))
	}
	return nil
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return fmt.Errorf("unknown shell: %s", args[0])
		}
	},
}

func init() {
	versionCmd.Flags().BoolVar(&flagVersionCheck, "check", false, "Check whether a newer release is available")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

// checkForUpdateBackground performs a non-blocking update check.
// Uses cache to avoid checking more than once per cache window.
// Stores result in updateCheckResult global for use by PersistentPostRun.
func checkForUpdateBackground() {
	cfg := loadCfg()

	// Check cache first (avoid network calls if recently checked)
	cache, err := update.LoadCache(cfg.WorkDir)
	if err == nil && update.IsCacheValid(cache) {
		// Use cached result, but re-verify in case version changed (e.g., after update)
		if cache.UpdateAvailable && github.IsNewerVersion(Version, cache.LatestVersion) {
			updateCheckMu.Lock()
			updateCheckResult = &update.CheckResult{
				CurrentVersion:  strings.TrimPrefix(Version, "v"),
				LatestVersion:   cache.LatestVersion,
				UpdateAvailable: true,
			}
			updateCheckMu.Unlock()
		}
		return
	}

	// Perform network check with timeout
	updater, err := update.New(Version)
	if err != nil {
		return // Silently fail - don't disrupt user's command
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := updater.Check(ctx)
	if err != nil {
		return // Silently fail
	}

	// Save to cache
	_ = update.SaveCache(cfg.WorkDir, &update.CacheEntry{
		CheckedAt:       time.Now(),
		LatestVersion:   result.LatestVersion,
		UpdateAvailable: result.UpdateAvailable,
	})

	// Store result for notification
	if result.UpdateAvailable {
		updateCheckMu.Lock()
		updateCheckResult = result
		updateCheckMu.Unlock()
	}
}

// showUpdateNotification displays an update notification after command completes.
func showUpdateNotification(latestVersion string) {
	// Don't show in JSON/YAML output modes
	if flagOutput == "json" || flagOutput == "yaml" {
		return
	}

	// Don't show in quiet mode
	if flagQuiet {
		return
	}

	c := ui.NewColorConfigFromGlobal()

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, c.Warning("─────────────────────────────────────────────────────────────"))
	fmt.Fprintf(os.Stderr, c.Warning("  Update available: %s → %s\n"), Version, latestVersion)
	fmt.Fprintln(os.Stderr, c.Info("  Run: lsp-resolver update"))
	fmt.Fprintln(os.Stderr, c.Warning("─────────────────────────────────────────────────────────────"))
}

// shouldSkipUpdateCheck returns true for commands where update notifications
// are disruptive. resolve and command feed their stdout to editors.
func shouldSkipUpdateCheck(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "update", "help", "version", "completion", "resolve", "command":
		return true
	}
	return false
}
