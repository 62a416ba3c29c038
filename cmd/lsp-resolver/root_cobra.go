package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/langtools/lsp-resolver-cli/internal/config"
	"github.com/langtools/lsp-resolver-cli/internal/exitcodes"
	ui "github.com/langtools/lsp-resolver-cli/internal/ui"
	"github.com/langtools/lsp-resolver-cli/internal/update"
)

// Version information - set via -ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// rootCmd wires the CLI surface using Cobra. Persistent flags are
// applied to a loaded config in loadCfg(). Subcommands implement the
// actual operations (resolve, command, status, clean, etc.).
// updateCheckResult stores the result of background update check
var (
	updateCheckResult *update.CheckResult
	updateCheckMu     sync.Mutex
)

var rootCmd = &cobra.Command{
	Use:           "lsp-resolver",
	Short:         "LSP Resolver",
	Long:          "Locate, install, and pin the crates-lsp language server from GitHub releases.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize global UI config from flags after parsing but before command execution
		ui.InitGlobal(ui.Config{
			NoColor:        flagNoColor,
			NoEmoji:        flagNoEmoji,
			NonInteractive: flagNonInteractive,
			Quiet:          flagQuiet,
		})

		// Set NO_COLOR env so child tooling respects the flag
		if flagNoColor {
			os.Setenv("NO_COLOR", "1")
		}

		// Start background update check (non-blocking).
		// Skip for commands whose stdout is consumed by an editor.
		if !shouldSkipUpdateCheck(cmd) {
			go checkForUpdateBackground()
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// Show update notification if available (after command completes)
		updateCheckMu.Lock()
		result := updateCheckResult
		updateCheckMu.Unlock()
		if !shouldSkipUpdateCheck(cmd) && result != nil && result.UpdateAvailable {
			showUpdateNotification(result.LatestVersion)
		}
	},
}

var (
	flagWorkDir        string
	flagRepo           string
	flagAPI            string
	flagOutput         string
	flagQuiet          bool
	flagNoColor        bool
	flagNoEmoji        bool
	flagNonInteractive bool
)

func init() {
	// Persistent flags to override defaults
	rootCmd.PersistentFlags().StringVar(&flagWorkDir, "workdir", "", "Working directory for installed versions (overrides env)")
	rootCmd.PersistentFlags().StringVar(&flagRepo, "repo", "", "Upstream GitHub repository (owner/name)")
	rootCmd.PersistentFlags().StringVar(&flagAPI, "api", "", "GitHub API base URL")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "Output format: json|yaml|text")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Quiet mode: minimal output (suppresses extras)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	rootCmd.PersistentFlags().BoolVar(&flagNoEmoji, "no-emoji", false, "Disable emoji output")
	rootCmd.PersistentFlags().BoolVar(&flagNonInteractive, "non-interactive", false, "Fail instead of prompting")

	// Replace root help to present grouped, example-rich output.
	// Only apply custom help to the root command; subcommands use cobra's default help.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			// For subcommands, print cobra's default usage (includes flags and descriptions)
			fmt.Fprintln(os.Stdout, cmd.UsageString())
			return
		}
		// Help runs before PersistentPreRun, so manually configure colors
		c := ui.NewColorConfig()
		c.Enabled = c.Enabled && !flagNoColor
		c.EmojiEnabled = c.EmojiEnabled && !flagNoEmoji
		w := os.Stdout

		// Fixed column width for command alignment (longest command + buffer)
		const cmdWidth = 24

		// Header
		fmt.Fprintln(w, c.Header(" LSP Resolver "))
		fmt.Fprintln(w, c.Description("Locate, install, and pin the crates-lsp language server from GitHub releases."))
		fmt.Fprintln(w, c.Separator(50))
		fmt.Fprintln(w)

		// Usage
		fmt.Fprintln(w, c.SubHeader("USAGE"))
		fmt.Fprintf(w, "  %s <command> [flags]\n", "lsp-resolver")
		fmt.Fprintln(w)

		// Resolution
		fmt.Fprintln(w, c.SubHeader("Resolution"))
		fmt.Fprintln(w, c.FormatCommandAligned("resolve", "Resolve the server binary, installing on first use", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("command", "Print the launch descriptor for editors", cmdWidth))
		fmt.Fprintln(w)

		// Inspection
		fmt.Fprintln(w, c.SubHeader("Inspection"))
		fmt.Fprintln(w, c.FormatCommandAligned("status", "Show installed version and manifest state", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("doctor", "Run diagnostic checks", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("logs", "Show the install log", cmdWidth))
		fmt.Fprintln(w)

		// Maintenance
		fmt.Fprintln(w, c.SubHeader("Maintenance"))
		fmt.Fprintln(w, c.FormatCommandAligned("clean", "Remove installed versions", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("update", "Update lsp-resolver to latest version", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("version", "Show version", cmdWidth))
		fmt.Fprintln(w)
	})
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitcodes.CodeForError(err))
	}
}

// loadCfg reads defaults + env via internal/config.Load() and then
// applies overrides from persistent flags (workdir, repo, api).
func loadCfg() config.Config {
	cfg := config.Load()
	if flagWorkDir != "" {
		cfg.WorkDir = flagWorkDir
	}
	if flagRepo != "" {
		cfg.Repo = flagRepo
	}
	if flagAPI != "" {
		cfg.APIBase = flagAPI
	}
	return cfg
}
