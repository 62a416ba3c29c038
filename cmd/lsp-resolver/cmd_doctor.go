package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/cobra"

	"github.com/langtools/lsp-resolver-cli/internal/config"
	"github.com/langtools/lsp-resolver-cli/internal/exitcodes"
	"github.com/langtools/lsp-resolver-cli/internal/github"
	"github.com/langtools/lsp-resolver-cli/internal/platform"
	"github.com/langtools/lsp-resolver-cli/internal/resolver"
	ui "github.com/langtools/lsp-resolver-cli/internal/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the resolver setup",
	Long: `Performs health checks on the resolver setup including:
- Platform support (OS/architecture)
- Working directory permissions
- Free disk space
- GitHub API connectivity
- Install manifest integrity`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDoctor,
}

type checkResult struct {
	Name    string
	Status  string // "pass", "warn", "fail"
	Message string
	Details []string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg := loadCfg()

	c := ui.NewColorConfigFromGlobal()
	results := []checkResult{}

	// Header
	fmt.Println(c.Header(" RESOLVER HEALTH CHECK "))
	fmt.Println()

	// Run all diagnostic checks
	results = append(results, checkPlatform(c))
	results = append(results, checkWorkDir(cfg, c))
	results = append(results, checkDiskSpace(cfg, c))
	results = append(results, checkGitHubAPI(cfg, c))
	results = append(results, checkManifest(cfg, c))

	// Summary
	fmt.Println()
	fmt.Println(c.Separator(60))

	passed := 0
	warned := 0
	failed := 0

	for _, r := range results {
		switch r.Status {
		case "pass":
			passed++
		case "warn":
			warned++
		case "fail":
			failed++
		}
	}

	summary := fmt.Sprintf("Checks: %d passed, %d warnings, %d failed", passed, warned, failed)
	if failed > 0 {
		fmt.Println(c.Error("✗ " + summary))
		fmt.Println()
		ui.PrintError(failureMessage(results))
		return exitcodes.ValidationErr("diagnostic checks failed")
	} else if warned > 0 {
		fmt.Println(c.Warning("⚠ " + summary))
	} else {
		fmt.Println(c.Success("✓ " + summary))
	}

	return nil
}

func checkPlatform(c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "Platform"}

	target, err := platform.Current()
	if err != nil {
		result.Status = "fail"
		result.Message = "Unsupported platform"
		result.Details = []string{
			fmt.Sprintf("Error: %v", err),
			"Upstream publishes binaries for darwin/linux/windows on arm64, 386, and amd64",
		}
	} else {
		result.Status = "pass"
		result.Message = fmt.Sprintf("Release asset: %s", target.AssetName("crates-lsp"))
	}

	printCheck(result, c)
	return result
}

func checkWorkDir(cfg config.Config, c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "Working Directory"}

	info, err := os.Stat(cfg.WorkDir)
	switch {
	case os.IsNotExist(err):
		result.Status = "warn"
		result.Message = fmt.Sprintf("%s does not exist yet", cfg.WorkDir)
		result.Details = []string{"It will be created on first resolve"}
	case err != nil:
		result.Status = "fail"
		result.Message = "Cannot stat working directory"
		result.Details = []string{fmt.Sprintf("Error: %v", err)}
	case !info.IsDir():
		result.Status = "fail"
		result.Message = fmt.Sprintf("%s is not a directory", cfg.WorkDir)
	default:
		// Simple check: can we write a test file?
		testFile := filepath.Join(cfg.WorkDir, ".writecheck")
		if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
			result.Status = "fail"
			result.Message = "Cannot write to working directory"
			result.Details = []string{
				fmt.Sprintf("Error: %v", err),
				"Verify write permissions",
			}
		} else {
			os.Remove(testFile)
			result.Status = "pass"
			result.Message = fmt.Sprintf("Writable at %s", cfg.WorkDir)
		}
	}

	printCheck(result, c)
	return result
}

func checkDiskSpace(cfg config.Config, c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "Disk Space"}

	// Server binaries are tens of megabytes; extraction needs headroom.
	const minFree = 256 * 1024 * 1024

	usage, err := disk.Usage(cfg.WorkDir)
	if err != nil {
		// Fall back to the parent when the workdir does not exist yet.
		usage, err = disk.Usage(filepath.Dir(cfg.WorkDir))
	}
	if err != nil {
		result.Status = "warn"
		result.Message = "Could not check disk space"
		result.Details = []string{fmt.Sprintf("Error: %v", err)}
	} else if usage.Free < minFree {
		result.Status = "fail"
		result.Message = fmt.Sprintf("Only %s free (%.1f%% used)", ui.FormatBytes(int64(usage.Free)), usage.UsedPercent)
		result.Details = []string{"Free up disk space before resolving"}
	} else {
		result.Status = "pass"
		result.Message = fmt.Sprintf("%s free (%.1f%% used)", ui.FormatBytes(int64(usage.Free)), usage.UsedPercent)
	}

	printCheck(result, c)
	return result
}

func checkGitHubAPI(cfg config.Config, c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "GitHub API"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := github.NewWith(nil, cfg.APIBase)
	release, err := client.LatestRelease(ctx, cfg.Repo, github.ReleaseOptions{RequireAssets: true})
	if err != nil {
		result.Status = "fail"
		result.Message = fmt.Sprintf("Cannot reach releases for %s", cfg.Repo)
		result.Details = []string{
			fmt.Sprintf("Error: %v", err),
			"Check internet connectivity",
			"GitHub API rate limits unauthenticated clients per IP",
		}
	} else {
		result.Status = "pass"
		result.Message = fmt.Sprintf("Latest release: %s (%d assets)", release.TagName, len(release.Assets))
	}

	printCheck(result, c)
	return result
}

func checkManifest(cfg config.Config, c *ui.ColorConfig) checkResult {
	result := checkResult{Name: "Install Manifest"}

	m, err := resolver.LoadManifest(cfg.WorkDir)
	if os.IsNotExist(err) {
		result.Status = "warn"
		result.Message = "No install manifest (nothing installed yet)"
		result.Details = []string{"Run 'lsp-resolver resolve' to install"}
		printCheck(result, c)
		return result
	}
	if err != nil {
		result.Status = "fail"
		result.Message = "Install manifest unreadable"
		result.Details = []string{fmt.Sprintf("Error: %v", err)}
		printCheck(result, c)
		return result
	}

	ok, err := m.Verify()
	switch {
	case err != nil:
		result.Status = "fail"
		result.Message = fmt.Sprintf("Recorded binary missing: %s", m.BinaryPath)
		result.Details = []string{"Run 'lsp-resolver resolve' to reinstall"}
	case !ok:
		result.Status = "fail"
		result.Message = "Binary digest does not match install manifest"
		result.Details = []string{
			"The installed binary was modified after install",
			"Run 'lsp-resolver clean --all' then 'lsp-resolver resolve'",
		}
	default:
		result.Status = "pass"
		result.Message = fmt.Sprintf("%s %s verified", m.Tool, m.Version)
	}

	printCheck(result, c)
	return result
}

// failureMessage consolidates failed checks into one actionable error block.
func failureMessage(results []checkResult) ui.ErrorMessage {
	msg := ui.ErrorMessage{Problem: "diagnostic checks failed"}
	for _, r := range results {
		if r.Status != "fail" {
			continue
		}
		msg.Causes = append(msg.Causes, fmt.Sprintf("%s: %s", r.Name, r.Message))
		msg.Actions = append(msg.Actions, r.Details...)
	}
	return msg
}

func printCheck(r checkResult, c *ui.ColorConfig) {
	icon := ""
	msg := ""

	switch r.Status {
	case "pass":
		icon = c.StatusIcon("pass")
		msg = c.Success(r.Message)
	case "warn":
		icon = c.StatusIcon("warning")
		msg = c.Warning(r.Message)
	case "fail":
		icon = c.StatusIcon("failed")
		msg = c.Error(r.Message)
	}

	fmt.Printf("%s %s: %s\n", icon, c.Apply(c.Theme.Header, r.Name), msg)

	for _, detail := range r.Details {
		fmt.Printf("  %s %s\n", c.Apply(c.Theme.Pending, "→"), detail)
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
