package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/langtools/lsp-resolver-cli/internal/config"
	"github.com/langtools/lsp-resolver-cli/internal/github"
	ui "github.com/langtools/lsp-resolver-cli/internal/ui"
	"github.com/langtools/lsp-resolver-cli/internal/update"
)

// ReleaseSource abstracts release lookup for testability.
type ReleaseSource interface {
	LatestRelease(ctx context.Context, repo string, opts github.ReleaseOptions) (*github.Release, error)
	ReleaseByTag(ctx context.Context, repo, tag string) (*github.Release, error)
}

// CLIUpdater abstracts update operations for testability.
type CLIUpdater interface {
	Download(ctx context.Context, asset *github.Asset, progress update.ProgressFunc) ([]byte, error)
	VerifyChecksum(ctx context.Context, data []byte, release *github.Release, assetName string) error
	ExtractBinary(archiveData []byte) ([]byte, error)
	Install(binaryData []byte) error
	Rollback() error
}

type updateCoreOpts struct {
	checkOnly      bool
	force          bool
	version        string
	skipVerify     bool
	currentVersion string
	binaryPath     string
	repo           string
}

// runUpdateCore contains the core update logic, testable with mocked deps.
func runUpdateCore(ctx context.Context, releases ReleaseSource, updater CLIUpdater, cfg config.Config, opts updateCoreOpts, p ui.Printer, prompter Prompter, output io.Writer, verifyBinary func(string) (string, error)) error {

	// Fetch release (latest or specific version)
	var release *github.Release
	var err error
	if opts.version != "" {
		p.Info(fmt.Sprintf("Fetching release %s...", opts.version))
		release, err = releases.ReleaseByTag(ctx, opts.repo, opts.version)
	} else {
		p.Info("Checking for updates...")
		release, err = releases.LatestRelease(ctx, opts.repo, github.ReleaseOptions{RequireAssets: true})
	}
	if err != nil {
		return fmt.Errorf("failed to fetch release: %w", err)
	}

	latestVersion := release.Version()
	currentVersion := strings.TrimPrefix(opts.currentVersion, "v")

	// Save result to cache
	updateAvailable := github.IsNewerVersion(opts.currentVersion, release.TagName)
	_ = update.SaveCache(cfg.WorkDir, &update.CacheEntry{
		CheckedAt:       time.Now(),
		LatestVersion:   latestVersion,
		UpdateAvailable: updateAvailable,
	})

	// Check if update needed
	if !opts.force && !updateAvailable {
		p.Success(fmt.Sprintf("Already up to date (v%s)", currentVersion))
		return nil
	}

	// Show update info
	fmt.Println()
	p.Info(fmt.Sprintf("Update available: v%s → v%s", currentVersion, latestVersion))

	// Show changelog (first 10 lines)
	if release.Body != "" {
		fmt.Println()
		fmt.Println("Changelog:")
		lines := strings.Split(release.Body, "\n")
		maxLines := 10
		if len(lines) < maxLines {
			maxLines = len(lines)
		}
		for _, line := range lines[:maxLines] {
			fmt.Printf("  %s\n", line)
		}
		if len(lines) > 10 {
			fmt.Printf("  ... (see %s for full changelog)\n", release.HTMLURL)
		}
	}
	fmt.Println()

	// Check only mode
	if opts.checkOnly {
		p.Info("Run 'lsp-resolver update' to install")
		return nil
	}

	// Confirm update (skip if --force)
	if !opts.force {
		response, err := prompter.ReadLine("Update now? [Y/n]: ")
		if err != nil {
			p.Warn("Update cancelled")
			return nil
		}
		response = strings.ToLower(response)
		if response != "" && response != "y" && response != "yes" {
			p.Warn("Update cancelled")
			return nil
		}
	}

	// Find binary for current platform
	asset, err := update.AssetForPlatform(release)
	if err != nil {
		return err
	}

	// Download with progress bar
	p.Info(fmt.Sprintf("Downloading %s...", asset.Name))
	bar := ui.NewProgressBar(output, asset.Size)
	archiveData, err := updater.Download(ctx, asset, func(downloaded, total int64) {
		bar.Update(downloaded)
	})
	bar.Finish()
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	// Verify checksum
	if !opts.skipVerify {
		p.Info("Verifying checksum...")
		if err := updater.VerifyChecksum(ctx, archiveData, release, asset.Name); err != nil {
			return fmt.Errorf("checksum verification failed: %w", err)
		}
		p.Success("Checksum verified")
	} else {
		p.Warn("Skipping checksum verification (not recommended)")
	}

	// Extract binary
	p.Info("Extracting binary...")
	binaryData, err := updater.ExtractBinary(archiveData)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	// Install
	p.Info("Installing...")
	if err := updater.Install(binaryData); err != nil {
		return fmt.Errorf("installation failed: %w", err)
	}

	// Verify new binary
	p.Info("Verifying installation...")
	if verifyBinary != nil {
		if _, verErr := verifyBinary(opts.binaryPath); verErr != nil {
			p.Warn("Verification failed, rolling back...")
			if rbErr := updater.Rollback(); rbErr != nil {
				return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, verErr)
			}
			return fmt.Errorf("new binary verification failed, rolled back: %w", verErr)
		}
	}

	fmt.Println()
	p.Success(fmt.Sprintf("Updated to v%s", latestVersion))
	fmt.Println()

	return nil
}

func init() {
	var (
		checkOnly  bool
		force      bool
		version    string
		skipVerify bool
	)

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update lsp-resolver to the latest version",
		Long: `Check for and install the latest version of lsp-resolver.

The update command downloads pre-built binaries from GitHub Releases,
verifies the checksum, and replaces the current binary.

Examples:
  lsp-resolver update              # Update to latest version
  lsp-resolver update --check      # Check only, don't install
  lsp-resolver update --force      # Skip confirmation
  lsp-resolver update --version v1.2.0  # Install specific version`,
		RunE: func(cmd *cobra.Command, args []string) error {
			updater, err := update.New(Version)
			if err != nil {
				return fmt.Errorf("failed to initialize updater: %w", err)
			}

			cfg := loadCfg()
			opts := updateCoreOpts{
				checkOnly:      checkOnly,
				force:          force,
				version:        version,
				skipVerify:     skipVerify,
				currentVersion: Version,
				binaryPath:     updater.BinaryPath,
				repo:           update.DefaultRepo,
			}

			verifyBinary := func(path string) (string, error) {
				verifyCmd := exec.Command(path, "version")
				var stdout bytes.Buffer
				verifyCmd.Stdout = &stdout
				if err := verifyCmd.Run(); err != nil {
					return "", err
				}
				return strings.TrimSpace(stdout.String()), nil
			}

			return runUpdateCore(context.Background(), github.New(), updater, cfg, opts, getPrinter(), &ttyPrompter{}, os.Stdout, verifyBinary)
		},
	}

	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for updates, don't install")
	updateCmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	updateCmd.Flags().StringVar(&version, "version", "", "Install specific version (e.g., v1.2.0)")
	updateCmd.Flags().BoolVar(&skipVerify, "no-verify", false, "Skip checksum verification (not recommended)")

	rootCmd.AddCommand(updateCmd)
}
