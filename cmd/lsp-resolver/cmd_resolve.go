package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// resolveResult is the machine-readable shape of a successful resolution.
type resolveResult struct {
	Tool    string `json:"tool" yaml:"tool"`
	Version string `json:"version" yaml:"version"`
	Path    string `json:"path" yaml:"path"`
}

func init() {
	var tag string

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the language server binary, installing it on first use",
		Long: `Locate the crates-lsp binary, downloading and unpacking the latest
GitHub release when no installed copy exists. Prints the absolute path of
the binary on stdout; progress and status go to stderr.

Examples:
  lsp-resolver resolve               # latest release
  lsp-resolver resolve --tag v0.7.0  # pin a specific release`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadCfg()
			r, sink, finish := newResolveUI(cfg, getStderrPrinter())

			var (
				path string
				err  error
			)
			ctx := context.Background()
			if tag != "" {
				path, err = r.ResolveTag(ctx, tag, sink)
			} else {
				path, err = r.Resolve(ctx, sink)
			}
			finish()
			if err != nil {
				return err
			}

			res := resolveResult{
				Tool:    cfg.ToolName,
				Version: versionFromPath(path, cfg.ToolName),
				Path:    path,
			}
			if getPrinter().Structured(res) {
				return nil
			}
			fmt.Println(path)
			return nil
		},
	}
	resolveCmd.Flags().StringVar(&tag, "tag", "", "Resolve a specific release tag instead of the latest")

	rootCmd.AddCommand(resolveCmd)
}
