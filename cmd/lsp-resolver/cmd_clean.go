package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/langtools/lsp-resolver-cli/internal/resolver"
)

func init() {
	var all bool

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove installed versions",
		Long: `Remove version directories from the working directory. By default the
version recorded in the install manifest is kept; --all removes every
version along with the manifest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := newDeps()
			p := getPrinter()

			keep := ""
			if !all {
				if m, err := resolver.LoadManifest(d.Cfg.WorkDir); err == nil {
					keep = m.Version
				}
			}

			removed, errs := resolver.RemoveInstalled(d.Cfg.WorkDir, d.Cfg.ToolName, keep)
			for _, dir := range removed {
				if !flagQuiet {
					p.Success("removed " + dir)
				}
			}
			if all {
				if err := os.Remove(resolver.ManifestPath(d.Cfg.WorkDir)); err == nil && !flagQuiet {
					p.Success("removed install manifest")
				}
			}
			for _, err := range errs {
				p.Warn(err.Error())
			}
			if len(errs) > 0 {
				return fmt.Errorf("failed to remove %d entr(ies)", len(errs))
			}
			if len(removed) == 0 && !flagQuiet {
				p.Info("Nothing to remove")
			}
			return nil
		},
	}
	cleanCmd.Flags().BoolVar(&all, "all", false, "Also remove the current version and the install manifest")

	rootCmd.AddCommand(cleanCmd)
}
