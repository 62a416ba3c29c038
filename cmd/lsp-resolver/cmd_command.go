package main

import (
	"context"

	"github.com/spf13/cobra"
)

// launchDescriptor is the shape editors consume to start the server.
type launchDescriptor struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args" yaml:"args"`
	Env     map[string]string `json:"env" yaml:"env"`
}

func init() {
	var tag string

	commandCmd := &cobra.Command{
		Use:   "command",
		Short: "Print the language server launch descriptor",
		Long: `Resolve the crates-lsp binary and print the command descriptor an
editor needs to launch it: the binary path, arguments, and environment.
The server takes no arguments and inherits the environment, so args and
env are empty.

Output is JSON by default; use -o yaml for YAML.`,
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

			desc := launchDescriptor{
				Command: path,
				Args:    []string{},
				Env:     map[string]string{},
			}
			p := getPrinter()
			if p.Structured(desc) {
				return nil
			}
			// The descriptor is inherently structured; text mode emits JSON too.
			p.JSON(desc)
			return nil
		},
	}
	commandCmd.Flags().StringVar(&tag, "tag", "", "Resolve a specific release tag instead of the latest")

	rootCmd.AddCommand(commandCmd)
}
