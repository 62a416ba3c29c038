package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"github.com/langtools/lsp-resolver-cli/internal/resolver"
)

func init() {
	var (
		follow bool
		lines  int
	)

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the install log",
		Long:  "Print the resolver's install log. With -f, follow the log as new installs append to it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadCfg()
			lp := resolver.LogPath(cfg.WorkDir)

			if _, err := os.Stat(lp); err != nil {
				p := getPrinter()
				if p.Structured(map[string]any{"ok": false, "error": "no install log", "path": lp}) {
					return fmt.Errorf("no install log at %s", lp)
				}
				p.Error(fmt.Sprintf("no install log at %s", lp))
				return fmt.Errorf("no install log at %s", lp)
			}

			if !follow {
				return printLastLines(lp, lines)
			}
			return followLog(lp)
		},
	}
	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow the log for new entries")
	logsCmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")

	rootCmd.AddCommand(logsCmd)
}

// printLastLines prints the trailing n lines of the file. The install log
// stays small (one line per install), so reading it whole is fine.
func printLastLines(path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	start := 0
	if n > 0 && len(all) > n {
		start = len(all) - n
	}
	for _, line := range all[start:] {
		fmt.Println(line)
	}
	return nil
}

// followLog tails the install log until interrupted.
func followLog(path string) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:   tail.DiscardingLogger,
	})
	if err != nil {
		return err
	}
	defer t.Cleanup()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			fmt.Println(line.Text)
		case <-sigs:
			_ = t.Stop()
			return nil
		}
	}
}
