// File: cmd/logs.go
package cmd

import (
	"fmt"
	"io"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/hometax-cli/internal/observability"
)

func newLogsCmd() *cobra.Command {
	var (
		follow bool
		lines  int
	)

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the JSON run log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			path, err := observability.LogFilePath(cfg.Logger())
			if err != nil {
				return err
			}
			if path == "" {
				return fmt.Errorf("logger.log_file is not set")
			}

			last, err := tailLines(path, lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, l := range last {
				fmt.Fprintln(out, l)
			}
			if !follow {
				return nil
			}
			return followLog(cmd, path, out)
		},
	}

	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new lines")
	logsCmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of trailing lines to print (0 for all)")
	return logsCmd
}

// tailLines reads path to the end and returns its last n lines, or every
// line when n is not positive.
func tailLines(path string, n int) ([]string, error) {
	t, err := tail.TailFile(path, tail.Config{
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer t.Cleanup()

	var out []string
	for line := range t.Lines {
		if line.Err != nil {
			return nil, fmt.Errorf("reading log file: %w", line.Err)
		}
		out = append(out, line.Text)
		if n > 0 && len(out) > n {
			out = out[1:]
		}
	}
	return out, nil
}

// followLog prints lines appended to path until the command is interrupted.
func followLog(cmd *cobra.Command, path string, out io.Writer) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to follow log file: %w", err)
	}
	defer func() {
		_ = t.Stop()
		t.Cleanup()
	}()

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(out, line.Text)
		}
	}
}
