// File: cmd/history.go
package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/hometax-cli/internal/observability"
)

func newHistoryCmd(journals journalProvider) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			j, cleanup, err := journals.Open(ctx, cfg.Database(), observability.GetLogger())
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := j.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				interrupted := ""
				if r.Interrupted {
					interrupted = "yes"
				}
				rows = append(rows, []string{
					r.StartedAt.Local().Format("2006-01-02 15:04"),
					filepath.Base(r.InputPath),
					r.Sheet,
					strconv.Itoa(r.Committed),
					strconv.Itoa(r.Duplicates),
					strconv.Itoa(r.Invalid),
					strconv.Itoa(r.Failed),
					interrupted,
				})
			}
			return renderTable(cmd.OutOrStdout(),
				[]string{"Started", "Workbook", "Sheet", "Committed", "Already filed", "Invalid", "Failed", "Interrupted"},
				rows)
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return historyCmd
}
