// File: cmd/check.go
package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hometax-cli/internal/observability"
	"github.com/xkilldash9x/hometax-cli/internal/report"
	"github.com/xkilldash9x/hometax-cli/internal/source"
)

func newCheckCmd() *cobra.Command {
	var writeRep bool

	checkCmd := &cobra.Command{
		Use:   "check [workbook]",
		Short: "Validate a workbook without opening the browser",
		Long: `Reads every row of the sheet and applies the same local checks as 'run'. Nothing is
sent anywhere. With --report the invalid rows are written to an error report.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			inputPath := cfg.Input().Path
			if len(args) == 1 {
				inputPath = args[0]
			}
			if inputPath == "" {
				return fmt.Errorf("no workbook given: pass a path or set input.path")
			}
			sheet, err := chooseSheet(inputPath, cfg.Input().Sheet)
			if err != nil {
				return err
			}

			src, err := source.Open(inputPath, sheet, cfg.Input().SourceOptions(), logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := src.Close(); err != nil {
					logger.Warn("Failed to close workbook.", zap.Error(err))
				}
			}()

			var (
				rows  [][]string
				rep   report.Report
				valid int
			)
			for {
				next, err := src.Next()
				if err != nil {
					return err
				}
				if next.Outcome == source.Exhausted {
					break
				}
				row := strconv.Itoa(next.Row)
				if next.Outcome == source.Invalid {
					rows = append(rows, []string{row, next.Raw.Cell(0), "invalid", next.Err.Error()})
					rep.Add(next.Row, next.Raw, report.KindValidation, next.Err.Error())
					continue
				}
				valid++
				rows = append(rows, []string{row, next.Record.Name, "ok", ""})
			}

			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				if err := renderTable(out, []string{"Row", "Name", "Status", "Reason"}, rows); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "%d valid, %d invalid\n", valid, rep.Len())

			if writeRep && rep.Len() > 0 {
				path, err := writeReport(cfg.Report(), inputPath, sheet, &rep, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Error report: %s\n", path)
			}
			return nil
		},
	}

	checkCmd.Flags().StringP("sheet", "s", "", "sheet to read (prompted when the workbook has several)")
	checkCmd.Flags().Int("header-rows", source.DefaultHeaderRows, "rows above the first record")
	checkCmd.Flags().String("report-dir", "", "directory of the error report")
	checkCmd.Flags().String("format", "", "error report format: xlsx or json")
	checkCmd.Flags().BoolVar(&writeRep, "report", false, "write the invalid rows to an error report")

	bindFlag(checkCmd, "sheet", "input.sheet")
	bindFlag(checkCmd, "header-rows", "input.header_rows")
	bindFlag(checkCmd, "report-dir", "report.dir")
	bindFlag(checkCmd, "format", "report.format")
	return checkCmd
}
