// File: cmd/example.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hometax-cli/internal/observability"
	"github.com/xkilldash9x/hometax-cli/internal/record"
	"github.com/xkilldash9x/hometax-cli/internal/source"
)

const exampleSheet = "근로소득"

func newExampleCmd() *cobra.Command {
	var (
		output string
		open   bool
	)

	exampleCmd := &cobra.Command{
		Use:   "example",
		Short: "Write a template workbook with one sample row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := writeExampleWorkbook(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", output)
			if open {
				if err := openFile(output); err != nil {
					observability.GetLogger().Warn("Could not open the template.", zap.Error(err))
				}
			}
			return nil
		},
	}

	exampleCmd.Flags().StringVarP(&output, "output", "o", "근로소득_양식.xlsx", "path of the template workbook")
	exampleCmd.Flags().BoolVar(&open, "open", false, "open the template after writing it")
	return exampleCmd
}

// writeExampleWorkbook lays out a sheet the way 'run' expects it: title and
// notes above the header, which sits on the last header row.
func writeExampleWorkbook(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exampleSheet); err != nil {
		return fmt.Errorf("naming template sheet: %w", err)
	}

	notes := []string{
		"근로소득 지급명세서 입력 자료",
		"성명은 한글, 주민등록번호는 하이픈 없이 13자리로 입력합니다.",
		"시작일자와 종료일자는 YYYYMMDD 형식입니다.",
		"금액은 원 단위 정수로 입력합니다.",
		"7행부터 한 행에 한 명씩 입력합니다.",
	}
	for i, n := range notes {
		if err := f.SetCellValue(exampleSheet, fmt.Sprintf("A%d", i+1), n); err != nil {
			return err
		}
	}

	header := make([]interface{}, record.Width)
	for i, c := range record.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(exampleSheet, fmt.Sprintf("A%d", source.DefaultHeaderRows), &header); err != nil {
		return fmt.Errorf("writing template header: %w", err)
	}

	sample := make([]interface{}, record.Width)
	for i := range sample {
		sample[i] = 0
	}
	sample[record.ColName] = "홍길동"
	sample[record.ColPersonalID] = "9001011234567"
	sample[record.ColStartDate] = "20240101"
	sample[record.ColEndDate] = "20241231"
	sample[4] = 30000000
	sample[record.ColSalary] = 30000000
	sample[record.ColIncomeTax] = 1200000
	sample[record.ColLocalIncomeTax] = 120000
	sample[record.ColNationalPension] = 1350000
	sample[record.ColHealthInsurance] = 1060000
	sample[record.ColEmploymentInsurance] = 270000
	if err := f.SetSheetRow(exampleSheet, fmt.Sprintf("A%d", source.DefaultHeaderRows+1), &sample); err != nil {
		return fmt.Errorf("writing template sample: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving template %s: %w", path, err)
	}
	return nil
}
