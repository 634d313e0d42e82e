// internal/source/workbook.go
package source

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/hometax-cli/internal/record"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ErrSheetNotFound is returned when the requested sheet is not in the workbook.
var ErrSheetNotFound = errors.New("sheet not found")

// sheetCursor streams rows from one worksheet.
type sheetCursor struct {
	file *excelize.File
	rows *excelize.Rows
}

func (c *sheetCursor) Next() bool {
	return c.rows.Next()
}

// Row reads raw cell values so numbers are not run through display formats.
func (c *sheetCursor) Row() (record.RawRow, error) {
	cols, err := c.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	return record.RawRow(cols), nil
}

func (c *sheetCursor) Close() error {
	return errors.Join(c.rows.Close(), c.file.Close())
}

// Open opens a workbook and positions a Source on the named sheet. An empty
// sheet name selects the first sheet.
func Open(path, sheet string, opts Options, logger *zap.Logger) (*Source, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: opening workbook %s: %w", path, err)
	}

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			_ = f.Close()
			return nil, fmt.Errorf("source: workbook %s has no sheets: %w", path, ErrSheetNotFound)
		}
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		_ = f.Close()
		return nil, fmt.Errorf("source: %q in %s: %w", sheet, path, ErrSheetNotFound)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("source: reading sheet %q: %w", sheet, err)
	}

	src, err := New(&sheetCursor{file: f, rows: rows}, opts, logger)
	if err != nil {
		_ = rows.Close()
		_ = f.Close()
		return nil, err
	}
	src.logger.Info("Opened input sheet.",
		zap.String("path", path),
		zap.String("sheet", sheet),
		zap.Int("header_rows", opts.HeaderRows))
	return src, nil
}

// SheetNames lists the worksheets of a workbook in tab order.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: opening workbook %s: %w", path, err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}
