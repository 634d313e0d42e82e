// internal/report/writer.go
package report

import (
	"fmt"
	"os"
	"strconv"

	json "github.com/json-iterator/go"
	"github.com/xuri/excelize/v2"
)

// Sheet names used in the xlsx report.
const (
	RowsSheet    = "오류사항"
	ReasonsSheet = "사유"
)

// Writer persists a report to a file.
type Writer interface {
	Write(path string, r *Report) error
	// Ext is the file extension the writer produces, without the dot.
	Ext() string
}

// New returns a writer for the given format ("xlsx" or "json").
func New(format string) (Writer, error) {
	switch format {
	case "", "xlsx":
		return xlsxWriter{}, nil
	case "json":
		return jsonWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

type xlsxWriter struct{}

func (xlsxWriter) Ext() string { return "xlsx" }

// Write lays the failed rows out under the canonical header on the first sheet
// so the file can be fed back as input, and lists row, kind and reason on a
// second sheet.
func (xlsxWriter) Write(path string, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RowsSheet); err != nil {
		return fmt.Errorf("report: naming sheet: %w", err)
	}
	if err := setRow(f, RowsSheet, 1, r.Header()); err != nil {
		return err
	}
	for i, row := range r.Aligned() {
		if err := setRow(f, RowsSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(ReasonsSheet); err != nil {
		return fmt.Errorf("report: adding reasons sheet: %w", err)
	}
	if err := setRow(f, ReasonsSheet, 1, []string{"행", "구분", "사유"}); err != nil {
		return err
	}
	for i, e := range r.Entries() {
		if err := setRow(f, ReasonsSheet, i+2, []string{strconv.Itoa(e.Row), string(e.Kind), e.Reason}); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: saving %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("report: writing row %d of %s: %w", row, sheet, err)
	}
	return nil
}

type jsonWriter struct{}

func (jsonWriter) Ext() string { return "json" }

type jsonReport struct {
	Columns []string    `json:"columns"`
	Rows    [][]string  `json:"rows"`
	Entries []jsonEntry `json:"entries"`
}

type jsonEntry struct {
	Row    int    `json:"row"`
	Kind   Kind   `json:"kind"`
	Reason string `json:"reason"`
}

func (jsonWriter) Write(path string, r *Report) error {
	out := jsonReport{
		Columns: r.Header(),
		Rows:    r.Aligned(),
		Entries: make([]jsonEntry, 0, r.Len()),
	}
	for _, e := range r.Entries() {
		out.Entries = append(out.Entries, jsonEntry{Row: e.Row, Kind: e.Kind, Reason: e.Reason})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encoding json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: saving %s: %w", path, err)
	}
	return nil
}

// ReadTable loads the rows sheet of an xlsx report: its header and data rows.
func ReadTable(path string) (header []string, rows [][]string, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("report: opening %s: %w", path, err)
	}
	defer f.Close()

	all, err := f.GetRows(RowsSheet)
	if err != nil {
		return nil, nil, fmt.Errorf("report: reading %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}
