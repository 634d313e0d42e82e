// internal/report/report.go
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xkilldash9x/hometax-cli/internal/record"
)

// Kind classifies why a row ended up in the report.
type Kind string

const (
	// KindValidation is a local row failure; the row never reached the site.
	KindValidation Kind = "validation"
	// KindRejected is a remote rejection of the identification step.
	KindRejected Kind = "rejected"
	// KindRecalculation is an unexpected recalculation result.
	KindRecalculation Kind = "recalculation"
	// KindSubmission is an unexpected result of the final add.
	KindSubmission Kind = "submission"
	// KindAutomation covers timeouts, missing controls and any other page failure.
	KindAutomation Kind = "automation"
)

// Entry pairs a failed row with the reason it failed.
type Entry struct {
	Row    int           `json:"row"`
	Raw    record.RawRow `json:"raw"`
	Kind   Kind          `json:"kind"`
	Reason string        `json:"reason"`
}

// Report is the ordered collection of failed rows for one run. The zero value
// is an empty report ready to use.
type Report struct {
	entries []Entry
}

// Add appends an entry. The raw row is copied.
func (r *Report) Add(row int, raw record.RawRow, kind Kind, reason string) {
	r.entries = append(r.entries, Entry{Row: row, Raw: raw.Clone(), Kind: kind, Reason: reason})
}

// Entries returns the entries in insertion order.
func (r *Report) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len is the number of failed rows.
func (r *Report) Len() int {
	return len(r.entries)
}

// Width is the number of columns the report table needs: the canonical
// schema, widened to keep any extra input columns.
func (r *Report) Width() int {
	w := record.Width
	for _, e := range r.entries {
		if len(e.Raw) > w {
			w = len(e.Raw)
		}
	}
	return w
}

// Header returns the canonical column names followed by positional indices for
// extra columns.
func (r *Report) Header() []string {
	w := r.Width()
	header := make([]string, w)
	copy(header, record.Columns[:])
	for i := record.Width; i < w; i++ {
		header[i] = fmt.Sprintf("%d", i)
	}
	return header
}

// Aligned returns every entry's row padded to Width.
func (r *Report) Aligned() [][]string {
	w := r.Width()
	rows := make([][]string, len(r.entries))
	for i, e := range r.entries {
		row := make([]string, w)
		copy(row, e.Raw)
		rows[i] = row
	}
	return rows
}

// DefaultPath builds the conventional report file name for an input workbook:
// 오류사항_<input base>_<sheet>_<timestamp>.<ext> inside dir.
func DefaultPath(dir, inputPath, sheet, ext string, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	name := fmt.Sprintf("오류사항_%s_%s_%s.%s", base, sheet, now.Format("20060102_150405"), ext)
	return filepath.Join(dir, name)
}
