// File: cmd/output.go
package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/xkilldash9x/hometax-cli/internal/orchestrator"
)

func renderTable(w io.Writer, header []string, rows [][]string) error {
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, header)
	data = append(data, rows...)
	return pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithData(data).
		WithWriter(w).
		Render()
}

// progressObserver prints one line per processed row.
type progressObserver struct {
	w io.Writer
}

func (p progressObserver) OnEvent(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.RunStarted:
		fmt.Fprintf(p.w, "Run %s started.\n", ev.RunID)
	case orchestrator.RecordProcessed:
		r := ev.Record
		switch r.Status {
		case orchestrator.StatusCommitted:
			fmt.Fprintf(p.w, "%s row %d %s\n", pterm.FgGreen.Sprint("✓"), r.Row, r.Name)
		case orchestrator.StatusDuplicate:
			fmt.Fprintf(p.w, "%s row %d %s already filed\n", pterm.FgCyan.Sprint("="), r.Row, r.Name)
		default:
			fmt.Fprintf(p.w, "%s row %d %s [%s] %s\n", pterm.FgRed.Sprint("✗"), r.Row, r.Name, r.Kind, r.Reason)
		}
	}
}

func printSummary(w io.Writer, res *orchestrator.Result, reportPath string) error {
	rows := [][]string{
		{"Processed", strconv.Itoa(res.Processed())},
		{"Committed", strconv.Itoa(res.Committed)},
		{"Already filed", strconv.Itoa(res.Duplicates)},
		{"Invalid", strconv.Itoa(res.Invalid)},
		{"Failed", strconv.Itoa(res.Failed)},
	}
	if res.Interrupted {
		rows = append(rows, []string{"Interrupted", "yes"})
	}
	if reportPath != "" {
		rows = append(rows, []string{"Error report", reportPath})
	}
	return renderTable(w, []string{"Run " + res.RunID, ""}, rows)
}
