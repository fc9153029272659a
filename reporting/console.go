package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/aiventory/invoqa/types"
)

// maxFailuresListed bounds console output on runs with many failures; the
// full failure list is always available in the persisted artifacts.
const maxFailuresListed = 5

// ConsolePrinter emits run summaries to a console sink in a fixed,
// human-scannable layout.
type ConsolePrinter struct {
	out io.Writer
}

// NewConsolePrinter creates a printer targeting stdout.
func NewConsolePrinter() *ConsolePrinter {
	return &ConsolePrinter{out: os.Stdout}
}

// NewConsolePrinterTo creates a printer targeting the given writer.
func NewConsolePrinterTo(out io.Writer) *ConsolePrinter {
	return &ConsolePrinter{out: out}
}

// PrintSummary renders the summary table and a bounded failure list.
func (p *ConsolePrinter) PrintSummary(summary types.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetTitle(fmt.Sprintf("QA Run Summary (%s)", formatDuration(summary.TotalDuration)))

	t.AppendHeader(table.Row{"Total", "Passed", "Failed", "Skipped", "Pass Rate", "Avg Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Total", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Pass Rate", Align: text.AlignRight},
		{Name: "Avg Duration", Align: text.AlignRight},
	})

	t.AppendRow(table.Row{
		summary.TotalChecks,
		summary.Passed,
		summary.Failed,
		summary.Skipped,
		fmt.Sprintf("%.1f%%", summary.PassRate),
		formatDuration(summary.AverageDuration),
	})

	if summary.HasFailures() {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}
	t.Render()

	if !summary.HasFailures() {
		return
	}

	fmt.Fprintf(p.out, "\nFailed checks:\n")
	for i, e := range summary.Errors {
		if i == maxFailuresListed {
			fmt.Fprintf(p.out, "  ... and %d more (see persisted report)\n", len(summary.Errors)-maxFailuresListed)
			break
		}
		errText := e.Error
		if errText == "" {
			errText = "(no error message)"
		}
		fmt.Fprintf(p.out, "  ✗ %s: %s\n", e.Check, errText)
	}
}
