package invoqa

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/aiventory/invoqa/runner"
	"github.com/aiventory/invoqa/types"
)

// ResultFormatter is responsible for formatting and displaying run results.
type ResultFormatter interface {
	FormatResults(result *runner.RunResult, outcomes []types.CheckOutcome) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct {
	out io.Writer
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter.
func NewConsoleResultFormatter() *ConsoleResultFormatter {
	return &ConsoleResultFormatter{out: os.Stdout}
}

// FormatResults renders the per-suite breakdown of a run as a table.
func (f *ConsoleResultFormatter) FormatResults(result *runner.RunResult, outcomes []types.CheckOutcome) error {
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Business Logic Validation Results (%s)", formatRunDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Checks", "Passed", "Failed", "Skipped", "Status", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Checks", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	// Suite rows followed by their check rows. Outcomes are recorded in
	// execution order, so they line up with the suite stats.
	next := 0
	for _, suite := range result.Suites {
		suiteStatus := types.CheckStatusPass
		if suite.Failed > 0 {
			suiteStatus = types.CheckStatusFail
		} else if suite.Skipped == suite.Total {
			suiteStatus = types.CheckStatusSkip
		}
		t.AppendRow(table.Row{
			"Suite",
			suite.Name,
			"",
			"-",
			suite.Passed,
			suite.Failed,
			suite.Skipped,
			resultString(suiteStatus),
			"",
		})

		for i := 0; i < suite.Total && next < len(outcomes); i, next = i+1, next+1 {
			outcome := outcomes[next]
			prefix := "├──"
			if i == suite.Total-1 {
				prefix = "└──"
			}
			t.AppendRow(table.Row{
				"Check",
				fmt.Sprintf("%s %s", prefix, outcome.Name),
				formatRunDuration(outcome.Duration),
				"1",
				boolToInt(outcome.Status == types.CheckStatusPass),
				boolToInt(outcome.Status == types.CheckStatusFail),
				boolToInt(outcome.Status == types.CheckStatusSkip),
				resultString(outcome.Status),
				outcome.Error,
			})
		}
	}

	t.Render()
	return nil
}

// Helper function to convert bool to int
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// resultString returns a short string representing the check result
func resultString(status types.CheckStatus) string {
	switch status {
	case types.CheckStatusPass:
		return "✓ pass"
	case types.CheckStatusSkip:
		return "- skip"
	default:
		return "✗ fail"
	}
}

func formatRunDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
