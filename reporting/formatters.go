package reporting

import (
	"fmt"
	"os"
	"time"

	"github.com/aiventory/invoqa/types"
)

// ReportData contains everything a sink needs to render a report: the derived
// summary plus the ordered outcome sequence it was derived from. Every sink
// renders from the same ReportData, so artifacts produced from one in-memory
// state are identical modulo generation timestamp.
type ReportData struct {
	RunID       string
	GeneratedAt time.Time
	Summary     types.RunSummary
	Outcomes    []types.CheckOutcome
}

// BuildReportData snapshots a reporter into renderable form.
func BuildReportData(r *Reporter, runID string) *ReportData {
	return &ReportData{
		RunID:       runID,
		GeneratedAt: time.Now(),
		Summary:     r.Summarize(),
		Outcomes:    r.Outcomes(),
	}
}

// Formatter renders ReportData into a textual artifact.
type Formatter interface {
	Format(data *ReportData) (string, error)
}

// Writer delivers a rendered artifact to a destination.
type Writer interface {
	Write(content string) error
}

// FileWriter writes rendered artifacts to a file.
type FileWriter struct {
	path string
}

// NewFileWriter creates a writer targeting the given path.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Write writes the content to the file.
func (fw *FileWriter) Write(content string) error {
	return os.WriteFile(fw.path, []byte(content), 0644)
}

// StdoutWriter writes rendered artifacts to stdout.
type StdoutWriter struct{}

// Write writes the content to stdout.
func (sw *StdoutWriter) Write(content string) error {
	_, err := fmt.Print(content)
	return err
}

// formatDuration formats a duration for human display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// statusClass returns the CSS class / style identifier for a status.
func statusClass(status types.CheckStatus) string {
	switch status {
	case types.CheckStatusPass:
		return "pass"
	case types.CheckStatusFail:
		return "fail"
	case types.CheckStatusSkip:
		return "skip"
	default:
		return "unknown"
	}
}
