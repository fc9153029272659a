package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aiventory/invoqa/types"
)

const (
	jsonResultsPattern = "test_results_%s.json"
	jsonLatestName     = "test_results_latest.json"
)

// reportDocument is the persisted structured-report shape: a summary object
// plus the ordered list of outcome records. Durations are persisted as float
// seconds and timestamps as RFC 3339, matching what downstream tooling parses.
type reportDocument struct {
	Summary summaryDocument   `json:"summary"`
	Results []outcomeDocument `json:"results"`
}

type summaryDocument struct {
	TotalTests      int             `json:"total_tests"`
	Passed          int             `json:"passed"`
	Failed          int             `json:"failed"`
	Skipped         int             `json:"skipped"`
	PassRate        float64         `json:"pass_rate"`
	TotalDuration   float64         `json:"total_duration"`
	AverageDuration float64         `json:"average_duration"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	Errors          []errorDocument `json:"errors"`
}

type errorDocument struct {
	Test  string `json:"test"`
	Error string `json:"error"`
}

type outcomeDocument struct {
	TestName  string         `json:"test_name"`
	Status    string         `json:"status"`
	Duration  float64        `json:"duration"`
	Timestamp time.Time      `json:"timestamp"`
	Error     *string        `json:"error"`
	Details   map[string]any `json:"details"`
}

func buildDocument(data *ReportData) reportDocument {
	doc := reportDocument{
		Summary: summaryDocument{
			TotalTests:      data.Summary.TotalChecks,
			Passed:          data.Summary.Passed,
			Failed:          data.Summary.Failed,
			Skipped:         data.Summary.Skipped,
			PassRate:        data.Summary.PassRate,
			TotalDuration:   data.Summary.TotalDuration.Seconds(),
			AverageDuration: data.Summary.AverageDuration.Seconds(),
			StartTime:       data.Summary.StartTime,
			EndTime:         data.Summary.EndTime,
			Errors:          make([]errorDocument, 0, len(data.Summary.Errors)),
		},
		Results: make([]outcomeDocument, 0, len(data.Outcomes)),
	}

	for _, e := range data.Summary.Errors {
		doc.Summary.Errors = append(doc.Summary.Errors, errorDocument{Test: e.Check, Error: e.Error})
	}

	for _, o := range data.Outcomes {
		rec := outcomeDocument{
			TestName:  o.Name,
			Status:    string(o.Status),
			Duration:  o.Duration.Seconds(),
			Timestamp: o.Timestamp,
			Details:   o.Details,
		}
		if o.Error != "" {
			errText := o.Error
			rec.Error = &errText
		}
		doc.Results = append(doc.Results, rec)
	}

	return doc
}

// JSONFormatter renders ReportData as the structured JSON artifact.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format renders the report document as indented JSON.
func (jf *JSONFormatter) Format(data *ReportData) (string, error) {
	out, err := json.MarshalIndent(buildDocument(data), "", "  ")
	if err != nil {
		// Details maps are caller-supplied and may hold unmarshalable values.
		return "", fmt.Errorf("failed to serialize report: %w", err)
	}
	return string(out) + "\n", nil
}

// JSONSink persists structured JSON artifacts into a directory, refreshing a
// stable "latest" alias alongside the per-run file.
type JSONSink struct {
	dir       string
	formatter *JSONFormatter
}

// NewJSONSink creates a sink writing into dir (created on first persist).
func NewJSONSink(dir string) *JSONSink {
	return &JSONSink{dir: dir, formatter: NewJSONFormatter()}
}

// Persist writes the per-run artifact and its latest alias, returning the
// per-run path. I/O errors are returned to the caller; a silently lost
// report artifact defeats the point of the harness.
func (s *JSONSink) Persist(data *ReportData) (string, error) {
	content, err := s.formatter.Format(data)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory %s: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf(jsonResultsPattern, data.RunID))
	if err := NewFileWriter(path).Write(content); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}

	latest := filepath.Join(s.dir, jsonLatestName)
	if err := NewFileWriter(latest).Write(content); err != nil {
		return "", fmt.Errorf("failed to refresh latest report alias %s: %w", latest, err)
	}

	return path, nil
}

// ParseReport reads a structured artifact back into summary and outcomes.
// Used by the history subcommand and by round-trip verification.
func ParseReport(path string) (types.RunSummary, []types.CheckOutcome, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.RunSummary{}, nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}

	var doc reportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return types.RunSummary{}, nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}

	summary := types.RunSummary{
		TotalChecks:     doc.Summary.TotalTests,
		Passed:          doc.Summary.Passed,
		Failed:          doc.Summary.Failed,
		Skipped:         doc.Summary.Skipped,
		PassRate:        doc.Summary.PassRate,
		TotalDuration:   secondsToDuration(doc.Summary.TotalDuration),
		AverageDuration: secondsToDuration(doc.Summary.AverageDuration),
		StartTime:       doc.Summary.StartTime,
		EndTime:         doc.Summary.EndTime,
		Errors:          make([]types.CheckError, 0, len(doc.Summary.Errors)),
	}
	for _, e := range doc.Summary.Errors {
		summary.Errors = append(summary.Errors, types.CheckError{Check: e.Test, Error: e.Error})
	}

	outcomes := make([]types.CheckOutcome, 0, len(doc.Results))
	for _, rec := range doc.Results {
		status, err := types.ParseCheckStatus(rec.Status)
		if err != nil {
			return types.RunSummary{}, nil, fmt.Errorf("report %s: %w", path, err)
		}
		outcome := types.CheckOutcome{
			Name:      rec.TestName,
			Status:    status,
			Duration:  secondsToDuration(rec.Duration),
			Timestamp: rec.Timestamp,
			Details:   rec.Details,
		}
		if rec.Error != nil {
			outcome.Error = *rec.Error
		}
		outcomes = append(outcomes, outcome)
	}

	return summary, outcomes, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
