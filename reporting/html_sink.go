package reporting

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"
)

//go:embed results.tmpl.html
var resultsTemplate string

const (
	htmlReportPattern = "test_report_%s.html"
	htmlLatestName    = "test_report_latest.html"
)

// htmlReportData is the structure consumed by the HTML template: headline
// figures plus one row per outcome. FAIL rows carry a distinct status class
// so they stand out visually.
type htmlReportData struct {
	RunID         string
	GeneratedText string
	DurationText  string
	PassRateText  string
	AverageText   string
	Summary       struct {
		TotalChecks int
		Passed      int
		Failed      int
		Skipped     int
	}
	Rows []htmlReportRow
}

type htmlReportRow struct {
	Name          string
	Status        string
	StatusClass   string
	DurationText  string
	TimestampText string
	Detail        string
}

// HTMLFormatter renders ReportData as a self-contained HTML document.
type HTMLFormatter struct {
	template *template.Template
}

// NewHTMLFormatter creates an HTML formatter from the embedded template.
func NewHTMLFormatter() (*HTMLFormatter, error) {
	tmpl, err := template.New("results").Parse(resultsTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}
	return &HTMLFormatter{template: tmpl}, nil
}

// Format renders the report data through the template.
func (hf *HTMLFormatter) Format(data *ReportData) (string, error) {
	htmlData := htmlReportData{
		RunID:         data.RunID,
		GeneratedText: data.GeneratedAt.Format(time.RFC3339),
		DurationText:  formatDuration(data.Summary.TotalDuration),
		PassRateText:  fmt.Sprintf("%.1f", data.Summary.PassRate),
		AverageText:   formatDuration(data.Summary.AverageDuration),
		Rows:          make([]htmlReportRow, 0, len(data.Outcomes)),
	}
	htmlData.Summary.TotalChecks = data.Summary.TotalChecks
	htmlData.Summary.Passed = data.Summary.Passed
	htmlData.Summary.Failed = data.Summary.Failed
	htmlData.Summary.Skipped = data.Summary.Skipped

	for _, o := range data.Outcomes {
		row := htmlReportRow{
			Name:          o.Name,
			Status:        string(o.Status),
			StatusClass:   statusClass(o.Status),
			DurationText:  formatDuration(o.Duration),
			TimestampText: o.Timestamp.Format(time.RFC3339),
			Detail:        o.Error,
		}
		if row.Detail == "" && len(o.Details) > 0 {
			// Details are opaque; render them compactly and keep going even
			// if the map holds something JSON cannot express.
			if encoded, err := json.Marshal(o.Details); err == nil {
				row.Detail = string(encoded)
			}
		}
		htmlData.Rows = append(htmlData.Rows, row)
	}

	var buf bytes.Buffer
	if err := hf.template.Execute(&buf, htmlData); err != nil {
		return "", fmt.Errorf("failed to render HTML report: %w", err)
	}
	return buf.String(), nil
}

// HTMLSink persists HTML artifacts into a directory, refreshing a stable
// "latest" alias alongside the per-run file.
type HTMLSink struct {
	dir       string
	formatter *HTMLFormatter
}

// NewHTMLSink creates a sink writing into dir (created on first persist).
func NewHTMLSink(dir string) (*HTMLSink, error) {
	formatter, err := NewHTMLFormatter()
	if err != nil {
		return nil, err
	}
	return &HTMLSink{dir: dir, formatter: formatter}, nil
}

// Persist writes the per-run artifact and its latest alias, returning the
// per-run path.
func (s *HTMLSink) Persist(data *ReportData) (string, error) {
	content, err := s.formatter.Format(data)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory %s: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf(htmlReportPattern, data.RunID))
	if err := NewFileWriter(path).Write(content); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}

	latest := filepath.Join(s.dir, htmlLatestName)
	if err := NewFileWriter(latest).Write(content); err != nil {
		return "", fmt.Errorf("failed to refresh latest report alias %s: %w", latest, err)
	}

	return path, nil
}
