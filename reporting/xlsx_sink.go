package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	xlsxReportPattern = "test_report_%s.xlsx"
	xlsxLatestName    = "test_report_latest.xlsx"

	summarySheet = "Summary"
	resultsSheet = "Results"
)

// XLSXSink persists a spreadsheet artifact with a Summary sheet of headline
// figures and a Results sheet of one row per outcome. Content mirrors the
// JSON and HTML artifacts exactly; only the container differs.
type XLSXSink struct {
	dir string
}

// NewXLSXSink creates a sink writing into dir (created on first persist).
func NewXLSXSink(dir string) *XLSXSink {
	return &XLSXSink{dir: dir}
}

// Persist writes the per-run workbook and its latest alias, returning the
// per-run path.
func (s *XLSXSink) Persist(data *ReportData) (string, error) {
	f, err := s.render(data)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory %s: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf(xlsxReportPattern, data.RunID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}

	latest := filepath.Join(s.dir, xlsxLatestName)
	if err := f.SaveAs(latest); err != nil {
		return "", fmt.Errorf("failed to refresh latest report alias %s: %w", latest, err)
	}

	return path, nil
}

func (s *XLSXSink) render(data *ReportData) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to prepare summary sheet: %w", err)
	}

	summaryRows := [][]any{
		{"Run ID", data.RunID},
		{"Generated", data.GeneratedAt.Format(time.RFC3339)},
		{"Total Checks", data.Summary.TotalChecks},
		{"Passed", data.Summary.Passed},
		{"Failed", data.Summary.Failed},
		{"Skipped", data.Summary.Skipped},
		{"Pass Rate (%)", data.Summary.PassRate},
		{"Total Duration (s)", data.Summary.TotalDuration.Seconds()},
		{"Average Duration (s)", data.Summary.AverageDuration.Seconds()},
		{"Start Time", data.Summary.StartTime.Format(time.RFC3339)},
		{"End Time", data.Summary.EndTime.Format(time.RFC3339)},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}

	if _, err := f.NewSheet(resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to create results sheet: %w", err)
	}

	header := []any{"Check", "Status", "Duration (s)", "Timestamp", "Error", "Details"}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write results header: %w", err)
	}

	for i, o := range data.Outcomes {
		details := ""
		if len(o.Details) > 0 {
			if encoded, err := json.Marshal(o.Details); err == nil {
				details = string(encoded)
			}
		}
		row := []any{o.Name, string(o.Status), o.Duration.Seconds(), o.Timestamp.Format(time.RFC3339), o.Error, details}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write results row %d: %w", i+2, err)
		}
	}

	return f, nil
}
