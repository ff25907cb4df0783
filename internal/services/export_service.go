package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/klefe6/almanac/pkg/contracts/domain"
)

// ExportFormat names a supported report download format.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat maps a query value to a format. Empty selects CSV.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownFormat)
}

// ContentType returns the MIME type to serve the format under.
func (f ExportFormat) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// utf8BOM helps Excel recognize the CSV as UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportService renders computed statistics reports as downloadable
// CSV and XLSX documents.
type ExportService struct {
	logger *slog.Logger
}

// NewExportService creates a new export service
func NewExportService(logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{
		logger: logger.With(slog.String("component", "export_service")),
	}
}

// Export renders the report in the given format.
func (s *ExportService) Export(report *domain.StatsReport, format ExportFormat) ([]byte, error) {
	switch format {
	case FormatCSV:
		return s.CSV(report)
	case FormatXLSX:
		return s.XLSX(report)
	}
	return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
}

// Filename suggests a download filename for the report.
func (s *ExportService) Filename(report *domain.StatsReport, format ExportFormat) string {
	return fmt.Sprintf("%s_%s_stats.%s", report.Product, report.Grouping, format)
}

// CSV renders the report as a flat UTF-8 CSV table, one row per
// bucket, prefixed with a BOM for Excel compatibility.
func (s *ExportService) CSV(report *domain.StatsReport) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	headers := []string{
		"Bucket", "Count",
		"PctMean", "PctTrimmedMean", "PctMedian", "PctMode", "PctOutlierMean", "PctVariance",
		"RangeMean", "RangeTrimmedMean", "RangeMedian", "RangeMode", "RangeOutlierMean", "RangeVariance",
	}
	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("write headers: %w", err)
	}

	for i, b := range report.Buckets {
		row := []string{
			b.Bucket,
			formatCount(b.Count),
			formatMeasure(b.PctChange.Mean),
			formatMeasure(b.PctChange.TrimmedMean),
			formatMeasure(b.PctChange.Median),
			formatMeasure(b.PctChange.Mode),
			formatMeasure(b.PctChange.OutlierMean),
			formatMeasure(b.PctChange.Variance),
			formatMeasure(b.Range.Mean),
			formatMeasure(b.Range.TrimmedMean),
			formatMeasure(b.Range.Median),
			formatMeasure(b.Range.Mode),
			formatMeasure(b.Range.OutlierMean),
			formatMeasure(b.Range.Variance),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write record %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSX renders the report as a workbook with a summary sheet and one
// sheet per measure series.
func (s *ExportService) XLSX(report *domain.StatsReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), "Summary"); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := s.writeSummarySheet(f, report); err != nil {
		return nil, err
	}
	if err := s.writeMeasureSheet(f, "Pct Change", report.Buckets, func(b domain.BucketStats) domain.Measures {
		return b.PctChange
	}); err != nil {
		return nil, err
	}
	if err := s.writeMeasureSheet(f, "Range", report.Buckets, func(b domain.BucketStats) domain.Measures {
		return b.Range
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *ExportService) writeSummarySheet(f *excelize.File, report *domain.StatsReport) error {
	rows := [][]any{
		{"Product", report.Product},
		{"Grouping", string(report.Grouping)},
		{"Trim %", report.TrimPct},
		{"Total Days", report.TotalDays},
		{"Filtered Days", report.FilteredDays},
		{"Buckets", len(report.Buckets)},
		{"Generated", time.Now().Format(time.RFC3339)},
	}
	if report.Hour != nil {
		rows = append(rows, []any{"Hour", *report.Hour})
	}
	if report.From != nil {
		rows = append(rows, []any{"From", report.From.Format("2006-01-02")})
	}
	if report.To != nil {
		rows = append(rows, []any{"To", report.To.Format("2006-01-02")})
	}
	for _, warn := range report.Warnings {
		rows = append(rows, []any{"Warning", warn})
	}

	for i, row := range rows {
		for j, val := range row {
			col, err := excelize.ColumnNumberToName(j + 1)
			if err != nil {
				return fmt.Errorf("summary cell: %w", err)
			}
			cell := fmt.Sprintf("%s%d", col, i+1)
			if err := f.SetCellValue("Summary", cell, val); err != nil {
				return fmt.Errorf("summary cell %s: %w", cell, err)
			}
		}
	}
	if err := f.SetColWidth("Summary", "A", "A", 16); err != nil {
		return fmt.Errorf("summary widths: %w", err)
	}
	return f.SetColWidth("Summary", "B", "B", 40)
}

func (s *ExportService) writeMeasureSheet(f *excelize.File, name string, buckets []domain.BucketStats, pick func(domain.BucketStats) domain.Measures) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("sheet %s: %w", name, err)
	}

	headers := []any{"Bucket", "Count", "Mean", "TrimmedMean", "Median", "Mode", "OutlierMean", "Variance"}
	rows := make([][]any, 0, len(buckets)+1)
	rows = append(rows, headers)
	for _, b := range buckets {
		m := pick(b)
		rows = append(rows, []any{
			b.Bucket, b.Count,
			m.Mean, m.TrimmedMean, m.Median, m.Mode, m.OutlierMean, m.Variance,
		})
	}

	for i, row := range rows {
		for j, val := range row {
			col, err := excelize.ColumnNumberToName(j + 1)
			if err != nil {
				return fmt.Errorf("sheet %s cell: %w", name, err)
			}
			cell := fmt.Sprintf("%s%d", col, i+1)
			if err := f.SetCellValue(name, cell, val); err != nil {
				return fmt.Errorf("sheet %s cell %s: %w", name, cell, err)
			}
		}
	}
	return f.SetColWidth(name, "A", "H", 14)
}

// formatMeasure keeps six decimal places so fractional percent values
// survive the round trip through spreadsheet tools.
func formatMeasure(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

func formatCount(n int) string {
	return fmt.Sprintf("%d", n)
}
