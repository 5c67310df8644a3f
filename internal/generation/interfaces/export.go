package interfaces

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	generation "smartmeter-synth/internal/generation/domain"
	"smartmeter-synth/internal/observability/metrics"
)

// Format is a dataset rendering.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

var (
	// ErrUnsupportedFormat is returned for unknown export formats.
	ErrUnsupportedFormat = errors.New("export: unsupported format")
	// ErrExportTooLarge is returned when a dataset does not fit the format.
	ErrExportTooLarge = errors.New("export: dataset too large for format")
)

// xlsxMaxDataRows is the sheet row capacity left after the header row.
var xlsxMaxDataRows = excelize.TotalRows - 1

var csvHeader = []string{"mpan", "date", "classification", "qty_id", "period", "hhc", "aei"}

// ParseFormat parses a format name case-insensitively.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Export renders dataset in format to w and records the export metrics.
func Export(w io.Writer, format Format, dataset *generation.Dataset) error {
	started := time.Now()
	err := export(w, format, dataset)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveExport(string(format), result, time.Since(started))
	return err
}

func export(w io.Writer, format Format, dataset *generation.Dataset) error {
	if dataset == nil {
		return errors.New("export: nil dataset")
	}
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(ToMeterRecords(dataset))
	case FormatCSV:
		return WriteDatasetCSV(w, dataset)
	case FormatXLSX:
		payload, err := BuildDatasetXLSX(dataset)
		if err != nil {
			return err
		}
		_, err = w.Write(payload)
		return err
	case FormatPDF:
		payload, err := BuildDatasetPDF(dataset)
		if err != nil {
			return err
		}
		_, err = w.Write(payload)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// WriteDatasetCSV writes one row per period. Missing days get a single row
// with empty period columns.
func WriteDatasetCSV(w io.Writer, dataset *generation.Dataset) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range datasetRows(dataset) {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// BuildDatasetXLSX renders a summary sheet and a measurements sheet. Datasets
// with more measurement rows than a sheet holds are rejected with
// ErrExportTooLarge.
func BuildDatasetXLSX(dataset *generation.Dataset) ([]byte, error) {
	if rows := datasetRowCount(dataset); rows > xlsxMaxDataRows {
		return nil, fmt.Errorf("%w: %d measurement rows, xlsx sheet holds %d", ErrExportTooLarge, rows, xlsxMaxDataRows)
	}

	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	measurementsSheet := "measurements"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(measurementsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Synthetic Consumption")
	_ = f.SetCellValue(summarySheet, "A2", "Site")
	_ = f.SetCellValue(summarySheet, "B2", dataset.SiteName)
	_ = f.SetCellValue(summarySheet, "A3", "Business Type")
	_ = f.SetCellValue(summarySheet, "B3", string(dataset.BusinessType))
	_ = f.SetCellValue(summarySheet, "A4", "Period (min)")
	_ = f.SetCellValue(summarySheet, "B4", dataset.PeriodMinutes)
	_ = f.SetCellValue(summarySheet, "A5", "Seed")
	if dataset.Deterministic {
		_ = f.SetCellValue(summarySheet, "B5", dataset.Seed)
	}

	summaryHeader := []string{"MPAN", "Start", "End", "Days Actual", "Days Estimated", "Days Missing", "AI Yearly (kWh)"}
	if err := f.SetSheetRow(summarySheet, "A7", &summaryHeader); err != nil {
		return nil, err
	}
	for i, meter := range dataset.Meters {
		row := []any{
			meter.Identity.Mpan,
			meter.StartDate.Format(generation.DateLayout),
			meter.EndDate.Format(generation.DateLayout),
			meter.Yearly.DaysActual,
			meter.Yearly.DaysEstimated,
			meter.Yearly.DaysMissing,
		}
		if meter.Yearly.AIYearlyValue != nil {
			row = append(row, meter.Yearly.AIYearlyValue.InexactFloat64())
		}
		if err := setRow(f, summarySheet, i+8, row); err != nil {
			return nil, err
		}
	}

	header := append([]string(nil), csvHeader...)
	if err := f.SetSheetRow(measurementsSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, row := range datasetRows(dataset) {
		if err := setRow(f, measurementsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow[T any](f *excelize.File, sheet string, row int, values []T) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export: %s row %d: %w", sheet, row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export: %s row %d: %w", sheet, row, err)
	}
	return nil
}

// BuildDatasetPDF renders a per-meter summary.
func BuildDatasetPDF(dataset *generation.Dataset) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Synthetic Consumption")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Site: %s", dataset.SiteName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Business Type: %s", dataset.BusinessType))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %d min", dataset.PeriodMinutes))
	pdf.Ln(5)
	if dataset.Deterministic {
		pdf.Cell(0, 6, fmt.Sprintf("Seed: %d", dataset.Seed))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Meters: %d", len(dataset.Meters)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "MPAN", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Actual", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Estimated", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Missing", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "AI Yearly (kWh)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, meter := range dataset.Meters {
		yearly := ""
		if meter.Yearly.AIYearlyValue != nil {
			yearly = meter.Yearly.AIYearlyValue.StringFixed(3)
		}
		pdf.CellFormat(40, 6, meter.Identity.Mpan, "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, strconv.Itoa(meter.Yearly.DaysActual), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, strconv.Itoa(meter.Yearly.DaysEstimated), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, strconv.Itoa(meter.Yearly.DaysMissing), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, yearly, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// datasetRowCount returns len(datasetRows(dataset)) without building the rows.
func datasetRowCount(dataset *generation.Dataset) int {
	count := 0
	for _, meter := range dataset.Meters {
		for _, days := range [][]generation.DayMeasurement{meter.Actual, meter.Estimated, meter.Missing} {
			for _, day := range days {
				count += max(len(day.Periods), 1)
			}
		}
	}
	return count
}

func datasetRows(dataset *generation.Dataset) [][]string {
	var rows [][]string
	for _, meter := range dataset.Meters {
		groups := []struct {
			class generation.Classification
			days  []generation.DayMeasurement
		}{
			{generation.ClassificationActual, meter.Actual},
			{generation.ClassificationEstimated, meter.Estimated},
			{generation.ClassificationMissing, meter.Missing},
		}
		for _, group := range groups {
			for _, day := range group.days {
				date := day.Date.Format(generation.DateLayout)
				if len(day.Periods) == 0 {
					rows = append(rows, []string{meter.Identity.Mpan, date, string(group.class), day.QuantityID, "", "", ""})
					continue
				}
				for _, p := range day.Periods {
					rows = append(rows, []string{
						meter.Identity.Mpan,
						date,
						string(group.class),
						day.QuantityID,
						strconv.Itoa(p.Period),
						p.Quantity.String(),
						p.Indicator,
					})
				}
			}
		}
	}
	return rows
}
