package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/pkg/utils"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// ExportFormat is a supported download format.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts csv, json, xlsx and excel.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return ExportCSV, nil
	case "json":
		return ExportJSON, nil
	case "xlsx", "excel":
		return ExportXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format: %s", s)
}

// ContentType is the MIME type served for f.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportJSON:
		return "application/json"
	case ExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Format      ExportFormat `json:"format"`
	Path        string       `json:"path"`
	RecordCount int          `json:"record_count"`
	ExportedAt  time.Time    `json:"exported_at"`
}

// Table is a titled grid of cells ready to be written in any export format.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]any
}

// AggregateTable lays out aggregate rows under a header naming their kind.
func AggregateTable(title string, kind model.AggregateKind, rows []model.AggregateRow) Table {
	t := Table{
		Title:   title,
		Headers: []string{string(kind), "count", "total_value", "derived_average"},
		Rows:    make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.GroupKey, r.Count, r.TotalValue, r.DerivedAverage})
	}
	return t
}

// FactTable lays out sale records one per line.
func FactTable(title string, facts []model.SaleFact) Table {
	t := Table{
		Title:   title,
		Headers: []string{"sale_id", "company", "car_model", "price", "date_of_sale", "manufacturing_year", "sales_location"},
		Rows:    make([][]any, 0, len(facts)),
	}
	for _, f := range facts {
		t.Rows = append(t.Rows, []any{f.SaleID, f.Company, f.Model, f.Price, f.SaleDate, f.ManufacturingYear, f.Location})
	}
	return t
}

// WriteTable encodes t to w in the given format.
func WriteTable(w io.Writer, format ExportFormat, t Table) error {
	switch format {
	case ExportCSV:
		return writeCSV(w, t)
	case ExportJSON:
		return writeJSON(w, t)
	case ExportXLSX:
		return writeXLSX(w, t)
	}
	return fmt.Errorf("unsupported export format: %s", format)
}

func writeCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = formatCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, t Table) error {
	records := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		records = append(records, rec)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	if t.Title != "" {
		sheet = sheetName(t.Title)
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"3498DB"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, h := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style header %s: %w", cell, err)
		}
	}
	for r, row := range t.Rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// sheetName trims a title to Excel's 31 character sheet name limit.
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, title)
	return utils.Truncate(name, 31)
}

func formatCell(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case int:
		return strconv.Itoa(c)
	default:
		return fmt.Sprint(c)
	}
}

// ExportToFile writes t under the task's output directory.
func ExportToFile(om *utils.OutputManager, taskName, fileName string, format ExportFormat, t Table) (ExportResult, error) {
	path, err := om.GetOutputFilePath(taskName, fileName)
	if err != nil {
		return ExportResult{}, err
	}

	file, err := os.Create(path)
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to create export file: %w", err)
	}

	err = WriteTable(file, format, t)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close export file: %w", cerr)
	}
	if err != nil {
		os.Remove(path)
		log.Error().Err(err).Str("path", path).Msg("❌ Export failed")
		return ExportResult{}, err
	}

	log.Info().Str("path", path).Int("records", len(t.Rows)).Msg("💾 Export written")
	return ExportResult{
		Format:      format,
		Path:        path,
		RecordCount: len(t.Rows),
		ExportedAt:  time.Now().UTC(),
	}, nil
}
