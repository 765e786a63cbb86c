package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/pkg/utils"

	"github.com/xuri/excelize/v2"
)

func TestWriteTableCSV(t *testing.T) {
	tbl := AggregateTable("By company", model.KindCompany, []model.AggregateRow{
		{GroupKey: "Acme", Count: 2, TotalValue: 400, DerivedAverage: 200},
	})
	var buf bytes.Buffer
	if err := WriteTable(&buf, ExportCSV, tbl); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	want := "company,count,total_value,derived_average\nAcme,2,400,200\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteTableJSON(t *testing.T) {
	tbl := FactTable("Sales", []model.SaleFact{{SaleID: "1", Company: "Acme", Model: "Civic", Price: 10, SaleDate: "2024-01-01"}})
	var buf bytes.Buffer
	if err := WriteTable(&buf, ExportJSON, tbl); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0]["company"] != "Acme" || got[0]["price"] != 10.0 {
		t.Errorf("got %v", got)
	}
}

func TestWriteTableXLSX(t *testing.T) {
	tbl := AggregateTable("By month: 2024/all", model.KindMonth, []model.AggregateRow{
		{GroupKey: "2024-01", Count: 1, TotalValue: 5, DerivedAverage: 5},
	})
	var buf bytes.Buffer
	if err := WriteTable(&buf, ExportXLSX, tbl); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if strings.ContainsAny(sheet, ":/") {
		t.Errorf("sheet name %q not sanitized", sheet)
	}
	if v, _ := f.GetCellValue(sheet, "A1"); v != "month" {
		t.Errorf("A1 = %q", v)
	}
	if v, _ := f.GetCellValue(sheet, "A2"); v != "2024-01" {
		t.Errorf("A2 = %q", v)
	}
}

func TestWriteTableXLSXMultibyteTitle(t *testing.T) {
	tbl := AggregateTable("AB Продажи автомобилей by company", model.KindCompany, []model.AggregateRow{
		{GroupKey: "Acme", Count: 1, TotalValue: 5, DerivedAverage: 5},
	})
	var buf bytes.Buffer
	if err := WriteTable(&buf, ExportXLSX, tbl); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if !utf8.ValidString(sheet) || utf8.RuneCountInString(sheet) != 31 {
		t.Errorf("sheet name %q", sheet)
	}
	if v, _ := f.GetCellValue(sheet, "A2"); v != "Acme" {
		t.Errorf("A2 = %q", v)
	}
}

func TestParseExportFormat(t *testing.T) {
	for in, want := range map[string]ExportFormat{"": ExportCSV, "JSON": ExportJSON, "excel": ExportXLSX, "xlsx": ExportXLSX} {
		if got, err := ParseExportFormat(in); err != nil || got != want {
			t.Errorf("ParseExportFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseExportFormat("pdf"); err == nil {
		t.Error("expected error for pdf")
	}
}

func TestExportToFile(t *testing.T) {
	om := utils.NewOutputManager(t.TempDir())
	tbl := AggregateTable("", model.KindModel, []model.AggregateRow{{GroupKey: "Civic", Count: 1}})
	res, err := ExportToFile(om, "Q1 report", "models.csv", ExportCSV, tbl)
	if err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}
	if res.RecordCount != 1 || filepath.Base(filepath.Dir(res.Path)) != "Q1_report" {
		t.Errorf("result = %+v", res)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "model,count") {
		t.Errorf("file = %q", data)
	}
}

func TestExportToFileRemovesFailedFile(t *testing.T) {
	om := utils.NewOutputManager(t.TempDir())
	tbl := AggregateTable("", model.KindModel, []model.AggregateRow{{GroupKey: "Civic", Count: 1}})
	if _, err := ExportToFile(om, "Q1", "models.pdf", ExportFormat("pdf"), tbl); err == nil {
		t.Fatal("expected error for an unsupported format")
	}
	path, err := om.GetOutputFilePath("Q1", "models.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("partial export left behind: %v", err)
	}
}
