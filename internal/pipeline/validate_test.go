package pipeline

import (
	"reflect"
	"testing"

	"go-sales-dashboard/internal/model"
)

func TestDecodeSaleFacts(t *testing.T) {
	text := `[
		{"saleId": 7, "Company": "Acme", "model": "Civic", "price": 12000.5, "saleDate": "2024-02-01", "manufacturingYear": 2019, "Sales Location": "Oslo"},
		{"sale_id": "8", "company": "Beta", "car_model": "Golf", "price": "9000", "date_of_sale": "2024-03-01", "manufacturing_year": null},
		{"sale_id": "9", "company": "", "car_model": "Golf", "price": 1, "date_of_sale": "2024-03-01"},
		{"sale_id": "10", "company": "Beta", "car_model": "Golf", "price": "cheap", "date_of_sale": "2024-03-01"},
		{"sale_id": "11", "company": "Beta", "car_model": "Golf", "price": -5, "date_of_sale": "2024-03-01"},
		{"sale_id": "12", "company": "Beta", "car_model": "Golf", "date_of_sale": "2024-03-01"}
	]`
	rows, err := Parse(text, model.FormatJSON)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	facts, rejected := DecodeSaleFacts(rows)
	if rejected != 4 {
		t.Errorf("rejected = %d, want 4", rejected)
	}
	want := []model.SaleFact{
		{SaleID: "7", Company: "Acme", Model: "Civic", Price: 12000.5, SaleDate: "2024-02-01", ManufacturingYear: 2019, Location: "Oslo"},
		{SaleID: "8", Company: "Beta", Model: "Golf", Price: 9000, SaleDate: "2024-03-01"},
	}
	if !reflect.DeepEqual(facts, want) {
		t.Errorf("facts = %+v\nwant %+v", facts, want)
	}
}

func TestValidateRowBounds(t *testing.T) {
	rules := ValidationRules{MaxValues: map[string]float64{"price": 100}}
	row := model.NewRawRow([]string{"price"}, map[string]model.Value{"price": model.Number(101)})
	if err := ValidateRow(row, rules); err == nil {
		t.Error("expected max violation")
	}
	row = model.NewRawRow([]string{"price"}, map[string]model.Value{"price": model.Number(100)})
	if err := ValidateRow(row, rules); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
