package pipeline

import (
	"fmt"
	"math"
	"strings"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/pkg/utils"

	"github.com/rs/zerolog/log"
)

// ValidationRules describes what a row must look like before it is decoded.
type ValidationRules struct {
	RequiredFields []string
	NumericFields  []string
	MinValues      map[string]float64
	MaxValues      map[string]float64
}

// SaleFactRules are the checks applied to every sales_data entry.
var SaleFactRules = ValidationRules{
	RequiredFields: []string{"company", "car_model", "price", "date_of_sale"},
	NumericFields:  []string{"price", "manufacturing_year"},
	MinValues:      map[string]float64{"price": 0},
}

// ValidateRow applies rules to a row.
func ValidateRow(row model.RawRow, rules ValidationRules) error {
	for _, field := range rules.RequiredFields {
		v, ok := row.Get(field)
		if !ok || isBlank(v) {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	for _, field := range rules.NumericFields {
		v, ok := row.Get(field)
		if !ok || isBlank(v) {
			continue
		}
		if _, ok := numberOf(v); !ok {
			return fmt.Errorf("field %s must be numeric, got %q", field, v.String())
		}
	}

	for field, min := range rules.MinValues {
		if v, ok := row.Get(field); ok {
			if n, ok := numberOf(v); ok && n < min {
				return fmt.Errorf("field %s below minimum: got %v, want ≥ %v", field, n, min)
			}
		}
	}

	for field, max := range rules.MaxValues {
		if v, ok := row.Get(field); ok {
			if n, ok := numberOf(v); ok && n > max {
				return fmt.Errorf("field %s above maximum: got %v, want ≤ %v", field, n, max)
			}
		}
	}

	return nil
}

// DecodeSaleFacts normalizes and validates rows, returning the facts that
// passed and how many were rejected. Rejected rows are logged and skipped.
func DecodeSaleFacts(rows []model.RawRow) ([]model.SaleFact, int) {
	facts := make([]model.SaleFact, 0, len(rows))
	rejected := 0
	for i, row := range rows {
		fact, err := ToSaleFact(NormalizeFieldNames(row))
		if err != nil {
			rejected++
			if rejected <= 5 {
				log.Warn().Int("row", i).Err(err).Msg("❌ Rejected sale record")
			}
			continue
		}
		facts = append(facts, fact)
	}
	if rejected > 0 {
		log.Warn().Int("valid", len(facts)).Int("rejected", rejected).Msg("🔍 Sale record validation summary")
	}
	return facts, rejected
}

// ToSaleFact converts a normalized row into a SaleFact.
func ToSaleFact(row model.RawRow) (model.SaleFact, error) {
	if err := ValidateRow(row, SaleFactRules); err != nil {
		return model.SaleFact{}, err
	}

	fact := model.SaleFact{
		SaleID:   textOf(row, "sale_id"),
		Company:  textOf(row, "company"),
		Model:    textOf(row, "car_model"),
		SaleDate: textOf(row, "date_of_sale"),
		Location: textOf(row, "sales_location"),
	}
	price, _ := row.Get("price")
	fact.Price, _ = numberOf(price)
	if v, ok := row.Get("manufacturing_year"); ok {
		if y, ok := numberOf(v); ok {
			fact.ManufacturingYear = int(math.Round(y))
		}
	}
	return fact, nil
}

func textOf(row model.RawRow, field string) string {
	v, ok := row.Get(field)
	if !ok || isBlank(v) {
		return ""
	}
	return strings.TrimSpace(v.String())
}

// numberOf accepts numeric values and numeric text.
func numberOf(v model.Value) (float64, bool) {
	switch v.Kind {
	case model.ValueNumber:
		return v.Number, true
	case model.ValueText:
		return utils.ParseNumber(v.Text)
	}
	return 0, false
}

// isBlank reports a JSON null or whitespace-only text.
func isBlank(v model.Value) bool {
	switch v.Kind {
	case model.ValueNull:
		return true
	case model.ValueText:
		return strings.TrimSpace(v.Text) == ""
	}
	return false
}
