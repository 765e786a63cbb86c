package pipeline

import (
	"fmt"
	"strings"

	"go-sales-dashboard/internal/model"
)

// fieldAliases maps spellings seen in uploaded sources to the canonical sale
// field names. Keys are already lowercased with spaces replaced.
var fieldAliases = map[string]string{
	"saleid":            "sale_id",
	"id":                "sale_id",
	"model":             "car_model",
	"carmodel":          "car_model",
	"saledate":          "date_of_sale",
	"sale_date":         "date_of_sale",
	"date":              "date_of_sale",
	"manufacturingyear": "manufacturing_year",
	"year":              "manufacturing_year",
	"saleslocation":     "sales_location",
	"location":          "sales_location",
}

// Transformation rewrites a row into a new row.
type Transformation func(model.RawRow) model.RawRow

var transformations = map[string]Transformation{
	"normalizeNames": NormalizeFieldNames,
	"trimStrings":    TrimStrings,
	"removeEmpty":    RemoveEmpty,
}

// ApplyTransformations runs the named transformations over every row, in order.
func ApplyTransformations(rows []model.RawRow, names []string) ([]model.RawRow, error) {
	steps := make([]Transformation, 0, len(names))
	for _, name := range names {
		t, ok := transformations[name]
		if !ok {
			return nil, fmt.Errorf("unknown transformation: %s", name)
		}
		steps = append(steps, t)
	}

	out := make([]model.RawRow, len(rows))
	for i, row := range rows {
		for _, t := range steps {
			row = t(row)
		}
		out[i] = row
	}
	return out, nil
}

// CanonicalField lowercases a field name, replaces spaces with underscores and
// resolves known aliases.
func CanonicalField(name string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	if alias, ok := fieldAliases[key]; ok {
		return alias
	}
	return key
}

// NormalizeFieldNames renames every field to its canonical form. When two
// fields collapse to the same name the later one wins.
func NormalizeFieldNames(row model.RawRow) model.RawRow {
	fields := row.Fields()
	names := make([]string, len(fields))
	values := make(map[string]model.Value, len(fields))
	for i, f := range fields {
		v, _ := row.Get(f)
		names[i] = CanonicalField(f)
		values[names[i]] = v
	}
	return model.NewRawRow(names, values)
}

// TrimStrings trims whitespace from all text values.
func TrimStrings(row model.RawRow) model.RawRow {
	fields := row.Fields()
	values := make(map[string]model.Value, len(fields))
	for _, f := range fields {
		v, _ := row.Get(f)
		if v.IsText() {
			v = model.Text(strings.TrimSpace(v.Text))
		}
		values[f] = v
	}
	return model.NewRawRow(fields, values)
}

// RemoveEmpty drops fields that are null or empty text.
func RemoveEmpty(row model.RawRow) model.RawRow {
	fields := row.Fields()
	kept := make([]string, 0, len(fields))
	values := make(map[string]model.Value, len(fields))
	for _, f := range fields {
		v, _ := row.Get(f)
		if v.IsNull() || (v.IsText() && v.Text == "") {
			continue
		}
		kept = append(kept, f)
		values[f] = v
	}
	return model.NewRawRow(kept, values)
}
