package pipeline

import "go-sales-dashboard/internal/model"

// Infer picks the chart schema from the first row only: the first text field
// becomes the category and the first numeric field the value. Nulls,
// booleans and nested values are skipped. ok is false when either slot stays
// empty; later rows are never consulted.
func Infer(rows []model.RawRow) (schema model.Schema, ok bool) {
	if len(rows) == 0 {
		return model.Schema{}, false
	}
	first := rows[0]
	for _, f := range first.Fields() {
		v, _ := first.Get(f)
		switch {
		case v.IsNumber():
			if schema.ValueField == "" {
				schema.ValueField = f
			}
		case v.IsText():
			if schema.CategoryField == "" {
				schema.CategoryField = f
			}
		}
		if schema.CategoryField != "" && schema.ValueField != "" {
			return schema, true
		}
	}
	return schema, false
}
