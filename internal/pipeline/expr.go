package pipeline

import (
	"math"
	"strings"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/pkg/utils"
)

// ParseSourceFilter reads the free-text filter typed next to a source.
//
// Clauses are separated by commas. "field > a < b" is a numeric range with an
// optional upper bound, "field < b" an upper bound only, and "field = value"
// an exact match. There is no quoting and no precedence. Unknown fields and
// unreadable numbers are ignored.
func ParseSourceFilter(expr string) model.SourceFilter {
	var f model.SourceFilter
	for _, clause := range strings.Split(expr, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		switch {
		case strings.Contains(clause, ">"):
			parts := strings.SplitN(clause, ">", 2)
			field := strings.TrimSpace(parts[0])
			bounds := strings.SplitN(parts[1], "<", 2)
			lo, ok := utils.ParseNumber(bounds[0])
			if !ok {
				continue
			}
			hi := math.MaxFloat64
			if len(bounds) == 2 {
				if h, ok := utils.ParseNumber(bounds[1]); ok {
					hi = h
				}
			}
			setRange(&f, field, model.Range{Min: lo, Max: hi})
		case strings.Contains(clause, "<"):
			parts := strings.SplitN(clause, "<", 2)
			hi, ok := utils.ParseNumber(parts[1])
			if !ok {
				continue
			}
			setRange(&f, strings.TrimSpace(parts[0]), model.Range{Min: -math.MaxFloat64, Max: hi})
		case strings.Contains(clause, "="):
			parts := strings.SplitN(clause, "=", 2)
			setExact(&f, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		}
	}
	return f
}

func setRange(f *model.SourceFilter, field string, r model.Range) {
	switch CanonicalField(field) {
	case "price":
		f.PriceRange = &r
	case "manufacturing_year":
		f.YearRange = &r
	}
}

func setExact(f *model.SourceFilter, field, value string) {
	if value == "" {
		return
	}
	switch CanonicalField(field) {
	case "car_model":
		f.Model = value
	case "company":
		f.Company = value
	case "sales_location":
		f.Location = value
	case "price", "manufacturing_year":
		if n, ok := utils.ParseNumber(value); ok {
			setRange(f, field, model.Range{Min: n, Max: n})
		}
	}
}

// FilterFacts keeps the facts that match f.
func FilterFacts(facts []model.SaleFact, f model.SourceFilter) []model.SaleFact {
	if f.IsZero() {
		return facts
	}
	out := make([]model.SaleFact, 0, len(facts))
	for _, fact := range facts {
		if f.Match(fact) {
			out = append(out, fact)
		}
	}
	return out
}
