package pipeline

import (
	"strings"

	"go-sales-dashboard/internal/model"
)

// Placeholder texts shown when a filtered view has nothing to draw.
const (
	MsgSelectYearAndMonth = "Select at least one year and one month"
	MsgSelectYear         = "Select at least one year"
	MsgSelectMonth        = "Select at least one month"
	MsgSelectCompany      = "Select at least one company"
	MsgSelectModel        = "Select at least one model"
	MsgNoMatch            = "No data matches the current filters"
)

// dimensionsFor lists the allow-list dimensions that apply to kind.
func dimensionsFor(kind model.AggregateKind) []model.Dimension {
	switch kind {
	case model.KindCompany:
		return []model.Dimension{model.DimCompany}
	case model.KindModel:
		return []model.Dimension{model.DimModel}
	case model.KindMonth:
		return []model.Dimension{model.DimYear, model.DimMonth}
	}
	return nil
}

// dimensionValue extracts the value a dimension matches against.
func dimensionValue(dim model.Dimension, row model.AggregateRow) string {
	switch dim {
	case model.DimYear:
		year, _ := splitMonthKey(row.GroupKey)
		return year
	case model.DimMonth:
		_, month := splitMonthKey(row.GroupKey)
		return month
	}
	return row.GroupKey
}

// splitMonthKey splits "YYYY-MM" into its parts.
func splitMonthKey(key string) (year, month string) {
	year, month, _ = strings.Cut(key, "-")
	return year, month
}

// ApplyFilters returns the rows of original that pass every dimension of
// state, in original order. original is never modified. Dimensions that do
// not apply to kind are ignored.
func ApplyFilters(original []model.AggregateRow, kind model.AggregateKind, state model.FilterState) []model.AggregateRow {
	type allowCheck struct {
		dim model.Dimension
		set map[string]struct{}
	}
	var checks []allowCheck
	for _, dim := range dimensionsFor(kind) {
		set, present := state.Allowed(dim)
		if !present {
			continue
		}
		if len(set) == 0 {
			if state.Policy(dim) == model.EmptyShowsAll {
				continue
			}
			return []model.AggregateRow{}
		}
		checks = append(checks, allowCheck{dim: dim, set: set})
	}
	minCount, hasMinCount := state.Bound(model.DimMinCount)
	minTotal, hasMinTotal := state.Bound(model.DimMinTotal)

	out := make([]model.AggregateRow, 0, len(original))
rows:
	for _, row := range original {
		for _, c := range checks {
			if _, ok := c.set[dimensionValue(c.dim, row)]; !ok {
				continue rows
			}
		}
		if hasMinCount && float64(row.Count) < minCount {
			continue
		}
		if hasMinTotal && row.TotalValue < minTotal {
			continue
		}
		out = append(out, row)
	}
	return out
}

// NoDataMessage gives the placeholder text for an empty filtered view.
func NoDataMessage(state model.FilterState, kind model.AggregateKind) string {
	cleared := func(dim model.Dimension) bool {
		set, present := state.Allowed(dim)
		return present && len(set) == 0 && state.Policy(dim) == model.EmptyShowsNothing
	}

	switch kind {
	case model.KindMonth:
		noYear, noMonth := cleared(model.DimYear), cleared(model.DimMonth)
		switch {
		case noYear && noMonth:
			return MsgSelectYearAndMonth
		case noYear:
			return MsgSelectYear
		case noMonth:
			return MsgSelectMonth
		}
	case model.KindCompany:
		if cleared(model.DimCompany) {
			return MsgSelectCompany
		}
	case model.KindModel:
		if cleared(model.DimModel) {
			return MsgSelectModel
		}
	}
	return MsgNoMatch
}
