package view

import (
	"sort"
	"strings"

	"go-sales-dashboard/internal/model"
)

// Controls is the filter widget set of one chart, derived once from the
// chart's original rows.
type Controls struct {
	Kind      model.AggregateKind `json:"kind"`
	Companies []string            `json:"companies,omitempty"`
	Models    []string            `json:"models,omitempty"`
	Years     []string            `json:"years,omitempty"`
	Months    []string            `json:"months,omitempty"`
	MaxCount  int                 `json:"max_count"`
	MaxTotal  float64             `json:"max_total"`
}

// NewControls builds the options offered for the original rows of kind.
// Company and model checkboxes keep row order; years and months are sorted.
func NewControls(original []model.AggregateRow, kind model.AggregateKind) *Controls {
	c := &Controls{Kind: kind}
	years := map[string]bool{}
	months := map[string]bool{}
	for _, r := range original {
		if r.Count > c.MaxCount {
			c.MaxCount = r.Count
		}
		if r.TotalValue > c.MaxTotal {
			c.MaxTotal = r.TotalValue
		}
		switch kind {
		case model.KindCompany:
			c.Companies = append(c.Companies, r.GroupKey)
		case model.KindModel:
			c.Models = append(c.Models, r.GroupKey)
		case model.KindMonth:
			y, m, ok := strings.Cut(r.GroupKey, "-")
			if !ok {
				continue
			}
			years[y] = true
			months[m] = true
		}
	}
	c.Years = sortedKeys(years)
	c.Months = sortedKeys(months)
	return c
}

// Options returns the selectable values of dim.
func (c *Controls) Options(dim model.Dimension) []string {
	switch dim {
	case model.DimCompany:
		return c.Companies
	case model.DimModel:
		return c.Models
	case model.DimYear:
		return c.Years
	case model.DimMonth:
		return c.Months
	}
	return nil
}

// InitialState selects every option, which shows every original row.
func (c *Controls) InitialState() model.FilterState {
	state := model.FilterState{}
	for _, dim := range []model.Dimension{model.DimCompany, model.DimModel, model.DimYear, model.DimMonth} {
		if opts := c.Options(dim); len(opts) > 0 {
			state = state.WithAllow(dim, opts...)
		}
	}
	return state
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
