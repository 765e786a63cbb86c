package view

import (
	"sync"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/pkg/utils"
)

// TableRow is one visible detail row.
type TableRow struct {
	Fact        model.SaleFact `json:"fact"`
	Category    string         `json:"category"`
	Highlighted bool           `json:"highlighted"`
}

// DetailTable lists the sale records behind a chart. Hovering a chart mark
// highlights rows of the same category; clicking one narrows the table to it.
type DetailTable struct {
	mu          sync.Mutex
	facts       []model.SaleFact
	categories  []string
	highlighted string
	selected    string
}

// NewDetailTable keys every fact by the category a chart of kind encodes.
func NewDetailTable(facts []model.SaleFact, kind model.AggregateKind) *DetailTable {
	t := &DetailTable{
		facts:      append([]model.SaleFact(nil), facts...),
		categories: make([]string, len(facts)),
	}
	for i, f := range facts {
		t.categories[i] = CategoryOf(f, kind)
	}
	return t
}

// CategoryOf returns the group key a fact contributes to under kind.
func CategoryOf(f model.SaleFact, kind model.AggregateKind) string {
	switch kind {
	case model.KindModel:
		return f.Model
	case model.KindMonth:
		key, err := utils.MonthKey(f.SaleDate)
		if err != nil {
			return ""
		}
		return key
	}
	return f.Company
}

// Hover highlights rows whose category equals category. An empty category
// clears the highlight.
func (t *DetailTable) Hover(category string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.highlighted = category
}

// Click toggles an exclusive filter on category: the first click shows only
// its rows, clicking it again shows everything.
func (t *DetailTable) Click(category string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selected == category {
		t.selected = ""
		return
	}
	t.selected = category
}

// Selected is the category the table is narrowed to, if any.
func (t *DetailTable) Selected() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selected
}

// Visible returns the rows currently shown, in original order.
func (t *DetailTable) Visible() []TableRow {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TableRow, 0, len(t.facts))
	for i, f := range t.facts {
		cat := t.categories[i]
		if t.selected != "" && cat != t.selected {
			continue
		}
		out = append(out, TableRow{
			Fact:        f,
			Category:    cat,
			Highlighted: t.highlighted != "" && cat == t.highlighted,
		})
	}
	return out
}
