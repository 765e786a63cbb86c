package pipeline

import (
	"sort"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/pkg/utils"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// groupAccumulator collects AggregateRows keyed by group, remembering the
// order in which keys first appeared.
type groupAccumulator struct {
	order  []string
	groups map[string]*groupState
}

type groupState struct {
	row   model.AggregateRow
	total decimal.Decimal
}

func newGroupAccumulator() *groupAccumulator {
	return &groupAccumulator{groups: make(map[string]*groupState)}
}

// add counts one record and recomputes the group's average immediately.
func (a *groupAccumulator) add(key string, value float64) {
	g, ok := a.groups[key]
	if !ok {
		g = &groupState{row: model.AggregateRow{GroupKey: key}, total: decimal.Zero}
		a.groups[key] = g
		a.order = append(a.order, key)
	}
	g.row.Count++
	g.total = g.total.Add(decimal.NewFromFloat(value))
	g.row.TotalValue = g.total.InexactFloat64()
	g.row.DerivedAverage = g.total.Div(decimal.NewFromInt(int64(g.row.Count))).InexactFloat64()
}

// rows returns the groups in first-occurrence order.
func (a *groupAccumulator) rows() []model.AggregateRow {
	out := make([]model.AggregateRow, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, a.groups[k].row)
	}
	return out
}

// AggregateByCompany groups facts by company in order of first occurrence.
func AggregateByCompany(facts []model.SaleFact) []model.AggregateRow {
	acc := newGroupAccumulator()
	for _, f := range facts {
		acc.add(f.Company, f.Price)
	}
	return acc.rows()
}

// AggregateByModel groups facts by car model in order of first occurrence.
func AggregateByModel(facts []model.SaleFact) []model.AggregateRow {
	acc := newGroupAccumulator()
	for _, f := range facts {
		acc.add(f.Model, f.Price)
	}
	return acc.rows()
}

// AggregateByMonth groups facts by the YYYY-MM of their sale date, ascending.
// Facts whose date cannot be read are left out; skipped says how many.
func AggregateByMonth(facts []model.SaleFact) (rows []model.AggregateRow, skipped int) {
	acc := newGroupAccumulator()
	for _, f := range facts {
		key, err := utils.MonthKey(f.SaleDate)
		if err != nil {
			skipped++
			continue
		}
		acc.add(key, f.Price)
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("📊 Sale records without a readable date left out of the monthly view")
	}

	rows = acc.rows()
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].GroupKey < rows[j].GroupKey })
	return rows, skipped
}

// AggregateRawRows groups ad-hoc rows by keyField, summing valueField. Rows
// without keyField are skipped; a non-numeric value counts but adds nothing.
func AggregateRawRows(rows []model.RawRow, keyField, valueField string) []model.AggregateRow {
	acc := newGroupAccumulator()
	for _, row := range rows {
		key, ok := row.Get(keyField)
		if !ok {
			continue
		}
		var n float64
		if v, ok := row.Get(valueField); ok {
			n, _ = numberOf(v)
		}
		acc.add(key.String(), n)
	}
	return acc.rows()
}

// ------------------- Sorting -------------------

// SortBy names the AggregateRow attribute used for ranking.
type SortBy string

const (
	SortNone  SortBy = ""
	SortCount SortBy = "count"
	SortTotal SortBy = "total"
)

// SortKey combines the ranking attribute with its direction. The two are
// independent toggles.
type SortKey struct {
	By         SortBy
	Descending bool
}

// ParseSortKey reads query-string style values; unknown values mean no sort.
func ParseSortKey(by, order string) SortKey {
	key := SortKey{Descending: order == "desc"}
	switch by {
	case "count":
		key.By = SortCount
	case "total", "revenue", "total_value":
		key.By = SortTotal
	}
	return key
}

// SortAggregates returns a sorted copy of rows. Ties keep their input order;
// SortNone returns the rows unchanged.
func SortAggregates(rows []model.AggregateRow, key SortKey) []model.AggregateRow {
	out := make([]model.AggregateRow, len(rows))
	copy(out, rows)
	if key.By == SortNone {
		return out
	}

	value := func(r model.AggregateRow) float64 {
		if key.By == SortCount {
			return float64(r.Count)
		}
		return r.TotalValue
	}
	sort.SliceStable(out, func(i, j int) bool {
		if key.Descending {
			return value(out[i]) > value(out[j])
		}
		return value(out[i]) < value(out[j])
	})
	return out
}
