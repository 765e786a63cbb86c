package model

// SaleFact is one sale record as reported by the backend.
type SaleFact struct {
	SaleID            string  `json:"sale_id"`
	Company           string  `json:"company"`
	Model             string  `json:"car_model"`
	Price             float64 `json:"price"`
	SaleDate          string  `json:"date_of_sale"`
	ManufacturingYear int     `json:"manufacturing_year,omitempty"`
	Location          string  `json:"sales_location,omitempty"`
}

// Summary is the headline block of a task's analytics.
type Summary struct {
	TotalSales   int     `json:"total_sales"`
	TotalRevenue float64 `json:"total_revenue"`
	AveragePrice float64 `json:"average_price"`
}

// Analytics is the decoded payload of GET /tasks/{name}/analytics.
type Analytics struct {
	TaskName string     `json:"task_name"`
	Summary  Summary    `json:"summary"`
	Sales    []SaleFact `json:"sales_data"`
	// Rows the backend rejected while decoding sales_data.
	Rejected int `json:"rejected,omitempty"`
	// Pre-built chart series, passed through untouched when present.
	CompanyChart []RawRow `json:"company_chart_data,omitempty"`
	ModelChart   []RawRow `json:"model_chart_data,omitempty"`
}

// AggregateKind identifies what an aggregate's GroupKey means.
type AggregateKind string

const (
	KindCompany AggregateKind = "company"
	KindMonth   AggregateKind = "month"
	KindModel   AggregateKind = "model"
	// KindField groups ad-hoc rows by an arbitrary category field.
	KindField AggregateKind = "field"
)

// AggregateRow is one summarized group.
type AggregateRow struct {
	GroupKey       string  `json:"group_key"`
	Count          int     `json:"count"`
	TotalValue     float64 `json:"total_value"`
	DerivedAverage float64 `json:"derived_average"`
}

// AggregateField names an AggregateRow attribute a chart axis can encode.
type AggregateField string

const (
	FieldGroupKey       AggregateField = "group_key"
	FieldCount          AggregateField = "count"
	FieldTotalValue     AggregateField = "total_value"
	FieldDerivedAverage AggregateField = "derived_average"
)

// Numeric returns the numeric attribute named by f. GroupKey is not numeric.
func (r AggregateRow) Numeric(f AggregateField) (float64, bool) {
	switch f {
	case FieldCount:
		return float64(r.Count), true
	case FieldTotalValue:
		return r.TotalValue, true
	case FieldDerivedAverage:
		return r.DerivedAverage, true
	}
	return 0, false
}
