package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go-sales-dashboard/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ------------------- Ad-hoc visualization -------------------

// Visualization is the outcome of an ad-hoc upload: the parsed rows and, when
// one could be inferred, the schema that drives the chart.
type Visualization struct {
	Rows     []model.RawRow `json:"rows"`
	Schema   model.Schema   `json:"schema"`
	Inferred bool           `json:"inferred"`
	Message  string         `json:"message,omitempty"`
}

// Visualize parses raw text, runs the named transformations and infers the
// chart schema. A schema that cannot be inferred is not an error; Message
// carries the user-facing text instead.
func Visualize(text string, format model.Format, transforms ...string) (Visualization, error) {
	start := time.Now()
	rows, err := Parse(text, format)
	if err != nil {
		return Visualization{}, err
	}
	if len(transforms) > 0 {
		if rows, err = ApplyTransformations(rows, transforms); err != nil {
			return Visualization{}, &model.ValidationError{Field: "transform", Message: err.Error()}
		}
	}

	v := Visualization{Rows: rows}
	v.Schema, v.Inferred = Infer(rows)
	if !v.Inferred {
		v.Message = model.ErrSchemaInference.Error()
	}
	log.Debug().
		Str("format", string(format)).
		Int("rows", len(rows)).
		Bool("inferred", v.Inferred).
		Dur("took", time.Since(start)).
		Msg("📈 Visualization prepared")
	return v, nil
}

// ------------------- Report analytics -------------------

// analyticsPayload mirrors GET /tasks/{name}/analytics before validation.
type analyticsPayload struct {
	TaskName     string          `json:"task_name"`
	Summary      *model.Summary  `json:"summary"`
	SalesData    json.RawMessage `json:"sales_data"`
	CompanyChart json.RawMessage `json:"company_chart_data"`
	ModelChart   json.RawMessage `json:"model_chart_data"`
}

// DecodeAnalytics validates an analytics document. Sale records that fail
// validation are dropped and counted in Rejected. A missing summary is
// computed from the accepted records.
func DecodeAnalytics(taskName string, body []byte) (model.Analytics, error) {
	var p analyticsPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return model.Analytics{}, &model.ParseError{Format: model.FormatJSON, Reason: "malformed analytics document", Err: err}
	}

	out := model.Analytics{TaskName: taskName}
	if p.TaskName != "" {
		out.TaskName = p.TaskName
	}

	if len(bytes.TrimSpace(p.SalesData)) > 0 && string(bytes.TrimSpace(p.SalesData)) != "null" {
		rows, err := Parse(string(p.SalesData), model.FormatJSON)
		if err != nil {
			return model.Analytics{}, fmt.Errorf("sales_data: %w", err)
		}
		out.Sales, out.Rejected = DecodeSaleFacts(rows)
	}
	if out.Sales == nil {
		out.Sales = []model.SaleFact{}
	}

	var err error
	if out.CompanyChart, err = optionalRows(p.CompanyChart); err != nil {
		return model.Analytics{}, fmt.Errorf("company_chart_data: %w", err)
	}
	if out.ModelChart, err = optionalRows(p.ModelChart); err != nil {
		return model.Analytics{}, fmt.Errorf("model_chart_data: %w", err)
	}

	if p.Summary != nil {
		out.Summary = *p.Summary
	} else {
		out.Summary = Summarize(out.Sales)
	}
	return out, nil
}

func optionalRows(raw json.RawMessage) ([]model.RawRow, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	return Parse(string(trimmed), model.FormatJSON)
}

// Summarize computes the headline figures of a set of facts.
func Summarize(facts []model.SaleFact) model.Summary {
	total := decimal.Zero
	for _, f := range facts {
		total = total.Add(decimal.NewFromFloat(f.Price))
	}
	s := model.Summary{TotalSales: len(facts), TotalRevenue: total.InexactFloat64()}
	if len(facts) > 0 {
		s.AveragePrice = total.Div(decimal.NewFromInt(int64(len(facts)))).InexactFloat64()
	}
	return s
}

// Report is a task's analytics reduced to chart-ready aggregates. The
// aggregate slices are the unfiltered originals for each chart.
type Report struct {
	TaskName     string               `json:"task_name"`
	Summary      model.Summary        `json:"summary"`
	Facts        []model.SaleFact     `json:"sales_data"`
	ByCompany    []model.AggregateRow `json:"by_company"`
	ByMonth      []model.AggregateRow `json:"by_month"`
	ByModel      []model.AggregateRow `json:"by_model"`
	SkippedDates int                  `json:"skipped_dates,omitempty"`
	Rejected     int                  `json:"rejected,omitempty"`
}

// Narrow keeps the sales matching a filter expression and recomputes the
// summary from them. An empty expression returns a unchanged.
func Narrow(a model.Analytics, expr string) model.Analytics {
	if strings.TrimSpace(expr) == "" {
		return a
	}
	a.Sales = FilterFacts(a.Sales, ParseSourceFilter(expr))
	a.Summary = Summarize(a.Sales)
	return a
}

// BuildReport aggregates analytics by company, month and model.
func BuildReport(a model.Analytics) Report {
	start := time.Now()
	r := Report{
		TaskName:  a.TaskName,
		Summary:   a.Summary,
		Facts:     a.Sales,
		ByCompany: AggregateByCompany(a.Sales),
		ByModel:   AggregateByModel(a.Sales),
		Rejected:  a.Rejected,
	}
	r.ByMonth, r.SkippedDates = AggregateByMonth(a.Sales)

	log.Info().
		Str("task", r.TaskName).
		Int("facts", len(r.Facts)).
		Int("companies", len(r.ByCompany)).
		Int("months", len(r.ByMonth)).
		Int("models", len(r.ByModel)).
		Dur("took", time.Since(start)).
		Msg("📊 Report built")
	return r
}

// Rows returns the original aggregate for kind.
func (r Report) Rows(kind model.AggregateKind) ([]model.AggregateRow, error) {
	switch kind {
	case model.KindCompany:
		return r.ByCompany, nil
	case model.KindMonth:
		return r.ByMonth, nil
	case model.KindModel:
		return r.ByModel, nil
	}
	return nil, fmt.Errorf("unknown aggregate kind: %s", kind)
}
