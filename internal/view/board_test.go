package view

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/internal/pipeline"
)

// textRenderer writes the points as plain text so frames are easy to compare.
type textRenderer struct {
	calls int
	err   error
}

func (r *textRenderer) Render(w io.Writer, spec ChartSpec) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	fmt.Fprintf(w, "%s|%s", spec.Kind, spec.Title)
	for _, p := range spec.Points {
		fmt.Fprintf(w, "|%s=%v", p.Category, p.Value)
	}
	return nil
}

func companyAggregates() []model.AggregateRow {
	return []model.AggregateRow{
		{GroupKey: "Acme", Count: 2, TotalValue: 400, DerivedAverage: 200},
		{GroupKey: "Beta", Count: 1, TotalValue: 200, DerivedAverage: 200},
		{GroupKey: "Gamma", Count: 3, TotalValue: 90, DerivedAverage: 30},
	}
}

var companyEncoding = Encoding{
	Category: model.FieldGroupKey,
	Value:    model.FieldTotalValue,
	Chart:    KindBar,
	Kind:     model.KindCompany,
	Title:    "Revenue by company",
}

func TestRenderIdempotent(t *testing.T) {
	b := NewBoard(&textRenderer{})
	rows := companyAggregates()

	first, err := b.Render("company-chart", rows, companyEncoding)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	controls := b.Controls("company-chart")
	second, err := b.Render("company-chart", rows, companyEncoding)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if first.SVG != second.SVG || !reflect.DeepEqual(first.Points, second.Points) {
		t.Errorf("renders differ:\n%s\n%s", first.SVG, second.SVG)
	}
	if b.Controls("company-chart") != controls || second.Controls != controls {
		t.Error("controls were rebuilt on re-render")
	}
	if got := controls.Companies; !reflect.DeepEqual(got, []string{"Acme", "Beta", "Gamma"}) {
		t.Errorf("company options = %v", got)
	}
}

func TestRenderIsDestructiveButOriginalIsWriteOnce(t *testing.T) {
	b := NewBoard(&textRenderer{})
	rows := companyAggregates()
	if _, err := b.Render("c", rows, companyEncoding); err != nil {
		t.Fatal(err)
	}

	partial := rows[:1]
	frame, err := b.Render("c", partial, companyEncoding)
	if err != nil {
		t.Fatal(err)
	}
	if len(frame.Points) != 1 {
		t.Errorf("frame shows %d points, want 1", len(frame.Points))
	}
	if got := b.Original("c"); !reflect.DeepEqual(got, companyAggregates()) {
		t.Errorf("original changed: %+v", got)
	}

	rows[0].TotalValue = -1
	if got := b.Original("c"); got[0].TotalValue != 400 {
		t.Error("original shares memory with the caller")
	}
}

func TestApplyFilterUsesCachedOriginal(t *testing.T) {
	b := NewBoard(&textRenderer{})
	if _, err := b.Render("c", companyAggregates(), companyEncoding); err != nil {
		t.Fatal(err)
	}

	frame, err := b.ApplyFilter("c", model.FilterState{}.WithAllow(model.DimCompany, "Beta"))
	if err != nil {
		t.Fatal(err)
	}
	if len(frame.Points) != 1 || frame.Points[0].Category != "Beta" {
		t.Errorf("points = %+v", frame.Points)
	}

	// Widening the filter again brings back rows hidden before.
	frame, err = b.ApplyFilter("c", b.Controls("c").InitialState())
	if err != nil {
		t.Fatal(err)
	}
	if len(frame.Points) != 3 {
		t.Errorf("points = %+v", frame.Points)
	}
}

func TestApplyFilterAllCompaniesUnchecked(t *testing.T) {
	r := &textRenderer{}
	b := NewBoard(r)
	if _, err := b.Render("c", companyAggregates(), companyEncoding); err != nil {
		t.Fatal(err)
	}
	calls := r.calls

	frame, err := b.ApplyFilter("c", model.FilterState{}.WithAllow(model.DimCompany))
	if err != nil {
		t.Fatalf("ApplyFilter: %v", err)
	}
	if len(frame.Points) != 0 || frame.SVG != "" {
		t.Errorf("frame = %+v", frame)
	}
	if frame.Placeholder != pipeline.MsgSelectCompany {
		t.Errorf("placeholder = %q", frame.Placeholder)
	}
	if r.calls != calls {
		t.Error("renderer called for an empty frame")
	}
}

func TestApplyFilterBeforeRender(t *testing.T) {
	b := NewBoard(&textRenderer{})
	if _, err := b.ApplyFilter("nope", model.FilterState{}); !errors.Is(err, ErrNotRendered) {
		t.Errorf("err = %v", err)
	}
	if _, err := b.Render("empty", nil, companyEncoding); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ApplyFilter("empty", model.FilterState{}); !errors.Is(err, ErrNotRendered) {
		t.Errorf("err = %v", err)
	}
	if b.Controls("empty") != nil {
		t.Error("controls built without data")
	}
}

func TestSetSort(t *testing.T) {
	b := NewBoard(&textRenderer{})
	if _, err := b.Render("c", companyAggregates(), companyEncoding); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ApplyFilter("c", model.FilterState{}.WithBound(model.DimMinCount, 2)); err != nil {
		t.Fatal(err)
	}
	frame, err := b.SetSort("c", pipeline.SortKey{By: pipeline.SortTotal})
	if err != nil {
		t.Fatal(err)
	}
	got := []string{frame.Points[0].Category, frame.Points[1].Category}
	if !reflect.DeepEqual(got, []string{"Gamma", "Acme"}) {
		t.Errorf("order = %v", got)
	}
}

func TestRenderMonthControls(t *testing.T) {
	b := NewBoard(&textRenderer{})
	rows := []model.AggregateRow{{GroupKey: "2023-11", Count: 1}, {GroupKey: "2024-01", Count: 2}, {GroupKey: "2024-11", Count: 1}}
	enc := Encoding{Value: model.FieldCount, Chart: KindLine, Kind: model.KindMonth}
	if _, err := b.Render("m", rows, enc); err != nil {
		t.Fatal(err)
	}
	c := b.Controls("m")
	if !reflect.DeepEqual(c.Years, []string{"2023", "2024"}) || !reflect.DeepEqual(c.Months, []string{"01", "11"}) {
		t.Errorf("controls = %+v", c)
	}

	frame, err := b.ApplyFilter("m", model.FilterState{}.WithAllow(model.DimYear).WithAllow(model.DimMonth, "11"))
	if err != nil {
		t.Fatal(err)
	}
	if frame.Placeholder != pipeline.MsgSelectYear {
		t.Errorf("placeholder = %q", frame.Placeholder)
	}
}

func TestRenderError(t *testing.T) {
	b := NewBoard(&textRenderer{err: errors.New("boom")})
	if _, err := b.Render("c", companyAggregates(), companyEncoding); err == nil {
		t.Fatal("expected error")
	}
	if b.Original("c") != nil {
		t.Error("original cached after a failed render")
	}
}

func TestRenderRaw(t *testing.T) {
	rows, err := pipeline.Parse("company,price\nAcme,100\nBeta,200\nAcme,300\n", model.FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	schema, ok := pipeline.Infer(rows)
	if !ok {
		t.Fatal("schema not inferred")
	}

	b := NewBoard(&textRenderer{})
	frame, err := b.RenderRaw("upload", rows, schema)
	if err != nil {
		t.Fatalf("RenderRaw: %v", err)
	}
	if frame.Title != "company vs price" || len(frame.Points) != 3 {
		t.Errorf("frame = %+v", frame)
	}
	if frame.Controls != nil || b.Controls("upload") != nil {
		t.Error("ad-hoc chart got filter controls")
	}

	frame, err = b.RenderRaw("upload", rows, model.Schema{})
	if err != nil {
		t.Fatal(err)
	}
	if frame.Placeholder != model.ErrSchemaInference.Error() || frame.SVG != "" {
		t.Errorf("frame = %+v", frame)
	}
}

func TestRenderGrouped(t *testing.T) {
	rows, err := pipeline.Parse("company,price\nAcme,100\nBeta,200\nAcme,300\n", model.FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	schema, _ := pipeline.Infer(rows)

	b := NewBoard(&textRenderer{})
	frame, err := b.RenderGrouped("upload", rows, schema)
	if err != nil {
		t.Fatalf("RenderGrouped: %v", err)
	}
	if frame.Title != "company vs price" || frame.SVG != "bar|company vs price|Acme=400|Beta=200" {
		t.Errorf("frame = %+v", frame)
	}
	if frame.Controls != nil {
		t.Error("grouped ad-hoc chart got filter controls")
	}

	frame, err = b.RenderGrouped("other", rows, model.Schema{})
	if err != nil {
		t.Fatal(err)
	}
	if frame.Placeholder != model.ErrSchemaInference.Error() {
		t.Errorf("placeholder = %q", frame.Placeholder)
	}
}

func TestHoverAndClickReachTable(t *testing.T) {
	facts := []model.SaleFact{
		{SaleID: "1", Company: "Acme"},
		{SaleID: "2", Company: "Beta"},
		{SaleID: "3", Company: "Acme"},
	}
	b := NewBoard(&textRenderer{})
	table := NewDetailTable(facts, model.KindCompany)
	b.AttachTable("c", table)

	b.Hover("c", "Acme")
	highlighted := 0
	for _, r := range table.Visible() {
		if r.Highlighted {
			highlighted++
		}
	}
	if highlighted != 2 {
		t.Errorf("highlighted = %d, want 2", highlighted)
	}

	b.Click("c", "Beta")
	if v := table.Visible(); len(v) != 1 || v[0].Fact.SaleID != "2" {
		t.Errorf("visible = %+v", v)
	}
	b.Click("c", "Beta")
	if v := table.Visible(); len(v) != 3 {
		t.Errorf("visible after toggle = %d rows", len(v))
	}
}

func TestSVGRenderer(t *testing.T) {
	r := NewSVGRenderer(600, 300)
	points := []Point{{"Acme", 400}, {"Beta", 200}}

	for _, kind := range []ChartKind{KindBar, KindLine} {
		var sb strings.Builder
		if err := r.Render(&sb, ChartSpec{Title: "t", Kind: kind, Points: points}); err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if !strings.Contains(sb.String(), "<svg") {
			t.Errorf("%s: output is not svg", kind)
		}
	}

	var sb strings.Builder
	if err := r.Render(&sb, ChartSpec{Kind: KindLine, Points: []Point{{"only", 0}}}); err != nil {
		t.Errorf("single point: %v", err)
	}
	if err := r.Render(&sb, ChartSpec{Kind: KindBar}); !errors.Is(err, ErrNothingToDraw) {
		t.Errorf("empty: %v", err)
	}
}
