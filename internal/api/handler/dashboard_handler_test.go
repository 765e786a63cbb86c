package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/internal/pipeline"
	"go-sales-dashboard/internal/view"
	"go-sales-dashboard/pkg/utils"
)

type stubRenderer struct{}

func (stubRenderer) Render(w io.Writer, spec view.ChartSpec) error {
	fmt.Fprintf(w, "<svg>%s", spec.Title)
	for _, p := range spec.Points {
		fmt.Fprintf(w, "|%s=%v", p.Category, p.Value)
	}
	_, err := io.WriteString(w, "</svg>")
	return err
}

type stubBackend struct {
	rows      []model.RawRow
	analytics model.Analytics
	err       error
}

func (s *stubBackend) FetchData(ctx context.Context) ([]model.RawRow, error) { return s.rows, s.err }

func (s *stubBackend) Analytics(ctx context.Context, name string) (model.Analytics, error) {
	if s.err != nil {
		return model.Analytics{}, s.err
	}
	a := s.analytics
	a.TaskName = name
	return a, nil
}

type stubHistory struct{ tasks []model.Task }

func (s stubHistory) LoadHistory(ctx context.Context) ([]model.Task, error) { return s.tasks, nil }

func salesAnalytics() model.Analytics {
	return model.Analytics{Sales: []model.SaleFact{
		{SaleID: "1", Company: "Acme", Model: "Roadster", Price: 100, SaleDate: "2024-03-10"},
		{SaleID: "2", Company: "Beta", Model: "Roadster", Price: 200, SaleDate: "2024-04-02"},
		{SaleID: "3", Company: "Acme", Model: "Cruiser", Price: 300, SaleDate: "2024-03-28"},
	}}
}

func newTestDashboard(t *testing.T, b *stubBackend) *Dashboard {
	t.Helper()
	return NewDashboard(b, stubHistory{tasks: []model.Task{{Name: "T1", Status: model.TaskCompleted, SourceCount: 5}}}, Options{
		Renderer: stubRenderer{},
		Outputs:  utils.NewOutputManager(t.TempDir()),
	})
}

func decodeFrame(t *testing.T, rec *httptest.ResponseRecorder) view.Frame {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var f view.Frame
	if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return f
}

func TestGetChart(t *testing.T) {
	d := newTestDashboard(t, &stubBackend{analytics: salesAnalytics()})

	tests := []struct {
		name        string
		query       string
		wantKeys    []string
		placeholder string
	}{
		{"by company keeps first-seen order", "", []string{"Acme", "Beta"}, ""},
		{"company allow-list", "?company=Beta", []string{"Beta"}, ""},
		{"all companies unchecked", "?company=", nil, pipeline.MsgSelectCompany},
		{"sorted by total ascending", "?sort=total&order=asc", []string{"Beta", "Acme"}, ""},
		{"min count", "?minCount=2", []string{"Acme"}, ""},
		{"by month", "?by=month", []string{"2024-03", "2024-04"}, ""},
		{"by model", "?by=model&model=Cruiser", []string{"Cruiser"}, ""},
		{"where expression narrows sales", "?where=price+%3E+150", []string{"Beta", "Acme"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			d.GetChart(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/Q1/charts"+tt.query, nil))
			f := decodeFrame(t, rec)

			var keys []string
			for _, r := range f.Rows {
				keys = append(keys, r.GroupKey)
			}
			if strings.Join(keys, ",") != strings.Join(tt.wantKeys, ",") {
				t.Errorf("keys = %v, want %v", keys, tt.wantKeys)
			}
			if f.Placeholder != tt.placeholder {
				t.Errorf("placeholder = %q, want %q", f.Placeholder, tt.placeholder)
			}
			if f.Controls == nil {
				t.Error("controls missing")
			}
		})
	}
}

func TestGetChartBadParams(t *testing.T) {
	d := newTestDashboard(t, &stubBackend{analytics: salesAnalytics()})
	for _, q := range []string{"?by=weekday", "?minCount=lots", "?value=group_key"} {
		rec := httptest.NewRecorder()
		d.GetChart(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/Q1/charts"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", q, rec.Code)
		}
	}
}

func TestGetChartBackendFailure(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&model.NetworkError{Op: "GET", URL: "x", StatusCode: 500}, http.StatusBadGateway},
		{&model.NetworkError{Op: "GET", URL: "x", StatusCode: 404}, http.StatusNotFound},
		{&model.NetworkError{Op: "GET", URL: "x", Err: io.ErrUnexpectedEOF}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		d := newTestDashboard(t, &stubBackend{err: tt.err})
		rec := httptest.NewRecorder()
		d.GetChart(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/Q1/charts", nil))
		if rec.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}

func TestGetChartSVG(t *testing.T) {
	d := newTestDashboard(t, &stubBackend{analytics: salesAnalytics()})

	rec := httptest.NewRecorder()
	d.GetChartSVG(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/Q1/chart.svg", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("status = %d, type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Acme=400") {
		t.Errorf("svg = %s", rec.Body)
	}

	rec = httptest.NewRecorder()
	d.GetChartSVG(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/Q1/chart.svg?company=", nil))
	if rec.Code != http.StatusNoContent || rec.Header().Get("X-Placeholder") != pipeline.MsgSelectCompany {
		t.Errorf("status = %d, placeholder = %q", rec.Code, rec.Header().Get("X-Placeholder"))
	}
}

func TestVisualize(t *testing.T) {
	d := newTestDashboard(t, &stubBackend{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/visualize?format=csv", strings.NewReader("cat,val\nA,1\nB,2\n"))
	d.Visualize(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp struct {
		Schema   model.Schema `json:"schema"`
		Inferred bool         `json:"inferred"`
		Frame    view.Frame   `json:"frame"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Inferred || resp.Schema.CategoryField != "cat" || resp.Schema.ValueField != "val" {
		t.Errorf("schema = %+v", resp.Schema)
	}
	if resp.Frame.Title != "cat vs val" || len(resp.Frame.Points) != 2 {
		t.Errorf("frame = %+v", resp.Frame)
	}
}

func TestVisualizeTransforms(t *testing.T) {
	d := newTestDashboard(t, &stubBackend{})

	rec := httptest.NewRecorder()
	body := `[{"Sale Date":"2024-01-02","Company":"  Acme  ","Price":10}]`
	d.Visualize(rec, httptest.NewRequest(http.MethodPost, "/api/v1/visualize?format=json&transform=normalizeNames,trimStrings", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"date_of_sale"`) || !strings.Contains(rec.Body.String(), `"company":"Acme"`) {
		t.Errorf("body = %s", rec.Body)
	}

	rec = httptest.NewRecorder()
	d.Visualize(rec, httptest.NewRequest(http.MethodPost, "/api/v1/visualize?format=json&transform=shout", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown transform status = %d", rec.Code)
	}
}

func TestVisualizeErrors(t *testing.T) {
	d := newTestDashboard(t, &stubBackend{})
	tests := []struct {
		name, target, contentType, body string
		want                            int
	}{
		{"unsupported format", "/api/v1/visualize?format=xml", "", "<a/>", http.StatusUnsupportedMediaType},
		{"unknown content type", "/api/v1/visualize", "text/plain", "a,b", http.StatusUnsupportedMediaType},
		{"malformed json", "/api/v1/visualize", "application/json", "[{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			d.Visualize(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestVisualizeWithoutSchema(t *testing.T) {
	d := newTestDashboard(t, &stubBackend{})
	rec := httptest.NewRecorder()
	d.Visualize(rec, httptest.NewRequest(http.MethodPost, "/api/v1/visualize?format=csv", strings.NewReader("a,b\nx,y\n")))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), model.ErrSchemaInference.Error()) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestVisualizeGrouped(t *testing.T) {
	d := newTestDashboard(t, &stubBackend{})
	body := "company,price\nAcme,100\nBeta,200\nAcme,300\n"

	rec := httptest.NewRecorder()
	d.Visualize(rec, httptest.NewRequest(http.MethodPost, "/api/v1/visualize?format=csv&group=true", strings.NewReader(body)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Acme=400") {
		t.Errorf("grouped: status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	d.Visualize(rec, httptest.NewRequest(http.MethodPost, "/api/v1/visualize?format=csv", strings.NewReader(body)))
	if strings.Contains(rec.Body.String(), "Acme=400") || !strings.Contains(rec.Body.String(), "Acme=300") {
		t.Errorf("ungrouped body = %s", rec.Body)
	}
}

func TestFeed(t *testing.T) {
	rows, err := pipeline.Parse(`[{"category":"A","value":3},{"category":"B","value":5}]`, model.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	d := newTestDashboard(t, &stubBackend{rows: rows})
	rec := httptest.NewRecorder()
	d.Feed(rec, httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "B=5") {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestListTasks(t *testing.T) {
	d := newTestDashboard(t, &stubBackend{})
	rec := httptest.NewRecorder()
	d.ListTasks(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))

	var tasks []model.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Name != "T1" || tasks[0].SourceCount != 5 {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestExportStream(t *testing.T) {
	d := newTestDashboard(t, &stubBackend{analytics: salesAnalytics()})

	rec := httptest.NewRecorder()
	d.ExportTask(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/Q1/export?by=company", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("status = %d, type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 || lines[0] != "company,count,total_value,derived_average" {
		t.Errorf("csv = %q", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "Q1_by_company.csv") {
		t.Errorf("disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	rec = httptest.NewRecorder()
	d.ExportTask(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/Q1/export?format=pdf", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("pdf status = %d", rec.Code)
	}
}

func TestExportSave(t *testing.T) {
	d := newTestDashboard(t, &stubBackend{analytics: salesAnalytics()})

	rec := httptest.NewRecorder()
	d.ExportTask(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/Q1/export?format=json&save=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var res pipeline.ExportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.RecordCount != 3 || res.Format != pipeline.ExportJSON {
		t.Errorf("result = %+v", res)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Errorf("export file: %v", err)
	}
}

func TestTaskName(t *testing.T) {
	tests := []struct {
		path, suffix, want string
		ok                 bool
	}{
		{"/api/v1/tasks/Q1 report/charts", "/charts", "Q1 report", true},
		{"/api/v1/tasks//charts", "/charts", "", false},
		{"/api/v1/other/Q1/charts", "/charts", "", false},
	}
	for _, tt := range tests {
		got, err := taskName(tt.path, tt.suffix)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("taskName(%q) = %q, %v", tt.path, got, err)
		}
	}
}
