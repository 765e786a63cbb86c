package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/internal/pipeline"
	"go-sales-dashboard/internal/view"
	"go-sales-dashboard/pkg/utils"

	"github.com/rs/zerolog/log"
)

const (
	tasksPrefix = "/api/v1/tasks/"
	maxBody     = 32 << 20
)

// Backend is the report backend as seen by the dashboard API.
type Backend interface {
	FetchData(ctx context.Context) ([]model.RawRow, error)
	Analytics(ctx context.Context, taskName string) (model.Analytics, error)
}

// History lists report tasks.
type History interface {
	LoadHistory(ctx context.Context) ([]model.Task, error)
}

// Dashboard serves charts, filters and exports over the report backend.
type Dashboard struct {
	backend     Backend
	history     History
	renderer    view.Renderer
	outputs     *utils.OutputManager
	emptyPolicy model.EmptyPolicy
	timeout     time.Duration
}

// Options configures a Dashboard.
type Options struct {
	Renderer    view.Renderer
	Outputs     *utils.OutputManager
	EmptyPolicy model.EmptyPolicy
	Timeout     time.Duration
}

// NewDashboard wires a Dashboard. A nil renderer draws SVG at the default size.
func NewDashboard(b Backend, h History, opts Options) *Dashboard {
	if opts.Renderer == nil {
		opts.Renderer = view.NewSVGRenderer(0, 0)
	}
	if opts.Outputs == nil {
		opts.Outputs = utils.NewOutputManager("outputs")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Dashboard{
		backend:     b,
		history:     h,
		renderer:    opts.Renderer,
		outputs:     opts.Outputs,
		emptyPolicy: opts.EmptyPolicy,
		timeout:     opts.Timeout,
	}
}

// visualizeResponse is the ad-hoc chart outcome.
type visualizeResponse struct {
	pipeline.Visualization
	Frame view.Frame `json:"frame"`
}

// Health reports liveness
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (d *Dashboard) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// Visualize parses an uploaded CSV or JSON document and draws it
// @Summary Visualize raw data
// @Description Parse CSV or JSON text, infer a category and a value field and draw one bar per row
// @Tags visualize
// @Accept plain
// @Produce json
// @Param format query string false "csv or json"
// @Param transform query string false "normalizeNames, trimStrings, removeEmpty; comma separated"
// @Param group query bool false "One bar per distinct category with summed values"
// @Success 200 {object} map[string]interface{} "Schema and chart frame"
// @Failure 400 {object} map[string]interface{} "Malformed input"
// @Failure 415 {object} map[string]interface{} "Unsupported format"
// @Router /visualize [post]
func (d *Dashboard) Visualize(w http.ResponseWriter, r *http.Request) {
	format, err := requestFormat(r)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, &model.ValidationError{Field: "body", Message: err.Error()})
		return
	}

	v, err := pipeline.Visualize(string(body), format, splitValues(r.URL.Query()["transform"])...)
	if err != nil {
		writeError(w, err)
		return
	}
	d.respondVisualization(w, r, "upload", v)
}

// Feed draws the backend's ad-hoc data feed
// @Summary Visualize the backend feed
// @Tags visualize
// @Produce json
// @Param group query bool false "One bar per distinct category with summed values"
// @Success 200 {object} map[string]interface{} "Schema and chart frame"
// @Failure 502 {object} map[string]interface{} "Backend unavailable"
// @Router /feed [get]
func (d *Dashboard) Feed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), d.timeout)
	defer cancel()

	rows, err := d.backend.FetchData(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	v := pipeline.Visualization{Rows: rows}
	v.Schema, v.Inferred = pipeline.Infer(rows)
	if !v.Inferred {
		v.Message = model.ErrSchemaInference.Error()
	}
	d.respondVisualization(w, r, "feed", v)
}

func (d *Dashboard) respondVisualization(w http.ResponseWriter, r *http.Request, containerID string, v pipeline.Visualization) {
	board := view.NewBoard(d.renderer)
	render := board.RenderRaw
	if group, _ := strconv.ParseBool(r.URL.Query().Get("group")); group {
		render = board.RenderGrouped
	}
	frame, err := render(containerID, v.Rows, v.Schema)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visualizeResponse{Visualization: v, Frame: frame})
}

// ListTasks returns the report history
// @Summary List tasks
// @Description List submitted and backend-known report tasks, newest first
// @Tags tasks
// @Produce json
// @Success 200 {array} model.Task "Task history"
// @Failure 502 {object} map[string]interface{} "Backend unavailable"
// @Router /tasks [get]
func (d *Dashboard) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), d.timeout)
	defer cancel()

	tasks, err := d.history.LoadHistory(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetChart returns a filtered, sorted chart frame for a task
// @Summary Chart frame
// @Description Aggregate a task's sales and apply filter and sort parameters
// @Tags tasks
// @Produce json
// @Param name path string true "Task name"
// @Param by query string false "company, month or model"
// @Param company query string false "Allowed companies, comma separated"
// @Param model query string false "Allowed models, comma separated"
// @Param year query string false "Allowed years, comma separated"
// @Param month query string false "Allowed months, comma separated"
// @Param minCount query int false "Minimum count"
// @Param minTotal query number false "Minimum total"
// @Param sort query string false "count or total"
// @Param order query string false "asc or desc"
// @Param where query string false "Sale filter expression, e.g. price > 100 < 500"
// @Success 200 {object} view.Frame "Chart frame"
// @Failure 400 {object} map[string]interface{} "Invalid parameters"
// @Failure 502 {object} map[string]interface{} "Backend unavailable"
// @Router /tasks/{name}/charts [get]
func (d *Dashboard) GetChart(w http.ResponseWriter, r *http.Request) {
	frame, err := d.chartFrame(r, "/charts")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

// GetChartSVG returns the chart as SVG markup
// @Summary Chart SVG
// @Tags tasks
// @Produce image/svg+xml
// @Param name path string true "Task name"
// @Success 200 {string} string "SVG"
// @Success 204 "Nothing to draw"
// @Failure 502 {object} map[string]interface{} "Backend unavailable"
// @Router /tasks/{name}/chart.svg [get]
func (d *Dashboard) GetChartSVG(w http.ResponseWriter, r *http.Request) {
	frame, err := d.chartFrame(r, "/chart.svg")
	if err != nil {
		writeError(w, err)
		return
	}
	if frame.SVG == "" {
		w.Header().Set("X-Placeholder", frame.Placeholder)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	io.WriteString(w, frame.SVG)
}

// chartFrame renders the original aggregate, then replays the request's
// filter and sort onto it the way a user toggling controls would.
func (d *Dashboard) chartFrame(r *http.Request, suffix string) (view.Frame, error) {
	name, err := taskName(r.URL.Path, suffix)
	if err != nil {
		return view.Frame{}, err
	}
	q := r.URL.Query()
	kind, err := parseKind(q.Get("by"), model.KindCompany)
	if err != nil {
		return view.Frame{}, err
	}

	report, err := d.report(r.Context(), name, q.Get("where"))
	if err != nil {
		return view.Frame{}, err
	}
	rows, err := report.Rows(kind)
	if err != nil {
		return view.Frame{}, &model.ValidationError{Field: "by", Message: err.Error()}
	}

	enc := view.Encoding{
		Value: model.AggregateField(q.Get("value")),
		Chart: view.ParseChartKind(q.Get("chart")),
		Kind:  kind,
		Title: fmt.Sprintf("%s by %s", name, kind),
	}
	if _, ok := (model.AggregateRow{}).Numeric(enc.Value); !ok && enc.Value != "" {
		return view.Frame{}, &model.ValidationError{Field: "value", Message: fmt.Sprintf("unknown value field %q", enc.Value)}
	}
	if kind == model.KindMonth && q.Get("chart") == "" {
		enc.Chart = view.KindLine
	}

	board := view.NewBoard(d.renderer)
	frame, err := board.Render(name, rows, enc)
	if err != nil {
		return view.Frame{}, err
	}

	state, err := d.filterState(q, board.State(name))
	if err != nil {
		return view.Frame{}, err
	}
	// Without data there is nothing to filter or sort.
	if frame.Controls == nil {
		return frame, nil
	}
	if frame, err = board.ApplyFilter(name, state); err != nil {
		return view.Frame{}, err
	}
	if q.Has("sort") || q.Has("order") {
		if frame, err = board.SetSort(name, pipeline.ParseSortKey(q.Get("sort"), q.Get("order"))); err != nil {
			return view.Frame{}, err
		}
	}
	return frame, nil
}

// filterState overlays query parameters on base. A parameter that is present
// but blank is an explicitly empty selection.
func (d *Dashboard) filterState(q map[string][]string, base model.FilterState) (model.FilterState, error) {
	state := base
	for _, dim := range []model.Dimension{model.DimCompany, model.DimModel, model.DimYear, model.DimMonth} {
		raw, ok := q[string(dim)]
		if !ok {
			continue
		}
		state = state.WithAllow(dim, splitValues(raw)...).WithPolicy(dim, d.emptyPolicy)
	}
	for _, dim := range []model.Dimension{model.DimMinCount, model.DimMinTotal} {
		raw, ok := q[string(dim)]
		if !ok || len(raw) == 0 || strings.TrimSpace(raw[0]) == "" {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(raw[0]), 64)
		if err != nil {
			return state, &model.ValidationError{Field: string(dim), Message: "must be a number"}
		}
		state = state.WithBound(dim, n)
	}
	return state, nil
}

// ExportTask writes a task's records or aggregate as a file
// @Summary Export
// @Description Export a task's sales or one of its aggregates
// @Tags tasks
// @Produce octet-stream
// @Param name path string true "Task name"
// @Param format query string false "csv, json or xlsx"
// @Param by query string false "company, month or model; empty exports sale records"
// @Param where query string false "Sale filter expression"
// @Param save query bool false "Write to the export directory instead of the response"
// @Success 200 {file} file "Exported file"
// @Failure 400 {object} map[string]interface{} "Invalid parameters"
// @Failure 502 {object} map[string]interface{} "Backend unavailable"
// @Router /tasks/{name}/export [get]
func (d *Dashboard) ExportTask(w http.ResponseWriter, r *http.Request) {
	name, err := taskName(r.URL.Path, "/export")
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	format, err := pipeline.ParseExportFormat(q.Get("format"))
	if err != nil {
		writeError(w, &model.ValidationError{Field: "format", Message: err.Error()})
		return
	}

	report, err := d.report(r.Context(), name, q.Get("where"))
	if err != nil {
		writeError(w, err)
		return
	}

	table := pipeline.FactTable(name, report.Facts)
	base := "sales"
	if by := q.Get("by"); by != "" {
		kind, err := parseKind(by, model.KindCompany)
		if err != nil {
			writeError(w, err)
			return
		}
		rows, _ := report.Rows(kind)
		table = pipeline.AggregateTable(fmt.Sprintf("%s by %s", name, kind), kind, rows)
		base = "by_" + string(kind)
	}
	fileName := fmt.Sprintf("%s.%s", base, format)

	if save, _ := strconv.ParseBool(q.Get("save")); save {
		res, err := pipeline.ExportToFile(d.outputs, name, fileName, format, table)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", utils.SafeName(name)+"_"+fileName))
	if err := pipeline.WriteTable(w, format, table); err != nil {
		log.Error().Err(err).Str("task", name).Msg("❌ Export stream failed")
	}
}

// report fetches a task's analytics, narrowed by an optional filter
// expression such as "company = Acme, price > 1000".
func (d *Dashboard) report(ctx context.Context, name, where string) (pipeline.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	a, err := d.backend.Analytics(ctx, name)
	if err != nil {
		return pipeline.Report{}, err
	}
	return pipeline.BuildReport(pipeline.Narrow(a, where)), nil
}

// ------------------- helpers -------------------

func taskName(path, suffix string) (string, error) {
	if !strings.HasPrefix(path, tasksPrefix) || !strings.HasSuffix(path, suffix) {
		return "", &model.ValidationError{Field: "path", Message: "invalid path"}
	}
	name := strings.TrimSuffix(strings.TrimPrefix(path, tasksPrefix), suffix)
	if name == "" {
		return "", &model.ValidationError{Field: "name", Message: "task name is required"}
	}
	return name, nil
}

func parseKind(s string, def model.AggregateKind) (model.AggregateKind, error) {
	switch model.AggregateKind(s) {
	case "":
		return def, nil
	case model.KindCompany, model.KindMonth, model.KindModel:
		return model.AggregateKind(s), nil
	}
	return "", &model.ValidationError{Field: "by", Message: fmt.Sprintf("unknown aggregate %q", s)}
}

func requestFormat(r *http.Request) (model.Format, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return pipeline.DetectFormat("upload."+strings.ToLower(f), "")
	}
	return pipeline.DetectFormat("", r.Header.Get("Content-Type"))
}

func splitValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var (
		pe *model.ParseError
		ve *model.ValidationError
		ne *model.NetworkError
	)
	switch {
	case errors.Is(err, model.ErrUnsupportedFormat):
		status = http.StatusUnsupportedMediaType
	case errors.As(err, &pe), errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.As(err, &ne):
		status = http.StatusBadGateway
		if ne.StatusCode == http.StatusNotFound {
			status = http.StatusNotFound
		}
	}
	if status >= 500 {
		log.Error().Err(err).Int("status", status).Msg("❌ Request failed")
	}
	writeJSON(w, status, map[string]interface{}{"error": err.Error()})
}
