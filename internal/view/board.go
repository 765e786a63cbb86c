package view

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/internal/pipeline"

	"github.com/rs/zerolog/log"
)

// ErrNotRendered is returned when a container is filtered before its first
// render with data.
var ErrNotRendered = errors.New("container has not been rendered")

// Encoding maps aggregate attributes onto chart axes.
type Encoding struct {
	Category model.AggregateField `json:"category"`
	Value    model.AggregateField `json:"value"`
	Chart    ChartKind            `json:"chart"`
	Kind     model.AggregateKind  `json:"kind"`
	Title    string               `json:"title,omitempty"`
}

// Frame is what one container currently shows. Each render replaces it.
type Frame struct {
	ContainerID string               `json:"container_id"`
	Chart       ChartKind            `json:"chart"`
	Title       string               `json:"title,omitempty"`
	Points      []Point              `json:"points"`
	Rows        []model.AggregateRow `json:"rows,omitempty"`
	SVG         string               `json:"svg,omitempty"`
	Placeholder string               `json:"placeholder,omitempty"`
	Controls    *Controls            `json:"controls,omitempty"`
}

// container is the state of one chart. original is written once and only
// read afterwards.
type container struct {
	mu       sync.Mutex
	once     sync.Once
	original []model.AggregateRow
	encoding Encoding
	controls *Controls
	state    model.FilterState
	sortKey  pipeline.SortKey
	frame    Frame
	table    *DetailTable
}

// Board holds the charts of one dashboard, keyed by container id.
type Board struct {
	renderer   Renderer
	mu         sync.Mutex
	containers map[string]*container
}

// NewBoard returns an empty board drawing with r.
func NewBoard(r Renderer) *Board {
	if r == nil {
		r = NewSVGRenderer(0, 0)
	}
	return &Board{renderer: r, containers: make(map[string]*container)}
}

func (b *Board) container(id string, create bool) *container {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.containers[id]
	if !ok && create {
		c = &container{}
		b.containers[id] = c
	}
	return c
}

// Render draws rows into the container, replacing whatever it showed. The
// first render with data caches rows as the container's original and builds
// its filter controls; later renders reuse both.
func (b *Board) Render(containerID string, rows []model.AggregateRow, enc Encoding) (Frame, error) {
	enc = withDefaults(enc)
	c := b.container(containerID, true)
	c.mu.Lock()
	defer c.mu.Unlock()

	frame, err := b.draw(containerID, rows, enc, pipeline.MsgNoMatch)
	if err != nil {
		return Frame{}, err
	}

	c.encoding = enc
	if len(rows) > 0 {
		c.once.Do(func() {
			c.original = append([]model.AggregateRow(nil), rows...)
			log.Debug().Str("container", containerID).Int("rows", len(rows)).Msg("📌 Cached original rows")
		})
	}
	if c.controls == nil && c.original != nil && enc.Kind != model.KindField {
		c.controls = NewControls(c.original, enc.Kind)
		c.state = c.controls.InitialState()
	}

	frame.Controls = c.controls
	c.frame = frame
	return frame, nil
}

// ApplyFilter re-evaluates state against the cached original and redraws.
func (b *Board) ApplyFilter(containerID string, state model.FilterState) (Frame, error) {
	c := b.container(containerID, false)
	if c == nil {
		return Frame{}, fmt.Errorf("%w: %s", ErrNotRendered, containerID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.original == nil {
		return Frame{}, fmt.Errorf("%w: %s", ErrNotRendered, containerID)
	}

	c.state = state
	return b.redraw(containerID, c)
}

// SetSort changes the ranking of the container's bars and redraws with the
// current filter.
func (b *Board) SetSort(containerID string, key pipeline.SortKey) (Frame, error) {
	c := b.container(containerID, false)
	if c == nil {
		return Frame{}, fmt.Errorf("%w: %s", ErrNotRendered, containerID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.original == nil {
		return Frame{}, fmt.Errorf("%w: %s", ErrNotRendered, containerID)
	}

	c.sortKey = key
	return b.redraw(containerID, c)
}

// redraw must be called with c.mu held.
func (b *Board) redraw(containerID string, c *container) (Frame, error) {
	visible := pipeline.ApplyFilters(c.original, c.encoding.Kind, c.state)
	visible = pipeline.SortAggregates(visible, c.sortKey)

	placeholder := pipeline.MsgNoMatch
	if len(visible) == 0 {
		placeholder = pipeline.NoDataMessage(c.state, c.encoding.Kind)
	}
	frame, err := b.draw(containerID, visible, c.encoding, placeholder)
	if err != nil {
		return Frame{}, err
	}
	frame.Controls = c.controls
	c.frame = frame
	return frame, nil
}

// RenderRaw draws an ad-hoc upload: one bar per row, labelled by the schema's
// category field. It never builds filter controls.
func (b *Board) RenderRaw(containerID string, rows []model.RawRow, schema model.Schema) (Frame, error) {
	c := b.container(containerID, true)
	c.mu.Lock()
	defer c.mu.Unlock()

	frame := Frame{ContainerID: containerID, Chart: KindBar, Points: []Point{}}
	if schema.CategoryField == "" || schema.ValueField == "" {
		frame.Placeholder = model.ErrSchemaInference.Error()
		c.frame = frame
		return frame, nil
	}

	frame.Title = fmt.Sprintf("%s vs %s", schema.CategoryField, schema.ValueField)
	for _, r := range rows {
		cat, _ := r.Get(schema.CategoryField)
		var value float64
		if v, ok := r.Get(schema.ValueField); ok && v.IsNumber() {
			value = v.Number
		}
		frame.Points = append(frame.Points, Point{Category: cat.String(), Value: value})
	}
	if len(frame.Points) == 0 {
		frame.Placeholder = pipeline.MsgNoMatch
		c.frame = frame
		return frame, nil
	}

	var buf bytes.Buffer
	spec := ChartSpec{Title: frame.Title, Kind: KindBar, Points: frame.Points, XLabel: schema.CategoryField, YLabel: schema.ValueField}
	if err := b.renderer.Render(&buf, spec); err != nil {
		return Frame{}, err
	}
	frame.SVG = buf.String()
	c.frame = frame
	return frame, nil
}

// RenderGrouped draws an ad-hoc upload with one bar per distinct category,
// summing the value field. Like RenderRaw it builds no filter controls.
func (b *Board) RenderGrouped(containerID string, rows []model.RawRow, schema model.Schema) (Frame, error) {
	if schema.CategoryField == "" || schema.ValueField == "" {
		return b.RenderRaw(containerID, rows, schema)
	}
	grouped := pipeline.AggregateRawRows(rows, schema.CategoryField, schema.ValueField)
	return b.Render(containerID, grouped, Encoding{
		Kind:  model.KindField,
		Title: fmt.Sprintf("%s vs %s", schema.CategoryField, schema.ValueField),
	})
}

func (b *Board) draw(containerID string, rows []model.AggregateRow, enc Encoding, placeholder string) (Frame, error) {
	frame := Frame{
		ContainerID: containerID,
		Chart:       enc.Chart,
		Title:       enc.Title,
		Points:      pointsOf(rows, enc),
		Rows:        rows,
	}
	if len(frame.Points) == 0 {
		frame.Placeholder = placeholder
		return frame, nil
	}

	var buf bytes.Buffer
	spec := ChartSpec{
		Title:  enc.Title,
		Kind:   enc.Chart,
		Points: frame.Points,
		XLabel: string(enc.Kind),
		YLabel: string(enc.Value),
	}
	if err := b.renderer.Render(&buf, spec); err != nil {
		log.Error().Err(err).Str("container", containerID).Msg("❌ Chart render failed")
		return Frame{}, err
	}
	frame.SVG = buf.String()
	return frame, nil
}

func pointsOf(rows []model.AggregateRow, enc Encoding) []Point {
	points := make([]Point, 0, len(rows))
	for _, r := range rows {
		label := r.GroupKey
		if n, ok := r.Numeric(enc.Category); ok {
			label = fmt.Sprint(n)
		}
		value, _ := r.Numeric(enc.Value)
		points = append(points, Point{Category: label, Value: value})
	}
	return points
}

func withDefaults(enc Encoding) Encoding {
	if enc.Category == "" {
		enc.Category = model.FieldGroupKey
	}
	if enc.Value == "" {
		enc.Value = model.FieldTotalValue
	}
	if enc.Chart == "" {
		enc.Chart = KindBar
	}
	if enc.Kind == "" {
		enc.Kind = model.KindField
	}
	return enc
}

// Frame returns what the container currently shows.
func (b *Board) Frame(containerID string) (Frame, bool) {
	c := b.container(containerID, false)
	if c == nil {
		return Frame{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame, true
}

// Original returns a copy of the container's cached original rows.
func (b *Board) Original(containerID string) []model.AggregateRow {
	c := b.container(containerID, false)
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.AggregateRow(nil), c.original...)
}

// Controls returns the container's filter controls, nil before the first
// render with data.
func (b *Board) Controls(containerID string) *Controls {
	c := b.container(containerID, false)
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controls
}

// State returns the container's current filter state.
func (b *Board) State(containerID string) model.FilterState {
	c := b.container(containerID, false)
	if c == nil {
		return model.FilterState{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AttachTable binds a detail table to the container's hover and click events.
func (b *Board) AttachTable(containerID string, t *DetailTable) {
	c := b.container(containerID, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = t
}

// Hover forwards a hover on a chart mark to the attached table.
func (b *Board) Hover(containerID, category string) {
	if t := b.table(containerID); t != nil {
		t.Hover(category)
	}
}

// Click forwards a click on a chart mark to the attached table.
func (b *Board) Click(containerID, category string) {
	if t := b.table(containerID); t != nil {
		t.Click(category)
	}
}

func (b *Board) table(containerID string) *DetailTable {
	c := b.container(containerID, false)
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table
}
