package view

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartKind selects how points are drawn.
type ChartKind string

const (
	KindBar  ChartKind = "bar"
	KindLine ChartKind = "line"
)

// ParseChartKind maps "line" to KindLine and anything else to KindBar.
func ParseChartKind(s string) ChartKind {
	if s == string(KindLine) {
		return KindLine
	}
	return KindBar
}

// Point is one (category, value) mark of a chart.
type Point struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// ChartSpec is everything a Renderer needs to draw one chart.
type ChartSpec struct {
	Title  string
	Kind   ChartKind
	Points []Point
	XLabel string
	YLabel string
	Width  int
	Height int
}

// Renderer draws a chart into w.
type Renderer interface {
	Render(w io.Writer, spec ChartSpec) error
}

// ErrNothingToDraw is returned for a chart without points.
var ErrNothingToDraw = errors.New("nothing to draw")

var barColor = drawing.ColorFromHex("3498db")

// SVGRenderer draws charts as SVG with go-chart.
type SVGRenderer struct {
	Width  int
	Height int
}

// NewSVGRenderer returns a renderer with a default size, used when a ChartSpec
// carries none.
func NewSVGRenderer(width, height int) *SVGRenderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 400
	}
	return &SVGRenderer{Width: width, Height: height}
}

func (r *SVGRenderer) Render(w io.Writer, spec ChartSpec) error {
	if len(spec.Points) == 0 {
		return ErrNothingToDraw
	}
	if spec.Width <= 0 {
		spec.Width = r.Width
	}
	if spec.Height <= 0 {
		spec.Height = r.Height
	}
	// A line needs two points to span the x axis.
	if spec.Kind == KindLine && len(spec.Points) > 1 {
		return r.renderLine(w, spec)
	}
	return r.renderBar(w, spec)
}

// yRange pads the top by 10% and keeps a non-zero span for all-zero data.
func yRange(points []Point) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, p := range points {
		if p.Value > hi {
			hi = p.Value
		}
		if p.Value < lo {
			lo = p.Value
		}
	}
	hi *= 1.1
	if hi <= lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func (r *SVGRenderer) renderBar(w io.Writer, spec ChartSpec) error {
	bars := make([]chart.Value, len(spec.Points))
	for i, p := range spec.Points {
		bars[i] = chart.Value{
			Label: p.Category,
			Value: p.Value,
			Style: chart.Style{FillColor: barColor, StrokeColor: barColor},
		}
	}

	barWidth := (spec.Width - 120) / (2 * len(bars))
	if barWidth < 4 {
		barWidth = 4
	}
	if barWidth > 60 {
		barWidth = 60
	}

	bc := chart.BarChart{
		Title:      spec.Title,
		Width:      spec.Width,
		Height:     spec.Height,
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis:      chart.YAxis{Name: spec.YLabel, Range: yRange(spec.Points)},
		Bars:       bars,
	}
	if err := bc.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

func (r *SVGRenderer) renderLine(w io.Writer, spec ChartSpec) error {
	n := len(spec.Points)
	xs := make([]float64, n)
	ys := make([]float64, n)
	ticks := make([]chart.Tick, n)
	for i, p := range spec.Points {
		xs[i] = float64(i + 1)
		ys[i] = p.Value
		ticks[i] = chart.Tick{Value: xs[i], Label: p.Category}
	}

	ch := chart.Chart{
		Title:      spec.Title,
		Width:      spec.Width,
		Height:     spec.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  spec.XLabel,
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(n) + 0.5},
		},
		YAxis: chart.YAxis{Name: spec.YLabel, Range: yRange(spec.Points)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    spec.YLabel,
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: barColor, StrokeWidth: 2, DotColor: barColor, DotWidth: 4},
			},
		},
	}
	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render line chart: %w", err)
	}
	return nil
}
