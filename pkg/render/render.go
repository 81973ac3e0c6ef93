// Package render draws numeric series as PNG line plots.
//
// A Renderer has fixed styling: the figure size comes from configuration and
// callers only choose the data and the three text labels. Rendering is pure,
// it never touches the filesystem and returns the encoded bytes.
package render

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	DefaultMaxPoints = 5000
	DefaultWidth     = 720
	DefaultHeight    = 480

	DefaultTitle  = "Data Plot"
	DefaultXLabel = "Index"
	DefaultYLabel = "Value"
)

var (
	lineColor = drawing.ColorFromHex("1f77b4")
	gridColor = drawing.ColorFromHex("d9d9d9")
)

// Validation failure reasons, usable as metric labels.
const (
	ReasonEmpty          = "empty"
	ReasonTooManyPoints  = "too_many_points"
	ReasonNonFinite      = "non_finite"
	ReasonLengthMismatch = "length_mismatch"
)

// ValidationError reports input that can never render, no matter how often
// it is retried. Msg is safe to show to callers.
type ValidationError struct {
	Reason string
	Msg    string
}

func (e *ValidationError) Error() string { return e.Msg }

// Invalid returns a *ValidationError with a formatted message.
func Invalid(reason, format string, args ...any) error {
	return &ValidationError{Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// Series is an ordered sequence of points. When X is nil the points are
// plotted against their index.
type Series struct {
	X []float64
	Y []float64
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Y) }

// Labels holds the caller-supplied text of a plot. Empty fields use defaults.
type Labels struct {
	Title  string
	XLabel string
	YLabel string
}

func (l Labels) withDefaults() Labels {
	if l.Title == "" {
		l.Title = DefaultTitle
	}
	if l.XLabel == "" {
		l.XLabel = DefaultXLabel
	}
	if l.YLabel == "" {
		l.YLabel = DefaultYLabel
	}
	return l
}

// Renderer turns series into PNG images.
type Renderer struct {
	maxPoints int
	width     int
	height    int
}

// NewRenderer creates a Renderer. Non-positive arguments use the defaults.
func NewRenderer(maxPoints, width, height int) *Renderer {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Renderer{maxPoints: maxPoints, width: width, height: height}
}

// MaxPoints returns the largest accepted series length.
func (r *Renderer) MaxPoints() int { return r.maxPoints }

// Validate checks s against the renderer's limits.
func (r *Renderer) Validate(s Series) error {
	n := len(s.Y)
	if n == 0 {
		return Invalid(ReasonEmpty, "data must be non-empty")
	}
	if n > r.maxPoints {
		return Invalid(ReasonTooManyPoints, "data contains too many points (max %d)", r.maxPoints)
	}
	for _, v := range s.Y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Invalid(ReasonNonFinite, "all y values must be finite")
		}
	}
	if s.X == nil {
		return nil
	}
	if len(s.X) != n {
		return Invalid(ReasonLengthMismatch, "x and y must have the same length")
	}
	for _, v := range s.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Invalid(ReasonNonFinite, "all x values must be finite")
		}
	}
	return nil
}

// Render validates s and returns it drawn as a PNG.
func (r *Renderer) Render(s Series, labels Labels) ([]byte, error) {
	if err := r.Validate(s); err != nil {
		return nil, err
	}
	labels = labels.withDefaults()

	xs := s.X
	if xs == nil {
		xs = make([]float64, len(s.Y))
		for i := range xs {
			xs[i] = float64(i)
		}
	}
	xScale, xs := fitMagnitude(xs)
	yScale, ys := fitMagnitude(s.Y)

	style := chart.Style{
		StrokeColor: lineColor,
		StrokeWidth: 1.8,
	}
	// A lone point has no segment to stroke.
	if len(ys) == 1 {
		style.DotColor = lineColor
		style.DotWidth = 4
	}

	xMin, xMax := bounds(xs, 0)
	yMin, yMax := bounds(ys, 0.05)
	grid := chart.Style{StrokeColor: gridColor, StrokeWidth: 0.3}

	graph := chart.Chart{
		Title:      labels.Title,
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           labels.XLabel,
			Range:          &chart.ContinuousRange{Min: xMin, Max: xMax},
			ValueFormatter: tickFormatter(xScale),
			GridMajorStyle: grid,
		},
		YAxis: chart.YAxis{
			Name:           labels.YLabel,
			Range:          &chart.ContinuousRange{Min: yMin, Max: yMax},
			ValueFormatter: tickFormatter(yScale),
			GridMajorStyle: grid,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    labels.YLabel,
				XValues: xs,
				YValues: ys,
				Style:   style,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// maxAxisMagnitude bounds the values handed to go-chart. Below it an axis
// range, its widening and its delta all stay finite.
const maxAxisMagnitude = 1e300

// fitMagnitude scales vs down by a power of two until every value is within
// maxAxisMagnitude. It returns the applied factor (1 when vs already fits)
// and the values to draw.
func fitMagnitude(vs []float64) (float64, []float64) {
	var m float64
	for _, v := range vs {
		m = math.Max(m, math.Abs(v))
	}
	scale := 1.0
	for m*scale > maxAxisMagnitude {
		scale /= 2
	}
	if scale == 1 {
		return 1, vs
	}
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v * scale
	}
	return scale, out
}

// tickFormatter labels ticks with the unscaled value. Large magnitudes use
// compact exponent notation.
func tickFormatter(scale float64) chart.ValueFormatter {
	return func(v interface{}) string {
		f, ok := v.(float64)
		if !ok {
			return chart.FloatValueFormatter(v)
		}
		f /= scale
		if math.IsInf(f, 0) {
			f = math.Copysign(math.MaxFloat64, f)
		}
		if math.Abs(f) < 1e6 {
			return strconv.FormatFloat(f, 'f', 2, 64)
		}
		return strconv.FormatFloat(f, 'g', 4, 64)
	}
}

// bounds returns the min and max of vs widened by margin (a fraction of the
// span). A zero span is widened by a step relative to the value, at least one
// unit, so the range is never empty. vs must be within maxAxisMagnitude.
func bounds(vs []float64, margin float64) (float64, float64) {
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		step := math.Max(1, math.Abs(lo)*1e-9)
		return lo - step, hi + step
	}
	return lo - span*margin, hi + span*margin
}
