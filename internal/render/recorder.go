package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Call is one recorded Surface operation. Arguments are rounded to three
// decimals so recordings compare reliably.
type Call struct {
	Op   string
	Args []float64
}

func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Op
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = fmt.Sprintf("%.3f", a)
	}
	return c.Op + "(" + strings.Join(parts, ",") + ")"
}

// Recorder is a Surface that records the operations issued to it instead
// of rasterising them. It is how dispatch is checked without comparing
// pixels.
type Recorder struct {
	width, height int
	calls         []Call
}

// NewRecorder returns a recorder reporting the given size.
func NewRecorder(width, height int) *Recorder {
	return &Recorder{width: width, height: height}
}

// Calls returns the recorded operations in issue order.
func (r *Recorder) Calls() []Call {
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Ops returns the recorded operations as strings.
func (r *Recorder) Ops() []string {
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.String()
	}
	return out
}

// Reset drops all recorded operations.
func (r *Recorder) Reset() {
	r.calls = r.calls[:0]
}

func (r *Recorder) record(op string, args ...float64) {
	rounded := make([]float64, len(args))
	for i, a := range args {
		rounded[i] = math.Round(a*1000) / 1000
	}
	r.calls = append(r.calls, Call{Op: op, Args: rounded})
}

func (r *Recorder) recordColor(op string, c color.Color) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	r.record(op, float64(n.R), float64(n.G), float64(n.B), float64(n.A))
}

func (r *Recorder) Size() (int, int) { return r.width, r.height }
func (r *Recorder) Clear()           { r.record("clear") }

func (r *Recorder) FillRadialGradient(cx, cy, radius float64, stops ...ColorStop) {
	r.record("gradient", cx, cy, radius, float64(len(stops)))
}

func (r *Recorder) SetFillColor(c color.Color)   { r.recordColor("fillColor", c) }
func (r *Recorder) SetStrokeColor(c color.Color) { r.recordColor("strokeColor", c) }
func (r *Recorder) SetLineWidth(w float64)       { r.record("lineWidth", w) }
func (r *Recorder) SetAlpha(a float64)           { r.record("alpha", a) }

func (r *Recorder) BeginPath()                  { r.record("beginPath") }
func (r *Recorder) MoveTo(x, y float64)         { r.record("moveTo", x, y) }
func (r *Recorder) LineTo(x, y float64)         { r.record("lineTo", x, y) }
func (r *Recorder) QuadTo(cx, cy, x, y float64) { r.record("quadTo", cx, cy, x, y) }
func (r *Recorder) ClosePath()                  { r.record("closePath") }

func (r *Recorder) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	r.record("cubicTo", c1x, c1y, c2x, c2y, x, y)
}

func (r *Recorder) Arc(x, y, rad, angle1, angle2 float64) {
	r.record("arc", x, y, rad, angle1, angle2)
}

func (r *Recorder) EllipticalArc(x, y, rx, ry, angle1, angle2 float64) {
	r.record("ellipticalArc", x, y, rx, ry, angle1, angle2)
}

func (r *Recorder) Circle(x, y, rad float64) { r.record("circle", x, y, rad) }

func (r *Recorder) Ellipse(x, y, rx, ry, rotation float64) {
	r.record("ellipse", x, y, rx, ry, rotation)
}

func (r *Recorder) Rect(x, y, w, h float64)           { r.record("rect", x, y, w, h) }
func (r *Recorder) RoundRect(x, y, w, h, rad float64) { r.record("roundRect", x, y, w, h, rad) }

func (r *Recorder) Fill()   { r.record("fill") }
func (r *Recorder) Stroke() { r.record("stroke") }
