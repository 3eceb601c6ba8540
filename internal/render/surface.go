// Package render paints avatar profiles onto 2D drawing surfaces.
//
// A frame is a pure function of the profile, the animation state, the
// injected time and (for human avatars) the renderer's blink counter.
// Every frame starts from a cleared surface.
package render

import "image/color"

// ColorStop is one stop of a gradient, offset in [0,1].
type ColorStop struct {
	Offset float64
	Color  color.Color
}

// Surface is a canvas-like drawing target.
//
// Path semantics follow the HTML canvas: BeginPath discards the current
// path, Fill and Stroke paint it without discarding it, Arc and
// EllipticalArc continue the current sub-path, Circle, Ellipse, Rect and
// RoundRect each start a new closed sub-path. Angles are radians,
// clockwise in screen space; an arc whose end angle is below its start
// angle is traced backwards.
type Surface interface {
	Size() (width, height int)
	Clear()
	// FillRadialGradient paints the whole surface with a gradient centred
	// on (cx, cy). Pixels beyond radius take the last stop's colour.
	FillRadialGradient(cx, cy, radius float64, stops ...ColorStop)

	SetFillColor(c color.Color)
	SetStrokeColor(c color.Color)
	SetLineWidth(w float64)
	// SetAlpha sets the global opacity applied at paint time.
	SetAlpha(a float64)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadTo(cx, cy, x, y float64)
	CubicTo(c1x, c1y, c2x, c2y, x, y float64)
	Arc(x, y, r, angle1, angle2 float64)
	EllipticalArc(x, y, rx, ry, angle1, angle2 float64)
	ClosePath()

	Circle(x, y, r float64)
	Ellipse(x, y, rx, ry, rotation float64)
	Rect(x, y, w, h float64)
	RoundRect(x, y, w, h, r float64)

	Fill()
	Stroke()
}

// available reports whether s can be drawn on.
func available(s Surface) bool {
	if s == nil {
		return false
	}
	w, h := s.Size()
	return w > 0 && h > 0
}
