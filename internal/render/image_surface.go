package render

import (
	"errors"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
)

// ImageSurface is a raster Surface backed by a gg context.
type ImageSurface struct {
	dc     *gg.Context
	fill   color.Color
	stroke color.Color
	alpha  float64
}

// NewImageSurface allocates a width x height RGBA surface.
func NewImageSurface(width, height int) (*ImageSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("render: surface dimensions must be positive")
	}
	dc := gg.NewContext(width, height)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	return &ImageSurface{
		dc:     dc,
		fill:   color.Black,
		stroke: color.Black,
		alpha:  1,
	}, nil
}

// Image returns the backing image.
func (s *ImageSurface) Image() image.Image {
	return s.dc.Image()
}

// EncodePNG writes the current frame as PNG.
func (s *ImageSurface) EncodePNG(w io.Writer) error {
	return s.dc.EncodePNG(w)
}

func (s *ImageSurface) Size() (int, int) {
	return s.dc.Width(), s.dc.Height()
}

func (s *ImageSurface) Clear() {
	s.dc.ClearPath()
	s.dc.SetColor(color.Transparent)
	s.dc.Clear()
}

func (s *ImageSurface) FillRadialGradient(cx, cy, radius float64, stops ...ColorStop) {
	if len(stops) == 0 {
		return
	}
	w, h := float64(s.dc.Width()), float64(s.dc.Height())

	// Solid base so no pixel is left transparent whatever the gradient
	// implementation does outside its radius.
	s.dc.ClearPath()
	s.dc.SetColor(stops[len(stops)-1].Color)
	s.dc.DrawRectangle(0, 0, w, h)
	s.dc.Fill()

	grad := gg.NewRadialGradient(cx, cy, 0, cx, cy, radius)
	for _, st := range stops {
		grad.AddColorStop(st.Offset, st.Color)
	}
	s.dc.SetFillStyle(grad)
	s.dc.DrawRectangle(0, 0, w, h)
	s.dc.Fill()
}

func (s *ImageSurface) SetFillColor(c color.Color)   { s.fill = c }
func (s *ImageSurface) SetStrokeColor(c color.Color) { s.stroke = c }
func (s *ImageSurface) SetLineWidth(w float64)       { s.dc.SetLineWidth(w) }

func (s *ImageSurface) SetAlpha(a float64) {
	switch {
	case a < 0:
		a = 0
	case a > 1:
		a = 1
	}
	s.alpha = a
}

func (s *ImageSurface) BeginPath()                  { s.dc.ClearPath() }
func (s *ImageSurface) MoveTo(x, y float64)         { s.dc.MoveTo(x, y) }
func (s *ImageSurface) LineTo(x, y float64)         { s.dc.LineTo(x, y) }
func (s *ImageSurface) QuadTo(cx, cy, x, y float64) { s.dc.QuadraticTo(cx, cy, x, y) }
func (s *ImageSurface) ClosePath()                  { s.dc.ClosePath() }

func (s *ImageSurface) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	s.dc.CubicTo(c1x, c1y, c2x, c2y, x, y)
}

func (s *ImageSurface) Arc(x, y, r, angle1, angle2 float64) {
	s.dc.DrawArc(x, y, r, angle1, angle2)
}

func (s *ImageSurface) EllipticalArc(x, y, rx, ry, angle1, angle2 float64) {
	s.dc.DrawEllipticalArc(x, y, rx, ry, angle1, angle2)
}

func (s *ImageSurface) Circle(x, y, r float64) {
	s.dc.DrawCircle(x, y, r)
}

func (s *ImageSurface) Ellipse(x, y, rx, ry, rotation float64) {
	if rotation == 0 {
		s.dc.DrawEllipse(x, y, rx, ry)
		return
	}
	// gg transforms points as they are added, so the rotation only
	// affects this sub-path.
	s.dc.Push()
	s.dc.RotateAbout(rotation, x, y)
	s.dc.DrawEllipse(x, y, rx, ry)
	s.dc.Pop()
}

func (s *ImageSurface) Rect(x, y, w, h float64) {
	s.dc.NewSubPath()
	s.dc.DrawRectangle(x, y, w, h)
}

func (s *ImageSurface) RoundRect(x, y, w, h, r float64) {
	s.dc.NewSubPath()
	s.dc.DrawRoundedRectangle(x, y, w, h, r)
}

func (s *ImageSurface) Fill() {
	s.dc.SetColor(withAlpha(s.fill, s.alpha))
	s.dc.FillPreserve()
}

func (s *ImageSurface) Stroke() {
	s.dc.SetColor(withAlpha(s.stroke, s.alpha))
	s.dc.StrokePreserve()
}

func withAlpha(c color.Color, alpha float64) color.Color {
	if alpha >= 1 {
		return c
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(float64(n.A) * alpha)
	return n
}
