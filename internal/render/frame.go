package render

import (
	"image/color"
	"math"
	"time"

	"talkbot/internal/avatar"
)

// State is the per-frame animation input.
type State struct {
	Speaking bool
	Emotion  avatar.Emotion
}

// Renderer paints one profile onto a surface. Render never fails: an
// unavailable surface is a no-op and unknown feature tags use defaults.
type Renderer interface {
	Render(s Surface, p avatar.Profile, st State, t time.Duration)
}

var (
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black = color.RGBA{A: 0xff}
)

// frame carries the resolution-independent geometry of one render call:
// every coordinate is an offset from the centre in reference units,
// multiplied by scale.
type frame struct {
	s      Surface
	w, h   float64
	cx, cy float64
	scale  float64
}

func newFrame(s Surface, reference float64) frame {
	w, h := s.Size()
	fw, fh := float64(w), float64(h)
	return frame{
		s:     s,
		w:     fw,
		h:     fh,
		cx:    fw / 2,
		cy:    fh / 2,
		scale: math.Min(fw, fh) / reference,
	}
}

func (f frame) x(dx float64) float64 { return f.cx + dx*f.scale }
func (f frame) y(dy float64) float64 { return f.cy + dy*f.scale }
func (f frame) u(v float64) float64  { return v * f.scale }

func (f frame) background(inner, outer color.Color) {
	f.s.FillRadialGradient(f.cx, f.cy, f.w/2,
		ColorStop{Offset: 0, Color: inner},
		ColorStop{Offset: 1, Color: outer},
	)
}

// MouthOpening is the extra mouth height, in pixels, of a speaking frame
// at time t: |sin(t/period)| * amplitude * scale. It depends on nothing
// but its arguments.
func MouthOpening(t, period time.Duration, amplitude, scale float64) float64 {
	if period <= 0 {
		return 0
	}
	return math.Abs(math.Sin(float64(t)/float64(period))) * amplitude * scale
}

// drift is a signed oscillation used for eye and pupil movement.
func drift(t, period time.Duration, amplitude, scale float64) float64 {
	if period <= 0 {
		return 0
	}
	return math.Sin(float64(t)/float64(period)) * amplitude * scale
}
