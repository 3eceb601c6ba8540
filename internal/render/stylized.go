package render

import (
	"math"
	"time"

	"talkbot/internal/avatar"
)

const (
	stylizedReference = 500

	stylizedMouthPeriod    = 150 * time.Millisecond
	stylizedMouthAmplitude = 20
	stylizedEyePeriod      = 200 * time.Millisecond
	stylizedEyeAmplitude   = 3
)

var (
	stylizedBackdropInner = avatar.ParseHex("#1a1f3a")
	stylizedBackdropOuter = avatar.ParseHex("#0d1117")
	tongueColor           = avatar.ParseHex("#ff6b9d")
	mysteriousIris        = avatar.ParseHex("#4c1d95")
)

type (
	headRoutine  func(f frame, p avatar.Profile)
	eyeRoutine   func(f frame, offset float64)
	mouthRoutine func(f frame)
	browRoutine  func(f frame)
)

var stylizedHeads = map[avatar.HeadShape]headRoutine{
	avatar.HeadCircular: circularHead,
	avatar.HeadRounded:  roundedHead,
}

var stylizedEyes = map[avatar.EyeStyle]eyeRoutine{
	avatar.EyesDigital:    digitalEyes,
	avatar.EyesHappy:      happyEyes,
	avatar.EyesFocused:    focusedEyes,
	avatar.EyesSparkle:    sparkleEyes,
	avatar.EyesMysterious: mysteriousEyes,
	avatar.EyesExcited:    excitedEyes,
	avatar.EyesSerene:     sereneEyes,
	avatar.EyesKawaii:     kawaiiEyes,
}

var stylizedMouths = map[avatar.MouthStyle]mouthRoutine{
	avatar.MouthRobotic: mouthArc(35, 50, 0.2, 0.8),
	avatar.MouthSmile:   mouthArc(30, 55, 0.2, 0.8),
	avatar.MouthNeutral: neutralMouth,
	avatar.MouthGrin:    mouthArc(25, 60, 0.15, 0.85),
	avatar.MouthSubtle:  mouthArc(40, 40, 0.3, 0.7),
	avatar.MouthWide:    mouthArc(20, 70, 0.15, 0.85),
	avatar.MouthGentle:  mouthArc(35, 45, 0.25, 0.75),
	avatar.MouthCute:    cuteMouth,
}

var stylizedBrows = map[avatar.Emotion]browRoutine{
	avatar.EmotionNeutral:   levelBrows,
	avatar.EmotionHappy:     raisedBrows(8),
	avatar.EmotionSurprised: raisedBrows(16),
	avatar.EmotionSad:       slantedBrows(-8),
	avatar.EmotionAngry:     slantedBrows(10),
}

var (
	defaultHead  = circularHead
	defaultEyes  = digitalEyes
	defaultMouth = mouthArc(35, 50, 0.2, 0.8)
	defaultBrows = levelBrows
)

func headFor(tag avatar.HeadShape) headRoutine {
	if r, ok := stylizedHeads[tag]; ok {
		return r
	}
	return defaultHead
}

func eyesFor(tag avatar.EyeStyle) eyeRoutine {
	if r, ok := stylizedEyes[tag]; ok {
		return r
	}
	return defaultEyes
}

func mouthFor(tag avatar.MouthStyle) mouthRoutine {
	if r, ok := stylizedMouths[tag]; ok {
		return r
	}
	return defaultMouth
}

func browsFor(e avatar.Emotion) browRoutine {
	if r, ok := stylizedBrows[e]; ok {
		return r
	}
	return defaultBrows
}

// Stylized renders the flat, palette-coloured avatars. It holds no
// frame-to-frame state.
type Stylized struct{}

// NewStylized returns a stylized renderer.
func NewStylized() *Stylized {
	return &Stylized{}
}

// MouthOpening is the speaking mouth amplitude at time t for the given
// scale.
func (r *Stylized) MouthOpening(t time.Duration, scale float64) float64 {
	return MouthOpening(t, stylizedMouthPeriod, stylizedMouthAmplitude, scale)
}

// Render paints p at time t.
func (r *Stylized) Render(s Surface, p avatar.Profile, st State, t time.Duration) {
	if !available(s) {
		return
	}
	f := newFrame(s, stylizedReference)

	s.Clear()
	f.background(stylizedBackdropInner, stylizedBackdropOuter)

	headFor(p.Features.Head)(f, p)

	offset := 0.0
	if st.Speaking {
		offset = drift(t, stylizedEyePeriod, stylizedEyeAmplitude, f.scale)
	}
	eyesFor(p.Features.Eyes)(f, offset)

	if st.Speaking {
		speakingMouth(f, r.MouthOpening(t, f.scale))
	} else {
		mouthFor(p.Features.Mouth)(f)
	}

	browsFor(st.Emotion)(f)
}

func circularHead(f frame, p avatar.Profile) {
	primary := avatar.ParseHex(p.Palette.Primary)

	// Soft glow ring in place of a canvas shadow.
	f.s.SetAlpha(0.25)
	f.s.SetFillColor(primary)
	f.s.BeginPath()
	f.s.Circle(f.cx, f.cy, f.u(155))
	f.s.Fill()
	f.s.SetAlpha(1)

	f.s.BeginPath()
	f.s.Circle(f.cx, f.cy, f.u(140))
	f.s.Fill()
}

func roundedHead(f frame, p avatar.Profile) {
	circularHead(f, p)

	f.s.SetAlpha(0.5)
	f.s.SetFillColor(avatar.ParseHex(p.Palette.Accent))
	f.s.BeginPath()
	f.s.Circle(f.x(-80), f.y(20), f.u(18))
	f.s.Circle(f.x(80), f.y(20), f.u(18))
	f.s.Fill()
	f.s.SetAlpha(1)
}

func digitalEyes(f frame, offset float64) {
	f.s.SetFillColor(white)
	f.s.BeginPath()
	f.s.Circle(f.x(-45), f.y(-25), f.u(22))
	f.s.Circle(f.x(45), f.y(-25), f.u(22))
	f.s.Fill()

	f.s.SetFillColor(black)
	f.s.BeginPath()
	f.s.Circle(f.x(-45)+offset, f.y(-25), f.u(12))
	f.s.Circle(f.x(45)+offset, f.y(-25), f.u(12))
	f.s.Fill()

	f.s.SetFillColor(white)
	f.s.BeginPath()
	f.s.Circle(f.x(-40), f.y(-30), f.u(6))
	f.s.Circle(f.x(50), f.y(-30), f.u(6))
	f.s.Fill()
}

func happyEyes(f frame, _ float64) {
	f.s.SetFillColor(black)
	for _, dx := range []float64{-45, 45} {
		f.s.BeginPath()
		f.s.Arc(f.x(dx), f.y(-25), f.u(15), 0.2*math.Pi, 0.8*math.Pi)
		f.s.ClosePath()
		f.s.Fill()
	}
}

func focusedEyes(f frame, offset float64) {
	f.s.SetFillColor(white)
	f.s.BeginPath()
	f.s.Ellipse(f.x(-45), f.y(-25), f.u(20), f.u(18), 0)
	f.s.Ellipse(f.x(45), f.y(-25), f.u(20), f.u(18), 0)
	f.s.Fill()

	f.s.SetFillColor(black)
	f.s.BeginPath()
	f.s.Ellipse(f.x(-45)+offset, f.y(-25), f.u(10), f.u(12), 0)
	f.s.Ellipse(f.x(45)+offset, f.y(-25), f.u(10), f.u(12), 0)
	f.s.Fill()
}

func sparkleEyes(f frame, _ float64) {
	f.s.SetFillColor(white)
	for _, dx := range []float64{-45, 45} {
		star(f.s, f.x(dx), f.y(-25), 8, f.u(20), f.u(10))
	}
}

func mysteriousEyes(f frame, _ float64) {
	f.s.SetFillColor(white)
	f.s.BeginPath()
	f.s.Ellipse(f.x(-45), f.y(-25), f.u(18), f.u(12), 0)
	f.s.Ellipse(f.x(45), f.y(-25), f.u(18), f.u(12), 0)
	f.s.Fill()

	f.s.SetFillColor(mysteriousIris)
	f.s.BeginPath()
	f.s.Ellipse(f.x(-45), f.y(-25), f.u(10), f.u(8), 0)
	f.s.Ellipse(f.x(45), f.y(-25), f.u(10), f.u(8), 0)
	f.s.Fill()
}

func excitedEyes(f frame, _ float64) {
	f.s.SetFillColor(white)
	f.s.BeginPath()
	f.s.Circle(f.x(-45), f.y(-25), f.u(25))
	f.s.Circle(f.x(45), f.y(-25), f.u(25))
	f.s.Fill()

	f.s.SetFillColor(black)
	f.s.BeginPath()
	f.s.Circle(f.x(-45), f.y(-25), f.u(15))
	f.s.Circle(f.x(45), f.y(-25), f.u(15))
	f.s.Fill()
}

func sereneEyes(f frame, _ float64) {
	f.s.SetStrokeColor(black)
	f.s.SetLineWidth(f.u(3))
	for _, dx := range []float64{-45, 45} {
		f.s.BeginPath()
		f.s.Arc(f.x(dx), f.y(-25), f.u(12), 0, math.Pi)
		f.s.Stroke()
	}
}

func kawaiiEyes(f frame, _ float64) {
	f.s.SetFillColor(black)
	f.s.BeginPath()
	f.s.Circle(f.x(-45), f.y(-25), f.u(18))
	f.s.Circle(f.x(45), f.y(-25), f.u(18))
	f.s.Fill()

	f.s.SetFillColor(white)
	f.s.BeginPath()
	f.s.Circle(f.x(-40), f.y(-30), f.u(8))
	f.s.Circle(f.x(50), f.y(-30), f.u(8))
	f.s.Fill()

	f.s.BeginPath()
	f.s.Circle(f.x(-48), f.y(-20), f.u(4))
	f.s.Circle(f.x(42), f.y(-20), f.u(4))
	f.s.Fill()
}

func mouthStroke(f frame) {
	f.s.SetStrokeColor(white)
	f.s.SetLineWidth(f.u(6))
}

// mouthArc builds a routine stroking an arc of radius r centred dy below
// the face centre, between start and end (in multiples of pi).
func mouthArc(dy, r, start, end float64) mouthRoutine {
	return func(f frame) {
		mouthStroke(f)
		f.s.BeginPath()
		f.s.Arc(f.cx, f.y(dy), f.u(r), start*math.Pi, end*math.Pi)
		f.s.Stroke()
	}
}

func neutralMouth(f frame) {
	mouthStroke(f)
	f.s.BeginPath()
	f.s.MoveTo(f.x(-40), f.y(40))
	f.s.LineTo(f.x(40), f.y(40))
	f.s.Stroke()
}

func cuteMouth(f frame) {
	mouthStroke(f)
	f.s.BeginPath()
	f.s.Arc(f.cx, f.y(30), f.u(35), 0.2*math.Pi, 0.8*math.Pi)
	f.s.Stroke()
}

func speakingMouth(f frame, open float64) {
	mouthStroke(f)
	f.s.BeginPath()
	f.s.Ellipse(f.cx, f.y(50), f.u(30), f.u(15)+open, 0)
	f.s.Stroke()

	f.s.SetFillColor(tongueColor)
	f.s.BeginPath()
	f.s.EllipticalArc(f.cx, f.y(55), f.u(18), f.u(10), 0, math.Pi)
	f.s.ClosePath()
	f.s.Fill()
}

func browStroke(f frame) {
	f.s.SetStrokeColor(white)
	f.s.SetLineWidth(f.u(5))
}

func levelBrows(f frame) {
	browStroke(f)
	f.s.BeginPath()
	f.s.MoveTo(f.x(-70), f.y(-55))
	f.s.LineTo(f.x(-25), f.y(-55))
	f.s.MoveTo(f.x(25), f.y(-55))
	f.s.LineTo(f.x(70), f.y(-55))
	f.s.Stroke()
}

// raisedBrows lifts both brows by lift reference units.
func raisedBrows(lift float64) browRoutine {
	return func(f frame) {
		browStroke(f)
		f.s.BeginPath()
		f.s.MoveTo(f.x(-70), f.y(-55-lift))
		f.s.QuadTo(f.x(-47), f.y(-65-lift), f.x(-25), f.y(-55-lift))
		f.s.MoveTo(f.x(25), f.y(-55-lift))
		f.s.QuadTo(f.x(47), f.y(-65-lift), f.x(70), f.y(-55-lift))
		f.s.Stroke()
	}
}

// slantedBrows tilts the inner ends down by tilt units (up when negative).
func slantedBrows(tilt float64) browRoutine {
	return func(f frame) {
		browStroke(f)
		f.s.BeginPath()
		f.s.MoveTo(f.x(-70), f.y(-55))
		f.s.LineTo(f.x(-25), f.y(-55+tilt))
		f.s.MoveTo(f.x(25), f.y(-55+tilt))
		f.s.LineTo(f.x(70), f.y(-55))
		f.s.Stroke()
	}
}

// star fills a star with the given number of spikes.
func star(s Surface, cx, cy float64, spikes int, outer, inner float64) {
	rot := math.Pi / 2 * 3
	step := math.Pi / float64(spikes)

	s.BeginPath()
	s.MoveTo(cx, cy-outer)
	for i := 0; i < spikes; i++ {
		s.LineTo(cx+math.Cos(rot)*outer, cy+math.Sin(rot)*outer)
		rot += step
		s.LineTo(cx+math.Cos(rot)*inner, cy+math.Sin(rot)*inner)
		rot += step
	}
	s.LineTo(cx, cy-outer)
	s.ClosePath()
	s.Fill()
}
