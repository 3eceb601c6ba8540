package render

import (
	"hash/fnv"
	"image/color"
	"math"
	"math/rand/v2"
	"time"

	"talkbot/internal/avatar"
)

const (
	humanReference = 600

	humanMouthPeriod    = 120 * time.Millisecond
	humanMouthAmplitude = 20
	pupilPeriod         = 300 * time.Millisecond
	pupilAmplitude      = 2

	// BlinkCycle is the length in frames of one open-then-closed blink
	// cycle; the eyes are closed from BlinkStart to the end of the cycle.
	BlinkCycle = 186
	BlinkStart = 181
)

var (
	humanBackdropInner = avatar.ParseHex("#2d3748")
	humanBackdropOuter = avatar.ParseHex("#1a202c")
	lipColor           = avatar.ParseHex("#d1868b")
	openMouthColor     = avatar.ParseHex("#8b4545")
	frameColor         = avatar.ParseHex("#2c3e50")
	goldColor          = avatar.ParseHex("#ffd700")
	silverColor        = avatar.ParseHex("#c0c0c0")
	blushColor         = avatar.ParseHex("#e8909a")
)

// look is the resolved colour set of one human profile.
type look struct {
	skin   color.RGBA
	hair   color.RGBA
	eyes   color.RGBA
	traits avatar.HumanTraits
}

func newLook(h avatar.HumanTraits) look {
	return look{
		skin:   avatar.ParseHex(h.SkinTone),
		hair:   avatar.ParseHex(h.HairColor),
		eyes:   avatar.ParseHex(h.EyeColor),
		traits: h,
	}
}

type (
	faceRoutine       func(f frame)
	hairRoutine       func(f frame, rng *rand.Rand)
	noseRoutine       func(f frame)
	beardRoutine      func(f frame, l look, rng *rand.Rand)
	humanMouthRoutine func(f frame)
	humanBrowRoutine  func(f frame)
)

var faceShapes = map[avatar.FaceShape]faceRoutine{
	avatar.FaceOval:   ovalFace,
	avatar.FaceRound:  roundFace,
	avatar.FaceSquare: squareFace,
	avatar.FaceHeart:  heartFace,
}

var hairStyles = map[avatar.HairStyle]hairRoutine{
	avatar.HairShort:    shortHair,
	avatar.HairLong:     longHair,
	avatar.HairBob:      bobHair,
	avatar.HairPonytail: ponytail,
	avatar.HairCurly:    curlyHair,
	avatar.HairBuzz:     buzzCut,
	avatar.HairMessy:    messyHair,
	avatar.HairReceding: recedingHair,
}

var noseStyles = map[avatar.NoseStyle]noseRoutine{
	avatar.NoseSmall:  triangleNose(0, 8, 20),
	avatar.NoseMedium: triangleNose(-10, 10, 25),
	avatar.NoseLarge:  triangleNose(-15, 12, 30),
	avatar.NoseButton: buttonNose,
}

var beardStyles = map[avatar.BeardStyle]beardRoutine{
	avatar.BeardStubble: stubble,
	avatar.BeardShort:   shortBeard,
	avatar.BeardFull:    fullBeard,
}

var humanMouths = map[avatar.Emotion]humanMouthRoutine{
	avatar.EmotionNeutral:   lipsMouth(-5, 35, 25, 2, 5),
	avatar.EmotionHappy:     lipsMouth(-10, 40, 30, 5, 10),
	avatar.EmotionSad:       frownMouth,
	avatar.EmotionSurprised: openMouth,
	avatar.EmotionAngry:     flatMouth,
}

var humanBrows = map[avatar.Emotion]humanBrowRoutine{
	avatar.EmotionNeutral: straightBrows,
	avatar.EmotionHappy:   archedBrows(0, 1.2, 1.8),
	avatar.EmotionSad:     archedBrows(-5, 0.2, 0.8),
	avatar.EmotionAngry:   angryBrows,
}

var (
	defaultFace       = ovalFace
	defaultHair       = shortHair
	defaultNose       = triangleNose(-10, 10, 25)
	defaultBeard      = stubble
	defaultHumanMouth = lipsMouth(-5, 35, 25, 2, 5)
	defaultHumanBrows = straightBrows
)

func faceFor(tag avatar.FaceShape) faceRoutine {
	if r, ok := faceShapes[tag]; ok {
		return r
	}
	return defaultFace
}

func hairFor(tag avatar.HairStyle) hairRoutine {
	if r, ok := hairStyles[tag]; ok {
		return r
	}
	return defaultHair
}

func noseFor(tag avatar.NoseStyle) noseRoutine {
	if r, ok := noseStyles[tag]; ok {
		return r
	}
	return defaultNose
}

func beardFor(tag avatar.BeardStyle) beardRoutine {
	if r, ok := beardStyles[tag]; ok {
		return r
	}
	return defaultBeard
}

func humanMouthFor(e avatar.Emotion) humanMouthRoutine {
	if r, ok := humanMouths[e]; ok {
		return r
	}
	return defaultHumanMouth
}

func humanBrowsFor(e avatar.Emotion) humanBrowRoutine {
	if r, ok := humanBrows[e]; ok {
		return r
	}
	return defaultHumanBrows
}

// Human renders the realistic avatars. It owns the blink counter, so one
// instance serves one display surface and is not safe for concurrent use.
type Human struct {
	blink int
}

// NewHuman returns a human renderer with its eyes open.
func NewHuman() *Human {
	return &Human{}
}

// BlinkPhase is the frame index within the current blink cycle.
func (r *Human) BlinkPhase() int {
	return r.blink
}

// MouthOpening is the speaking mouth amplitude at time t for the given
// scale.
func (r *Human) MouthOpening(t time.Duration, scale float64) float64 {
	return MouthOpening(t, humanMouthPeriod, humanMouthAmplitude, scale)
}

// Render paints p at time t and advances the blink counter by one frame.
func (r *Human) Render(s Surface, p avatar.Profile, st State, t time.Duration) {
	if !available(s) {
		return
	}
	closed := r.blink >= BlinkStart
	r.blink = (r.blink + 1) % BlinkCycle

	f := newFrame(s, humanReference)
	l := newLook(p.Human)
	rng := seeded(p.ID)
	acc := p.Human.Accessories

	s.Clear()
	f.background(humanBackdropInner, humanBackdropOuter)

	neck(f, l)
	head(f, l)
	if acc.Wrinkles {
		wrinkles(f, l)
	}
	if acc.Makeup != "" {
		blush(f)
	}

	s.SetFillColor(l.hair)
	hairFor(p.Human.HairStyle)(f, rng)

	ears(f, l)

	pupil := 0.0
	if st.Speaking {
		pupil = drift(t, pupilPeriod, pupilAmplitude, f.scale)
	}
	humanEyes(f, l, pupil, closed)

	noseColors(f, l)
	noseFor(p.Human.Face.Nose)(f)
	nostrils(f, l)

	f.s.SetStrokeColor(avatar.Darken(l.skin, 0.7))
	f.s.SetLineWidth(f.u(3))
	if st.Speaking {
		talkingMouth(f, r.MouthOpening(t, f.scale))
	} else {
		humanMouthFor(st.Emotion)(f)
		lipLine(f)
	}

	f.s.SetStrokeColor(avatar.Darken(l.hair, 0.8))
	f.s.SetLineWidth(f.u(4))
	humanBrowsFor(st.Emotion)(f)

	if acc.Glasses {
		glasses(f)
	}
	if acc.Beard != avatar.BeardNone {
		beardFor(acc.Beard)(f, l, rng)
	}
	if acc.Mustache {
		mustache(f, l)
	}
	if acc.Earrings {
		earrings(f)
	}
	if acc.Piercings {
		piercing(f)
	}
}

// seeded returns a generator whose sequence depends only on id.
func seeded(id string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum>>1|1))
}

func neck(f frame, l look) {
	w := 60.0
	if l.traits.Accessories.Athletic {
		w = 70
	}
	f.s.SetFillColor(avatar.Darken(l.skin, 0.9))
	f.s.BeginPath()
	f.s.MoveTo(f.x(-w), f.y(130))
	f.s.LineTo(f.x(-w+20), f.y(180))
	f.s.LineTo(f.x(w-20), f.y(180))
	f.s.LineTo(f.x(w), f.y(130))
	f.s.ClosePath()
	f.s.Fill()
}

func head(f frame, l look) {
	f.s.SetFillColor(l.skin)
	f.s.BeginPath()
	faceFor(l.traits.Face.Shape)(f)
	f.s.Fill()

	f.s.SetFillColor(avatar.Darken(l.skin, 0.95))
	f.s.SetAlpha(0.3)
	f.s.BeginPath()
	f.s.Ellipse(f.x(-70), f.y(20), f.u(30), f.u(40), 0)
	f.s.Fill()
	f.s.BeginPath()
	f.s.Ellipse(f.x(70), f.y(20), f.u(30), f.u(40), 0)
	f.s.Fill()
	f.s.SetAlpha(1)
}

func ovalFace(f frame)   { f.s.Ellipse(f.cx, f.cy, f.u(100), f.u(130), 0) }
func roundFace(f frame)  { f.s.Circle(f.cx, f.cy, f.u(110)) }
func squareFace(f frame) { f.s.RoundRect(f.x(-100), f.y(-120), f.u(200), f.u(240), f.u(30)) }

func heartFace(f frame) {
	f.s.MoveTo(f.cx, f.y(100))
	f.s.CubicTo(f.x(-100), f.y(80), f.x(-100), f.y(-40), f.cx, f.y(-120))
	f.s.CubicTo(f.x(100), f.y(-40), f.x(100), f.y(80), f.cx, f.y(100))
	f.s.ClosePath()
}

func wrinkles(f frame, l look) {
	f.s.SetStrokeColor(avatar.Darken(l.skin, 0.8))
	f.s.SetLineWidth(f.u(1.5))
	f.s.BeginPath()
	for _, dy := range []float64{-85, -75} {
		f.s.MoveTo(f.x(-40), f.y(dy))
		f.s.QuadTo(f.cx, f.y(dy-5), f.x(40), f.y(dy))
	}
	for _, side := range []float64{-1, 1} {
		f.s.MoveTo(f.x(side*68), f.y(-24))
		f.s.LineTo(f.x(side*78), f.y(-28))
		f.s.MoveTo(f.x(side*68), f.y(-16))
		f.s.LineTo(f.x(side*78), f.y(-12))
	}
	f.s.Stroke()
}

func blush(f frame) {
	f.s.SetFillColor(blushColor)
	f.s.SetAlpha(0.25)
	f.s.BeginPath()
	f.s.Ellipse(f.x(-60), f.y(25), f.u(18), f.u(10), 0)
	f.s.Ellipse(f.x(60), f.y(25), f.u(18), f.u(10), 0)
	f.s.Fill()
	f.s.SetAlpha(1)
}

// hairTop is the crown shared by most styles.
func hairTop(f frame, rx, ry float64) {
	f.s.BeginPath()
	f.s.EllipticalArc(f.cx, f.y(-80), f.u(rx), f.u(ry), math.Pi, 2*math.Pi)
	f.s.ClosePath()
	f.s.Fill()
}

func hairLock(f frame, dx, dy, rx, ry, rotation float64) {
	f.s.BeginPath()
	f.s.Ellipse(f.x(dx), f.y(dy), f.u(rx), f.u(ry), rotation)
	f.s.Fill()
}

func shortHair(f frame, _ *rand.Rand) {
	hairTop(f, 110, 60)
}

func longHair(f frame, _ *rand.Rand) {
	hairTop(f, 110, 60)
	hairLock(f, -95, 0, 30, 120, -0.2)
	hairLock(f, 95, 0, 30, 120, 0.2)
}

func bobHair(f frame, _ *rand.Rand) {
	hairTop(f, 110, 60)
	hairLock(f, -90, 30, 25, 80, -0.3)
	hairLock(f, 90, 30, 25, 80, 0.3)
}

func ponytail(f frame, _ *rand.Rand) {
	hairTop(f, 110, 60)
	hairLock(f, 0, -60, 40, 25, 0)
	hairLock(f, 5, 20, 25, 100, 0.2)
}

func curlyHair(f frame, _ *rand.Rand) {
	hairLock(f, 0, -60, 130, 80, 0)
	for i := 0; i < 12; i++ {
		angle := float64(i) / 12 * 2 * math.Pi
		f.s.BeginPath()
		f.s.Circle(f.x(math.Cos(angle)*120), f.y(-60+math.Sin(angle)*120*0.6), f.u(20))
		f.s.Fill()
	}
}

func buzzCut(f frame, _ *rand.Rand) {
	f.s.SetAlpha(0.8)
	hairTop(f, 105, 50)
	f.s.SetAlpha(1)
}

func messyHair(f frame, rng *rand.Rand) {
	hairTop(f, 115, 65)
	for i := 0; i < 8; i++ {
		angle := math.Pi + float64(i)/8*math.Pi
		x := f.x(math.Cos(angle) * 100)
		y := f.y(-80 + math.Sin(angle)*60)
		f.s.BeginPath()
		f.s.MoveTo(x, y)
		f.s.LineTo(x+f.u(rng.Float64()*20-10), y-f.u(30))
		f.s.LineTo(x+f.u(15), y)
		f.s.ClosePath()
		f.s.Fill()
	}
}

func recedingHair(f frame, _ *rand.Rand) {
	f.s.BeginPath()
	f.s.MoveTo(f.x(-60), f.y(-100))
	f.s.QuadTo(f.x(-40), f.y(-120), f.cx, f.y(-130))
	f.s.QuadTo(f.x(40), f.y(-120), f.x(60), f.y(-100))
	f.s.LineTo(f.x(100), f.y(-80))
	f.s.QuadTo(f.x(80), f.y(-60), f.x(60), f.y(-50))
	f.s.LineTo(f.x(-60), f.y(-50))
	f.s.QuadTo(f.x(-80), f.y(-60), f.x(-100), f.y(-80))
	f.s.ClosePath()
	f.s.Fill()
}

func ears(f frame, l look) {
	outer := avatar.Darken(l.skin, 0.95)
	inner := avatar.Darken(outer, 0.9)
	for _, side := range []float64{-1, 1} {
		f.s.SetFillColor(outer)
		f.s.BeginPath()
		f.s.Ellipse(f.x(side*100), f.cy, f.u(15), f.u(30), side*0.2)
		f.s.Fill()

		f.s.SetFillColor(inner)
		f.s.BeginPath()
		f.s.Ellipse(f.x(side*100), f.cy, f.u(8), f.u(15), side*0.2)
		f.s.Fill()
	}
}

func humanEyes(f frame, l look, pupil float64, closed bool) {
	y := f.y(-20)

	f.s.SetFillColor(white)
	f.s.BeginPath()
	f.s.Ellipse(f.x(-45), y, f.u(18), f.u(12), 0)
	f.s.Ellipse(f.x(45), y, f.u(18), f.u(12), 0)
	f.s.Fill()

	if closed {
		f.s.SetFillColor(l.skin)
		f.s.BeginPath()
		f.s.Ellipse(f.x(-45), y, f.u(18), f.u(12), 0)
		f.s.Ellipse(f.x(45), y, f.u(18), f.u(12), 0)
		f.s.Fill()
	} else {
		f.s.SetFillColor(l.eyes)
		f.s.BeginPath()
		f.s.Circle(f.x(-45)+pupil, y, f.u(8))
		f.s.Circle(f.x(45)+pupil, y, f.u(8))
		f.s.Fill()

		f.s.SetFillColor(black)
		f.s.BeginPath()
		f.s.Circle(f.x(-45)+pupil, y, f.u(5))
		f.s.Circle(f.x(45)+pupil, y, f.u(5))
		f.s.Fill()

		f.s.SetFillColor(white)
		f.s.BeginPath()
		f.s.Circle(f.x(-42), y-f.u(2), f.u(2))
		f.s.Circle(f.x(48), y-f.u(2), f.u(2))
		f.s.Fill()
	}

	f.s.SetStrokeColor(avatar.Darken(l.skin, 0.7))
	f.s.SetLineWidth(f.u(2))
	for _, dx := range []float64{-45, 45} {
		f.s.BeginPath()
		f.s.Arc(f.x(dx), y, f.u(18), math.Pi, 2*math.Pi)
		f.s.Stroke()
	}
}

// triangleNose builds a nose whose bridge starts top units from the
// centre and whose base is halfWidth wide at depth.
func triangleNose(top, halfWidth, depth float64) noseRoutine {
	return func(f frame) {
		f.s.BeginPath()
		f.s.MoveTo(f.cx, f.y(top))
		f.s.LineTo(f.x(-halfWidth), f.y(depth))
		f.s.LineTo(f.x(halfWidth), f.y(depth))
		f.s.ClosePath()
		f.s.Fill()
		f.s.Stroke()
	}
}

func noseColors(f frame, l look) {
	f.s.SetFillColor(avatar.Darken(l.skin, 0.9))
	f.s.SetStrokeColor(avatar.Darken(l.skin, 0.85))
	f.s.SetLineWidth(f.u(2))
}

func buttonNose(f frame) {
	f.s.BeginPath()
	f.s.Ellipse(f.cx, f.y(15), f.u(10), f.u(8), 0)
	f.s.Fill()
}

func nostrils(f frame, l look) {
	f.s.SetFillColor(avatar.Darken(l.skin, 0.7))
	f.s.BeginPath()
	f.s.Ellipse(f.x(-8), f.y(22), f.u(3), f.u(4), 0)
	f.s.Ellipse(f.x(8), f.y(22), f.u(3), f.u(4), 0)
	f.s.Fill()
}

func talkingMouth(f frame, open float64) {
	y := f.y(60)

	f.s.SetFillColor(lipColor)
	f.s.BeginPath()
	f.s.Ellipse(f.cx, y, f.u(35), f.u(15)+open, 0)
	f.s.Fill()

	if open > f.u(10) {
		f.s.SetFillColor(white)
		f.s.BeginPath()
		f.s.Rect(f.x(-25), y-f.u(5), f.u(50), f.u(8))
		f.s.Fill()
	}

	f.s.SetFillColor(tongueColor)
	f.s.BeginPath()
	f.s.EllipticalArc(f.cx, y+f.u(8), f.u(20), f.u(10), 0, math.Pi)
	f.s.ClosePath()
	f.s.Fill()
}

// lipsMouth builds a filled crescent between an outer arc of radius
// outer raised lift units and an inner arc of radius inner lowered drop
// units; corner is the depth of the right-hand join.
func lipsMouth(lift, outer, inner, corner, drop float64) humanMouthRoutine {
	return func(f frame) {
		f.s.SetFillColor(lipColor)
		f.s.BeginPath()
		f.s.Arc(f.cx, f.y(60+lift), f.u(outer), 0.2*math.Pi, 0.8*math.Pi)
		f.s.LineTo(f.x(inner), f.y(60+corner))
		f.s.Arc(f.cx, f.y(60+drop), f.u(inner), 0.8*math.Pi, 0.2*math.Pi)
		f.s.ClosePath()
		f.s.Fill()
	}
}

func frownMouth(f frame) {
	f.s.BeginPath()
	f.s.Arc(f.cx, f.y(90), f.u(30), 1.2*math.Pi, 1.8*math.Pi)
	f.s.Stroke()
}

func openMouth(f frame) {
	y := f.y(60)
	f.s.SetFillColor(openMouthColor)
	f.s.BeginPath()
	f.s.Ellipse(f.cx, y, f.u(20), f.u(25), 0)
	f.s.Fill()

	f.s.SetFillColor(white)
	f.s.BeginPath()
	f.s.Rect(f.x(-15), y-f.u(10), f.u(30), f.u(8))
	f.s.Fill()
}

func flatMouth(f frame) {
	f.s.BeginPath()
	f.s.MoveTo(f.x(-30), f.y(60))
	f.s.LineTo(f.x(30), f.y(60))
	f.s.Stroke()
}

func lipLine(f frame) {
	f.s.SetStrokeColor(avatar.Darken(lipColor, 0.8))
	f.s.SetLineWidth(f.u(2))
	f.s.BeginPath()
	f.s.MoveTo(f.x(-30), f.y(60))
	f.s.QuadTo(f.cx, f.y(63), f.x(30), f.y(60))
	f.s.Stroke()
}

func straightBrows(f frame) {
	for _, dx := range []float64{-45, 45} {
		f.s.BeginPath()
		f.s.MoveTo(f.x(dx-20), f.y(-45))
		f.s.LineTo(f.x(dx+20), f.y(-45))
		f.s.Stroke()
	}
}

// archedBrows strokes both brows as arcs between start and end (in
// multiples of pi), centred dy units from the brow line.
func archedBrows(dy, start, end float64) humanBrowRoutine {
	return func(f frame) {
		for _, dx := range []float64{-45, 45} {
			f.s.BeginPath()
			f.s.Arc(f.x(dx), f.y(-45+dy), f.u(25), start*math.Pi, end*math.Pi)
			f.s.Stroke()
		}
	}
}

func angryBrows(f frame) {
	for _, side := range []float64{-1, 1} {
		f.s.BeginPath()
		f.s.MoveTo(f.x(side*65), f.y(-45))
		f.s.LineTo(f.x(side*25), f.y(-55))
		f.s.Stroke()
	}
}

func glasses(f frame) {
	y := f.y(-20)

	f.s.SetStrokeColor(frameColor)
	f.s.SetLineWidth(f.u(3))
	for _, dx := range []float64{-45, 45} {
		f.s.SetFillColor(white)
		f.s.SetAlpha(0.1)
		f.s.BeginPath()
		f.s.Circle(f.x(dx), y, f.u(25))
		f.s.Fill()
		f.s.SetAlpha(1)
		f.s.Stroke()
	}

	f.s.BeginPath()
	f.s.MoveTo(f.x(-20), y)
	f.s.LineTo(f.x(20), y)
	f.s.MoveTo(f.x(-70), y)
	f.s.LineTo(f.x(-100), y)
	f.s.MoveTo(f.x(70), y)
	f.s.LineTo(f.x(100), y)
	f.s.Stroke()

	f.s.SetFillColor(white)
	f.s.SetAlpha(0.4)
	f.s.BeginPath()
	f.s.Circle(f.x(-50), y-f.u(10), f.u(8))
	f.s.Circle(f.x(40), y-f.u(10), f.u(8))
	f.s.Fill()
	f.s.SetAlpha(1)
}

func beardColor(l look) color.RGBA {
	return avatar.Darken(l.hair, 0.9)
}

func stubble(f frame, l look, _ *rand.Rand) {
	f.s.SetFillColor(beardColor(l))
	f.s.SetAlpha(0.3)
	f.s.BeginPath()
	f.s.Ellipse(f.cx, f.y(80), f.u(80), f.u(60), 0)
	f.s.Fill()
	f.s.SetAlpha(1)
}

func shortBeard(f frame, l look, _ *rand.Rand) {
	f.s.SetFillColor(beardColor(l))
	f.s.BeginPath()
	f.s.MoveTo(f.x(-70), f.y(30))
	f.s.LineTo(f.x(-60), f.y(100))
	f.s.QuadTo(f.cx, f.y(120), f.x(60), f.y(100))
	f.s.LineTo(f.x(70), f.y(30))
	f.s.ClosePath()
	f.s.Fill()
}

func fullBeard(f frame, l look, rng *rand.Rand) {
	c := beardColor(l)
	f.s.SetFillColor(c)
	f.s.BeginPath()
	f.s.MoveTo(f.x(-85), f.cy)
	f.s.LineTo(f.x(-75), f.y(110))
	f.s.QuadTo(f.cx, f.y(130), f.x(75), f.y(110))
	f.s.LineTo(f.x(85), f.cy)
	f.s.ClosePath()
	f.s.Fill()

	f.s.SetStrokeColor(avatar.Lighten(c, 1.1))
	f.s.SetLineWidth(f.u(2))
	for i := 0; i < 10; i++ {
		step := float64(i) * 12
		f.s.BeginPath()
		f.s.MoveTo(f.x(-60+step), f.y(50))
		f.s.LineTo(f.x(-55+step), f.y(90+rng.Float64()*20))
		f.s.Stroke()
	}
}

func mustache(f frame, l look) {
	f.s.SetFillColor(beardColor(l))
	f.s.BeginPath()
	f.s.Ellipse(f.x(-25), f.y(50), f.u(25), f.u(12), -0.2)
	f.s.Ellipse(f.x(25), f.y(50), f.u(25), f.u(12), 0.2)
	f.s.Fill()
}

func earrings(f frame) {
	f.s.SetFillColor(goldColor)
	f.s.SetStrokeColor(goldColor)
	f.s.SetLineWidth(f.u(2))
	for _, side := range []float64{-1, 1} {
		f.s.BeginPath()
		f.s.Circle(f.x(side*100), f.y(15), f.u(5))
		f.s.Fill()

		f.s.BeginPath()
		f.s.Circle(f.x(side*100), f.y(25), f.u(8))
		f.s.Stroke()
	}
}

func piercing(f frame) {
	f.s.SetFillColor(silverColor)
	f.s.BeginPath()
	f.s.Circle(f.x(12), f.y(18), f.u(2.5))
	f.s.Fill()
}
