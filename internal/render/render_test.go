package render

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"talkbot/internal/avatar"
)

func catalog(t *testing.T) *avatar.Catalog {
	t.Helper()
	c, err := avatar.LoadCatalog()
	require.NoError(t, err)
	return c
}

func profile(t *testing.T, id string) avatar.Profile {
	t.Helper()
	p, ok := catalog(t).Lookup(id)
	require.True(t, ok, "profile %q", id)
	return p
}

// containsRun reports whether needle occurs as a contiguous run in haystack.
func containsRun(haystack, needle []string) bool {
	if len(needle) == 0 {
		return true
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return true
	}
	return false
}

func record(r Renderer, p avatar.Profile, st State, t time.Duration) []string {
	rec := NewRecorder(500, 500)
	r.Render(rec, p, st, t)
	return rec.Ops()
}

// ---------------------------------------------------------------------------
// surface availability
// ---------------------------------------------------------------------------

func TestRender_UnavailableSurfaceIsNoop(t *testing.T) {
	p := profile(t, "robot")
	h := NewHuman()

	require.NotPanics(t, func() {
		NewStylized().Render(nil, p, State{}, 0)
		h.Render(nil, profile(t, "male_professional"), State{}, 0)
	})

	empty := NewRecorder(0, 300)
	NewStylized().Render(empty, p, State{}, 0)
	h.Render(empty, profile(t, "male_professional"), State{}, 0)
	require.Empty(t, empty.Calls())
	require.Equal(t, 0, h.BlinkPhase())
}

func TestRender_ClearsThenPaintsBackground(t *testing.T) {
	for _, r := range []struct {
		name     string
		renderer Renderer
		profile  string
	}{
		{"stylized", NewStylized(), "robot"},
		{"human", NewHuman(), "female_friendly"},
	} {
		t.Run(r.name, func(t *testing.T) {
			rec := NewRecorder(400, 300)
			r.renderer.Render(rec, profile(t, r.profile), State{}, 0)

			calls := rec.Calls()
			require.GreaterOrEqual(t, len(calls), 2)
			require.Equal(t, "clear", calls[0].Op)
			require.Equal(t, "gradient", calls[1].Op)
			// Centred on the surface, radius half the width.
			require.Equal(t, []float64{200, 150, 200, 2}, calls[1].Args)
		})
	}
}

// ---------------------------------------------------------------------------
// stylized
// ---------------------------------------------------------------------------

func TestStylized_DispatchesFeatureRoutines(t *testing.T) {
	p := profile(t, "cute")
	ops := record(NewStylized(), p, State{}, 0)

	eyes := NewRecorder(500, 500)
	kawaiiEyes(newFrame(eyes, stylizedReference), 0)
	mouth := NewRecorder(500, 500)
	cuteMouth(newFrame(mouth, stylizedReference))

	require.True(t, containsRun(ops, eyes.Ops()), "kawaii eyes not drawn")
	require.True(t, containsRun(ops, mouth.Ops()), "cute mouth not drawn")

	other := NewRecorder(500, 500)
	digitalEyes(newFrame(other, stylizedReference), 0)
	require.False(t, containsRun(ops, other.Ops()))
}

func TestStylized_UnknownTagsUseDefaults(t *testing.T) {
	known := profile(t, "robot")
	unknown := known
	unknown.Features = avatar.Features{Head: "cube", Eyes: "laser", Mouth: "zigzag"}

	require.Equal(t,
		record(NewStylized(), known, State{}, 0),
		record(NewStylized(), unknown, State{}, 0),
	)
}

func TestStylized_FrameIsPureFunctionOfInputs(t *testing.T) {
	p := profile(t, "energetic")
	st := State{Speaking: true, Emotion: avatar.EmotionHappy}
	r := NewStylized()

	at := 730 * time.Millisecond
	require.Equal(t, record(r, p, st, at), record(r, p, st, at))
	require.NotEqual(t, record(r, p, st, at), record(r, p, st, at+40*time.Millisecond))
}

func TestStylized_SpeakingReplacesStaticMouth(t *testing.T) {
	p := profile(t, "friendly")
	r := NewStylized()

	static := NewRecorder(500, 500)
	mouthFor(p.Features.Mouth)(newFrame(static, stylizedReference))

	require.True(t, containsRun(record(r, p, State{}, 0), static.Ops()))
	require.False(t, containsRun(record(r, p, State{Speaking: true}, time.Second), static.Ops()))
}

func TestStylized_EmotionSelectsBrows(t *testing.T) {
	p := profile(t, "calm")
	r := NewStylized()

	neutral := record(r, p, State{Emotion: avatar.EmotionNeutral}, 0)
	require.NotEqual(t, neutral, record(r, p, State{Emotion: avatar.EmotionAngry}, 0))
	require.Equal(t, neutral, record(r, p, State{Emotion: "bored"}, 0))
}

// ---------------------------------------------------------------------------
// animation
// ---------------------------------------------------------------------------

func TestMouthOpening(t *testing.T) {
	period := 150 * time.Millisecond

	require.Zero(t, MouthOpening(0, period, 20, 1))
	require.InDelta(t, 40, MouthOpening(time.Duration(float64(period)*math.Pi/2), period, 20, 2), 1e-6)
	require.Zero(t, MouthOpening(time.Second, 0, 20, 1))

	for ms := 0; ms < 2000; ms += 17 {
		v := NewStylized().MouthOpening(time.Duration(ms)*time.Millisecond, 1.5)
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 30.0)
	}
	require.Equal(t,
		MouthOpening(time.Second, humanMouthPeriod, humanMouthAmplitude, 1),
		NewHuman().MouthOpening(time.Second, 1),
	)
}

// ---------------------------------------------------------------------------
// human
// ---------------------------------------------------------------------------

func TestHuman_BlinkCycle(t *testing.T) {
	p := profile(t, "female_young")
	r := NewHuman()

	frames := make([][]string, 0, BlinkCycle+1)
	for i := 0; i <= BlinkCycle; i++ {
		frames = append(frames, record(r, p, State{}, 0))
	}

	open := frames[0]
	for i := 1; i < BlinkStart; i++ {
		require.Equal(t, open, frames[i], "frame %d should be open", i)
	}
	closed := frames[BlinkStart]
	require.NotEqual(t, open, closed)
	for i := BlinkStart; i < BlinkCycle; i++ {
		require.Equal(t, closed, frames[i], "frame %d should be closed", i)
	}
	require.Equal(t, open, frames[BlinkCycle])
	require.Equal(t, 1, r.BlinkPhase())
}

func TestHuman_AccessoriesGatedByFlags(t *testing.T) {
	glassesFrame := "strokeColor(44.000,62.000,80.000,255.000)"
	gold := "fillColor(255.000,215.000,0.000,255.000)"

	p := profile(t, "male_casual")
	p.Human.Accessories = avatar.Accessories{}
	bare := record(NewHuman(), p, State{}, 0)
	require.NotContains(t, bare, glassesFrame)
	require.NotContains(t, bare, gold)

	p.Human.Accessories.Glasses = true
	p.Human.Accessories.Earrings = true
	dressed := record(NewHuman(), p, State{}, 0)
	require.Contains(t, dressed, glassesFrame)
	require.Contains(t, dressed, gold)
}

func TestHuman_UnknownTagsUseDefaults(t *testing.T) {
	known := profile(t, "male_professional")
	known.Human.HairStyle = avatar.HairShort
	known.Human.Face = avatar.FaceFeatures{Shape: avatar.FaceOval, Nose: avatar.NoseMedium}
	known.Human.Accessories = avatar.Accessories{
		Beard: avatar.BeardStubble, Glasses: true, Mustache: true,
		Earrings: true, Makeup: "bold", Wrinkles: true, Piercings: true,
	}

	unknown := known
	unknown.Human.HairStyle = "mohawk"
	unknown.Human.Face = avatar.FaceFeatures{Shape: "triangle", Nose: "roman"}
	unknown.Human.Accessories.Beard = "goatee"

	for _, e := range []avatar.Emotion{avatar.EmotionNeutral, "confused"} {
		require.Equal(t,
			record(NewHuman(), known, State{Emotion: e}, 0),
			record(NewHuman(), unknown, State{Emotion: e}, 0),
		)
	}
}

func TestHuman_TextureIsSeededByProfile(t *testing.T) {
	p := profile(t, "male_elder")
	require.Equal(t, record(NewHuman(), p, State{}, 0), record(NewHuman(), p, State{}, 0))

	messy := profile(t, "male_casual")
	messy.Human.HairStyle = avatar.HairMessy
	other := messy
	other.ID = "someone_else"
	require.NotEqual(t, record(NewHuman(), messy, State{}, 0), record(NewHuman(), other, State{}, 0))
}

func TestHuman_EmotionSelectsMouth(t *testing.T) {
	p := profile(t, "female_professional")

	seen := map[string]bool{}
	for _, e := range []avatar.Emotion{
		avatar.EmotionNeutral, avatar.EmotionHappy, avatar.EmotionSad,
		avatar.EmotionAngry, avatar.EmotionSurprised,
	} {
		ops := record(NewHuman(), p, State{Emotion: e}, 0)
		key := ""
		for _, op := range ops {
			key += op + ";"
		}
		require.False(t, seen[key], "emotion %s renders like another", e)
		seen[key] = true
	}
}

// ---------------------------------------------------------------------------
// raster
// ---------------------------------------------------------------------------

func TestNewImageSurface_RejectsEmpty(t *testing.T) {
	_, err := NewImageSurface(0, 10)
	require.Error(t, err)
	_, err = NewImageSurface(10, -1)
	require.Error(t, err)
}

func TestImageSurface_CoversEveryPixel(t *testing.T) {
	c := catalog(t)
	for _, kind := range []avatar.Kind{avatar.KindStylized, avatar.KindHuman} {
		store, err := c.Store(kind)
		require.NoError(t, err)

		var r Renderer = NewStylized()
		if kind == avatar.KindHuman {
			r = NewHuman()
		}
		for _, p := range store.List() {
			s, err := NewImageSurface(64, 48)
			require.NoError(t, err)
			r.Render(s, p, State{Speaking: true}, 333*time.Millisecond)

			img := s.Image()
			b := img.Bounds()
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					_, _, _, a := img.At(x, y).RGBA()
					require.Equal(t, uint32(0xffff), a, "%s: transparent pixel at %d,%d", p.ID, x, y)
				}
			}
		}
	}
}

func TestImageSurface_EncodePNG(t *testing.T) {
	s, err := NewImageSurface(120, 80)
	require.NoError(t, err)
	NewStylized().Render(s, profile(t, "robot"), State{}, 0)

	var buf bytes.Buffer
	require.NoError(t, s.EncodePNG(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 120, 80), img.Bounds())
}
