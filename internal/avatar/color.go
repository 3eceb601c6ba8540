package avatar

import (
	"image/color"
	"math"
	"strconv"
	"strings"
)

// fallbackColor is used for any colour string that is not #rrggbb.
var fallbackColor = color.RGBA{R: 100, G: 100, B: 100, A: 255}

// ParseHex parses "#rrggbb" (the leading # is optional). Malformed input
// yields a neutral grey rather than an error so a bad catalogue entry can
// never stop a frame from rendering.
func ParseHex(s string) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return fallbackColor
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallbackColor
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// Darken scales each channel by factor and floors the result.
func Darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: scaleChannel(c.R, factor),
		G: scaleChannel(c.G, factor),
		B: scaleChannel(c.B, factor),
		A: c.A,
	}
}

// Lighten is Darken with a factor above one, clamped at 255.
func Lighten(c color.RGBA, factor float64) color.RGBA {
	return Darken(c, factor)
}

func scaleChannel(v uint8, factor float64) uint8 {
	f := math.Floor(float64(v) * factor)
	switch {
	case f < 0:
		return 0
	case f > 255:
		return 255
	default:
		return uint8(f)
	}
}
