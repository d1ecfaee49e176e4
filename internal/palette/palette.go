// Package palette converts between RGB and HSL and clamps artwork colours
// into an accent that stays readable on the music bar.
package palette

import (
	"fmt"
	"math"

	"github.com/genricoloni/musicbar/internal/domain"
	"github.com/lucasb-eyer/go-colorful"
)

// Clamp bands applied by Normalize
const (
	MinSaturation = 0.40
	MaxSaturation = 0.95
	MinLightness  = 0.35
	MaxLightness  = 0.72
)

// Default is the accent published when no artwork colour is available
var Default = domain.Color{R: 124, G: 92, B: 255}

// HSL is a colour in hue/saturation/lightness form.
// H is in degrees [0,360), S and L in [0,1].
type HSL struct {
	H float64
	S float64
	L float64
}

// ToHSL converts an RGB colour with channels in [0,255]
func ToHSL(c domain.Color) HSL {
	h, s, l := toColorful(c).Hsl()
	return HSL{H: h, S: s, L: l}
}

// FromHSL converts back to RGB with channels in [0,255]
func FromHSL(v HSL) domain.Color {
	return fromColorful(colorful.Hsl(v.H, v.S, v.L).Clamped())
}

// Normalize keeps the hue of c and clamps saturation and lightness into the
// presentation band.
func Normalize(c domain.Color) domain.Color {
	v := ToHSL(c)
	v.S = clamp(v.S, MinSaturation, MaxSaturation)
	v.L = clamp(v.L, MinLightness, MaxLightness)
	return FromHSL(v)
}

// Round returns the colour with every channel rounded to an integer in [0,255]
func Round(c domain.Color) (r, g, b uint8) {
	return channel(c.R), channel(c.G), channel(c.B)
}

// Hex formats c as #rrggbb
func Hex(c domain.Color) string {
	r, g, b := Round(c)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// CSS formats c as an rgb() expression
func CSS(c domain.Color) string {
	r, g, b := Round(c)
	return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
}

// CSSAlpha formats c as an rgba() expression with the given alpha
func CSSAlpha(c domain.Color, alpha float64) string {
	r, g, b := Round(c)
	return fmt.Sprintf("rgba(%d, %d, %d, %g)", r, g, b, alpha)
}

func toColorful(c domain.Color) colorful.Color {
	return colorful.Color{
		R: clamp(c.R, 0, 255) / 255,
		G: clamp(c.G, 0, 255) / 255,
		B: clamp(c.B, 0, 255) / 255,
	}
}

func fromColorful(c colorful.Color) domain.Color {
	return domain.Color{R: c.R * 255, G: c.G * 255, B: c.B * 255}
}

func channel(v float64) uint8 {
	return uint8(math.Round(clamp(v, 0, 255)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
