package imaging

import (
	"fmt"
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// HSL represents a color in HSL (Hue, Saturation, Lightness) color space with
// every component normalized to the range [0, 1].
//
// Unlike the degree/percent form used for display, the normalized form is what
// the statistics and classification passes operate on:
//   - H: 0 = red, 1/3 = green, 2/3 = blue (wraps back to red at 1)
//   - S: 0 = gray, 1 = fully saturated
//   - L: 0 = black, 0.5 = pure hue, 1 = white
type HSL struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	L float64 `json:"l"`
}

// Vec returns the color as an [H, S, L] array, convenient for per-channel loops.
func (c HSL) Vec() [3]float64 {
	return [3]float64{c.H, c.S, c.L}
}

// RGBToHSL converts normalized RGB components (each in [0, 1]) to HSL.
//
// The conversion follows the standard chroma/lightness algorithm:
//  1. Lightness is (max + min) / 2
//  2. Chroma is max - min
//  3. Saturation divides chroma by (max + min) when lightness is at most 0.5
//     and by (2 - max - min) otherwise, keeping the denominator away from
//     zero near black and white
//  4. Hue is picked by the dominant component and scaled to [0, 1)
//
// Achromatic colors (chroma = 0, i.e. R = G = B) always yield H = 0 and S = 0.
func RGBToHSL(r, g, b float64) HSL {
	h, s, l := colorful.Color{R: r, G: g, B: b}.Hsl()
	return HSL{H: h / 360.0, S: s, L: l}
}

// RGB8ToHSL converts 8-bit RGB components to HSL.
func RGB8ToHSL(r, g, b uint8) HSL {
	return RGBToHSL(float64(r)/255.0, float64(g)/255.0, float64(b)/255.0)
}

// HSLToRGB is the inverse of RGBToHSL. It returns normalized RGB components
// in [0, 1]. A zero saturation yields the gray (L, L, L) regardless of hue.
func HSLToRGB(c HSL) (r, g, b float64) {
	col := colorful.Hsl(c.H*360.0, c.S, c.L)
	return col.R, col.G, col.B
}

// HSLToRGB8 converts HSL back to 8-bit RGB components, for display of
// reconstructed colors such as a classifier mean.
func HSLToRGB8(c HSL) (r, g, b uint8) {
	return colorful.Hsl(c.H*360.0, c.S, c.L).Clamped().RGB255()
}

// RGBAColor represents an RGBA color with 8-bit components including alpha.
//
// The alpha component doubles as a validity flag for the segmentation passes:
// only A = 255 marks a sample that contributes to statistics.
type RGBAColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// ColorResult contains a sampled color in the representations the tools report.
type ColorResult struct {
	Hex   string    `json:"hex"`   // Hex format "#RRGGBB" (no alpha)
	RGBA  RGBAColor `json:"rgba"`  // RGBA components with alpha
	HSL   HSL       `json:"hsl"`   // normalized HSL
	Valid bool      `json:"valid"` // true when alpha is 255
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Coordinates are 0-based with origin at the top-left of the image bounds.
// An error is returned if (x, y) lies outside the image.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	c := toNRGBA(img.At(x, y))

	return &ColorResult{
		Hex:   fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B),
		RGBA:  RGBAColor{R: c.R, G: c.G, B: c.B, A: c.A},
		HSL:   RGB8ToHSL(c.R, c.G, c.B),
		Valid: c.A == 255,
	}, nil
}

// Hex formats a normalized RGB triple as "#RRGGBB".
func Hex(c colorful.Color) string {
	r, g, b := c.Clamped().RGB255()
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}
