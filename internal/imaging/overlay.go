package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultPalette is the outline palette cycled across located objects:
// royalblue, sienna, olivedrab, tan, coral.
var DefaultPalette = []string{"#4169E1", "#A0522D", "#6B8E23", "#D2B48C", "#FF7F50"}

// OutlineGroup is one located object expressed in pixel space: the rectangles
// of its member tiles and an optional label drawn at the first tile.
type OutlineGroup struct {
	Tiles []image.Rectangle
	Label string
}

// DrawOutlines strokes the border of every tile of every group onto dst.
//
// Group i is drawn in palette[i % len(palette)]. Rectangles are clipped to
// dst's bounds. When showLabels is set, each group's Label is rendered in a
// small 3x5 digit font at the top-left of its first tile.
func DrawOutlines(dst *image.NRGBA, groups []OutlineGroup, palette []color.NRGBA, showLabels bool) {
	if len(palette) == 0 {
		palette = []color.NRGBA{{255, 0, 0, 255}}
	}

	for i, g := range groups {
		stroke := palette[i%len(palette)]
		for _, r := range g.Tiles {
			strokeRect(dst, r, stroke)
		}
	}

	if !showLabels {
		return
	}

	labelColor := color.NRGBA{255, 255, 255, 255}
	bgColor := color.NRGBA{0, 0, 0, 180}
	for _, g := range groups {
		if g.Label == "" || len(g.Tiles) == 0 {
			continue
		}
		drawLabel(dst, g.Tiles[0].Min.X+2, g.Tiles[0].Min.Y+2, g.Label, labelColor, bgColor)
	}
}

// ParsePalette parses a list of hex colors, as accepted by ParseHexColor.
func ParsePalette(hexes []string) ([]color.NRGBA, error) {
	palette := make([]color.NRGBA, 0, len(hexes))
	for _, h := range hexes {
		c, err := ParseHexColor(h)
		if err != nil {
			return nil, fmt.Errorf("invalid palette color %q: %w", h, err)
		}
		palette = append(palette, c)
	}
	return palette, nil
}

// ParseHexColor parses a hex color string like "#FF0000" or "#FF000080".
// The leading '#' is optional; alpha defaults to 255.
func ParseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}

	var a uint8 = 255

	switch len(hex) {
	case 7:
	case 9:
		v, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, err
		}
		a = uint8(v)
		hex = hex[:7]
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length")
	}

	c, err := colorful.Hex(strings.ToLower(hex))
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := c.RGB255()

	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

func strokeRect(dst *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(dst.Rect)
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		dst.SetNRGBA(x, r.Min.Y, c)
		dst.SetNRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dst.SetNRGBA(r.Min.X, y, c)
		dst.SetNRGBA(r.Max.X-1, y, c)
	}
}

// drawLabel draws a simple text label at the given position
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		'#': {"101", "111", "101", "111", "101"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			px, py := x+dx, y+dy
			if (image.Point{px, py}).In(bounds) {
				img.SetNRGBA(px, py, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if (image.Point{px, py}).In(bounds) {
						img.SetNRGBA(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
