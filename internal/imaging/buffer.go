package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ValidAlpha is the only alpha value that marks a pixel as a valid sample.
const ValidAlpha = 255

// ToNRGBA returns img as a zero-origin, non-premultiplied RGBA8 buffer.
//
// Images that are already *image.NRGBA with a (0,0) origin are returned as-is
// without copying; everything else is cloned. The returned buffer is row-major
// with 4 bytes per pixel (R, G, B, A) and Stride bytes per row.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// CountValid returns the number of pixels whose alpha is ValidAlpha.
func CountValid(img *image.NRGBA) int {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	n := 0
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 3; i < len(row); i += 4 {
			if row[i] == ValidAlpha {
				n++
			}
		}
	}
	return n
}

func toNRGBA(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
