package segment

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/parallel"
)

// Composite copies src wherever mask is Selected and paints bg everywhere
// else. src and mask must have identical dimensions; a mismatch returns
// ErrDimensionMismatch (wrapped) before any pixel is written.
func Composite(src *image.NRGBA, mask *image.Gray, bg color.NRGBA) (*image.NRGBA, error) {
	if err := checkSameSize(src.Rect, mask.Rect); err != nil {
		return nil, err
	}

	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	fill := [4]uint8{bg.R, bg.G, bg.B, bg.A}

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			m := mask.Pix[y*mask.Stride : y*mask.Stride+w]
			s := src.Pix[y*src.Stride : y*src.Stride+w*4]
			d := out.Pix[y*out.Stride : y*out.Stride+w*4]
			for x, v := range m {
				i := x * 4
				if v == Selected {
					copy(d[i:i+4], s[i:i+4])
				} else {
					copy(d[i:i+4], fill[:])
				}
			}
		}
	})

	return out, nil
}
