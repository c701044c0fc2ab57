package segment

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/parallel"
)

// Window is a rectangular structuring window, centered on the output pixel.
// For an odd size the window is symmetric; for an even size it reaches one
// pixel further up/left than down/right.
type Window struct {
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

func (w Window) validate() error {
	if w.W <= 0 || w.H <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidWindow, w.W, w.H)
	}
	return nil
}

// Dilate returns a mask where each pixel is Selected if any pixel of the
// window centered on it is Selected, and Unselected otherwise.
//
// Window samples that fall outside the mask are skipped: they count as
// neither Selected nor Unselected. There is no clamping or wrapping.
func Dilate(mask *image.Gray, win Window) (*image.Gray, error) {
	return morph(mask, win, Selected, Unselected)
}

// Erode is the dual of Dilate: each pixel is Unselected if any in-bounds
// window sample is Unselected, and Selected otherwise.
func Erode(mask *image.Gray, win Window) (*image.Gray, error) {
	return morph(mask, win, Unselected, Selected)
}

// morph writes hit wherever an in-bounds window sample equals hit, and miss
// everywhere else.
func morph(mask *image.Gray, win Window, hit, miss uint8) (*image.Gray, error) {
	if err := win.validate(); err != nil {
		return nil, err
	}

	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	out := NewMask(w, h)

	// Offsets relative to the output pixel, inclusive.
	x0, y0 := -(win.W / 2), -(win.H / 2)
	x1, y1 := x0+win.W-1, y0+win.H-1

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			ya, yb := max(y+y0, 0), min(y+y1, h-1)
			dst := out.Pix[y*out.Stride : y*out.Stride+w]
			for x := range dst {
				xa, xb := max(x+x0, 0), min(x+x1, w-1)
				v := miss
			scan:
				for sy := ya; sy <= yb; sy++ {
					row := mask.Pix[sy*mask.Stride : sy*mask.Stride+w]
					for sx := xa; sx <= xb; sx++ {
						if row[sx] == hit {
							v = hit
							break scan
						}
					}
				}
				dst[x] = v
			}
		}
	})

	return out, nil
}
