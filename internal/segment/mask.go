package segment

import (
	"fmt"
	"image"
)

// Mask sentinels. A mask produced by this package contains no other values.
const (
	Selected   uint8 = 255
	Unselected uint8 = 0
)

// NewMask returns a w x h mask with every pixel Unselected.
func NewMask(w, h int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, w, h))
}

// Invert returns a new mask with Selected and Unselected swapped.
func Invert(mask *image.Gray) *image.Gray {
	out := NewMask(mask.Rect.Dx(), mask.Rect.Dy())
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	for y := 0; y < h; y++ {
		src := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, v := range src {
			if v == Selected {
				dst[x] = Unselected
			} else {
				dst[x] = Selected
			}
		}
	}
	return out
}

// CountSelected returns the number of Selected pixels in mask.
func CountSelected(mask *image.Gray) int {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	n := 0
	for y := 0; y < h; y++ {
		for _, v := range mask.Pix[y*mask.Stride : y*mask.Stride+w] {
			if v == Selected {
				n++
			}
		}
	}
	return n
}

// IsBinary reports whether every pixel of mask is one of the two sentinels.
func IsBinary(mask *image.Gray) bool {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	for y := 0; y < h; y++ {
		for _, v := range mask.Pix[y*mask.Stride : y*mask.Stride+w] {
			if v != Selected && v != Unselected {
				return false
			}
		}
	}
	return true
}

func checkSameSize(a, b image.Rectangle) error {
	if a.Dx() != b.Dx() || a.Dy() != b.Dy() {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, a.Dx(), a.Dy(), b.Dx(), b.Dy())
	}
	return nil
}
