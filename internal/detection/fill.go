package detection

import (
	"fmt"
	"image"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/debris-tools-mcp/internal/segment"
)

// FillResult is the outcome of FloodFill.
type FillResult struct {
	// Mask has the filled pixels Selected and everything else Unselected.
	Mask *image.Gray

	// Seed is the normalized RGB color every candidate was compared against.
	Seed colorful.Color

	// Filled is the number of Selected pixels.
	Filled int

	// Truncated counts branches cut by the depth budget at a matching pixel.
	// A pixel reached by several cut branches is counted once per branch, and
	// may still be filled from a shorter one.
	Truncated int
}

// FloodFill selects the 4-connected region around seed whose colors are
// within tolerance of the seed pixel's color.
//
// Distance is Euclidean over normalized RGB; alpha is ignored. maxDepth is a
// safety bound on how far (in steps) any branch travels from the seed, not a
// quality setting: the seed itself consumes one unit, so maxDepth = 0 fills
// nothing and maxDepth = 1 fills only the seed. Neighbors are visited east,
// west, south, north, depth first, using an explicit stack.
//
// Returns an error if seed lies outside img or maxDepth is negative.
func FloodFill(img *image.NRGBA, seed image.Point, tolerance float64, maxDepth int) (*FillResult, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if seed.X < 0 || seed.Y < 0 || seed.X >= w || seed.Y >= h {
		return nil, fmt.Errorf("seed (%d,%d) outside image bounds", seed.X, seed.Y)
	}
	if maxDepth < 0 {
		return nil, fmt.Errorf("invalid fill depth %d", maxDepth)
	}

	rgbAt := func(x, y int) colorful.Color {
		i := y*img.Stride + x*4
		p := img.Pix[i : i+3]
		return colorful.Color{R: float64(p[0]) / 255.0, G: float64(p[1]) / 255.0, B: float64(p[2]) / 255.0}
	}

	res := &FillResult{
		Mask: segment.NewMask(w, h),
		Seed: rgbAt(seed.X, seed.Y),
	}
	mask := res.Mask

	type step struct {
		x, y   int
		budget int
	}
	stack := []step{{x: seed.X, y: seed.Y, budget: maxDepth}}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if s.x < 0 || s.y < 0 || s.x >= w || s.y >= h {
			continue
		}
		mi := s.y*mask.Stride + s.x
		if mask.Pix[mi] == segment.Selected {
			continue
		}
		if rgbAt(s.x, s.y).DistanceRgb(res.Seed) > tolerance {
			continue
		}
		if s.budget <= 0 {
			res.Truncated++
			continue
		}

		mask.Pix[mi] = segment.Selected
		res.Filled++

		stack = append(stack,
			step{s.x, s.y - 1, s.budget - 1},
			step{s.x, s.y + 1, s.budget - 1},
			step{s.x - 1, s.y, s.budget - 1},
			step{s.x + 1, s.y, s.budget - 1},
		)
	}

	return res, nil
}
