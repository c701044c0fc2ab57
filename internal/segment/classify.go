package segment

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/debris-tools-mcp/internal/imaging"
)

// sqrt2Pi is √(2π), the normalizer of the Gaussian density.
var sqrt2Pi = math.Sqrt(2 * math.Pi)

// Tolerance holds the per-channel density ceilings used by Classify.
type Tolerance struct {
	H float64 `json:"h" yaml:"h"`
	S float64 `json:"s" yaml:"s"`
	L float64 `json:"l" yaml:"l"`
}

// Vec returns the tolerance as an [H, S, L] array.
func (t Tolerance) Vec() [3]float64 {
	return [3]float64{t.H, t.S, t.L}
}

// ClassifyOptions tunes how Classify treats degenerate statistics.
type ClassifyOptions struct {
	// IgnoreFlatChannels drops channels with zero standard deviation from the
	// selection test instead of failing with ErrInsufficientData. At least one
	// channel must still have spread.
	IgnoreFlatChannels bool
}

// Gaussian evaluates the normal density with the given mean and standard
// deviation at x:
//
//	w(x) = 1/(σ√(2π)) · e^(−½((x−μ)/σ)²)
//
// stdev must be positive; callers guard this through ColorStats.FlatChannels.
func Gaussian(x, mean, stdev float64) float64 {
	z := (x - mean) / stdev
	return math.Exp(-0.5*z*z) / (stdev * sqrt2Pi)
}

// Classify builds a selection mask by testing every pixel of img against the
// color statistics of the background.
//
// Each pixel is converted to HSL, and each channel is weighted by the Gaussian
// density of that channel's mean and standard deviation. A pixel is Selected
// iff every active channel's weight is at most its tolerance:
//
//	w_h ≤ tol.H  AND  w_s ≤ tol.S  AND  w_l ≤ tol.L
//
// The density peaks at the mean, so the test fires for pixels far from the
// background color; raising a tolerance also admits pixels nearer the mean.
// Alpha is not consulted here: every pixel receives a mask value.
//
// Returns ErrInsufficientData (wrapped) when stats has fewer than two
// samples, or when a channel is flat and opts does not allow ignoring it.
// The per-pixel work is row-parallel and deterministic.
func Classify(img *image.NRGBA, stats ColorStats, tol Tolerance, opts ClassifyOptions) (*image.Gray, error) {
	if stats.Count < 2 {
		return nil, fmt.Errorf("%w: %d valid pixels", ErrInsufficientData, stats.Count)
	}

	active := [3]bool{true, true, true}
	flat := stats.FlatChannels()
	if len(flat) > 0 {
		if !opts.IgnoreFlatChannels {
			return nil, fmt.Errorf("%w: zero deviation in %v", ErrInsufficientData, flat)
		}
		if len(flat) == len(active) {
			return nil, fmt.Errorf("%w: every channel is flat", ErrInsufficientData)
		}
		for _, c := range flat {
			active[c] = false
		}
	}

	mean := stats.Mean.Vec()
	sd := stats.StdDev.Vec()
	limit := tol.Vec()

	w, h := img.Rect.Dx(), img.Rect.Dy()
	mask := NewMask(w, h)

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			src := img.Pix[y*img.Stride : y*img.Stride+w*4]
			dst := mask.Pix[y*mask.Stride : y*mask.Stride+w]
			for x := range dst {
				i := x * 4
				v := imaging.RGB8ToHSL(src[i], src[i+1], src[i+2]).Vec()
				sel := true
				for c := range v {
					if active[c] && Gaussian(v[c], mean[c], sd[c]) > limit[c] {
						sel = false
						break
					}
				}
				if sel {
					dst[x] = Selected
				}
			}
		}
	})

	return mask, nil
}

// Select computes the background statistics of img and classifies it in one
// step. The statistics are returned alongside the mask so that callers can
// report them.
func Select(img *image.NRGBA, tol Tolerance, opts ClassifyOptions) (*image.Gray, ColorStats, error) {
	stats, err := ComputeStats(img)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to compute color statistics: %w", err)
	}
	mask, err := Classify(img, stats, tol, opts)
	if err != nil {
		return nil, stats, err
	}
	return mask, stats, nil
}
