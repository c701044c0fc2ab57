package segment

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/debris-tools-mcp/internal/imaging"
)

// Channel identifies one HSL component.
type Channel int

const (
	Hue Channel = iota
	Saturation
	Lightness
)

func (c Channel) String() string {
	switch c {
	case Hue:
		return "hue"
	case Saturation:
		return "saturation"
	case Lightness:
		return "lightness"
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

// ColorStats is the per-channel HSL mean and sample standard deviation of the
// valid pixels of an image.
type ColorStats struct {
	Mean   imaging.HSL `json:"mean"`
	StdDev imaging.HSL `json:"stdev"`
	Count  int         `json:"count"` // number of valid pixels
}

// FlatChannels returns the channels whose standard deviation is zero or not
// finite. A Gaussian weight cannot be evaluated on such a channel.
func (s ColorStats) FlatChannels() []Channel {
	var flat []Channel
	for i, sd := range s.StdDev.Vec() {
		if sd == 0 || math.IsNaN(sd) || math.IsInf(sd, 0) {
			flat = append(flat, Channel(i))
		}
	}
	return flat
}

// rowAcc is one row's contribution to a reduction. Rows are owned by exactly
// one worker, and the merge walks them top to bottom, so the result does not
// depend on how rows were split across goroutines.
type rowAcc struct {
	n   int
	sum [3]float64
}

// ComputeStats converts every valid pixel (alpha 255) of img to HSL and
// returns the per-channel mean and standard deviation.
//
// The variance uses Bessel's correction (divide by n-1). Both passes are
// row-parallel; partial results are merged in ascending row order, so repeated
// runs on the same image produce bit-identical statistics regardless of
// GOMAXPROCS.
//
// Returns ErrInsufficientData (wrapped) when fewer than two valid pixels
// exist. In that case the returned stats carry only Count and, if a single
// valid pixel exists, its Mean.
func ComputeStats(img *image.NRGBA) (ColorStats, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()

	// Sums are taken relative to the first valid sample, which keeps the
	// mean of a single-colored image exact and reduces cancellation.
	ref, ok := firstValid(img)
	if !ok {
		return ColorStats{}, fmt.Errorf("%w: no valid pixels", ErrInsufficientData)
	}

	rows := make([]rowAcc, h)
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			var acc rowAcc
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			for i := 0; i < len(row); i += 4 {
				if row[i+3] != imaging.ValidAlpha {
					continue
				}
				v := imaging.RGB8ToHSL(row[i], row[i+1], row[i+2]).Vec()
				acc.n++
				for c := range v {
					acc.sum[c] += v[c] - ref[c]
				}
			}
			rows[y] = acc
		}
	})

	var n int
	var sum [3]float64
	for _, r := range rows {
		n += r.n
		for c := range sum {
			sum[c] += r.sum[c]
		}
	}

	stats := ColorStats{Count: n}

	var mean [3]float64
	for c := range mean {
		mean[c] = ref[c] + sum[c]/float64(n)
	}
	stats.Mean = imaging.HSL{H: mean[0], S: mean[1], L: mean[2]}

	if n < 2 {
		return stats, fmt.Errorf("%w: %d valid pixel", ErrInsufficientData, n)
	}

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			var acc rowAcc
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			for i := 0; i < len(row); i += 4 {
				if row[i+3] != imaging.ValidAlpha {
					continue
				}
				v := imaging.RGB8ToHSL(row[i], row[i+1], row[i+2]).Vec()
				for c := range v {
					d := v[c] - mean[c]
					acc.sum[c] += d * d
				}
			}
			rows[y] = acc
		}
	})

	var sq [3]float64
	for _, r := range rows {
		for c := range sq {
			sq[c] += r.sum[c]
		}
	}

	var sd [3]float64
	for c := range sd {
		sd[c] = math.Sqrt(sq[c] / float64(n-1))
	}
	stats.StdDev = imaging.HSL{H: sd[0], S: sd[1], L: sd[2]}

	return stats, nil
}

func firstValid(img *image.NRGBA) ([3]float64, bool) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			if row[i+3] == imaging.ValidAlpha {
				return imaging.RGB8ToHSL(row[i], row[i+1], row[i+2]).Vec(), true
			}
		}
	}
	return [3]float64{}, false
}
