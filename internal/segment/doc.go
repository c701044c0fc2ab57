// Package segment separates foreign objects from a dominant background in a
// single still image.
//
// The pipeline is a sequence of pure, data-parallel pixel passes:
//
//  1. ComputeStats: per-channel HSL mean and sample standard deviation of the
//     valid pixels (alpha 255)
//  2. Classify: a Gaussian-density test per pixel producing a binary mask
//  3. Dilate / Erode: windowed morphology over the mask
//  4. Composite: the source where the mask is selected, a background color
//     elsewhere
//
// # Buffers
//
// Images are zero-origin *image.NRGBA buffers (see imaging.ToNRGBA). Masks
// are *image.Gray holding only Selected (255) or Unselected (0).
//
// # Concurrency
//
// Every pass splits rows across goroutines with bild's parallel.Line. Each
// worker reads shared, read-only inputs and writes a disjoint range of rows of
// a freshly allocated output, so no locking is needed. Reductions merge
// per-row partial sums in row order, so results do not vary with GOMAXPROCS.
//
// # Error Handling
//
// Degenerate statistics surface as ErrInsufficientData rather than NaN or
// infinite weights. Joint operations on images of different sizes fail with
// ErrDimensionMismatch. Use errors.Is to test for either.
package segment
