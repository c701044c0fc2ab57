// Package pipeline chains the segmentation and detection passes into the
// flow used by the tools: select the foreground, clean the mask, composite it
// over a background, then group what remains into object candidates.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/ironsheep/debris-tools-mcp/internal/config"
	"github.com/ironsheep/debris-tools-mcp/internal/detection"
	"github.com/ironsheep/debris-tools-mcp/internal/imaging"
	"github.com/ironsheep/debris-tools-mcp/internal/segment"
)

// Runner executes the pipeline with a fixed set of parameters. A Runner holds
// no per-image state and may be shared between goroutines.
type Runner struct {
	Params config.Params

	// Log receives debug output. Nil disables it.
	Log *log.Logger
}

// New returns a Runner for p after validating it.
func New(p config.Params, logger *log.Logger) (*Runner, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	return &Runner{Params: p, Log: logger}, nil
}

func (r *Runner) debugf(format string, args ...interface{}) {
	if r.Log != nil {
		r.Log.Printf(format, args...)
	}
}

// SegmentResult holds the outputs of the pixel passes.
type SegmentResult struct {
	Stats     segment.ColorStats
	Raw       *image.Gray // classifier output
	Mask      *image.Gray // after morphology
	Composite *image.NRGBA
}

// Segment computes background statistics, classifies every pixel, applies
// the configured morphology (dilate, then erode) and composites the source
// over the background color.
func (r *Runner) Segment(img *image.NRGBA) (*SegmentResult, error) {
	p := r.Params

	raw, stats, err := segment.Select(img, p.Tolerance, p.ClassifyOptions())
	if err != nil {
		return nil, err
	}
	if flat := stats.FlatChannels(); len(flat) > 0 {
		r.debugf("ignoring flat channels %v", flat)
	}
	r.debugf("stats over %d valid pixels: mean %+v stdev %+v", stats.Count, stats.Mean, stats.StdDev)

	mask, err := r.Morph(raw)
	if err != nil {
		return nil, err
	}

	bg, err := p.BackgroundColor()
	if err != nil {
		return nil, err
	}
	comp, err := segment.Composite(img, mask, bg)
	if err != nil {
		return nil, err
	}

	r.debugf("selected %d of %d pixels", segment.CountSelected(mask), mask.Rect.Dx()*mask.Rect.Dy())

	return &SegmentResult{Stats: stats, Raw: raw, Mask: mask, Composite: comp}, nil
}

// Morph applies the configured dilation and erosion to mask, in that order.
// With both disabled the mask is returned unchanged.
func (r *Runner) Morph(mask *image.Gray) (*image.Gray, error) {
	var err error
	if r.Params.Dilate {
		if mask, err = segment.Dilate(mask, r.Params.Window); err != nil {
			return nil, fmt.Errorf("dilate: %w", err)
		}
	}
	if r.Params.Erode {
		if mask, err = segment.Erode(mask, r.Params.Window); err != nil {
			return nil, fmt.Errorf("erode: %w", err)
		}
	}
	return mask, nil
}

// LocateResult holds the outputs of the tile passes.
type LocateResult struct {
	Chunks  detection.ChunkMap
	Objects *detection.ObjectsResult
}

// Locate averages img into tiles and groups them into objects. Pixels that
// should not contribute must already be invalid (alpha != 255).
func (r *Runner) Locate(ctx context.Context, img *image.NRGBA) (*LocateResult, error) {
	chunks, err := detection.ChunkAverages(img, r.Params.ChunkSize)
	if err != nil {
		return nil, err
	}
	objs, err := detection.LocateObjects(ctx, chunks, r.Params.GroupOptions())
	if err != nil {
		return nil, err
	}
	r.debugf("%d tiles -> %d objects (%d branches truncated)", len(chunks), len(objs.Objects), objs.Truncated)
	return &LocateResult{Chunks: chunks, Objects: objs}, nil
}

// Result is the full pipeline output.
type Result struct {
	*SegmentResult
	*LocateResult

	// Overlay is the composite with each object's tiles outlined.
	Overlay *image.NRGBA
}

// Run segments img, locates objects among the selected pixels only, and
// draws the object outlines over the composite.
func (r *Runner) Run(ctx context.Context, img *image.NRGBA) (*Result, error) {
	seg, err := r.Segment(img)
	if err != nil {
		return nil, err
	}

	fg, err := foreground(img, seg.Mask)
	if err != nil {
		return nil, err
	}

	loc, err := r.Locate(ctx, fg)
	if err != nil {
		return nil, err
	}

	overlay, err := r.DrawObjects(seg.Composite, loc.Objects.Objects, true)
	if err != nil {
		return nil, err
	}

	return &Result{SegmentResult: seg, LocateResult: loc, Overlay: overlay}, nil
}

// Foreground segments img and returns it with every unselected pixel made
// transparent. Only the selected pixels remain valid samples.
func (r *Runner) Foreground(img *image.NRGBA) (*image.NRGBA, error) {
	seg, err := r.Segment(img)
	if err != nil {
		return nil, err
	}
	return foreground(img, seg.Mask)
}

// foreground composites over transparent black, so background tiles drop out
// of the chunk map whatever the display background is.
func foreground(img *image.NRGBA, mask *image.Gray) (*image.NRGBA, error) {
	return segment.Composite(img, mask, color.NRGBA{})
}

// DrawObjects returns a copy of base with every object's tiles outlined in
// the configured palette, optionally numbered from 1.
func (r *Runner) DrawObjects(base *image.NRGBA, objs []detection.ObjectGroup, labels bool) (*image.NRGBA, error) {
	palette, err := r.Params.PaletteColors()
	if err != nil {
		return nil, err
	}

	out := image.NewNRGBA(base.Rect)
	copy(out.Pix, base.Pix)

	groups := make([]imaging.OutlineGroup, len(objs))
	for i, o := range objs {
		groups[i] = imaging.OutlineGroup{
			Tiles: o.TileRects(r.Params.ChunkSize, base.Rect),
			Label: fmt.Sprint(i + 1),
		}
	}
	imaging.DrawOutlines(out, groups, palette, labels)
	return out, nil
}
