package detection

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/stat"
)

// DefaultGroupThreshold is the normalized RGB distance below which a
// neighboring tile joins a group.
const DefaultGroupThreshold = 0.1

// ctxCheckInterval is how many stack pops happen between cancellation checks.
const ctxCheckInterval = 1024

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// (X1, Y1) is the top-left corner (inclusive) and (X2, Y2) the bottom-right
// corner (exclusive).
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect converts the bounds to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// ObjectGroup is one located object: the tiles it absorbed, in absorption
// order, and the running mean of their colors.
type ObjectGroup struct {
	Tiles []TileCoord
	Mean  colorful.Color

	// colors holds each member tile's color, parallel to Tiles.
	colors []colorful.Color
}

// PixelBounds returns the bounding box of all member tiles in pixel space,
// clipped to the image bounds.
func (g ObjectGroup) PixelBounds(chunkSize int, bounds image.Rectangle) Bounds {
	var r image.Rectangle
	for _, t := range g.Tiles {
		r = r.Union(t.Rect(chunkSize, bounds))
	}
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// TileRects returns each member tile's pixel rectangle, clipped to bounds.
func (g ObjectGroup) TileRects(chunkSize int, bounds image.Rectangle) []image.Rectangle {
	rects := make([]image.Rectangle, len(g.Tiles))
	for i, t := range g.Tiles {
		rects[i] = t.Rect(chunkSize, bounds)
	}
	return rects
}

// Spread is the root-mean-square RGB distance of the member tiles from the
// group's final mean. A single-tile group has zero spread.
func (g ObjectGroup) Spread() float64 {
	if len(g.colors) == 0 {
		return 0
	}
	sq := make([]float64, len(g.colors))
	for i, c := range g.colors {
		d := g.Mean.DistanceRgb(c)
		sq[i] = d * d
	}
	return math.Sqrt(stat.Mean(sq, nil))
}

// GroupOptions tunes LocateObjects.
type GroupOptions struct {
	// Threshold is the RGB distance a tile must stay strictly below, measured
	// against the group's current mean, to be absorbed. Zero means
	// DefaultGroupThreshold.
	Threshold float64

	// MaxDepth bounds how many tiles away from the seed a traversal branch
	// may reach. Zero or negative means unbounded.
	MaxDepth int

	// Ordered seeds groups in ascending (Y, X) tile order instead of map
	// iteration order, making the result reproducible.
	Ordered bool
}

// ObjectsResult contains the groups found by LocateObjects.
type ObjectsResult struct {
	Objects []ObjectGroup

	// Truncated counts traversal branches cut by the depth budget at an
	// absorbable tile. A tile is counted once per cut branch that reaches it;
	// it may still join the group from a shorter branch, or seed a later one.
	Truncated int
}

// LocateObjects partitions the tiles of chunks into groups of adjacent,
// similarly colored tiles.
//
// A group starts from a remaining tile and grows through 4-connected (E, W,
// S, N) neighbors. A neighbor joins when its color is within
// opts.Threshold of the group's current mean, and the mean is then updated
// incrementally:
//
//	mean = (mean·count + color) / (count + 1)
//
// Because the mean moves as a group grows, the order in which tiles are
// visited can change the final grouping. Every tile of chunks ends up in
// exactly one group regardless of order. chunks itself is not modified.
//
// Traversal uses an explicit stack, so group size is bounded by memory rather
// than call depth. The context is checked periodically; on cancellation the
// groups found so far are discarded and the context error is returned.
func LocateObjects(ctx context.Context, chunks ChunkMap, opts GroupOptions) (*ObjectsResult, error) {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultGroupThreshold
	}

	remaining := make(ChunkMap, len(chunks))
	for k, v := range chunks {
		remaining[k] = v
	}

	var order []TileCoord
	if opts.Ordered {
		order = make([]TileCoord, 0, len(remaining))
		for k := range remaining {
			order = append(order, k)
		}
		sort.Slice(order, func(i, j int) bool { return order[i].less(order[j]) })
	}
	cursor := 0

	nextSeed := func() (TileCoord, bool) {
		if opts.Ordered {
			for cursor < len(order) {
				at := order[cursor]
				cursor++
				if _, ok := remaining[at]; ok {
					return at, true
				}
			}
			return TileCoord{}, false
		}
		for at := range remaining {
			return at, true
		}
		return TileCoord{}, false
	}

	result := &ObjectsResult{Objects: make([]ObjectGroup, 0)}
	g := grower{
		ctx:       ctx,
		remaining: remaining,
		threshold: threshold,
		maxDepth:  opts.MaxDepth,
	}

	for {
		seed, ok := nextSeed()
		if !ok {
			break
		}
		group, err := g.grow(seed)
		if err != nil {
			return nil, fmt.Errorf("object grouping interrupted: %w", err)
		}
		result.Objects = append(result.Objects, group)
	}

	result.Truncated = g.truncated
	return result, nil
}

type frame struct {
	at     TileCoord
	budget int
}

// grower holds the state shared by every group of one LocateObjects call.
type grower struct {
	ctx       context.Context
	remaining ChunkMap
	threshold float64
	maxDepth  int
	truncated int
	steps     int
}

// neighbors in visiting order: east, west, south, north.
var neighbors = [4]TileCoord{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// grow builds one group from seed. Tiles are tested when popped, against the
// mean at that moment, which visits them in the same order as a recursive
// depth-first search would.
func (g *grower) grow(seed TileCoord) (ObjectGroup, error) {
	var group ObjectGroup
	bounded := g.maxDepth > 0

	stack := []frame{{at: seed, budget: g.maxDepth}}

	for len(stack) > 0 {
		g.steps++
		if g.steps%ctxCheckInterval == 0 {
			if err := g.ctx.Err(); err != nil {
				return ObjectGroup{}, err
			}
		}

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		col, ok := g.remaining[f.at]
		if !ok {
			continue
		}
		if len(group.Tiles) > 0 && group.Mean.DistanceRgb(col) >= g.threshold {
			continue
		}
		if bounded && f.budget <= 0 {
			g.truncated++
			continue
		}

		delete(g.remaining, f.at)
		n := float64(len(group.Tiles))
		group.Mean = colorful.Color{
			R: (group.Mean.R*n + col.R) / (n + 1),
			G: (group.Mean.G*n + col.G) / (n + 1),
			B: (group.Mean.B*n + col.B) / (n + 1),
		}
		group.Tiles = append(group.Tiles, f.at)
		group.colors = append(group.colors, col)

		// Pushed in reverse so the east neighbor is popped first.
		for i := len(neighbors) - 1; i >= 0; i-- {
			d := neighbors[i]
			stack = append(stack, frame{
				at:     TileCoord{X: f.at.X + d.X, Y: f.at.Y + d.Y},
				budget: f.budget - 1,
			})
		}
	}

	return group, nil
}
