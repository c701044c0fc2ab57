package pipeline

import (
	"image"

	"github.com/ironsheep/debris-tools-mcp/internal/detection"
	"github.com/ironsheep/debris-tools-mcp/internal/imaging"
)

// ObjectSummary describes a located object for reporting.
type ObjectSummary struct {
	ID     int                   `json:"id"` // 1-based, matches overlay labels
	Tiles  int                   `json:"tiles"`
	Bounds detection.Bounds      `json:"bounds"`
	Color  string                `json:"color"`  // mean color, "#RRGGBB"
	Spread float64               `json:"spread"` // RMS RGB distance of tiles from the mean
	Coords []detection.TileCoord `json:"coords,omitempty"`
}

// Summarize converts groups into reportable summaries. Tile coordinates are
// included only when withCoords is set, since large objects have many.
func Summarize(objs []detection.ObjectGroup, chunkSize int, bounds image.Rectangle, withCoords bool) []ObjectSummary {
	out := make([]ObjectSummary, len(objs))
	for i, o := range objs {
		out[i] = ObjectSummary{
			ID:     i + 1,
			Tiles:  len(o.Tiles),
			Bounds: o.PixelBounds(chunkSize, bounds),
			Color:  imaging.Hex(o.Mean),
			Spread: o.Spread(),
		}
		if withCoords {
			out[i].Coords = append([]detection.TileCoord(nil), o.Tiles...)
		}
	}
	return out
}
