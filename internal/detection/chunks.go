package detection

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/debris-tools-mcp/internal/imaging"
)

// ErrInvalidChunkSize is returned for a non-positive tile size.
var ErrInvalidChunkSize = errors.New("invalid chunk size")

// TileCoord is the integer coordinate of a tile in the chunk grid.
// Tile (X, Y) covers pixels [X*size, (X+1)*size) x [Y*size, (Y+1)*size),
// truncated at the right and bottom edges of the image.
type TileCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect returns the pixel rectangle covered by the tile, clipped to bounds.
func (t TileCoord) Rect(chunkSize int, bounds image.Rectangle) image.Rectangle {
	r := image.Rect(t.X*chunkSize, t.Y*chunkSize, (t.X+1)*chunkSize, (t.Y+1)*chunkSize)
	return r.Add(bounds.Min).Intersect(bounds)
}

func (t TileCoord) less(o TileCoord) bool {
	if t.Y != o.Y {
		return t.Y < o.Y
	}
	return t.X < o.X
}

// ChunkMap maps a tile coordinate to the mean normalized RGB of the tile's
// valid pixels. Tiles without valid pixels, and tiles whose mean is pure
// black, are absent.
type ChunkMap map[TileCoord]colorful.Color

type tileMean struct {
	at  TileCoord
	col colorful.Color
}

// ChunkAverages partitions img into chunkSize x chunkSize tiles and returns
// the mean color of each tile's valid pixels (alpha 255), normalized to [0, 1].
//
// Partial tiles at the right and bottom edges are averaged over the pixels
// they do cover. A tile whose mean is exactly black is dropped: it cannot be
// told apart from a tile with no data, so a genuinely black tile never
// reaches the grouping pass.
//
// Tile rows are averaged in parallel.
func ChunkAverages(img *image.NRGBA, chunkSize int) (ChunkMap, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, chunkSize)
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	cols := (w + chunkSize - 1) / chunkSize
	rows := (h + chunkSize - 1) / chunkSize

	found := make([][]tileMean, rows)

	parallel.Line(rows, func(start, end int) {
		for ty := start; ty < end; ty++ {
			y0, y1 := ty*chunkSize, min((ty+1)*chunkSize, h)
			var means []tileMean
			for tx := 0; tx < cols; tx++ {
				x0, x1 := tx*chunkSize, min((tx+1)*chunkSize, w)

				var n, sr, sg, sb uint64
				for y := y0; y < y1; y++ {
					row := img.Pix[y*img.Stride+x0*4 : y*img.Stride+x1*4]
					for i := 0; i < len(row); i += 4 {
						if row[i+3] != imaging.ValidAlpha {
							continue
						}
						n++
						sr += uint64(row[i])
						sg += uint64(row[i+1])
						sb += uint64(row[i+2])
					}
				}

				if n == 0 || sr+sg+sb == 0 {
					continue
				}

				d := float64(n) * 255.0
				means = append(means, tileMean{
					at:  TileCoord{X: tx, Y: ty},
					col: colorful.Color{R: float64(sr) / d, G: float64(sg) / d, B: float64(sb) / d},
				})
			}
			found[ty] = means
		}
	})

	chunks := make(ChunkMap)
	for _, means := range found {
		for _, m := range means {
			chunks[m.at] = m.col
		}
	}
	return chunks, nil
}

// RenderChunks paints every tile of chunks with its mean color on an opaque
// black w x h canvas. Dropped tiles stay black.
func RenderChunks(chunks ChunkMap, chunkSize, w, h int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}

	for at, col := range chunks {
		r, g, b := col.Clamped().RGB255()
		c := color.NRGBA{R: r, G: g, B: b, A: 255}
		rect := at.Rect(chunkSize, out.Rect)
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				out.SetNRGBA(x, y, c)
			}
		}
	}
	return out
}
