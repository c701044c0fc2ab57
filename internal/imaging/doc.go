// Package imaging provides the pixel-level building blocks shared by the
// segmentation and detection passes and the MCP tools.
//
// It covers color conversion (RGB to normalized HSL and back), loading and
// caching images as *image.NRGBA buffers, PNG encoding, object crops, and
// drawing object outlines with labels.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Buffers and Validity
//
// Loaded images are normalized to zero-origin *image.NRGBA. A pixel with
// alpha 255 (ValidAlpha) is a valid sample; anything else marks missing data
// and is skipped by statistics and tile averaging.
//
// # Color Representation
//
//   - Hex: "#RRGGBB" (alpha excluded)
//   - RGBA: 8-bit components with alpha (0-255)
//   - HSL: Hue, Saturation and Lightness, each normalized to [0, 1]
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Cached buffers are shared
// between callers and must be treated as read-only.
package imaging
