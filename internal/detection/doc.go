// Package detection locates object candidates at tile resolution and offers
// a pixel-level flood fill for interactive selection.
//
// # Tile Pipeline
//
//  1. ChunkAverages: split the image into fixed-size tiles and average the
//     valid pixels of each; empty and pure-black tiles are dropped
//  2. LocateObjects: grow groups of 4-connected tiles whose colors stay close
//     to the group's running mean
//
// The tile grid uses integer coordinates with origin (0, 0) at the top-left
// tile. TileCoord.Rect maps a tile back to pixel space.
//
// # Traversal
//
// Both LocateObjects and FloodFill are depth-first searches over an explicit
// stack, so the size of a region is limited by memory rather than by the
// goroutine stack. Each call owns its visited state; separate calls, on the
// same or different images, may run concurrently.
//
// Depth budgets are safety bounds. Exhausting one never fails a call: the
// affected branch stops, and the result reports how many candidates were cut.
//
// # Non-determinism
//
// A group's mean shifts as it absorbs tiles, so a different seed or visiting
// order can produce a different grouping of the same tiles. Set
// GroupOptions.Ordered for a reproducible seed order. Whatever the order, the
// groups always partition the input tiles.
package detection
