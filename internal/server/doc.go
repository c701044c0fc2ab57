// Package server implements the MCP (Model Context Protocol) server for the
// debris segmentation tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image Information:
//   - debris_load: Load image and get metadata
//   - debris_sample_color: Get color at pixel
//   - debris_stats: Background HSL statistics
//
// Segmentation:
//   - debris_select: Selection mask
//   - debris_composite: Selected pixels over a background color
//
// Object Location:
//   - debris_chunks: Tile averages preview
//   - debris_locate_objects: Group foreground tiles into objects
//   - debris_crop_object: Crop a located object
//   - debris_flood_fill: Pixel flood fill from a seed
//
// Pipeline:
//   - debris_pipeline: Everything above in one call
//
// Segmentation tools accept optional overrides (tolerance, window, dilate,
// erode, background, chunk_size, group_threshold, group_depth, ordered) that
// are layered over the server's parameters for that call only.
//
// # State
//
// Loaded images are cached by path and decoded again when the file's
// modification time or size changes. The objects most recently located in
// each image are kept so that debris_crop_object can address them by id; a
// crop fails once the file has changed since those objects were located.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
package server
