package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"github.com/ironsheep/debris-tools-mcp/internal/config"
	"github.com/ironsheep/debris-tools-mcp/internal/detection"
	"github.com/ironsheep/debris-tools-mcp/internal/imaging"
	"github.com/ironsheep/debris-tools-mcp/internal/pipeline"
	"github.com/ironsheep/debris-tools-mcp/internal/segment"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "debris_load", "debris_pipeline").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Layers any tuning arguments over the server's parameters
//  3. Loads images from cache as needed
//  4. Calls the appropriate segment/detection/pipeline function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image Information
	case "debris_load":
		return s.handleLoad(args)
	case "debris_sample_color":
		return s.handleSampleColor(args)
	case "debris_stats":
		return s.handleStats(args)

	// Segmentation
	case "debris_select":
		return s.handleSelect(args)
	case "debris_composite":
		return s.handleComposite(args)

	// Object Location
	case "debris_chunks":
		return s.handleChunks(args)
	case "debris_locate_objects":
		return s.handleLocateObjects(args)
	case "debris_crop_object":
		return s.handleCropObject(args)
	case "debris_flood_fill":
		return s.handleFloodFill(args)

	// Everything
	case "debris_pipeline":
		return s.handlePipeline(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// tuningArgs are the optional parameter overrides shared by the segmentation
// tools. Unset fields keep the server's configured value.
type tuningArgs struct {
	Tolerance          *toleranceArgs `json:"tolerance"`
	IgnoreFlatChannels *bool          `json:"ignore_flat_channels"`
	Window             *windowArgs    `json:"window"`
	Dilate             *bool          `json:"dilate"`
	Erode              *bool          `json:"erode"`
	Background         *string        `json:"background"`
	ChunkSize          *int           `json:"chunk_size"`
	GroupThreshold     *float64       `json:"group_threshold"`
	GroupDepth         *int           `json:"group_depth"`
	Ordered            *bool          `json:"ordered"`
}

// toleranceArgs overrides single tolerance channels; omitted channels keep
// their configured value.
type toleranceArgs struct {
	H *float64 `json:"h"`
	S *float64 `json:"s"`
	L *float64 `json:"l"`
}

func (a toleranceArgs) apply(t *segment.Tolerance) {
	if a.H != nil {
		t.H = *a.H
	}
	if a.S != nil {
		t.S = *a.S
	}
	if a.L != nil {
		t.L = *a.L
	}
}

type windowArgs struct {
	W *int `json:"w"`
	H *int `json:"h"`
}

func (a windowArgs) apply(w *segment.Window) {
	if a.W != nil {
		w.W = *a.W
	}
	if a.H != nil {
		w.H = *a.H
	}
}

// tuned returns the server parameters with t applied, validated.
func (s *Server) tuned(t tuningArgs) (config.Params, error) {
	p := s.params
	if t.Tolerance != nil {
		t.Tolerance.apply(&p.Tolerance)
	}
	if t.IgnoreFlatChannels != nil {
		p.IgnoreFlatChannels = *t.IgnoreFlatChannels
	}
	if t.Window != nil {
		t.Window.apply(&p.Window)
	}
	if t.Dilate != nil {
		p.Dilate = *t.Dilate
	}
	if t.Erode != nil {
		p.Erode = *t.Erode
	}
	if t.Background != nil {
		p.Background = *t.Background
	}
	if t.ChunkSize != nil {
		p.ChunkSize = *t.ChunkSize
	}
	if t.GroupThreshold != nil {
		p.GroupThreshold = *t.GroupThreshold
	}
	if t.GroupDepth != nil {
		p.GroupDepth = *t.GroupDepth
	}
	if t.Ordered != nil {
		p.OrderedGroups = *t.Ordered
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid arguments: %w", err)
	}
	return p, nil
}

// runner loads path and prepares a pipeline runner for it.
func (s *Server) runner(path string, t tuningArgs) (*pipeline.Runner, *image.NRGBA, error) {
	p, err := s.tuned(t)
	if err != nil {
		return nil, nil, err
	}
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return &pipeline.Runner{Params: p, Log: s.debug}, img, nil
}

// remember records the objects most recently located in img, loaded from path.
func (s *Server) remember(path string, img *image.NRGBA, objs []pipeline.ObjectSummary) {
	s.mu.Lock()
	s.located[path] = locatedObjects{img: img, objects: objs}
	s.mu.Unlock()
}

// === Image Information Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleLoad(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type sampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleSampleColor(args json.RawMessage) (interface{}, error) {
	var a sampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

// StatsResult reports the background statistics of an image.
type StatsResult struct {
	segment.ColorStats
	FlatChannels []string `json:"flat_channels,omitempty"`
}

func (s *Server) handleStats(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	stats, err := segment.ComputeStats(img)
	if err != nil {
		return nil, err
	}
	return &StatsResult{ColorStats: stats, FlatChannels: channelNames(stats.FlatChannels())}, nil
}

func channelNames(cs []segment.Channel) []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.String()
	}
	return names
}

// === Segmentation Handlers ===

type segmentArgs struct {
	Path string `json:"path"`
	tuningArgs
}

// SelectResult is the output of debris_select.
type SelectResult struct {
	Stats    segment.ColorStats    `json:"stats"`
	Selected int                   `json:"selected"`
	Total    int                   `json:"total"`
	Mask     *imaging.EncodedImage `json:"mask"`
}

func (s *Server) handleSelect(args json.RawMessage) (interface{}, error) {
	var a segmentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, img, err := s.runner(a.Path, a.tuningArgs)
	if err != nil {
		return nil, err
	}
	seg, err := r.Segment(img)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodePNG(seg.Mask)
	if err != nil {
		return nil, err
	}
	return &SelectResult{
		Stats:    seg.Stats,
		Selected: segment.CountSelected(seg.Mask),
		Total:    seg.Mask.Rect.Dx() * seg.Mask.Rect.Dy(),
		Mask:     enc,
	}, nil
}

func (s *Server) handleComposite(args json.RawMessage) (interface{}, error) {
	var a segmentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, img, err := s.runner(a.Path, a.tuningArgs)
	if err != nil {
		return nil, err
	}
	seg, err := r.Segment(img)
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNG(seg.Composite)
}

// === Object Location Handlers ===

type chunksArgs struct {
	Path string `json:"path"`

	// Foreground averages only the pixels the classifier selects. Otherwise
	// every valid pixel of the source contributes.
	Foreground bool `json:"foreground"`
	tuningArgs
}

// ChunksResult is the output of debris_chunks.
type ChunksResult struct {
	ChunkSize int                   `json:"chunk_size"`
	Columns   int                   `json:"columns"`
	Rows      int                   `json:"rows"`
	Tiles     int                   `json:"tiles"` // tiles with data
	Preview   *imaging.EncodedImage `json:"preview"`
}

func (s *Server) handleChunks(args json.RawMessage) (interface{}, error) {
	var a chunksArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, img, err := s.runner(a.Path, a.tuningArgs)
	if err != nil {
		return nil, err
	}

	src := img
	if a.Foreground {
		if src, err = r.Foreground(img); err != nil {
			return nil, err
		}
	}

	size := r.Params.ChunkSize
	chunks, err := detection.ChunkAverages(src, size)
	if err != nil {
		return nil, err
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	enc, err := imaging.EncodePNG(detection.RenderChunks(chunks, size, w, h))
	if err != nil {
		return nil, err
	}
	return &ChunksResult{
		ChunkSize: size,
		Columns:   (w + size - 1) / size,
		Rows:      (h + size - 1) / size,
		Tiles:     len(chunks),
		Preview:   enc,
	}, nil
}

type locateArgs struct {
	Path string `json:"path"`

	// IncludeTiles adds each object's tile coordinates to the result.
	IncludeTiles bool `json:"include_tiles"`

	// ShowLabels numbers the outlines in the overlay. Defaults to true.
	ShowLabels *bool `json:"show_labels"`
	tuningArgs
}

// LocateResult is the output of debris_locate_objects.
type LocateResult struct {
	Objects   []pipeline.ObjectSummary `json:"objects"`
	Truncated int                      `json:"truncated"`
	Overlay   *imaging.EncodedImage    `json:"overlay"`
}

func (s *Server) handleLocateObjects(args json.RawMessage) (interface{}, error) {
	var a locateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, img, err := s.runner(a.Path, a.tuningArgs)
	if err != nil {
		return nil, err
	}

	res, err := r.Run(context.Background(), img)
	if err != nil {
		return nil, err
	}

	overlay := res.Overlay
	if a.ShowLabels != nil && !*a.ShowLabels {
		if overlay, err = r.DrawObjects(res.Composite, res.Objects.Objects, false); err != nil {
			return nil, err
		}
	}
	enc, err := imaging.EncodePNG(overlay)
	if err != nil {
		return nil, err
	}

	summary := pipeline.Summarize(res.Objects.Objects, r.Params.ChunkSize, img.Rect, a.IncludeTiles)
	s.remember(a.Path, img, summary)

	return &LocateResult{Objects: summary, Truncated: res.Objects.Truncated, Overlay: enc}, nil
}

type cropObjectArgs struct {
	Path    string  `json:"path"`
	ID      int     `json:"id"`
	Padding int     `json:"padding"`
	Scale   float64 `json:"scale"`
}

func (s *Server) handleCropObject(args json.RawMessage) (interface{}, error) {
	var a cropObjectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	if a.Padding < 0 {
		return nil, fmt.Errorf("padding must not be negative, got %d", a.Padding)
	}

	s.mu.Lock()
	loc, ok := s.located[a.Path]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no objects located in %s yet; run debris_locate_objects first", a.Path)
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	if img != loc.img {
		return nil, fmt.Errorf("%s changed since its objects were located; run debris_locate_objects again", a.Path)
	}

	objs := loc.objects
	if a.ID < 1 || a.ID > len(objs) {
		return nil, fmt.Errorf("object id %d out of range (%d objects)", a.ID, len(objs))
	}
	region := objs[a.ID-1].Bounds.Rect().Inset(-a.Padding).Intersect(img.Rect)
	return imaging.Crop(img, region, a.Scale)
}

type floodFillArgs struct {
	Path      string   `json:"path"`
	X         int      `json:"x"`
	Y         int      `json:"y"`
	Tolerance *float64 `json:"tolerance"`
	MaxDepth  *int     `json:"max_depth"`
}

// FloodFillResult is the output of debris_flood_fill.
type FloodFillResult struct {
	Seed      string                `json:"seed"` // seed color, "#RRGGBB"
	Filled    int                   `json:"filled"`
	Truncated int                   `json:"truncated"`
	Mask      *imaging.EncodedImage `json:"mask"`
}

func (s *Server) handleFloodFill(args json.RawMessage) (interface{}, error) {
	var a floodFillArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	tol, depth := s.params.FillTolerance, s.params.FillDepth
	if a.Tolerance != nil {
		tol = *a.Tolerance
	}
	if a.MaxDepth != nil {
		depth = *a.MaxDepth
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := detection.FloodFill(img, image.Pt(a.X, a.Y), tol, depth)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodePNG(res.Mask)
	if err != nil {
		return nil, err
	}
	return &FloodFillResult{
		Seed:      imaging.Hex(res.Seed),
		Filled:    res.Filled,
		Truncated: res.Truncated,
		Mask:      enc,
	}, nil
}

// === Pipeline Handler ===

type pipelineArgs struct {
	Path string `json:"path"`

	// Images selects whether the mask, composite and overlay PNGs are
	// included. Defaults to true.
	Images *bool `json:"images"`
	tuningArgs
}

// PipelineResult is the output of debris_pipeline.
type PipelineResult struct {
	Stats     segment.ColorStats       `json:"stats"`
	Selected  int                      `json:"selected"`
	Tiles     int                      `json:"tiles"`
	Objects   []pipeline.ObjectSummary `json:"objects"`
	Truncated int                      `json:"truncated"`
	Mask      *imaging.EncodedImage    `json:"mask,omitempty"`
	Composite *imaging.EncodedImage    `json:"composite,omitempty"`
	Overlay   *imaging.EncodedImage    `json:"overlay,omitempty"`
}

func (s *Server) handlePipeline(args json.RawMessage) (interface{}, error) {
	var a pipelineArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, img, err := s.runner(a.Path, a.tuningArgs)
	if err != nil {
		return nil, err
	}
	res, err := r.Run(context.Background(), img)
	if err != nil {
		return nil, err
	}

	summary := pipeline.Summarize(res.Objects.Objects, r.Params.ChunkSize, img.Rect, false)
	s.remember(a.Path, img, summary)

	out := &PipelineResult{
		Stats:     res.Stats,
		Selected:  segment.CountSelected(res.Mask),
		Tiles:     len(res.Chunks),
		Objects:   summary,
		Truncated: res.Objects.Truncated,
	}
	if a.Images == nil || *a.Images {
		for _, e := range []struct {
			dst **imaging.EncodedImage
			img image.Image
		}{
			{&out.Mask, res.Mask},
			{&out.Composite, res.Composite},
			{&out.Overlay, res.Overlay},
		} {
			if *e.dst, err = imaging.EncodePNG(e.img); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
