package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"
	"time"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	return writeTestImage(t, img)
}

// createSceneFile writes a 90x90 two-tone blue checkerboard with a 30x30
// dark green square at (30,30). Saturation is 1 everywhere, so selection needs
// ignore_flat_channels; with it the square is exactly the selection.
func createSceneFile(t *testing.T) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 90, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 90; x++ {
			switch {
			case x >= 30 && x < 60 && y >= 30 && y < 60:
				img.SetNRGBA(x, y, color.NRGBA{0, 100, 0, 255})
			case (x+y)%2 == 0:
				img.SetNRGBA(x, y, color.NRGBA{0, 0, 255, 255})
			default:
				img.SetNRGBA(x, y, color.NRGBA{0, 0, 250, 255})
			}
		}
	}

	return writeTestImage(t, img)
}

func writeTestImage(t *testing.T, img image.Image) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "handler-test-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

// callTool runs a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// callToolOK runs a tool that must succeed and decodes its JSON text result
// into out.
func callToolOK(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) {
	t.Helper()

	resp := callTool(t, s, name, args)
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error: %v (%v)", name, resp.Error.Message, resp.Error.Data)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("decode %s result: %v", name, err)
	}
}

func callToolErr(t *testing.T, s *Server, name string, args map[string]interface{}) string {
	t.Helper()

	resp := callTool(t, s, name, args)
	if resp.Error == nil {
		t.Fatalf("%s: expected error", name)
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
	data, _ := resp.Error.Data.(string)
	return data
}

type encodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

type objectSummary struct {
	ID     int `json:"id"`
	Tiles  int `json:"tiles"`
	Bounds struct {
		X1, Y1, X2, Y2 int
	} `json:"bounds"`
	Color  string            `json:"color"`
	Spread float64           `json:"spread"`
	Coords []json.RawMessage `json:"coords"`
}

func TestHandleToolsCall_Load(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info struct {
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		Format      string `json:"format"`
		ValidPixels int    `json:"valid_pixels"`
	}
	callToolOK(t, s, "debris_load", map[string]interface{}{"path": imgPath}, &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %s, want png", info.Format)
	}
	if info.ValidPixels != 8000 {
		t.Errorf("valid_pixels: got %d, want 8000", info.ValidPixels)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New()

	for _, name := range []string{"debris_load", "debris_stats", "debris_select", "debris_pipeline"} {
		t.Run(name, func(t *testing.T) {
			callToolErr(t, s, name, map[string]interface{}{"path": "/nonexistent/image.png"})
		})
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := New()

	data := callToolErr(t, s, "nonexistent_tool", map[string]interface{}{})
	if !strings.Contains(data, "unknown tool") {
		t.Errorf("error data: got %q", data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New()
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`{invalid json}`),
	}

	resp := s.handleRequest(req)

	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 10, 10, color.RGBA{0, 0, 255, 255})

	var res struct {
		Hex   string `json:"hex"`
		Valid bool   `json:"valid"`
		HSL   struct {
			H, S, L float64
		} `json:"hsl"`
	}
	callToolOK(t, s, "debris_sample_color", map[string]interface{}{"path": imgPath, "x": 5, "y": 5}, &res)

	if res.Hex != "#0000FF" {
		t.Errorf("hex: got %s, want #0000FF", res.Hex)
	}
	if !res.Valid {
		t.Error("opaque pixel should be valid")
	}
	if res.HSL.S != 1 || res.HSL.L != 0.5 {
		t.Errorf("hsl: got %+v", res.HSL)
	}

	callToolErr(t, s, "debris_sample_color", map[string]interface{}{"path": imgPath, "x": 10, "y": 0})
}

func TestHandleToolsCall_Stats(t *testing.T) {
	s := New()
	imgPath := createSceneFile(t)

	var res struct {
		Count  int `json:"count"`
		StdDev struct {
			H, S, L float64
		} `json:"stdev"`
		FlatChannels []string `json:"flat_channels"`
	}
	callToolOK(t, s, "debris_stats", map[string]interface{}{"path": imgPath}, &res)

	if res.Count != 8100 {
		t.Errorf("count: got %d, want 8100", res.Count)
	}
	if len(res.FlatChannels) != 1 || res.FlatChannels[0] != "saturation" {
		t.Errorf("flat_channels: got %v, want [saturation]", res.FlatChannels)
	}
	if res.StdDev.H <= 0 || res.StdDev.L <= 0 {
		t.Errorf("hue and lightness should have spread, got %+v", res.StdDev)
	}
}

func TestHandleToolsCall_Select(t *testing.T) {
	s := New()
	imgPath := createSceneFile(t)

	t.Run("flat channel fails", func(t *testing.T) {
		data := callToolErr(t, s, "debris_select", map[string]interface{}{"path": imgPath})
		if !strings.Contains(data, "insufficient") {
			t.Errorf("error data: got %q", data)
		}
	})

	t.Run("flat channel ignored", func(t *testing.T) {
		var res struct {
			Selected int          `json:"selected"`
			Total    int          `json:"total"`
			Mask     encodedImage `json:"mask"`
		}
		callToolOK(t, s, "debris_select", map[string]interface{}{
			"path":                 imgPath,
			"ignore_flat_channels": true,
		}, &res)

		if res.Selected != 900 {
			t.Errorf("selected: got %d, want 900", res.Selected)
		}
		if res.Total != 8100 {
			t.Errorf("total: got %d, want 8100", res.Total)
		}
		if res.Mask.Width != 90 || res.Mask.MimeType != "image/png" || res.Mask.ImageBase64 == "" {
			t.Errorf("mask: got %dx%d %s", res.Mask.Width, res.Mask.Height, res.Mask.MimeType)
		}
	})

	t.Run("invalid window", func(t *testing.T) {
		data := callToolErr(t, s, "debris_select", map[string]interface{}{
			"path":                 imgPath,
			"ignore_flat_channels": true,
			"window":               map[string]int{"w": 0, "h": 3},
		})
		if !strings.Contains(data, "invalid arguments") {
			t.Errorf("error data: got %q", data)
		}
	})
}

func TestHandleToolsCall_PartialOverrides(t *testing.T) {
	s := New()
	imgPath := createSceneFile(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want int
	}{
		// s and l keep their defaults of 10.
		{"hue only", map[string]interface{}{"tolerance": map[string]float64{"h": 2.5}}, 900},
		// The square's hue density (about 0.07) is above this ceiling.
		{"tight hue", map[string]interface{}{"tolerance": map[string]float64{"h": 0.05}}, 0},
		// h keeps its default of 3, so the square grows to 34x32.
		{"window width only", map[string]interface{}{"window": map[string]int{"w": 5}, "dilate": true}, 34 * 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["path"] = imgPath
			tt.args["ignore_flat_channels"] = true
			var res struct {
				Selected int `json:"selected"`
			}
			callToolOK(t, s, "debris_select", tt.args, &res)
			if res.Selected != tt.want {
				t.Errorf("selected: got %d, want %d", res.Selected, tt.want)
			}
		})
	}
}

func TestTuned_KeepsOmittedFields(t *testing.T) {
	s := New()
	s.params.Tolerance.L = 7

	s5, w9 := 5.0, 9
	p, err := s.tuned(tuningArgs{
		Tolerance: &toleranceArgs{S: &s5},
		Window:    &windowArgs{W: &w9},
	})
	if err != nil {
		t.Fatalf("tuned failed: %v", err)
	}
	if p.Tolerance.H != 2.5 || p.Tolerance.S != 5 || p.Tolerance.L != 7 {
		t.Errorf("tolerance: got %+v, want {2.5 5 7}", p.Tolerance)
	}
	if p.Window.W != 9 || p.Window.H != 3 {
		t.Errorf("window: got %+v, want {9 3}", p.Window)
	}
	if s.params.Tolerance.S != 10 || s.params.Window.W != 3 {
		t.Error("tuned should not modify the server parameters")
	}
}

func TestHandleToolsCall_Composite(t *testing.T) {
	s := New()
	imgPath := createSceneFile(t)

	var res encodedImage
	callToolOK(t, s, "debris_composite", map[string]interface{}{
		"path":                 imgPath,
		"ignore_flat_channels": true,
		"background":           "#000000",
	}, &res)

	if res.Width != 90 || res.Height != 90 {
		t.Errorf("dimensions: got %dx%d, want 90x90", res.Width, res.Height)
	}

	callToolErr(t, s, "debris_composite", map[string]interface{}{
		"path":                 imgPath,
		"ignore_flat_channels": true,
		"background":           "not-a-color",
	})
}

func TestHandleToolsCall_Chunks(t *testing.T) {
	s := New()
	imgPath := createSceneFile(t)

	tests := []struct {
		name       string
		foreground bool
		wantTiles  int
	}{
		{"whole image", false, 36},
		{"foreground only", true, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res struct {
				ChunkSize int          `json:"chunk_size"`
				Columns   int          `json:"columns"`
				Rows      int          `json:"rows"`
				Tiles     int          `json:"tiles"`
				Preview   encodedImage `json:"preview"`
			}
			callToolOK(t, s, "debris_chunks", map[string]interface{}{
				"path":                 imgPath,
				"foreground":           tt.foreground,
				"ignore_flat_channels": true,
			}, &res)

			if res.ChunkSize != 15 || res.Columns != 6 || res.Rows != 6 {
				t.Errorf("grid: got size %d, %dx%d", res.ChunkSize, res.Columns, res.Rows)
			}
			if res.Tiles != tt.wantTiles {
				t.Errorf("tiles: got %d, want %d", res.Tiles, tt.wantTiles)
			}
			if res.Preview.Width != 90 {
				t.Errorf("preview width: got %d, want 90", res.Preview.Width)
			}
		})
	}
}

func TestHandleToolsCall_LocateAndCrop(t *testing.T) {
	s := New()
	imgPath := createSceneFile(t)

	data := callToolErr(t, s, "debris_crop_object", map[string]interface{}{"path": imgPath, "id": 1})
	if !strings.Contains(data, "debris_locate_objects") {
		t.Errorf("crop before locate: got %q", data)
	}

	var res struct {
		Objects   []objectSummary `json:"objects"`
		Truncated int             `json:"truncated"`
		Overlay   encodedImage    `json:"overlay"`
	}
	callToolOK(t, s, "debris_locate_objects", map[string]interface{}{
		"path":                 imgPath,
		"ignore_flat_channels": true,
		"include_tiles":        true,
	}, &res)

	if len(res.Objects) != 1 {
		t.Fatalf("objects: got %d, want 1", len(res.Objects))
	}
	o := res.Objects[0]
	if o.ID != 1 || o.Tiles != 4 || len(o.Coords) != 4 {
		t.Errorf("object: got id %d, %d tiles, %d coords", o.ID, o.Tiles, len(o.Coords))
	}
	if o.Bounds.X1 != 30 || o.Bounds.Y1 != 30 || o.Bounds.X2 != 60 || o.Bounds.Y2 != 60 {
		t.Errorf("bounds: got %+v, want 30,30,60,60", o.Bounds)
	}
	if o.Color != "#006400" {
		t.Errorf("color: got %s, want #006400", o.Color)
	}
	if o.Spread > 1e-9 {
		t.Errorf("spread: got %g, want 0", o.Spread)
	}
	if res.Truncated != 0 {
		t.Errorf("truncated: got %d, want 0", res.Truncated)
	}
	if res.Overlay.Width != 90 || res.Overlay.Height != 90 {
		t.Errorf("overlay: got %dx%d", res.Overlay.Width, res.Overlay.Height)
	}

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantW   int
		wantErr bool
	}{
		{"bounds", map[string]interface{}{"id": 1}, 30, false},
		{"padded", map[string]interface{}{"id": 1, "padding": 5}, 40, false},
		{"padding clipped", map[string]interface{}{"id": 1, "padding": 50}, 90, false},
		{"scaled", map[string]interface{}{"id": 1, "scale": 2.0}, 60, false},
		{"id zero", map[string]interface{}{"id": 0}, 0, true},
		{"id past end", map[string]interface{}{"id": 2}, 0, true},
		{"negative padding", map[string]interface{}{"id": 1, "padding": -1}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["path"] = imgPath
			if tt.wantErr {
				callToolErr(t, s, "debris_crop_object", tt.args)
				return
			}
			var crop encodedImage
			callToolOK(t, s, "debris_crop_object", tt.args, &crop)
			if crop.Width != tt.wantW || crop.Height != tt.wantW {
				t.Errorf("crop: got %dx%d, want %dx%d", crop.Width, crop.Height, tt.wantW, tt.wantW)
			}
		})
	}
}

func TestHandleToolsCall_CropAfterFileChange(t *testing.T) {
	s := New()
	imgPath := createSceneFile(t)

	args := map[string]interface{}{"path": imgPath, "ignore_flat_channels": true}
	var res struct {
		Objects []objectSummary `json:"objects"`
	}
	callToolOK(t, s, "debris_locate_objects", args, &res)
	if len(res.Objects) != 1 {
		t.Fatalf("objects: got %d, want 1", len(res.Objects))
	}

	f, err := os.Create(imgPath)
	if err != nil {
		t.Fatalf("failed to rewrite image: %v", err)
	}
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 20, 20))); err != nil {
		f.Close()
		t.Fatalf("failed to encode image: %v", err)
	}
	f.Close()
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(imgPath, later, later); err != nil {
		t.Fatalf("failed to set modification time: %v", err)
	}

	data := callToolErr(t, s, "debris_crop_object", map[string]interface{}{"path": imgPath, "id": 1})
	if !strings.Contains(data, "changed") {
		t.Errorf("crop after change: got %q", data)
	}

	var info struct {
		Width int `json:"width"`
	}
	callToolOK(t, s, "debris_load", map[string]interface{}{"path": imgPath}, &info)
	if info.Width != 20 {
		t.Errorf("load after change: got width %d, want 20", info.Width)
	}
}

func TestHandleToolsCall_FloodFill(t *testing.T) {
	s := New()
	imgPath := createSceneFile(t)

	tests := []struct {
		name          string
		args          map[string]interface{}
		wantFilled    int
		wantTruncated int
	}{
		{"whole square", map[string]interface{}{"x": 45, "y": 45, "max_depth": 1000}, 900, 0},
		{"depth zero", map[string]interface{}{"x": 45, "y": 45, "max_depth": 0}, 0, 1},
		{"depth one", map[string]interface{}{"x": 45, "y": 45, "max_depth": 1, "tolerance": 0.0}, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["path"] = imgPath
			var res struct {
				Seed      string       `json:"seed"`
				Filled    int          `json:"filled"`
				Truncated int          `json:"truncated"`
				Mask      encodedImage `json:"mask"`
			}
			callToolOK(t, s, "debris_flood_fill", tt.args, &res)

			if res.Seed != "#006400" {
				t.Errorf("seed: got %s, want #006400", res.Seed)
			}
			if res.Filled != tt.wantFilled {
				t.Errorf("filled: got %d, want %d", res.Filled, tt.wantFilled)
			}
			if res.Truncated != tt.wantTruncated {
				t.Errorf("truncated: got %d, want %d", res.Truncated, tt.wantTruncated)
			}
		})
	}

	callToolErr(t, s, "debris_flood_fill", map[string]interface{}{"path": imgPath, "x": -1, "y": 0})
	callToolErr(t, s, "debris_flood_fill", map[string]interface{}{"path": imgPath, "x": 0, "y": 0, "max_depth": -1})
}

func TestHandleToolsCall_Pipeline(t *testing.T) {
	s := New()
	imgPath := createSceneFile(t)

	var res struct {
		Selected  int             `json:"selected"`
		Tiles     int             `json:"tiles"`
		Objects   []objectSummary `json:"objects"`
		Mask      *encodedImage   `json:"mask"`
		Composite *encodedImage   `json:"composite"`
		Overlay   *encodedImage   `json:"overlay"`
	}
	callToolOK(t, s, "debris_pipeline", map[string]interface{}{
		"path":                 imgPath,
		"ignore_flat_channels": true,
		"ordered":              true,
	}, &res)

	if res.Selected != 900 || res.Tiles != 4 || len(res.Objects) != 1 {
		t.Errorf("got selected %d, tiles %d, objects %d; want 900, 4, 1", res.Selected, res.Tiles, len(res.Objects))
	}
	if res.Mask == nil || res.Composite == nil || res.Overlay == nil {
		t.Error("images should be included by default")
	}

	// The pipeline records its objects for cropping too.
	var crop encodedImage
	callToolOK(t, s, "debris_crop_object", map[string]interface{}{"path": imgPath, "id": 1}, &crop)

	res.Mask, res.Composite, res.Overlay = nil, nil, nil
	callToolOK(t, s, "debris_pipeline", map[string]interface{}{
		"path":                 imgPath,
		"ignore_flat_channels": true,
		"images":               false,
	}, &res)
	if res.Mask != nil || res.Composite != nil || res.Overlay != nil {
		t.Error("images should be omitted when images is false")
	}
}

func TestHandleToolsCall_ServerParams(t *testing.T) {
	p := New().params
	p.IgnoreFlatChannels = true
	p.ChunkSize = 30
	s := NewWithParams(p, nil)
	imgPath := createSceneFile(t)

	var res struct {
		Tiles   int             `json:"tiles"`
		Objects []objectSummary `json:"objects"`
	}
	callToolOK(t, s, "debris_pipeline", map[string]interface{}{"path": imgPath, "images": false}, &res)

	// At 30px the square is exactly tile (1,1).
	if res.Tiles != 1 || len(res.Objects) != 1 || res.Objects[0].Tiles != 1 {
		t.Errorf("got %d tiles, objects %+v", res.Tiles, res.Objects)
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New()

	_, err := s.executeTool("debris_load", json.RawMessage(`{invalid`))
	if err == nil {
		t.Error("Expected error for invalid JSON")
	}
}
