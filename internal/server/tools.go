package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// tuningProperties describes the optional overrides accepted by every tool
// that runs the segmentation passes. Omitted values use the server's
// configuration.
func tuningProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"tolerance": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"h": map[string]interface{}{"type": "number"},
				"s": map[string]interface{}{"type": "number"},
				"l": map[string]interface{}{"type": "number"},
			},
			"description": "Per-channel Gaussian density ceilings. A pixel is selected when its density is at or below the ceiling on every channel (default h 2.5, s 10, l 10). Omitted channels keep their configured value",
		},
		"ignore_flat_channels": map[string]interface{}{
			"type":        "boolean",
			"description": "Skip channels with zero spread instead of failing (default false)",
		},
		"window": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"w": map[string]interface{}{"type": "integer"},
				"h": map[string]interface{}{"type": "integer"},
			},
			"description": "Morphology window size (default 3x3). An omitted dimension keeps its configured value",
		},
		"dilate": map[string]interface{}{
			"type":        "boolean",
			"description": "Dilate the mask before compositing",
		},
		"erode": map[string]interface{}{
			"type":        "boolean",
			"description": "Erode the mask before compositing (after dilation when both are set)",
		},
		"background": map[string]interface{}{
			"type":        "string",
			"description": "Composite background as hex #RRGGBB or #RRGGBBAA (default #0032C8)",
		},
		"chunk_size": map[string]interface{}{
			"type":        "integer",
			"description": "Tile edge length in pixels for object grouping (default 15)",
		},
		"group_threshold": map[string]interface{}{
			"type":        "number",
			"description": "RGB distance (0..sqrt 3) below which a neighboring tile joins an object (default 0.1)",
		},
		"group_depth": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum traversal depth from an object's seed tile, 0 for unbounded (default 0)",
		},
		"ordered": map[string]interface{}{
			"type":        "boolean",
			"description": "Seed objects in row-major tile order for reproducible ids (default false)",
		},
	}
}

// withProperties returns tuningProperties extended by extra.
func withProperties(extra map[string]interface{}) map[string]interface{} {
	props := tuningProperties()
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "debris_load",
			Description: "Load an image file and return its dimensions, format and number of valid (fully opaque) pixels. The image stays cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "debris_sample_color",
			Description: "Get the RGBA, hex and normalized HSL color at a pixel.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "debris_stats",
			Description: "Compute the per-channel HSL mean and sample standard deviation of all valid pixels, the model of the dominant background. Channels with no spread are listed as flat.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Segmentation
		{
			Name:        "debris_select",
			Description: "Classify every pixel against the background statistics and return the binary selection mask as base64 PNG (white = selected), after optional dilation and erosion.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": tuningProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "debris_composite",
			Description: "Return the image with every unselected pixel replaced by the background color, as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": tuningProperties(),
				"required":   []string{"path"},
			},
		},

		// Object Location
		{
			Name:        "debris_chunks",
			Description: "Average the image into square tiles and return a preview with each tile painted in its mean color. Tiles without valid pixels, or averaging to pure black, are dropped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"foreground": map[string]interface{}{
						"type":        "boolean",
						"description": "Average only selected pixels (default false: every valid pixel)",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "debris_locate_objects",
			Description: "Segment the image, group adjacent similarly colored foreground tiles into objects and return their bounding boxes, colors and an outlined overlay. Object ids are valid for debris_crop_object until the next locate on the same image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"include_tiles": map[string]interface{}{
						"type":        "boolean",
						"description": "Include each object's tile coordinates (default false)",
						"default":     false,
					},
					"show_labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Number the outlines in the overlay (default true)",
						"default":     true,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "debris_crop_object",
			Description: "Crop a located object's bounding box from the source image and return it as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"id": map[string]interface{}{
						"type":        "integer",
						"description": "Object id reported by debris_locate_objects or debris_pipeline (1-based)",
					},
					"padding": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels of context to add on every side (default 0)",
						"default":     0,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 4.0 to zoom small debris). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "id"},
			},
		},
		{
			Name:        "debris_flood_fill",
			Description: "Select the 4-connected region around a seed pixel whose RGB distance from the seed color is within tolerance. Returns the mask as base64 PNG and how many matching pixels the depth limit cut off.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Seed X coordinate",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Seed Y coordinate",
					},
					"tolerance": map[string]interface{}{
						"type":        "number",
						"description": "Maximum normalized RGB distance from the seed color (default 0.25)",
						"default":     0.25,
					},
					"max_depth": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum traversal depth from the seed; 0 fills nothing (default 100)",
						"default":     100,
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},

		// Everything
		{
			Name:        "debris_pipeline",
			Description: "Run the full flow in one call: background statistics, selection, morphology, composite, object grouping and overlay.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"images": map[string]interface{}{
						"type":        "boolean",
						"description": "Include mask, composite and overlay PNGs (default true)",
						"default":     true,
					},
				}),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
