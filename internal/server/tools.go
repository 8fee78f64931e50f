package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Inspection
		{
			Name:        "ppm_info",
			Description: "Load an image file and return its dimensions, max value, sample depth and luminance statistics. PPM (P6) files may be zstd-compressed (.ppm.zst); PNG, JPEG, GIF, BMP and TIFF are also accepted.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "ppm_preview",
			Description: "Render an image (or its Sobel edge map) as a base64-encoded PNG scaled to fit within max_size pixels. Sample values are stretched so the declared max value is white.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"max_size": map[string]interface{}{
						"type":        "integer",
						"description": "Longest side of the preview in pixels (default 512, 0 for full size)",
						"default":     512,
					},
					"edges": map[string]interface{}{
						"type":        "boolean",
						"description": "Preview the edge map instead of the image itself",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},

		// Pipeline
		{
			Name:        "ppm_greyscale",
			Description: "Convert an image to greyscale using BT.601 integer weights and write it as a binary PPM (P6).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"input": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the source image",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the PPM to write (.ppm or .ppm.zst)",
					},
				},
				"required": []string{"input", "output"},
			},
		},
		{
			Name:        "ppm_sobel",
			Description: "Run the edge pipeline: greyscale conversion then a parallel 3x3 Sobel gradient magnitude. The output is two pixels narrower and shorter than the input and its max value is the largest magnitude found.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"input": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the source image",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the PPM to write (.ppm or .ppm.zst)",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Number of Sobel workers (default: number of CPUs)",
					},
					"preview": map[string]interface{}{
						"type":        "string",
						"description": "Optional path of a PNG, JPEG, BMP or TIFF rendering of the edge map",
					},
					"preview_size": map[string]interface{}{
						"type":        "integer",
						"description": "Longest side of the preview in pixels (default 0, full size)",
						"default":     0,
					},
				},
				"required": []string{"input", "output"},
			},
		},

		// Analysis Helpers
		{
			Name:        "ppm_compare",
			Description: "Compare two images of equal size sample by sample and report how many pixels differ by more than the tolerance.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path1": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the first image",
					},
					"path2": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the second image",
					},
					"tolerance": map[string]interface{}{
						"type":        "integer",
						"description": "Largest per-channel difference still counted as equal (default 0)",
						"default":     0,
					},
				},
				"required": []string{"path1", "path2"},
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
