package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ironsheep/ppm-edge/internal/imaging"
	"github.com/ironsheep/ppm-edge/internal/pipeline"
)

// defaultPreviewSize bounds ppm_preview output when max_size is omitted.
const defaultPreviewSize = 512

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "ppm_info", "ppm_sobel").
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
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if s.opts.Debug {
			log.Printf("tool %s failed: %v", params.Name, err)
		}
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
//  2. Applies default values for optional parameters
//  3. Loads images from cache or runs the pipeline
//  4. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Inspection
	case "ppm_info":
		return s.handleInfo(args)
	case "ppm_preview":
		return s.handlePreview(ctx, args)

	// Pipeline
	case "ppm_greyscale":
		return s.handleGreyscale(ctx, args)
	case "ppm_sobel":
		return s.handleSobel(ctx, args)

	// Analysis Helpers
	case "ppm_compare":
		return s.handleCompare(args)

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

// pipelineLogger returns the standard logger in debug mode, nil otherwise.
func (s *Server) pipelineLogger() *log.Logger {
	if s.opts.Debug {
		return log.Default()
	}
	return nil
}

// === Inspection Handlers ===

type infoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleInfo(args json.RawMessage) (interface{}, error) {
	var a infoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type previewArgs struct {
	Path    string `json:"path"`
	MaxSize *int   `json:"max_size"`
	Edges   bool   `json:"edges"`
}

func (s *Server) handlePreview(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a previewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	maxSize := defaultPreviewSize
	if a.MaxSize != nil {
		maxSize = *a.MaxSize
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	if a.Edges {
		if img, err = imaging.EdgeMap(ctx, img, s.opts.Workers); err != nil {
			return nil, err
		}
	}
	return imaging.Preview(img, maxSize)
}

// === Pipeline Handlers ===

type greyscaleArgs struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

func (s *Server) handleGreyscale(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a greyscaleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.runPipeline(ctx, pipeline.Config{
		Input:         a.Input,
		Output:        a.Output,
		GreyscaleOnly: true,
	})
}

type sobelArgs struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Workers     int    `json:"workers"`
	Preview     string `json:"preview"`
	PreviewSize int    `json:"preview_size"`
}

func (s *Server) handleSobel(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sobelArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.runPipeline(ctx, pipeline.Config{
		Input:       a.Input,
		Output:      a.Output,
		Workers:     a.Workers,
		Preview:     a.Preview,
		PreviewSize: a.PreviewSize,
	})
}

// runPipeline fills in the server-wide settings and runs cfg. The output path
// is evicted from the cache since its content has just changed.
func (s *Server) runPipeline(ctx context.Context, cfg pipeline.Config) (*pipeline.Result, error) {
	if cfg.Workers == 0 {
		cfg.Workers = s.opts.Workers
	}
	cfg.Strict = s.opts.Decoder.Strict
	cfg.MaxPixels = s.opts.Decoder.MaxPixels
	cfg.Logger = s.pipelineLogger()

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.cache.Evict(cfg.Output)
	return res, nil
}

// === Analysis Helper Handlers ===

type compareArgs struct {
	Path1     string `json:"path1"`
	Path2     string `json:"path2"`
	Tolerance int    `json:"tolerance"`
}

func (s *Server) handleCompare(args json.RawMessage) (interface{}, error) {
	var a compareArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img1, err := s.cache.Load(a.Path1)
	if err != nil {
		return nil, err
	}
	img2, err := s.cache.Load(a.Path2)
	if err != nil {
		return nil, err
	}
	return imaging.Compare(img1, img2, a.Tolerance)
}
