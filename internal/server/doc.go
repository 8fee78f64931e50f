// Package server implements the MCP (Model Context Protocol) server for the
// PPM edge pipeline.
//
// This package provides a JSON-RPC 2.0 server that exposes the decoder,
// greyscale conversion and Sobel edge detection through the MCP protocol, so
// that MCP-compatible clients can inspect images and run the pipeline.
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
// Inspection:
//   - ppm_info: Dimensions, max value, sample depth and statistics
//   - ppm_preview: Base64 PNG rendering of an image or its edge map
//
// Pipeline:
//   - ppm_greyscale: Write the luminance image as P6
//   - ppm_sobel: Write the Sobel edge map as P6
//
// Analysis Helpers:
//   - ppm_compare: Sample-by-sample comparison of two images
//
// # Image Caching
//
// ppm_info, ppm_preview and ppm_compare read images through an in-memory cache
// keyed by path. Pipeline tools always read their input from disk and evict
// their output path from the cache.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.NewWithOptions(server.Options{Workers: 4})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
