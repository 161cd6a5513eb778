// Package server implements an MCP (Model Context Protocol) server that
// exposes horizon detection as tools.
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
//   - image_load: Load an image and report its size, format and file size
//   - image_dimensions: Get width and height
//   - horizon_detect: Detect the horizon line endpoints
//   - horizon_render: Detect the horizon and return the figure as base64 PNG
//
// # Image Caching
//
// Decoded frames are cached by path for the lifetime of the server process,
// so detecting and then rendering the same file decodes it once.
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
//	srv := server.New(version, render.DefaultOptions(), nil, logger)
//	if err := srv.Run(); err != nil {
//	    logger.Fatal().Err(err).Msg("server stopped")
//	}
package server
