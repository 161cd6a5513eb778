package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/plot/vg"

	"github.com/ironsheep/horizon-detect/internal/detection"
	"github.com/ironsheep/horizon-detect/internal/imaging"
	"github.com/ironsheep/horizon-detect/internal/render"
)

// errMissingPath is returned by tools called without a path argument.
var errMissingPath = errors.New("path is required")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "horizon_detect").
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
		s.log.Debug().Str("tool", params.Name).Err(err).Msg("tool failed")
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "horizon_detect":
		return s.handleHorizonDetect(args)
	case "horizon_render":
		return s.handleHorizonRender(args)
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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type pathArgs struct {
	Path string `json:"path"`
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return errMissingPath
	}
	return json.Unmarshal(args, v)
}

func (s *Server) loadFrame(path string) (*imaging.Frame, error) {
	if path == "" {
		return nil, errMissingPath
	}
	return s.cache.Load(path)
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// horizonResult is the horizon_detect payload: the image size plus the line.
type horizonResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	detection.Line
}

func (s *Server) handleHorizonDetect(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	frame, err := s.loadFrame(a.Path)
	if err != nil {
		return nil, err
	}

	line, err := s.detector.Detect(frame.Gray)
	if err != nil {
		return nil, err
	}

	b := frame.Gray.Bounds()
	return &horizonResult{Width: b.Dx(), Height: b.Dy(), Line: line}, nil
}

type horizonRenderArgs struct {
	Path      string  `json:"path"`
	LineColor string  `json:"line_color"`
	LineWidth float64 `json:"line_width"`
}

func (s *Server) handleHorizonRender(args json.RawMessage) (interface{}, error) {
	var a horizonRenderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	opts := s.figure
	if a.LineColor != "" {
		c, err := render.ParseColor(a.LineColor)
		if err != nil {
			return nil, err
		}
		opts.LineColor = c
	}
	if a.LineWidth < 0 {
		return nil, fmt.Errorf("line_width must be positive, got %g", a.LineWidth)
	}
	if a.LineWidth > 0 {
		opts.LineWidth = vg.Points(a.LineWidth)
	}

	frame, err := s.loadFrame(a.Path)
	if err != nil {
		return nil, err
	}

	line, err := s.detector.Detect(frame.Gray)
	if err != nil {
		return nil, err
	}

	return render.EncodeFigure(frame.Original, frame.Gray, line, opts)
}
