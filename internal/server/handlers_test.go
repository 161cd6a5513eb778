package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/horizon-detect/internal/detection"
)

// createSceneFile writes a PNG with light sky above row horizon and dark
// ground below, and returns its path.
func createSceneFile(t *testing.T, width, height, horizon int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		c := color.RGBA{50, 50, 50, 255}
		if y < horizon {
			c = color.RGBA{200, 200, 200, 255}
		}
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "scene.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool sends a tools/call request through the full request router.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

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

// decodeContent unmarshals the text content of a successful tool response.
func decodeContent(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("content is not JSON: %v", err)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer()
	path := createSceneFile(t, 100, 80, 30)

	var info struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Format string `json:"format"`
	}
	decodeContent(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}), &info)

	if info.Width != 100 || info.Height != 80 || info.Format != "png" {
		t.Errorf("info: got %+v", info)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := newTestServer()
	path := createSceneFile(t, 200, 150, 30)

	var dims struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	decodeContent(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": path}), &dims)

	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_HorizonDetect(t *testing.T) {
	s := newTestServer()
	path := createSceneFile(t, 80, 60, 29)

	var got struct {
		Width  int `json:"width"`
		Height int `json:"height"`
		X1     int `json:"x1"`
		X2     int `json:"x2"`
		Y1     int `json:"y1"`
		Y2     int `json:"y2"`
	}
	decodeContent(t, callTool(t, s, "horizon_detect", map[string]interface{}{"path": path}), &got)

	want := struct {
		Width  int `json:"width"`
		Height int `json:"height"`
		X1     int `json:"x1"`
		X2     int `json:"x2"`
		Y1     int `json:"y1"`
		Y2     int `json:"y2"`
	}{Width: 80, Height: 60, X1: 0, X2: 79, Y1: 28, Y2: 28}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("horizon mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleToolsCall_HorizonDetect_NoSky(t *testing.T) {
	s := newTestServer()
	// A pure black frame has no sky at all.
	path := filepath.Join(t.TempDir(), "black.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 40, 30))); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	f.Close()

	resp := callTool(t, s, "horizon_detect", map[string]interface{}{"path": path})
	if resp.Error == nil {
		t.Fatal("Expected error for an image without sky")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, detection.ErrNoSky.Error()) {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_HorizonRender(t *testing.T) {
	s := newTestServer()
	path := createSceneFile(t, 64, 48, 20)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"defaults", map[string]interface{}{"path": path}},
		{"custom line", map[string]interface{}{"path": path, "line_color": "#00FF00", "line_width": 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result struct {
				Line        detection.Line `json:"line"`
				ImageBase64 string         `json:"image_base64"`
				MimeType    string         `json:"mime_type"`
			}
			decodeContent(t, callTool(t, s, "horizon_render", tt.args), &result)

			if result.MimeType != "image/png" {
				t.Errorf("MimeType: got %s, want image/png", result.MimeType)
			}
			if result.Line.X2 != 63 {
				t.Errorf("Line.X2: got %d, want 63", result.Line.X2)
			}
			data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
			if err != nil {
				t.Fatalf("failed to decode base64: %v", err)
			}
			if _, err := png.Decode(bytes.NewReader(data)); err != nil {
				t.Errorf("figure is not a PNG: %v", err)
			}
		})
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer()
	path := createSceneFile(t, 32, 24, 10)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"unknown tool", "nonexistent_tool", map[string]interface{}{}},
		{"missing path", "horizon_detect", map[string]interface{}{}},
		{"missing path load", "image_load", map[string]interface{}{}},
		{"missing path dimensions", "image_dimensions", map[string]interface{}{}},
		{"missing file", "horizon_detect", map[string]interface{}{"path": "/nonexistent/image.png"}},
		{"bad color", "horizon_render", map[string]interface{}{"path": path, "line_color": "red"}},
		{"negative width", "horizon_render", map[string]interface{}{"path": path, "line_width": -1}},
		{"missing render path", "horizon_render", map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("Expected a tool error")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer()
	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{invalid`),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer()

	for _, name := range []string{"image_load", "horizon_detect", "horizon_render"} {
		if _, err := s.executeTool(name, json.RawMessage(`{invalid`)); err == nil {
			t.Errorf("executeTool(%s) should fail for invalid JSON", name)
		}
	}
}

func TestExecuteTool_NoArguments(t *testing.T) {
	s := newTestServer()

	if _, err := s.executeTool("horizon_detect", nil); err != errMissingPath {
		t.Errorf("error: got %v, want errMissingPath", err)
	}
}

func TestHandleToolsCall_UsesCache(t *testing.T) {
	s := newTestServer()
	path := createSceneFile(t, 32, 24, 10)

	for _, tool := range []string{"image_load", "horizon_detect", "horizon_render"} {
		if resp := callTool(t, s, tool, map[string]interface{}{"path": path}); resp.Error != nil {
			t.Fatalf("%s failed: %+v", tool, resp.Error)
		}
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache entries: got %d, want 1", s.cache.Len())
	}
}
