// Package render draws the two-panel horizon figure: the original image on
// the left, the grayscale image with the detected horizon line on the right.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/ironsheep/horizon-detect/internal/detection"
)

// Panel titles.
const (
	OriginalTitle = "Original Image"
	OverlayTitle  = "Grayscaled Image\nwith Horizon Line (Red)"
)

// titleSpace is the vertical room reserved above each panel for its title.
const titleSpace = 0.75 * vg.Inch

// Options controls the appearance of the figure.
type Options struct {
	// LineColor is the colour of the horizon line.
	LineColor color.Color

	// LineWidth is the stroke width of the horizon line.
	LineWidth vg.Length

	// PanelWidth is the width of each of the two panels. The panel height
	// follows from the image aspect ratio.
	PanelWidth vg.Length
}

// DefaultOptions returns a red, 2pt horizon line on 4 inch panels.
func DefaultOptions() Options {
	return Options{
		LineColor:  color.RGBA{R: 255, A: 255},
		LineWidth:  vg.Points(2),
		PanelWidth: 4 * vg.Inch,
	}
}

// ParseColor parses a "#RRGGBB" or "#RGB" hex colour.
func ParseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid line color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Figure lays out the original and grayscale images side by side and draws
// line over the grayscale panel. Both images must have the same size.
func Figure(original image.Image, gray *image.Gray, line detection.Line, opts Options) (*vgimg.Canvas, error) {
	ob, gb := original.Bounds(), gray.Bounds()
	if ob.Dx() != gb.Dx() || ob.Dy() != gb.Dy() {
		return nil, fmt.Errorf("image sizes differ: original %dx%d, grayscale %dx%d",
			ob.Dx(), ob.Dy(), gb.Dx(), gb.Dy())
	}
	if gb.Empty() {
		return nil, fmt.Errorf("cannot render an empty image")
	}
	if opts.PanelWidth <= 0 {
		opts.PanelWidth = DefaultOptions().PanelWidth
	}

	w, h := float64(gb.Dx()), float64(gb.Dy())

	left := imagePanel(original, OriginalTitle, w, h)
	right := imagePanel(gray, OverlayTitle, w, h)

	// Pixel (x, y) covers [x, x+1] on the plot's X axis and its row is
	// flipped so row 0 sits at the top.
	l, err := plotter.NewLine(plotter.XYs{
		{X: float64(line.X1) + 0.5, Y: h - float64(line.Y1) - 0.5},
		{X: float64(line.X2) + 0.5, Y: h - float64(line.Y2) - 0.5},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build horizon line: %w", err)
	}
	l.Color = opts.LineColor
	l.Width = opts.LineWidth
	right.Add(l)

	panelHeight := opts.PanelWidth * vg.Length(h/w)
	c := vgimg.New(2*opts.PanelWidth, panelHeight+titleSpace)
	dc := draw.New(c)

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      2,
		PadX:      vg.Points(8),
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(4),
	}
	plots := [][]*plot.Plot{{left, right}}
	canvases := plot.Align(plots, tiles, dc)
	for j, p := range plots[0] {
		p.Draw(canvases[0][j])
	}

	return c, nil
}

func imagePanel(img image.Image, title string, w, h float64) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.X.Min, p.X.Max = 0, w
	p.Y.Min, p.Y.Max = 0, h
	p.Add(plotter.NewImage(img, 0, 0, w, h))
	return p
}

// WritePNG encodes the canvas as PNG to w.
func WritePNG(w io.Writer, c *vgimg.Canvas) error {
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode figure: %w", err)
	}
	return nil
}

// SaveFigure writes the canvas to path as PNG.
func SaveFigure(path string, c *vgimg.Canvas) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WritePNG(f, c)
}

// FigureResult is a rendered figure encoded for transport.
type FigureResult struct {
	Line        detection.Line `json:"line"`
	ImageBase64 string         `json:"image_base64"`
	MimeType    string         `json:"mime_type"`
}

// EncodeFigure renders the figure and returns it as base64 PNG.
func EncodeFigure(original image.Image, gray *image.Gray, line detection.Line, opts Options) (*FigureResult, error) {
	c, err := Figure(original, gray, line, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WritePNG(&buf, c); err != nil {
		return nil, err
	}

	return &FigureResult{
		Line:        line,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// OutputName returns the figure file name for an input file name: the
// extension is replaced with ".png", or ".png" is appended if there is none.
func OutputName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
}
