// Package batch runs horizon detection over every image in a directory and
// writes one figure per image into a freshly created output directory.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/horizon-detect/internal/detection"
	"github.com/ironsheep/horizon-detect/internal/imaging"
	"github.com/ironsheep/horizon-detect/internal/render"
)

// ReportName is the file written into the output directory after a
// successful run.
const ReportName = "horizons.yaml"

var (
	// ErrSameDirectory is returned when input and output resolve to the same
	// directory.
	ErrSameDirectory = errors.New("input and output directories must be different")

	// ErrOutputCollision is returned when two input files map to the same
	// figure name.
	ErrOutputCollision = errors.New("input files map to the same output name")
)

// Options configures a batch run.
type Options struct {
	InputDir  string
	OutputDir string

	// Workers bounds how many images are processed at once. Values below 1
	// are treated as 1.
	Workers int

	// Figure controls how each output figure is drawn.
	Figure render.Options

	// Stages selects the detector implementation; nil uses the pure Go one.
	Stages detection.Stages
}

// Entry records the detection result for one input file.
type Entry struct {
	File           string `yaml:"file"`
	Output         string `yaml:"output"`
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	detection.Line `yaml:",inline"`
}

// Report summarises a batch run. Images are in input file name order.
type Report struct {
	InputDir  string  `yaml:"input_dir"`
	OutputDir string  `yaml:"output_dir"`
	Images    []Entry `yaml:"images"`
}

// Run processes every regular file in opts.InputDir.
//
// The output directory is created by Run and must not already exist. Files
// are processed concurrently; the first failure cancels the remaining work
// and is returned wrapped with the offending file name. Figures already
// written by then are left in place. On success the report is also written
// to ReportName inside the output directory.
func Run(ctx context.Context, opts Options, log zerolog.Logger) (*Report, error) {
	in, err := filepath.Abs(opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input directory: %w", err)
	}
	out, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if in == out {
		return nil, ErrSameDirectory
	}

	if info, err := os.Stat(in); err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("input %s is not a directory", in)
	}

	if err := os.Mkdir(out, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	files, err := listImages(in)
	if err != nil {
		return nil, err
	}
	if err := checkCollisions(files); err != nil {
		return nil, err
	}

	log.Info().
		Str("input", in).
		Str("output", out).
		Int("files", len(files)).
		Int("workers", max(opts.Workers, 1)).
		Msg("starting horizon detection")

	detector := detection.NewDetector(opts.Stages)
	entries := make([]Entry, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))

	for i, name := range files {
		if gctx.Err() != nil {
			break
		}
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := processFile(detector, filepath.Join(in, name), out, opts.Figure)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			entries[i] = *entry
			log.Debug().
				Str("file", name).
				Int("y1", entry.Y1).
				Int("y2", entry.Y2).
				Msg("horizon detected")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancelled parent context stops the loop before any goroutine sees it.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{InputDir: in, OutputDir: out, Images: entries}
	if err := WriteReport(report, filepath.Join(out, ReportName)); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	log.Info().Int("files", len(entries)).Msg("horizon detection complete")
	return report, nil
}

func processFile(detector *detection.Detector, path, outDir string, figure render.Options) (*Entry, error) {
	frame, err := imaging.Load(path)
	if err != nil {
		return nil, err
	}

	line, err := detector.Detect(frame.Gray)
	if err != nil {
		return nil, err
	}

	c, err := render.Figure(frame.Original, frame.Gray, line, figure)
	if err != nil {
		return nil, err
	}

	output := render.OutputName(path)
	if err := render.SaveFigure(filepath.Join(outDir, output), c); err != nil {
		return nil, err
	}

	b := frame.Gray.Bounds()
	return &Entry{
		File:   filepath.Base(path),
		Output: output,
		Width:  b.Dx(),
		Height: b.Dy(),
		Line:   line,
	}, nil
}

// listImages returns the names of the non-directory entries of dir, sorted.
// Symlinks are followed.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list input directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if info.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func checkCollisions(names []string) error {
	seen := make(map[string]string, len(names))
	for _, name := range names {
		output := render.OutputName(name)
		if prev, ok := seen[output]; ok {
			return fmt.Errorf("%w: %s and %s both become %s", ErrOutputCollision, prev, name, output)
		}
		seen[output] = name
	}
	return nil
}

// WriteReport writes report to path as YAML.
func WriteReport(report *Report, path string) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// ReadReport reads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var report Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, err
	}

	return &report, nil
}
