// Package config gathers the command's settings from flags and HORIZON_*
// environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/viper"
	"gonum.org/v1/plot/vg"

	"github.com/ironsheep/horizon-detect/internal/render"
)

// EnvPrefix is prepended to every environment key, e.g. HORIZON_WORKERS.
const EnvPrefix = "HORIZON"

const (
	keyLogLevel  = "log_level"
	keyWorkers   = "workers"
	keyLineColor = "line_color"
	keyLineWidth = "line_width"
)

// ErrMissingDirectory is returned when -input or -output is not given.
var ErrMissingDirectory = errors.New("both -input and -output directories are required")

// Config holds everything the batch command needs.
type Config struct {
	InputDir  string
	OutputDir string

	// Workers bounds how many images are processed at once.
	Workers int

	// LogLevel is a zerolog level name.
	LogLevel string

	// LineColor is the horizon overlay colour as "#RRGGBB".
	LineColor string

	// LineWidth is the overlay width in points.
	LineWidth float64
}

// FromEnv returns the environment-driven settings with defaults applied.
// InputDir and OutputDir are left empty.
func FromEnv() *Config {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyWorkers, runtime.NumCPU())
	v.SetDefault(keyLineColor, "#FF0000")
	v.SetDefault(keyLineWidth, 2.0)

	return &Config{
		Workers:   v.GetInt(keyWorkers),
		LogLevel:  v.GetString(keyLogLevel),
		LineColor: v.GetString(keyLineColor),
		LineWidth: v.GetFloat64(keyLineWidth),
	}
}

// Load parses the command-line arguments (without the program name) on top
// of FromEnv and validates the result.
func Load(args []string, usage io.Writer) (*Config, error) {
	cfg := FromEnv()

	fs := flag.NewFlagSet("horizon-detect", flag.ContinueOnError)
	fs.SetOutput(usage)
	fs.StringVar(&cfg.InputDir, "input", "", "Directory with the images to detect the horizon on")
	fs.StringVar(&cfg.OutputDir, "output", "", "Directory to create for the output figures (must not exist)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable for a batch run.
func (c *Config) Validate() error {
	if c.InputDir == "" || c.OutputDir == "" {
		return ErrMissingDirectory
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.LineWidth <= 0 {
		return fmt.Errorf("line width must be positive, got %g", c.LineWidth)
	}
	if _, err := render.ParseColor(c.LineColor); err != nil {
		return err
	}
	return nil
}

// FigureOptions converts the overlay settings into render options.
func (c *Config) FigureOptions() (render.Options, error) {
	opts := render.DefaultOptions()
	col, err := render.ParseColor(c.LineColor)
	if err != nil {
		return opts, err
	}
	opts.LineColor = col
	opts.LineWidth = vg.Points(c.LineWidth)
	return opts, nil
}
