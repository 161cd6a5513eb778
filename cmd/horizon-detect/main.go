package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ironsheep/horizon-detect/internal/batch"
	"github.com/ironsheep/horizon-detect/internal/config"
	"github.com/ironsheep/horizon-detect/internal/logging"
	"github.com/ironsheep/horizon-detect/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("horizon-detect %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		case "mcp":
			runServer()
			return
		}
	}

	runBatch(os.Args[1:])
}

func printHelp() {
	fmt.Println("horizon-detect - find the horizon line in photos")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  horizon-detect -input <dir> -output <dir>")
	fmt.Println("  horizon-detect mcp")
	fmt.Println()
	fmt.Println("The first form reads every image in the input directory and writes a")
	fmt.Println("figure with the detected horizon for each one into the output directory,")
	fmt.Println("which must not exist yet. The second form serves the detector over MCP")
	fmt.Println("on stdin/stdout.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -input <dir>     Directory with the images to process")
	fmt.Println("  -output <dir>    Directory to create for the figures")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  HORIZON_LOG_LEVEL=debug      Log level (default: info)")
	fmt.Println("  HORIZON_WORKERS=4            Images processed at once (default: CPU count)")
	fmt.Println("  HORIZON_LINE_COLOR=#FF0000   Horizon line colour")
	fmt.Println("  HORIZON_LINE_WIDTH=2         Horizon line width in points")
}

func runBatch(args []string) {
	cfg, err := config.Load(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "horizon-detect: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'horizon-detect --help' for usage.")
		os.Exit(2)
	}

	log := logging.New(os.Stderr, cfg.LogLevel)

	figure, err := cfg.FigureOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid figure options")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := batch.Run(ctx, batch.Options{
		InputDir:  cfg.InputDir,
		OutputDir: cfg.OutputDir,
		Workers:   cfg.Workers,
		Figure:    figure,
		Stages:    detectorStages(),
	}, log)
	if err != nil {
		stop()
		log.Fatal().Err(err).Msg("horizon detection failed")
	}

	log.Info().
		Int("images", len(report.Images)).
		Str("report", filepath.Join(report.OutputDir, batch.ReportName)).
		Msg("done")
}

func runServer() {
	// stdout is reserved for the MCP protocol, so logs go to stderr
	cfg := config.FromEnv()
	log := logging.New(os.Stderr, cfg.LogLevel)

	figure, err := cfg.FigureOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid figure options")
	}

	log.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Msg("starting MCP server")

	srv := server.New(Version, figure, detectorStages(), log)
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
