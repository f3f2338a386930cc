package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/aptakhin/xtra/internal/config"
	"github.com/aptakhin/xtra/internal/extractor"
	"github.com/aptakhin/xtra/internal/extractor/factory"
	"github.com/aptakhin/xtra/internal/logging"
	"github.com/aptakhin/xtra/internal/mcpserver"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	// In MCP mode stdout carries the protocol, so logs go to stderr.
	log := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  os.Stderr,
		Service: "xtra",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MCP {
		runMCPMode(ctx, cancel, cfg, log)
		return
	}

	if err := runExtraction(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("extraction failed")
		os.Exit(1)
	}
}

// runMCPMode serves the extraction tools over stdio with signal-driven
// shutdown.
func runMCPMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, log zerolog.Logger) {
	srv, err := mcpserver.NewServer(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to create MCP server")
		os.Exit(1)
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
		if err := <-serverErrCh; err != nil {
			log.Error().Err(err).Msg("server shutdown with error")
			os.Exit(1)
		}
	case err := <-serverErrCh:
		if err != nil {
			log.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}
}

// runExtraction extracts the configured document and prints it as JSON.
func runExtraction(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	executor, err := extractor.ParseExecutorStrategy(cfg.Executor)
	if err != nil {
		return err
	}

	ext, err := factory.New(cfg.Input, cfg.ExtractorType(), factory.Options{
		Languages:        cfg.Languages,
		DPI:              cfg.DPI,
		OutputUnit:       cfg.Unit(),
		LineGapThreshold: cfg.LineGap,
		PerCharacter:     cfg.PerCharacter,
	})
	if err != nil {
		return err
	}
	defer ext.Close()

	runner := extractor.NewRunner(
		extractor.WithMaxWorkers(cfg.Workers),
		extractor.WithExecutor(executor),
		extractor.WithLogger(log),
	)

	doc, err := runner.ExtractContext(ctx, ext, cfg.Pages)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("xtra document text extractor\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
