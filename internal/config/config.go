// Package config loads tool configuration from flags, environment
// variables and an optional local .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aptakhin/xtra/internal/model"
)

const (
	DefaultDPI        = 200
	DefaultWorkers    = 4
	DefaultBatchSize  = 5
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "console"
	DefaultOutputUnit = string(model.UnitPoints)
	DefaultExecutor   = "thread"
	DefaultExtractor  = string(model.ExtractorPDF)
)

// Config holds all settings for one invocation.
type Config struct {
	// Input document path.
	Input string

	// Extraction settings.
	Extractor    string
	OutputUnit   string
	DPI          float64
	Languages    []string
	Pages        []int // zero-based; empty means all pages
	PerCharacter bool
	LineGap      float64

	// Concurrency settings.
	Workers  int
	Executor string

	// Batch settings.
	BatchSize int
	Model     string

	// Server mode: serve extraction tools over MCP stdio instead of
	// running a one-shot extraction.
	MCP bool

	// Application settings.
	Version   string
	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Extractor:  DefaultExtractor,
		OutputUnit: DefaultOutputUnit,
		DPI:        DefaultDPI,
		Languages:  []string{"eng"},
		LineGap:    0, // backend default
		Workers:    DefaultWorkers,
		Executor:   DefaultExecutor,
		BatchSize:  DefaultBatchSize,
		Version:    "1.0.0",
		LogLevel:   DefaultLogLevel,
		LogFormat:  DefaultLogFormat,
	}
}

// LoadFromFlags parses command line flags, environment and .env and
// returns a validated configuration.
func LoadFromFlags() (*Config, error) {
	// A missing .env is the normal case, not an error.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.Input != "" {
		if abs, err := filepath.Abs(cfg.Input); err == nil {
			cfg.Input = abs
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("XTRA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("input", cfg.Input)
	viper.SetDefault("extractor", cfg.Extractor)
	viper.SetDefault("output-unit", cfg.OutputUnit)
	viper.SetDefault("dpi", cfg.DPI)
	viper.SetDefault("languages", cfg.Languages)
	viper.SetDefault("pages", cfg.Pages)
	viper.SetDefault("per-char", cfg.PerCharacter)
	viper.SetDefault("line-gap", cfg.LineGap)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("executor", cfg.Executor)
	viper.SetDefault("batch-size", cfg.BatchSize)
	viper.SetDefault("model", cfg.Model)
	viper.SetDefault("mcp", cfg.MCP)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("logformat", cfg.LogFormat)
}

func defineCommandLineFlags(cfg *Config) {
	pflag.String("input", cfg.Input, "Path to the document to extract")
	pflag.String("extractor", cfg.Extractor, "Extractor backend: pdf, tesseract, azure-di, google-docai")
	pflag.String("output-unit", cfg.OutputUnit, "Coordinate unit for output: points, pixels, inches, normalized")
	pflag.Float64("dpi", cfg.DPI, "DPI for rendering and pixel-unit coordinates")
	pflag.StringSlice("languages", cfg.Languages, "OCR languages in tesseract notation")
	pflag.IntSlice("pages", cfg.Pages, "Zero-based pages to extract (default: all)")
	pflag.Bool("per-char", cfg.PerCharacter, "Emit one text block per character instead of merged lines")
	pflag.Float64("line-gap", cfg.LineGap, "Vertical gap threshold for line merging (0 = backend default)")
	pflag.Int("workers", cfg.Workers, "Maximum concurrent page extractions")
	pflag.String("executor", cfg.Executor, "Worker strategy: thread (shared backend) or process (forked backends)")
	pflag.Int("batch-size", cfg.BatchSize, "Pages per batch for batch processing")
	pflag.String("model", cfg.Model, "Model string for batch processing, e.g. openai/gpt-4o")
	pflag.Bool("mcp", cfg.MCP, "Serve extraction tools over MCP stdio")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("logformat", cfg.LogFormat, "Log format (console, json)")
}

func bindFlagsToViper() {
	for _, name := range []string{
		"input", "extractor", "output-unit", "dpi", "languages", "pages",
		"per-char", "line-gap", "workers", "executor", "batch-size",
		"model", "mcp", "loglevel", "logformat",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nxtra - positioned text extraction from PDFs, scans and OCR results\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input=doc.pdf                              # native text layer, points\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input=scan.pdf --extractor=tesseract        # OCR at 200 dpi\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input=doc.pdf --pages=0,3 --output-unit=inches\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mcp                                         # MCP stdio server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  XTRA_INPUT, XTRA_EXTRACTOR, XTRA_DPI, XTRA_WORKERS, XTRA_LOGLEVEL, ...\n")
		fmt.Fprintf(os.Stderr, "  XTRA_AZURE_DI_ENDPOINT, XTRA_AZURE_DI_KEY        Azure credentials\n")
		fmt.Fprintf(os.Stderr, "  XTRA_GOOGLE_DOCAI_PROCESSOR_NAME                 Google processor\n")
	}
}

func populateConfigFromViper(cfg *Config) {
	cfg.Input = viper.GetString("input")
	cfg.Extractor = viper.GetString("extractor")
	cfg.OutputUnit = viper.GetString("output-unit")
	cfg.DPI = viper.GetFloat64("dpi")
	cfg.Languages = viper.GetStringSlice("languages")
	cfg.Pages = viper.GetIntSlice("pages")
	cfg.PerCharacter = viper.GetBool("per-char")
	cfg.LineGap = viper.GetFloat64("line-gap")
	cfg.Workers = viper.GetInt("workers")
	cfg.Executor = viper.GetString("executor")
	cfg.BatchSize = viper.GetInt("batch-size")
	cfg.Model = viper.GetString("model")
	cfg.MCP = viper.GetBool("mcp")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.LogFormat = viper.GetString("logformat")
}

// Validate checks the configuration for contradictions before any work
// starts.
func (c *Config) Validate() error {
	if !c.MCP && c.Input == "" {
		return errors.New("input path is required (or --mcp for server mode)")
	}

	if _, err := model.ParseExtractorType(c.Extractor); err != nil {
		return err
	}
	if _, err := model.ParseCoordinateUnit(c.OutputUnit); err != nil {
		return err
	}

	if c.DPI <= 0 {
		return errors.New("dpi must be positive")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.Executor != "thread" && c.Executor != "process" {
		return fmt.Errorf("executor must be 'thread' or 'process', got %q", c.Executor)
	}
	if c.BatchSize < 1 {
		return errors.New("batch size must be at least 1")
	}
	for _, p := range c.Pages {
		if p < 0 {
			return fmt.Errorf("page indexes are zero-based and non-negative, got %d", p)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.LogFormat)
	}

	return nil
}

// ExtractorType returns the parsed backend type. Call after Validate.
func (c *Config) ExtractorType() model.ExtractorType {
	t, _ := model.ParseExtractorType(c.Extractor)
	return t
}

// Unit returns the parsed output unit. Call after Validate.
func (c *Config) Unit() model.CoordinateUnit {
	u, _ := model.ParseCoordinateUnit(c.OutputUnit)
	return u
}

// IsDebug reports whether debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String renders the configuration for startup logging. Credentials are
// never part of this struct, so it is safe to log.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Input: %s, Extractor: %s, OutputUnit: %s, DPI: %g, Languages: %s, Workers: %d, Executor: %s, MCP: %t}",
		c.Input, c.Extractor, c.OutputUnit, c.DPI, strings.Join(c.Languages, "+"), c.Workers, c.Executor, c.MCP)
}
