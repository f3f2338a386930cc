package config

import (
	"testing"

	"github.com/aptakhin/xtra/internal/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Extractor != "pdf" {
		t.Errorf("Expected default extractor to be 'pdf', got '%s'", cfg.Extractor)
	}
	if cfg.OutputUnit != "points" {
		t.Errorf("Expected default output unit to be 'points', got '%s'", cfg.OutputUnit)
	}
	if cfg.DPI != 200 {
		t.Errorf("Expected default dpi to be 200, got %g", cfg.DPI)
	}
	if len(cfg.Languages) != 1 || cfg.Languages[0] != "eng" {
		t.Errorf("Expected default languages to be [eng], got %v", cfg.Languages)
	}
	if cfg.Workers != 4 {
		t.Errorf("Expected default workers to be 4, got %d", cfg.Workers)
	}
	if cfg.Executor != "thread" {
		t.Errorf("Expected default executor to be 'thread', got '%s'", cfg.Executor)
	}
	if cfg.BatchSize != 5 {
		t.Errorf("Expected default batch size to be 5, got %d", cfg.BatchSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.MCP {
		t.Error("Expected MCP mode to be off by default")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Input = "/tmp/doc.pdf"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults with input", func(c *Config) {}, false},
		{"mcp mode without input", func(c *Config) { c.Input = ""; c.MCP = true }, false},
		{"missing input", func(c *Config) { c.Input = "" }, true},
		{"unknown extractor", func(c *Config) { c.Extractor = "magic" }, true},
		{"unknown output unit", func(c *Config) { c.OutputUnit = "furlongs" }, true},
		{"zero dpi", func(c *Config) { c.DPI = 0 }, true},
		{"negative dpi", func(c *Config) { c.DPI = -72 }, true},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"unknown executor", func(c *Config) { c.Executor = "fiber" }, true},
		{"process executor", func(c *Config) { c.Executor = "process" }, false},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, true},
		{"negative page index", func(c *Config) { c.Pages = []int{0, -1} }, true},
		{"valid pages", func(c *Config) { c.Pages = []int{0, 3, 7} }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"json log format", func(c *Config) { c.LogFormat = "json" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigParsedAccessors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input = "/tmp/doc.pdf"
	cfg.Extractor = "azure-di"
	cfg.OutputUnit = "inches"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if cfg.ExtractorType() != model.ExtractorAzureDI {
		t.Errorf("Expected azure-di extractor type, got %s", cfg.ExtractorType())
	}
	if cfg.Unit() != model.UnitInches {
		t.Errorf("Expected inches unit, got %s", cfg.Unit())
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input = "/tmp/doc.pdf"

	s := cfg.String()
	if s == "" {
		t.Error("Expected non-empty string representation")
	}
}
