// Package mcpserver exposes the extraction pipeline as MCP tools over
// stdio, so agent hosts can pull positioned text out of documents
// without shelling out to the CLI.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/aptakhin/xtra/internal/batch"
	"github.com/aptakhin/xtra/internal/cache"
	"github.com/aptakhin/xtra/internal/config"
	"github.com/aptakhin/xtra/internal/extractor"
	"github.com/aptakhin/xtra/internal/extractor/factory"
	"github.com/aptakhin/xtra/internal/model"
)

// Server wires the MCP transport to the extraction tools.
type Server struct {
	config    *config.Config
	log       zerolog.Logger
	mcpServer *server.MCPServer

	// Shared across tool calls so repeated extraction of the same
	// document hits memory instead of OCR.
	cache *cache.Cache
}

// NewServer creates an MCP server exposing the extraction tools.
func NewServer(cfg *config.Config, log zerolog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		"xtra",
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		log:       log,
		mcpServer: mcpServer,
		cache:     cache.New(cache.DefaultCapacity),
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	extractDocumentTool := mcp.NewTool(
		"extract_document",
		mcp.WithDescription("Extract positioned text blocks from a document (PDF text layer, OCR, or stored cloud analysis results)"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the document"),
		),
		mcp.WithString("extractor",
			mcp.Description("Backend: pdf, tesseract, azure-di, google-docai (default: pdf)"),
		),
		mcp.WithString("pages",
			mcp.Description("Comma-separated zero-based page indexes (default: all pages)"),
		),
		mcp.WithString("unit",
			mcp.Description("Output coordinate unit: points, pixels, inches, normalized (default: points)"),
		),
		mcp.WithNumber("workers",
			mcp.Description("Maximum concurrent page extractions"),
		),
	)
	s.mcpServer.AddTool(extractDocumentTool, s.handleExtractDocument)

	documentInfoTool := mcp.NewTool(
		"document_info",
		mcp.WithDescription("Get page count and metadata for a document without extracting text"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the document"),
		),
		mcp.WithString("extractor",
			mcp.Description("Backend: pdf, tesseract, azure-di, google-docai (default: pdf)"),
		),
	)
	s.mcpServer.AddTool(documentInfoTool, s.handleDocumentInfo)

	extractBatchInfoTool := mcp.NewTool(
		"extract_batch_info",
		mcp.WithDescription("Plan batch processing for a document: page chunks and resolved model provider"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the document"),
		),
		mcp.WithNumber("batch_size",
			mcp.Description("Pages per batch (default from configuration)"),
		),
		mcp.WithString("model",
			mcp.Description("Model string, e.g. openai/gpt-4o or gpt-4o"),
		),
	)
	s.mcpServer.AddTool(extractBatchInfoTool, s.handleExtractBatchInfo)
}

func (s *Server) handleExtractDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()

	typ := s.config.ExtractorType()
	if raw, ok := args["extractor"].(string); ok && raw != "" {
		if typ, err = model.ParseExtractorType(raw); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	unit := s.config.Unit()
	if raw, ok := args["unit"].(string); ok && raw != "" {
		if unit, err = model.ParseCoordinateUnit(raw); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	var pages []int
	if raw, ok := args["pages"].(string); ok && raw != "" {
		if pages, err = parsePageList(raw); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	workers := s.config.Workers
	if raw, ok := args["workers"].(float64); ok && raw >= 1 {
		workers = int(raw)
	}

	ext, err := factory.New(path, typ, factory.Options{
		Languages:  s.config.Languages,
		DPI:        s.config.DPI,
		OutputUnit: unit,
		Cache:      s.cache,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer ext.Close()

	runner := extractor.NewRunner(
		extractor.WithMaxWorkers(workers),
		extractor.WithLogger(s.log),
	)
	doc, err := runner.ExtractContext(ctx, ext, pages)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleDocumentInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()

	typ := s.config.ExtractorType()
	if raw, ok := args["extractor"].(string); ok && raw != "" {
		if typ, err = model.ParseExtractorType(raw); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	ext, err := factory.New(path, typ, factory.Options{
		Languages: s.config.Languages,
		DPI:       s.config.DPI,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer ext.Close()

	md := ext.Metadata()
	text := fmt.Sprintf("Document: %s\n", path)
	text += fmt.Sprintf("Extractor: %s\n", md.ExtractorType)
	text += fmt.Sprintf("Pages: %d\n", ext.PageCount())
	if md.Title != "" {
		text += fmt.Sprintf("Title: %s\n", md.Title)
	}
	if md.Author != "" {
		text += fmt.Sprintf("Author: %s\n", md.Author)
	}
	if md.Creator != "" {
		text += fmt.Sprintf("Creator: %s\n", md.Creator)
	}
	if md.Producer != "" {
		text += fmt.Sprintf("Producer: %s\n", md.Producer)
	}
	if md.CreationDate != "" {
		text += fmt.Sprintf("Created: %s\n", md.CreationDate)
	}
	if len(md.Fonts) > 0 {
		names := make([]string, len(md.Fonts))
		for i, f := range md.Fonts {
			names[i] = f.Name
		}
		text += fmt.Sprintf("Fonts: %s\n", strings.Join(names, ", "))
	}
	for k, v := range md.Extra {
		text += fmt.Sprintf("%s: %s\n", k, v)
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleExtractBatchInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()

	batchSize := s.config.BatchSize
	if raw, ok := args["batch_size"].(float64); ok && raw >= 1 {
		batchSize = int(raw)
	}

	ext, err := factory.New(path, s.config.ExtractorType(), factory.Options{
		Languages: s.config.Languages,
		DPI:       s.config.DPI,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer ext.Close()

	pages := make([]int, ext.PageCount())
	for i := range pages {
		pages[i] = i
	}
	chunks := batch.Chunk(pages, batchSize)

	text := fmt.Sprintf("Batch plan for: %s\n", path)
	text += fmt.Sprintf("Pages: %d\n", len(pages))
	text += fmt.Sprintf("Batch size: %d\n", batchSize)
	text += fmt.Sprintf("Batches: %d\n", len(chunks))
	for i, c := range chunks {
		text += fmt.Sprintf("  %d. pages %v\n", i+1, c)
	}

	if raw, ok := args["model"].(string); ok && raw != "" {
		provider, modelName, err := batch.ParseModelString(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text += fmt.Sprintf("Provider: %s\n", provider)
		text += fmt.Sprintf("Model: %s\n", modelName)
	}

	return mcp.NewToolResultText(text), nil
}

// parsePageList parses "0,2,5" into page indexes.
func parsePageList(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	pages := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil || p < 0 {
			return nil, fmt.Errorf("invalid page index %q: pages are zero-based integers", part)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// Run serves the tools over stdio until the transport closes.
func (s *Server) Run(ctx context.Context) error {
	s.log.Debug().Str("version", s.config.Version).Msg("starting MCP stdio server")

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
