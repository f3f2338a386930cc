package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/aptakhin/xtra/internal/config"
	"github.com/aptakhin/xtra/internal/model"
)

const analyzeResultFixture = `{
  "status": "succeeded",
  "createdDateTime": "2025-06-01T10:00:00Z",
  "lastUpdatedDateTime": "2025-06-01T10:00:05Z",
  "analyzeResult": {
    "apiVersion": "2024-11-30",
    "modelId": "prebuilt-layout",
    "content": "Invoice Total",
    "pages": [
      {
        "pageNumber": 1,
        "width": 8.5,
        "height": 11,
        "unit": "inch",
        "words": [
          {
            "content": "Invoice",
            "polygon": [1.0, 1.0, 2.2, 1.0, 2.2, 1.25, 1.0, 1.25],
            "confidence": 0.98
          }
        ]
      },
      {
        "pageNumber": 2,
        "width": 8.5,
        "height": 11,
        "unit": "inch",
        "words": []
      }
    ]
  }
}`

func testConfig() *config.Config {
	return &config.Config{
		Extractor:  "azure-di",
		OutputUnit: "inches",
		DPI:        200,
		Languages:  []string{"eng"},
		Workers:    2,
		BatchSize:  5,
		Version:    "1.0.0",
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analyze.json")
	if err := os.WriteFile(path, []byte(analyzeResultFixture), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("XTRA_AZURE_DI_ENDPOINT", "https://example.cognitiveservices.azure.com")
	t.Setenv("XTRA_AZURE_DI_KEY", "test-key")
}

func TestNewServer(t *testing.T) {
	server, err := NewServer(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server == nil {
		t.Fatal("server should not be nil")
	}
	if server.mcpServer == nil {
		t.Error("mcpServer should be initialized")
	}
	if server.cache == nil {
		t.Error("cache should be initialized")
	}

	if _, err := NewServer(nil, zerolog.Nop()); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestServer_HandleExtractDocument(t *testing.T) {
	setCredentials(t)
	path := writeFixture(t)

	server, err := NewServer(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path": path,
			},
		},
	}

	result, err := server.handleExtractDocument(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result == nil {
		t.Fatal("result should not be nil")
	}

	var doc model.Document
	if err := json.Unmarshal([]byte(extractTextFromResult(result)), &doc); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(doc.Pages))
	}
	if len(doc.Pages[0].Texts) != 1 || doc.Pages[0].Texts[0].Text != "Invoice" {
		t.Errorf("unexpected first page texts: %+v", doc.Pages[0].Texts)
	}
}

func TestServer_HandleExtractDocument_PageSubset(t *testing.T) {
	setCredentials(t)
	path := writeFixture(t)

	server, err := NewServer(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path":  path,
				"pages": "1",
			},
		},
	}

	result, err := server.handleExtractDocument(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	var doc model.Document
	if err := json.Unmarshal([]byte(extractTextFromResult(result)), &doc); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	if doc.Pages[0].Page != 1 {
		t.Errorf("expected page index 1, got %d", doc.Pages[0].Page)
	}
}

func TestServer_HandleDocumentInfo(t *testing.T) {
	setCredentials(t)
	path := writeFixture(t)

	server, err := NewServer(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path":      path,
				"extractor": "azure-di",
			},
		},
	}

	result, err := server.handleDocumentInfo(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	text := extractTextFromResult(result)
	if !strings.Contains(text, "Pages: 2") {
		t.Errorf("content should mention 2 pages, got: %s", text)
	}
	if !strings.Contains(text, "azure-di") {
		t.Errorf("content should mention extractor, got: %s", text)
	}
}

func TestServer_HandleExtractBatchInfo(t *testing.T) {
	setCredentials(t)
	path := writeFixture(t)

	server, err := NewServer(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path":       path,
				"batch_size": float64(1),
				"model":      "gpt-4o",
			},
		},
	}

	result, err := server.handleExtractBatchInfo(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	text := extractTextFromResult(result)
	if !strings.Contains(text, "Batches: 2") {
		t.Errorf("content should mention 2 batches, got: %s", text)
	}
	if !strings.Contains(text, "Provider: openai") {
		t.Errorf("content should mention resolved provider, got: %s", text)
	}
}

func TestServer_InvalidArguments(t *testing.T) {
	server, err := NewServer(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	emptyRequest := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{},
		},
	}

	handlers := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	}{
		{"ExtractDocument", server.handleExtractDocument},
		{"DocumentInfo", server.handleDocumentInfo},
		{"ExtractBatchInfo", server.handleExtractBatchInfo},
	}

	for _, h := range handlers {
		t.Run(h.name, func(t *testing.T) {
			result, err := h.handler(context.Background(), emptyRequest)
			if err != nil {
				t.Errorf("handler should not return error, got: %v", err)
			}
			if result == nil {
				t.Fatal("result should not be nil")
			}
			text := extractTextFromResult(result)
			if !strings.Contains(text, "required") && !strings.Contains(text, "missing") {
				t.Errorf("expected error message for missing arguments, got: %s", text)
			}
		})
	}
}

func TestServer_InvalidExtractor(t *testing.T) {
	setCredentials(t)
	path := writeFixture(t)

	server, err := NewServer(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"path":      path,
				"extractor": "carrier-pigeon",
			},
		},
	}

	result, err := server.handleExtractDocument(context.Background(), request)
	if err != nil {
		t.Fatalf("handler should not return error, got: %v", err)
	}
	text := extractTextFromResult(result)
	if !strings.Contains(text, "carrier-pigeon") {
		t.Errorf("expected error result naming the extractor, got: %s", text)
	}
}

func TestParsePageList(t *testing.T) {
	tests := []struct {
		input   string
		want    []int
		wantErr bool
	}{
		{"0,2,5", []int{0, 2, 5}, false},
		{" 1 , 3 ", []int{1, 3}, false},
		{"7", []int{7}, false},
		{"a,b", nil, true},
		{"-1", nil, true},
	}

	for _, tt := range tests {
		got, err := parsePageList(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parsePageList(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parsePageList(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parsePageList(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parsePageList(%q) = %v, want %v", tt.input, got, tt.want)
				break
			}
		}
	}
}

// Helper function to extract text from a CallToolResult.
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	return ""
}
