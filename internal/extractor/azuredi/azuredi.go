// Package azuredi adapts Azure Document Intelligence analyze results
// into positioned text pages. The adapter consumes a stored analysis
// response (the JSON the service returns); issuing the analyze call is
// the caller's concern. Native coordinate unit: inches, as reported by
// the prebuilt layout model, with word geometry arriving as flat
// 8-float polygons.
package azuredi

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aptakhin/xtra/internal/geometry"
	"github.com/aptakhin/xtra/internal/model"
)

// Config identifies the service instance the result came from. Endpoint
// and key are recorded for traceability; the key never leaves the
// process.
type Config struct {
	Endpoint string
	Key      string
}

// documentResult is the root of a stored analyze response.
type documentResult struct {
	Status              string         `json:"status"`
	CreatedDateTime     time.Time      `json:"createdDateTime"`
	LastUpdatedDateTime time.Time      `json:"lastUpdatedDateTime"`
	AnalyzeResult       *analyzeResult `json:"analyzeResult"`
}

type analyzeResult struct {
	APIVersion string `json:"apiVersion"`
	ModelID    string `json:"modelId"`
	Content    string `json:"content"`
	Pages      []page `json:"pages"`
}

type page struct {
	PageNumber int     `json:"pageNumber"`
	Angle      float64 `json:"angle"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Unit       string  `json:"unit"`
	Words      []word  `json:"words"`
}

type word struct {
	Content    string    `json:"content"`
	Polygon    []float64 `json:"polygon"`
	Confidence float64   `json:"confidence"`
}

// Extractor serves pages out of one decoded analyze result. The result
// is immutable after Open, so all methods are safe for concurrent use.
type Extractor struct {
	path   string
	cfg    Config
	result *documentResult
}

// Open decodes the stored analyze response at path. A response without
// an analyzeResult body (a failed or still-running analysis) is a
// whole-document failure and surfaces here.
func Open(path string, cfg Config) (*Extractor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analyze result: %w", err)
	}

	var result documentResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode analyze result: %w", err)
	}
	if result.AnalyzeResult == nil {
		return nil, fmt.Errorf("analyze result missing (status %q)", result.Status)
	}

	return &Extractor{path: path, cfg: cfg, result: &result}, nil
}

func (e *Extractor) Path() string { return e.path }

func (e *Extractor) PageCount() int {
	return len(e.result.AnalyzeResult.Pages)
}

// ExtractPage converts the words of the zero-based page into text
// blocks. Coordinates are already top-down; rotation comes from each
// word's polygon rather than the page-level skew angle.
func (e *Extractor) ExtractPage(pageIdx int) model.ExtractionResult {
	pages := e.result.AnalyzeResult.Pages
	if pageIdx < 0 || pageIdx >= len(pages) {
		return model.FailedResult(pageIdx, fmt.Errorf("page %d out of range [0, %d)", pageIdx, len(pages)))
	}
	p := pages[pageIdx]

	unit, err := pageUnit(p.Unit)
	if err != nil {
		return model.FailedResult(pageIdx, err)
	}

	blocks := make([]model.TextBlock, 0, len(p.Words))
	for _, w := range p.Words {
		if strings.TrimSpace(w.Content) == "" {
			continue
		}
		bbox, rotation := geometry.FromFlat(w.Polygon)
		conf := w.Confidence
		blocks = append(blocks, model.TextBlock{
			Text:       w.Content,
			BBox:       bbox,
			Rotation:   rotation,
			Confidence: &conf,
		})
	}

	return model.ExtractionResult{
		Page: model.Page{
			Page:           pageIdx,
			Width:          p.Width,
			Height:         p.Height,
			Texts:          blocks,
			CoordinateInfo: &model.CoordinateInfo{Unit: unit},
		},
		Success: true,
	}
}

// pageUnit maps the service's unit names onto coordinate units. The
// layout model reports "inch" for PDF input and "pixel" for images;
// pixel pages carry no DPI, which downstream conversion rejects rather
// than guesses.
func pageUnit(unit string) (model.CoordinateUnit, error) {
	switch unit {
	case "inch", "":
		return model.UnitInches, nil
	case "pixel":
		return model.UnitPixels, nil
	default:
		return "", fmt.Errorf("unsupported page unit: %q", unit)
	}
}

func (e *Extractor) Metadata() model.DocumentMetadata {
	ar := e.result.AnalyzeResult
	md := model.DocumentMetadata{
		ExtractorType: model.ExtractorAzureDI,
		Extra: map[string]string{
			"api_version": ar.APIVersion,
			"model_id":    ar.ModelID,
			"status":      e.result.Status,
		},
	}
	if e.cfg.Endpoint != "" {
		md.Extra["endpoint"] = e.cfg.Endpoint
	}
	if !e.result.CreatedDateTime.IsZero() {
		md.CreationDate = e.result.CreatedDateTime.Format(time.RFC3339)
	}
	if !e.result.LastUpdatedDateTime.IsZero() {
		md.ModificationDate = e.result.LastUpdatedDateTime.Format(time.RFC3339)
	}
	return md
}

func (e *Extractor) Close() error { return nil }
