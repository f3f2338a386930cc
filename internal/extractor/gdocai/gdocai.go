// Package gdocai adapts Google Document AI process results into
// positioned text pages. Like the Azure adapter it consumes a stored
// response; the RPC itself belongs to the caller. Token geometry
// arrives as normalized vertices and is denormalized against the page
// dimension, so the native coordinate unit is the dimension's own
// (pixels for the OCR processor).
package gdocai

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aptakhin/xtra/internal/geometry"
	"github.com/aptakhin/xtra/internal/model"
)

// Config identifies the processor the result came from.
type Config struct {
	ProcessorName string
}

// index decodes Document AI's int64 JSON encoding, which arrives as a
// string from the REST surface and as a number from local re-encoding.
type index int64

func (i *index) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse text index: %w", err)
	}
	*i = index(v)
	return nil
}

type document struct {
	Text  string `json:"text"`
	Pages []page `json:"pages"`
}

type page struct {
	PageNumber int        `json:"pageNumber"`
	Dimension  *dimension `json:"dimension"`
	Tokens     []token    `json:"tokens"`
}

type dimension struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

type token struct {
	Layout layout `json:"layout"`
}

type layout struct {
	TextAnchor   *textAnchor   `json:"textAnchor"`
	BoundingPoly *boundingPoly `json:"boundingPoly"`
	Confidence   float64       `json:"confidence"`
}

type textAnchor struct {
	TextSegments []textSegment `json:"textSegments"`
}

type textSegment struct {
	StartIndex index `json:"startIndex"`
	EndIndex   index `json:"endIndex"`
}

type boundingPoly struct {
	NormalizedVertices []vertex `json:"normalizedVertices"`
	Vertices           []vertex `json:"vertices"`
}

type vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Extractor serves pages out of one decoded process response. The
// document is immutable after Open, so all methods are safe for
// concurrent use.
type Extractor struct {
	path string
	cfg  Config
	doc  *document
}

// Open decodes the stored process response at path. A response without
// pages is a whole-document failure and surfaces here.
func Open(path string, cfg Config) (*Extractor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read process result: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode process result: %w", err)
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("process result has no pages")
	}

	return &Extractor{path: path, cfg: cfg, doc: &doc}, nil
}

func (e *Extractor) Path() string   { return e.path }
func (e *Extractor) PageCount() int { return len(e.doc.Pages) }

// ExtractPage converts the tokens of the zero-based page into text
// blocks. Token text is recovered by slicing the document text with the
// layout's anchor segments; geometry is denormalized against the page
// dimension.
func (e *Extractor) ExtractPage(pageIdx int) model.ExtractionResult {
	if pageIdx < 0 || pageIdx >= len(e.doc.Pages) {
		return model.FailedResult(pageIdx, fmt.Errorf("page %d out of range [0, %d)", pageIdx, len(e.doc.Pages)))
	}
	p := e.doc.Pages[pageIdx]
	if p.Dimension == nil || p.Dimension.Width <= 0 || p.Dimension.Height <= 0 {
		return model.FailedResult(pageIdx, fmt.Errorf("page %d has no dimension", pageIdx))
	}

	blocks := make([]model.TextBlock, 0, len(p.Tokens))
	for _, tok := range p.Tokens {
		text := e.anchorText(tok.Layout.TextAnchor)
		if strings.TrimSpace(text) == "" {
			continue
		}

		points := denormalize(tok.Layout.BoundingPoly, p.Dimension)
		bbox, rotation := geometry.FromPoints(points)
		conf := tok.Layout.Confidence
		blocks = append(blocks, model.TextBlock{
			Text:       strings.TrimRight(text, "\n"),
			BBox:       bbox,
			Rotation:   rotation,
			Confidence: &conf,
		})
	}

	return model.ExtractionResult{
		Page: model.Page{
			Page:           pageIdx,
			Width:          p.Dimension.Width,
			Height:         p.Dimension.Height,
			Texts:          blocks,
			CoordinateInfo: &model.CoordinateInfo{Unit: model.UnitPixels},
		},
		Success: true,
	}
}

// anchorText slices the document text with the anchor's segments, in
// segment order.
func (e *Extractor) anchorText(anchor *textAnchor) string {
	if anchor == nil {
		return ""
	}
	var sb strings.Builder
	limit := index(len(e.doc.Text))
	for _, seg := range anchor.TextSegments {
		start, end := seg.StartIndex, seg.EndIndex
		if start < 0 || end > limit || start >= end {
			continue
		}
		sb.WriteString(e.doc.Text[start:end])
	}
	return sb.String()
}

// denormalize scales normalized vertices by the page dimension,
// falling back to absolute vertices when the processor emitted those
// instead.
func denormalize(poly *boundingPoly, dim *dimension) []geometry.Point {
	if poly == nil {
		return nil
	}
	if len(poly.NormalizedVertices) > 0 {
		points := make([]geometry.Point, len(poly.NormalizedVertices))
		for i, v := range poly.NormalizedVertices {
			points[i] = geometry.Point{X: v.X * dim.Width, Y: v.Y * dim.Height}
		}
		return points
	}
	points := make([]geometry.Point, len(poly.Vertices))
	for i, v := range poly.Vertices {
		points[i] = geometry.Point{X: v.X, Y: v.Y}
	}
	return points
}

func (e *Extractor) Metadata() model.DocumentMetadata {
	md := model.DocumentMetadata{
		ExtractorType: model.ExtractorGoogleDocAI,
		Extra:         map[string]string{},
	}
	if e.cfg.ProcessorName != "" {
		md.Extra["processor"] = e.cfg.ProcessorName
	}
	if len(e.doc.Pages) > 0 && e.doc.Pages[0].Dimension != nil {
		md.Extra["dimension_unit"] = e.doc.Pages[0].Dimension.Unit
	}
	return md
}

func (e *Extractor) Close() error { return nil }
