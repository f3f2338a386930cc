// Package merge assembles positioned text blocks out of per-character
// glyph streams. PDF text layers arrive one glyph at a time with
// bottom-up Y coordinates; the mergers here group glyphs into blocks
// and flip the result into the top-left-origin convention the rest of
// the pipeline uses.
package merge

import (
	"math"
	"strings"

	"github.com/aptakhin/xtra/internal/model"
)

// DefaultLineGapThreshold is the maximum vertical baseline distance, in
// source units, between two consecutive characters that still belong to
// the same line.
const DefaultLineGapThreshold = 5.0

// CharInfo is a single positioned glyph as produced by a text-layer
// backend. BBox is in the backend's native coordinates with a bottom-up
// Y axis (y0 is the lower edge). Rotation is in degrees.
type CharInfo struct {
	Text     string
	BBox     model.BBox
	Rotation float64
	Font     string
	FontSize float64
}

// FontSource resolves font descriptors for merged blocks. Backends that
// carry no font table may return nil to omit font info entirely.
type FontSource interface {
	FontInfo(name string, size float64) *model.FontInfo
}

// FontSourceFunc adapts a plain function to the FontSource interface.
type FontSourceFunc func(name string, size float64) *model.FontInfo

func (f FontSourceFunc) FontInfo(name string, size float64) *model.FontInfo {
	return f(name, size)
}

// Merger turns a glyph stream into finished text blocks. pageHeight is
// in the same units as the glyph boxes and anchors the Y-axis flip.
type Merger interface {
	Merge(chars []CharInfo, pageHeight float64, fonts FontSource) []model.TextBlock
}

// LineMerger groups consecutive glyphs into line blocks. Two glyphs
// share a line while the distance between their lower edges stays
// within GapThreshold; any larger jump starts a new block.
type LineMerger struct {
	// GapThreshold of zero or below falls back to
	// DefaultLineGapThreshold.
	GapThreshold float64
}

func (m LineMerger) Merge(chars []CharInfo, pageHeight float64, fonts FontSource) []model.TextBlock {
	gap := m.GapThreshold
	if gap <= 0 {
		gap = DefaultLineGapThreshold
	}

	var blocks []model.TextBlock
	var run []CharInfo
	for _, ch := range chars {
		if len(run) > 0 && math.Abs(ch.BBox.Y0-run[len(run)-1].BBox.Y0) > gap {
			if b, ok := finalize(run, pageHeight, fonts); ok {
				blocks = append(blocks, b)
			}
			run = run[:0]
		}
		run = append(run, ch)
	}
	if b, ok := finalize(run, pageHeight, fonts); ok {
		blocks = append(blocks, b)
	}
	return blocks
}

// CharacterMerger emits exactly one block per glyph, for callers that
// need full per-character positions instead of line grouping. Unlike
// the line merger it keeps whitespace glyphs: the mode exists to
// preserve every glyph's position.
type CharacterMerger struct{}

func (CharacterMerger) Merge(chars []CharInfo, pageHeight float64, fonts FontSource) []model.TextBlock {
	blocks := make([]model.TextBlock, 0, len(chars))
	for _, ch := range chars {
		block := model.TextBlock{
			Text: ch.Text,
			BBox: model.BBox{
				X0: ch.BBox.X0,
				Y0: pageHeight - ch.BBox.Y1,
				X1: ch.BBox.X1,
				Y1: pageHeight - ch.BBox.Y0,
			},
			Rotation: ch.Rotation,
		}
		if fonts != nil {
			block.FontInfo = fonts.FontInfo(ch.Font, ch.FontSize)
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// finalize collapses a run of glyphs into a single block: text is the
// trimmed concatenation in stream order, the box is the run's enclosing
// rectangle flipped to a top-left origin, and rotation and font come
// from the first glyph. Whitespace-only runs produce no block.
func finalize(run []CharInfo, pageHeight float64, fonts FontSource) (model.TextBlock, bool) {
	if len(run) == 0 {
		return model.TextBlock{}, false
	}

	var sb strings.Builder
	x0, y0 := math.Inf(1), math.Inf(1)
	x1, y1 := math.Inf(-1), math.Inf(-1)
	for _, ch := range run {
		sb.WriteString(ch.Text)
		x0 = math.Min(x0, ch.BBox.X0)
		y0 = math.Min(y0, ch.BBox.Y0)
		x1 = math.Max(x1, ch.BBox.X1)
		y1 = math.Max(y1, ch.BBox.Y1)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return model.TextBlock{}, false
	}

	block := model.TextBlock{
		Text: text,
		BBox: model.BBox{
			X0: x0,
			Y0: pageHeight - y1,
			X1: x1,
			Y1: pageHeight - y0,
		},
		Rotation: run[0].Rotation,
	}
	if fonts != nil {
		block.FontInfo = fonts.FontInfo(run[0].Font, run[0].FontSize)
	}
	return block, true
}
