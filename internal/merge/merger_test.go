package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptakhin/xtra/internal/model"
)

func glyph(text string, x0, y0, x1, y1 float64) CharInfo {
	return CharInfo{
		Text:     text,
		BBox:     model.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1},
		Font:     "Helvetica",
		FontSize: 12,
	}
}

func TestLineMergerSingleLine(t *testing.T) {
	chars := []CharInfo{
		glyph("H", 10, 700, 18, 712),
		glyph("i", 18, 700, 22, 712),
	}

	blocks := LineMerger{}.Merge(chars, 792, nil)
	require.Len(t, blocks, 1)

	assert.Equal(t, "Hi", blocks[0].Text)
	assert.Equal(t, model.BBox{X0: 10, Y0: 80, X1: 22, Y1: 92}, blocks[0].BBox)
}

func TestLineMergerSplitsOnVerticalGap(t *testing.T) {
	chars := []CharInfo{
		glyph("a", 10, 700, 16, 712),
		glyph("b", 16, 700, 22, 712),
		// 20 units below the previous baseline: a new line.
		glyph("c", 10, 680, 16, 692),
	}

	blocks := LineMerger{}.Merge(chars, 792, nil)
	require.Len(t, blocks, 2)
	assert.Equal(t, "ab", blocks[0].Text)
	assert.Equal(t, "c", blocks[1].Text)
}

func TestLineMergerGapBoundary(t *testing.T) {
	tests := []struct {
		name       string
		secondY0   float64
		wantBlocks int
	}{
		{"exactly at threshold stays merged", 695, 1},
		{"just past threshold splits", 694.9, 2},
		{"above baseline within threshold stays merged", 704, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chars := []CharInfo{
				glyph("a", 10, 700, 16, 712),
				glyph("b", 16, tt.secondY0, 22, tt.secondY0+12),
			}
			blocks := LineMerger{}.Merge(chars, 792, nil)
			assert.Len(t, blocks, tt.wantBlocks)
		})
	}
}

func TestLineMergerCustomThreshold(t *testing.T) {
	chars := []CharInfo{
		glyph("a", 10, 700, 16, 712),
		glyph("b", 16, 692, 22, 704),
	}

	assert.Len(t, LineMerger{GapThreshold: 10}.Merge(chars, 792, nil), 1)
	assert.Len(t, LineMerger{GapThreshold: 3}.Merge(chars, 792, nil), 2)
}

func TestLineMergerDiscardsWhitespaceOnlyRuns(t *testing.T) {
	chars := []CharInfo{
		glyph(" ", 10, 700, 14, 712),
		glyph("\t", 14, 700, 18, 712),
		glyph("x", 10, 640, 16, 652),
	}

	blocks := LineMerger{}.Merge(chars, 792, nil)
	require.Len(t, blocks, 1)
	assert.Equal(t, "x", blocks[0].Text)
}

func TestLineMergerEmptyInput(t *testing.T) {
	assert.Empty(t, LineMerger{}.Merge(nil, 792, nil))
}

func TestLineMergerYAxisFlip(t *testing.T) {
	// A glyph near the bottom of a bottom-up page must land near the
	// bottom of a top-down page as well.
	chars := []CharInfo{glyph("q", 10, 20, 16, 32)}

	blocks := LineMerger{}.Merge(chars, 792, nil)
	require.Len(t, blocks, 1)
	assert.Equal(t, model.BBox{X0: 10, Y0: 760, X1: 16, Y1: 772}, blocks[0].BBox)
}

func TestLineMergerRotationAndFontFromFirstGlyph(t *testing.T) {
	chars := []CharInfo{
		{Text: "a", BBox: model.BBox{X0: 10, Y0: 700, X1: 16, Y1: 712}, Rotation: 90, Font: "Courier", FontSize: 10},
		{Text: "b", BBox: model.BBox{X0: 16, Y0: 700, X1: 22, Y1: 712}, Rotation: 0, Font: "Times", FontSize: 14},
	}

	fonts := FontSourceFunc(func(name string, size float64) *model.FontInfo {
		return &model.FontInfo{Name: name, Size: size}
	})

	blocks := LineMerger{}.Merge(chars, 792, fonts)
	require.Len(t, blocks, 1)
	assert.Equal(t, float64(90), blocks[0].Rotation)
	require.NotNil(t, blocks[0].FontInfo)
	assert.Equal(t, "Courier", blocks[0].FontInfo.Name)
	assert.Equal(t, float64(10), blocks[0].FontInfo.Size)
}

func TestLineMergerNilFontSource(t *testing.T) {
	blocks := LineMerger{}.Merge([]CharInfo{glyph("a", 10, 700, 16, 712)}, 792, nil)
	require.Len(t, blocks, 1)
	assert.Nil(t, blocks[0].FontInfo)
}

func TestCharacterMergerOneBlockPerGlyph(t *testing.T) {
	chars := []CharInfo{
		glyph("a", 10, 700, 16, 712),
		glyph("b", 16, 700, 22, 712),
		glyph(" ", 22, 700, 26, 712),
		glyph("c", 26, 700, 32, 712),
	}

	blocks := CharacterMerger{}.Merge(chars, 792, nil)
	require.Len(t, blocks, len(chars))
	assert.Equal(t, "a", blocks[0].Text)
	assert.Equal(t, "b", blocks[1].Text)
	assert.Equal(t, "c", blocks[3].Text)
	assert.Equal(t, model.BBox{X0: 10, Y0: 80, X1: 16, Y1: 92}, blocks[0].BBox)
}

func TestCharacterMergerKeepsWhitespaceGlyphs(t *testing.T) {
	// Per-character mode preserves every glyph's position, spaces
	// included; only the line merger drops whitespace-only runs.
	chars := []CharInfo{
		glyph("a", 10, 700, 16, 712),
		glyph(" ", 16, 700, 20, 712),
		glyph("b", 20, 700, 26, 712),
	}

	blocks := CharacterMerger{}.Merge(chars, 792, nil)
	require.Len(t, blocks, 3)
	assert.Equal(t, " ", blocks[1].Text)
	assert.Equal(t, model.BBox{X0: 16, Y0: 80, X1: 20, Y1: 92}, blocks[1].BBox)
}

func TestCharacterMergerFontPerGlyph(t *testing.T) {
	chars := []CharInfo{
		{Text: "a", BBox: model.BBox{X0: 10, Y0: 700, X1: 16, Y1: 712}, Rotation: 90, Font: "Courier", FontSize: 10},
		{Text: "b", BBox: model.BBox{X0: 16, Y0: 700, X1: 22, Y1: 712}, Font: "Times", FontSize: 14},
	}

	fonts := FontSourceFunc(func(name string, size float64) *model.FontInfo {
		return &model.FontInfo{Name: name, Size: size}
	})

	blocks := CharacterMerger{}.Merge(chars, 792, fonts)
	require.Len(t, blocks, 2)
	assert.Equal(t, float64(90), blocks[0].Rotation)
	require.NotNil(t, blocks[1].FontInfo)
	assert.Equal(t, "Times", blocks[1].FontInfo.Name)
	assert.Equal(t, float64(14), blocks[1].FontInfo.Size)
}

func TestLineMergerTrimsBlockText(t *testing.T) {
	chars := []CharInfo{
		glyph(" ", 6, 700, 10, 712),
		glyph("H", 10, 700, 18, 712),
		glyph("i", 18, 700, 22, 712),
		glyph(" ", 22, 700, 26, 712),
	}

	blocks := LineMerger{}.Merge(chars, 792, nil)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Hi", blocks[0].Text)
	// The box still encloses the whole run, padding glyphs included.
	assert.Equal(t, model.BBox{X0: 6, Y0: 80, X1: 26, Y1: 92}, blocks[0].BBox)
}
