// Package pdfnative extracts positioned text from the PDF text layer.
// It reads per-glyph positions with ledongthuc/pdf and uses pdfcpu for
// the structural side: page dimensions, document metadata, object
// inventory and relaxed validation. Native coordinate unit: points,
// bottom-up, flipped to top-down by the merger.
package pdfnative

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/aptakhin/xtra/internal/extractor"
	"github.com/aptakhin/xtra/internal/merge"
	"github.com/aptakhin/xtra/internal/model"
)

// defaultGlyphHeight approximates glyph height when the text layer
// carries no font size, matching the common 12pt body size.
const defaultGlyphHeight = 12.0

// US Letter, used when a page carries no usable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Config tunes the backend.
type Config struct {
	// Merger groups the glyph stream into blocks. Nil means line
	// merging with the default gap threshold.
	Merger merge.Merger
}

// Extractor reads one PDF document. The text-layer reader seeks in a
// shared file handle, so concurrent page extraction on one instance is
// serialized internally; Fork gives workers fully independent handles.
type Extractor struct {
	path   string
	merger merge.Merger

	mu     sync.Mutex
	file   *os.File
	reader *ledongthuc.Reader

	ctxFile *os.File
	ctx     *pdfcpumodel.Context
	dims    []types.Dim
}

// Open opens the document with both underlying libraries and validates
// it structurally. Broken cross-reference tables or page trees surface
// here, not on first page access.
func Open(path string, cfg Config) (*Extractor, error) {
	if cfg.Merger == nil {
		cfg.Merger = merge.LineMerger{}
	}

	file, reader, err := ledongthuc.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf text layer: %w", err)
	}

	conf := pdfcpumodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfcpumodel.ValidationRelaxed

	ctxFile, err := os.Open(path)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open pdf structure: %w", err)
	}
	ctx, err := api.ReadContext(ctxFile, conf)
	if err != nil {
		file.Close()
		ctxFile.Close()
		return nil, fmt.Errorf("read pdf structure: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		file.Close()
		ctxFile.Close()
		return nil, fmt.Errorf("resolve page tree: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		// Dims are recoverable: pages fall back to US Letter.
		dims = nil
	}

	return &Extractor{
		path:    path,
		merger:  cfg.Merger,
		file:    file,
		reader:  reader,
		ctxFile: ctxFile,
		ctx:     ctx,
		dims:    dims,
	}, nil
}

func (e *Extractor) Path() string { return e.path }

// PageCount prefers the structural page tree over the text-layer
// reader; the two disagree only on malformed documents, where pdfcpu's
// relaxed repair is the more reliable count.
func (e *Extractor) PageCount() int {
	if e.ctx.PageCount > 0 {
		return e.ctx.PageCount
	}
	return e.reader.NumPage()
}

// ExtractPage extracts merged text blocks from the zero-based page.
func (e *Extractor) ExtractPage(page int) model.ExtractionResult {
	if page < 0 || page >= e.PageCount() {
		return model.FailedResult(page, fmt.Errorf("page %d out of range [0, %d)", page, e.PageCount()))
	}

	content, err := e.pageContent(page + 1)
	if err != nil {
		return model.FailedResult(page, err)
	}

	width, height := e.pageDims(page)

	chars := make([]merge.CharInfo, 0, len(content.Text))
	for _, t := range content.Text {
		h := t.FontSize
		if h == 0 {
			h = defaultGlyphHeight
		}
		chars = append(chars, merge.CharInfo{
			Text:     t.S,
			BBox:     model.BBox{X0: t.X, Y0: t.Y, X1: t.X + t.W, Y1: t.Y + h},
			Font:     t.Font,
			FontSize: t.FontSize,
		})
	}

	fonts := merge.FontSourceFunc(func(name string, size float64) *model.FontInfo {
		if name == "" && size == 0 {
			return nil
		}
		return &model.FontInfo{Name: name, Size: size}
	})

	return model.ExtractionResult{
		Page: model.Page{
			Page:           page,
			Width:          width,
			Height:         height,
			Texts:          e.merger.Merge(chars, height, fonts),
			CoordinateInfo: &model.CoordinateInfo{Unit: model.UnitPoints},
		},
		Success: true,
	}
}

// pageContent reads the glyph stream for a one-based page under the
// reader lock. The text-layer parser panics on some malformed content
// streams; that is converted into a per-page error here.
func (e *Extractor) pageContent(pageNum int) (content ledongthuc.Content, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parse page %d content: %v", pageNum, rec)
		}
	}()

	p := e.reader.Page(pageNum)
	if p.V.IsNull() {
		return ledongthuc.Content{}, fmt.Errorf("page %d has no content", pageNum)
	}
	return p.Content(), nil
}

func (e *Extractor) pageDims(page int) (float64, float64) {
	if page >= 0 && page < len(e.dims) {
		d := e.dims[page]
		if d.Width > 0 && d.Height > 0 {
			return d.Width, d.Height
		}
	}
	return defaultPageWidth, defaultPageHeight
}

// Metadata assembles document-level properties from the Info
// dictionary, the header version, the per-page font inventory and the
// cross-reference table.
func (e *Extractor) Metadata() model.DocumentMetadata {
	md := model.DocumentMetadata{
		ExtractorType: model.ExtractorPDF,
		Extra:         map[string]string{},
	}

	if e.ctx.HeaderVersion != nil {
		md.Extra["pdf_version"] = e.ctx.HeaderVersion.String()
	}

	if e.ctx.Info != nil {
		if infoDict, err := e.ctx.DereferenceDict(*e.ctx.Info); err == nil && infoDict != nil {
			md.Title = e.infoString(infoDict, "Title")
			md.Author = e.infoString(infoDict, "Author")
			md.Creator = e.infoString(infoDict, "Creator")
			md.Producer = e.infoString(infoDict, "Producer")
			md.CreationDate = e.infoString(infoDict, "CreationDate")
			md.ModificationDate = e.infoString(infoDict, "ModDate")
		}
	}

	md.Fonts = e.fontInventory()
	md.PDFObjects = e.objectInventory()
	return md
}

func (e *Extractor) infoString(dict types.Dict, key string) string {
	obj, found := dict.Find(key)
	if !found {
		return ""
	}
	s, err := e.ctx.DereferenceStringOrHexLiteral(obj, pdfcpumodel.V10, nil)
	if err != nil {
		return ""
	}
	return s
}

func (e *Extractor) fontInventory() []model.FontInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	var names []string
	for i := 1; i <= e.reader.NumPage(); i++ {
		p := e.reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		names = append(names, p.Fonts()...)
	}
	return fontInfos(names)
}

// fontInfos dedupes and sorts raw font names into metadata entries.
func fontInfos(names []string) []model.FontInfo {
	seen := map[string]bool{}
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			unique = append(unique, name)
		}
	}
	sort.Strings(unique)

	infos := make([]model.FontInfo, 0, len(unique))
	for _, name := range unique {
		infos = append(infos, model.FontInfo{Name: name})
	}
	return infos
}

func (e *Extractor) objectInventory() []model.PDFObjectInfo {
	var objects []model.PDFObjectInfo
	for id, entry := range e.ctx.Table {
		if entry == nil || entry.Free || entry.Object == nil {
			continue
		}
		gen := 0
		if entry.Generation != nil {
			gen = *entry.Generation
		}
		objects = append(objects, model.PDFObjectInfo{
			ObjectID:   id,
			ObjectType: strings.TrimPrefix(fmt.Sprintf("%T", entry.Object), "types."),
			Generation: gen,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].ObjectID < objects[j].ObjectID })
	return objects
}

// Fork opens an independent handle pair for a private worker.
func (e *Extractor) Fork() (extractor.Extractor, error) {
	return Open(e.path, Config{Merger: e.merger})
}

func (e *Extractor) Close() error {
	var first error
	if err := e.file.Close(); err != nil {
		first = err
	}
	if err := e.ctxFile.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
