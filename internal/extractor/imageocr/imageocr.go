// Package imageocr extracts positioned words from scanned documents
// with Tesseract. PDF input is rendered page by page through go-fitz at
// the configured DPI; plain image files are processed as a single page.
// Native coordinate unit: pixels at the configured DPI, top-down.
package imageocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"

	"github.com/aptakhin/xtra/internal/cache"
	"github.com/aptakhin/xtra/internal/extractor"
	"github.com/aptakhin/xtra/internal/model"
)

// Config tunes the backend.
type Config struct {
	// Languages in tesseract notation. Empty means English.
	Languages []string

	// DPI used both for PDF rendering and for tagging pixel output.
	DPI float64

	// Preprocess runs the scan-enhancement pipeline (grayscale,
	// contrast, sharpen) before recognition.
	Preprocess bool

	// Cache, when non-nil, stores recognized pages keyed by path and
	// configuration. OCR dominates extraction cost, so repeated runs
	// over the same document hit the cache instead of Tesseract.
	Cache *cache.Cache
}

// Extractor runs OCR over one document. The underlying render handle is
// not safe for concurrent use, so page extraction on one instance is
// serialized; Fork provides private instances for parallel workers.
type Extractor struct {
	path string
	cfg  Config

	mu        sync.Mutex
	doc       *fitz.Document // nil for plain image input
	pageCount int
}

// Open prepares path for OCR. PDF documents are opened for rendering;
// any other extension is treated as a one-page image.
func Open(path string, cfg Config) (*Extractor, error) {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}

	e := &Extractor{path: path, cfg: cfg, pageCount: 1}

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		doc, err := fitz.New(path)
		if err != nil {
			return nil, fmt.Errorf("open pdf for rendering: %w", err)
		}
		if doc.NumPage() == 0 {
			doc.Close()
			return nil, fmt.Errorf("pdf has no pages")
		}
		e.doc = doc
		e.pageCount = doc.NumPage()
		return e, nil
	}

	// Decode the image header now so an unreadable file fails at open
	// time like every other backend.
	if _, err := imaging.Open(path); err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	return e, nil
}

func (e *Extractor) Path() string   { return e.path }
func (e *Extractor) PageCount() int { return e.pageCount }

// ExtractPage renders the zero-based page (for PDFs) and runs word
// level recognition over it.
func (e *Extractor) ExtractPage(page int) model.ExtractionResult {
	if page < 0 || page >= e.pageCount {
		return model.FailedResult(page, fmt.Errorf("page %d out of range [0, %d)", page, e.pageCount))
	}

	key := e.cacheKey(page)
	if e.cfg.Cache != nil {
		if cached, ok := e.cfg.Cache.Get(key); ok {
			return model.ExtractionResult{Page: cached, Success: true}
		}
	}

	img, err := e.renderPage(page)
	if err != nil {
		return model.FailedResult(page, err)
	}
	if e.cfg.Preprocess {
		img = enhanceForOCR(img)
	}

	blocks, err := e.recognize(img)
	if err != nil {
		return model.FailedResult(page, err)
	}

	bounds := img.Bounds()
	result := model.Page{
		Page:   page,
		Width:  float64(bounds.Dx()),
		Height: float64(bounds.Dy()),
		Texts:  blocks,
		CoordinateInfo: &model.CoordinateInfo{
			Unit: model.UnitPixels,
			DPI:  e.cfg.DPI,
		},
	}
	if e.cfg.Cache != nil {
		e.cfg.Cache.Put(key, result)
	}
	return model.ExtractionResult{Page: result, Success: true}
}

func (e *Extractor) cacheKey(page int) cache.Key {
	return cache.Key{
		Path:      e.path,
		Extractor: model.ExtractorTesseract,
		Page:      page,
		DPI:       e.cfg.DPI,
		Languages: strings.Join(e.cfg.Languages, "+"),
	}
}

func (e *Extractor) renderPage(page int) (image.Image, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.doc == nil {
		img, err := imaging.Open(e.path)
		if err != nil {
			return nil, fmt.Errorf("open image: %w", err)
		}
		return img, nil
	}

	img, err := e.doc.ImageDPI(page, e.cfg.DPI)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return img, nil
}

// recognize runs Tesseract over the image and converts word boxes into
// text blocks. Confidence is rescaled from Tesseract's 0-100 range to
// the 0-1 contract.
func (e *Extractor) recognize(img image.Image) ([]model.TextBlock, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.cfg.Languages...); err != nil {
		return nil, fmt.Errorf("set ocr languages: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set ocr image: %w", err)
	}
	if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(int(e.cfg.DPI))); err != nil {
		return nil, fmt.Errorf("set ocr dpi: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize words: %w", err)
	}

	blocks := make([]model.TextBlock, 0, len(boxes))
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		conf := b.Confidence / 100.0
		blocks = append(blocks, model.TextBlock{
			Text: b.Word,
			BBox: model.BBox{
				X0: float64(b.Box.Min.X),
				Y0: float64(b.Box.Min.Y),
				X1: float64(b.Box.Max.X),
				Y1: float64(b.Box.Max.Y),
			},
			Confidence: &conf,
		})
	}
	return blocks, nil
}

// enhanceForOCR applies the scan-cleanup recipe that measurably helps
// Tesseract on photographed or low-contrast input.
func enhanceForOCR(img image.Image) image.Image {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 30)
	out = imaging.Sharpen(out, 1.5)
	out = imaging.AdjustBrightness(out, 10)
	return imaging.AdjustGamma(out, 1.2)
}

func (e *Extractor) Metadata() model.DocumentMetadata {
	md := model.DocumentMetadata{
		ExtractorType: model.ExtractorTesseract,
		Extra: map[string]string{
			"dpi":       fmt.Sprint(int(e.cfg.DPI)),
			"languages": strings.Join(e.cfg.Languages, "+"),
		},
	}
	if e.doc != nil {
		md.Extra["source"] = "pdf"
	} else {
		md.Extra["source"] = "image"
	}
	return md
}

// Fork opens a private render handle so parallel workers never share
// the document.
func (e *Extractor) Fork() (extractor.Extractor, error) {
	return Open(e.path, e.cfg)
}

func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc != nil {
		err := e.doc.Close()
		e.doc = nil
		return err
	}
	return nil
}
