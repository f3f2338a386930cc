// Package factory constructs extraction backends by type and wraps
// them so extracted pages come back in a single configured output unit.
package factory

import (
	"fmt"
	"os"

	"github.com/aptakhin/xtra/internal/cache"
	"github.com/aptakhin/xtra/internal/coordinates"
	"github.com/aptakhin/xtra/internal/extractor"
	"github.com/aptakhin/xtra/internal/extractor/azuredi"
	"github.com/aptakhin/xtra/internal/extractor/gdocai"
	"github.com/aptakhin/xtra/internal/extractor/imageocr"
	"github.com/aptakhin/xtra/internal/extractor/pdfnative"
	"github.com/aptakhin/xtra/internal/merge"
	"github.com/aptakhin/xtra/internal/model"
)

// Environment variables consulted when Options.Credentials is not set.
const (
	EnvAzureEndpoint       = "XTRA_AZURE_DI_ENDPOINT"
	EnvAzureKey            = "XTRA_AZURE_DI_KEY"
	EnvGoogleProcessorName = "XTRA_GOOGLE_DOCAI_PROCESSOR_NAME"
)

// Credentials holds cloud backend identity. Zero fields fall back to
// the environment.
type Credentials struct {
	AzureEndpoint       string
	AzureKey            string
	GoogleProcessorName string
}

// Options configures backend construction.
type Options struct {
	// Languages for OCR, in tesseract notation ("eng", "deu").
	// Defaults to English.
	Languages []string

	// DPI for rendering PDF pages to images and for pixel-unit output.
	// Defaults to 200.
	DPI float64

	// OutputUnit for extracted coordinates. Defaults to points.
	OutputUnit model.CoordinateUnit

	// Credentials for cloud backends; unset fields fall back to env.
	Credentials Credentials

	// LineGapThreshold overrides the line-merge vertical gap for the
	// native PDF backend. Zero keeps the default.
	LineGapThreshold float64

	// PerCharacter emits one block per glyph instead of merged lines.
	PerCharacter bool

	// Cache, when non-nil, is consulted for previously extracted pages.
	// The cache is caller-owned and may be shared across extractors.
	Cache *cache.Cache
}

func (o Options) withDefaults() Options {
	if len(o.Languages) == 0 {
		o.Languages = []string{"eng"}
	}
	if o.DPI <= 0 {
		o.DPI = 200
	}
	if o.OutputUnit == "" {
		o.OutputUnit = model.UnitPoints
	}
	if o.Credentials.AzureEndpoint == "" {
		o.Credentials.AzureEndpoint = os.Getenv(EnvAzureEndpoint)
	}
	if o.Credentials.AzureKey == "" {
		o.Credentials.AzureKey = os.Getenv(EnvAzureKey)
	}
	if o.Credentials.GoogleProcessorName == "" {
		o.Credentials.GoogleProcessorName = os.Getenv(EnvGoogleProcessorName)
	}
	return o
}

func (o Options) merger() merge.Merger {
	if o.PerCharacter {
		return merge.CharacterMerger{}
	}
	return merge.LineMerger{GapThreshold: o.LineGapThreshold}
}

// New opens path with the requested backend type and wraps it so that
// extracted pages come back in Options.OutputUnit. Unknown types return
// extractor.ErrUnsupportedExtractor; backends that cannot open the
// document fail here rather than on first page access.
func New(path string, typ model.ExtractorType, opts Options) (extractor.Extractor, error) {
	opts = opts.withDefaults()

	var (
		ext extractor.Extractor
		err error
	)
	switch typ {
	case model.ExtractorPDF:
		ext, err = pdfnative.Open(path, pdfnative.Config{
			Merger: opts.merger(),
		})
	case model.ExtractorTesseract:
		ext, err = imageocr.Open(path, imageocr.Config{
			Languages:  opts.Languages,
			DPI:        opts.DPI,
			Preprocess: true,
			Cache:      opts.Cache,
		})
	case model.ExtractorAzureDI:
		if opts.Credentials.AzureEndpoint == "" || opts.Credentials.AzureKey == "" {
			return nil, fmt.Errorf("%w: azure document intelligence needs %s and %s",
				extractor.ErrMissingCredentials, EnvAzureEndpoint, EnvAzureKey)
		}
		ext, err = azuredi.Open(path, azuredi.Config{
			Endpoint: opts.Credentials.AzureEndpoint,
			Key:      opts.Credentials.AzureKey,
		})
	case model.ExtractorGoogleDocAI:
		if opts.Credentials.GoogleProcessorName == "" {
			return nil, fmt.Errorf("%w: google document ai needs %s",
				extractor.ErrMissingCredentials, EnvGoogleProcessorName)
		}
		ext, err = gdocai.Open(path, gdocai.Config{
			ProcessorName: opts.Credentials.GoogleProcessorName,
		})
	default:
		return nil, fmt.Errorf("%w: %q", extractor.ErrUnsupportedExtractor, typ)
	}
	if err != nil {
		return nil, &extractor.ExtractorError{Extractor: typ, Op: "open", Err: err}
	}

	return &unitConverted{Extractor: ext, unit: opts.OutputUnit, dpi: opts.DPI}, nil
}

// unitConverted decorates a backend so every successful page comes back
// in a fixed output unit. Backends emit their native unit; the tag on
// each page carries enough information to build the converter.
type unitConverted struct {
	extractor.Extractor
	unit model.CoordinateUnit
	dpi  float64
}

func (u *unitConverted) ExtractPage(page int) model.ExtractionResult {
	res := u.Extractor.ExtractPage(page)
	if !res.Success {
		return res
	}

	srcUnit := model.UnitPoints
	srcDPI := 0.0
	if res.Page.CoordinateInfo != nil {
		srcUnit = res.Page.CoordinateInfo.Unit
		srcDPI = res.Page.CoordinateInfo.DPI
	}
	// Pixel pages from adapters that cannot know their resolution fall
	// back to the configured DPI instead of failing the conversion.
	if srcUnit == model.UnitPixels && srcDPI == 0 {
		srcDPI = u.dpi
	}

	conv, err := coordinates.NewConverter(srcUnit, res.Page.Width, res.Page.Height, srcDPI)
	if err != nil {
		return model.FailedResult(page, fmt.Errorf("convert page coordinates: %w", err))
	}
	converted, err := conv.ConvertPage(res.Page, u.unit, u.dpi)
	if err != nil {
		return model.FailedResult(page, fmt.Errorf("convert page coordinates: %w", err))
	}
	res.Page = converted
	return res
}

// Fork keeps process-executor isolation working through the decorator.
func (u *unitConverted) Fork() (extractor.Extractor, error) {
	f, ok := u.Extractor.(extractor.Forker)
	if !ok {
		return u, nil
	}
	forked, err := f.Fork()
	if err != nil {
		return nil, err
	}
	return &unitConverted{Extractor: forked, unit: u.unit, dpi: u.dpi}, nil
}
