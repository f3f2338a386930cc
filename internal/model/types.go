// Package model defines the normalized schema shared by all extraction
// backends: pages, positioned text blocks, coordinate units and document
// metadata. All values are constructed once per extraction call; unit
// conversion produces new values instead of mutating in place.
package model

import (
	"fmt"
	"strings"
)

// ExtractorType identifies a concrete extraction backend.
type ExtractorType string

const (
	ExtractorPDF         ExtractorType = "pdf"
	ExtractorTesseract   ExtractorType = "tesseract"
	ExtractorAzureDI     ExtractorType = "azure-di"
	ExtractorGoogleDocAI ExtractorType = "google-docai"
)

// ParseExtractorType converts a string into a known ExtractorType.
func ParseExtractorType(s string) (ExtractorType, error) {
	switch ExtractorType(strings.ToLower(s)) {
	case ExtractorPDF:
		return ExtractorPDF, nil
	case ExtractorTesseract:
		return ExtractorTesseract, nil
	case ExtractorAzureDI:
		return ExtractorAzureDI, nil
	case ExtractorGoogleDocAI:
		return ExtractorGoogleDocAI, nil
	default:
		return "", fmt.Errorf("unknown extractor type: %q", s)
	}
}

// CoordinateUnit is the unit a page and its boxes are expressed in.
// Every box is meaningful only together with its unit; mixing units
// without conversion is a correctness bug, not a supported state.
type CoordinateUnit string

const (
	// UnitPixels is image pixels at an associated DPI.
	UnitPixels CoordinateUnit = "pixels"
	// UnitPoints is 1/72 inch, the PDF-native resolution-independent unit.
	UnitPoints CoordinateUnit = "points"
	// UnitInches is imperial inches.
	UnitInches CoordinateUnit = "inches"
	// UnitNormalized is the 0-1 range relative to page dimensions.
	UnitNormalized CoordinateUnit = "normalized"
)

// ParseCoordinateUnit converts a string into a known CoordinateUnit.
func ParseCoordinateUnit(s string) (CoordinateUnit, error) {
	switch CoordinateUnit(strings.ToLower(s)) {
	case UnitPixels:
		return UnitPixels, nil
	case UnitPoints:
		return UnitPoints, nil
	case UnitInches:
		return UnitInches, nil
	case UnitNormalized:
		return UnitNormalized, nil
	default:
		return "", fmt.Errorf("unknown coordinate unit: %q", s)
	}
}

// BBox is an axis-aligned bounding box with x0 <= x1 and y0 <= y1.
// A zero-area box is a valid fallback result for degenerate detector
// output, so callers must not assume non-degenerate boxes.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 { return b.X1 - b.X0 }

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// FontInfo describes the font of a text block when the backend exposes it.
type FontInfo struct {
	Name   string  `json:"name,omitempty"`
	Size   float64 `json:"size,omitempty"`
	Flags  int     `json:"flags,omitempty"`
	Weight int     `json:"weight,omitempty"`
}

// TextBlock is one positioned piece of extracted text. Line-merged
// blocks carry trimmed, non-blank text; per-character blocks keep the
// raw glyph, whitespace included.
type TextBlock struct {
	Text string `json:"text"`
	BBox BBox   `json:"bbox"`
	// Rotation is the tilt of the detection's top edge in signed degrees,
	// 0 meaning horizontal left-to-right.
	Rotation float64 `json:"rotation"`
	// Confidence is 0.0-1.0 when the backend reports one; nil otherwise.
	Confidence *float64  `json:"confidence,omitempty"`
	FontInfo   *FontInfo `json:"font_info,omitempty"`
}

// CoordinateInfo tags a page with the unit its values are expressed in.
// DPI is only meaningful for pixel-based coordinates.
type CoordinateInfo struct {
	Unit CoordinateUnit `json:"unit"`
	DPI  float64        `json:"dpi,omitempty"`
}

// Page holds one page's dimensions and ordered text blocks, all in the
// unit recorded by CoordinateInfo.
type Page struct {
	Page           int             `json:"page"`
	Width          float64         `json:"width"`
	Height         float64         `json:"height"`
	Texts          []TextBlock     `json:"texts"`
	CoordinateInfo *CoordinateInfo `json:"coordinate_info,omitempty"`
}

// EmptyPage returns a zeroed page at the given index, used as the page
// value of failed extraction results.
func EmptyPage(index int) Page {
	return Page{Page: index, Texts: []TextBlock{}}
}

// ExtractionResult is one page's outcome and the unit of fault
// isolation: one result per requested page index, always.
type ExtractionResult struct {
	Page    Page   `json:"page"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// FailedResult builds a failed result with an empty page at the index.
func FailedResult(index int, err error) ExtractionResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ExtractionResult{Page: EmptyPage(index), Success: false, Error: msg}
}

// PDFObjectInfo describes a low-level object encountered in a PDF body.
type PDFObjectInfo struct {
	ObjectID   int    `json:"obj_id"`
	ObjectType string `json:"obj_type"`
	Generation int    `json:"generation"`
}

// DocumentMetadata carries document-level properties reported by a backend.
type DocumentMetadata struct {
	ExtractorType    ExtractorType     `json:"extractor_type"`
	Creator          string            `json:"creator,omitempty"`
	Producer         string            `json:"producer,omitempty"`
	Title            string            `json:"title,omitempty"`
	Author           string            `json:"author,omitempty"`
	CreationDate     string            `json:"creation_date,omitempty"`
	ModificationDate string            `json:"modification_date,omitempty"`
	Fonts            []FontInfo        `json:"fonts,omitempty"`
	PDFObjects       []PDFObjectInfo   `json:"pdf_objects,omitempty"`
	Extra            map[string]string `json:"extra,omitempty"`
}

// Document is the assembled output of an extraction: the successful
// pages in request order plus document-level metadata.
type Document struct {
	Path     string            `json:"path"`
	Pages    []Page            `json:"pages"`
	Metadata *DocumentMetadata `json:"metadata,omitempty"`
}
