// Package coordinates converts pages and their text blocks between the
// four supported coordinate units. All conversions route through points
// (1/72 inch) as the common reference so every unit pair composes the
// same way.
package coordinates

import (
	"errors"
	"fmt"

	"github.com/aptakhin/xtra/internal/model"
)

// PointsPerInch is the PDF point density: 72 points to the inch.
const PointsPerInch = 72.0

// ErrDPIRequired is returned when pixels appears as a source or target
// unit without an accompanying positive DPI. This is a caller
// configuration error and is surfaced immediately rather than silently
// defaulted.
var ErrDPIRequired = errors.New("dpi is required for pixel coordinate conversion")

// Converter maps a page and all its text-block boxes from a source unit
// into a requested target unit. It is constructed per raw page because
// normalized-unit conversion is anchored to the page dimensions in
// points space.
type Converter struct {
	sourceUnit model.CoordinateUnit
	dpi        float64

	// Page dimensions in points space, the reference for normalized
	// values in either direction.
	widthPts  float64
	heightPts float64
}

// NewConverter builds a converter for a page whose dimensions are
// expressed in sourceUnit. dpi must be positive when sourceUnit is
// pixels; pass 0 for resolution-independent units. When sourceUnit is
// normalized, pageWidth and pageHeight are the reference page size in
// points, since a normalized page carries no absolute size of its own.
func NewConverter(sourceUnit model.CoordinateUnit, pageWidth, pageHeight, dpi float64) (*Converter, error) {
	if sourceUnit == model.UnitPixels && dpi <= 0 {
		return nil, ErrDPIRequired
	}

	c := &Converter{sourceUnit: sourceUnit, dpi: dpi}
	switch sourceUnit {
	case model.UnitPoints, model.UnitNormalized:
		c.widthPts = pageWidth
		c.heightPts = pageHeight
	case model.UnitPixels:
		c.widthPts = pageWidth * PointsPerInch / dpi
		c.heightPts = pageHeight * PointsPerInch / dpi
	case model.UnitInches:
		c.widthPts = pageWidth * PointsPerInch
		c.heightPts = pageHeight * PointsPerInch
	default:
		return nil, fmt.Errorf("unsupported source unit: %q", sourceUnit)
	}
	return c, nil
}

// ConvertPage returns a new page with its dimensions and every text
// block expressed in targetUnit. The input page is never mutated, so
// the same raw result can be converted into multiple output units.
// targetDPI must be positive when targetUnit is pixels.
//
// Page dimensions and block boxes always convert together; converting
// only a subset would break normalized-unit consumers downstream.
func (c *Converter) ConvertPage(page model.Page, targetUnit model.CoordinateUnit, targetDPI float64) (model.Page, error) {
	if c.sourceUnit == targetUnit {
		// Identity: avoids accumulating floating-point error across
		// repeated no-op conversions.
		return page, nil
	}

	switch targetUnit {
	case model.UnitPoints, model.UnitInches, model.UnitNormalized:
	case model.UnitPixels:
		if targetDPI <= 0 {
			return model.Page{}, ErrDPIRequired
		}
	default:
		return model.Page{}, fmt.Errorf("unsupported target unit: %q", targetUnit)
	}

	texts := make([]model.TextBlock, len(page.Texts))
	for i, block := range page.Texts {
		converted := block
		converted.BBox = model.BBox{
			X0: c.convert(block.BBox.X0, targetUnit, targetDPI, axisX),
			Y0: c.convert(block.BBox.Y0, targetUnit, targetDPI, axisY),
			X1: c.convert(block.BBox.X1, targetUnit, targetDPI, axisX),
			Y1: c.convert(block.BBox.Y1, targetUnit, targetDPI, axisY),
		}
		texts[i] = converted
	}

	info := &model.CoordinateInfo{Unit: targetUnit}
	if targetUnit == model.UnitPixels {
		info.DPI = targetDPI
	}

	return model.Page{
		Page:           page.Page,
		Width:          c.convert(page.Width, targetUnit, targetDPI, axisX),
		Height:         c.convert(page.Height, targetUnit, targetDPI, axisY),
		Texts:          texts,
		CoordinateInfo: info,
	}, nil
}

// axis selects which page dimension anchors a normalized value.
type axis int

const (
	axisX axis = iota
	axisY
)

func (c *Converter) convert(v float64, target model.CoordinateUnit, targetDPI float64, ax axis) float64 {
	return c.fromPoints(c.toPoints(v, ax), target, targetDPI, ax)
}

func (c *Converter) toPoints(v float64, ax axis) float64 {
	switch c.sourceUnit {
	case model.UnitPixels:
		return v * PointsPerInch / c.dpi
	case model.UnitInches:
		return v * PointsPerInch
	case model.UnitNormalized:
		if ax == axisX {
			return v * c.widthPts
		}
		return v * c.heightPts
	default: // points
		return v
	}
}

func (c *Converter) fromPoints(pts float64, target model.CoordinateUnit, targetDPI float64, ax axis) float64 {
	switch target {
	case model.UnitPixels:
		return pts * targetDPI / PointsPerInch
	case model.UnitInches:
		return pts / PointsPerInch
	case model.UnitNormalized:
		dim := c.widthPts
		if ax == axisY {
			dim = c.heightPts
		}
		if dim == 0 {
			return 0
		}
		return pts / dim
	default: // points
		return pts
	}
}
