package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtractorType(t *testing.T) {
	tests := []struct {
		input   string
		want    ExtractorType
		wantErr bool
	}{
		{"pdf", ExtractorPDF, false},
		{"PDF", ExtractorPDF, false},
		{"tesseract", ExtractorTesseract, false},
		{"azure-di", ExtractorAzureDI, false},
		{"Google-DocAI", ExtractorGoogleDocAI, false},
		{"", "", true},
		{"carrier-pigeon", "", true},
	}

	for _, tt := range tests {
		got, err := ParseExtractorType(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseCoordinateUnit(t *testing.T) {
	tests := []struct {
		input   string
		want    CoordinateUnit
		wantErr bool
	}{
		{"points", UnitPoints, false},
		{"Pixels", UnitPixels, false},
		{"inches", UnitInches, false},
		{"NORMALIZED", UnitNormalized, false},
		{"furlongs", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseCoordinateUnit(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestBBoxDimensions(t *testing.T) {
	b := BBox{X0: 10, Y0: 20, X1: 16, Y1: 32}
	assert.Equal(t, 6.0, b.Width())
	assert.Equal(t, 12.0, b.Height())

	var zero BBox
	assert.Zero(t, zero.Width())
	assert.Zero(t, zero.Height())
}

func TestEmptyPage(t *testing.T) {
	p := EmptyPage(3)
	assert.Equal(t, 3, p.Page)
	assert.NotNil(t, p.Texts)
	assert.Empty(t, p.Texts)
	assert.Zero(t, p.Width)
	assert.Zero(t, p.Height)
}

func TestFailedResult(t *testing.T) {
	res := FailedResult(5, errors.New("stream truncated"))
	assert.False(t, res.Success)
	assert.Equal(t, 5, res.Page.Page)
	assert.Equal(t, "stream truncated", res.Error)

	res = FailedResult(0, nil)
	assert.False(t, res.Success)
	assert.Empty(t, res.Error)
}
