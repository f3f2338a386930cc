// Package extractor defines the backend interface for positioned-text
// extraction and the Runner that fans page extraction out across
// workers while preserving request order.
package extractor

import (
	"github.com/aptakhin/xtra/internal/model"
)

// Extractor is a document opened by one extraction backend. PageCount
// and Metadata are cheap after construction; ExtractPage does the
// actual work and reports per-page failures in the result rather than
// as an error, so one bad page never aborts a run.
//
// Implementations must be safe for concurrent ExtractPage calls unless
// they also implement Forker, in which case the process executor gives
// every worker its own instance.
type Extractor interface {
	// Path returns the source document path the extractor was opened
	// with.
	Path() string

	// PageCount returns the number of pages in the document.
	PageCount() int

	// ExtractPage extracts positioned text from the zero-based page
	// index. The returned result is marked failed, never panicking,
	// when the page cannot be processed.
	ExtractPage(page int) model.ExtractionResult

	// Metadata returns document-level metadata.
	Metadata() model.DocumentMetadata

	// Close releases backend resources. The extractor is unusable
	// afterwards.
	Close() error
}

// Forker is implemented by extractors that can duplicate themselves
// with private backend resources. The process executor uses it to give
// each worker an isolated instance, mirroring how non-thread-safe
// native handles are normally used one-per-process.
type Forker interface {
	Fork() (Extractor, error)
}
