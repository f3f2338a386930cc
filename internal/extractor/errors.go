package extractor

import (
	"errors"
	"fmt"

	"github.com/aptakhin/xtra/internal/model"
)

// ExtractorError wraps a backend failure with the backend type and the
// operation that failed, so callers can log or match on either.
type ExtractorError struct {
	Extractor model.ExtractorType `json:"extractor"`
	Op        string              `json:"operation"`
	Err       error               `json:"error"`
}

func (e *ExtractorError) Error() string {
	return fmt.Sprintf("%s extractor error in %s: %v", e.Extractor, e.Op, e.Err)
}

func (e *ExtractorError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnsupportedExtractor is returned by New for extractor types it
	// does not know how to construct.
	ErrUnsupportedExtractor = errors.New("unsupported extractor type")

	// ErrMissingCredentials is returned when a cloud backend is
	// requested without its credentials, either in Options or in the
	// environment.
	ErrMissingCredentials = errors.New("missing extractor credentials")
)
