package extractor

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aptakhin/xtra/internal/model"
)

// ExecutorStrategy selects how the Runner distributes page work.
type ExecutorStrategy string

const (
	// ExecutorThread runs workers against a shared extractor instance.
	ExecutorThread ExecutorStrategy = "thread"

	// ExecutorProcess gives each worker a private extractor instance
	// via Forker, for backends whose native handles must not be shared.
	// Extractors without Fork support fall back to the shared instance.
	ExecutorProcess ExecutorStrategy = "process"
)

// ParseExecutorStrategy validates a strategy name from configuration.
func ParseExecutorStrategy(s string) (ExecutorStrategy, error) {
	switch ExecutorStrategy(s) {
	case ExecutorThread, ExecutorProcess:
		return ExecutorStrategy(s), nil
	default:
		return "", fmt.Errorf("unknown executor strategy: %q", s)
	}
}

// Runner extracts pages concurrently while keeping results in request
// order: the i-th result always corresponds to the i-th requested page,
// whatever order the workers finish in.
type Runner struct {
	maxWorkers int
	executor   ExecutorStrategy
	log        zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxWorkers caps the number of concurrent page extractions.
// Values of one or below force sequential extraction.
func WithMaxWorkers(n int) Option {
	return func(r *Runner) { r.maxWorkers = n }
}

// WithExecutor selects the worker strategy.
func WithExecutor(s ExecutorStrategy) Option {
	return func(r *Runner) { r.executor = s }
}

// WithLogger routes per-page failure logging to the given logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// NewRunner builds a Runner defaulting to one thread worker per CPU.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		maxWorkers: runtime.NumCPU(),
		executor:   ExecutorThread,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ExtractPages extracts the given zero-based pages and returns one
// result per requested page, in request order. A nil pages slice means
// all pages of the document. Failures, including panics inside a
// backend, are isolated to their page's result.
func (r *Runner) ExtractPages(ext Extractor, pages []int) []model.ExtractionResult {
	results, _ := r.run(context.Background(), ext, pages)
	return results
}

// ExtractPagesContext is ExtractPages with cancellation: pages not yet
// started when ctx is done are marked failed with the context error,
// and that error is also returned.
func (r *Runner) ExtractPagesContext(ctx context.Context, ext Extractor, pages []int) ([]model.ExtractionResult, error) {
	return r.run(ctx, ext, pages)
}

// Extract runs ExtractPages and assembles a document from the pages
// that succeeded, in order. Failed pages are logged and dropped;
// callers that need per-page failure detail use ExtractPages.
func (r *Runner) Extract(ext Extractor, pages []int) model.Document {
	doc, _ := r.extractDoc(context.Background(), ext, pages)
	return doc
}

// ExtractContext is Extract with cancellation.
func (r *Runner) ExtractContext(ctx context.Context, ext Extractor, pages []int) (model.Document, error) {
	return r.extractDoc(ctx, ext, pages)
}

func (r *Runner) extractDoc(ctx context.Context, ext Extractor, pages []int) (model.Document, error) {
	results, err := r.run(ctx, ext, pages)

	doc := model.Document{Path: ext.Path()}
	for _, res := range results {
		if res.Success {
			doc.Pages = append(doc.Pages, res.Page)
		}
	}
	md := ext.Metadata()
	doc.Metadata = &md
	return doc, err
}

func (r *Runner) run(ctx context.Context, ext Extractor, pages []int) ([]model.ExtractionResult, error) {
	if pages == nil {
		n := ext.PageCount()
		pages = make([]int, n)
		for i := range pages {
			pages[i] = i
		}
	}

	// Pre-sized so each worker writes its own slot; request order falls
	// out of the indexing rather than of completion order.
	results := make([]model.ExtractionResult, len(pages))

	workers := r.maxWorkers
	if workers > len(pages) {
		workers = len(pages)
	}

	if workers <= 1 {
		for i, p := range pages {
			if err := ctx.Err(); err != nil {
				results[i] = model.FailedResult(p, err)
				continue
			}
			results[i] = r.extractOne(ext, p)
		}
		return results, ctx.Err()
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			worker := ext
			var forkErr error
			if r.executor == ExecutorProcess {
				if f, ok := ext.(Forker); ok {
					var forked Extractor
					if forked, forkErr = f.Fork(); forkErr == nil {
						worker = forked
						// Fork may hand back the shared instance when
						// the backend has no per-worker state; only a
						// genuinely private copy gets closed here.
						if forked != ext {
							defer forked.Close()
						}
					}
				}
			}

			for i := range indexes {
				p := pages[i]
				switch {
				case forkErr != nil:
					results[i] = model.FailedResult(p, fmt.Errorf("fork worker backend: %w", forkErr))
				case ctx.Err() != nil:
					results[i] = model.FailedResult(p, ctx.Err())
				default:
					results[i] = r.extractOne(worker, p)
				}
			}
		}()
	}

	for i := range pages {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results, ctx.Err()
}

func (r *Runner) extractOne(ext Extractor, page int) (res model.ExtractionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = model.FailedResult(page, fmt.Errorf("page extraction panicked: %v", rec))
		}
	}()

	res = ext.ExtractPage(page)
	if !res.Success {
		r.log.Warn().
			Str("path", ext.Path()).
			Int("page", page).
			Str("error", res.Error).
			Msg("page extraction failed")
	}
	return res
}
