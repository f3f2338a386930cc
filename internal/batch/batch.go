// Package batch splits a document's pages into fixed-size batches, runs
// a caller-supplied processing function over them in parallel and
// aggregates the outcome. The processing function is typically an LLM
// or cloud call; this package owns only the orchestration around it.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Provider names recognized by ParseModelString.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Chunk splits pages into consecutive groups of at most perBatch
// entries. An empty input yields no batches; perBatch below one is
// treated as one page per batch.
func Chunk(pages []int, perBatch int) [][]int {
	if len(pages) == 0 {
		return nil
	}
	if perBatch < 1 {
		perBatch = 1
	}

	batches := make([][]int, 0, (len(pages)+perBatch-1)/perBatch)
	for start := 0; start < len(pages); start += perBatch {
		end := start + perBatch
		if end > len(pages) {
			end = len(pages)
		}
		batches = append(batches, pages[start:end])
	}
	return batches
}

// Result is the outcome of processing one batch of pages.
type Result struct {
	ID      uuid.UUID       `json:"id"`
	Pages   []int           `json:"pages"`
	Model   string          `json:"model,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Usage   map[string]int  `json:"usage,omitempty"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
}

// Func processes one batch of pages. Returned data is opaque to the
// orchestrator; usage counters are summed per key across batches.
type Func func(ctx context.Context, pages []int) (data json.RawMessage, usage map[string]int, err error)

// ExtractionOutcome aggregates per-batch results, in batch order.
type ExtractionOutcome struct {
	Batches  []Result `json:"batches"`
	Model    string   `json:"model,omitempty"`
	Provider string   `json:"provider,omitempty"`
}

// SuccessfulBatches returns the batches that completed, in order.
func (o *ExtractionOutcome) SuccessfulBatches() []Result {
	return o.partition(true)
}

// FailedBatches returns the batches that failed, in order.
func (o *ExtractionOutcome) FailedBatches() []Result {
	return o.partition(false)
}

func (o *ExtractionOutcome) partition(success bool) []Result {
	var out []Result
	for _, b := range o.Batches {
		if b.Success == success {
			out = append(out, b)
		}
	}
	return out
}

// AllData concatenates the payloads of successful batches, in batch
// order.
func (o *ExtractionOutcome) AllData() []json.RawMessage {
	var out []json.RawMessage
	for _, b := range o.Batches {
		if b.Success && len(b.Data) > 0 {
			out = append(out, b.Data)
		}
	}
	return out
}

// TotalUsage sums usage counters across all batches, per key. Failed
// batches count too: a call that errored after consuming tokens still
// consumed them.
func (o *ExtractionOutcome) TotalUsage() map[string]int {
	total := map[string]int{}
	for _, b := range o.Batches {
		for k, v := range b.Usage {
			total[k] += v
		}
	}
	return total
}

// RunParallel applies fn to every batch with at most maxWorkers
// in flight. Results come back in batch order regardless of completion
// order, and a failing batch never affects its neighbours. Batches not
// yet started when ctx is done are marked failed with the context
// error.
func RunParallel(ctx context.Context, batches [][]int, fn Func, maxWorkers int) *ExtractionOutcome {
	results := make([]Result, len(batches))
	if len(batches) == 0 {
		return &ExtractionOutcome{Batches: results}
	}

	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxWorkers > len(batches) {
		maxWorkers = len(batches)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = runOne(ctx, batches[i], fn)
			}
		}()
	}
	for i := range batches {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return &ExtractionOutcome{Batches: results}
}

func runOne(ctx context.Context, pages []int, fn Func) (res Result) {
	res = Result{ID: uuid.New(), Pages: pages}
	defer func() {
		if rec := recover(); rec != nil {
			res.Success = false
			res.Error = fmt.Sprintf("batch processing panicked: %v", rec)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}

	data, usage, err := fn(ctx, pages)
	res.Data = data
	res.Usage = usage
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	return res
}

// ParseModelString resolves "provider/model" or a bare model name into
// a provider and model pair. Bare names are inferred from well-known
// prefixes; anything unrecognized is an error rather than a guess.
func ParseModelString(s string) (provider, model string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", fmt.Errorf("empty model string")
	}

	if before, after, found := strings.Cut(s, "/"); found {
		if before == "" || after == "" {
			return "", "", fmt.Errorf("malformed model string: %q", s)
		}
		return before, after, nil
	}

	switch {
	case strings.HasPrefix(s, "gpt-"):
		return ProviderOpenAI, s, nil
	case strings.HasPrefix(s, "claude-"):
		return ProviderAnthropic, s, nil
	case strings.HasPrefix(s, "gemini-"):
		return ProviderGoogle, s, nil
	default:
		return "", "", fmt.Errorf("cannot infer provider for model %q", s)
	}
}
