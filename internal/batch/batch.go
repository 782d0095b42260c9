// Package batch crawls several seeds concurrently, one independent crawl
// session per seed.
package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/crawlpool/internal/crawler"
)

// DefaultConcurrency is the number of seeds crawled at the same time.
const DefaultConcurrency = 2

// CrawlFunc runs one crawl session for seed. Implementations must build a
// fresh coordinator on every call so that no state leaks between seeds.
type CrawlFunc func(ctx context.Context, seed string) (*crawler.Summary, error)

// Result is the outcome of one seed of a batch.
type Result struct {
	// Index is the position of the seed in the input slice.
	Index int

	// Seed is the seed as given.
	Seed string

	// Summary is nil when the crawl could not start.
	Summary *crawler.Summary

	// Err is the error that prevented the crawl from starting.
	Err error
}

// Processor crawls a list of seeds with bounded concurrency.
type Processor struct {
	crawl       CrawlFunc
	concurrency int
	logger      *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger for batch-level messages.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithConcurrency sets how many seeds are crawled at once.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewProcessor creates a Processor that runs crawl for every seed.
func NewProcessor(crawl CrawlFunc, opts ...Option) *Processor {
	p := &Processor{
		crawl:       crawl,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// ProcessBatch crawls every seed and returns the results in seed order.
// A seed that fails to start does not stop the others. The returned error
// is ctx.Err() when the batch was cancelled before every seed started.
func (p *Processor) ProcessBatch(ctx context.Context, seeds []string) ([]Result, error) {
	results := make([]Result, len(seeds))
	err := p.ProcessBatchWithCallback(ctx, seeds, func(r Result) {
		// Each index is written by exactly one goroutine.
		results[r.Index] = r
	})
	return results, err
}

// ProcessBatchWithCallback crawls every seed and calls callback as each
// one completes. callback runs on the crawling goroutine and must be safe
// for concurrent use.
func (p *Processor) ProcessBatchWithCallback(ctx context.Context, seeds []string, callback func(Result)) error {
	p.logger.Info("starting batch",
		"seeds", len(seeds),
		"concurrency", p.concurrency,
	)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			result := Result{Index: i, Seed: seed}
			if err := ctx.Err(); err != nil {
				result.Err = err
				callback(result)
				return err
			}

			p.logger.Info("crawling seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			summary, err := p.crawl(ctx, seed)
			result.Summary = summary
			result.Err = err
			if err != nil {
				p.logger.Warn("crawl failed to start",
					"seed", seed,
					"error", err,
				)
			}

			callback(result)
			return nil
		})
	}

	err := g.Wait()
	p.logger.Info("batch complete",
		"seeds", len(seeds),
		"elapsed", time.Since(start),
	)
	return err
}
