package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// worker is one loop of the pool. All workers of a session share the
// registry, the frontier and the recorder; nothing else is shared.
type worker struct {
	id         int
	cfg        Config
	fetcher    PageFetcher
	extractor  LinkExtractor
	registry   *VisitedRegistry
	frontier   *FrontierQueue
	filter     Filter
	canon      func(string) (string, error)
	rec        *recorder
	logger     *slog.Logger
	idlePoll   time.Duration
	fetchGrace time.Duration
}

// run pulls work until ctx is done. It always returns nil; failures are
// recorded per item.
func (w *worker) run(ctx context.Context) error {
	w.logger.Debug("worker started", "worker", w.id)
	defer w.logger.Debug("worker stopped", "worker", w.id)

	for {
		item, err := w.frontier.Pop(ctx, w.idlePoll)
		if err != nil {
			if errors.Is(err, ErrPopTimeout) {
				continue
			}
			return nil
		}

		w.handle(ctx, item)
		w.frontier.Done()
	}
}

// handle processes one item. A panic anywhere in the item's processing is
// recorded as a failure of that item and does not stop the loop.
func (w *worker) handle(ctx context.Context, item WorkItem) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("recovered from panic",
				"worker", w.id,
				"url", item.URL,
				"panic", r,
			)
			w.rec.failure(item, &Failure{Reason: ReasonPanic, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	if item.Depth > w.cfg.MaxDepth {
		w.rec.discard()
		return
	}

	outcome := w.fetch(ctx, item)
	if !outcome.OK() {
		failure := outcome.Failure
		if failure == nil {
			failure = &Failure{Reason: ReasonContract, Err: errors.New("fetcher returned neither page nor failure")}
		}
		w.logger.Warn("fetch failed",
			"worker", w.id,
			"url", item.URL,
			"depth", item.Depth,
			"reason", failure.Reason.String(),
			"error", failure.Error(),
		)
		w.rec.failure(item, failure)
		return
	}

	page := outcome.Page
	w.logger.Debug("fetched page",
		"worker", w.id,
		"url", item.URL,
		"depth", item.Depth,
		"status", page.StatusCode,
		"latency", page.Latency,
	)

	if item.Depth >= w.cfg.MaxDepth {
		w.rec.page(item, page, 0, 0)
		return
	}

	links, admitted, err := w.expand(ctx, item, page)
	w.rec.page(item, page, links, admitted)
	if err != nil {
		w.logger.Warn("link extraction failed",
			"worker", w.id,
			"url", item.URL,
			"error", err,
		)
		w.rec.failure(item, &Failure{Reason: ReasonExtract, Err: err})
	}
}

// fetch calls the fetcher in its own goroutine so that a fetcher which
// ignores its timeout, or panics, only fails this item.
func (w *worker) fetch(ctx context.Context, item WorkItem) Outcome {
	fctx, cancel := context.WithTimeout(ctx, w.cfg.FetchTimeout+w.fetchGrace)
	defer cancel()

	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Failed(ReasonPanic, fmt.Errorf("fetcher panic: %v", r))
			}
		}()
		done <- w.fetcher.Fetch(fctx, item.URL, w.cfg.FetchTimeout)
	}()

	select {
	case outcome := <-done:
		return outcome
	case <-fctx.Done():
	}

	select {
	case outcome := <-done:
		return outcome
	default:
	}

	if ctx.Err() != nil {
		return Failed(ReasonCancelled, ctx.Err())
	}
	return Failed(ReasonContract, fmt.Errorf("fetcher did not return within %s", w.cfg.FetchTimeout))
}

// expand admits the page's links into the frontier one level deeper.
// Every admitted URL is marked visited before it is pushed.
func (w *worker) expand(ctx context.Context, item WorkItem, page *Page) (links, admitted int, err error) {
	seq, err := w.extractor.Extract(page)
	if err != nil {
		return 0, 0, err
	}
	if seq == nil {
		return 0, 0, nil
	}

	for link := range seq {
		if ctx.Err() != nil {
			break
		}
		links++

		canonical, err := w.canon(link)
		if err != nil {
			continue
		}
		if !w.filter.Allow(canonical) {
			continue
		}
		if !w.registry.TryMark(canonical) {
			continue
		}

		w.frontier.Push(item.child(canonical))
		admitted++
	}

	return links, admitted, nil
}
