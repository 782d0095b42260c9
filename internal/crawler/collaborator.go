package crawler

import (
	"context"
	"iter"
	"time"

	"golang.org/x/sync/semaphore"
)

// PageFetcher performs the network request for one URL.
//
// Implementations must enforce timeout themselves and must report every
// failure mode through Outcome.Failure rather than panicking. Many workers
// call Fetch concurrently; a fetcher that is not safe for concurrent use
// must be wrapped with SerializeFetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) Outcome
}

// LinkExtractor produces the candidate outbound URLs of a fetched page.
//
// The returned sequence must be finite and may be iterated more than once.
// Order does not matter and duplicates are allowed; the VisitedRegistry
// removes them. Many workers call Extract concurrently; an extractor that
// is not safe for concurrent use must be wrapped with SerializeExtractor.
type LinkExtractor interface {
	Extract(page *Page) (iter.Seq[string], error)
}

// FetcherFunc adapts a function to the PageFetcher interface.
type FetcherFunc func(ctx context.Context, url string, timeout time.Duration) Outcome

// Fetch calls f(ctx, url, timeout).
func (f FetcherFunc) Fetch(ctx context.Context, url string, timeout time.Duration) Outcome {
	return f(ctx, url, timeout)
}

// ExtractorFunc adapts a function to the LinkExtractor interface.
type ExtractorFunc func(page *Page) (iter.Seq[string], error)

// Extract calls f(page).
func (f ExtractorFunc) Extract(page *Page) (iter.Seq[string], error) {
	return f(page)
}

// serialFetcher allows one Fetch call at a time.
type serialFetcher struct {
	sem  *semaphore.Weighted
	next PageFetcher
}

// SerializeFetcher wraps f so that at most one Fetch runs at a time.
// A caller waiting for its turn gives up when ctx is done.
func SerializeFetcher(f PageFetcher) PageFetcher {
	return &serialFetcher{sem: semaphore.NewWeighted(1), next: f}
}

// Fetch waits for the single slot and delegates.
func (s *serialFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) Outcome {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Failed(ReasonCancelled, err)
	}
	defer s.sem.Release(1)
	return s.next.Fetch(ctx, url, timeout)
}

// serialExtractor allows one Extract call, including iteration of its
// result, at a time.
type serialExtractor struct {
	sem  *semaphore.Weighted
	next LinkExtractor
}

// SerializeExtractor wraps e so that Extract and the iteration of every
// sequence it returns never overlap with another call.
func SerializeExtractor(e LinkExtractor) LinkExtractor {
	return &serialExtractor{sem: semaphore.NewWeighted(1), next: e}
}

// Extract delegates under the slot and returns a sequence that takes the
// slot again for every iteration.
func (s *serialExtractor) Extract(page *Page) (iter.Seq[string], error) {
	ctx := context.Background()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	seq, err := s.next.Extract(page)
	s.sem.Release(1)
	if err != nil || seq == nil {
		return seq, err
	}

	return func(yield func(string) bool) {
		// Buffer under the slot so the caller's loop body runs unlocked.
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		var links []string
		func() {
			defer s.sem.Release(1)
			for link := range seq {
				links = append(links, link)
			}
		}()
		for _, link := range links {
			if !yield(link) {
				return
			}
		}
	}, nil
}
