package crawler

import (
	"slices"
	"sync"
)

// VisitedRegistry is the set of canonical URLs admitted into a crawl session.
// It only grows: there is no removal, so a URL is never crawled twice in one
// session.
type VisitedRegistry struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewVisitedRegistry returns an empty registry.
func NewVisitedRegistry() *VisitedRegistry {
	return &VisitedRegistry{
		urls: make(map[string]struct{}),
	}
}

// TryMark inserts url if it is absent and reports whether this call inserted it.
// The check and the insert happen under one lock, so of several concurrent
// callers with the same url exactly one gets true.
func (r *VisitedRegistry) TryMark(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.urls[url]; ok {
		return false
	}
	r.urls[url] = struct{}{}
	return true
}

// Contains reports whether url has been marked.
func (r *VisitedRegistry) Contains(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.urls[url]
	return ok
}

// Len returns the number of marked URLs.
func (r *VisitedRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.urls)
}

// URLs returns a sorted snapshot of the marked URLs.
func (r *VisitedRegistry) URLs() []string {
	r.mu.Lock()
	urls := make([]string, 0, len(r.urls))
	for u := range r.urls {
		urls = append(urls, u)
	}
	r.mu.Unlock()

	slices.Sort(urls)
	return urls
}
