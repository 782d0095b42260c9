package crawler

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// Termination tells how a crawl ended.
type Termination string

const (
	// TerminationQuiescent means the frontier drained with every worker idle.
	TerminationQuiescent Termination = "quiescent"

	// TerminationTimedOut means OverallTimeout elapsed first.
	TerminationTimedOut Termination = "timed_out"

	// TerminationCancelled means the caller's context was cancelled.
	TerminationCancelled Termination = "cancelled"
)

// FailedURL records a work item that did not complete.
type FailedURL struct {
	URL        string        `json:"url"`
	Depth      int           `json:"depth"`
	Reason     FailureReason `json:"reason"`
	StatusCode int           `json:"statusCode,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// PageResult records a successfully fetched page.
// Links counts the candidates the extractor produced, Admitted the ones
// that passed the filter and were newly marked visited.
type PageResult struct {
	URL         string        `json:"url"`
	Depth       int           `json:"depth"`
	StatusCode  int           `json:"statusCode"`
	ContentType string        `json:"contentType,omitempty"`
	Links       int           `json:"links"`
	Admitted    int           `json:"admitted"`
	Latency     time.Duration `json:"latency"`
}

// Summary is the result of one crawl session.
// It is returned for every crawl that started, including crawls that timed
// out or were cancelled; everything recorded before the cutoff is kept.
type Summary struct {
	// SessionID uniquely identifies the crawl session.
	SessionID string `json:"sessionId"`

	// Seed is the canonical seed URL.
	Seed string `json:"seed"`

	// Config is the configuration the crawl ran with.
	Config Config `json:"config"`

	// StartedAt is when the crawl started.
	StartedAt time.Time `json:"startedAt"`

	// Elapsed is the wall-clock duration of the crawl.
	Elapsed time.Duration `json:"elapsed"`

	// VisitedCount is the number of URLs admitted by the VisitedRegistry,
	// including the seed and URLs whose fetch failed or never started.
	VisitedCount int `json:"visitedCount"`

	// FetchedCount is the number of successful fetches.
	FetchedCount int `json:"fetchedCount"`

	// DiscardedCount is the number of popped items dropped for exceeding MaxDepth.
	DiscardedCount int `json:"discardedCount"`

	// Failed lists every failed work item, sorted by URL.
	Failed []FailedURL `json:"failed"`

	// Pages lists every fetched page, sorted by depth then URL.
	Pages []PageResult `json:"pages"`

	// Termination tells how the crawl ended.
	Termination Termination `json:"termination"`
}

// TimedOut reports whether the overall timeout cut the crawl short.
func (s *Summary) TimedOut() bool {
	return s.Termination == TerminationTimedOut
}

// FailureCounts returns the number of failures per reason.
func (s *Summary) FailureCounts() map[FailureReason]int {
	counts := make(map[FailureReason]int)
	for _, f := range s.Failed {
		counts[f.Reason]++
	}
	return counts
}

// Result is reported to a result handler after each processed work item.
type Result struct {
	Item    WorkItem
	Page    *PageResult
	Failure *FailedURL
}

// recorder collects per-item results from all workers.
type recorder struct {
	mu        sync.Mutex
	pages     []PageResult
	failed    []FailedURL
	discarded int
	handler   func(Result)
	logger    *slog.Logger
}

func (r *recorder) page(item WorkItem, page *Page, links, admitted int) {
	res := PageResult{
		URL:         item.URL,
		Depth:       item.Depth,
		StatusCode:  page.StatusCode,
		ContentType: page.ContentType,
		Links:       links,
		Admitted:    admitted,
		Latency:     page.Latency,
	}
	r.mu.Lock()
	r.pages = append(r.pages, res)
	r.mu.Unlock()

	r.notify(Result{Item: item, Page: &res})
}

func (r *recorder) failure(item WorkItem, f *Failure) {
	res := FailedURL{
		URL:        item.URL,
		Depth:      item.Depth,
		Reason:     f.Reason,
		StatusCode: f.StatusCode,
		Message:    f.Error(),
	}
	r.mu.Lock()
	r.failed = append(r.failed, res)
	r.mu.Unlock()

	r.notify(Result{Item: item, Failure: &res})
}

// notify passes res to the result handler. A panicking handler is logged
// and does not affect the item, which is already recorded.
func (r *recorder) notify(res Result) {
	if r.handler == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil && r.logger != nil {
			r.logger.Error("result handler panicked",
				"url", res.Item.URL,
				"panic", p,
			)
		}
	}()
	r.handler(res)
}

func (r *recorder) discard() {
	r.mu.Lock()
	r.discarded++
	r.mu.Unlock()
}

// fill copies the collected results into s in a stable order.
func (r *recorder) fill(s *Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.Pages = append(make([]PageResult, 0, len(r.pages)), r.pages...)
	slices.SortFunc(s.Pages, func(a, b PageResult) int {
		if a.Depth != b.Depth {
			return a.Depth - b.Depth
		}
		return strings.Compare(a.URL, b.URL)
	})

	s.Failed = append(make([]FailedURL, 0, len(r.failed)), r.failed...)
	slices.SortFunc(s.Failed, func(a, b FailedURL) int {
		return strings.Compare(a.URL, b.URL)
	})

	s.FetchedCount = len(r.pages)
	s.DiscardedCount = r.discarded
}
