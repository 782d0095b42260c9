package crawler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSite is an in-memory link graph acting as both fetcher and extractor.
type fakeSite struct {
	links map[string][]string
	fail  map[string]Outcome
	delay time.Duration

	mu    sync.Mutex
	calls map[string]int

	active atomic.Int32
	peak   atomic.Int32
}

func newFakeSite(links map[string][]string) *fakeSite {
	return &fakeSite{
		links: links,
		fail:  make(map[string]Outcome),
		calls: make(map[string]int),
	}
}

func (s *fakeSite) Fetch(ctx context.Context, url string, _ time.Duration) Outcome {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls[url]++
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Failed(ReasonCancelled, ctx.Err())
		}
	}
	if o, ok := s.fail[url]; ok {
		return o
	}
	return Success(&Page{URL: url, StatusCode: 200, ContentType: "text/html"})
}

func (s *fakeSite) Extract(page *Page) (iter.Seq[string], error) {
	return slices.Values(s.links[page.URL]), nil
}

func (s *fakeSite) count(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

func (s *fakeSite) fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for u := range s.calls {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

func testConfig(workers, depth int) Config {
	return Config{
		WorkerCount:    workers,
		MaxDepth:       depth,
		FetchTimeout:   time.Second,
		OverallTimeout: 5 * time.Second,
	}
}

func testOptions() []Option {
	return []Option{WithIdlePoll(5 * time.Millisecond), WithSessionIDFunc(func() string { return "test-session" })}
}

func runCrawl(t *testing.T, seed string, cfg Config, f PageFetcher, e LinkExtractor, opts ...Option) *Summary {
	t.Helper()

	summary, err := Crawl(context.Background(), seed, cfg, f, e, append(testOptions(), opts...)...)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	return summary
}

func pageURLs(s *Summary) []string {
	out := make([]string, 0, len(s.Pages))
	for _, p := range s.Pages {
		out = append(out, p.URL)
	}
	slices.Sort(out)
	return out
}

func TestCoordinatorScenarios(t *testing.T) {
	t.Parallel()

	t.Run("seed with two leaf children", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"A": {"B", "C"},
			"B": {},
			"C": {},
		})
		s := runCrawl(t, "A", testConfig(1, 1), site, site)

		if s.VisitedCount != 3 {
			t.Errorf("expected visitedCount 3, got %d", s.VisitedCount)
		}
		if len(s.Failed) != 0 {
			t.Errorf("expected no failures, got %+v", s.Failed)
		}
		if s.FetchedCount != 3 {
			t.Errorf("expected 3 fetched pages, got %d", s.FetchedCount)
		}
		if s.Termination != TerminationQuiescent {
			t.Errorf("expected quiescent termination, got %s", s.Termination)
		}
		if s.SessionID != "test-session" || s.Seed != "A" {
			t.Errorf("unexpected session metadata: %q %q", s.SessionID, s.Seed)
		}
	})

	t.Run("self link and cross link", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"A": {"A", "B"},
			"B": {"A"},
		})
		s := runCrawl(t, "A", testConfig(4, 1), site, site)

		if site.count("A") != 1 {
			t.Errorf("expected A fetched once, got %d", site.count("A"))
		}
		if site.count("B") != 1 {
			t.Errorf("expected B fetched once, got %d", site.count("B"))
		}
		if s.VisitedCount != 2 {
			t.Errorf("expected visitedCount 2, got %d", s.VisitedCount)
		}
	})

	t.Run("every fetch times out", func(t *testing.T) {
		t.Parallel()

		timeouts := FetcherFunc(func(ctx context.Context, url string, timeout time.Duration) Outcome {
			select {
			case <-time.After(timeout):
				return Failed(ReasonTimeout, context.DeadlineExceeded)
			case <-ctx.Done():
				return Failed(ReasonCancelled, ctx.Err())
			}
		})
		site := newFakeSite(map[string][]string{"A": {"B"}})
		cfg := Config{
			WorkerCount:    2,
			MaxDepth:       2,
			FetchTimeout:   20 * time.Millisecond,
			OverallTimeout: time.Second,
		}

		start := time.Now()
		s := runCrawl(t, "A", cfg, timeouts, site)
		if elapsed := time.Since(start); elapsed >= cfg.OverallTimeout {
			t.Errorf("crawl did not terminate within the overall timeout: %s", elapsed)
		}

		if len(s.Failed) != 1 || s.Failed[0].URL != "A" || s.Failed[0].Reason != ReasonTimeout {
			t.Fatalf("expected A to fail with timeout, got %+v", s.Failed)
		}
		if s.VisitedCount != 1 {
			t.Errorf("expected visitedCount 1, got %d", s.VisitedCount)
		}
		if s.Termination != TerminationQuiescent {
			t.Errorf("expected quiescent termination, got %s", s.Termination)
		}
	})

	t.Run("max depth zero fetches only the seed", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{"A": {"B", "C"}})
		s := runCrawl(t, "A", testConfig(3, 0), site, site)

		if got := site.fetched(); !slices.Equal(got, []string{"A"}) {
			t.Errorf("expected only A fetched, got %v", got)
		}
		// Children beyond the depth limit are never marked visited.
		if s.VisitedCount != 1 {
			t.Errorf("expected visitedCount 1, got %d", s.VisitedCount)
		}
		if s.DiscardedCount != 0 {
			t.Errorf("expected no discarded items, got %d", s.DiscardedCount)
		}
	})
}

func TestCoordinatorDepth(t *testing.T) {
	t.Parallel()

	t.Run("depth increases along a chain", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"A": {"B"},
			"B": {"C"},
			"C": {"D"},
			"D": {"E"},
		})
		s := runCrawl(t, "A", testConfig(2, 2), site, site)

		want := map[string]int{"A": 0, "B": 1, "C": 2}
		if len(s.Pages) != len(want) {
			t.Fatalf("expected %d pages, got %+v", len(want), s.Pages)
		}
		for _, p := range s.Pages {
			if d, ok := want[p.URL]; !ok || d != p.Depth {
				t.Errorf("unexpected page %s at depth %d", p.URL, p.Depth)
			}
		}
		if site.count("D") != 0 {
			t.Error("D is beyond max depth and must not be fetched")
		}
		if s.VisitedCount != 3 {
			t.Errorf("expected visitedCount 3, got %d", s.VisitedCount)
		}
	})

	t.Run("diamond fetches the shared node once", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"A": {"B", "C"},
			"B": {"D"},
			"C": {"D"},
			"D": {"A"},
		})
		s := runCrawl(t, "A", testConfig(4, 3), site, site)

		if site.count("D") != 1 {
			t.Errorf("expected D fetched once, got %d", site.count("D"))
		}
		if s.VisitedCount != 4 || s.FetchedCount != 4 {
			t.Errorf("expected 4 visited and fetched, got %d / %d", s.VisitedCount, s.FetchedCount)
		}
	})

	t.Run("over-depth link stays admissible through a shorter path", func(t *testing.T) {
		t.Parallel()

		// C reaches X at depth 3 long before the slow S offers it at depth 2.
		site := newFakeSite(map[string][]string{
			"A": {"B", "S"},
			"B": {"C"},
			"C": {"X"},
			"S": {"X"},
		})
		slowS := FetcherFunc(func(ctx context.Context, url string, timeout time.Duration) Outcome {
			if url == "S" {
				select {
				case <-time.After(150 * time.Millisecond):
				case <-ctx.Done():
					return Failed(ReasonCancelled, ctx.Err())
				}
			}
			return site.Fetch(ctx, url, timeout)
		})
		s := runCrawl(t, "A", testConfig(3, 2), slowS, site)

		if site.count("X") != 1 {
			t.Fatalf("expected X fetched once, got %d", site.count("X"))
		}
		for _, p := range s.Pages {
			if p.URL == "X" && p.Depth != 2 {
				t.Errorf("expected X at depth 2, got %d", p.Depth)
			}
		}
		if s.DiscardedCount != 0 {
			t.Errorf("expected no discarded items, got %d", s.DiscardedCount)
		}
	})

	t.Run("pages are sorted by depth then URL", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"A": {"Z", "M"},
			"M": {"B"},
		})
		s := runCrawl(t, "A", testConfig(3, 2), site, site)

		var got []string
		for _, p := range s.Pages {
			got = append(got, fmt.Sprintf("%d:%s", p.Depth, p.URL))
		}
		want := []string{"0:A", "1:M", "1:Z", "2:B"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}

func TestCoordinatorNoDuplicateFetches(t *testing.T) {
	t.Parallel()

	const nodes = 300
	rng := rand.New(rand.NewPCG(1, 2))
	links := make(map[string][]string, nodes)
	for i := range nodes {
		from := fmt.Sprintf("n%d", i)
		for range 6 {
			links[from] = append(links[from], fmt.Sprintf("n%d", rng.IntN(nodes)))
		}
	}

	site := newFakeSite(links)
	site.delay = 100 * time.Microsecond
	cfg := testConfig(16, 20)
	s := runCrawl(t, "n0", cfg, site, site)

	for _, u := range site.fetched() {
		if c := site.count(u); c != 1 {
			t.Errorf("%s fetched %d times", u, c)
		}
	}
	if s.VisitedCount != s.FetchedCount+len(s.Failed) {
		t.Errorf("visited %d != fetched %d + failed %d", s.VisitedCount, s.FetchedCount, len(s.Failed))
	}
	if got := int(site.peak.Load()); got > cfg.WorkerCount {
		t.Errorf("observed %d concurrent fetches with %d workers", got, cfg.WorkerCount)
	}
	if s.Termination != TerminationQuiescent {
		t.Errorf("expected quiescent termination, got %s", s.Termination)
	}
}

// queued returns a snapshot of the items waiting in q.
func queued(q *FrontierQueue) []WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

func TestCoordinatorEnqueuesOnlyMarkedURLs(t *testing.T) {
	t.Parallel()

	const nodes = 200
	rng := rand.New(rand.NewPCG(3, 4))
	links := make(map[string][]string, nodes)
	for i := range nodes {
		from := fmt.Sprintf("n%d", i)
		for range 5 {
			links[from] = append(links[from], fmt.Sprintf("n%d", rng.IntN(nodes)))
		}
	}
	site := newFakeSite(links)

	var c *Coordinator
	var checks atomic.Int32
	checkQueue := func() {
		for _, item := range queued(c.frontier) {
			checks.Add(1)
			if !c.registry.Contains(item.URL) {
				t.Errorf("%s is queued but not marked visited", item.URL)
			}
		}
	}
	// The worker admits each yielded link before the next one is pulled,
	// so the queue is inspected right after every admission.
	extractor := ExtractorFunc(func(page *Page) (iter.Seq[string], error) {
		return func(yield func(string) bool) {
			for _, link := range site.links[page.URL] {
				checkQueue()
				if !yield(link) {
					return
				}
				if !c.registry.Contains(link) {
					t.Errorf("%s was admitted without being marked", link)
				}
				checkQueue()
			}
		}, nil
	})

	c, err := NewCoordinator(site, extractor, testConfig(8, 10), testOptions()...)
	if err != nil {
		t.Fatalf("failed to create coordinator: %v", err)
	}
	s, err := c.Crawl(context.Background(), "n0")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if checks.Load() == 0 {
		t.Fatal("expected the queue to be inspected while items were pending")
	}
	if s.VisitedCount != s.FetchedCount+len(s.Failed) {
		t.Errorf("visited %d != fetched %d + failed %d", s.VisitedCount, s.FetchedCount, len(s.Failed))
	}
}

func TestCoordinatorFailures(t *testing.T) {
	t.Parallel()

	t.Run("failed page is not expanded", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"A": {"B"},
			"B": {"C"},
		})
		site.fail["B"] = FailedStatus(404)
		s := runCrawl(t, "A", testConfig(2, 3), site, site)

		if site.count("C") != 0 {
			t.Error("links of a failed page must not be followed")
		}
		if len(s.Failed) != 1 {
			t.Fatalf("expected one failure, got %+v", s.Failed)
		}
		f := s.Failed[0]
		if f.URL != "B" || f.Reason != ReasonStatus || f.StatusCode != 404 || f.Depth != 1 {
			t.Errorf("unexpected failure %+v", f)
		}
		if got := s.FailureCounts()[ReasonStatus]; got != 1 {
			t.Errorf("expected one status failure, got %d", got)
		}
	})

	t.Run("extractor error keeps the page", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(nil)
		extractor := ExtractorFunc(func(*Page) (iter.Seq[string], error) {
			return nil, errors.New("malformed document")
		})
		s := runCrawl(t, "A", testConfig(1, 1), site, extractor)

		if s.FetchedCount != 1 {
			t.Errorf("expected the page to be recorded, got %d", s.FetchedCount)
		}
		if len(s.Failed) != 1 || s.Failed[0].Reason != ReasonExtract {
			t.Errorf("expected an extract failure, got %+v", s.Failed)
		}
	})

	t.Run("extractor panic does not stop the crawl", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"A": {"B", "C"},
			"B": {"D"},
		})
		extractor := ExtractorFunc(func(page *Page) (iter.Seq[string], error) {
			if page.URL == "C" {
				panic("bad markup")
			}
			return site.Extract(page)
		})
		s := runCrawl(t, "A", testConfig(2, 2), site, extractor)

		if site.count("D") != 1 {
			t.Error("expected the crawl to continue past the panic")
		}
		if len(s.Failed) != 1 || s.Failed[0].URL != "C" || s.Failed[0].Reason != ReasonPanic {
			t.Errorf("expected a panic failure for C, got %+v", s.Failed)
		}
	})

	t.Run("fetcher panic", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{"A": {"B", "C"}})
		fetcher := FetcherFunc(func(ctx context.Context, url string, timeout time.Duration) Outcome {
			if url == "B" {
				panic("boom")
			}
			return site.Fetch(ctx, url, timeout)
		})
		s := runCrawl(t, "A", testConfig(2, 1), fetcher, site)

		if len(s.Failed) != 1 || s.Failed[0].URL != "B" || s.Failed[0].Reason != ReasonPanic {
			t.Errorf("expected a panic failure for B, got %+v", s.Failed)
		}
		if s.FetchedCount != 2 {
			t.Errorf("expected A and C fetched, got %d", s.FetchedCount)
		}
	})

	t.Run("fetcher ignoring its timeout", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		fetcher := FetcherFunc(func(context.Context, string, time.Duration) Outcome {
			<-release
			return Success(&Page{})
		})
		cfg := Config{
			WorkerCount:    1,
			MaxDepth:       1,
			FetchTimeout:   10 * time.Millisecond,
			OverallTimeout: 5 * time.Second,
		}
		s := runCrawl(t, "A", cfg, fetcher, newFakeSite(nil), WithFetchGrace(10*time.Millisecond))

		if len(s.Failed) != 1 || s.Failed[0].Reason != ReasonContract {
			t.Errorf("expected a contract failure, got %+v", s.Failed)
		}
		if s.Termination != TerminationQuiescent {
			t.Errorf("expected quiescent termination, got %s", s.Termination)
		}
	})

	t.Run("empty outcome", func(t *testing.T) {
		t.Parallel()

		fetcher := FetcherFunc(func(context.Context, string, time.Duration) Outcome {
			return Outcome{}
		})
		s := runCrawl(t, "A", testConfig(1, 1), fetcher, newFakeSite(nil))

		if len(s.Failed) != 1 || s.Failed[0].Reason != ReasonContract {
			t.Errorf("expected a contract failure, got %+v", s.Failed)
		}
	})
}

// endlessSite links every page to two new pages.
func endlessSite(delay time.Duration) (PageFetcher, LinkExtractor) {
	fetcher := FetcherFunc(func(ctx context.Context, url string, _ time.Duration) Outcome {
		select {
		case <-time.After(delay):
			return Success(&Page{URL: url, StatusCode: 200})
		case <-ctx.Done():
			return Failed(ReasonCancelled, ctx.Err())
		}
	})
	extractor := ExtractorFunc(func(page *Page) (iter.Seq[string], error) {
		return slices.Values([]string{page.URL + "/l", page.URL + "/r"}), nil
	})
	return fetcher, extractor
}

func TestCoordinatorTermination(t *testing.T) {
	t.Parallel()

	t.Run("overall timeout returns partial results", func(t *testing.T) {
		t.Parallel()

		fetcher, extractor := endlessSite(5 * time.Millisecond)
		cfg := Config{
			WorkerCount:    4,
			MaxDepth:       50,
			FetchTimeout:   time.Second,
			OverallTimeout: 150 * time.Millisecond,
		}
		c, err := NewCoordinator(fetcher, extractor, cfg, testOptions()...)
		if err != nil {
			t.Fatalf("failed to create coordinator: %v", err)
		}

		s, err := c.Crawl(context.Background(), "root")
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if !s.TimedOut() {
			t.Errorf("expected timed_out termination, got %s", s.Termination)
		}
		if s.FetchedCount == 0 {
			t.Error("expected partial results")
		}
		if s.VisitedCount < s.FetchedCount {
			t.Errorf("visited %d < fetched %d", s.VisitedCount, s.FetchedCount)
		}
		if c.State() != StateTerminated {
			t.Errorf("expected terminated state, got %s", c.State())
		}
	})

	t.Run("caller cancellation", func(t *testing.T) {
		t.Parallel()

		fetcher, extractor := endlessSite(5 * time.Millisecond)
		cfg := testConfig(4, 50)
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		s, err := Crawl(ctx, "root", cfg, fetcher, extractor, testOptions()...)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if s.Termination != TerminationCancelled {
			t.Errorf("expected cancelled termination, got %s", s.Termination)
		}
		if s.Elapsed >= cfg.OverallTimeout {
			t.Errorf("cancellation was not honoured: %s", s.Elapsed)
		}
	})

	t.Run("workers have exited when Crawl returns", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{"A": {"B", "C", "D"}})
		site.delay = time.Millisecond
		c, err := NewCoordinator(site, site, testConfig(3, 1), testOptions()...)
		if err != nil {
			t.Fatalf("failed to create coordinator: %v", err)
		}
		if c.State() != StateIdle {
			t.Errorf("expected idle state, got %s", c.State())
		}
		if _, err := c.Crawl(context.Background(), "A"); err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if site.active.Load() != 0 {
			t.Errorf("expected no active fetches, got %d", site.active.Load())
		}
		if c.State() != StateTerminated {
			t.Errorf("expected terminated state, got %s", c.State())
		}
	})
}

func TestCoordinatorOptions(t *testing.T) {
	t.Parallel()

	t.Run("filter", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"http://example.com/": {"http://example.com/a", "http://other.com/b"},
		})
		filter := NewPatternFilter(WithSameHost("http://example.com/"))
		s := runCrawl(t, "http://EXAMPLE.com", testConfig(2, 1), site, site, WithFilter(filter))

		if got := pageURLs(s); !slices.Equal(got, []string{"http://example.com/", "http://example.com/a"}) {
			t.Errorf("unexpected pages: %v", got)
		}
	})

	t.Run("canonical forms are deduplicated", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"http://example.com/": {
				"http://example.com/a#x",
				"HTTP://EXAMPLE.COM:80/a",
				"http://example.com/a",
			},
		})
		s := runCrawl(t, "http://example.com/", testConfig(3, 1), site, site)

		if site.count("http://example.com/a") != 1 {
			t.Errorf("expected one fetch of /a, got %d", site.count("http://example.com/a"))
		}
		if s.VisitedCount != 2 {
			t.Errorf("expected visitedCount 2, got %d", s.VisitedCount)
		}
		if len(s.Pages) != 2 || s.Pages[0].Links != 3 || s.Pages[0].Admitted != 1 {
			t.Errorf("unexpected seed page result: %+v", s.Pages)
		}
	})

	t.Run("result handler sees every item", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{"A": {"B", "C"}})
		site.fail["C"] = Failed(ReasonConnection, errors.New("refused"))

		var mu sync.Mutex
		var pages, failures int
		handler := func(r Result) {
			mu.Lock()
			defer mu.Unlock()
			if r.Page != nil {
				pages++
			}
			if r.Failure != nil {
				failures++
			}
		}
		runCrawl(t, "A", testConfig(2, 1), site, site, WithResultHandler(handler))

		if pages != 2 || failures != 1 {
			t.Errorf("expected 2 pages and 1 failure, got %d and %d", pages, failures)
		}
	})
}

func TestCoordinatorResultHandlerPanics(t *testing.T) {
	t.Parallel()

	site := newFakeSite(map[string][]string{"A": {"B", "C"}})
	site.fail["C"] = Failed(ReasonStatus, errors.New("status 500"))

	var calls atomic.Int32
	handler := func(Result) {
		calls.Add(1)
		panic("handler failure")
	}
	s := runCrawl(t, "A", testConfig(2, 1), site, site, WithResultHandler(handler))

	if s.Termination != TerminationQuiescent {
		t.Errorf("expected quiescent termination, got %s", s.Termination)
	}
	if s.FetchedCount != 2 {
		t.Errorf("expected 2 fetched pages, got %d", s.FetchedCount)
	}
	if len(s.Failed) != 1 || s.Failed[0].URL != "C" || s.Failed[0].Reason != ReasonStatus {
		t.Errorf("expected one status failure for C, got %+v", s.Failed)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected the handler to be called once per item, got %d", got)
	}
}

func TestCoordinatorErrors(t *testing.T) {
	t.Parallel()

	site := newFakeSite(nil)

	t.Run("empty seed", func(t *testing.T) {
		t.Parallel()

		_, err := Crawl(context.Background(), "  ", DefaultConfig(), site, site)
		if !errors.Is(err, ErrEmptySeed) {
			t.Errorf("expected ErrEmptySeed, got %v", err)
		}
	})

	t.Run("invalid seed", func(t *testing.T) {
		t.Parallel()

		fresh := newFakeSite(nil)
		for _, seed := range []string{"http://[::1", "http://", "not a url"} {
			s, err := Crawl(context.Background(), seed, DefaultConfig(), fresh, fresh)
			if !errors.Is(err, ErrInvalidSeed) {
				t.Errorf("seed %q: expected ErrInvalidSeed, got %v", seed, err)
			}
			if s != nil {
				t.Errorf("seed %q: expected no summary, got %+v", seed, s)
			}
		}
		if n := len(fresh.fetched()); n != 0 {
			t.Errorf("expected no fetches for invalid seeds, got %d", n)
		}
	})

	t.Run("already started", func(t *testing.T) {
		t.Parallel()

		c, err := NewCoordinator(site, site, testConfig(1, 0), testOptions()...)
		if err != nil {
			t.Fatalf("failed to create coordinator: %v", err)
		}
		if _, err := c.Crawl(context.Background(), "A"); err != nil {
			t.Fatalf("first crawl failed: %v", err)
		}
		if _, err := c.Crawl(context.Background(), "A"); !errors.Is(err, ErrAlreadyStarted) {
			t.Errorf("expected ErrAlreadyStarted, got %v", err)
		}
	})

	t.Run("nil collaborators", func(t *testing.T) {
		t.Parallel()

		if _, err := NewCoordinator(nil, site, DefaultConfig()); !errors.Is(err, ErrNilFetcher) {
			t.Errorf("expected ErrNilFetcher, got %v", err)
		}
		if _, err := NewCoordinator(site, nil, DefaultConfig()); !errors.Is(err, ErrNilExtractor) {
			t.Errorf("expected ErrNilExtractor, got %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name   string
			modify func(*Config)
			want   error
		}{
			{"zero workers", func(c *Config) { c.WorkerCount = 0 }, ErrInvalidWorkerCount},
			{"negative depth", func(c *Config) { c.MaxDepth = -1 }, ErrInvalidMaxDepth},
			{"zero fetch timeout", func(c *Config) { c.FetchTimeout = 0 }, ErrInvalidFetchTimeout},
			{"zero overall timeout", func(c *Config) { c.OverallTimeout = 0 }, ErrInvalidOverallTimeout},
		}
		for _, tt := range tests {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if _, err := NewCoordinator(site, site, cfg); !errors.Is(err, tt.want) {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
			}
		}
	})
}
