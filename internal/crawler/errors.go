package crawler

import "errors"

// Errors returned by Crawl before any worker starts.
// Per-page failures are never returned; they are recorded in the Summary.
var (
	// ErrEmptySeed is returned when the seed URL is empty or blank.
	ErrEmptySeed = errors.New("seed URL is empty")

	// ErrInvalidSeed is returned when the seed URL cannot be canonicalized.
	ErrInvalidSeed = errors.New("invalid seed URL")

	// ErrAlreadyStarted is returned when Crawl is called twice on the same Coordinator.
	// A Coordinator owns exactly one crawl session.
	ErrAlreadyStarted = errors.New("coordinator has already been started")

	// ErrNilFetcher is returned when a Coordinator is built without a PageFetcher.
	ErrNilFetcher = errors.New("page fetcher is nil")

	// ErrNilExtractor is returned when a Coordinator is built without a LinkExtractor.
	ErrNilExtractor = errors.New("link extractor is nil")

	// ErrInvalidWorkerCount is returned when WorkerCount is not positive.
	ErrInvalidWorkerCount = errors.New("invalid worker count: must be positive")

	// ErrInvalidMaxDepth is returned when MaxDepth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidFetchTimeout is returned when FetchTimeout is not positive.
	ErrInvalidFetchTimeout = errors.New("invalid fetch timeout: must be positive")

	// ErrInvalidOverallTimeout is returned when OverallTimeout is not positive.
	ErrInvalidOverallTimeout = errors.New("invalid overall timeout: must be positive")

	// ErrPopTimeout is returned by FrontierQueue.Pop when no item arrived in time.
	ErrPopTimeout = errors.New("frontier pop timed out")
)
