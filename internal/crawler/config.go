package crawler

import "time"

// Default crawl settings.
const (
	// DefaultWorkerCount is the number of concurrent workers.
	DefaultWorkerCount = 5

	// DefaultMaxDepth is the deepest link level fetched. The seed is depth 0.
	DefaultMaxDepth = 2

	// DefaultFetchTimeout bounds a single fetch.
	DefaultFetchTimeout = 5 * time.Second

	// DefaultOverallTimeout bounds the whole crawl.
	DefaultOverallTimeout = 60 * time.Second
)

// Config holds the settings of one crawl session.
// It is copied into the Coordinator and never changes while a crawl runs.
type Config struct {
	// WorkerCount is the number of concurrent worker loops. Must be positive.
	WorkerCount int `json:"workerCount"`

	// MaxDepth is the maximum depth of a fetched WorkItem.
	// 0 means only the seed is fetched.
	MaxDepth int `json:"maxDepth"`

	// FetchTimeout bounds a single call to the PageFetcher.
	FetchTimeout time.Duration `json:"fetchTimeout"`

	// OverallTimeout bounds the wall-clock time of the whole crawl.
	// When it elapses the crawl stops and reports partial results.
	OverallTimeout time.Duration `json:"overallTimeout"`
}

// DefaultConfig returns a Config populated with the default values.
func DefaultConfig() Config {
	return Config{
		WorkerCount:    DefaultWorkerCount,
		MaxDepth:       DefaultMaxDepth,
		FetchTimeout:   DefaultFetchTimeout,
		OverallTimeout: DefaultOverallTimeout,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.WorkerCount <= 0 {
		return ErrInvalidWorkerCount
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidFetchTimeout
	}
	if c.OverallTimeout <= 0 {
		return ErrInvalidOverallTimeout
	}
	return nil
}
