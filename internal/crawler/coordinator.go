package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultIdlePoll is how long an idle worker waits on the frontier
	// before it checks for cancellation again.
	DefaultIdlePoll = 100 * time.Millisecond

	// DefaultFetchGrace is how long a fetcher may overrun FetchTimeout
	// before its item is failed with ReasonContract.
	DefaultFetchGrace = time.Second
)

// State is the lifecycle state of a Coordinator.
type State int32

const (
	// StateIdle means Crawl has not been called.
	StateIdle State = iota
	// StateRunning means workers are processing the frontier.
	StateRunning
	// StateDraining means termination was decided and workers are exiting.
	StateDraining
	// StateTerminated means every worker has returned.
	StateTerminated
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Coordinator runs one crawl session. It owns the session's visited
// registry and frontier, so a Coordinator can be used for a single Crawl
// call only; build a new one for every session.
type Coordinator struct {
	cfg       Config
	fetcher   PageFetcher
	extractor LinkExtractor

	filter     Filter
	canon      func(string) (string, error)
	logger     *slog.Logger
	idlePoll   time.Duration
	fetchGrace time.Duration
	handler    func(Result)
	newID      func() string

	registry *VisitedRegistry
	frontier *FrontierQueue
	state    atomic.Int32
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithFilter restricts which discovered URLs are admitted.
// Only canonical URLs are passed to the filter.
func WithFilter(filter Filter) Option {
	return func(c *Coordinator) {
		c.filter = filter
	}
}

// WithCanonicalizer replaces Canonicalize.
func WithCanonicalizer(canon func(string) (string, error)) Option {
	return func(c *Coordinator) {
		c.canon = canon
	}
}

// WithIdlePoll sets how often idle workers re-check for cancellation.
func WithIdlePoll(d time.Duration) Option {
	return func(c *Coordinator) {
		c.idlePoll = d
	}
}

// WithFetchGrace sets how long a fetcher may overrun FetchTimeout.
func WithFetchGrace(d time.Duration) Option {
	return func(c *Coordinator) {
		c.fetchGrace = d
	}
}

// WithResultHandler registers fn to be called after every fetched or
// failed item. fn is called from worker goroutines and must be safe for
// concurrent use.
func WithResultHandler(fn func(Result)) Option {
	return func(c *Coordinator) {
		c.handler = fn
	}
}

// WithSessionIDFunc replaces the session ID generator.
func WithSessionIDFunc(fn func() string) Option {
	return func(c *Coordinator) {
		c.newID = fn
	}
}

// NewCoordinator validates cfg and returns a coordinator ready for Crawl.
func NewCoordinator(fetcher PageFetcher, extractor LinkExtractor, cfg Config, opts ...Option) (*Coordinator, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if extractor == nil {
		return nil, ErrNilExtractor
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:        cfg,
		fetcher:    fetcher,
		extractor:  extractor,
		filter:     allowAll{},
		canon:      Canonicalize,
		logger:     slog.Default(),
		idlePoll:   DefaultIdlePoll,
		fetchGrace: DefaultFetchGrace,
		newID:      uuid.NewString,
		registry:   NewVisitedRegistry(),
		frontier:   NewFrontierQueue(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.filter == nil {
		c.filter = allowAll{}
	}
	if c.canon == nil {
		c.canon = Canonicalize
	}
	if c.idlePoll <= 0 {
		c.idlePoll = DefaultIdlePoll
	}
	if c.fetchGrace < 0 {
		c.fetchGrace = 0
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c, nil
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Crawl crawls outward from seed until the frontier drains, the overall
// timeout elapses or ctx is cancelled, whichever comes first.
//
// Errors are returned only when the crawl cannot start. Failures of
// individual URLs are reported in the Summary, and a timed out or
// cancelled crawl still returns the partial Summary with a nil error.
// Crawl returns after every worker goroutine has exited.
func (c *Coordinator) Crawl(ctx context.Context, seed string) (*Summary, error) {
	if strings.TrimSpace(seed) == "" {
		return nil, ErrEmptySeed
	}
	canonical, err := c.canon(seed)
	if err != nil {
		if errors.Is(err, ErrInvalidSeed) || errors.Is(err, ErrEmptySeed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}

	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrAlreadyStarted
	}

	summary := &Summary{
		SessionID: c.newID(),
		Seed:      canonical,
		Config:    c.cfg,
		StartedAt: time.Now(),
	}
	logger := c.logger.With("session", summary.SessionID)
	logger.Info("crawl started",
		"seed", canonical,
		"workers", c.cfg.WorkerCount,
		"max_depth", c.cfg.MaxDepth,
	)

	c.registry.TryMark(canonical)
	c.frontier.Push(WorkItem{URL: canonical, Depth: 0})

	runCtx, cancel := context.WithTimeout(ctx, c.cfg.OverallTimeout)
	defer cancel()

	rec := &recorder{handler: c.handler, logger: logger}
	var g errgroup.Group
	for i := range c.cfg.WorkerCount {
		w := c.newWorker(i, rec, logger)
		g.Go(func() error {
			return w.run(runCtx)
		})
	}

	select {
	case <-c.frontier.Drained():
		summary.Termination = TerminationQuiescent
	case <-runCtx.Done():
		summary.Termination = c.cutoff(ctx)
	}

	c.state.Store(int32(StateDraining))
	cancel()
	if err := g.Wait(); err != nil {
		logger.Error("worker returned an error", "error", err)
	}
	c.state.Store(int32(StateTerminated))

	summary.Elapsed = time.Since(summary.StartedAt)
	summary.VisitedCount = c.registry.Len()
	rec.fill(summary)

	logger.Info("crawl finished",
		"termination", string(summary.Termination),
		"visited", summary.VisitedCount,
		"fetched", summary.FetchedCount,
		"failed", len(summary.Failed),
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

// cutoff decides the termination kind once the run context is done.
// A frontier that drained at the same moment still counts as quiescent.
func (c *Coordinator) cutoff(parent context.Context) Termination {
	select {
	case <-c.frontier.Drained():
		return TerminationQuiescent
	default:
	}
	if parent.Err() != nil {
		return TerminationCancelled
	}
	return TerminationTimedOut
}

func (c *Coordinator) newWorker(id int, rec *recorder, logger *slog.Logger) *worker {
	return &worker{
		id:         id,
		cfg:        c.cfg,
		fetcher:    c.fetcher,
		extractor:  c.extractor,
		registry:   c.registry,
		frontier:   c.frontier,
		filter:     c.filter,
		canon:      c.canon,
		rec:        rec,
		logger:     logger,
		idlePoll:   c.idlePoll,
		fetchGrace: c.fetchGrace,
	}
}

// Crawl builds a fresh Coordinator and runs a single crawl session.
func Crawl(ctx context.Context, seed string, cfg Config, fetcher PageFetcher, extractor LinkExtractor, opts ...Option) (*Summary, error) {
	c, err := NewCoordinator(fetcher, extractor, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return c.Crawl(ctx, seed)
}
