// Package crawler provides the concurrent crawling engine.
//
// # Architecture
//
// A crawl session is driven by a Coordinator. The coordinator owns a
// VisitedRegistry and a FrontierQueue that are built fresh for every
// session and discarded with it. A fixed number of workers pull WorkItems
// from the frontier, fetch them through a PageFetcher, expand successful
// pages through a LinkExtractor and push newly admitted URLs back onto the
// frontier one level deeper.
//
// # Components
//
//   - VisitedRegistry: set of canonical URLs; TryMark is the only admission gate
//   - FrontierQueue: unbounded FIFO of pending work with quiescence accounting
//   - PageFetcher / LinkExtractor: collaborator interfaces implemented elsewhere
//   - Coordinator: seeds the frontier, runs the worker pool, detects termination
//
// # Termination
//
// The frontier counts items that have been popped but not yet acknowledged
// with Done. A crawl is quiescent when the queue is empty and nothing is in
// flight. Workers acknowledge an item only after every child has been
// pushed, so the queue cannot be observed empty while a worker is about to
// produce more work. The overall timeout cancels in-flight fetches instead.
//
// # Usage
//
//	summary, err := crawler.Crawl(ctx, "https://example.com", crawler.DefaultConfig(),
//	    fetch.NewHTTPFetcher(), extract.NewHTMLExtractor())
//
// # Depth policy
//
// Links found on a page at depth d are only considered when d+1 <= MaxDepth.
// Over-depth URLs are never marked visited, so a shorter path discovered
// later may still admit them.
package crawler
