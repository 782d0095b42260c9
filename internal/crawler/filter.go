package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Filter decides whether a discovered URL may be admitted to the frontier.
// Implementations are called concurrently by every worker.
type Filter interface {
	Allow(url string) bool
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(url string) bool

// Allow calls f(url).
func (f FilterFunc) Allow(url string) bool {
	return f(url)
}

// allowAll admits every URL.
type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

// PatternFilter restricts a crawl to one host and to URL paths matching
// glob patterns.
type PatternFilter struct {
	// host, when set, restricts the crawl to URLs with the same host (case-insensitive).
	host string

	// ignorePatterns are path patterns that are never crawled.
	ignorePatterns []string

	// followPatterns, when set, are the only path patterns that are crawled.
	followPatterns []string
}

// PatternFilterOption configures a PatternFilter.
type PatternFilterOption func(*PatternFilter)

// WithSameHost restricts the crawl to the host of seedURL.
func WithSameHost(seedURL string) PatternFilterOption {
	return func(f *PatternFilter) {
		if u, err := url.Parse(seedURL); err == nil {
			f.host = u.Host
		}
	}
}

// WithIgnorePatterns sets glob patterns for paths to skip ("/admin/*", "*.pdf").
func WithIgnorePatterns(patterns []string) PatternFilterOption {
	return func(f *PatternFilter) {
		f.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets glob patterns for the only paths to crawl.
// An empty slice allows every path not ignored.
func WithFollowPatterns(patterns []string) PatternFilterOption {
	return func(f *PatternFilter) {
		f.followPatterns = patterns
	}
}

// NewPatternFilter creates a PatternFilter.
func NewPatternFilter(opts ...PatternFilterOption) *PatternFilter {
	f := &PatternFilter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Allow applies the host restriction, then ignore patterns, then follow patterns.
// Ignore patterns win over follow patterns.
func (f *PatternFilter) Allow(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	if f.host != "" && !strings.EqualFold(u.Host, f.host) {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range f.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(f.followPatterns) == 0 {
		return true
	}
	for _, pattern := range f.followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
//
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - other patterns use filepath.Match, so * stops at "/" and ? matches one character
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	// Bare file patterns such as "report-??.html" match the last segment.
	if strings.ContainsAny(pattern, "*?") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
