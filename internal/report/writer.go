package report

import (
	"io"

	"github.com/nao1215/crawlpool/internal/crawler"
)

// Writer outputs a crawl summary in some format.
type Writer interface {
	// Write renders the summary to the configured destination and returns
	// the number of bytes written.
	Write(summary *crawler.Summary) (int, error)
}

// MultiWriter writes a summary to several Writers in order.
// It stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to every Writer and returns the total bytes written.
func (m *MultiWriter) Write(summary *crawler.Summary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter holds the output destination shared by all writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// reasonOrder is the order failure reasons are listed in.
var reasonOrder = []crawler.FailureReason{
	crawler.ReasonTimeout,
	crawler.ReasonConnection,
	crawler.ReasonStatus,
	crawler.ReasonBody,
	crawler.ReasonExtract,
	crawler.ReasonPanic,
	crawler.ReasonContract,
	crawler.ReasonCancelled,
	crawler.ReasonUnknown,
}

// statusText describes how the crawl ended.
func statusText(s *crawler.Summary) string {
	switch s.Termination {
	case crawler.TerminationTimedOut:
		return "TIMED OUT (partial results)"
	case crawler.TerminationCancelled:
		return "CANCELLED (partial results)"
	default:
		return "Complete"
	}
}
