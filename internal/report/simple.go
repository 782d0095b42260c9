package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/crawlpool/internal/crawler"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints sections that have nothing to list.
	showEmpty bool

	// verbose lists every fetched page and each failure message.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables the page listing and failure messages.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *crawler.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	w.writeFailureCounts(&sb, summary)
	w.writeFailures(&sb, summary)
	w.writePages(&sb, summary)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *crawler.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                        CRAWLPOOL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:         %s\n", s.Seed)
	fmt.Fprintf(sb, "Session:      %s\n", s.SessionID)
	fmt.Fprintf(sb, "Started:      %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Elapsed:      %s\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(sb, "Workers:      %d\n", s.Config.WorkerCount)
	fmt.Fprintf(sb, "Max depth:    %d\n", s.Config.MaxDepth)
	fmt.Fprintf(sb, "Status:       %s\n", statusText(s))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCounts(sb *strings.Builder, s *crawler.Summary) {
	section(sb, "COUNTS")
	fmt.Fprintf(sb, "  VISITED:    %d\n", s.VisitedCount)
	fmt.Fprintf(sb, "  FETCHED:    %d\n", s.FetchedCount)
	fmt.Fprintf(sb, "  FAILED:     %d\n", len(s.Failed))
	if s.DiscardedCount > 0 || w.showEmpty {
		fmt.Fprintf(sb, "  DISCARDED:  %d\n", s.DiscardedCount)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailureCounts(sb *strings.Builder, s *crawler.Summary) {
	if len(s.Failed) == 0 && !w.showEmpty {
		return
	}
	section(sb, "FAILURES BY REASON")

	counts := s.FailureCounts()
	if len(counts) == 0 {
		sb.WriteString("  No failures\n\n")
		return
	}
	for _, reason := range reasonOrder {
		if n := counts[reason]; n > 0 {
			fmt.Fprintf(sb, "  %-11s %d\n", strings.ToUpper(reason.String())+":", n)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, s *crawler.Summary) {
	if len(s.Failed) == 0 {
		return
	}
	section(sb, "FAILED URLS")

	for _, f := range s.Failed {
		label := f.Reason.String()
		if f.StatusCode != 0 {
			label = fmt.Sprintf("%s %d", label, f.StatusCode)
		}
		fmt.Fprintf(sb, "  [%s] %s (depth %d)\n", label, f.URL, f.Depth)
		if w.verbose && f.Message != "" {
			fmt.Fprintf(sb, "      %s\n", f.Message)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePages(sb *strings.Builder, s *crawler.Summary) {
	if !w.verbose {
		return
	}
	if len(s.Pages) == 0 && !w.showEmpty {
		return
	}
	section(sb, "FETCHED PAGES")

	if len(s.Pages) == 0 {
		sb.WriteString("  No pages fetched\n\n")
		return
	}
	for _, p := range s.Pages {
		fmt.Fprintf(sb, "  [%d] %s\n", p.StatusCode, p.URL)
		fmt.Fprintf(sb, "      depth %d, %d links, %d new, %s\n",
			p.Depth, p.Links, p.Admitted, p.Latency.Round(time.Millisecond))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
