package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/crawlpool/internal/crawler"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// failureAlertRatio is the share of failed URLs above which the summary
// carries a caution alert.
const failureAlertRatio = 0.5

// MarkdownWriter outputs summaries as GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter

	// maxPages caps the rows of the page table; 0 means no cap.
	maxPages int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMaxPages limits the number of rows in the fetched pages table.
func WithMaxPages(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		if n >= 0 {
			w.maxPages = n
		}
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *crawler.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeOverview(md, summary)
	w.writeFailures(md, summary)
	w.writePages(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *crawler.Summary) {
	md.H1("Crawl Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + s.Seed + "`"},
			{"Session", "`" + s.SessionID + "`"},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
			{"Workers", strconv.Itoa(s.Config.WorkerCount)},
			{"Max Depth", strconv.Itoa(s.Config.MaxDepth)},
			{"Status", statusText(s)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeOverview(md *markdown.Markdown, s *crawler.Summary) {
	md.H2("Overview")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Visited", "Fetched", "Failed", "Discarded"},
		Rows: [][]string{{
			strconv.Itoa(s.VisitedCount),
			strconv.Itoa(s.FetchedCount),
			strconv.Itoa(len(s.Failed)),
			strconv.Itoa(s.DiscardedCount),
		}},
	})
	md.PlainText("")

	if s.FetchedCount+len(s.Failed) > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of fetched pages against
// failures per reason.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *crawler.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Work Item Outcomes"),
		piechart.WithShowData(true),
	)

	if s.FetchedCount > 0 {
		chart.LabelAndIntValue("fetched", uint64(s.FetchedCount)) //nolint:gosec // counts are never negative
	}
	counts := s.FailureCounts()
	for _, reason := range reasonOrder {
		if n := counts[reason]; n > 0 {
			chart.LabelAndIntValue(reason.String(), uint64(n)) //nolint:gosec // counts are never negative
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *crawler.Summary) {
	total := s.FetchedCount + len(s.Failed)
	switch {
	case s.Termination == crawler.TerminationCancelled:
		md.Cautionf("The crawl was cancelled after %s. Results are partial.",
			s.Elapsed.Round(time.Millisecond))
	case s.Termination == crawler.TerminationTimedOut:
		md.Warningf("The overall timeout of %s elapsed. Results are partial.",
			s.Config.OverallTimeout)
	case total > 0 && float64(len(s.Failed))/float64(total) > failureAlertRatio:
		md.Importantf("%d of %d work items failed.", len(s.Failed), total)
	case len(s.Failed) > 0:
		md.Note("The crawl finished with some failed URLs.")
	default:
		md.Tip("The crawl finished without failures.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *crawler.Summary) {
	md.H2("Failed URLs")
	md.PlainText("")

	if len(s.Failed) == 0 {
		md.PlainText("No failed URLs.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Failed))
	for i, f := range s.Failed {
		status := "-"
		if f.StatusCode != 0 {
			status = strconv.Itoa(f.StatusCode)
		}
		rows[i] = []string{
			truncateString(f.URL, 80),
			strconv.Itoa(f.Depth),
			f.Reason.String(),
			status,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Reason", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range s.Failed {
		if f.Message != "" {
			md.Details(truncateString(f.URL, 80), f.Message)
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, s *crawler.Summary) {
	md.H2("Fetched Pages")
	md.PlainText("")

	if len(s.Pages) == 0 {
		md.PlainText("No pages fetched.")
		md.PlainText("")
		return
	}

	pages := s.Pages
	if w.maxPages > 0 && len(pages) > w.maxPages {
		pages = pages[:w.maxPages]
	}

	rows := make([][]string, len(pages))
	for i, p := range pages {
		rows[i] = []string{
			truncateString(p.URL, 80),
			strconv.Itoa(p.Depth),
			strconv.Itoa(p.StatusCode),
			strconv.Itoa(p.Links),
			strconv.Itoa(p.Admitted),
			p.Latency.Round(time.Millisecond).String(),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Status", "Links", "New", "Latency"},
		Rows:   rows,
	})
	md.PlainText("")

	if omitted := len(s.Pages) - len(pages); omitted > 0 {
		md.PlainText(fmt.Sprintf("%d more pages omitted.", omitted))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Summary generated by [crawlpool](https://github.com/nao1215/crawlpool)*")
}

// truncateString truncates a string to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
