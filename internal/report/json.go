package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/crawlpool/internal/crawler"
)

// JSONWriter outputs summaries as JSON.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed output.
	indent bool

	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is shorthand for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary as a single JSON document followed by a newline.
func (w *JSONWriter) Write(summary *crawler.Summary) (int, error) {
	return w.writeJSON(summary)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a summary with the tool version and per-reason failure
// counts.
type JSONReport struct {
	// Version is the crawlpool version that produced the summary.
	Version string `json:"version"`

	// FailureCounts maps reason names to the number of failed URLs.
	FailureCounts map[string]int `json:"failureCounts"`

	// Summary is the crawl summary.
	Summary *crawler.Summary `json:"summary"`
}

// NewJSONReport creates a JSONReport for the summary.
func NewJSONReport(summary *crawler.Summary, version string) *JSONReport {
	counts := make(map[string]int)
	for reason, n := range summary.FailureCounts() {
		counts[reason.String()] = n
	}
	return &JSONReport{
		Version:       version,
		FailureCounts: counts,
		Summary:       summary,
	}
}

// FullJSONWriter outputs summaries wrapped in a JSONReport.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for wrapped summaries.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the summary wrapped with version metadata.
func (w *FullJSONWriter) Write(summary *crawler.Summary) (int, error) {
	return w.writeJSON(NewJSONReport(summary, w.version))
}
