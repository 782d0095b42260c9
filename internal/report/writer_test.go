package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/crawlpool/internal/crawler"
)

// createTestSummary creates a summary with sample data for testing.
func createTestSummary() *crawler.Summary {
	return &crawler.Summary{
		SessionID:    "0b6f0d62-2a5e-4c1e-9d57-6f1c0e6f3a11",
		Seed:         "http://example.com/",
		Config:       crawler.DefaultConfig(),
		StartedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Elapsed:      1234 * time.Millisecond,
		VisitedCount: 5,
		FetchedCount: 2,
		Termination:  crawler.TerminationQuiescent,
		Pages: []crawler.PageResult{
			{URL: "http://example.com/", Depth: 0, StatusCode: 200, ContentType: "text/html", Links: 4, Admitted: 4, Latency: 12 * time.Millisecond},
			{URL: "http://example.com/a", Depth: 1, StatusCode: 200, ContentType: "text/html", Links: 1, Latency: 8 * time.Millisecond},
		},
		Failed: []crawler.FailedURL{
			{URL: "http://example.com/b", Depth: 1, Reason: crawler.ReasonStatus, StatusCode: 404, Message: "status: HTTP 404"},
			{URL: "http://example.com/c", Depth: 1, Reason: crawler.ReasonTimeout, Message: "timeout: context deadline exceeded"},
		},
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}

		output := buf.String()
		for _, want := range []string{
			"CRAWLPOOL SUMMARY",
			"http://example.com/",
			"0b6f0d62-2a5e-4c1e-9d57-6f1c0e6f3a11",
			"Status:       Complete",
			"VISITED:    5",
			"FETCHED:    2",
			"FAILED:     2",
			"FAILURES BY REASON",
			"TIMEOUT:",
			"[status 404] http://example.com/b (depth 1)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "FETCHED PAGES") {
			t.Error("expected page listing only in verbose mode")
		}
		if strings.Contains(output, "DISCARDED") {
			t.Error("expected zero discarded count to be hidden")
		}
	})

	t.Run("verbose lists pages and messages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "FETCHED PAGES") {
			t.Error("expected fetched pages section")
		}
		if !strings.Contains(output, "depth 0, 4 links, 4 new") {
			t.Error("expected page details")
		}
		if !strings.Contains(output, "timeout: context deadline exceeded") {
			t.Error("expected failure message")
		}
	})

	t.Run("partial results are flagged", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			termination crawler.Termination
			want        string
		}{
			{crawler.TerminationTimedOut, "TIMED OUT (partial results)"},
			{crawler.TerminationCancelled, "CANCELLED (partial results)"},
		}
		for _, tt := range tests {
			s := createTestSummary()
			s.Termination = tt.termination

			var buf bytes.Buffer
			if _, err := NewSimpleWriter(&buf).Write(s); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q for %s", tt.want, tt.termination)
			}
		}
	})

	t.Run("show empty sections", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		s.Failed = nil
		s.Pages = nil

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true), WithVerbose(true)).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{"No failures", "No pages fetched", "DISCARDED:  0"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid compact JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got crawler.Summary
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Seed != "http://example.com/" || len(got.Failed) != 2 {
			t.Errorf("unexpected decoded summary %+v", got)
		}
		if got.Failed[0].Reason != crawler.ReasonStatus {
			t.Errorf("expected reason to round-trip, got %v", got.Failed[0].Reason)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact single-line output")
		}
		if !strings.Contains(buf.String(), `"reason":"status"`) {
			t.Error("expected reasons encoded by name")
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"seed\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "v1.2.3").Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got JSONReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Version != "v1.2.3" {
			t.Errorf("expected version v1.2.3, got %q", got.Version)
		}
		if got.FailureCounts["status"] != 1 || got.FailureCounts["timeout"] != 1 {
			t.Errorf("unexpected failure counts %v", got.FailureCounts)
		}
		if got.Summary == nil || got.Summary.SessionID == "" {
			t.Error("expected wrapped summary")
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Crawl Summary",
			"## Overview",
			"## Failed URLs",
			"## Fetched Pages",
			"```mermaid",
			"pie",
			"http://example.com/b",
			"<details>",
			"[!NOTE]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected markdown to contain %q", want)
			}
		}
	})

	t.Run("alert follows termination", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name   string
			modify func(*crawler.Summary)
			want   string
		}{
			{"clean", func(s *crawler.Summary) { s.Failed = nil }, "[!TIP]"},
			{"timed out", func(s *crawler.Summary) { s.Termination = crawler.TerminationTimedOut }, "[!WARNING]"},
			{"cancelled", func(s *crawler.Summary) { s.Termination = crawler.TerminationCancelled }, "[!CAUTION]"},
			{"mostly failed", func(s *crawler.Summary) { s.FetchedCount = 1 }, "[!IMPORTANT]"},
		}
		for _, tt := range tests {
			s := createTestSummary()
			tt.modify(s)

			var buf bytes.Buffer
			if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.name, err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("%s: expected %q alert", tt.name, tt.want)
			}
		}
	})

	t.Run("caps page rows", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, WithMaxPages(1)).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "1 more pages omitted.") {
			t.Error("expected omitted rows note")
		}
	})

	t.Run("empty summary", func(t *testing.T) {
		t.Parallel()

		s := createTestSummary()
		s.Pages, s.Failed, s.FetchedCount = nil, nil, 0

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no chart without outcomes")
		}
		if !strings.Contains(output, "No pages fetched.") || !strings.Contains(output, "No failed URLs.") {
			t.Error("expected empty section notes")
		}
	})
}

type errWriter struct{ err error }

func (e errWriter) Write(*crawler.Summary) (int, error) { return 0, e.err }

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		m := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))
		n, err := m.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected total %d, got %d", text.Len()+js.Len(), n)
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		var after bytes.Buffer
		m := NewMultiWriter(errWriter{err: boom}, NewSimpleWriter(&after))
		if _, err := m.Write(createTestSummary()); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if after.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
