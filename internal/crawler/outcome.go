package crawler

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WorkItem is one unit of crawl work: a canonical URL and the depth at
// which it was discovered. The seed has depth 0.
type WorkItem struct {
	URL   string
	Depth int
}

// child returns the WorkItem for a link discovered on this item's page.
func (w WorkItem) child(url string) WorkItem {
	return WorkItem{URL: url, Depth: w.Depth + 1}
}

// Page is the content handle carried by a successful fetch.
// Link extractors only see pages through this type.
type Page struct {
	// URL is the URL that was requested.
	URL string

	// FinalURL is the URL after redirects. Relative links resolve against it.
	// Empty means the same as URL.
	FinalURL string

	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// ContentType is the Content-Type header of the response.
	ContentType string

	// Headers contains the response headers.
	Headers http.Header

	// Body is the decoded response body.
	Body []byte

	// Latency is the time the fetch took.
	Latency time.Duration
}

// BaseURL returns the URL relative links on the page resolve against.
func (p *Page) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// IsHTML reports whether the page declares an HTML content type.
// A page without a content type is treated as HTML.
func (p *Page) IsHTML() bool {
	if p.ContentType == "" {
		return true
	}
	ct := strings.ToLower(p.ContentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// FailureReason classifies why a work item failed.
type FailureReason int

const (
	// ReasonUnknown is the zero value and should not be produced.
	ReasonUnknown FailureReason = iota

	// ReasonTimeout means the fetch did not finish within FetchTimeout.
	ReasonTimeout

	// ReasonConnection covers DNS, dial, TLS and other transport errors.
	ReasonConnection

	// ReasonStatus means the server answered with a non-2xx status.
	ReasonStatus

	// ReasonBody means the response body could not be read or was too large.
	ReasonBody

	// ReasonExtract means the link extractor returned an error.
	ReasonExtract

	// ReasonPanic means a collaborator panicked while handling the item.
	ReasonPanic

	// ReasonContract means the fetcher did not honour its own timeout.
	ReasonContract

	// ReasonCancelled means the crawl stopped while the fetch was in flight.
	ReasonCancelled
)

var failureReasonNames = map[FailureReason]string{
	ReasonUnknown:    "unknown",
	ReasonTimeout:    "timeout",
	ReasonConnection: "connection",
	ReasonStatus:     "status",
	ReasonBody:       "body",
	ReasonExtract:    "extract",
	ReasonPanic:      "panic",
	ReasonContract:   "contract",
	ReasonCancelled:  "cancelled",
}

// String returns the lower-case name of the reason.
func (r FailureReason) String() string {
	if name, ok := failureReasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (r FailureReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *FailureReason) UnmarshalText(text []byte) error {
	reason, err := ParseFailureReason(string(text))
	if err != nil {
		return err
	}
	*r = reason
	return nil
}

// ParseFailureReason converts a reason name back to a FailureReason.
func ParseFailureReason(s string) (FailureReason, error) {
	for reason, name := range failureReasonNames {
		if name == s {
			return reason, nil
		}
	}
	return ReasonUnknown, fmt.Errorf("unknown failure reason %q", s)
}

// Failure describes a failed work item.
type Failure struct {
	// Reason classifies the failure.
	Reason FailureReason

	// StatusCode is set for ReasonStatus failures.
	StatusCode int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	switch {
	case f.Reason == ReasonStatus && f.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d", f.Reason, f.StatusCode)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Reason, f.Err)
	default:
		return f.Reason.String()
	}
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Outcome is the result of a single fetch: exactly one of Page and Failure is set.
type Outcome struct {
	Page    *Page
	Failure *Failure
}

// Success builds a successful Outcome.
func Success(page *Page) Outcome {
	return Outcome{Page: page}
}

// Failed builds a failed Outcome.
func Failed(reason FailureReason, err error) Outcome {
	return Outcome{Failure: &Failure{Reason: reason, Err: err}}
}

// FailedStatus builds a failed Outcome for a non-2xx response.
func FailedStatus(statusCode int) Outcome {
	return Outcome{Failure: &Failure{Reason: ReasonStatus, StatusCode: statusCode}}
}

// OK reports whether the outcome carries a page.
func (o Outcome) OK() bool {
	return o.Failure == nil && o.Page != nil
}
