// Package fetch implements crawler.PageFetcher over net/http.
package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/crawlpool/internal/crawler"
)

const (
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "crawlpool/1.0 (+https://github.com/nao1215/crawlpool)"

	// DefaultMaxBodySize caps the decoded body of a single page.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	maxRedirects = 10
)

var (
	// ErrBodyTooLarge is returned when a decoded body exceeds the size cap.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrRedirectOutOfScope is returned when a redirect leaves the crawl scope.
	ErrRedirectOutOfScope = errors.New("redirect target is out of scope")
)

// HTTPFetcher fetches pages with an *http.Client.
// It is safe for concurrent use.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	headers     map[string]string
	hostHeaders map[string]map[string]string
	maxBodySize int64
	redirectOK  func(url string) bool
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient sets the HTTP client, for example one routed through Tor.
// Timeouts are enforced per request, so the client's own Timeout may be zero.
func WithClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(f *HTTPFetcher) {
		maps.Copy(f.headers, headers)
	}
}

// WithCookie sets the Cookie header sent with every request.
func WithCookie(cookie string) Option {
	return func(f *HTTPFetcher) {
		if cookie != "" {
			f.headers["Cookie"] = cookie
		}
	}
}

// WithHostHeaders adds headers sent only to host. They override headers
// set with WithHeaders.
func WithHostHeaders(host string, headers map[string]string) Option {
	return func(f *HTTPFetcher) {
		host = strings.ToLower(host)
		if f.hostHeaders[host] == nil {
			f.hostHeaders[host] = make(map[string]string, len(headers))
		}
		maps.Copy(f.hostHeaders[host], headers)
	}
}

// WithMaxBodySize caps the decoded body size in bytes.
func WithMaxBodySize(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithRedirectFilter makes the fetcher refuse redirects to URLs for which
// allow returns false. allow receives the canonical target URL, the same
// form a crawler.Filter sees. A refused redirect fails with ReasonStatus.
func WithRedirectFilter(allow func(url string) bool) Option {
	return func(f *HTTPFetcher) {
		f.redirectOK = allow
	}
}

// New creates an HTTPFetcher.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      &http.Client{Transport: newTransport()},
		userAgent:   DefaultUserAgent,
		headers:     make(map[string]string),
		hostHeaders: make(map[string]map[string]string),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.redirectOK != nil {
		// Copy so a shared client, such as the Tor one, is left untouched.
		client := *f.client
		client.CheckRedirect = f.checkRedirect(client.CheckRedirect)
		f.client = &client
	}
	return f
}

// checkRedirect applies the redirect filter before next.
func (f *HTTPFetcher) checkRedirect(next func(*http.Request, []*http.Request) error) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		target, err := crawler.Canonicalize(req.URL.String())
		if err != nil || !f.redirectOK(target) {
			return fmt.Errorf("%w: %s", ErrRedirectOutOfScope, req.URL.Redacted())
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// Fetch downloads rawURL within timeout. Every failure is reported in the
// returned Outcome.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) crawler.Outcome {
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return crawler.Failed(crawler.ReasonConnection, fmt.Errorf("build request: %w", err))
	}
	f.setHeaders(req)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if errors.Is(err, ErrRedirectOutOfScope) {
			return crawler.Failed(crawler.ReasonStatus, err)
		}
		return classify(ctx, crawler.ReasonConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return crawler.FailedStatus(resp.StatusCode)
	}

	body, err := f.readBody(resp)
	if err != nil {
		return classify(ctx, crawler.ReasonBody, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return crawler.Success(&crawler.Page{
		URL:         rawURL,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Headers:     resp.Header.Clone(),
		Body:        body,
		Latency:     time.Since(start),
	})
}

func (f *HTTPFetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	for k, v := range f.hostHeaders[strings.ToLower(req.URL.Hostname())] {
		req.Header.Set(k, v)
	}
}

// readBody decodes the content encoding, enforces the size cap and
// converts HTML bodies to UTF-8.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}

	return toUTF8(body, resp.Header.Get("Content-Type")), nil
}

// toUTF8 transcodes HTML bodies declared or detected as another charset.
// Bodies that cannot be transcoded are returned unchanged.
func toUTF8(body []byte, contentType string) []byte {
	ct := strings.ToLower(contentType)
	if ct != "" && !strings.Contains(ct, "html") {
		return body
	}

	_, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return body
	}

	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return decoded
}

// classify maps a request error to a failure reason. fallback is used for
// errors that are neither timeouts nor cancellations.
func classify(parent context.Context, fallback crawler.FailureReason, err error) crawler.Outcome {
	if parent.Err() != nil {
		return crawler.Failed(crawler.ReasonCancelled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return crawler.Failed(crawler.ReasonTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return crawler.Failed(crawler.ReasonTimeout, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return crawler.Failed(crawler.ReasonTimeout, err)
	}
	return crawler.Failed(fallback, err)
}
