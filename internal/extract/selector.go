package extract

import (
	"bytes"
	"fmt"
	"iter"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/nao1215/crawlpool/internal/crawler"
)

const (
	// DefaultSelector matches every anchor with an href.
	DefaultSelector = "a[href]"

	// DefaultAttribute is the attribute read from matched elements.
	DefaultAttribute = "href"
)

// SelectorExtractor extracts links from the elements matched by a CSS
// selector.
//
// SelectorExtractor is safe for concurrent use.
type SelectorExtractor struct {
	selector string
	attr     string
}

// SelectorOption configures a SelectorExtractor.
type SelectorOption func(*SelectorExtractor)

// WithSelector sets the CSS selector.
func WithSelector(selector string) SelectorOption {
	return func(e *SelectorExtractor) {
		if selector != "" {
			e.selector = selector
		}
	}
}

// WithAttribute sets the attribute holding the link.
func WithAttribute(attr string) SelectorOption {
	return func(e *SelectorExtractor) {
		if attr != "" {
			e.attr = attr
		}
	}
}

// NewSelectorExtractor creates a SelectorExtractor. The selector is
// checked once here so a bad selector fails before the crawl starts.
func NewSelectorExtractor(opts ...SelectorOption) (*SelectorExtractor, error) {
	e := &SelectorExtractor{
		selector: DefaultSelector,
		attr:     DefaultAttribute,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := checkSelector(e.selector); err != nil {
		return nil, err
	}
	return e, nil
}

// Extract parses page and returns the attribute values of every matched
// element, resolved against the page.
func (e *SelectorExtractor) Extract(page *crawler.Page) (iter.Seq[string], error) {
	if page == nil || !page.IsHTML() || len(page.Body) == 0 {
		return empty, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	baseHref, _ := doc.Find("base[href]").First().Attr("href")
	base, err := documentBase(page.BaseURL(), baseHref)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", page.BaseURL(), err)
	}

	return func(yield func(string) bool) {
		doc.Find(e.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			raw, ok := s.Attr(e.attr)
			if !ok {
				return true
			}
			link, ok := resolveLink(base, raw)
			if !ok {
				return true
			}
			return yield(link)
		})
	}, nil
}

// checkSelector reports a selector that does not compile. goquery itself
// treats such selectors as matching nothing.
func checkSelector(selector string) error {
	if _, err := cascadia.Compile(selector); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidSelector, selector, err)
	}
	return nil
}
