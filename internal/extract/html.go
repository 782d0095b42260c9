package extract

import (
	"bytes"
	"fmt"
	"iter"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/crawlpool/internal/crawler"
)

// linkRels are the <link rel> values that point at other pages of a site.
var linkRels = map[string]bool{
	"alternate": true,
	"next":      true,
	"prev":      true,
}

// HTMLExtractor extracts navigational links from HTML documents.
//
// It collects <a href>, <area href>, <frame src>, <iframe src> and
// <link href> with rel alternate, next or prev. Script, image and
// stylesheet references are not followed.
//
// HTMLExtractor is safe for concurrent use.
type HTMLExtractor struct{}

// NewHTMLExtractor creates an HTMLExtractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract parses page and returns its links. Pages that are not HTML
// yield no links.
func (e *HTMLExtractor) Extract(page *crawler.Page) (iter.Seq[string], error) {
	if page == nil || !page.IsHTML() || len(page.Body) == 0 {
		return empty, nil
	}

	doc, err := html.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := documentBase(page.BaseURL(), findBaseHref(doc))
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", page.BaseURL(), err)
	}

	return func(yield func(string) bool) {
		walkLinks(doc, base, yield)
	}, nil
}

// walkLinks yields the links below n in document order. It returns false
// once yield asks to stop.
func walkLinks(n *html.Node, base *url.URL, yield func(string) bool) bool {
	if n.Type == html.ElementNode {
		if href, ok := linkTarget(n); ok {
			if link, ok := resolveLink(base, href); ok {
				if !yield(link) {
					return false
				}
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walkLinks(c, base, yield) {
			return false
		}
	}
	return true
}

// linkTarget returns the raw link carried by a navigational element.
func linkTarget(n *html.Node) (string, bool) {
	switch n.Data {
	case "a", "area":
		return getAttr(n, "href")
	case "frame", "iframe":
		return getAttr(n, "src")
	case "link":
		for _, rel := range strings.Fields(strings.ToLower(attrValue(n, "rel"))) {
			if linkRels[rel] {
				return getAttr(n, "href")
			}
		}
	}
	return "", false
}

// findBaseHref returns the href of the first <base> element.
func findBaseHref(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "base" {
		if href, ok := getAttr(n, "href"); ok {
			return href
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := findBaseHref(c); href != "" {
			return href
		}
	}
	return ""
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

func attrValue(n *html.Node, key string) string {
	v, _ := getAttr(n, key)
	return v
}

// empty is the sequence returned for pages without links.
func empty(func(string) bool) {}
