// Package extract provides crawler.LinkExtractor implementations for HTML pages.
//
// HTMLExtractor walks the document with golang.org/x/net/html and collects
// navigational links. SelectorExtractor uses CSS selectors through
// github.com/PuerkitoBio/goquery for sites whose interesting links are best
// described by markup structure.
//
// Both parse the page once in Extract and return a sequence that walks the
// parsed document again on every iteration, so the sequence can be ranged
// over more than once. Relative links resolve against the page's final URL,
// or against the document's <base href> when present.
package extract
