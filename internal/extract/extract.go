package extract

import (
	"errors"
	"fmt"

	"github.com/nao1215/crawlpool/internal/crawler"
)

// Extractor kinds accepted by New.
const (
	KindHTML     = "html"
	KindSelector = "selector"
)

var (
	// ErrUnknownKind is returned by New for an unsupported extractor kind.
	ErrUnknownKind = errors.New("unknown extractor kind")

	// ErrInvalidSelector is returned for a CSS selector that does not compile.
	ErrInvalidSelector = errors.New("invalid CSS selector")
)

// New returns the extractor for kind. selector is only used by KindSelector;
// an empty selector selects DefaultSelector.
func New(kind, selector string) (crawler.LinkExtractor, error) {
	switch kind {
	case "", KindHTML:
		return NewHTMLExtractor(), nil
	case KindSelector:
		return NewSelectorExtractor(WithSelector(selector))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
