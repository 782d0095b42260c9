package extract

import (
	"net/url"
	"strings"
)

// skippedPrefixes are href prefixes that never lead to a crawlable page.
var skippedPrefixes = []string{
	"javascript:",
	"mailto:",
	"tel:",
	"data:",
	"#",
}

// resolveLink resolves href against base. The second result is false for
// hrefs that cannot be crawled.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	lower := strings.ToLower(href)
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	resolved := u
	if base != nil {
		resolved = base.ResolveReference(u)
	}

	switch resolved.Scheme {
	case "", "http", "https":
	default:
		return "", false
	}
	return resolved.String(), true
}

// documentBase returns the URL relative links resolve against. baseHref is
// the value of the document's <base href>, which may itself be relative.
func documentBase(pageURL, baseHref string) (*url.URL, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	baseHref = strings.TrimSpace(baseHref)
	if baseHref == "" {
		return base, nil
	}
	ref, err := url.Parse(baseHref)
	if err != nil {
		return base, nil
	}
	return base.ResolveReference(ref), nil
}
