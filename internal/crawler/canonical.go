package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// Canonicalize returns the string form of raw used as the dedup key.
//
// The fragment is dropped, scheme and host are lower-cased, default ports
// are removed, and an absolute URL with an empty path gets "/" so that
// "http://example.com" and "http://example.com/" are the same key.
// The query string is kept as is. Input containing whitespace, and a URL
// with a scheme but no host (such as "http://"), is rejected with
// ErrInvalidSeed. Scheme-less values such as "A" are kept as opaque keys.
func Canonicalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptySeed
	}

	if strings.ContainsFunc(raw, unicode.IsSpace) {
		return "", fmt.Errorf("%w: %q contains whitespace", ErrInvalidSeed, raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if u.Scheme != "" && u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidSeed, raw)
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	switch {
	case u.Scheme == "http" && u.Port() == "80":
		u.Host = u.Hostname()
	case u.Scheme == "https" && u.Port() == "443":
		u.Host = u.Hostname()
	}

	if u.Host != "" && u.Path == "" {
		u.Path = "/"
	}

	out := u.String()
	if out == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeed, raw)
	}
	return out, nil
}
