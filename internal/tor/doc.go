// Package tor routes crawler traffic through a SOCKS5 proxy such as Tor.
//
// Client wraps a golang.org/x/net/proxy SOCKS5 dialer and builds the
// *http.Client handed to the page fetcher. EmbeddedTor starts a private Tor
// daemon with github.com/nao1215/tornago for crawls run with --tor.
// The onion helpers validate v3 onion hosts so that seeds and links with a
// corrupted address are rejected before a fetch is spent on them.
package tor
