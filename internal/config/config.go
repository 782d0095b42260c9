package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/adrg/xdg"
	"github.com/nao1215/crawlpool/internal/crawler"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "crawlpool"

	// DefaultWorkers is the number of crawl workers per seed.
	DefaultWorkers = 5

	// DefaultDepth is the maximum link depth from the seed.
	DefaultDepth = 2

	// DefaultFetchTimeout bounds a single page fetch.
	DefaultFetchTimeout = 5 * time.Second

	// DefaultTimeout bounds a whole crawl session.
	DefaultTimeout = 60 * time.Second

	// DefaultBatchSize is the number of seeds crawled at the same time.
	DefaultBatchSize = 2

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout is how long the embedded Tor daemon may take
	// to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultUserAgent identifies crawlpool in HTTP requests.
	DefaultUserAgent = "crawlpool/1.0 (+https://github.com/nao1215/crawlpool)"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Link extractor names accepted by --extractor.
const (
	ExtractorHTML     = "html"
	ExtractorSelector = "selector"
)

// Config holds all options of the crawl command.
// It is populated from flags, the config file and the environment, and
// passed down explicitly instead of living in global state.
type Config struct {
	// Seeds are the start URLs. Each seed is crawled in its own session.
	Seeds []string

	// Workers is the number of concurrent workers per session.
	Workers int

	// Depth is the maximum link depth; 0 fetches only the seed.
	Depth int

	// FetchTimeout bounds one page fetch.
	FetchTimeout time.Duration

	// Timeout bounds one whole session.
	Timeout time.Duration

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// SameHost restricts the crawl to the seed's host.
	SameHost bool

	// IgnorePatterns are glob patterns for URL paths to skip.
	IgnorePatterns []string

	// FollowPatterns, when set, are the only URL paths followed.
	FollowPatterns []string

	// Extractor selects the link extractor (ExtractorHTML or ExtractorSelector).
	Extractor string

	// Selector is the CSS selector for ExtractorSelector.
	Selector string

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// ProxyAddress routes all requests through a SOCKS5 proxy (host:port).
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes requests through it.
	UseTor bool

	// OnionOnly restricts the crawl to valid v3 .onion hosts.
	OnionOnly bool

	// TorStartupTimeout is how long the embedded Tor daemon may take to start.
	TorStartupTimeout time.Duration

	// Verbose enables debug logging and detailed text reports.
	Verbose bool

	// Progress logs every processed work item.
	Progress bool

	// ConfigFilePath is an explicit path to the YAML config file.
	ConfigFilePath string

	// SiteConfigs holds the site settings loaded from the config file.
	SiteConfigs *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output.
	MarkdownReport bool

	// ReportFile is the output file; empty means stdout.
	ReportFile string

	// DBDir is the directory of the history database.
	DBDir string

	// SaveToDB stores every summary in the history database.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Workers:           DefaultWorkers,
		Depth:             DefaultDepth,
		FetchTimeout:      DefaultFetchTimeout,
		Timeout:           DefaultTimeout,
		BatchSize:         DefaultBatchSize,
		Extractor:         ExtractorHTML,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
	}
}

// XDGDataDir returns the XDG data directory for crawlpool.
// On Linux: ~/.local/share/crawlpool
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for crawlpool.
// On Linux: ~/.config/crawlpool
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	for _, seed := range c.Seeds {
		if !isHTTPURL(seed) {
			return fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
		}
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Depth < 0 {
		return ErrInvalidDepth
	}
	if c.FetchTimeout <= 0 || c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Extractor != ExtractorHTML && c.Extractor != ExtractorSelector {
		return ErrUnknownExtractor
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingTransport
	}
	return nil
}

// Site returns the effective site settings for host: the file's defaults
// and host entry merged over the command-line patterns.
func (c *Config) Site(host string) SiteConfig {
	site := SiteConfig{
		IgnorePatterns: c.IgnorePatterns,
		FollowPatterns: c.FollowPatterns,
	}
	if c.SiteConfigs == nil {
		return site
	}
	return merge(site, c.SiteConfigs.GetSiteConfig(host))
}

// CrawlConfig returns the engine configuration for a seed on host.
// Site entries may override depth and worker count.
func (c *Config) CrawlConfig(host string) crawler.Config {
	cfg := crawler.Config{
		WorkerCount:    c.Workers,
		MaxDepth:       c.Depth,
		FetchTimeout:   c.FetchTimeout,
		OverallTimeout: c.Timeout,
	}
	site := c.Site(host)
	if site.Depth > 0 {
		cfg.MaxDepth = site.Depth
	}
	if site.Workers > 0 {
		cfg.WorkerCount = site.Workers
	}
	return cfg
}

// isHTTPURL reports whether raw is an http or https URL with a host.
func isHTTPURL(raw string) bool {
	if strings.ContainsFunc(raw, unicode.IsSpace) {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}
