package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/nao1215/crawlpool/internal/batch"
	"github.com/nao1215/crawlpool/internal/config"
	"github.com/nao1215/crawlpool/internal/crawler"
	"github.com/nao1215/crawlpool/internal/database"
	"github.com/nao1215/crawlpool/internal/extract"
	"github.com/nao1215/crawlpool/internal/fetch"
	"github.com/nao1215/crawlpool/internal/log"
	"github.com/nao1215/crawlpool/internal/report"
	"github.com/nao1215/crawlpool/internal/tor"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl web sites starting from seed URLs",
		Long: `Crawl fetches every URL reachable from each seed up to a maximum depth.

Each seed runs in its own crawl session with a pool of workers. A URL is
fetched at most once per session. The session ends when no work is left,
when the overall timeout expires, or on Ctrl-C; partial results are still
printed and stored.

Examples:
  # Crawl a site two links deep with 5 workers
  crawlpool crawl https://example.com/

  # Stay on the seed host, skip PDFs, stop after 30 seconds
  crawlpool crawl --same-host --ignore '*.pdf' -t 30s https://example.com/

  # Crawl several seeds, three at a time, and write a Markdown summary
  crawlpool crawl -b 3 -m -o summary.md https://a.example/ https://b.example/

  # Crawl an onion service through an embedded Tor daemon
  crawlpool crawl --tor --onion-only http://<address>.onion/

  # Use an existing SOCKS5 proxy
  crawlpool crawl --proxy 127.0.0.1:9050 https://example.com/`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Engine flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent workers per seed")
	cmd.Flags().IntP("depth", "d", config.DefaultDepth,
		"Maximum link depth from the seed (0 fetches only the seed)")
	cmd.Flags().Duration("fetch-timeout", config.DefaultFetchTimeout,
		"Timeout for a single page fetch")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Overall timeout for one crawl session")

	// Fetch and scope flags
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().Bool("same-host", false,
		"Only follow links on the seed's host")
	cmd.Flags().StringSlice("ignore", nil,
		"URL path glob patterns to skip (repeatable)")
	cmd.Flags().StringSlice("follow", nil,
		"Only follow URL paths matching these glob patterns (repeatable)")
	cmd.Flags().String("extractor", config.ExtractorHTML,
		"Link extractor: html or selector")
	cmd.Flags().String("selector", "",
		"CSS selector for --extractor selector (default \"a[href]\")")

	// Transport flags
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route requests through it")
	cmd.Flags().Bool("onion-only", false,
		"Only crawl valid v3 .onion hosts")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Seed flags
	cmd.Flags().StringP("list", "l", "",
		"File with one seed URL per line")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .crawlpool in current or home directory)")

	// Report and history flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write summaries to the given file (creates directories if needed)")
	cmd.Flags().Bool("progress", false,
		"Print every fetched or failed URL while crawling")
	cmd.Flags().Bool("no-db", false,
		"Do not store summaries in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling crawl")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from defaults, CRAWLPOOL_* variables, flags
// and the config file, in that order of precedence (later wins).
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	flags := cmd.Flags()
	var errs []error
	setInt := func(name string, dst *int) {
		if flags.Changed(name) {
			v, err := flags.GetInt(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	setInt64 := func(name string, dst *int64) {
		if flags.Changed(name) {
			v, err := flags.GetInt64(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	setString := func(name string, dst *string) {
		if flags.Changed(name) {
			v, err := flags.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	getBool := func(name string) bool {
		v, err := flags.GetBool(name)
		errs = append(errs, err)
		return v
	}
	getStrings := func(name string) []string {
		v, err := flags.GetStringSlice(name)
		errs = append(errs, err)
		return v
	}

	setInt("workers", &cfg.Workers)
	setInt("depth", &cfg.Depth)
	setInt("batch", &cfg.BatchSize)
	setInt64("max-body-size", &cfg.MaxBodySize)
	setString("user-agent", &cfg.UserAgent)
	setString("proxy", &cfg.ProxyAddress)
	setString("db-dir", &cfg.DBDir)
	setString("extractor", &cfg.Extractor)
	setString("selector", &cfg.Selector)
	setString("config", &cfg.ConfigFilePath)
	setString("output", &cfg.ReportFile)
	if flags.Changed("fetch-timeout") {
		v, err := flags.GetDuration("fetch-timeout")
		errs = append(errs, err)
		cfg.FetchTimeout = v
	}
	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		errs = append(errs, err)
		cfg.Timeout = v
	}
	if flags.Changed("tor-timeout") {
		v, err := flags.GetDuration("tor-timeout")
		errs = append(errs, err)
		cfg.TorStartupTimeout = v
	}

	cfg.SameHost = getBool("same-host")
	cfg.UseTor = getBool("tor")
	cfg.OnionOnly = getBool("onion-only")
	cfg.JSONReport = getBool("json")
	cfg.MarkdownReport = getBool("markdown")
	cfg.Progress = getBool("progress")
	cfg.SaveToDB = !getBool("no-db")
	cfg.IgnorePatterns = getStrings("ignore")
	cfg.FollowPatterns = getStrings("follow")
	cfg.Verbose = getVerboseFlag(cmd)

	listFile, err := flags.GetString("list")
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	cfg.Seeds = append(cfg.Seeds, args...)
	if listFile != "" {
		seeds, err := readSeedList(listFile)
		if err != nil {
			return nil, err
		}
		cfg.Seeds = append(cfg.Seeds, seeds...)
	}

	// An explicitly given config file must exist; the default search may
	// find nothing.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	return cfg, nil
}

// readSeedList reads one seed per line, skipping blank lines and # comments.
func readSeedList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided seed list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open seed list: %w", err)
	}
	defer f.Close()

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seed list: %w", err)
	}
	return seeds, nil
}

// runCrawl crawls every seed and writes one summary per seed.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	if cfg.OnionOnly {
		for _, seed := range cfg.Seeds {
			if err := checkOnionSeed(seed); err != nil {
				return fmt.Errorf("seed %q: %w", seed, err)
			}
		}
	}

	client, stopTransport, err := setupTransport(ctx, cfg, logger, stderr)
	if err != nil {
		return err
	}
	defer stopTransport()

	var db *database.CrawlDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()
	writer := newReportWriter(cfg, output)

	processor := batch.NewProcessor(
		newCrawlFunc(cfg, client, logger, stderr),
		batch.WithConcurrency(cfg.BatchSize),
		batch.WithLogger(logger),
	)

	var (
		mu     sync.Mutex
		failed int
	)
	err = processor.ProcessBatchWithCallback(ctx, cfg.Seeds, func(r batch.Result) {
		mu.Lock()
		defer mu.Unlock()

		if r.Err != nil {
			failed++
			fmt.Fprintf(stderr, "crawl %s: %v\n", r.Seed, r.Err)
			return
		}
		if _, err := writer.Write(r.Summary); err != nil {
			logger.Error("failed to write summary", "seed", r.Seed, "error", err)
		}
		// A cancelled crawl still has a partial summary worth keeping.
		if err := saveSummary(context.WithoutCancel(ctx), db, r.Summary, logger); err != nil {
			logger.Error("failed to save summary", "seed", r.Seed, "error", err)
		}
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d seeds could not be crawled", failed, len(cfg.Seeds))
	}
	return nil
}

// newCrawlFunc returns the per-seed crawl used by the batch processor.
// Every call builds its own fetcher, extractor, filter and coordinator.
func newCrawlFunc(cfg *config.Config, client *http.Client, logger *slog.Logger, progress io.Writer) batch.CrawlFunc {
	return func(ctx context.Context, seed string) (*crawler.Summary, error) {
		canonical, err := crawler.Canonicalize(seed)
		if err != nil {
			// Let the coordinator report the seed error.
			canonical = seed
		}
		host := seedHost(canonical)
		site := cfg.Site(host)

		extractor, err := extract.New(cfg.Extractor, cfg.Selector)
		if err != nil {
			return nil, err
		}
		filter := newFilter(cfg, canonical, site)
		fetcher := fetch.New(append(fetcherOptions(cfg, client, host, site), fetch.WithRedirectFilter(filter.Allow))...)

		opts := []crawler.Option{
			crawler.WithLogger(logger),
			crawler.WithFilter(filter),
		}
		if cfg.Progress {
			opts = append(opts, crawler.WithResultHandler(progressPrinter(progress)))
		}

		return crawler.Crawl(ctx, seed, cfg.CrawlConfig(host), fetcher, extractor, opts...)
	}
}

// fetcherOptions builds the fetcher options for a seed on host. Cookies and
// headers from the config file are only sent to the host they belong to.
func fetcherOptions(cfg *config.Config, client *http.Client, host string, site config.SiteConfig) []fetch.Option {
	opts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	}
	if client != nil {
		opts = append(opts, fetch.WithClient(client))
	}
	if cfg.SiteConfigs != nil {
		opts = append(opts, fetch.WithHeaders(cfg.SiteConfigs.Defaults.Headers))
		for other := range cfg.SiteConfigs.Sites {
			opts = append(opts, fetch.WithHostHeaders(other, siteHeaders(cfg.SiteConfigs.GetSiteConfig(other))))
		}
	}
	if host != "" {
		opts = append(opts, fetch.WithHostHeaders(host, siteHeaders(site)))
	}
	return opts
}

// siteHeaders returns the site's headers with its cookie folded in.
func siteHeaders(site config.SiteConfig) map[string]string {
	headers := make(map[string]string, len(site.Headers)+1)
	maps.Copy(headers, site.Headers)
	if site.Cookie != "" {
		headers["Cookie"] = site.Cookie
	}
	return headers
}

// newFilter builds the scope filter for a seed.
func newFilter(cfg *config.Config, seed string, site config.SiteConfig) crawler.Filter {
	opts := []crawler.PatternFilterOption{
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
	}
	if cfg.SameHost {
		opts = append(opts, crawler.WithSameHost(seed))
	}
	patterns := crawler.NewPatternFilter(opts...)

	// Through a proxy, malformed onion links can only fail; drop them early.
	proxied := cfg.UseTor || cfg.ProxyAddress != "" || cfg.OnionOnly
	if !proxied {
		return patterns
	}
	return crawler.FilterFunc(func(u string) bool {
		if cfg.OnionOnly && !tor.IsOnionHost(seedHost(u)) {
			return false
		}
		return tor.AllowOnionURL(u) && patterns.Allow(u)
	})
}

// checkOnionSeed returns an error unless seed is on a valid onion service.
func checkOnionSeed(seed string) error {
	host := seedHost(seed)
	if !tor.IsOnionHost(host) {
		return tor.ErrInvalidOnionAddress
	}
	return tor.CheckOnionHost(host)
}

// seedHost returns the lower-cased host name of a URL without the port.
func seedHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// progressPrinter returns a result handler that prints one line per item.
func progressPrinter(w io.Writer) func(crawler.Result) {
	var mu sync.Mutex
	return func(r crawler.Result) {
		mu.Lock()
		defer mu.Unlock()

		switch {
		case r.Page != nil:
			fmt.Fprintf(w, "  [%d] %s (depth %d, %d new)\n",
				r.Page.StatusCode, r.Page.URL, r.Page.Depth, r.Page.Admitted)
		case r.Failure != nil:
			fmt.Fprintf(w, "  [%s] %s (depth %d)\n",
				r.Failure.Reason, r.Failure.URL, r.Failure.Depth)
		}
	}
}

// setupTransport returns the HTTP client for the configured transport and a
// function that releases it. A nil client means direct connections.
func setupTransport(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*http.Client, func(), error) {
	noop := func() {}

	switch {
	case cfg.UseTor:
		fmt.Fprintln(out, "Starting embedded Tor daemon...")
		fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

		embedded := tor.NewEmbeddedTor(tor.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := embedded.Start(ctx); err != nil {
			return nil, noop, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		stop := func() {
			logger.Debug("stopping embedded Tor daemon")
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}

		client, err := embedded.NewClient(tor.WithInsecureTLS(cfg.OnionOnly))
		if err != nil {
			stop()
			return nil, noop, fmt.Errorf("failed to create Tor client: %w", err)
		}
		if err := client.CheckConnection(ctx).Err(); err != nil {
			stop()
			return nil, noop, fmt.Errorf("embedded Tor proxy check failed: %w", err)
		}
		fmt.Fprintf(out, "Embedded Tor daemon started (SOCKS proxy %s)\n\n", embedded.SocksAddr())
		return client.NewHTTPClient(), stop, nil

	case cfg.ProxyAddress != "":
		client, err := tor.NewClient(cfg.ProxyAddress, tor.WithInsecureTLS(cfg.OnionOnly))
		if err != nil {
			return nil, noop, err
		}
		if err := client.CheckConnection(ctx).Err(); err != nil {
			return nil, noop, fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, err)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		return client.NewHTTPClient(), noop, nil

	default:
		return nil, noop, nil
	}
}

// openOutput opens path for writing, or returns fallback when path is empty.
func openOutput(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Summaries may contain cookies in URLs; keep them owner-readable.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newReportWriter returns the writer for the configured output format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// saveSummary stores the summary if a database is open.
func saveSummary(ctx context.Context, db *database.CrawlDB, summary *crawler.Summary, logger *slog.Logger) error {
	if db == nil {
		return nil
	}
	if err := db.SaveSummary(ctx, summary); err != nil {
		return err
	}
	logger.Debug("summary saved", "session", summary.SessionID)
	return nil
}
