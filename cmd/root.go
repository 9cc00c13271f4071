package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"charm.land/log/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/howtotalktogirlsatparties/dod-spend/cache"
	"github.com/howtotalktogirlsatparties/dod-spend/config"
	"github.com/howtotalktogirlsatparties/dod-spend/fetch"
	"github.com/howtotalktogirlsatparties/dod-spend/output"
	"github.com/howtotalktogirlsatparties/dod-spend/pdf"
	"github.com/howtotalktogirlsatparties/dod-spend/search"
	"github.com/howtotalktogirlsatparties/dod-spend/tui"
)

const wordWrap = 80

type flags struct {
	ConfigPath     string
	Queries        []string
	Provider       string
	MaxResults     int
	Workers        int
	QueryWorkers   int
	RateCalls      int
	RatePeriod     float64
	Retries        int
	Timeout        int
	CachePath      string
	CacheBackend   string
	NoContentCheck bool
	OutputPath     string
	Format         string
	Browse         bool
	Plain          bool
	Verbose        bool
}

func NewRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "dod-spend [queries...]",
		Short: "Search the web for PDF documents and validate them",
		Long: "A concurrent search pipeline that turns web queries into validated PDF links.\n" +
			"Direct .pdf results are checked by content type (and magic bytes); other\n" +
			"results are fetched and scraped for PDF hyperlinks. Processed URLs are\n" +
			"cached across runs so nothing is fetched twice.",
		Example: `  # Run the built-in FY 2024 / FY 2025 DoD budget queries
  dod-spend

  # Custom queries, "Title=search text" or bare text
  dod-spend "Navy=US Navy shipbuilding budget filetype:pdf"
  dod-spend -q "Army=US Army procurement filetype:pdf" -q "missile defense filetype:pdf"

  # Pipe queries from a file
  cat queries.txt | dod-spend

  # JSON report, leveldb cache, browse results when done
  dod-spend -f json --cache-backend leveldb --cache ./urlcache -b`,
		RunE: func(c *cobra.Command, args []string) error {
			return run(c.Context(), c, f, args)
		},
		// Allow positional args (queries) even though fang adds subcommands.
		TraverseChildren: true,
	}

	cmd.Flags().StringVarP(&f.ConfigPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringArrayVarP(&f.Queries, "query", "q", nil, `Query to run, "Title=text" or bare text (repeatable)`)
	cmd.Flags().StringVar(&f.Provider, "provider", "duckduckgo", "Search provider (google or duckduckgo)")
	cmd.Flags().IntVarP(&f.MaxResults, "max-results", "n", 10, "Results to request per query")
	cmd.Flags().IntVarP(&f.Workers, "workers", "w", 8, "Max in-flight network requests")
	cmd.Flags().IntVar(&f.QueryWorkers, "query-workers", 4, "Queries processed concurrently")
	cmd.Flags().IntVar(&f.RateCalls, "rate-calls", 10, "Requests allowed per rate window")
	cmd.Flags().Float64Var(&f.RatePeriod, "rate-period", 1.0, "Rate window in seconds")
	cmd.Flags().IntVar(&f.Retries, "retries", 3, "Attempts per request")
	cmd.Flags().IntVar(&f.Timeout, "timeout", 15, "Request timeout in seconds")
	cmd.Flags().StringVar(&f.CachePath, "cache", "pdf_url_cache.txt", "Processed-URL cache path")
	cmd.Flags().StringVar(&f.CacheBackend, "cache-backend", "file", "Cache backend (file, leveldb or memory)")
	cmd.Flags().BoolVar(&f.NoContentCheck, "no-content-check", false, "Skip the %PDF magic-byte check")
	cmd.Flags().StringVarP(&f.OutputPath, "output", "o", "dod_spending_pdfs.txt", "Report file path")
	cmd.Flags().StringVarP(&f.Format, "format", "f", "text", "Report format (text or json)")
	cmd.Flags().BoolVarP(&f.Browse, "browse", "b", false, "Browse results interactively when done")
	cmd.Flags().BoolVar(&f.Plain, "plain", false, "Log progress instead of the TUI")
	cmd.Flags().BoolVarP(&f.Verbose, "verbose", "v", false, "Debug logging")

	return cmd
}

func run(ctx context.Context, c *cobra.Command, f *flags, args []string) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if f.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := config.LoadEnv(); err != nil {
		logger.Warn("Skipping env file", "err", err)
	}

	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, f, c)

	if extra := collectQueries(append(f.Queries, args...)); len(extra) > 0 {
		cfg.Queries = extra
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	limiter := fetch.NewLimiter(cfg.RateLimit.Calls, cfg.RateLimit.Period())
	session := fetch.NewSession(fetch.SessionOptions{
		Limiter: limiter,
		Retry: fetch.RetryPolicy{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay(),
			MaxDelay:     cfg.Retry.MaxDelay(),
			Multiplier:   cfg.Retry.Multiplier,
		},
		Timeout:   cfg.Timeout(),
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	})
	defer session.CloseIdle()

	store, err := cache.Open(cfg.Cache.Backend, cfg.Cache.Path, logger)
	if err != nil {
		return fmt.Errorf("open url cache: %w", err)
	}
	defer store.Close()

	provider, err := search.NewProvider(cfg.Provider, session, logger)
	if err != nil {
		return err
	}

	opts := search.Options{
		Provider:   provider,
		Session:    session,
		Cache:      store,
		Validator:  pdf.NewValidator(session, cfg.CheckContent, logger),
		MaxResults: cfg.MaxResults,
		Gate:       semaphore.NewWeighted(int64(cfg.Workers)),
		Logger:     logger,
	}

	queries, order := buildQueries(cfg.Queries)

	var report search.Report
	if f.Plain {
		report = tui.RunPlain(ctx, queries, cfg.QueryWorkers, opts)
	} else {
		report, err = tui.RunWithProgress(ctx, queries, cfg.QueryWorkers, opts)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
	}
	if report == nil {
		// TUI quit before the crawl finished.
		return nil
	}

	if f.Browse && tui.IsTTY() {
		if err := output.WriteReport(cfg.Output.Path, report, order, cfg.Output.Format); err != nil {
			logger.Error("Report file not written", "err", err)
		}
		return tui.RunBrowser(report, order)
	}

	if err := output.RenderTerminal(os.Stdout, report, order, wordWrap); err != nil {
		logger.Warn("Terminal render failed", "err", err)
	}
	return output.WriteReport(cfg.Output.Path, report, order, cfg.Output.Format)
}

// applyFlags overrides config values with flags the user set explicitly.
func applyFlags(cfg *config.Config, f *flags, c *cobra.Command) {
	set := c.Flags().Changed

	if set("provider") {
		cfg.Provider = f.Provider
	}
	if set("max-results") {
		cfg.MaxResults = f.MaxResults
	}
	if set("workers") {
		cfg.Workers = f.Workers
	}
	if set("query-workers") {
		cfg.QueryWorkers = f.QueryWorkers
	}
	if set("rate-calls") {
		cfg.RateLimit.Calls = f.RateCalls
	}
	if set("rate-period") {
		cfg.RateLimit.PeriodSec = f.RatePeriod
	}
	if set("retries") {
		cfg.Retry.MaxAttempts = f.Retries
	}
	if set("timeout") {
		cfg.TimeoutSec = f.Timeout
	}
	if set("cache") {
		cfg.Cache.Path = f.CachePath
	}
	if set("cache-backend") {
		cfg.Cache.Backend = f.CacheBackend
	}
	if set("no-content-check") {
		cfg.CheckContent = !f.NoContentCheck
	}
	if set("output") {
		cfg.Output.Path = f.OutputPath
	}
	if set("format") {
		cfg.Output.Format = f.Format
	}
}

// buildQueries maps config queries to search queries and the report title
// order, dropping duplicate titles.
func buildQueries(configured []config.QueryConfig) ([]search.Query, []string) {
	queries := make([]search.Query, 0, len(configured))
	order := make([]string, 0, len(configured))
	seen := make(map[string]bool, len(configured))

	for _, q := range configured {
		title := q.Title
		if title == "" {
			title = q.Text
		}
		queries = append(queries, search.Query{Title: title, Text: q.Text})
		if !seen[title] {
			seen[title] = true
			order = append(order, title)
		}
	}
	return queries, order
}

// parseQuery splits a "Title=search text" argument; bare text titles itself.
func parseQuery(s string) config.QueryConfig {
	if title, text, ok := strings.Cut(s, "="); ok {
		title = strings.TrimSpace(title)
		text = strings.TrimSpace(text)
		if title != "" && text != "" {
			return config.QueryConfig{Title: title, Text: text}
		}
	}
	return config.QueryConfig{Text: strings.TrimSpace(s)}
}

// collectQueries gathers queries from arguments and, when piped, stdin.
// Any collected queries replace the configured list.
func collectQueries(args []string) []config.QueryConfig {
	queries := make([]config.QueryConfig, 0, len(args))
	for _, a := range args {
		if strings.TrimSpace(a) != "" {
			queries = append(queries, parseQuery(a))
		}
	}

	// Read from stdin if piped (not a terminal).
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				queries = append(queries, parseQuery(line))
			}
		}
	}

	return queries
}
