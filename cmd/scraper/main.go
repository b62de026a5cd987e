package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/manjikama/shoob.scraper/browser"
	"github.com/manjikama/shoob.scraper/config"
	"github.com/manjikama/shoob.scraper/models"
	"github.com/manjikama/shoob.scraper/scraper"
	"github.com/manjikama/shoob.scraper/store"
)

func main() {
	defaultCfg := config.DefaultConfig()

	startDefault := defaultCfg.StartPage
	if value, ok, err := config.EnvInt("SCRAPER_START_PAGE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_START_PAGE: %v\n", err)
		os.Exit(1)
	} else if ok {
		startDefault = value
	}
	endDefault := defaultCfg.EndPage
	if value, ok, err := config.EnvInt("SCRAPER_END_PAGE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_END_PAGE: %v\n", err)
		os.Exit(1)
	} else if ok {
		endDefault = value
	}
	outputDefault := defaultCfg.OutputDir
	if value, ok := config.EnvString("SCRAPER_OUTPUT_DIR"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	startPage := flag.Int("start", startDefault, "First catalog page to scrape")
	endPage := flag.Int("end", endDefault, "Last catalog page to scrape")
	resume := flag.Bool("resume", defaultCfg.EnableResume, "Skip pages recorded as done in a prior run")
	liveSave := flag.Bool("live-save", defaultCfg.LiveSave, "Rewrite the full output file after every page")
	outputDir := flag.String("output-dir", outputDefault, "Directory for output and progress files")
	strategy := flag.String("strategy", defaultCfg.Strategy, "Extraction strategy: meta or markup")
	includeMetadata := flag.Bool("include-metadata", defaultCfg.IncludeMetadata, "Embed the raw meta-tag map in each record")
	retryAttempts := flag.Int("retries", defaultCfg.RetryAttempts, "Navigation attempts per page or card")
	maxConsecutive := flag.Int("max-consecutive-errors", defaultCfg.MaxConsecutiveErrors, "Consecutive-error ceiling before the run aborts")
	headless := flag.Bool("headless", defaultCfg.Headless, "Run the browser headless")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	summary := flag.Bool("summary", false, "Print a summary of previously scraped data and exit")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.StartPage = *startPage
	cfg.EndPage = *endPage
	cfg.EnableResume = *resume
	cfg.LiveSave = *liveSave
	cfg.OutputDir = *outputDir
	cfg.Strategy = *strategy
	cfg.IncludeMetadata = *includeMetadata
	cfg.RetryAttempts = *retryAttempts
	cfg.MaxConsecutiveErrors = *maxConsecutive
	cfg.Headless = *headless
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	st, err := store.New(cfg)
	if err != nil {
		slog.Error("initialising store", slog.Any("error", err))
		os.Exit(1)
	}

	if *summary {
		printStoredSummary(st)
		return
	}

	printBanner()
	slog.Info("starting card crawl",
		slog.String("catalog", cfg.CatalogURL),
		slog.Int("start_page", cfg.StartPage),
		slog.Int("end_page", cfg.EndPage),
		slog.String("strategy", cfg.Strategy),
	)

	session, err := browser.NewRodSession(cfg)
	if err != nil {
		slog.Error("launching browser session", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Error("close browser session", slog.Any("error", err))
		}
	}()

	s, err := scraper.NewScraper(cfg, session, st)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current operation")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	stats, err := s.Run(ctx)
	if err != nil {
		slog.Error("crawl failed", slog.Any("error", err))
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(stats, s.FailedCardIDs())

	// Partial success is success: once any card was captured, errors along
	// the way do not fail the process.
	if stats.CardsExtracted == 0 && err != nil {
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Println("==============================================")
	fmt.Println(" shoob.gg card catalog scraper")
	fmt.Println("  event-driven waits, live-save, resumable")
	fmt.Println("==============================================")
}

func printSummary(stats *models.Statistics, failedIDs []string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	if stats.Interrupted {
		fmt.Println("Crawl interrupted (progress saved)")
	} else {
		fmt.Println("Crawl complete")
	}
	fmt.Printf("  Pages scraped:  %d\n", stats.PagesScraped)
	fmt.Printf("  Pages skipped:  %d\n", stats.PagesSkipped)
	fmt.Printf("  Cards:          %d\n", stats.CardsExtracted)
	fmt.Printf("  Errors:         %d\n", stats.TotalErrors)
	fmt.Printf("  Success rate:   %.2f%%\n", stats.SuccessRate)
	fmt.Printf("  Duration:       %.2fs\n", stats.ElapsedTime)
	fmt.Printf("  Cards/sec:      %.2f\n", stats.CardsPerSecond)
	fmt.Printf("  Pages/min:      %.2f\n", stats.PagesPerMinute)
	if len(failedIDs) > 0 {
		fmt.Printf("  Failed cards:   %d %v\n", len(failedIDs), failedIDs)
	}
	wait := stats.WaitAnalytics
	fmt.Printf("  Wait total:     %.2fs (page avg %.2fs, card avg %.2fs, efficiency %.1f%%)\n",
		wait.TotalWaitTime, wait.AveragePageLoad, wait.AverageCardLoad, wait.WaitEfficiency)
	fmt.Println(separator)
}

func printStoredSummary(st *store.Store) {
	summary, err := st.Summarize()
	if err != nil {
		slog.Error("no stored data to summarise", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println("Stored data summary")
	fmt.Printf("  Output file:     %s\n", summary.DataPath)
	fmt.Printf("  Total cards:     %d\n", summary.TotalCards)
	fmt.Printf("  Completed pages: %d\n", summary.CompletedPages)
	fmt.Printf("  Last updated:    %s\n", summary.LastUpdated)
	if summary.FileSizeBytes > 0 {
		fmt.Printf("  File size:       %.2f MB\n", float64(summary.FileSizeBytes)/(1024*1024))
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
