// Package scraper drives the page-by-page, card-by-card crawl of the card
// catalog: listing pages, fetching card details, tracking statistics, and
// persisting resumable progress.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/manjikama/shoob.scraper/browser"
	"github.com/manjikama/shoob.scraper/config"
	"github.com/manjikama/shoob.scraper/models"
	"github.com/manjikama/shoob.scraper/parser"
	"github.com/manjikama/shoob.scraper/store"
)

// Scraper is the crawl orchestrator. It owns the crawl state exclusively;
// cards and pages are processed strictly sequentially against the one
// shared browser session.
type Scraper struct {
	cfg      *config.Config
	session  browser.Session
	store    *store.Store
	strategy parser.Strategy
	Metrics  *Metrics

	sessionID string
	siteURL   *url.URL
	startTime time.Time

	scrapedPages map[int]struct{}
	failedCards  map[string]struct{}
	allCards     []*models.CardRecord

	// seen makes de-duplication by card id explicit: a card recovered via
	// the failed-card backlog cannot be appended a second time if a page
	// retry also yields it.
	seen *lru.Cache[string, struct{}]

	pagesScraped      int
	pagesSkipped      int
	cardsExtracted    int
	errorCount        int
	consecutiveErrors int

	waits       models.WaitTimes
	totalWait   float64
	interrupted bool
}

// NewScraper builds a scraper instance configured from cfg. The session and
// store are owned by the caller but driven exclusively by the scraper for
// the duration of Run.
func NewScraper(cfg *config.Config, session browser.Session, st *store.Store) (*Scraper, error) {
	siteURL, err := url.Parse(cfg.SiteURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	if siteURL.Host == "" {
		return nil, fmt.Errorf("site url must include a host")
	}

	seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}

	return &Scraper{
		cfg:     cfg,
		session: session,
		store:   st,
		strategy: parser.NewStrategy(cfg.Strategy, parser.Options{
			CleanText: cfg.CleanText,
			APIBase:   cfg.APIBase,
			ImageSize: cfg.ImageSize,
		}),
		Metrics:      NewMetrics(),
		sessionID:    fmt.Sprintf("session_%d", time.Now().Unix()),
		siteURL:      siteURL,
		scrapedPages: make(map[int]struct{}),
		failedCards:  make(map[string]struct{}),
		seen:         seen,
	}, nil
}

// Run executes the crawl over the configured page range. Card and page
// failures are absorbed and counted; only the consecutive-error ceiling
// stops the run early. Cancelling ctx triggers a best-effort persist and a
// graceful stop, not an error.
func (s *Scraper) Run(ctx context.Context) (*models.Statistics, error) {
	s.startTime = time.Now()

	if s.cfg.EnableResume {
		for _, page := range s.store.Restore() {
			s.scrapedPages[page] = struct{}{}
		}
		if len(s.scrapedPages) > 0 {
			slog.Info("resume: found previously scraped pages", slog.Int("pages", len(s.scrapedPages)))
		}
	}

	var pending []int
	for page := s.cfg.StartPage; page <= s.cfg.EndPage; page++ {
		if _, done := s.scrapedPages[page]; done {
			s.pagesSkipped++
			s.Metrics.IncPage("skipped")
			continue
		}
		pending = append(pending, page)
	}

	slog.Info("starting crawl",
		slog.String("session_id", s.sessionID),
		slog.Int("start_page", s.cfg.StartPage),
		slog.Int("end_page", s.cfg.EndPage),
		slog.Int("pages_to_scrape", len(pending)),
		slog.Int("pages_skipped", s.pagesSkipped),
	)

	for i, pageNum := range pending {
		if ctx.Err() != nil {
			s.interrupted = true
			break
		}
		if s.consecutiveErrors >= s.cfg.MaxConsecutiveErrors {
			slog.Error("too many consecutive errors, stopping the run",
				slog.Int("limit", s.cfg.MaxConsecutiveErrors))
			break
		}

		slog.Info("scraping page", slog.Int("page", pageNum))
		if !s.scrapePage(ctx, pageNum) {
			// An interrupt that lands mid-page is a stop, not a failure.
			if s.interrupted {
				break
			}
			s.Metrics.IncPage("failed")
			if !s.cfg.ContinueOnError {
				break
			}
			s.sleep(ctx, s.cfg.ErrorCooldown)
			continue
		}
		if i < len(pending)-1 {
			s.sleep(ctx, s.cfg.MinimalDelay)
		}
	}

	if !s.interrupted && len(s.failedCards) > 0 && len(s.failedCards) <= s.cfg.MaxRetryBacklog {
		s.retryFailedCards(ctx)
	}

	snap := s.snapshot()
	if err := s.store.Flush(snap); err != nil {
		return &snap.Stats, fmt.Errorf("flush final output: %w", err)
	}

	if len(s.allCards) == 0 {
		slog.Warn("no cards were extracted")
	}
	if s.interrupted {
		slog.Info("crawl interrupted, progress saved", slog.Int("cards", len(s.allCards)))
	} else {
		slog.Info("crawl completed",
			slog.Int("pages_scraped", snap.Stats.PagesScraped),
			slog.Int("cards_extracted", snap.Stats.CardsExtracted),
			slog.Int("errors", snap.Stats.TotalErrors),
			slog.Float64("cards_per_second", snap.Stats.CardsPerSecond),
		)
	}
	return &snap.Stats, nil
}

// scrapePage handles one page end to end and reports whether it reached the
// Done state. Card-level failures never fail the page; only an exhausted
// page listing does.
func (s *Scraper) scrapePage(ctx context.Context, pageNum int) bool {
	links, ok := s.listCards(ctx, pageNum)
	if !ok {
		return false
	}

	extracted := 0
	for i, link := range links {
		if ctx.Err() != nil {
			s.interrupted = true
			return false
		}
		page := pageNum
		if card := s.fetchCard(ctx, link, &page); card != nil {
			if s.appendCard(card) {
				extracted++
			}
		}
		if i < len(links)-1 {
			s.sleep(ctx, s.cfg.MinimalDelay)
		}
	}

	// A page is done once its cards, possibly zero, have been processed,
	// regardless of individual card outcomes.
	s.scrapedPages[pageNum] = struct{}{}
	s.pagesScraped++
	s.Metrics.IncPage("scraped")
	s.persist()

	slog.Info("page completed",
		slog.Int("page", pageNum),
		slog.Int("cards", extracted),
		slog.Int("total_cards", len(s.allCards)),
	)
	return true
}

// retryFailedCards gives every backlogged card id one more attempt, with
// the originating page unknown. Cards that fail again stay recorded but are
// not retried another time this run.
func (s *Scraper) retryFailedCards(ctx context.Context) {
	ids := make([]string, 0, len(s.failedCards))
	for id := range s.failedCards {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	slog.Info("retrying failed cards", slog.Int("count", len(ids)))
	recovered := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			s.interrupted = true
			break
		}
		cardURL := s.cfg.SiteURL + "/cards/info/" + id
		if card := s.fetchCard(ctx, cardURL, nil); card != nil {
			if s.appendCard(card) {
				recovered++
			}
			delete(s.failedCards, id)
		}
		s.sleep(ctx, s.cfg.MinimalDelay)
	}
	slog.Info("failed-card retry finished",
		slog.Int("recovered", recovered),
		slog.Int("remaining", len(s.failedCards)),
	)
}

// appendCard adds a record to the accumulated set unless its card id was
// already captured this run. The extracted counter moves with the append,
// so a dropped duplicate never counts toward it.
func (s *Scraper) appendCard(card *models.CardRecord) bool {
	if card.CardID != "" && card.CardID != "unknown" {
		if _, dup := s.seen.Get(card.CardID); dup {
			s.Metrics.IncDuplicate()
			slog.Debug("duplicate card id, dropping", slog.String("card_id", card.CardID))
			return false
		}
		s.seen.Add(card.CardID, struct{}{})
	}
	s.allCards = append(s.allCards, card)
	s.cardsExtracted++
	s.Metrics.IncCards()
	return true
}

// FailedCardIDs returns the ids still in the failed backlog, sorted.
func (s *Scraper) FailedCardIDs() []string {
	ids := make([]string, 0, len(s.failedCards))
	for id := range s.failedCards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Scraper) snapshot() store.Snapshot {
	pages := make([]int, 0, len(s.scrapedPages))
	for page := range s.scrapedPages {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	return store.Snapshot{
		SessionID:    s.sessionID,
		ScrapedPages: pages,
		Cards:        s.allCards,
		Stats:        s.statistics(),
	}
}

func (s *Scraper) persist() {
	if err := s.store.Persist(s.snapshot()); err != nil {
		slog.Warn("persist failed", slog.Any("error", err))
	}
}

func (s *Scraper) statistics() models.Statistics {
	var elapsed float64
	if !s.startTime.IsZero() {
		elapsed = time.Since(s.startTime).Seconds()
	}

	var cardsPerSecond, pagesPerMinute float64
	if elapsed > 0 {
		cardsPerSecond = float64(s.cardsExtracted) / elapsed
		pagesPerMinute = float64(s.pagesScraped) / elapsed * 60
	}

	totalOperations := s.pagesScraped + s.errorCount
	var successRate float64
	if totalOperations > 0 {
		successRate = float64(s.pagesScraped) / float64(totalOperations) * 100
	}

	var averageCardsPerPage float64
	if s.pagesScraped > 0 {
		averageCardsPerPage = float64(s.cardsExtracted) / float64(s.pagesScraped)
	}

	var efficiency float64
	if elapsed > 0 {
		efficiency = (elapsed - s.totalWait) / elapsed * 100
	}

	return models.Statistics{
		SessionID:           s.sessionID,
		PagesScraped:        s.pagesScraped,
		PagesSkipped:        s.pagesSkipped,
		CardsExtracted:      s.cardsExtracted,
		TotalErrors:         s.errorCount,
		SuccessRate:         round2(successRate),
		ElapsedTime:         round2(elapsed),
		CardsPerSecond:      round2(cardsPerSecond),
		PagesPerMinute:      round2(pagesPerMinute),
		AverageCardsPerPage: round2(averageCardsPerPage),
		FailedCards:         len(s.failedCards),
		Interrupted:         s.interrupted,
		WaitAnalytics: models.WaitAnalytics{
			TotalWaitTime:   round2(s.totalWait),
			AveragePageLoad: round2(mean(s.waits.PageLoads)),
			AverageCardLoad: round2(mean(s.waits.CardLoads)),
			WaitEfficiency:  round2(efficiency),
		},
	}
}

func (s *Scraper) recordError(err error) {
	classified := classifyError(err)
	s.errorCount++
	s.consecutiveErrors++
	s.Metrics.IncError(errorTypeLabel(classified))
	slog.Warn("crawl error",
		slog.String("category", errorTypeLabel(classified)),
		slog.Any("error", err),
	)
}

// observeWait records a wait duration. Page and card loads span the element
// waits they contain, so only element waits accumulate into the total; the
// load phases feed their averages alone. Keeps the total within elapsed time
// and the efficiency within [0,100].
func (s *Scraper) observeWait(phase string, d time.Duration) {
	seconds := d.Seconds()
	switch phase {
	case "page_load":
		s.waits.PageLoads = append(s.waits.PageLoads, seconds)
	case "card_load":
		s.waits.CardLoads = append(s.waits.CardLoads, seconds)
	default:
		s.waits.ElementWaits = append(s.waits.ElementWaits, seconds)
		s.totalWait += seconds
	}
	s.Metrics.ObserveWait(phase, d)
}

// sleep pauses without outliving ctx.
func (s *Scraper) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
