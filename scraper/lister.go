package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/manjikama/shoob.scraper/browser"
)

// listCards returns the deduplicated, ordered card URLs on a catalog page.
// The second return is false only when every attempt failed; an empty list
// from a clean load means the catalog has no more data and is not an error.
func (s *Scraper) listCards(ctx context.Context, pageNum int) ([]string, bool) {
	pageURL := fmt.Sprintf("%s?page=%d", s.cfg.CatalogURL, pageNum)

	for attempt := 1; attempt <= s.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			s.Metrics.IncRetries()
		}
		slog.Debug("listing page", slog.Int("page", pageNum), slog.Int("attempt", attempt))

		start := time.Now()
		if err := s.session.Navigate(ctx, pageURL, browser.WaitNetworkIdle, s.cfg.PageLoadTimeout); err != nil {
			s.recordError(ErrNavigation{URL: pageURL, Err: err})
			if attempt < s.cfg.RetryAttempts {
				s.sleep(ctx, s.cfg.RetryDelay)
			}
			continue
		}

		if !s.waitForListing(ctx) {
			s.recordError(ErrTimeout{Err: fmt.Errorf("listing not ready on page %d", pageNum)})
			if attempt < s.cfg.RetryAttempts {
				s.sleep(ctx, s.cfg.RetryDelay)
			}
			continue
		}
		s.observeWait("page_load", time.Since(start))

		links := s.collectCardLinks()
		if len(links) > 0 {
			slog.Info("found cards", slog.Int("page", pageNum), slog.Int("cards", len(links)))
			s.consecutiveErrors = 0
			return links, true
		}
		slog.Info("no cards on page", slog.Int("page", pageNum))
		return nil, true
	}

	slog.Error("failed to list page after all attempts", slog.Int("page", pageNum))
	return nil, false
}

// waitForListing confirms the listing rendered: at least one card link,
// then either a healthy batch of five or, after a settle delay, at least
// one survivor.
func (s *Scraper) waitForListing(ctx context.Context) bool {
	linkSelector := s.cfg.CardLinkSelectors[0]

	if !s.session.WaitForElement(linkSelector, s.cfg.CardLoadTimeout) {
		return false
	}
	s.sleep(ctx, s.cfg.SettleTime)

	count := s.session.CountElements(linkSelector)
	if count >= 5 {
		return true
	}
	if count == 0 {
		return false
	}
	// A sparse listing may still be streaming in.
	s.sleep(ctx, s.cfg.SettleTime)
	return s.session.CountElements(linkSelector) > 0
}

// collectCardLinks gathers hrefs for every configured selector, resolves
// them against the site root, and deduplicates preserving first-seen order.
func (s *Scraper) collectCardLinks() []string {
	var links []string
	seen := make(map[string]struct{})

	for _, selector := range s.cfg.CardLinkSelectors {
		for _, href := range s.session.AttributeAll(selector, "href") {
			resolved := s.resolveURL(href)
			if resolved == "" {
				continue
			}
			if _, dup := seen[resolved]; dup {
				continue
			}
			seen[resolved] = struct{}{}
			links = append(links, resolved)
		}
	}
	return links
}

func (s *Scraper) resolveURL(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return s.siteURL.ResolveReference(ref).String()
}
