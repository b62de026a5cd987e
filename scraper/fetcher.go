package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/manjikama/shoob.scraper/browser"
	"github.com/manjikama/shoob.scraper/models"
	"github.com/manjikama/shoob.scraper/parser"
)

// metaTagScript batch-reads every meta tag plus the document title in one
// round trip, keyed by the attribute carrying the tag's name.
const metaTagScript = `() => {
	const meta = {};
	document.querySelectorAll('meta').forEach(tag => {
		const name = tag.getAttribute('name');
		const property = tag.getAttribute('property');
		const content = tag.getAttribute('content');
		if (content) {
			if (name) meta['name:' + name] = content;
			if (property) meta['property:' + property] = content;
		}
	});
	meta.page_title = document.title;
	return meta;
}`

// titleProbeScript checks whether the title-bearing tags carry content yet.
const titleProbeScript = `() => {
	const og = document.querySelector('meta[property="og:title"]');
	const title = document.querySelector('title');
	return {
		og_title: og ? (og.getAttribute('content') || '') : '',
		page_title: title ? (title.textContent || '') : '',
	};
}`

const (
	cardReadySelector = "meta[property='og:title'], title"
	pageBodySelector  = "body, main, .container"
)

// fetchCard navigates to one card page and returns its extracted record.
// pageNum is nil for retry-recovered cards. A nil return is the one true
// failure path: the card id has been added to the failed backlog.
func (s *Scraper) fetchCard(ctx context.Context, cardURL string, pageNum *int) *models.CardRecord {
	cardID := parser.CardID(cardURL)

	for attempt := 1; attempt <= s.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			s.Metrics.IncRetries()
		}

		start := time.Now()
		if err := s.session.Navigate(ctx, cardURL, browser.WaitLoad, s.cfg.PageLoadTimeout); err != nil {
			s.recordError(ErrNavigation{URL: cardURL, Err: err})
			if attempt < s.cfg.RetryAttempts {
				s.sleep(ctx, s.cfg.RetryDelay)
			}
			continue
		}

		s.waitForCardData(ctx)
		s.observeWait("card_load", time.Since(start))

		raw, err := s.session.Evaluate(metaTagScript)
		if err != nil {
			s.recordError(ErrEvaluate{Err: err})
			if attempt < s.cfg.RetryAttempts {
				s.sleep(ctx, s.cfg.RetryDelay)
			}
			continue
		}

		meta := parser.MetaFromMap(raw)
		var markup string
		if s.strategy.NeedsMarkup() {
			if markup, err = s.session.HTML(); err != nil {
				slog.Debug("could not read markup, extracting from meta only",
					slog.String("card_id", cardID), slog.Any("error", err))
			}
		}

		fields := s.strategy.Extract(meta, markup, cardID)
		record := s.buildRecord(cardID, cardURL, pageNum, fields, raw)

		if record.Complete() {
			s.consecutiveErrors = 0
		} else {
			slog.Debug("card has minimal data, keeping it", slog.String("card_id", cardID))
		}
		return record
	}

	slog.Warn("failed to extract card after all attempts", slog.String("card_id", cardID))
	s.failedCards[cardID] = struct{}{}
	return nil
}

// waitForCardData waits for the title-bearing meta to appear and its
// content to populate. Readiness here is best-effort: extraction proceeds
// regardless of the outcome, its fallbacks cope with missing data.
func (s *Scraper) waitForCardData(ctx context.Context) {
	start := time.Now()
	defer func() { s.observeWait("element_wait", time.Since(start)) }()

	if s.session.WaitForElement(cardReadySelector, s.cfg.CardLoadTimeout) {
		s.sleep(ctx, s.cfg.SettleTime)
		if probe, err := s.session.Evaluate(titleProbeScript); err == nil {
			if probe["og_title"] == "" && probe["page_title"] == "" {
				// Content may still be populating; give it one more beat.
				s.sleep(ctx, s.cfg.SettleTime)
			}
		}
		return
	}

	if s.session.WaitForElement(pageBodySelector, 3*time.Second) {
		s.sleep(ctx, s.cfg.MinimalDelay)
	}
}

func (s *Scraper) buildRecord(cardID, cardURL string, pageNum *int, fields parser.Fields, raw map[string]string) *models.CardRecord {
	record := &models.CardRecord{
		CardID:              cardID,
		CardURL:             cardURL,
		PageNum:             pageNum,
		Name:                fields.Name,
		Tier:                fields.Tier,
		Series:              fields.Series,
		CharacterSource:     fields.Series,
		Creator:             fields.Creator,
		CardMaker:           fields.Creator,
		Description:         fields.Description,
		LastUpdated:         fields.LastUpdated,
		ImageURL:            fields.Images.ImageURL,
		HighResImageURL:     fields.Images.HighResImageURL,
		TwitterImage:        fields.Images.TwitterImage,
		OGImage:             fields.Images.OGImage,
		ExtractionTimestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if s.cfg.IncludeMetadata && len(raw) > 0 {
		record.Metadata = raw
	}
	return record
}
