// Package models defines data structures for the card scraper.
package models

// CardRecord represents one extracted card. Optional fields carry the
// omitempty tag so that empty values are dropped from the output entirely,
// absence meaning "unknown" rather than "empty".
type CardRecord struct {
	CardID  string `json:"card_id"`
	CardURL string `json:"card_url"`
	// PageNum is nil for cards recovered through the failed-card retry
	// pass, where the originating page is no longer known.
	PageNum *int `json:"page_num"`

	Name        string `json:"name,omitempty"`
	Tier        string `json:"tier,omitempty"`
	Series      string `json:"series,omitempty"`
	Creator     string `json:"creator,omitempty"`
	Description string `json:"description,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`

	// CharacterSource and CardMaker duplicate Series and Creator under the
	// key names older consumers of the output file expect.
	CharacterSource string `json:"character_source,omitempty"`
	CardMaker       string `json:"card_maker,omitempty"`

	ImageURL        string `json:"image_url,omitempty"`
	HighResImageURL string `json:"high_res_image_url,omitempty"`
	TwitterImage    string `json:"twitter_image,omitempty"`
	OGImage         string `json:"og_image,omitempty"`

	ExtractionTimestamp string `json:"extraction_timestamp"`

	// Metadata holds the raw meta-tag map, included only when configured.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Complete reports whether the record carries enough data to count toward
// the extracted statistic. Incomplete records are still retained.
func (c *CardRecord) Complete() bool {
	return c.CardID != "" && (c.Name != "" || c.ImageURL != "")
}

// WaitTimes accumulates observed wait durations per category, in seconds.
type WaitTimes struct {
	PageLoads    []float64 `json:"page_loads"`
	CardLoads    []float64 `json:"card_loads"`
	ElementWaits []float64 `json:"element_waits"`
}

// WaitAnalytics summarises the wait accumulators for the final statistics.
type WaitAnalytics struct {
	TotalWaitTime   float64 `json:"total_wait_time"`
	AveragePageLoad float64 `json:"average_page_load"`
	AverageCardLoad float64 `json:"average_card_load"`
	WaitEfficiency  float64 `json:"wait_efficiency"`
}

// Statistics holds the computed result of one crawl run. It is embedded in
// the progress document and returned to the caller when the run finishes.
type Statistics struct {
	SessionID           string        `json:"session_id"`
	PagesScraped        int           `json:"pages_scraped"`
	PagesSkipped        int           `json:"pages_skipped"`
	CardsExtracted      int           `json:"cards_extracted"`
	TotalErrors         int           `json:"total_errors"`
	SuccessRate         float64       `json:"success_rate"`
	ElapsedTime         float64       `json:"elapsed_time"`
	CardsPerSecond      float64       `json:"cards_per_second"`
	PagesPerMinute      float64       `json:"pages_per_minute"`
	AverageCardsPerPage float64       `json:"average_cards_per_page"`
	FailedCards         int           `json:"failed_cards,omitempty"`
	Interrupted         bool          `json:"interrupted,omitempty"`
	WaitAnalytics       WaitAnalytics `json:"wait_time_analytics"`
}
