package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Options carries the extraction tunables shared by all strategies.
type Options struct {
	CleanText bool
	APIBase   string
	ImageSize string
}

// Fields is the result of extracting one card page.
type Fields struct {
	Name        string
	Series      string
	Creator     string
	Description string
	Tier        string
	LastUpdated string
	Images      ImageSet
}

// Strategy extracts card fields from page metadata and, when NeedsMarkup
// reports true, the raw page markup.
type Strategy interface {
	Extract(meta PageMeta, markup, cardID string) Fields
	NeedsMarkup() bool
}

// NewStrategy selects a strategy by name. "markup" layers structural
// extraction on top of the meta-tag path; anything else gets the fast
// meta-only path.
func NewStrategy(name string, opts Options) Strategy {
	if name == "markup" {
		return &MarkupStrategy{meta: MetaStrategy{Opts: opts}}
	}
	return &MetaStrategy{Opts: opts}
}

// MetaStrategy extracts every field from meta tags alone. Meta tags are
// present before full markup layout is guaranteed, so extraction can start
// as soon as minimal readiness is observed.
type MetaStrategy struct {
	Opts Options
}

// Extract implements Strategy.
func (s *MetaStrategy) Extract(meta PageMeta, _, cardID string) Fields {
	fields := Fields{
		Name:        Name(meta),
		Series:      Series(meta),
		Creator:     Creator(meta),
		Description: Description(meta),
		Tier:        Tier(meta),
		LastUpdated: meta.OGUpdatedTime,
		Images:      Images(meta, cardID, s.Opts.APIBase, s.Opts.ImageSize),
	}
	if s.Opts.CleanText {
		fields.Name = CleanText(fields.Name)
		fields.Series = CleanText(fields.Series)
		fields.Creator = CleanText(fields.Creator)
		fields.Description = CleanText(fields.Description)
	}
	return fields
}

// NeedsMarkup implements Strategy.
func (s *MetaStrategy) NeedsMarkup() bool { return false }

// MarkupStrategy runs the meta-tag path first and fills fields still at
// their defaults from the page markup. Slower per card, but recovers data
// on pages whose meta tags are stale or missing.
type MarkupStrategy struct {
	meta MetaStrategy
}

// Extract implements Strategy.
func (s *MarkupStrategy) Extract(meta PageMeta, markup, cardID string) Fields {
	fields := s.meta.Extract(meta, markup, cardID)
	if markup == "" {
		return fields
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return fields
	}

	if fields.Name == DefaultName {
		if name := firstText(doc, ".card-main h1", ".cardData h1", "h1"); name != "" {
			fields.Name = s.clean(name)
		}
	}
	if fields.Series == DefaultSeries {
		if series := lastBreadcrumb(doc); series != "" {
			fields.Series = s.clean(series)
		}
	}
	if fields.Creator == "" {
		// The visible card block repeats the "Card Maker:" crediting, so
		// the description patterns apply to its text too.
		if block := firstText(doc, ".card-info", ".cardData", ".card-main"); block != "" {
			fields.Creator = Creator(PageMeta{Description: block})
			if s.meta.Opts.CleanText {
				fields.Creator = CleanText(fields.Creator)
			}
		}
	}
	return fields
}

// NeedsMarkup implements Strategy.
func (s *MarkupStrategy) NeedsMarkup() bool { return true }

func (s *MarkupStrategy) clean(text string) string {
	if s.meta.Opts.CleanText {
		return CleanText(text)
	}
	return strings.TrimSpace(text)
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func lastBreadcrumb(doc *goquery.Document) string {
	links := doc.Find(".breadcrumb-new a, .breadcrumb a")
	if links.Length() < 2 {
		return ""
	}
	// The trail reads Home / Cards / <series>; only the tail names the
	// series.
	return strings.TrimSpace(links.Last().Text())
}
