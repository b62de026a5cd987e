// Package parser turns the semi-structured meta-tag and markup data of a
// card page into typed fields. Every extractor falls back through ordered
// strategies to a documented default; none of them fail.
package parser

import (
	"regexp"
	"strings"
)

// Defaults for fields no strategy could fill.
const (
	DefaultName   = "Unknown Card"
	DefaultSeries = "Unknown Series"
	DefaultTier   = "Unknown"
)

// namePlaceholder is the literal og:title the site serves before card data
// is populated; it never names a real card.
const namePlaceholder = "Card preview"

// descriptionBoilerplate marks the generic site description that carries no
// card-specific text.
const descriptionBoilerplate = "Here you can preview"

var (
	cardIDPattern = regexp.MustCompile(`/cards/info/([a-f0-9]+)`)

	// The description meta reads like "<name> from <series> Creators: -
	// Card Maker: <creator>", with literal \n escapes between segments.
	seriesPattern      = regexp.MustCompile(`from\s+([^\n\\]+?)(?:\n|\\n|Creators:|$)`)
	seriesCreatorsTail = regexp.MustCompile(`\s*Creators:.*`)
	seriesMakerTail    = regexp.MustCompile(`\s*-\s*Card Maker:.*`)

	creatorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Card Maker:\s*([^\n\\]+)`),
		regexp.MustCompile(`(?i)Creators:\s*-\s*Card Maker:\s*([^\n\\]+)`),
		regexp.MustCompile(`(?i)- Card Maker:\s*([^\n\\]+)`),
	}
	htmlEntity     = regexp.MustCompile(`&[^;]+;`)
	escapedTail    = regexp.MustCompile(`\\n.*`)
	tierInImageURL = regexp.MustCompile(`(?i)/cards/([0-9S])/`)
	tierToken      = regexp.MustCompile(`(?i)tier[:\s]*([0-9S]+)`)

	whitespaceRun  = regexp.MustCompile(`\s+`)
	controlChars   = regexp.MustCompile(`[\r\n\t]`)
	escapedNewline = regexp.MustCompile(`\\n`)
)

// CardID extracts the opaque card token from a card URL path. It is a pure
// function of the URL and falls back to "unknown" rather than failing.
func CardID(cardURL string) string {
	if m := cardIDPattern.FindStringSubmatch(cardURL); m != nil {
		return m[1]
	}
	return "unknown"
}

// Name resolves the card name: og:title first, then the page title up to
// its first | delimiter, rejecting the site's placeholder in both.
func Name(m PageMeta) string {
	if m.OGTitle != "" && m.OGTitle != namePlaceholder {
		return m.OGTitle
	}
	if m.PageTitle != "" && strings.Contains(m.PageTitle, "|") {
		name := strings.TrimSpace(strings.SplitN(m.PageTitle, "|", 2)[0])
		if name != "" && name != namePlaceholder {
			return name
		}
	}
	return DefaultName
}

// Series resolves the source series from the description meta.
func Series(m PageMeta) string {
	if m.Description != "" {
		if match := seriesPattern.FindStringSubmatch(m.Description); match != nil {
			series := strings.TrimSpace(match[1])
			series = seriesCreatorsTail.ReplaceAllString(series, "")
			series = seriesMakerTail.ReplaceAllString(series, "")
			if series = strings.TrimSpace(series); series != "" {
				return series
			}
		}
	}
	return DefaultSeries
}

// Creator resolves the card maker from the description meta. Unlike the
// other fields its default is empty: most cards simply have no credited
// maker in their meta.
func Creator(m PageMeta) string {
	if m.Description == "" {
		return ""
	}
	for _, pattern := range creatorPatterns {
		match := pattern.FindStringSubmatch(m.Description)
		if match == nil {
			continue
		}
		creator := strings.TrimSpace(match[1])
		creator = htmlEntity.ReplaceAllString(creator, "")
		creator = escapedTail.ReplaceAllString(creator, "")
		if creator = strings.TrimSpace(creator); creator != "" {
			return creator
		}
	}
	return ""
}

// Description resolves the free-text description, skipping the generic site
// boilerplate and a duplicated og:description.
func Description(m PageMeta) string {
	if m.Description != "" && !strings.Contains(m.Description, descriptionBoilerplate) {
		return m.Description
	}
	if m.OGDescription != "" && m.OGDescription != m.Description &&
		!strings.Contains(m.OGDescription, descriptionBoilerplate) {
		return m.OGDescription
	}
	return ""
}

// Tier resolves the rarity grade. The /cards/<tier>/ path segment of the
// og:image URL is the most reliable signal; a tier: token in either title
// is the fallback.
func Tier(m PageMeta) string {
	if m.OGImage != "" {
		if match := tierInImageURL.FindStringSubmatch(m.OGImage); match != nil {
			if tier, ok := normalizeTier(match[1]); ok {
				return tier
			}
		}
	}
	for _, text := range []string{m.OGTitle, m.PageTitle} {
		if text == "" {
			continue
		}
		if match := tierToken.FindStringSubmatch(text); match != nil {
			if tier, ok := normalizeTier(match[1]); ok {
				return tier
			}
		}
	}
	return DefaultTier
}

// normalizeTier validates a candidate grade and uppercases the special S
// grade. Digits pass through unchanged.
func normalizeTier(raw string) (string, bool) {
	switch raw {
	case "1", "2", "3", "4", "5", "S":
		return raw, true
	case "s":
		return "S", true
	}
	return "", false
}

// ImageSet groups the image URLs extracted for one card.
type ImageSet struct {
	ImageURL        string
	HighResImageURL string
	TwitterImage    string
	OGImage         string
}

// Images resolves the card's image URLs. og:image feeds every slot,
// twitter:image fills in when og:image is absent, and a known API template
// parameterised by card id is the last resort for image_url.
func Images(m PageMeta, cardID, apiBase, size string) ImageSet {
	var set ImageSet

	if m.OGImage != "" {
		set.OGImage = m.OGImage
		set.HighResImageURL = m.OGImage
		set.ImageURL = m.OGImage
	}
	if m.TwitterImage != "" {
		set.TwitterImage = m.TwitterImage
		if set.ImageURL == "" {
			set.ImageURL = m.TwitterImage
		}
	}
	if set.ImageURL == "" && cardID != "" {
		set.ImageURL = apiBase + "/cardr/" + cardID + "?size=" + size
	}
	return set
}

// CleanText collapses runs of whitespace, control characters, and literal
// \n escape sequences into single spaces and trims the result. Cleaning an
// already-clean string returns it unchanged.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	cleaned := whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
	cleaned = controlChars.ReplaceAllString(cleaned, " ")
	cleaned = escapedNewline.ReplaceAllString(cleaned, " ")
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
