package parser

import "testing"

func TestNewStrategy(t *testing.T) {
	if s := NewStrategy("meta", Options{}); s.NeedsMarkup() {
		t.Error("meta strategy should not request markup")
	}
	if s := NewStrategy("markup", Options{}); !s.NeedsMarkup() {
		t.Error("markup strategy should request markup")
	}
	if s := NewStrategy("bogus", Options{}); s.NeedsMarkup() {
		t.Error("unknown strategy name should fall back to the meta path")
	}
}

func TestMetaStrategyExtract(t *testing.T) {
	opts := Options{CleanText: true, APIBase: "https://api.shoob.gg/site/api", ImageSize: "700"}
	strategy := NewStrategy("meta", opts)

	meta := PageMeta{
		OGTitle:       "Rare   Dragon",
		Description:   `Rare Dragon from Fantasy\nCreators: - Card Maker: ayla`,
		OGImage:       "https://cdn.shoob.gg/cards/4/rare-dragon.png",
		OGUpdatedTime: "2024-03-01T00:00:00Z",
	}

	fields := strategy.Extract(meta, "", "abc123")
	if fields.Name != "Rare Dragon" {
		t.Errorf("name = %q, want cleaned %q", fields.Name, "Rare Dragon")
	}
	if fields.Series != "Fantasy" {
		t.Errorf("series = %q, want %q", fields.Series, "Fantasy")
	}
	if fields.Creator != "ayla" {
		t.Errorf("creator = %q, want %q", fields.Creator, "ayla")
	}
	if fields.Tier != "4" {
		t.Errorf("tier = %q, want %q", fields.Tier, "4")
	}
	if fields.LastUpdated != "2024-03-01T00:00:00Z" {
		t.Errorf("last updated = %q", fields.LastUpdated)
	}
	if fields.Images.ImageURL != meta.OGImage {
		t.Errorf("image url = %q, want og image", fields.Images.ImageURL)
	}
}

func TestMetaStrategyAPIFallback(t *testing.T) {
	opts := Options{APIBase: "https://api.shoob.gg/site/api", ImageSize: "700"}
	fields := NewStrategy("meta", opts).Extract(PageMeta{}, "", "abc123")

	if fields.Name != DefaultName || fields.Series != DefaultSeries || fields.Tier != DefaultTier {
		t.Errorf("defaults not applied: name=%q series=%q tier=%q",
			fields.Name, fields.Series, fields.Tier)
	}
	expected := "https://api.shoob.gg/site/api/cardr/abc123?size=700"
	if fields.Images.ImageURL != expected {
		t.Errorf("image url = %q, want api fallback %q", fields.Images.ImageURL, expected)
	}
}

const cardPageMarkup = `<html><body>
<nav class="breadcrumb-new">
  <a href="/">Home</a>
  <a href="/cards">Cards</a>
  <a href="/cards?series=naruto">Naruto</a>
</nav>
<div class="card-main">
  <h1>Sakura  Haruno</h1>
  <div class="card-info">Creators: - Card Maker: ino</div>
</div>
</body></html>`

func TestMarkupStrategyFillsDefaults(t *testing.T) {
	opts := Options{CleanText: true, APIBase: "https://api.shoob.gg/site/api", ImageSize: "700"}
	strategy := NewStrategy("markup", opts)

	fields := strategy.Extract(PageMeta{}, cardPageMarkup, "abc123")
	if fields.Name != "Sakura Haruno" {
		t.Errorf("name = %q, want markup h1", fields.Name)
	}
	if fields.Series != "Naruto" {
		t.Errorf("series = %q, want trailing breadcrumb", fields.Series)
	}
	if fields.Creator != "ino" {
		t.Errorf("creator = %q, want card maker from visible block", fields.Creator)
	}
}

func TestMarkupStrategyKeepsMetaFields(t *testing.T) {
	opts := Options{CleanText: true, APIBase: "https://api.shoob.gg/site/api", ImageSize: "700"}
	strategy := NewStrategy("markup", opts)

	meta := PageMeta{
		OGTitle:     "Rare Dragon",
		Description: "Rare Dragon from Fantasy Creators: - Card Maker: ayla",
	}
	fields := strategy.Extract(meta, cardPageMarkup, "abc123")
	if fields.Name != "Rare Dragon" {
		t.Errorf("name = %q, markup must not override meta", fields.Name)
	}
	if fields.Series != "Fantasy" {
		t.Errorf("series = %q, markup must not override meta", fields.Series)
	}
	if fields.Creator != "ayla" {
		t.Errorf("creator = %q, markup must not override meta", fields.Creator)
	}
}

func TestMarkupStrategyWithoutMarkup(t *testing.T) {
	strategy := NewStrategy("markup", Options{APIBase: "https://api.shoob.gg/site/api", ImageSize: "700"})
	fields := strategy.Extract(PageMeta{}, "", "abc123")
	if fields.Name != DefaultName {
		t.Errorf("name = %q, want default when no markup is available", fields.Name)
	}
}

func TestMarkupStrategySparseBreadcrumb(t *testing.T) {
	markup := `<html><body><nav class="breadcrumb"><a href="/">Home</a></nav></body></html>`
	strategy := NewStrategy("markup", Options{APIBase: "https://api.shoob.gg/site/api", ImageSize: "700"})
	fields := strategy.Extract(PageMeta{}, markup, "abc123")
	if fields.Series != DefaultSeries {
		t.Errorf("series = %q, a single breadcrumb link names no series", fields.Series)
	}
}
