package parser

import "strings"

// Meta-tag map keys as emitted by the batched page script: meta tags are
// namespaced by the attribute that carries their key, plus a synthetic
// page_title entry for the document title.
const (
	KeyOGTitle       = "property:og:title"
	KeyOGDescription = "property:og:description"
	KeyOGImage       = "property:og:image"
	KeyOGUpdatedTime = "property:og:updated_time"
	KeyDescription   = "name:description"
	KeyTwitterImage  = "name:twitter:image"
	KeyPageTitle     = "page_title"
)

// PageMeta is the typed view of a card page's meta tags. Fields are empty
// when the corresponding tag is absent. Raw retains the full map for the
// optional metadata output field.
type PageMeta struct {
	OGTitle       string
	OGDescription string
	OGImage       string
	OGUpdatedTime string
	Description   string
	TwitterImage  string
	PageTitle     string

	Raw map[string]string
}

// MetaFromMap builds a PageMeta from the batched script-evaluation result.
func MetaFromMap(raw map[string]string) PageMeta {
	get := func(key string) string {
		return strings.TrimSpace(raw[key])
	}
	return PageMeta{
		OGTitle:       get(KeyOGTitle),
		OGDescription: get(KeyOGDescription),
		OGImage:       get(KeyOGImage),
		OGUpdatedTime: get(KeyOGUpdatedTime),
		Description:   get(KeyDescription),
		TwitterImage:  get(KeyTwitterImage),
		PageTitle:     get(KeyPageTitle),
		Raw:           raw,
	}
}
