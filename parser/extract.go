package parser

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Default marker for title links such as /title/tt0111161/?ref_=sr_t_1.
const (
	DefaultPathMarker  = "title/tt"
	DefaultPathSegment = "title"
)

// Extractor pulls identifiers out of anchor targets.
type Extractor struct {
	marker  string
	segment string
	prefix  string
}

// NewExtractor builds an extractor for hrefs containing marker, where the
// identifier is the path component following segment.
func NewExtractor(marker, segment string) *Extractor {
	if marker == "" {
		marker = DefaultPathMarker
	}
	if segment == "" {
		segment = DefaultPathSegment
	}
	return &Extractor{
		marker:  marker,
		segment: segment,
		prefix:  strings.TrimPrefix(marker, segment+"/"),
	}
}

// ExtractIdentifiers runs the default extractor over markup.
func ExtractIdentifiers(markup string) []string {
	return NewExtractor(DefaultPathMarker, DefaultPathSegment).Extract(markup)
}

// Extract returns the unique identifiers linked from markup, sorted.
// Unparseable or empty markup yields an empty slice.
func (e *Extractor) Extract(markup string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return []string{}
	}

	set := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if id, ok := e.FromHref(href); ok {
			set[id] = struct{}{}
		}
	})

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// FromHref extracts the identifier from a single link target.
func (e *Extractor) FromHref(href string) (string, bool) {
	if !strings.Contains(href, e.marker) {
		return "", false
	}
	path, _, _ := strings.Cut(href, "?")
	path, _, _ = strings.Cut(path, "#")

	parts := strings.Split(path, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] != e.segment {
			continue
		}
		if id := parts[i+1]; e.IsIdentifier(id) {
			return id, true
		}
	}
	return "", false
}

// IsIdentifier reports whether id carries the marker's identifier prefix.
func (e *Extractor) IsIdentifier(id string) bool {
	if len(id) <= len(e.prefix) || !strings.HasPrefix(id, e.prefix) {
		return false
	}
	return !strings.ContainsAny(id, "/?#& ")
}

// IsIdentifier checks id against the default title marker.
func IsIdentifier(id string) bool {
	return NewExtractor(DefaultPathMarker, DefaultPathSegment).IsIdentifier(id)
}
