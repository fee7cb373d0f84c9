package parser

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestExtractIdentifiers(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		expected []string
	}{
		{
			name:     "dedup across query variants",
			markup:   `<a href="/title/tt0111161/?ref=x">A</a><a href="/title/tt0111161/">B</a>`,
			expected: []string{"tt0111161"},
		},
		{
			name:     "absolute urls",
			markup:   `<a href="https://www.imdb.com/title/tt0068646/?ref_=sr_t_2">C</a>`,
			expected: []string{"tt0068646"},
		},
		{
			name: "ignores non title links",
			markup: `<a href="/name/nm0000209/">Actor</a>
				<a href="/title/tt0468569/">Dark Knight</a>
				<a href="/search/title/?genres=drama">Drama</a>
				<a>no href</a>`,
			expected: []string{"tt0468569"},
		},
		{
			name:     "fragment stripped",
			markup:   `<a href="/title/tt0050083/#cast">12 Angry Men</a>`,
			expected: []string{"tt0050083"},
		},
		{
			name:     "no matching anchors",
			markup:   `<html><body><p>nothing here</p></body></html>`,
			expected: []string{},
		},
		{
			name:     "empty markup",
			markup:   "",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractIdentifiers(tt.markup)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ExtractIdentifiers() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestExtractIdentifiersSetSemantics(t *testing.T) {
	var builder strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&builder, `<a href="/title/tt%07d/?ref_=sr_i_%d">x</a>`, i%40, i)
		fmt.Fprintf(&builder, `<a href="/title/tt%07d/">y</a>`, i%40)
	}

	result := ExtractIdentifiers(builder.String())
	if len(result) != 40 {
		t.Fatalf("identifiers=%d, want 40", len(result))
	}
	seen := make(map[string]bool, len(result))
	for _, id := range result {
		if seen[id] {
			t.Fatalf("duplicate identifier %q", id)
		}
		seen[id] = true
		if !IsIdentifier(id) {
			t.Fatalf("identifier %q does not match the title marker", id)
		}
	}
}

func TestExtractorCustomMarker(t *testing.T) {
	e := NewExtractor("name/nm", "name")
	markup := `<a href="/name/nm0000209/?ref=a">Tim</a><a href="/title/tt0111161/">Film</a>`

	result := e.Extract(markup)
	if !reflect.DeepEqual(result, []string{"nm0000209"}) {
		t.Fatalf("Extract() = %v, want [nm0000209]", result)
	}
}

func TestIsIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{input: "tt0111161", expected: true},
		{input: "tt", expected: false},
		{input: "nm0000209", expected: false},
		{input: "tt01?ref", expected: false},
		{input: "", expected: false},
	}

	for _, tt := range tests {
		if got := IsIdentifier(tt.input); got != tt.expected {
			t.Errorf("IsIdentifier(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
