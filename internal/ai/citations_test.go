package ai

import (
	"reflect"
	"testing"
)

func TestFormatWebCitation(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"strips www prefix", "https://www.example.com/page", "(Source: example.com)"},
		{"keeps bare domain", "https://docs.metadao.fi/guide", "(Source: docs.metadao.fi)"},
		{"unparseable url shown verbatim", "not a url", "(Source: not a url)"},
		{"port is dropped", "https://example.com:8443/x", "(Source: example.com)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatWebCitation(tt.url); got != tt.want {
				t.Errorf("FormatWebCitation(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestFormatKBCitation(t *testing.T) {
	if got := FormatKBCitation("whitepaper.pdf"); got != "(KB: whitepaper.pdf)" {
		t.Errorf("got %q", got)
	}
}

func TestFormatWebSearchResults(t *testing.T) {
	t.Run("empty results", func(t *testing.T) {
		got := FormatWebSearchResults(nil)
		want := "[Web Search Results]\nNo relevant results found."
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("numbered block", func(t *testing.T) {
		results := []WebResult{
			{Title: "First", Snippet: "snippet one", URL: "https://a.example"},
			{Title: "Second", Snippet: "snippet two", URL: "https://b.example"},
		}
		got := FormatWebSearchResults(results)
		want := "[Web Search Results]\n" +
			"1. **First**\n   snippet one\n   URL: https://a.example\n\n" +
			"2. **Second**\n   snippet two\n   URL: https://b.example"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestExtractFileSearchCitations(t *testing.T) {
	titles := map[string]string{
		"file-abc": "roadmap.md",
		"file-def": "tokenomics.pdf",
	}

	t.Run("canonical IDs shown verbatim", func(t *testing.T) {
		annotations := []Annotation{
			{Type: "file_citation", FileCitation: &FileRef{FileID: "file-VNyEvYFhiddg51i2Dt7oWv"}},
			{Type: "file_citation", FileCitation: &FileRef{FileID: "file-abc"}},
		}
		got := ExtractFileSearchCitations(annotations, titles)
		want := []string{"(file-VNyEvYFhiddg51i2Dt7oWv)", "(KB: roadmap.md)"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("deduplicates preserving first appearance", func(t *testing.T) {
		annotations := []Annotation{
			{Type: "file_citation", FileCitation: &FileRef{FileID: "file-def"}},
			{Type: "file_citation", FileCitation: &FileRef{FileID: "file-abc"}},
			{Type: "file_citation", FileCitation: &FileRef{FileID: "file-def"}},
		}
		got := ExtractFileSearchCitations(annotations, titles)
		want := []string{"(KB: tokenomics.pdf)", "(KB: roadmap.md)"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		annotations := []Annotation{
			{Type: "file_citation", FileCitation: &FileRef{FileID: "file-abc"}},
			{Type: "file_path", FilePath: &FileRef{FileID: "file-abc"}},
		}
		first := ExtractFileSearchCitations(annotations, titles)
		second := ExtractFileSearchCitations(annotations, titles)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("first %v != second %v", first, second)
		}
		if len(first) != 1 {
			t.Errorf("expected single deduplicated citation, got %v", first)
		}
	})

	t.Run("unknown files skipped", func(t *testing.T) {
		annotations := []Annotation{
			{Type: "file_citation", FileCitation: &FileRef{FileID: "file-unknown"}},
		}
		if got := ExtractFileSearchCitations(annotations, titles); len(got) != 0 {
			t.Errorf("expected no citations, got %v", got)
		}
	})
}
