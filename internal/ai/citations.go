package ai

import (
	"fmt"
	"net/url"
	"strings"
)

// canonicalFileIDs are files cited by their file ID verbatim instead of a
// resolved title.
var canonicalFileIDs = map[string]bool{
	"file-VNyEvYFhiddg51i2Dt7oWv": true, // EPICENTRAL LABS DAO LLC OPERATING AGREEMENT
	"file-SjDBvE2VmPyT8SgjCT6CVK": true, // Clarity for Digital Tokens Act
}

// FileRef points at a vector store file within an annotation.
type FileRef struct {
	FileID string `json:"file_id"`
	Quote  string `json:"quote,omitempty"`
}

// Annotation is one raw file-scoped citation marker from a retrieval response.
type Annotation struct {
	Type         string   `json:"type"`
	FileCitation *FileRef `json:"file_citation,omitempty"`
	FilePath     *FileRef `json:"file_path,omitempty"`
	Text         string   `json:"text,omitempty"`
}

// FormatKBCitation formats a knowledge base citation from a document title.
func FormatKBCitation(title string) string {
	return fmt.Sprintf("(KB: %s)", title)
}

// FormatCanonicalFileCitation formats a canonical file ID citation.
func FormatCanonicalFileCitation(fileID string) string {
	return fmt.Sprintf("(%s)", fileID)
}

// FormatWebCitation formats a web source citation showing only the hostname,
// with a leading "www." stripped. Unparseable URLs are shown verbatim.
func FormatWebCitation(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return fmt.Sprintf("(Source: %s)", rawURL)
	}
	domain := strings.TrimPrefix(u.Hostname(), "www.")
	return fmt.Sprintf("(Source: %s)", domain)
}

// FormatWebSearchResults renders search results as a numbered block for
// injection into the model's context.
func FormatWebSearchResults(results []WebResult) string {
	if len(results) == 0 {
		return "[Web Search Results]\nNo relevant results found."
	}

	var b strings.Builder
	b.WriteString("[Web Search Results]\n")
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. **%s**\n   %s\n   URL: %s", i+1, r.Title, r.Snippet, r.URL)
	}
	return b.String()
}

// ExtractFileSearchCitations resolves raw retrieval annotations into formatted
// citation strings. Canonical file IDs are shown verbatim; other files resolve
// through the title map and are skipped when no title is known. The result is
// deduplicated preserving order of first appearance.
func ExtractFileSearchCitations(annotations []Annotation, fileIDToTitle map[string]string) []string {
	seen := make(map[string]bool)
	var citations []string

	for _, a := range annotations {
		var fileID string
		switch {
		case a.FileCitation != nil:
			fileID = a.FileCitation.FileID
		case a.FilePath != nil:
			fileID = a.FilePath.FileID
		}
		if fileID == "" {
			continue
		}

		var formatted string
		if canonicalFileIDs[fileID] {
			formatted = FormatCanonicalFileCitation(fileID)
		} else if title, ok := fileIDToTitle[fileID]; ok && title != "" {
			formatted = FormatKBCitation(title)
		} else {
			continue
		}

		if !seen[formatted] {
			seen[formatted] = true
			citations = append(citations, formatted)
		}
	}

	return citations
}
