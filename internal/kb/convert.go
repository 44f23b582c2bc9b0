package kb

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/markusmobius/go-trafilatura"
)

const (
	// maxPDFPages limits the number of pages to process
	maxPDFPages = 100

	// maxExtractedTextSize limits the extracted text size (1MB)
	maxExtractedTextSize = 1024 * 1024
)

// PDFToText extracts plain text from a PDF file.
func PDFToText(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	totalPages := pdfReader.NumPage()
	if totalPages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}
	if totalPages > maxPDFPages {
		return "", fmt.Errorf("PDF has too many pages (%d), max allowed is %d", totalPages, maxPDFPages)
	}

	var textBuilder strings.Builder
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages with extraction errors, don't fail completely
			continue
		}

		cleaned := cleanPDFText(text)
		if cleaned == "" {
			continue
		}
		textBuilder.WriteString(cleaned)
		textBuilder.WriteString("\n\n")

		if textBuilder.Len() > maxExtractedTextSize {
			break
		}
	}

	result := strings.TrimSpace(textBuilder.String())
	if result == "" {
		return "", fmt.Errorf("no text content found in PDF")
	}
	return result, nil
}

// cleanPDFText removes control characters and normalizes whitespace in
// extracted PDF text.
func cleanPDFText(text string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range text {
		switch {
		case r == '\n':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsPrint(r):
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// HTMLToText extracts the main content and title from an HTML page.
func HTMLToText(html []byte, pageURL *url.URL) (content, title string, err error) {
	opts := trafilatura.Options{
		OriginalURL: pageURL,
	}

	result, err := trafilatura.Extract(bytes.NewReader(html), opts)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract content: %w", err)
	}
	if result == nil || result.ContentText == "" {
		return "", "", fmt.Errorf("no content extracted from page")
	}

	return result.ContentText, result.Metadata.Title, nil
}

// PrepareForUpload normalizes extracted text before it goes to the vector
// store: line endings unified, runs of blank lines collapsed, lines trimmed.
func PrepareForUpload(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}
