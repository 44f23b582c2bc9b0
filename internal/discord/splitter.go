package discord

import (
	"strings"
	"unicode/utf8"
)

// SplitMessage splits content into chunks of at most maxLength bytes so long
// responses can be delivered as an initial reply plus follow-ups. Chunks
// prefer to break after a newline, then after a space, as long as the break
// lands in the second half of the chunk; otherwise the split is a hard cut on
// a rune boundary.
func SplitMessage(content string, maxLength int) []string {
	if len(content) <= maxLength {
		return []string{content}
	}

	var chunks []string
	remaining := content

	for len(remaining) > 0 {
		if len(remaining) <= maxLength {
			chunks = append(chunks, remaining)
			break
		}

		window := remaining[:maxLength]
		breakPoint := maxLength

		if idx := strings.LastIndexByte(window, '\n'); idx > maxLength/2 {
			breakPoint = idx + 1
		} else if idx := strings.LastIndexByte(window, ' '); idx > maxLength/2 {
			breakPoint = idx + 1
		} else {
			for breakPoint > 0 && !utf8.RuneStart(remaining[breakPoint]) {
				breakPoint--
			}
		}

		chunks = append(chunks, remaining[:breakPoint])
		remaining = remaining[breakPoint:]
	}

	return chunks
}
