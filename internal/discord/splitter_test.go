package discord

import (
	"strings"
	"testing"
)

func TestSplitMessage(t *testing.T) {
	t.Run("short content returned whole", func(t *testing.T) {
		chunks := SplitMessage("hello world", 2000)
		if len(chunks) != 1 || chunks[0] != "hello world" {
			t.Errorf("chunks = %v", chunks)
		}
	})

	t.Run("empty content yields one empty chunk", func(t *testing.T) {
		chunks := SplitMessage("", 2000)
		if len(chunks) != 1 || chunks[0] != "" {
			t.Errorf("chunks = %v", chunks)
		}
	})

	t.Run("breaks after newline in second half", func(t *testing.T) {
		content := strings.Repeat("a", 15) + "\n" + strings.Repeat("b", 10)
		chunks := SplitMessage(content, 20)
		if len(chunks) != 2 {
			t.Fatalf("got %d chunks, want 2", len(chunks))
		}
		if chunks[0] != strings.Repeat("a", 15)+"\n" {
			t.Errorf("first chunk = %q, want newline kept at end", chunks[0])
		}
		if chunks[1] != strings.Repeat("b", 10) {
			t.Errorf("second chunk = %q", chunks[1])
		}
	})

	t.Run("falls back to space break", func(t *testing.T) {
		content := strings.Repeat("a", 15) + " " + strings.Repeat("b", 10)
		chunks := SplitMessage(content, 20)
		if len(chunks) != 2 {
			t.Fatalf("got %d chunks, want 2", len(chunks))
		}
		if chunks[0] != strings.Repeat("a", 15)+" " {
			t.Errorf("first chunk = %q, want space kept at end", chunks[0])
		}
	})

	t.Run("ignores break points in first half", func(t *testing.T) {
		content := "ab\n" + strings.Repeat("c", 30)
		chunks := SplitMessage(content, 20)
		if len(chunks[0]) != 20 {
			t.Errorf("first chunk length = %d, want hard cut at 20", len(chunks[0]))
		}
	})

	t.Run("hard cut with no separators", func(t *testing.T) {
		content := strings.Repeat("x", 45)
		chunks := SplitMessage(content, 20)
		if len(chunks) != 3 {
			t.Fatalf("got %d chunks, want 3", len(chunks))
		}
		for i, chunk := range chunks {
			if len(chunk) > 20 {
				t.Errorf("chunk %d length = %d, exceeds limit", i, len(chunk))
			}
		}
		if strings.Join(chunks, "") != content {
			t.Error("rejoined chunks differ from input")
		}
	})

	t.Run("hard cut never splits a rune", func(t *testing.T) {
		content := strings.Repeat("é", 30) // 2 bytes each
		chunks := SplitMessage(content, 21)
		if strings.Join(chunks, "") != content {
			t.Fatal("rejoined chunks differ from input")
		}
		for i, chunk := range chunks {
			if !strings.HasPrefix(chunk, "é") {
				t.Errorf("chunk %d starts mid-rune: %q", i, chunk)
			}
		}
	})

	t.Run("every chunk fits the limit and nothing is lost", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 200; i++ {
			b.WriteString("The quick brown fox jumps over the lazy dog. ")
		}
		content := b.String()
		chunks := SplitMessage(content, 2000)
		if strings.Join(chunks, "") != content {
			t.Fatal("rejoined chunks differ from input")
		}
		for i, chunk := range chunks {
			if len(chunk) > 2000 {
				t.Errorf("chunk %d length = %d, exceeds limit", i, len(chunk))
			}
		}
	})
}
