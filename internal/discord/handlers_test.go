package discord

import (
	"testing"

	"epicgpt/internal/ai"
)

func TestGroupDigits(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{12345, "12,345"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		if got := groupDigits(tt.n); got != tt.want {
			t.Errorf("groupDigits(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTokenUsageFooter(t *testing.T) {
	t.Run("formats counts", func(t *testing.T) {
		got := tokenUsageFooter(ai.TokenUsage{
			PromptTokens:     1500,
			CompletionTokens: 230,
			TotalTokens:      1730,
		})
		want := "\n\n**Token Usage:** `1,730` total (`1,500` prompt + `230` completion)"
		if got != want {
			t.Errorf("footer = %q, want %q", got, want)
		}
	})

	t.Run("empty usage omits footer", func(t *testing.T) {
		if got := tokenUsageFooter(ai.TokenUsage{}); got != "" {
			t.Errorf("footer = %q, want empty", got)
		}
	})
}
