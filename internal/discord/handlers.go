package discord

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"epicgpt/internal/ai"
	"epicgpt/internal/config"
	"epicgpt/internal/models"
)

const genericErrorReply = "❌ Sorry, something went wrong. Please try again later."

func (b *Bot) handleChat(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.checkRateLimit(s, i, config.RateLimitChat) {
		return
	}
	b.runConversation(s, i, "chat", false)
}

func (b *Bot) handleSearch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.checkRateLimit(s, i, config.RateLimitSearch) {
		return
	}
	b.runConversation(s, i, "search", true)
}

// runConversation is the shared body of /chat and /search: defer, run the
// orchestrator, log the request, then deliver the split response.
func (b *Bot) runConversation(s *discordgo.Session, i *discordgo.InteractionCreate, command string, webSearch bool) {
	opts := commandOptions(i)
	prompt := opts["prompt"].StringValue()
	guild := guildID(i)
	user := userID(i)

	if err := b.deferReply(s, i, false); err != nil {
		log.Printf("❌ [DISCORD] Failed to defer /%s: %v", command, err)
		return
	}

	ctx := context.Background()
	result := b.orchestrator.Run(ctx, ai.RunOptions{
		GuildID:          guild,
		UserID:           user,
		ChannelID:        i.ChannelID,
		Prompt:           prompt,
		WebSearchEnabled: webSearch,
	})

	b.logRequest(ctx, guild, user, command, result)
	b.recordRunMetrics(command, result)

	if !result.Success || result.Response == "" {
		message := result.Error
		if message == "" {
			message = "Failed to generate a response. Please try again."
		}
		b.editReply(s, i, "❌ "+message)
		return
	}

	response := result.Response
	if command == "search" && result.UsedWebSearch {
		response = "🔍 *Web search results:*\n\n" + response
	}
	response += tokenUsageFooter(result.TokenUsage)

	chunks := SplitMessage(response, config.DiscordMaxMessageLength)
	b.editReply(s, i, chunks[0])
	for _, chunk := range chunks[1:] {
		if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: chunk}); err != nil {
			log.Printf("❌ [DISCORD] Failed to send follow-up chunk: %v", err)
			return
		}
	}
}

func (b *Bot) logRequest(ctx context.Context, guild, user, command string, result ai.RunResult) {
	toolNames := make([]string, 0, len(result.ToolCalls))
	for _, tc := range result.ToolCalls {
		toolNames = append(toolNames, tc.Name)
	}

	err := b.requests.Create(ctx, &models.RequestLog{
		GuildID:        guild,
		UserID:         user,
		Command:        command,
		UsedFileSearch: result.UsedFileSearch,
		UsedWebSearch:  result.UsedWebSearch,
		ToolCalls:      toolNames,
		Error:          result.Error,
	})
	if err != nil {
		log.Printf("⚠️  [DISCORD] Failed to write request log: %v", err)
	}
}

func (b *Bot) recordRunMetrics(command string, result ai.RunResult) {
	if b.metrics == nil {
		return
	}

	status := "ok"
	if !result.Success {
		status = "error"
		b.metrics.CommandErrors.WithLabelValues(command).Inc()
	}
	b.metrics.CommandRequests.WithLabelValues(command, status).Inc()

	b.metrics.TokensUsed.WithLabelValues("prompt").Add(float64(result.TokenUsage.PromptTokens))
	b.metrics.TokensUsed.WithLabelValues("completion").Add(float64(result.TokenUsage.CompletionTokens))
	b.metrics.TokensUsed.WithLabelValues("cached").Add(float64(result.TokenUsage.CachedTokens))

	for _, tc := range result.ToolCalls {
		b.metrics.ToolCalls.WithLabelValues(tc.Name).Inc()
	}
}

// tokenUsageFooter renders the usage line appended to every response. A run
// with no recorded usage gets no footer.
func tokenUsageFooter(usage ai.TokenUsage) string {
	if usage.TotalTokens == 0 {
		return ""
	}
	return fmt.Sprintf("\n\n**Token Usage:** `%s` total (`%s` prompt + `%s` completion)",
		groupDigits(usage.TotalTokens),
		groupDigits(usage.PromptTokens),
		groupDigits(usage.CompletionTokens),
	)
}

// groupDigits formats n with thousands separators, e.g. 12345 -> "12,345".
func groupDigits(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ",")
}

func (b *Bot) deferReply(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

func (b *Bot) editReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		log.Printf("❌ [DISCORD] Failed to edit reply: %v", err)
	}
}
