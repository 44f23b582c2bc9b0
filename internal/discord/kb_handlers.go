package discord

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"epicgpt/internal/config"
	"epicgpt/internal/kb"
	"epicgpt/internal/models"
)

func (b *Bot) handleKBAddFile(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.requireAdmin(s, i) {
		return
	}

	data := i.ApplicationCommandData()
	opts := commandOptions(i)
	attachmentID, _ := opts["file"].Value.(string)
	attachment := data.Resolved.Attachments[attachmentID]
	if attachment == nil {
		b.replyEphemeral(s, i, "❌ Missing file attachment.")
		return
	}

	if !kb.IsFileTypeSupported(attachment.Filename) {
		b.replyEphemeral(s, i, fmt.Sprintf("❌ Unsupported file type. Supported types: %s", strings.Join(kbSupportedTypes, ", ")))
		return
	}

	fileSizeMB := float64(attachment.Size) / (1024 * 1024)
	if fileSizeMB > config.KBMaxFileSizeMB {
		b.replyEphemeral(s, i, fmt.Sprintf("❌ File too large (%.2fMB). Maximum: %dMB", fileSizeMB, config.KBMaxFileSizeMB))
		return
	}

	if err := b.deferReply(s, i, false); err != nil {
		log.Printf("❌ [DISCORD] Failed to defer /kb_add_file: %v", err)
		return
	}

	ctx := context.Background()
	fileData, err := b.downloadAttachment(ctx, attachment.URL)
	if err != nil {
		log.Printf("❌ [KB] Failed to download attachment %s: %v", attachment.Filename, err)
		b.editReply(s, i, "❌ Failed to download file")
		return
	}

	result, err := b.ingestor.IngestFile(ctx, guildID(i), userID(i), attachment.Filename, fileData)
	if err != nil {
		b.editReply(s, i, fmt.Sprintf("❌ Failed to add file: %v", err))
		return
	}
	if result.Duplicate {
		b.editReply(s, i, fmt.Sprintf("ℹ️ This content is already in the knowledge base as **%s**.\n\nID: `%s`", result.Title, result.KnowledgeItemID))
		return
	}

	b.editReply(s, i, fmt.Sprintf("✅ Successfully added **%s** to the knowledge base!\n\nID: `%s`", attachment.Filename, result.KnowledgeItemID))
}

func (b *Bot) handleKBAddURL(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.requireAdmin(s, i) {
		return
	}

	opts := commandOptions(i)
	rawURL := opts["url"].StringValue()

	if _, err := kb.ValidateURL(rawURL); err != nil {
		b.replyEphemeral(s, i, "❌ Invalid URL. Please provide an HTTP or HTTPS URL.")
		return
	}

	if err := b.deferReply(s, i, false); err != nil {
		log.Printf("❌ [DISCORD] Failed to defer /kb_add_url: %v", err)
		return
	}

	ctx := context.Background()
	result, err := b.ingestor.IngestURL(ctx, guildID(i), userID(i), rawURL)
	if err != nil {
		b.editReply(s, i, fmt.Sprintf("❌ Failed to add URL: %v", err))
		return
	}
	if result.Duplicate {
		b.editReply(s, i, fmt.Sprintf("ℹ️ This content is already in the knowledge base as **%s**.\n\nID: `%s`", result.Title, result.KnowledgeItemID))
		return
	}

	b.editReply(s, i, fmt.Sprintf("✅ Successfully added **%s** to the knowledge base!\n\nURL: %s\nID: `%s`", result.Title, rawURL, result.KnowledgeItemID))
}

func (b *Bot) handleKBList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.requireAdmin(s, i) {
		return
	}

	items, err := b.items.List(context.Background(), guildID(i))
	if err != nil {
		log.Printf("❌ [KB] Failed to list knowledge items: %v", err)
		b.replyEphemeral(s, i, genericErrorReply)
		return
	}

	if len(items) == 0 {
		b.replyEphemeral(s, i, "📚 The knowledge base is empty. Use `/kb_add_file` or `/kb_add_url` to add content.")
		return
	}

	plural := "s"
	if len(items) == 1 {
		plural = ""
	}
	description := fmt.Sprintf("Found %d item%s", len(items), plural)
	if len(items) > 25 {
		description = fmt.Sprintf("Showing 25 of %d items. Use database tools to view all.", len(items))
	}

	embed := &discordgo.MessageEmbed{
		Color:       config.BotEmbedColor,
		Title:       "📚 Knowledge Base Items",
		Description: description,
		Footer:      &discordgo.MessageEmbedFooter{Text: config.BotEmbedFooter},
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	displayItems := items
	if len(displayItems) > 25 {
		displayItems = displayItems[:25]
	}
	for _, item := range displayItems {
		typeEmoji := "📄"
		if item.Kind == models.KnowledgeItemURL {
			typeEmoji = "🔗"
		}
		value := fmt.Sprintf("ID: `%s`\nAdded: %s", item.ID, item.CreatedAt.Format("1/2/2006"))
		if item.SourceURL != "" {
			value += fmt.Sprintf("\n[Source](%s)", item.SourceURL)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%s %s", typeEmoji, item.Title),
			Value:  value,
			Inline: true,
		})
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("❌ [DISCORD] Failed to send kb_list embed: %v", err)
	}
}

func (b *Bot) handleKBRemove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.requireAdmin(s, i) {
		return
	}

	opts := commandOptions(i)
	itemID := opts["id"].StringValue()

	if err := b.deferReply(s, i, true); err != nil {
		log.Printf("❌ [DISCORD] Failed to defer /kb_remove: %v", err)
		return
	}

	item, err := b.ingestor.Remove(context.Background(), guildID(i), itemID)
	if err != nil {
		b.editReply(s, i, fmt.Sprintf("❌ Knowledge base item not found: `%s`", itemID))
		return
	}

	b.editReply(s, i, fmt.Sprintf("✅ Successfully removed **%s** from the knowledge base.", item.Title))
}

func (b *Bot) handleKBRefresh(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.requireAdmin(s, i) {
		return
	}

	opts := commandOptions(i)
	itemID := opts["id"].StringValue()

	if err := b.deferReply(s, i, true); err != nil {
		log.Printf("❌ [DISCORD] Failed to defer /kb_refresh: %v", err)
		return
	}

	result, err := b.ingestor.Refresh(context.Background(), guildID(i), itemID)
	if err != nil {
		b.editReply(s, i, fmt.Sprintf("❌ Failed to refresh: %v", err))
		return
	}
	if result.Duplicate {
		b.editReply(s, i, fmt.Sprintf("ℹ️ No changes detected for **%s**. Content is up to date.", result.Title))
		return
	}

	b.editReply(s, i, fmt.Sprintf("✅ Successfully refreshed **%s**!\n\nNew content has been indexed.", result.Title))
}

// downloadAttachment fetches an uploaded file from Discord's CDN.
func (b *Bot) downloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, (config.KBMaxFileSizeMB+1)*1024*1024))
}
