package discord

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"epicgpt/internal/config"
)

func (b *Bot) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	embed := &discordgo.MessageEmbed{
		Color: config.BotEmbedColor,
		Title: fmt.Sprintf("%s - Help", config.BotName),
		Description: fmt.Sprintf(
			"I'm %s, your AI assistant for Epicentral Labs! I can answer questions using our knowledge base, search the web, and fetch live blockchain data.",
			config.BotName,
		),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "💬 Chat Commands",
				Value: strings.Join([]string{
					"`/chat prompt:<your question>` - Ask me anything! I'll search the knowledge base and use available tools.",
					"`/search prompt:<your question>` - Search the web for up-to-date information with citations.",
				}, "\n"),
			},
			{
				Name: "📚 Knowledge Base (Admin)",
				Value: strings.Join([]string{
					"`/kb_add_file` - Upload a file (PDF, MD, TXT) to the knowledge base",
					"`/kb_add_url url:<url>` - Add a webpage to the knowledge base",
					"`/kb_list` - List all knowledge base items",
					"`/kb_remove id:<id>` - Remove an item from the knowledge base",
					"`/kb_refresh id:<id>` - Re-fetch and update a knowledge base item",
				}, "\n"),
			},
			{
				Name: "🔧 Available Tools",
				Value: strings.Join([]string{
					"• **Solana Balance** - Check SOL balance for any wallet",
					"• **Token Supply** - Get total supply of any SPL token",
					"• **Token Price** - Get current price from Birdeye",
				}, "\n"),
			},
			{
				Name: "💡 Tips",
				Value: strings.Join([]string{
					"• Use `/chat` for questions about Epicentral Labs products",
					"• Use `/search` when you need current information from the web",
					"• I maintain conversation context for 1 hour per channel",
					"• Admin commands require \"Manage Server\" permission",
				}, "\n"),
			},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: config.BotEmbedFooter},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		log.Printf("❌ [DISCORD] Failed to send help embed: %v", err)
	}
}
