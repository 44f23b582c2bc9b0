package discord

import (
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"epicgpt/internal/config"
)

// commandDefinitions declares the full slash command set. Registration
// bulk-overwrites so removed commands disappear on restart.
func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "chat",
			Description: fmt.Sprintf("Chat with %s using the knowledge base", config.BotName),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prompt",
					Description: "Your question or message",
					Required:    true,
					MaxLength:   config.DiscordMaxMessageLength,
				},
			},
		},
		{
			Name:        "search",
			Description: "Search the web for up-to-date information with citations",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prompt",
					Description: "Your search query",
					Required:    true,
					MaxLength:   config.DiscordMaxMessageLength,
				},
			},
		},
		{
			Name:        "help",
			Description: fmt.Sprintf("Learn how to use %s", config.BotName),
		},
		{
			Name:        "kb_add_file",
			Description: "Upload a file to the knowledge base (Admin only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        "file",
					Description: fmt.Sprintf("File to upload (%s)", strings.Join(kbSupportedTypes, ", ")),
					Required:    true,
				},
			},
		},
		{
			Name:        "kb_add_url",
			Description: "Add a URL to the knowledge base (Admin only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "The URL to add (must be HTTPS)",
					Required:    true,
				},
			},
		},
		{
			Name:        "kb_list",
			Description: "List all knowledge base items (Admin only)",
		},
		{
			Name:        "kb_remove",
			Description: "Remove an item from the knowledge base (Admin only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "id",
					Description: "The ID of the knowledge base item to remove",
					Required:    true,
				},
			},
		},
		{
			Name:        "kb_refresh",
			Description: "Refresh/re-fetch a knowledge base item (Admin only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "id",
					Description: "The ID of the knowledge base item to refresh",
					Required:    true,
				},
			},
		},
	}
}

var kbSupportedTypes = []string{".pdf", ".md", ".txt"}

func (b *Bot) registerCommands() error {
	appID := b.cfg.DiscordAppID
	if appID == "" && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}

	definitions := commandDefinitions()
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, "", definitions)
	if err != nil {
		return fmt.Errorf("command registration failed: %w", err)
	}

	log.Printf("✅ Registered %d slash command(s)", len(registered))
	return nil
}
