package discord

import (
	"fmt"
	"log"
	"math"

	"github.com/bwmarrin/discordgo"

	"epicgpt/internal/config"
)

// checkRateLimit admits the interaction or replies with an ephemeral rejection.
// Returns true when the handler should proceed.
func (b *Bot) checkRateLimit(s *discordgo.Session, i *discordgo.InteractionCreate, class config.RateLimitClass) bool {
	verdict := b.limiter.Allow(userID(i), class)
	if verdict.Allowed {
		return true
	}

	if b.metrics != nil {
		b.metrics.RateLimitRejections.WithLabelValues(string(class)).Inc()
	}

	seconds := int(math.Ceil(verdict.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	plural := "s"
	if seconds == 1 {
		plural = ""
	}

	b.replyEphemeral(s, i, fmt.Sprintf(
		"⏳ You're sending requests too fast. Please wait %d second%s before trying again.",
		seconds, plural,
	))
	return false
}

// isAdmin reports whether the member may run admin commands: the configured
// admin role when set, falling back to the Manage Server permission. DMs have
// no member and are never admin.
func (b *Bot) isAdmin(i *discordgo.InteractionCreate) bool {
	member := i.Member
	if member == nil {
		return false
	}

	if b.cfg.AdminRoleID != "" {
		for _, roleID := range member.Roles {
			if roleID == b.cfg.AdminRoleID {
				return true
			}
		}
	}

	return member.Permissions&discordgo.PermissionManageServer != 0
}

// requireAdmin replies with an ephemeral rejection for non-admins.
// Returns true when the handler should proceed.
func (b *Bot) requireAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if b.isAdmin(i) {
		return true
	}
	b.replyEphemeral(s, i, `❌ You need the "Manage Server" permission to use this command.`)
	return false
}

func (b *Bot) replyEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("❌ [DISCORD] Failed to send ephemeral reply: %v", err)
	}
}
