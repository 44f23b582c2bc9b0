package discord

import (
	"log"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"epicgpt/internal/ai"
	"epicgpt/internal/config"
	"epicgpt/internal/database"
	"epicgpt/internal/kb"
	"epicgpt/internal/metrics"
	"epicgpt/internal/ratelimit"
)

// Deps are the collaborators the bot wires into its command handlers.
type Deps struct {
	Config       *config.Config
	Orchestrator *ai.Orchestrator
	Ingestor     *kb.Ingestor
	Items        *database.KnowledgeItemStore
	Requests     *database.RequestLogStore
	Limiter      *ratelimit.Limiter
	Metrics      *metrics.Metrics
}

// Bot owns the Discord gateway session and dispatches slash commands.
type Bot struct {
	session      *discordgo.Session
	cfg          *config.Config
	orchestrator *ai.Orchestrator
	ingestor     *kb.Ingestor
	items        *database.KnowledgeItemStore
	requests     *database.RequestLogStore
	limiter      *ratelimit.Limiter
	metrics      *metrics.Metrics
	httpClient   *http.Client // attachment downloads
}

// New creates the bot and registers its gateway handlers. The session is not
// opened until Start.
func New(deps Deps) (*Bot, error) {
	session, err := discordgo.New("Bot " + deps.Config.DiscordToken)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	bot := &Bot{
		session:      session,
		cfg:          deps.Config,
		orchestrator: deps.Orchestrator,
		ingestor:     deps.Ingestor,
		items:        deps.Items,
		requests:     deps.Requests,
		limiter:      deps.Limiter,
		metrics:      deps.Metrics,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}

	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onInteraction)

	return bot, nil
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return err
	}
	return b.registerCommands()
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	log.Printf("✅ %s is online as %s", config.BotName, r.User.String())
	log.Printf("📊 Serving %d guild(s)", len(r.Guilds))
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	start := time.Now()

	switch name {
	case "chat":
		b.handleChat(s, i)
	case "search":
		b.handleSearch(s, i)
	case "help":
		b.handleHelp(s, i)
	case "kb_add_file":
		b.handleKBAddFile(s, i)
	case "kb_add_url":
		b.handleKBAddURL(s, i)
	case "kb_list":
		b.handleKBList(s, i)
	case "kb_remove":
		b.handleKBRemove(s, i)
	case "kb_refresh":
		b.handleKBRefresh(s, i)
	default:
		log.Printf("⚠️  [DISCORD] No handler for command: %s", name)
		return
	}

	if b.metrics != nil {
		b.metrics.CommandLatency.Observe(time.Since(start).Seconds())
	}
}

// guildID returns the interaction's guild, with DMs folded into a shared
// pseudo-guild.
func guildID(i *discordgo.InteractionCreate) string {
	if i.GuildID == "" {
		return "dm"
	}
	return i.GuildID
}

// userID works for both guild and DM interactions.
func userID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// commandOptions indexes the interaction's options by name.
func commandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	indexed := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		indexed[opt.Name] = opt
	}
	return indexed
}
