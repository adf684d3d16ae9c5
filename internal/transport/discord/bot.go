// Package discord is the Discord transport: replies to mentions and reply
// chains in guild channels, and the /talk and /imagine slash commands.
package discord

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/chat"
	"github.com/sandevgo/muse/internal/service/imagine"
	"github.com/sandevgo/muse/internal/service/thread"
	"github.com/sandevgo/muse/pkg/conv"
	"github.com/sandevgo/muse/pkg/log"
)

// MaxMessageLength is Discord's hard limit for message content.
const MaxMessageLength = 2000

type Bot struct {
	ctx      context.Context
	session  *discordgo.Session
	cfg      *config.DiscordConfig
	chat     *chat.Service
	queue    *imagine.Queue
	resolver *thread.Resolver
	removers []func()
}

// NewBot wires the Discord transport. queue may be nil when image generation
// is disabled; /imagine then answers with a notice.
func NewBot(
	ctx context.Context,
	cfg *config.DiscordConfig,
	chatSvc *chat.Service,
	queue *imagine.Queue,
	resolveDepth int,
) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		ctx:      log.WithComponent(ctx, "discord"),
		session:  session,
		cfg:      cfg,
		chat:     chatSvc,
		queue:    queue,
		resolver: thread.NewResolver(NewFetcher(session), resolveDepth),
	}

	b.removers = append(b.removers,
		session.AddHandler(b.onReady),
		session.AddHandler(b.onMessageCreate),
		session.AddHandler(b.onInteractionCreate),
	)
	return b, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting discord bot")
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open connection: %w", err)
	}
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	for _, remove := range b.removers {
		remove()
	}
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger := log.FromCtx(b.ctx)
	logger.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("discord bot ready")

	for _, cmd := range slashCommands() {
		if _, err := s.ApplicationCommandCreate(r.User.ID, b.cfg.GuildID, cmd); err != nil {
			logger.Error().Err(err).Str("command", cmd.Name).Msg("failed to register slash command")
		}
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if s.State == nil || s.State.User == nil {
		return
	}
	botID := s.State.User.ID

	text, ok := addressedText(m.Message, botID)
	if !ok {
		return
	}

	ctx := b.ctx
	ev := inboundEvent(m.Message, text)
	_ = s.ChannelTyping(m.ChannelID)

	resp := &messageResponder{session: s, channelID: m.ChannelID, replyTo: m.ID, guildID: m.GuildID}
	if err := b.chat.Handle(ctx, ev, b.resolver, resp); err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("event", ev.ID).Msg("chat pipeline failed")
	}
}

// addressedText reports whether the bot should answer m, returning its content
// with the bot mention removed. Bots, system messages and DMs are ignored;
// guild messages are answered when they reply to the bot or mention it.
func addressedText(m *discordgo.Message, botID string) (string, bool) {
	if m.Author == nil || m.Author.Bot {
		return "", false
	}
	if m.Type != discordgo.MessageTypeDefault && m.Type != discordgo.MessageTypeReply {
		return "", false
	}
	if m.GuildID == "" {
		return "", false
	}

	replyToBot := m.ReferencedMessage != nil &&
		m.ReferencedMessage.Author != nil &&
		m.ReferencedMessage.Author.ID == botID

	mentioned := false
	for _, u := range m.Mentions {
		if u != nil && u.ID == botID {
			mentioned = true
			break
		}
	}
	if !replyToBot && !mentioned {
		return "", false
	}

	text := m.Content
	for _, tag := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
		text = strings.ReplaceAll(text, tag, "")
	}
	text = strings.TrimSpace(text)
	if text == "" && len(m.Attachments) == 0 {
		return "", false
	}
	return text, true
}

func inboundEvent(m *discordgo.Message, text string) core.InboundEvent {
	ev := core.InboundEvent{
		ID:         m.ID,
		Content:    text,
		AuthorID:   m.Author.ID,
		AuthorName: displayName(m.Member, m.Author),
		IsBot:      m.Author.Bot,
		ChannelID:  m.ChannelID,
		Reference:  reference(m),
		ReceivedAt: m.Timestamp,
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}
	for _, a := range m.Attachments {
		if a != nil && a.URL != "" {
			ev.AttachmentURLs = append(ev.AttachmentURLs, a.URL)
		}
	}
	return ev
}

// displayName prefers the guild nickname, then the global display name, then
// the username.
func displayName(member *discordgo.Member, user *discordgo.User) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if user == nil {
		return ""
	}
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}

type messageResponder struct {
	session   *discordgo.Session
	channelID string
	guildID   string
	replyTo   string
}

func (r *messageResponder) Respond(ctx context.Context, content string) ([]string, error) {
	sent, err := r.session.ChannelMessageSendReply(r.channelID, conv.Truncate(content, MaxMessageLength), &discordgo.MessageReference{
		MessageID: r.replyTo,
		ChannelID: r.channelID,
		GuildID:   r.guildID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return []string{sent.ID}, nil
}

func (b *Bot) Platform() string {
	return "discord"
}

// ListChannels returns the text channels of every guild in the session state.
func (b *Bot) ListChannels(ctx context.Context) ([]core.Channel, error) {
	if b.session.State == nil {
		return nil, fmt.Errorf("discord session not ready")
	}

	b.session.State.RLock()
	defer b.session.State.RUnlock()

	var out []core.Channel
	for _, g := range b.session.State.Guilds {
		for _, ch := range g.Channels {
			if ch.Type != discordgo.ChannelTypeGuildText {
				continue
			}
			out = append(out, core.Channel{ID: ch.ID, Name: ch.Name, Group: g.Name})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out, nil
}

func (b *Bot) SendToChannel(ctx context.Context, channelID, content string) (string, error) {
	if _, err := b.session.State.Channel(channelID); err != nil {
		return "", fmt.Errorf("channel %s not found", channelID)
	}
	sent, err := b.session.ChannelMessageSend(channelID, conv.Truncate(content, MaxMessageLength), discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return sent.ID, nil
}
