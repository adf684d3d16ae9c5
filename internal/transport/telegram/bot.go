package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/chat"
	"github.com/sandevgo/muse/internal/service/imagine"
	"github.com/sandevgo/muse/internal/service/thread"
	"github.com/sandevgo/muse/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

type Bot struct {
	bot      *tele.Bot
	cfg      *config.TelegramConfig
	chat     *chat.Service
	queue    *imagine.Queue
	resolver *thread.Resolver
	ledger   *Ledger
	sender   *sender
	allowed  map[int64]bool
}

// NewBot wires the Telegram transport. queue may be nil when image
// generation is disabled.
func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	chatSvc *chat.Service,
	queue *imagine.Queue,
	resolveDepth int,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.FromCtx(ctx).Error().Err(err).Msg("telegram handler failed")
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	ledger := NewLedger(0)
	bot := &Bot{
		bot:      b,
		cfg:      cfg,
		chat:     chatSvc,
		queue:    queue,
		resolver: thread.NewResolver(ledger, resolveDepth),
		ledger:   ledger,
		sender:   newSender(b, ledger),
		allowed:  make(map[int64]bool, len(cfg.AllowedIDs)),
	}
	for _, id := range cfg.AllowedIDs {
		bot.allowed[id] = true
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, log.WithComponent(ctx, "telegram"))
			return next(c)
		}
	})

	// Middleware: allow-list, when configured
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if len(bot.allowed) > 0 && (c.Sender() == nil || !bot.allowed[c.Sender().ID]) {
				return nil // Ignore unauthorized users
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleMessage)
	b.Handle("/imagine", bot.handleImagine)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("username", b.bot.Me.Username).Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	msg := c.Message()
	if msg == nil || msg.Sender == nil || msg.Sender.IsBot {
		return nil
	}

	b.ledger.Record(msg)

	text, ok := b.addressedText(msg)
	if !ok {
		return nil
	}

	_ = c.Notify(tele.Typing)

	ev := b.inboundEvent(msg, text)
	resp := &responder{sender: b.sender, chat: msg.Chat, replyTo: msg}
	if err := b.chat.Handle(ctx, ev, b.resolver, resp); err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("event", ev.ID).Msg("chat pipeline failed")
	}
	return nil
}

func (b *Bot) handleImagine(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	msg := c.Message()
	if msg == nil || msg.Sender == nil {
		return nil
	}
	b.ledger.Record(msg)

	if b.queue == nil {
		return c.Reply("Image generation is disabled.")
	}

	prompt := strings.TrimSpace(msg.Payload)
	if prompt == "" {
		return c.Reply("Usage: /imagine <prompt>")
	}

	placeholder, err := b.bot.Send(msg.Chat, fmt.Sprintf("🎨 Generating image for: %q…", prompt), &tele.SendOptions{ReplyTo: msg})
	if err != nil {
		return fmt.Errorf("send placeholder: %w", err)
	}

	b.queue.Enqueue(ctx, imagine.Job{
		Prompt: prompt,
		Requester: &requester{
			bot:         b.bot,
			ledger:      b.ledger,
			name:        displayName(msg.Sender),
			chat:        msg.Chat,
			origin:      msg,
			placeholder: placeholder,
		},
	})
	return nil
}

// addressedText reports whether the bot should answer msg, returning the text
// with any @mention of the bot removed. Private chats are always answered;
// groups only on a reply to the bot or a mention.
func (b *Bot) addressedText(msg *tele.Message) (string, bool) {
	text := msg.Text
	if msg.Chat.Type == tele.ChatPrivate {
		return text, true
	}

	me := b.bot.Me
	if msg.ReplyTo != nil && msg.ReplyTo.Sender != nil && msg.ReplyTo.Sender.ID == me.ID {
		return text, true
	}

	mention := "@" + me.Username
	if me.Username != "" && strings.Contains(text, mention) {
		return strings.TrimSpace(strings.ReplaceAll(text, mention, "")), true
	}
	return "", false
}

func (b *Bot) inboundEvent(msg *tele.Message, text string) core.InboundEvent {
	channelID := strconv.FormatInt(msg.Chat.ID, 10)
	ev := core.InboundEvent{
		ID:         messageKey(msg.Chat.ID, msg.ID),
		Content:    text,
		AuthorID:   strconv.FormatInt(msg.Sender.ID, 10),
		AuthorName: displayName(msg.Sender),
		IsBot:      msg.Sender.IsBot,
		ChannelID:  channelID,
		ReceivedAt: msg.Time(),
	}
	if msg.ReplyTo != nil {
		ev.Reference = &core.Reference{
			MessageID: messageKey(msg.Chat.ID, msg.ReplyTo.ID),
			ChannelID: channelID,
		}
	}
	return ev
}

func displayName(u *tele.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

func (b *Bot) Platform() string {
	return "telegram"
}

// ListChannels returns the chats seen since start; Telegram has no API to
// enumerate a bot's chats.
func (b *Bot) ListChannels(ctx context.Context) ([]core.Channel, error) {
	return b.ledger.Chats(), nil
}

func (b *Bot) SendToChannel(ctx context.Context, channelID, content string) (string, error) {
	id, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat id %q", channelID)
	}
	sent, err := b.sender.sendMarkdown(ctx, tele.ChatID(id), content, nil)
	if err != nil {
		return "", err
	}
	return messageKey(id, sent[0].ID), nil
}

type responder struct {
	sender  *sender
	chat    *tele.Chat
	replyTo *tele.Message
}

func (r *responder) Respond(ctx context.Context, content string) ([]string, error) {
	sent, err := r.sender.sendMarkdown(ctx, r.chat, content, r.replyTo)
	ids := make([]string, 0, len(sent))
	for _, m := range sent {
		ids = append(ids, messageKey(r.chat.ID, m.ID))
	}
	return ids, err
}

// requester edits the /imagine placeholder, or replaces it with the photo.
type requester struct {
	bot         *tele.Bot
	ledger      *Ledger
	name        string
	chat        *tele.Chat
	origin      *tele.Message
	placeholder *tele.Message
}

func (r *requester) Name() string {
	return r.name
}

func (r *requester) EditReply(ctx context.Context, reply core.Reply) error {
	if len(reply.Files) == 0 {
		_, err := r.bot.Edit(r.placeholder, reply.Content)
		return err
	}

	photo := &tele.Photo{File: tele.FromDisk(reply.Files[0]), Caption: reply.Content}
	sent, err := r.bot.Send(r.chat, photo, &tele.SendOptions{ReplyTo: r.origin})
	if err != nil {
		return err
	}
	r.ledger.Record(sent)

	if err := r.bot.Delete(r.placeholder); err != nil {
		log.FromCtx(ctx).Debug().Err(err).Msg("failed to delete placeholder")
	}
	return nil
}
