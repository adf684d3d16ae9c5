package discord

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/imagine"
	"github.com/sandevgo/muse/pkg/conv"
	"github.com/sandevgo/muse/pkg/log"
)

const (
	cmdTalk    = "talk"
	cmdImagine = "imagine"
)

func slashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdTalk,
			Description: "Talk to the AI bot",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "Your message to the AI",
					Required:    true,
					MaxLength:   MaxMessageLength,
				},
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        "image",
					Description: "Optional image or file to include",
					Required:    false,
				},
			},
		},
		{
			Name:        cmdImagine,
			Description: "Generate an image from a prompt",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prompt",
					Description: "What to draw",
					Required:    true,
				},
			},
		},
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := b.ctx
	logger := log.FromCtx(ctx)
	data := i.ApplicationCommandData()

	// Both commands may run longer than the 3s interaction window.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		logger.Error().Err(err).Str("command", data.Name).Msg("failed to defer interaction")
		return
	}

	deferred := &deferredReply{session: s, interaction: i.Interaction, user: interactionUser(i)}

	switch data.Name {
	case cmdTalk:
		b.handleTalk(ctx, i, data, deferred)
	case cmdImagine:
		b.handleImagine(ctx, data, deferred)
	default:
		_ = deferred.EditReply(ctx, core.Reply{Content: "Unknown command."})
	}
}

func (b *Bot) handleTalk(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData, deferred *deferredReply) {
	message, attachments := talkOptions(data)
	user := interactionUser(i)

	ev := core.InboundEvent{
		ID:             i.ID,
		Content:        message,
		AuthorName:     deferred.Name(),
		ChannelID:      i.ChannelID,
		AttachmentURLs: attachments,
		ReceivedAt:     time.Now(),
	}
	if user != nil {
		ev.AuthorID = user.ID
		ev.IsBot = user.Bot
	}

	if err := b.chat.Handle(ctx, ev, b.resolver, deferred); err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("event", ev.ID).Msg("talk failed")
	}
}

func (b *Bot) handleImagine(ctx context.Context, data discordgo.ApplicationCommandInteractionData, deferred *deferredReply) {
	if b.queue == nil {
		_ = deferred.EditReply(ctx, core.Reply{Content: "Image generation is disabled."})
		return
	}

	var prompt string
	for _, opt := range data.Options {
		if opt.Name == "prompt" {
			prompt = opt.StringValue()
		}
	}

	status := b.queue.Status()
	ahead := len(status.Pending)
	if status.Running != "" {
		ahead++
	}
	note := fmt.Sprintf("🎨 Generating image for: %q", prompt)
	if ahead > 0 {
		note += fmt.Sprintf(" (%d ahead in queue)", ahead)
	}
	if err := deferred.EditReply(ctx, core.Reply{Content: note}); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to post imagine placeholder")
	}

	b.queue.Enqueue(ctx, imagine.Job{Prompt: prompt, Requester: deferred})
}

// talkOptions extracts the message text and the URL of the optional attachment.
func talkOptions(data discordgo.ApplicationCommandInteractionData) (string, []string) {
	var message string
	var urls []string
	for _, opt := range data.Options {
		switch opt.Name {
		case "message":
			message = opt.StringValue()
		case "image":
			id, _ := opt.Value.(string)
			if data.Resolved == nil {
				continue
			}
			if a, ok := data.Resolved.Attachments[id]; ok && a != nil {
				urls = append(urls, a.URL)
			}
		}
	}
	return message, urls
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// deferredReply edits the original deferred interaction response. It serves
// as the Responder for /talk and the Requester for /imagine.
type deferredReply struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	user        *discordgo.User
}

func (d *deferredReply) Name() string {
	if d.user == nil {
		return ""
	}
	var member *discordgo.Member
	if d.interaction != nil {
		member = d.interaction.Member
	}
	return displayName(member, d.user)
}

func (d *deferredReply) Respond(ctx context.Context, content string) ([]string, error) {
	content = conv.Truncate(content, MaxMessageLength)
	msg, err := d.session.InteractionResponseEdit(d.interaction, &discordgo.WebhookEdit{Content: &content}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return []string{msg.ID}, nil
}

func (d *deferredReply) EditReply(ctx context.Context, reply core.Reply) error {
	content := conv.Truncate(reply.Content, MaxMessageLength)
	edit := &discordgo.WebhookEdit{Content: &content}

	for _, path := range reply.Files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()

		name := filepath.Base(path)
		edit.Files = append(edit.Files, &discordgo.File{
			Name:        name,
			ContentType: mime.TypeByExtension(filepath.Ext(name)),
			Reader:      f,
		})
	}

	_, err := d.session.InteractionResponseEdit(d.interaction, edit, discordgo.WithContext(ctx))
	return err
}
