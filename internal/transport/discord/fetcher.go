package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/sandevgo/muse/internal/core"
)

type messageGetter interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Fetcher looks messages up through the REST API for thread resolution.
type Fetcher struct {
	session messageGetter
}

func NewFetcher(session messageGetter) *Fetcher {
	return &Fetcher{session: session}
}

func (f *Fetcher) FetchMessage(ctx context.Context, ref core.Reference) (core.FetchedMessage, error) {
	msg, err := f.session.ChannelMessage(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		var rerr *discordgo.RESTError
		if errors.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode == http.StatusNotFound {
			return core.FetchedMessage{}, core.ErrMessageNotFound
		}
		return core.FetchedMessage{}, fmt.Errorf("fetch message %s: %w", ref.MessageID, err)
	}
	return fetchedMessage(msg), nil
}

func fetchedMessage(m *discordgo.Message) core.FetchedMessage {
	out := core.FetchedMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Reference: reference(m),
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
	}
	return out
}

// reference returns the reply link of m, or nil for a message that is not a
// reply. Forwards and pins also carry a MessageReference, so the message type
// decides.
func reference(m *discordgo.Message) *core.Reference {
	if m.Type != discordgo.MessageTypeReply || m.MessageReference == nil || m.MessageReference.MessageID == "" {
		return nil
	}
	ref := &core.Reference{
		MessageID: m.MessageReference.MessageID,
		ChannelID: m.MessageReference.ChannelID,
	}
	if ref.ChannelID == "" {
		ref.ChannelID = m.ChannelID
	}
	return ref
}
