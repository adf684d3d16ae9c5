package core

import "time"

const (
	MuseName          = "Muse"
	MuseRepositoryURL = "https://github.com/sandevgo/muse"
	MuseVersion       = "0.2.0"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ThreadID identifies a conversation lineage: a channel id for top-level
// messages, or the root message id of a reply chain.
type ThreadID string

// Message is one role-tagged turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Reference points at the message an inbound event replies to.
type Reference struct {
	MessageID string
	ChannelID string
}

// InboundEvent is a platform message normalised for the chat pipeline.
type InboundEvent struct {
	ID             string
	Content        string
	AuthorID       string
	AuthorName     string
	IsBot          bool
	ChannelID      string
	Reference      *Reference
	AttachmentURLs []string
	ReceivedAt     time.Time
}

// IsReply reports whether the event references another message.
func (e InboundEvent) IsReply() bool {
	return e.Reference != nil && e.Reference.MessageID != ""
}

// FetchedMessage is what a platform returns when a message is looked up by id.
type FetchedMessage struct {
	ID        string
	ChannelID string
	AuthorID  string
	Reference *Reference
}
