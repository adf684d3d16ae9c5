package core

import "context"

// MessageFetcher looks messages up by reference. Implementations return
// ErrMessageNotFound when the platform has no such message.
type MessageFetcher interface {
	FetchMessage(ctx context.Context, ref Reference) (FetchedMessage, error)
}

// Responder delivers a text reply for one inbound event and returns the ids of
// the messages it sent, in order. Platforms that split long replies return one
// id per part.
type Responder interface {
	Respond(ctx context.Context, content string) ([]string, error)
}

// Reply is the content of a deferred reply; Files are local paths to attach.
type Reply struct {
	Content string
	Files   []string
}

// Requester is the caller of a queued job: whoever is waiting on its deferred reply.
type Requester interface {
	Name() string
	EditReply(ctx context.Context, reply Reply) error
}

// Channel is a place the operator can send messages to.
type Channel struct {
	ID    string
	Name  string
	Group string // guild or chat title
}

// ChannelDirectory is the operator view of one messaging platform.
type ChannelDirectory interface {
	Platform() string
	ListChannels(ctx context.Context) ([]Channel, error)
	SendToChannel(ctx context.Context, channelID, content string) (string, error)
}
