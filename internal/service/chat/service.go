// Package chat runs the conversational pipeline for one inbound message:
// dedup, thread resolution, completion, history update and reply delivery.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/conversation"
	"github.com/sandevgo/muse/pkg/conv"
	"github.com/sandevgo/muse/pkg/log"
	"github.com/sandevgo/muse/pkg/tokens"
)

const apology = "Sorry, I couldn't come up with a reply right now. Please try again in a moment."

// DedupFilter reports whether an event id was already handled and marks it.
type DedupFilter interface {
	CheckAndMark(id string) bool
}

// ThreadResolver maps events to threads and learns the ids of sent replies.
// Each transport owns one, backed by its own MessageFetcher.
type ThreadResolver interface {
	Resolve(ctx context.Context, ev core.InboundEvent) core.ThreadID
	Register(msgID string, threadID core.ThreadID)
}

type Service struct {
	filter     DedupFilter
	store      *conversation.Store
	ai         core.AIProvider
	transcript core.TranscriptRepository
	maxLength  int
}

type Option func(*Service)

// WithTranscript logs every completed exchange to repo.
func WithTranscript(repo core.TranscriptRepository) Option {
	return func(s *Service) { s.transcript = repo }
}

// WithMaxLength caps outbound replies, in characters.
func WithMaxLength(n int) Option {
	return func(s *Service) { s.maxLength = n }
}

func NewService(filter DedupFilter, store *conversation.Store, ai core.AIProvider, opts ...Option) *Service {
	s := &Service{
		filter:    filter,
		store:     store,
		ai:        ai,
		maxLength: 2000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle answers ev through responder. Duplicate events are dropped silently.
// A completion failure sends a single apology and leaves the conversation
// untouched; the history is only extended once the backend has answered.
func (s *Service) Handle(ctx context.Context, ev core.InboundEvent, resolver ThreadResolver, responder core.Responder) error {
	logger := log.FromCtx(ctx).With().Str("event", ev.ID).Str("channel", ev.ChannelID).Logger()

	if s.filter != nil && s.filter.CheckAndMark(ev.ID) {
		logger.Debug().Msg("duplicate event dropped")
		return nil
	}

	threadID := resolver.Resolve(ctx, ev)
	logger = logger.With().Str("thread", string(threadID)).Logger()

	text := UserText(ev)
	history := s.store.Snapshot(threadID)
	request := append(history, conversation.UserTurn(text, ev.AuthorName))

	if e := logger.Debug(); e.Enabled() {
		e.Int("turns", len(request)).Int("tokens", countTokens(request)).Msg("requesting completion")
	}

	start := time.Now()
	answer, err := s.ai.Chat(ctx, request)
	if err != nil {
		logger.Error().Err(err).Msg("completion failed")
		if _, rerr := responder.Respond(ctx, apology); rerr != nil {
			logger.Warn().Err(rerr).Msg("failed to send apology")
		}
		return fmt.Errorf("%w: %w", core.ErrCompletion, err)
	}

	s.store.Append(threadID, core.RoleUser, text, ev.AuthorName)
	s.store.Append(threadID, core.RoleAssistant, answer.Content, "")

	if e := logger.Info(); e.Enabled() {
		e.Dur("took", time.Since(start)).Int("reply_tokens", tokens.Count(answer.Content)).Msg("completion received")
	}

	s.recordTurns(ctx, threadID, request[len(request)-1], core.Message{Role: core.RoleAssistant, Content: answer.Content})

	sentIDs, err := responder.Respond(ctx, conv.Truncate(answer.Content, s.maxLength))
	for _, id := range sentIDs {
		resolver.Register(id, threadID)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrDelivery, err)
	}
	return nil
}

func (s *Service) recordTurns(ctx context.Context, threadID core.ThreadID, turns ...core.Message) {
	if s.transcript == nil {
		return
	}
	if err := s.transcript.AppendTurns(ctx, threadID, turns...); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("thread", string(threadID)).Msg("failed to write transcript")
	}
}

// UserText is the user turn body: the message text followed by any attachment
// URLs, one per line.
func UserText(ev core.InboundEvent) string {
	if len(ev.AttachmentURLs) == 0 {
		return ev.Content
	}
	var b strings.Builder
	b.WriteString(ev.Content)
	for _, u := range ev.AttachmentURLs {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(u)
	}
	return b.String()
}

func countTokens(msgs []core.Message) int {
	contents := make([]string, len(msgs))
	for i, m := range msgs {
		contents[i] = m.Content
	}
	return tokens.CountMessages(contents...)
}
