package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/conversation"
	"github.com/sandevgo/muse/internal/service/dedup"
	"github.com/sandevgo/muse/internal/service/thread"
	"github.com/sandevgo/muse/pkg/conv"
)

type fakeAI struct {
	requests [][]core.Message
	reply    string
	err      error
}

func (f *fakeAI) Chat(_ context.Context, history []core.Message) (core.Message, error) {
	f.requests = append(f.requests, append([]core.Message(nil), history...))
	if f.err != nil {
		return core.Message{}, f.err
	}
	return core.Message{Role: core.RoleAssistant, Content: f.reply}, nil
}

type fakeResponder struct {
	sent   []string
	nextID string
	ids    []string
	err    error
}

func (r *fakeResponder) Respond(_ context.Context, content string) ([]string, error) {
	r.sent = append(r.sent, content)
	if r.ids != nil {
		return r.ids, r.err
	}
	if r.nextID == "" {
		return nil, r.err
	}
	return []string{r.nextID}, r.err
}

type fakeTranscript struct {
	turns map[core.ThreadID][]core.Message
}

func (t *fakeTranscript) AppendTurns(_ context.Context, id core.ThreadID, turns ...core.Message) error {
	if t.turns == nil {
		t.turns = make(map[core.ThreadID][]core.Message)
	}
	t.turns[id] = append(t.turns[id], turns...)
	return nil
}

func (t *fakeTranscript) RecordJob(context.Context, core.JobRecord) error { return nil }

type noFetcher struct{}

func (noFetcher) FetchMessage(context.Context, core.Reference) (core.FetchedMessage, error) {
	return core.FetchedMessage{}, core.ErrMessageNotFound
}

type fixture struct {
	svc        *Service
	ai         *fakeAI
	store      *conversation.Store
	resolver   *thread.Resolver
	transcript *fakeTranscript
}

func newFixture(opts ...Option) *fixture {
	ai := &fakeAI{reply: "hello!"}
	store := conversation.NewStore("You are a helpful assistant.", 20)
	tr := &fakeTranscript{}
	opts = append([]Option{WithTranscript(tr)}, opts...)
	return &fixture{
		svc:        NewService(dedup.New(30*time.Second), store, ai, opts...),
		ai:         ai,
		store:      store,
		resolver:   thread.NewResolver(noFetcher{}, 20),
		transcript: tr,
	}
}

func event(id, content string) core.InboundEvent {
	return core.InboundEvent{ID: id, Content: content, AuthorID: "u1", AuthorName: "alice", ChannelID: "chan"}
}

func TestHandle_AppendsExchangeAndRegistersReply(t *testing.T) {
	f := newFixture()
	resp := &fakeResponder{nextID: "bot-1"}

	require.NoError(t, f.svc.Handle(context.Background(), event("m1", "hi"), f.resolver, resp))

	assert.Equal(t, []string{"hello!"}, resp.sent)

	history, ok := f.store.Get("chan")
	require.True(t, ok)
	require.Len(t, history, 3)
	assert.Equal(t, "alice: hi", history[1].Content)
	assert.Equal(t, core.Message{Role: core.RoleAssistant, Content: "hello!"}, history[2])

	id, ok := f.resolver.Lookup("bot-1")
	assert.True(t, ok)
	assert.Equal(t, core.ThreadID("chan"), id)

	assert.Len(t, f.transcript.turns["chan"], 2)
}

func TestHandle_ReplyToBotContinuesThread(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.Handle(ctx, event("m1", "first"), f.resolver, &fakeResponder{nextID: "bot-1"}))

	reply := event("m2", "second")
	reply.ChannelID = "other"
	reply.Reference = &core.Reference{MessageID: "bot-1", ChannelID: "chan"}
	require.NoError(t, f.svc.Handle(ctx, reply, f.resolver, &fakeResponder{nextID: "bot-2"}))

	// the second request carried the first exchange
	require.Len(t, f.ai.requests, 2)
	assert.Len(t, f.ai.requests[1], 4)

	history, _ := f.store.Get("chan")
	assert.Len(t, history, 5)
}

func TestHandle_DuplicateEventIgnored(t *testing.T) {
	f := newFixture()
	resp := &fakeResponder{}

	require.NoError(t, f.svc.Handle(context.Background(), event("m1", "hi"), f.resolver, resp))
	require.NoError(t, f.svc.Handle(context.Background(), event("m1", "hi"), f.resolver, resp))

	assert.Len(t, f.ai.requests, 1)
	assert.Len(t, resp.sent, 1)
}

func TestHandle_CompletionFailureLeavesHistory(t *testing.T) {
	f := newFixture()
	f.ai.err = errors.New("upstream 503")
	resp := &fakeResponder{}

	err := f.svc.Handle(context.Background(), event("m1", "hi"), f.resolver, resp)
	require.ErrorIs(t, err, core.ErrCompletion)

	assert.Equal(t, []string{apology}, resp.sent)

	_, ok := f.store.Get("chan")
	assert.False(t, ok)
	assert.Empty(t, f.store.Threads())
	assert.Empty(t, f.transcript.turns)
}

func TestHandle_CompletionFailureKeepsExistingHistory(t *testing.T) {
	f := newFixture()
	resp := &fakeResponder{}
	require.NoError(t, f.svc.Handle(context.Background(), event("m1", "hi"), f.resolver, resp))

	before, ok := f.store.Get("chan")
	require.True(t, ok)

	f.ai.err = errors.New("upstream 503")
	err := f.svc.Handle(context.Background(), event("m2", "still there?"), f.resolver, resp)
	require.ErrorIs(t, err, core.ErrCompletion)

	after, ok := f.store.Get("chan")
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestHandle_LongReplyTruncated(t *testing.T) {
	f := newFixture(WithMaxLength(100))
	f.ai.reply = strings.Repeat("x", 500)
	resp := &fakeResponder{}

	require.NoError(t, f.svc.Handle(context.Background(), event("m1", "essay"), f.resolver, resp))

	require.Len(t, resp.sent, 1)
	assert.Len(t, []rune(resp.sent[0]), 100)
	assert.True(t, strings.HasSuffix(resp.sent[0], conv.TruncationMarker))

	// history keeps the full answer
	stored, _ := f.store.Get("chan")
	assert.Len(t, stored[2].Content, 500)
}

func TestHandle_RegistersEverySentPart(t *testing.T) {
	f := newFixture()
	resp := &fakeResponder{ids: []string{"part-1", "part-2", "part-3"}}

	require.NoError(t, f.svc.Handle(context.Background(), event("m1", "long answer please"), f.resolver, resp))

	for _, id := range resp.ids {
		got, ok := f.resolver.Lookup(id)
		require.True(t, ok, id)
		assert.Equal(t, core.ThreadID("chan"), got)
	}

	reply := event("m2", "about the first part")
	reply.Reference = &core.Reference{MessageID: "part-1", ChannelID: "chan"}
	require.NoError(t, f.svc.Handle(context.Background(), reply, f.resolver, &fakeResponder{}))

	history, _ := f.store.Get("chan")
	assert.Len(t, history, 5)
}

func TestHandle_DeliveryFailure(t *testing.T) {
	f := newFixture()
	resp := &fakeResponder{err: fmt.Errorf("missing permissions")}

	err := f.svc.Handle(context.Background(), event("m1", "hi"), f.resolver, resp)
	assert.ErrorIs(t, err, core.ErrDelivery)
	assert.Equal(t, 0, f.resolver.Len())
}

func TestUserText(t *testing.T) {
	tests := []struct {
		name string
		ev   core.InboundEvent
		want string
	}{
		{"plain", core.InboundEvent{Content: "hi"}, "hi"},
		{"with attachment", core.InboundEvent{Content: "look", AttachmentURLs: []string{"https://cdn/a.png"}}, "look\nhttps://cdn/a.png"},
		{"attachment only", core.InboundEvent{AttachmentURLs: []string{"u1", "u2"}}, "u1\nu2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserText(tt.ev))
		})
	}
}
