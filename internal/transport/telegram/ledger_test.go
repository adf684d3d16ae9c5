package telegram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/thread"
)

var group = &tele.Chat{ID: -100, Type: tele.ChatGroup, Title: "friends"}

func msg(id int, replyTo *tele.Message) *tele.Message {
	return &tele.Message{ID: id, Chat: group, Sender: &tele.User{ID: int64(id * 10)}, ReplyTo: replyTo}
}

func TestLedger_FetchMessage(t *testing.T) {
	l := NewLedger(10)
	a := msg(1, nil)
	b := msg(2, a)
	l.Record(a)
	l.Record(b)

	got, err := l.FetchMessage(context.Background(), core.Reference{MessageID: "-100:2"})
	require.NoError(t, err)
	assert.Equal(t, "-100:2", got.ID)
	assert.Equal(t, "-100", got.ChannelID)
	assert.Equal(t, "20", got.AuthorID)
	require.NotNil(t, got.Reference)
	assert.Equal(t, "-100:1", got.Reference.MessageID)

	_, err = l.FetchMessage(context.Background(), core.Reference{MessageID: "-100:99"})
	assert.ErrorIs(t, err, core.ErrMessageNotFound)
}

func TestLedger_ReplyStubDoesNotEraseLink(t *testing.T) {
	l := NewLedger(10)
	a := msg(1, nil)
	b := msg(2, a)
	l.Record(b)

	// c replies to b; telebot hands over b without its own ReplyTo
	l.Record(msg(3, msg(2, nil)))

	got, err := l.FetchMessage(context.Background(), core.Reference{MessageID: "-100:2"})
	require.NoError(t, err)
	require.NotNil(t, got.Reference)
	assert.Equal(t, "-100:1", got.Reference.MessageID)
}

func TestLedger_EvictsOldest(t *testing.T) {
	l := NewLedger(3)
	for i := 1; i <= 5; i++ {
		l.Record(msg(i, nil))
	}
	assert.Equal(t, 3, l.Len())

	_, err := l.FetchMessage(context.Background(), core.Reference{MessageID: "-100:1"})
	assert.ErrorIs(t, err, core.ErrMessageNotFound)
	_, err = l.FetchMessage(context.Background(), core.Reference{MessageID: "-100:5"})
	assert.NoError(t, err)
}

func TestLedger_ResolvesChainThroughResolver(t *testing.T) {
	l := NewLedger(100)
	a := msg(1, nil)
	b := msg(2, a)
	c := msg(3, b)
	l.Record(a)
	l.Record(b)
	l.Record(c)

	r := thread.NewResolver(l, 20)
	ev := core.InboundEvent{
		ID:        messageKey(group.ID, 4),
		ChannelID: "-100",
		Reference: &core.Reference{MessageID: messageKey(group.ID, 3), ChannelID: "-100"},
	}
	assert.Equal(t, core.ThreadID("-100"), r.Resolve(context.Background(), ev))
}

func TestLedger_Chats(t *testing.T) {
	l := NewLedger(10)
	l.Record(msg(1, nil))
	l.Record(&tele.Message{ID: 1, Chat: &tele.Chat{ID: 7, Type: tele.ChatPrivate, Username: "alice"}})

	chats := l.Chats()
	assert.Len(t, chats, 2)
	assert.Contains(t, chats, core.Channel{ID: "-100", Name: "friends", Group: "group"})
	assert.Contains(t, chats, core.Channel{ID: "7", Name: "alice", Group: "private"})
}
