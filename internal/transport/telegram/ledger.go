package telegram

import (
	"container/list"
	"context"
	"strconv"
	"sync"

	"github.com/sandevgo/muse/internal/core"
	tele "gopkg.in/telebot.v3"
)

const defaultLedgerSize = 20_000

// messageKey is the platform-wide id of a Telegram message: message ids are
// only unique within a chat.
func messageKey(chatID int64, msgID int) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(msgID)
}

type ledgerEntry struct {
	msg     core.FetchedMessage
	element *list.Element
}

// Ledger remembers the reply links of messages the bot has seen or sent.
// The Bot API offers no way to fetch a message by id, so the ledger is the
// MessageFetcher for thread resolution. It also tracks the chats the bot has
// talked in for the operator console.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*ledgerEntry
	order   *list.List
	maxSize int
	chats   map[int64]core.Channel
}

func NewLedger(maxSize int) *Ledger {
	if maxSize <= 0 {
		maxSize = defaultLedgerSize
	}
	return &Ledger{
		entries: make(map[string]*ledgerEntry),
		order:   list.New(),
		maxSize: maxSize,
		chats:   make(map[int64]core.Channel),
	}
}

// Record stores msg and, one level down, the message it replies to.
func (l *Ledger) Record(msg *tele.Message) {
	if msg == nil || msg.Chat == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.chats[msg.Chat.ID] = chatChannel(msg.Chat)

	if msg.ReplyTo != nil {
		l.putLocked(toFetched(msg.ReplyTo, msg.Chat))
	}
	l.putLocked(toFetched(msg, msg.Chat))
}

func (l *Ledger) FetchMessage(_ context.Context, ref core.Reference) (core.FetchedMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[ref.MessageID]
	if !ok {
		return core.FetchedMessage{}, core.ErrMessageNotFound
	}
	return e.msg, nil
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Chats lists every chat recorded so far.
func (l *Ledger) Chats() []core.Channel {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]core.Channel, 0, len(l.chats))
	for _, ch := range l.chats {
		out = append(out, ch)
	}
	return out
}

// putLocked inserts or refreshes an entry. A known reply link is never
// replaced by an unknown one: a ReplyTo stub carries no link of its own.
func (l *Ledger) putLocked(m core.FetchedMessage) {
	if e, ok := l.entries[m.ID]; ok {
		if m.Reference != nil || e.msg.Reference == nil {
			e.msg = m
		}
		return
	}

	l.entries[m.ID] = &ledgerEntry{msg: m, element: l.order.PushBack(m.ID)}
	for len(l.entries) > l.maxSize {
		oldest := l.order.Front()
		if oldest == nil {
			break
		}
		l.order.Remove(oldest)
		delete(l.entries, oldest.Value.(string))
	}
}

func toFetched(msg *tele.Message, chat *tele.Chat) core.FetchedMessage {
	m := core.FetchedMessage{
		ID:        messageKey(chat.ID, msg.ID),
		ChannelID: strconv.FormatInt(chat.ID, 10),
	}
	if msg.Sender != nil {
		m.AuthorID = strconv.FormatInt(msg.Sender.ID, 10)
	}
	if msg.ReplyTo != nil {
		m.Reference = &core.Reference{
			MessageID: messageKey(chat.ID, msg.ReplyTo.ID),
			ChannelID: m.ChannelID,
		}
	}
	return m
}

func chatChannel(chat *tele.Chat) core.Channel {
	name := chat.Title
	if name == "" {
		name = chat.Username
	}
	if name == "" {
		name = chat.FirstName
	}
	return core.Channel{
		ID:    strconv.FormatInt(chat.ID, 10),
		Name:  name,
		Group: string(chat.Type),
	}
}
