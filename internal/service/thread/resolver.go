// Package thread maps inbound messages onto stable conversation threads.
//
// A message that is not a reply belongs to its channel's thread. A reply belongs
// to the thread of whatever it replies to: known bot replies resolve from an
// in-memory index, anything else is found by walking the reply chain back
// through the platform, one fetch per hop, up to a fixed depth. A chain that
// ends at a plain message resolves to that message's channel thread.
package thread

import (
	"context"
	"sync"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

const DefaultMaxDepth = 20

type Resolver struct {
	mu       sync.RWMutex
	index    map[string]core.ThreadID // message id -> thread
	fetcher  core.MessageFetcher
	maxDepth int
}

func NewResolver(fetcher core.MessageFetcher, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{
		index:    make(map[string]core.ThreadID),
		fetcher:  fetcher,
		maxDepth: maxDepth,
	}
}

// Resolve returns the thread for ev. It never fails: when the chain cannot be
// fetched the referenced message id is used as the thread.
func (r *Resolver) Resolve(ctx context.Context, ev core.InboundEvent) core.ThreadID {
	if !ev.IsReply() {
		return core.ThreadID(ev.ChannelID)
	}

	ref := *ev.Reference
	if ref.ChannelID == "" {
		ref.ChannelID = ev.ChannelID
	}

	if id, ok := r.Lookup(ref.MessageID); ok {
		return id
	}

	return r.walk(ctx, ref)
}

func (r *Resolver) walk(ctx context.Context, origin core.Reference) core.ThreadID {
	logger := log.FromCtx(ctx).With().
		Str("component", "thread_resolver").
		Str("reference", origin.MessageID).
		Logger()

	if r.fetcher == nil {
		return core.ThreadID(origin.MessageID)
	}

	cur := origin
	last := origin.MessageID
	for depth := 0; depth < r.maxDepth; depth++ {
		msg, err := r.fetcher.FetchMessage(ctx, cur)
		if err != nil {
			logger.Warn().Err(err).Int("depth", depth).Msg("reply chain fetch failed, using referenced message as thread")
			return core.ThreadID(origin.MessageID)
		}
		last = msg.ID

		if id, ok := r.Lookup(msg.ID); ok {
			logger.Debug().Int("depth", depth).Str("thread", string(id)).Msg("reply chain hit known message")
			return id
		}

		// the root is not a reply, so it lives in its channel's thread
		if msg.Reference == nil || msg.Reference.MessageID == "" {
			root := msg.ChannelID
			if root == "" {
				root = cur.ChannelID
			}
			logger.Debug().Int("depth", depth).Str("root", msg.ID).Msg("reply chain reached root")
			return core.ThreadID(root)
		}

		next := *msg.Reference
		if next.ChannelID == "" {
			next.ChannelID = cur.ChannelID
		}
		if id, ok := r.Lookup(next.MessageID); ok {
			return id
		}
		cur = next
	}

	logger.Warn().Int("max_depth", r.maxDepth).Str("last", last).Msg("reply chain too deep, stopping walk")
	return core.ThreadID(last)
}

// Register records that messageID (a reply the bot sent) belongs to threadID.
// The first registration for a message wins.
func (r *Resolver) Register(messageID string, threadID core.ThreadID) {
	if messageID == "" || threadID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[messageID]; !exists {
		r.index[messageID] = threadID
	}
}

func (r *Resolver) Lookup(messageID string) (core.ThreadID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.index[messageID]
	return id, ok
}

// Len returns the number of indexed bot replies.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.index)
}
