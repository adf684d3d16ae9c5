// Package conversation holds the rolling, per-thread chat history sent to the
// completion backend. Each thread keeps its system prompt plus a sliding window
// of the most recent exchange turns; nothing survives a restart.
package conversation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sandevgo/muse/internal/core"
)

const DefaultHistoryLimit = 20

type Store struct {
	mu           sync.RWMutex
	threads      map[core.ThreadID][]core.Message
	systemPrompt string
	limit        int // exchange turns kept after the system turn
}

func NewStore(systemPrompt string, limit int) *Store {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Store{
		threads:      make(map[core.ThreadID][]core.Message),
		systemPrompt: systemPrompt,
		limit:        limit,
	}
}

// Capacity is the maximum stored length of any conversation.
func (s *Store) Capacity() int {
	return s.limit + 1
}

// GetOrCreate returns a copy of the thread's conversation, seeding it with the
// system prompt on first use.
func (s *Store) GetOrCreate(threadID core.ThreadID) []core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.getOrCreateLocked(threadID)
	out := make([]core.Message, len(conv))
	copy(out, conv)
	return out
}

// Get returns a copy of the conversation without creating it.
func (s *Store) Get(threadID core.ThreadID) ([]core.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.threads[threadID]
	if !ok {
		return nil, false
	}
	out := make([]core.Message, len(conv))
	copy(out, conv)
	return out, true
}

// Snapshot returns a copy of the conversation, or the seed a new thread would
// get. Unlike GetOrCreate it never stores anything.
func (s *Store) Snapshot(threadID core.ThreadID) []core.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.threads[threadID]
	if !ok {
		return []core.Message{{Role: core.RoleSystem, Content: s.systemPrompt}}
	}
	out := make([]core.Message, len(conv))
	copy(out, conv)
	return out
}

// Append adds a turn to the thread. User turns are prefixed with the speaker
// label because several people can share one thread while the model only sees
// a single "user" role. Older exchange turns are evicted once the conversation
// would exceed Capacity.
func (s *Store) Append(threadID core.ThreadID, role core.Role, content, speaker string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.getOrCreateLocked(threadID)
	conv = append(conv, core.Message{Role: role, Content: formatContent(role, content, speaker)})

	if len(conv) > s.Capacity() {
		trimmed := make([]core.Message, 0, s.Capacity())
		trimmed = append(trimmed, conv[0])
		trimmed = append(trimmed, conv[len(conv)-s.limit:]...)
		conv = trimmed
	}
	s.threads[threadID] = conv
}

// Clear forgets one thread. Clearing an unknown thread is a no-op.
func (s *Store) Clear(threadID core.ThreadID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
}

// ClearAll forgets every thread and returns how many were dropped.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.threads)
	s.threads = make(map[core.ThreadID][]core.Message)
	return n
}

// ThreadSummary describes one stored thread for the operator console.
type ThreadSummary struct {
	ID    core.ThreadID
	Turns int
}

// Threads lists stored threads sorted by id.
func (s *Store) Threads() []ThreadSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ThreadSummary, 0, len(s.threads))
	for id, conv := range s.threads {
		out = append(out, ThreadSummary{ID: id, Turns: len(conv)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UserTurn builds the user message exactly as Append would store it.
func UserTurn(content, speaker string) core.Message {
	return core.Message{Role: core.RoleUser, Content: formatContent(core.RoleUser, content, speaker)}
}

func (s *Store) getOrCreateLocked(threadID core.ThreadID) []core.Message {
	conv, ok := s.threads[threadID]
	if !ok {
		conv = make([]core.Message, 1, s.Capacity()+1)
		conv[0] = core.Message{Role: core.RoleSystem, Content: s.systemPrompt}
		s.threads[threadID] = conv
	}
	return conv
}

func formatContent(role core.Role, content, speaker string) string {
	if role != core.RoleUser || speaker == "" {
		return content
	}
	return fmt.Sprintf("%s: %s", speaker, content)
}
