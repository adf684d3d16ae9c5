// Package dedup keeps a short-lived set of inbound event ids so that a platform
// redelivering the same event does not trigger a second reply.
package dedup

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/sandevgo/muse/pkg/log"
)

const (
	DefaultTTL           = 30 * time.Second
	DefaultMaxSize       = 10_000
	DefaultSweepInterval = time.Minute
)

type entry struct {
	expiresAt time.Time
	element   *list.Element
}

// Filter is a TTL set of event ids bounded by size. Expired entries are never
// reported as seen: Seen checks expiry on access, and the sweep started by Start
// only reclaims memory.
type Filter struct {
	mu       sync.Mutex
	entries  map[string]*entry
	order    *list.List // ids in mark order, oldest at front
	ttl      time.Duration
	maxSize  int
	interval time.Duration
	now      func() time.Time
}

type Option func(*Filter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) { f.now = now }
}

func WithMaxSize(n int) Option {
	return func(f *Filter) { f.maxSize = n }
}

func WithSweepInterval(d time.Duration) Option {
	return func(f *Filter) { f.interval = d }
}

func New(ttl time.Duration, opts ...Option) *Filter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	f := &Filter{
		entries:  make(map[string]*entry),
		order:    list.New(),
		ttl:      ttl,
		maxSize:  DefaultMaxSize,
		interval: DefaultSweepInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Seen reports whether id was marked within the TTL window.
func (f *Filter) Seen(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seenLocked(id, f.now())
}

// Mark records id as handled for one TTL window from now.
func (f *Filter) Mark(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markLocked(id, f.now())
}

// CheckAndMark marks id and reports whether it had already been seen.
// Two goroutines racing on the same id get exactly one false.
func (f *Filter) CheckAndMark(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if f.seenLocked(id, now) {
		return true
	}
	f.markLocked(id, now)
	return false
}

// Len returns the number of stored ids, expired ones included until swept.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *Filter) seenLocked(id string, now time.Time) bool {
	e, ok := f.entries[id]
	return ok && now.Before(e.expiresAt)
}

func (f *Filter) markLocked(id string, now time.Time) {
	expiresAt := now.Add(f.ttl)

	if e, ok := f.entries[id]; ok {
		e.expiresAt = expiresAt
		f.order.MoveToBack(e.element)
		return
	}

	if f.maxSize > 0 && len(f.entries) >= f.maxSize {
		f.evictOldest()
	}

	f.entries[id] = &entry{
		expiresAt: expiresAt,
		element:   f.order.PushBack(id),
	}
}

func (f *Filter) evictOldest() {
	front := f.order.Front()
	if front == nil {
		return
	}
	id, _ := front.Value.(string)
	f.order.Remove(front)
	delete(f.entries, id)
}

// Sweep drops expired entries and returns how many were removed.
func (f *Filter) Sweep() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	removed := 0
	for id, e := range f.entries {
		if !now.Before(e.expiresAt) {
			f.order.Remove(e.element)
			delete(f.entries, id)
			removed++
		}
	}
	return removed
}

// Start runs the periodic sweep until ctx is cancelled.
func (f *Filter) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx).With().Str("component", "dedup").Logger()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := f.Sweep(); n > 0 {
				logger.Debug().Int("removed", n).Msg("swept expired event ids")
			}
		}
	}
}

func (f *Filter) Shutdown(ctx context.Context) error {
	return nil
}
