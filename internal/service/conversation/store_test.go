package conversation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/muse/internal/core"
)

const prompt = "You are a helpful assistant."

func TestStore_GetOrCreateSeedsSystemPrompt(t *testing.T) {
	s := NewStore(prompt, 20)

	conv := s.GetOrCreate("T")
	require.Len(t, conv, 1)
	assert.Equal(t, core.Message{Role: core.RoleSystem, Content: prompt}, conv[0])

	// second call does not re-seed
	s.Append("T", core.RoleUser, "hi", "alice")
	conv = s.GetOrCreate("T")
	assert.Len(t, conv, 2)
}

func TestStore_AppendFormatsSpeaker(t *testing.T) {
	tests := []struct {
		name    string
		role    core.Role
		content string
		speaker string
		want    string
	}{
		{"user with speaker", core.RoleUser, "hello", "alice", "alice: hello"},
		{"user without speaker", core.RoleUser, "hello", "", "hello"},
		{"assistant ignores speaker", core.RoleAssistant, "hi there", "muse", "hi there"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(prompt, 20)
			s.Append("T", tt.role, tt.content, tt.speaker)

			conv, ok := s.Get("T")
			require.True(t, ok)
			require.Len(t, conv, 2)
			assert.Equal(t, tt.role, conv[1].Role)
			assert.Equal(t, tt.want, conv[1].Content)
		})
	}
}

func TestStore_EvictionKeepsSystemPrompt(t *testing.T) {
	s := NewStore(prompt, 20)

	for i := 1; i <= 25; i++ {
		s.Append("T", core.RoleUser, fmt.Sprintf("q%d", i), "alice")
		s.Append("T", core.RoleAssistant, fmt.Sprintf("a%d", i), "")
	}

	conv, ok := s.Get("T")
	require.True(t, ok)
	require.Len(t, conv, 21)

	assert.Equal(t, core.RoleSystem, conv[0].Role)
	assert.Equal(t, prompt, conv[0].Content)

	// 50 exchange turns, the last 20 survive: q16..a25
	assert.Equal(t, "alice: q16", conv[1].Content)
	assert.Equal(t, "a16", conv[2].Content)
	assert.Equal(t, "alice: q25", conv[19].Content)
	assert.Equal(t, "a25", conv[20].Content)
}

func TestStore_NeverExceedsCapacity(t *testing.T) {
	s := NewStore(prompt, 4)
	assert.Equal(t, 5, s.Capacity())

	for i := 0; i < 17; i++ {
		s.Append("T", core.RoleUser, fmt.Sprint(i), "")
		conv, _ := s.Get("T")
		assert.LessOrEqual(t, len(conv), s.Capacity())
		assert.Equal(t, core.RoleSystem, conv[0].Role)
	}
}

func TestStore_ThreadsAreIsolated(t *testing.T) {
	s := NewStore(prompt, 20)
	s.Append("A", core.RoleUser, "one", "alice")
	s.Append("B", core.RoleUser, "two", "bob")
	s.Append("B", core.RoleAssistant, "reply", "")

	a, _ := s.Get("A")
	b, _ := s.Get("B")
	assert.Len(t, a, 2)
	assert.Len(t, b, 3)

	assert.Equal(t, []ThreadSummary{{ID: "A", Turns: 2}, {ID: "B", Turns: 3}}, s.Threads())
}

func TestStore_GetOrCreateReturnsCopy(t *testing.T) {
	s := NewStore(prompt, 20)
	conv := s.GetOrCreate("T")
	conv[0].Content = "tampered"

	fresh := s.GetOrCreate("T")
	assert.Equal(t, prompt, fresh[0].Content)
}

func TestStore_SnapshotDoesNotCreate(t *testing.T) {
	s := NewStore("sys", 4)

	snap := s.Snapshot("t")
	require.Len(t, snap, 1)
	assert.Equal(t, core.Message{Role: core.RoleSystem, Content: "sys"}, snap[0])
	_, ok := s.Get("t")
	assert.False(t, ok)

	s.Append("t", core.RoleUser, "hi", "")
	snap = s.Snapshot("t")
	require.Len(t, snap, 2)
	snap[1].Content = "changed"
	got, _ := s.Get("t")
	assert.Equal(t, "hi", got[1].Content)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(prompt, 20)
	s.Append("A", core.RoleUser, "x", "")
	s.Append("B", core.RoleUser, "y", "")

	s.Clear("A")
	_, ok := s.Get("A")
	assert.False(t, ok)

	s.Clear("missing")

	assert.Equal(t, 1, s.ClearAll())
	assert.Empty(t, s.Threads())

	// a cleared thread starts over from the system prompt
	conv := s.GetOrCreate("A")
	assert.Len(t, conv, 1)
}

func TestStore_DefaultLimit(t *testing.T) {
	s := NewStore(prompt, 0)
	assert.Equal(t, DefaultHistoryLimit+1, s.Capacity())
}

func TestStore_ConcurrentAppend(t *testing.T) {
	s := NewStore(prompt, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Append("T", core.RoleUser, fmt.Sprintf("%d-%d", i, j), "")
			}
		}(i)
	}
	wg.Wait()

	conv, _ := s.Get("T")
	assert.Len(t, conv, 501)
}

func TestUserTurn(t *testing.T) {
	assert.Equal(t, core.Message{Role: core.RoleUser, Content: "bob: hey"}, UserTurn("hey", "bob"))
}
