package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/muse/internal/core"
)

func newTestRepo(t *testing.T) *TranscriptRepo {
	t.Helper()
	db, err := NewDB(context.Background(), MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTranscriptRepo(db)
}

func TestTranscriptRepo_AppendTurns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AppendTurns(ctx, "chan",
		core.Message{Role: core.RoleUser, Content: "alice: hi"},
		core.Message{Role: core.RoleAssistant, Content: "hello"},
	))
	require.NoError(t, repo.AppendTurns(ctx, "other", core.Message{Role: core.RoleUser, Content: "x"}))
	require.NoError(t, repo.AppendTurns(ctx, "chan"))

	n, err := repo.CountTurns(ctx, "chan")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var role, content string
	row := repo.db.QueryRowContext(ctx, `SELECT role, content FROM turns WHERE thread_id = ? ORDER BY id LIMIT 1`, "chan")
	require.NoError(t, row.Scan(&role, &content))
	assert.Equal(t, "user", role)
	assert.Equal(t, "alice: hi", content)
}

func TestTranscriptRepo_RecordJob(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	job := core.JobRecord{
		ID:         "job-1",
		Prompt:     "bad-prompt",
		Requester:  "alice",
		Status:     core.JobRejected,
		Error:      core.ErrGenerationEmpty.Error(),
		EnqueuedAt: now,
		FinishedAt: now.Add(time.Second),
	}
	require.NoError(t, repo.RecordJob(ctx, job))

	// re-recording the same id updates the row
	job.Status = core.JobFulfilled
	job.Error = ""
	job.Artifact = "/out/a.png"
	require.NoError(t, repo.RecordJob(ctx, job))

	var status, artifact string
	var count int
	require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count))
	require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT status, artifact FROM jobs WHERE id = ?`, "job-1").Scan(&status, &artifact))
	assert.Equal(t, 1, count)
	assert.Equal(t, "fulfilled", status)
	assert.Equal(t, "/out/a.png", artifact)
}
