package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sandevgo/muse/internal/core"
)

// TranscriptRepo is the write-only conversation and job log.
type TranscriptRepo struct {
	db *sql.DB
}

func NewTranscriptRepo(db *sql.DB) *TranscriptRepo {
	return &TranscriptRepo{db: db}
}

func (r *TranscriptRepo) AppendTurns(ctx context.Context, threadID core.ThreadID, turns ...core.Message) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO turns (thread_id, role, content, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare turn insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, t := range turns {
		if _, err := stmt.ExecContext(ctx, string(threadID), string(t.Role), t.Content, now); err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
	}

	return tx.Commit()
}

func (r *TranscriptRepo) RecordJob(ctx context.Context, job core.JobRecord) error {
	query := `INSERT INTO jobs (id, prompt, requester, status, artifact, error, enqueued_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, artifact = excluded.artifact,
			error = excluded.error, finished_at = excluded.finished_at`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Prompt, job.Requester, string(job.Status), job.Artifact, job.Error,
		job.EnqueuedAt.UTC(), job.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record job: %w", err)
	}
	return nil
}

// CountTurns returns how many turns are logged for a thread.
func (r *TranscriptRepo) CountTurns(ctx context.Context, threadID core.ThreadID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns WHERE thread_id = ?`, string(threadID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return n, nil
}
