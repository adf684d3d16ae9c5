package core

import (
	"context"
	"time"
)

// TranscriptRepository is the write-only conversation log. Nothing is read back
// at start; conversation state lives in memory only.
type TranscriptRepository interface {
	AppendTurns(ctx context.Context, threadID ThreadID, turns ...Message) error
	RecordJob(ctx context.Context, job JobRecord) error
}

type JobStatus string

const (
	JobFulfilled JobStatus = "fulfilled"
	JobRejected  JobStatus = "rejected"
)

type JobRecord struct {
	ID         string
	Prompt     string
	Requester  string
	Status     JobStatus
	Artifact   string
	Error      string
	EnqueuedAt time.Time
	FinishedAt time.Time
}
