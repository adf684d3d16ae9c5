// Package imagine serialises image generation requests. A single worker
// goroutine drains a FIFO of jobs so that exactly one render runs at a time;
// the worker is started on demand and exits once the queue is empty.
package imagine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

const (
	DefaultTimeout         = 4 * time.Minute
	DefaultSettleDelay     = 5 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// abortGrace is how long Shutdown waits for a cancelled render to return.
	abortGrace = 5 * time.Second
)

const (
	msgEmptyResult     = "No image file was found after generation."
	msgGenerationError = "Error generating image"
	msgDeliveryFailed  = "Image generated but failed to send: %v"
	msgDelivered       = "Here is your image for: \"%s\""
	msgShuttingDown    = "Image generation is shutting down, please try again later."
)

// JobObserver receives the outcome of every settled job.
type JobObserver interface {
	RecordJob(ctx context.Context, job core.JobRecord) error
}

// Job is immutable once enqueued.
type Job struct {
	ID        string
	Prompt    string
	Requester core.Requester
	Timeout   time.Duration
}

type entry struct {
	ctx        context.Context
	job        Job
	future     *Future
	enqueuedAt time.Time
}

type Option func(*Queue)

// WithSettleDelay sets the pause between a finished render and delivery,
// giving the backend time to flush the file.
func WithSettleDelay(d time.Duration) Option {
	return func(q *Queue) { q.settleDelay = d }
}

// WithDefaultTimeout sets the timeout applied to jobs enqueued without one.
func WithDefaultTimeout(d time.Duration) Option {
	return func(q *Queue) { q.timeout = d }
}

func WithObserver(o JobObserver) Option {
	return func(q *Queue) { q.observer = o }
}

// WithShutdownTimeout bounds how long Shutdown lets the worker drain before
// the running job is aborted and pending jobs are rejected.
func WithShutdownTimeout(d time.Duration) Option {
	return func(q *Queue) { q.shutdownTimeout = d }
}

type Queue struct {
	gen             core.ImageGenerator
	observer        JobObserver
	settleDelay     time.Duration
	timeout         time.Duration
	shutdownTimeout time.Duration

	// abortCtx is cancelled when Shutdown gives up waiting; it cancels the
	// running job.
	abortCtx context.Context
	abort    context.CancelFunc

	mu      sync.Mutex
	pending []*entry
	running *Job
	active  bool
	closed  bool
	wg      sync.WaitGroup
}

func NewQueue(gen core.ImageGenerator, opts ...Option) *Queue {
	q := &Queue{
		gen:             gen,
		settleDelay:     DefaultSettleDelay,
		timeout:         DefaultTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.abortCtx, q.abort = context.WithCancel(context.Background())
	return q
}

// Enqueue appends the job and returns its future. A worker is started when
// none is active. The job outlives ctx cancellation; only its logger and
// values are inherited.
func (q *Queue) Enqueue(ctx context.Context, job Job) *Future {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Timeout <= 0 {
		job.Timeout = q.timeout
	}

	e := &entry{
		ctx:        context.WithoutCancel(ctx),
		job:        job,
		future:     newFuture(),
		enqueuedAt: time.Now(),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		log.FromCtx(ctx).Warn().Str("job", job.ID).Msg("image job rejected, queue is shut down")
		q.reject(e)
		return e.future
	}
	q.pending = append(q.pending, e)
	position := len(q.pending)
	start := !q.active
	if start {
		q.active = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	log.FromCtx(ctx).Debug().
		Str("job", job.ID).
		Int("position", position).
		Bool("worker_started", start).
		Msg("image job enqueued")

	if start {
		go q.drain()
	}
	return e.future
}

func (q *Queue) drain() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.active = false
			q.running = nil
			q.mu.Unlock()
			return
		}
		e := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.running = &e.job
		q.mu.Unlock()

		if q.abortCtx.Err() != nil {
			q.reject(e)
			continue
		}
		q.process(e)
	}
}

func (q *Queue) process(e *entry) {
	ctx, cancel := context.WithCancel(log.WithComponent(e.ctx, "imagine"))
	defer cancel()
	stop := context.AfterFunc(q.abortCtx, cancel)
	defer stop()

	logger := log.FromCtx(ctx).With().Str("job", e.job.ID).Logger()

	start := time.Now()
	artifact, err := q.run(ctx, e.job)

	res := Result{JobID: e.job.ID, Artifact: artifact}
	if err != nil {
		res = Result{JobID: e.job.ID}
		logger.Error().Err(err).Dur("took", time.Since(start)).Msg("image job rejected")
	} else {
		logger.Info().Str("artifact", artifact).Dur("took", time.Since(start)).Msg("image job fulfilled")
	}
	e.future.settle(res, err)

	q.observe(ctx, e, artifact, err)
}

// run executes one job. Panics are converted into ErrGeneration so the worker
// keeps draining.
func (q *Queue) run(ctx context.Context, job Job) (artifact string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", core.ErrGeneration, r)
			artifact = ""
			q.notify(ctx, job, msgGenerationError)
		}
	}()

	path, err := q.gen.Generate(ctx, job.Prompt, job.Timeout)
	if err != nil {
		q.notify(ctx, job, msgGenerationError)
		return "", fmt.Errorf("%w: %w", core.ErrGeneration, err)
	}
	if path == "" {
		q.notify(ctx, job, msgEmptyResult)
		return "", core.ErrGenerationEmpty
	}

	if q.settleDelay > 0 {
		select {
		case <-time.After(q.settleDelay):
		case <-ctx.Done():
			q.notify(context.WithoutCancel(ctx), job, msgShuttingDown)
			return "", fmt.Errorf("%w: %w", core.ErrQueueClosed, ctx.Err())
		}
	}

	reply := core.Reply{
		Content: fmt.Sprintf(msgDelivered, job.Prompt),
		Files:   []string{path},
	}
	if err := q.deliver(ctx, job, reply); err != nil {
		q.notify(ctx, job, fmt.Sprintf(msgDeliveryFailed, err))
		return "", fmt.Errorf("%w: %w", core.ErrDelivery, err)
	}
	return path, nil
}

func (q *Queue) deliver(ctx context.Context, job Job, reply core.Reply) error {
	if job.Requester == nil {
		return errors.New("job has no requester")
	}
	return job.Requester.EditReply(ctx, reply)
}

// notify sends a best-effort text message to the requester. Its own failures
// are logged and swallowed.
func (q *Queue) notify(ctx context.Context, job Job, text string) {
	logger := log.FromCtx(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("job", job.ID).Msg("requester notification panicked")
		}
	}()
	if job.Requester == nil {
		return
	}
	if err := job.Requester.EditReply(ctx, core.Reply{Content: text}); err != nil {
		logger.Warn().Err(err).Str("job", job.ID).Msg("failed to notify requester")
	}
}

// reject settles a job that will never run and tells its requester.
func (q *Queue) reject(e *entry) {
	ctx := log.WithComponent(e.ctx, "imagine")
	q.notify(ctx, e.job, msgShuttingDown)
	e.future.settle(Result{JobID: e.job.ID}, core.ErrQueueClosed)
	q.observe(ctx, e, "", core.ErrQueueClosed)
}

func (q *Queue) observe(ctx context.Context, e *entry, artifact string, err error) {
	if q.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.FromCtx(ctx).Error().Interface("panic", r).Str("job", e.job.ID).Msg("job observer panicked")
		}
	}()
	rec := core.JobRecord{
		ID:         e.job.ID,
		Prompt:     e.job.Prompt,
		Status:     core.JobFulfilled,
		Artifact:   artifact,
		EnqueuedAt: e.enqueuedAt,
		FinishedAt: time.Now(),
	}
	if e.job.Requester != nil {
		rec.Requester = e.job.Requester.Name()
	}
	if err != nil {
		rec.Status = core.JobRejected
		rec.Error = err.Error()
	}
	if oerr := q.observer.RecordJob(ctx, rec); oerr != nil {
		log.FromCtx(ctx).Warn().Err(oerr).Str("job", e.job.ID).Msg("failed to record job")
	}
}

// Status is a point-in-time view of the queue for the operator console.
type Status struct {
	Active  bool
	Running string
	Pending []string
}

func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := Status{Active: q.active, Pending: make([]string, 0, len(q.pending))}
	if q.running != nil {
		st.Running = q.running.Prompt
	}
	for _, e := range q.pending {
		st.Pending = append(st.Pending, e.job.Prompt)
	}
	return st
}

func (q *Queue) Start(ctx context.Context) error {
	return nil
}

// Shutdown stops accepting jobs and lets the worker drain for up to the
// shutdown timeout or until ctx is done, whichever comes first. After that
// the running job is cancelled and every pending job is rejected.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	if q.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.shutdownTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	q.abort()

	q.mu.Lock()
	dropped := q.pending
	q.pending = nil
	q.mu.Unlock()

	log.FromCtx(ctx).Warn().Int("dropped", len(dropped)).Msg("image queue shutdown timed out, rejecting pending jobs")
	for _, e := range dropped {
		q.reject(e)
	}

	select {
	case <-done:
	case <-time.After(abortGrace):
		log.FromCtx(ctx).Error().Msg("image render ignored cancellation, leaving worker behind")
	}
	return fmt.Errorf("image queue aborted with %d pending jobs: %w", len(dropped), ctx.Err())
}
