package imagine

import (
	"context"
	"sync"
)

// Result is what a fulfilled job resolves to.
type Result struct {
	JobID    string
	Artifact string
}

// Future is a consume-once cell settled by the queue worker. Only the first
// settle call has any effect.
type Future struct {
	once sync.Once
	done chan struct{}
	res  Result
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) settle(res Result, err error) bool {
	settled := false
	f.once.Do(func() {
		f.res, f.err = res, err
		close(f.done)
		settled = true
	})
	return settled
}

// Done is closed once the job has been fulfilled or rejected.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the job settles or ctx is done. Giving up on the wait does
// not cancel the job.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
