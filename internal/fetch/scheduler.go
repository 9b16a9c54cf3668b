// Package fetch runs tile requests off the frame thread and hands their
// results back to it.
//
// Work is executed by an Executor. Completions are posted to a Mailbox and
// only applied when the frame thread calls Drain, so every state change on
// tiles and imagery happens synchronously inside a frame tick.
package fetch

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Executor runs a function, possibly on another goroutine.
// TrySubmit must not block; it reports false when the work was not accepted.
type Executor interface {
	TrySubmit(fn func()) bool
}

// InlineExecutor runs work immediately on the calling goroutine. Results
// still travel through the mailbox, so they are applied on the next Drain.
// Useful for tests and for providers whose data is already in memory.
type InlineExecutor struct{}

// TrySubmit runs fn and returns true.
func (InlineExecutor) TrySubmit(fn func()) bool {
	fn()
	return true
}

// Mailbox collects completion callbacks posted from any goroutine.
type Mailbox struct {
	mu      sync.Mutex
	pending []func()
}

// Post queues fn to run on the next Drain.
func (m *Mailbox) Post(fn func()) {
	m.mu.Lock()
	m.pending = append(m.pending, fn)
	m.mu.Unlock()
}

// Drain runs every queued callback in post order and returns how many ran.
// Callbacks posted while draining run on the following Drain.
func (m *Mailbox) Drain() int {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Len returns the number of queued callbacks.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Scheduler combines an Executor, a Mailbox and a cap on requests in flight.
type Scheduler struct {
	exec     Executor
	box      Mailbox
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// NewScheduler returns a scheduler running work on exec with at most
// maxInFlight requests outstanding. A nil exec means InlineExecutor.
func NewScheduler(exec Executor, maxInFlight int) *Scheduler {
	if exec == nil {
		exec = InlineExecutor{}
	}
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &Scheduler{
		exec: exec,
		sem:  semaphore.NewWeighted(int64(maxInFlight)),
	}
}

// Go starts work on the scheduler's executor. When it finishes, deliver is
// posted to the mailbox with the result. Go returns false, without running
// anything, if the in-flight cap is reached or the executor is saturated;
// the caller is expected to try again on a later frame.
//
// Deliver runs on the goroutine that calls Drain. It receives the context so
// that it can discard results for abandoned requests.
func Go[T any](s *Scheduler, ctx context.Context, work func(context.Context) (T, error), deliver func(context.Context, T, error)) bool {
	if !s.sem.TryAcquire(1) {
		return false
	}
	s.inFlight.Add(1)

	ok := s.exec.TrySubmit(func() {
		v, err := work(ctx)
		s.box.Post(func() { deliver(ctx, v, err) })
		s.inFlight.Add(-1)
		s.sem.Release(1)
	})
	if !ok {
		s.inFlight.Add(-1)
		s.sem.Release(1)
	}
	return ok
}

// Drain applies completed results on the calling goroutine.
func (s *Scheduler) Drain() int { return s.box.Drain() }

// Pending returns the number of requests in flight plus undelivered results.
func (s *Scheduler) Pending() int {
	return int(s.inFlight.Load()) + s.box.Len()
}
