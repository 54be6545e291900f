// Package queue implements the per-tick deferred delivery of completion
// notifications. Completions are never delivered on the call stack that
// produced them: they wait for the next Drain.
package queue

import (
	"sync"

	"go.uber.org/zap"
)

// Callback receives a single completion notification.
type Callback interface {
	OnEvent()
}

// Func adapts a plain function to a Callback.
type Func func()

// OnEvent calls f.
func (f Func) OnEvent() { f() }

// Queue holds pending callbacks until the next Drain. Enqueue and Drain
// belong to the update goroutine; Post is the only goroutine-safe entry.
type Queue struct {
	log     *zap.Logger
	pending []Callback

	mu    sync.Mutex
	inbox []Callback
}

// New creates an empty queue. A nil logger discards diagnostics.
func New(log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{log: log}
}

// Enqueue schedules cb for the next Drain. Nil callbacks are ignored.
func (q *Queue) Enqueue(cb Callback) {
	if cb == nil {
		return
	}
	q.pending = append(q.pending, cb)
}

// Post schedules cb from any goroutine. Posted callbacks join the next
// Drain after everything already enqueued on the update goroutine.
func (q *Queue) Post(cb Callback) {
	if cb == nil {
		return
	}
	q.mu.Lock()
	q.inbox = append(q.inbox, cb)
	q.mu.Unlock()
}

// Drain delivers every callback queued before the call, in FIFO order, and
// returns how many were delivered. Callbacks enqueued while draining wait for
// the following Drain.
func (q *Queue) Drain() int {
	q.mu.Lock()
	if len(q.inbox) > 0 {
		q.pending = append(q.pending, q.inbox...)
		q.inbox = nil
	}
	q.mu.Unlock()

	if len(q.pending) == 0 {
		return 0
	}

	snapshot := q.pending
	q.pending = nil

	for _, cb := range snapshot {
		q.deliver(cb)
	}
	return len(snapshot)
}

func (q *Queue) deliver(cb Callback) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("callback panicked", zap.Any("panic", r))
		}
	}()
	cb.OnEvent()
}

// Len returns the number of callbacks waiting for the next Drain.
func (q *Queue) Len() int {
	q.mu.Lock()
	n := len(q.inbox)
	q.mu.Unlock()
	return len(q.pending) + n
}

// Clear drops every pending callback without delivering it.
func (q *Queue) Clear() {
	q.pending = nil
	q.mu.Lock()
	q.inbox = nil
	q.mu.Unlock()
}
