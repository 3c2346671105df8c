// Package loop runs closures one at a time on a single goroutine. Every
// mutation of session state goes through it, so handlers never need locks.
package loop

import (
	"context"
	"errors"
)

// ErrStopped is returned when work is submitted after Run returned.
var ErrStopped = errors.New("loop stopped")

// Loop is a FIFO task queue drained by Run.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

// New creates a Loop whose queue holds up to buffer pending tasks before
// Submit blocks.
func New(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Submit enqueues fn. It blocks while the queue is full and returns false once
// the loop has stopped. Submit must not be called from inside a task.
func (l *Loop) Submit(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish. fn is skipped if ctx is
// done by the time the loop reaches it.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	var skipped error
	if !l.Submit(func() {
		defer close(finished)
		if skipped = ctx.Err(); skipped != nil {
			return
		}
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return skipped
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// the task may still have run before the loop exited
		select {
		case <-finished:
			return skipped
		default:
			return ErrStopped
		}
	}
}

// Run drains the queue until ctx is cancelled. Tasks still queued at that point
// are discarded.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }
