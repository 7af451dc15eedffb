// Package serialqueue serializes asynchronous operations so that at most one
// holds a turn at any time.
//
// Callers obtain an [Admission] from [Queue.Schedule] and wait for it to be
// granted. A granted admission holds the turn until the caller calls
// [Queue.Dequeue], which hands the turn to the next pending admission in FIFO
// order:
//
//	adm := q.Schedule()
//	if err := adm.Wait(ctx); err != nil {
//	    return err
//	}
//	defer q.Dequeue()
//	// ... talk to the native view ...
//
// [Queue.Do] wraps that pattern.
//
// Every granted turn must be released with exactly one call to Dequeue.
// A holder that never releases its turn starves the queue forever: there is
// no timeout and no diagnostic. Pending admissions can be withdrawn with
// [Admission.Cancel]; [Queue.Clear] rejects everything pending and forces the
// queue back to idle.
//
// A Queue is safe for concurrent use.
package serialqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalidAdmissionID is returned by Cancel for an id that is not
	// pending: never issued, already granted, or already cancelled.
	ErrInvalidAdmissionID = errors.New("serialqueue: invalid admission id")

	// ErrCanceled is the rejection delivered to a cancelled admission.
	ErrCanceled = errors.New("serialqueue: admission canceled")

	// ErrQueueCleared is the rejection delivered to every pending admission
	// when the queue is cleared.
	ErrQueueCleared = errors.New("serialqueue: queue cleared")
)

// Queue grants exclusive turns in FIFO order.
// The zero value is an idle queue ready for use.
type Queue struct {
	mu      sync.Mutex
	busy    bool
	pending []*Admission
	nextID  uint64
}

// New returns an idle queue.
func New() *Queue {
	return &Queue{}
}

// Schedule requests a turn. It never blocks.
//
// If the queue is idle the returned admission is already granted and the
// caller holds the turn. Otherwise the admission waits behind every
// admission scheduled before it.
func (q *Queue) Schedule() *Admission {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	a := &Admission{
		id:   q.nextID,
		q:    q,
		done: make(chan struct{}),
	}
	if !q.busy && len(q.pending) == 0 {
		q.busy = true
		a.settle(nil)
		return a
	}
	q.pending = append(q.pending, a)
	return a
}

// Cancel withdraws the pending admission with the given id. The admission is
// removed from the queue and rejected with ErrCanceled. Cancelling an id that
// is not pending returns an error wrapping ErrInvalidAdmissionID.
func (q *Queue) Cancel(id uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, a := range q.pending {
		if a.id != id {
			continue
		}
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		a.settle(ErrCanceled)
		return nil
	}
	return fmt.Errorf("%w: %d", ErrInvalidAdmissionID, id)
}

// Dequeue releases the current turn. The head of the pending list is granted
// next; with nothing pending the queue becomes idle.
func (q *Queue) Dequeue() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		q.busy = false
		return
	}
	head := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.busy = true
	head.settle(nil)
}

// Clear rejects every pending admission with ErrQueueCleared and forces the
// queue idle, even if a turn is currently held.
//
// Clear is an emergency reset. A holder that lost its turn this way must not
// call Dequeue afterwards: that call would release whichever admission was
// granted after the reset.
func (q *Queue) Clear() {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.busy = false
	q.mu.Unlock()

	for _, a := range pending {
		a.settle(ErrQueueCleared)
	}
}

// IsBusy reports whether a turn is held or any admission is pending.
func (q *Queue) IsBusy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy || len(q.pending) > 0
}

// Len returns the number of pending (not yet granted) admissions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Do waits for a turn, runs fn and releases the turn, even if fn panics.
// If the wait fails fn is not run and the wait error is returned.
func (q *Queue) Do(ctx context.Context, fn func() error) error {
	if err := q.Schedule().Wait(ctx); err != nil {
		return err
	}
	defer q.Dequeue()
	return fn()
}
