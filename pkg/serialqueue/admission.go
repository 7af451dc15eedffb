package serialqueue

import "context"

// Admission is one request for a turn, returned by [Queue.Schedule].
//
// It settles exactly once: granted (Err returns nil) or rejected with
// ErrCanceled or ErrQueueCleared.
type Admission struct {
	id   uint64
	q    *Queue
	done chan struct{}
	err  error // written before done is closed
}

// ID returns the admission id, unique within its queue.
func (a *Admission) ID() uint64 {
	return a.id
}

// Done returns a channel closed once the admission is granted or rejected.
func (a *Admission) Done() <-chan struct{} {
	return a.done
}

// Err returns nil if the admission was granted, the rejection otherwise.
// It must only be called after Done is closed.
func (a *Admission) Err() error {
	return a.err
}

// Granted reports whether the admission has settled as granted.
func (a *Admission) Granted() bool {
	select {
	case <-a.done:
		return a.err == nil
	default:
		return false
	}
}

// Cancel withdraws the admission. See [Queue.Cancel].
func (a *Admission) Cancel() error {
	return a.q.Cancel(a.id)
}

// Wait blocks until the admission settles or ctx is done.
//
// A nil return means the caller now holds the turn and must call
// [Queue.Dequeue]. If ctx ends first the admission is cancelled and
// ctx.Err() is returned; when the grant wins that race the turn is
// released again before returning.
func (a *Admission) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
	}

	if err := a.Cancel(); err == nil {
		return ctx.Err()
	}
	// No longer pending, so it has settled already.
	<-a.done
	if a.err != nil {
		return a.err
	}
	a.q.Dequeue()
	return ctx.Err()
}

func (a *Admission) settle(err error) {
	a.err = err
	close(a.done)
}
