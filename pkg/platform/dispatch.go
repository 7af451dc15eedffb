package platform

import "sync/atomic"

// DispatchFunc schedules a callback on the host's UI thread.
type DispatchFunc func(callback func())

var dispatcher atomic.Pointer[DispatchFunc]

// RegisterDispatch installs the host's UI-thread scheduler. Navigation events
// are delivered through it. Passing nil removes it.
func RegisterDispatch(fn DispatchFunc) {
	if fn == nil {
		dispatcher.Store(nil)
		return
	}
	dispatcher.Store(&fn)
}

// Dispatch hands callback to the registered scheduler. It reports false, and
// does not run callback, when no scheduler is registered or callback is nil.
func Dispatch(callback func()) bool {
	fn := dispatcher.Load()
	if fn == nil || callback == nil {
		return false
	}
	(*fn)(callback)
	return true
}
