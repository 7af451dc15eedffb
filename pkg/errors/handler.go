package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// handlerBox lets atomic.Pointer hold an interface value.
type handlerBox struct{ h ErrorHandler }

var (
	current        atomic.Pointer[handlerBox]
	defaultHandler ErrorHandler = NewLogHandler(nil, false)
)

// Handler returns the handler that Report and Recover deliver to.
func Handler() ErrorHandler {
	if b := current.Load(); b != nil {
		return b.h
	}
	return defaultHandler
}

// SetHandler installs h and returns the previously installed handler.
// Pass nil to restore the default stderr LogHandler.
//
//	prev := errors.SetHandler(h)
//	defer errors.SetHandler(prev)
func SetHandler(h ErrorHandler) ErrorHandler {
	prev := Handler()
	if h == nil {
		current.Store(nil)
	} else {
		current.Store(&handlerBox{h: h})
	}
	return prev
}

// Report delivers err to the installed handler, stamping Timestamp if unset.
func Report(err *DriftError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandleError(err)
}

// ReportPanic delivers a recovered panic to the installed handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandlePanic(err)
}

// Recover reports a panic in progress and stops it. It must be deferred
// directly:
//
//	defer errors.Recover("emitter.Emit(didShow)")
func Recover(op string) {
	r := recover()
	if r == nil {
		return
	}
	ReportPanic(&PanicError{Op: op, Value: r, StackTrace: CaptureStack()})
}

// CaptureStack formats the calling goroutine's stack, one "function file:line"
// entry per frame, starting at the caller of CaptureStack's caller.
func CaptureStack() string {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for n > 0 {
		f, more := frames.Next()
		fmt.Fprintf(&sb, "%s %s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return sb.String()
}
