package errors

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// LogHandler is an ErrorHandler that writes structured log records.
type LogHandler struct {
	// Verbose enables stack traces in the output.
	Verbose bool

	logger zerolog.Logger
}

// NewLogHandler returns a LogHandler writing JSON records to w.
// A nil w writes to stderr.
func NewLogHandler(w io.Writer, verbose bool) *LogHandler {
	if w == nil {
		w = os.Stderr
	}
	return &LogHandler{
		Verbose: verbose,
		logger:  zerolog.New(w).With().Timestamp().Str("component", "navview").Logger(),
	}
}

// HandleError logs a DriftError at error level.
func (h *LogHandler) HandleError(err *DriftError) {
	if err == nil {
		return
	}
	ev := h.logger.Error().
		Str("op", err.Op).
		Stringer("kind", err.Kind).
		Err(err.Err)
	if err.Channel != "" {
		ev = ev.Str("channel", err.Channel)
	}
	if err.ViewID != 0 {
		ev = ev.Int64("view_id", err.ViewID)
	}
	if h.Verbose && err.StackTrace != "" {
		ev = ev.Str("stack", err.StackTrace)
	}
	ev.Msg("drift error")
}

// HandlePanic logs a PanicError at error level.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	ev := h.logger.Error().Interface("value", err.Value)
	if err.Op != "" {
		ev = ev.Str("op", err.Op)
	}
	if h.Verbose && err.StackTrace != "" {
		ev = ev.Str("stack", err.StackTrace)
	}
	ev.Msg("drift panic")
}
