package platform

import (
	"errors"
	"strconv"
)

var (
	ErrChannelNotFound     = errors.New("platform: method channel not found")
	ErrMethodNotFound      = errors.New("platform: method not implemented")
	ErrInvalidArguments    = errors.New("platform: invalid arguments")
	ErrPlatformUnavailable = errors.New("platform: no native bridge installed")
	ErrViewTypeNotFound    = errors.New("platform: view type not registered")
	ErrViewNotFound        = errors.New("platform: view not found")

	// ErrDisposed is returned by a NavigationViewController after Dispose.
	ErrDisposed = errors.New("platform: controller disposed")

	// ErrNothingToPop is returned by Pop when only the root route is shown.
	ErrNothingToPop = errors.New("platform: navigation stack has a single route")
)

// ChannelError is an error reported by the native side, either as the
// result of a method call or inside an event such as onTransitionFailed.
type ChannelError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// CommandID is the navigation command the error belongs to, or 0.
	CommandID uint64 `json:"commandId,omitempty"`
}

func (e *ChannelError) Error() string {
	s := e.Code
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.CommandID != 0 {
		s += " (command " + strconv.FormatUint(e.CommandID, 10) + ")"
	}
	return s
}

// NewChannelError returns a ChannelError not tied to a command.
func NewChannelError(code, message string) *ChannelError {
	return &ChannelError{Code: code, Message: message}
}
