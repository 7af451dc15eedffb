package platform

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/go-drift/navview/pkg/emitter"
	"github.com/go-drift/navview/pkg/errors"
	"github.com/go-drift/navview/pkg/platform/navconfig"
	"github.com/go-drift/navview/pkg/serialqueue"
)

// NavigationViewController drives a native navigation controller
// (UINavigationController on iOS) embedded as a platform view.
//
// Commands are sent to the native view one at a time, in call order. An
// animated command keeps its turn until native reports the end of the
// transition, so a Pop issued during a Push animation waits for the push to
// finish. Native callbacks are published on [NavigationViewController.Events].
//
//	nav := platform.NewNavigationViewController(platform.Route{Name: "/"}, appearance)
//	emitter.On(nav.Events(), platform.EventDidShow, func(e platform.RouteEvent) { ... })
//	err := nav.Push(ctx, platform.Route{Name: "/details", Title: "Details"}, true)
//
// Native must answer every animated command with onTransitionEnd or
// onTransitionFailed. A transition that never ends blocks every later
// command; there is no timeout.
//
// All methods are safe for concurrent use.
type NavigationViewController struct {
	queue  *serialqueue.Queue
	events *emitter.Emitter

	mu       sync.Mutex
	view     *nativeNavigationView // guarded by mu
	viewID   int64                 // guarded by mu
	routes   []Route               // guarded by mu; mirror of the native stack
	inflight *transition           // guarded by mu
}

// transition is an animated command waiting for its native end event.
type transition struct {
	id     uint64
	method string
	apply  func() // stack mirror update, run under mu on success
	done   chan error
}

// NewNavigationViewController creates the native navigation view showing
// root. The platform view is created eagerly; if that fails the error is
// reported and every command returns ErrDisposed.
func NewNavigationViewController(root Route, appearance navconfig.Appearance) *NavigationViewController {
	c := &NavigationViewController{
		queue:  serialqueue.New(),
		events: emitter.New(),
	}

	view, err := GetPlatformViewRegistry().Create(navigationViewType, map[string]any{
		"routes":     []any{root.params()},
		"appearance": appearance.Params(),
	})
	if err != nil {
		errors.Report(&errors.DriftError{
			Op:   "NewNavigationViewController",
			Kind: errors.KindPlatform,
			Err:  fmt.Errorf("failed to create navigation view: %w", err),
		})
		return c
	}

	navView, ok := view.(*nativeNavigationView)
	if !ok {
		errors.Report(&errors.DriftError{
			Op:   "NewNavigationViewController",
			Kind: errors.KindPlatform,
			Err:  fmt.Errorf("unexpected view type: %T", view),
		})
		return c
	}

	c.view = navView
	c.viewID = navView.ViewID()
	c.routes = []Route{root}
	navView.setEventHandler(c.handleEvent)
	return c
}

// LoadNavigationAppearance reads navigation.yaml from dir. A missing file
// yields the default appearance; an invalid one is reported and the default
// appearance is used instead.
func LoadNavigationAppearance(dir string) navconfig.Appearance {
	appearance, err := navconfig.Load(dir)
	if err != nil {
		errors.Report(&errors.DriftError{
			Op:   "platform.LoadNavigationAppearance",
			Kind: errors.KindConfig,
			Err:  err,
		})
		return navconfig.Default()
	}
	return appearance
}

// ViewID returns the platform view ID, or 0 if the view is not available.
func (c *NavigationViewController) ViewID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewID
}

// Events returns the emitter carrying EventWillShow, EventDidShow,
// EventDidPop and EventTransitionFailed. Listeners run on the UI thread.
func (c *NavigationViewController) Events() *emitter.Emitter {
	return c.events
}

// Routes returns a copy of the current navigation stack, root first.
func (c *NavigationViewController) Routes() []Route {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Route(nil), c.routes...)
}

// Depth returns the number of routes on the stack.
func (c *NavigationViewController) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.routes)
}

// Busy reports whether a command is running or waiting.
func (c *NavigationViewController) Busy() bool {
	return c.queue.IsBusy()
}

// Push shows route on top of the stack.
func (c *NavigationViewController) Push(ctx context.Context, route Route, animated bool) error {
	if route.Name == "" {
		return fmt.Errorf("%w: route name is empty", ErrInvalidArguments)
	}
	return c.run(ctx, "push", animated, route.params(), nil, func() {
		c.routes = append(c.routes, route)
	})
}

// Pop removes the top route. It returns ErrNothingToPop at the root.
func (c *NavigationViewController) Pop(ctx context.Context, animated bool) error {
	check := func() error {
		if len(c.routes) <= 1 {
			return ErrNothingToPop
		}
		return nil
	}
	return c.run(ctx, "pop", animated, nil, check, func() {
		c.routes = c.routes[:len(c.routes)-1]
	})
}

// PopToRoot removes every route above the root. At the root it does nothing.
func (c *NavigationViewController) PopToRoot(ctx context.Context, animated bool) error {
	return c.run(ctx, "popToRoot", animated, nil, nil, func() {
		if len(c.routes) > 1 {
			c.routes = c.routes[:1]
		}
	})
}

// SetRoutes replaces the whole stack. routes must not be empty.
func (c *NavigationViewController) SetRoutes(ctx context.Context, routes []Route, animated bool) error {
	if len(routes) == 0 {
		return fmt.Errorf("%w: empty route stack", ErrInvalidArguments)
	}
	encoded := make([]any, len(routes))
	for i, r := range routes {
		if r.Name == "" {
			return fmt.Errorf("%w: route %d has no name", ErrInvalidArguments, i)
		}
		encoded[i] = r.params()
	}
	replacement := append([]Route(nil), routes...)
	return c.run(ctx, "setRoutes", animated, map[string]any{"routes": encoded}, nil, func() {
		c.routes = replacement
	})
}

// SetTitle changes the title of the top route.
func (c *NavigationViewController) SetTitle(ctx context.Context, title string) error {
	return c.run(ctx, "setTitle", false, map[string]any{"title": title}, nil, func() {
		c.routes[len(c.routes)-1].Title = title
	})
}

// SetAppearance restyles the navigation bar.
func (c *NavigationViewController) SetAppearance(ctx context.Context, appearance navconfig.Appearance) error {
	return c.run(ctx, "setAppearance", false, map[string]any{"appearance": appearance.Params()}, nil, nil)
}

// run sends one command to the native view while holding the queue turn.
// check runs under mu once the turn is held; apply updates the stack
// mirror under mu when the command succeeds.
func (c *NavigationViewController) run(
	ctx context.Context,
	method string,
	animated bool,
	args map[string]any,
	check func() error,
	apply func(),
) error {
	if c.ViewID() == 0 {
		return ErrDisposed
	}

	adm := c.queue.Schedule()
	if err := adm.Wait(ctx); err != nil {
		if stderrors.Is(err, serialqueue.ErrQueueCleared) {
			return ErrDisposed
		}
		return err
	}

	c.mu.Lock()
	viewID := c.viewID
	if viewID == 0 {
		// Disposed while waiting, or just before Schedule on a cleared queue.
		c.mu.Unlock()
		c.queue.Dequeue()
		return ErrDisposed
	}
	if check != nil {
		if err := check(); err != nil {
			c.mu.Unlock()
			c.queue.Dequeue()
			return err
		}
	}
	var t *transition
	if animated {
		t = &transition{id: adm.ID(), method: method, apply: apply, done: make(chan error, 1)}
		c.inflight = t
	}
	c.mu.Unlock()

	invokeArgs := make(map[string]any, len(args)+2)
	for k, v := range args {
		invokeArgs[k] = v
	}
	invokeArgs["commandId"] = adm.ID()
	invokeArgs["animated"] = animated

	_, err := GetPlatformViewRegistry().InvokeViewMethod(viewID, method, invokeArgs)
	if err != nil {
		c.mu.Lock()
		owned := t == nil || c.inflight == t
		if owned {
			c.inflight = nil
		}
		c.mu.Unlock()
		if owned {
			c.queue.Dequeue()
		}
		return err
	}

	if t == nil {
		c.mu.Lock()
		if apply != nil && c.viewID != 0 {
			apply()
		}
		c.mu.Unlock()
		c.queue.Dequeue()
		return nil
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		// The transition keeps the turn until native reports its end.
		return ctx.Err()
	}
}

// finishTransition completes the in-flight command with the given id and
// returns its method. ok is false when no such command is in flight.
func (c *NavigationViewController) finishTransition(id uint64, err error) (method string, ok bool) {
	c.mu.Lock()
	t := c.inflight
	if t == nil || t.id != id {
		viewID := c.viewID
		c.mu.Unlock()
		errors.Report(&errors.DriftError{
			Op:      "navigation.finishTransition",
			Kind:    errors.KindQueue,
			Channel: platformViewsChannel,
			ViewID:  viewID,
			Err:     fmt.Errorf("no transition in flight for command %d", id),
		})
		return "", false
	}
	c.inflight = nil
	if err == nil && t.apply != nil {
		t.apply()
	}
	c.mu.Unlock()

	t.done <- err
	c.queue.Dequeue()
	return t.method, true
}

// handleEvent processes native events for this controller's view.
func (c *NavigationViewController) handleEvent(method string, args map[string]any) {
	switch method {
	case navEventWillShow, navEventDidShow, navEventDidPop:
		route, ok := parseRoute(args["route"])
		if !ok {
			c.reportParseError(method, args)
			return
		}
		interactive := parseBool(args["interactive"])

		c.mu.Lock()
		if method == navEventDidPop && interactive && len(c.routes) > 1 {
			c.routes = c.routes[:len(c.routes)-1]
		}
		depth := len(c.routes)
		if d, ok := toInt64(args["depth"]); ok {
			depth = int(d)
		}
		c.mu.Unlock()

		ev := RouteEvent{Route: route, Depth: depth, Interactive: interactive}
		key := EventDidShow
		switch method {
		case navEventWillShow:
			key = EventWillShow
		case navEventDidPop:
			key = EventDidPop
		}
		c.emit(func() {
			emitter.Emit(c.events, key, ev)
		})

	case navEventTransitionEnd, navEventTransitionFailed:
		id, ok := toInt64(args["commandId"])
		if !ok {
			c.reportParseError(method, args)
			return
		}
		if method == navEventTransitionEnd {
			c.finishTransition(uint64(id), nil)
			return
		}
		// args["method"] names the event itself; the failed command is
		// known from the in-flight transition.
		chErr := &ChannelError{
			Code:      parseString(args["code"]),
			Message:   parseString(args["message"]),
			CommandID: uint64(id),
		}
		command, ok := c.finishTransition(uint64(id), chErr)
		if !ok {
			return
		}
		failure := TransitionFailure{Method: command, Err: chErr}
		c.emit(func() {
			emitter.Emit(c.events, EventTransitionFailed, failure)
		})

	default:
		errors.Report(&errors.DriftError{
			Op:      "navigation.handleEvent",
			Kind:    errors.KindPlatform,
			Channel: platformViewsChannel,
			ViewID:  c.ViewID(),
			Err:     fmt.Errorf("%w: %s", ErrMethodNotFound, method),
		})
	}
}

// emit delivers fn on the UI thread, or inline when the host has not
// registered a dispatcher.
func (c *NavigationViewController) emit(fn func()) {
	if !Dispatch(fn) {
		fn()
	}
}

func (c *NavigationViewController) reportParseError(method string, args map[string]any) {
	errors.Report(&errors.DriftError{
		Op:      "navigation." + method,
		Kind:    errors.KindParsing,
		Channel: platformViewsChannel,
		ViewID:  c.ViewID(),
		Err:     &errors.ParseError{Channel: platformViewsChannel, DataType: method, Got: args},
	})
}

// Dispose releases the navigation view. Waiting commands fail with
// ErrDisposed, listeners are removed and later commands return ErrDisposed.
// Dispose is idempotent.
func (c *NavigationViewController) Dispose() {
	c.mu.Lock()
	id := c.viewID
	view := c.view
	t := c.inflight
	c.view = nil
	c.viewID = 0
	c.inflight = nil
	c.mu.Unlock()

	if id == 0 {
		return
	}
	if view != nil {
		view.setEventHandler(nil)
	}
	c.queue.Clear()
	if t != nil {
		t.done <- ErrDisposed
	}
	c.events.RemoveAllListeners()
	GetPlatformViewRegistry().Dispose(id)
}
