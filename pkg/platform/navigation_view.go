package platform

import (
	"sync"

	"github.com/go-drift/navview/pkg/emitter"
)

const navigationViewType = "native_navigation_view"

// Native navigation view event methods.
const (
	navEventWillShow         = "onWillShow"
	navEventDidShow          = "onDidShow"
	navEventDidPop           = "onDidPop"
	navEventTransitionEnd    = "onTransitionEnd"
	navEventTransitionFailed = "onTransitionFailed"
)

// Route is one entry of the native navigation stack.
type Route struct {
	// Name identifies the screen (e.g., "/inbox").
	Name string
	// Title is shown in the navigation bar. Empty uses Name.
	Title string
	// Args are passed through to the native side unchanged.
	Args map[string]any
}

func (r Route) params() map[string]any {
	p := map[string]any{"name": r.Name}
	if r.Title != "" {
		p["title"] = r.Title
	}
	if len(r.Args) > 0 {
		p["args"] = r.Args
	}
	return p
}

func parseRoute(value any) (Route, bool) {
	m := parseMap(value)
	name := parseString(m["name"])
	if name == "" {
		return Route{}, false
	}
	return Route{
		Name:  name,
		Title: parseString(m["title"]),
		Args:  parseMap(m["args"]),
	}, true
}

// RouteEvent describes a route shown or removed by the native view.
type RouteEvent struct {
	Route Route
	// Depth is the stack depth after the event.
	Depth int
	// Interactive is true when the user drove the change natively
	// (back button or edge swipe) rather than a Go command.
	Interactive bool
}

// TransitionFailure describes a native transition that did not complete.
type TransitionFailure struct {
	// Method is the command that failed (e.g., "push").
	Method string
	Err    *ChannelError
}

// Navigation view events. Subscribe through [NavigationViewController.Events]:
//
//	emitter.On(c.Events(), platform.EventDidShow, func(e platform.RouteEvent) { ... })
var (
	EventWillShow         = emitter.NewKey[RouteEvent]("willShow")
	EventDidShow          = emitter.NewKey[RouteEvent]("didShow")
	EventDidPop           = emitter.NewKey[RouteEvent]("didPop")
	EventTransitionFailed = emitter.NewKey[TransitionFailure]("transitionFailed")
)

type nativeNavigationViewFactory struct{}

func (nativeNavigationViewFactory) ViewType() string {
	return navigationViewType
}

func (nativeNavigationViewFactory) Create(viewID int64, params map[string]any) (PlatformView, error) {
	return &nativeNavigationView{
		basePlatformView: basePlatformView{
			viewID:   viewID,
			viewType: navigationViewType,
		},
	}, nil
}

type nativeNavigationView struct {
	basePlatformView
	mu sync.RWMutex

	// onEvent receives every native event for this view.
	onEvent func(method string, args map[string]any)
}

func (v *nativeNavigationView) Create(params map[string]any) error {
	return nil
}

func (v *nativeNavigationView) Dispose() {
	v.mu.Lock()
	v.onEvent = nil
	v.mu.Unlock()
}

func (v *nativeNavigationView) setEventHandler(fn func(method string, args map[string]any)) {
	v.mu.Lock()
	v.onEvent = fn
	v.mu.Unlock()
}

func (v *nativeNavigationView) handleEvent(method string, args map[string]any) {
	v.mu.RLock()
	fn := v.onEvent
	v.mu.RUnlock()
	if fn != nil {
		fn(method, args)
	}
}

func init() {
	GetPlatformViewRegistry().RegisterFactory(nativeNavigationViewFactory{})
}
