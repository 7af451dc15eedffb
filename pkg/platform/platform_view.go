package platform

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-drift/navview/pkg/errors"
	"github.com/go-drift/navview/pkg/graphics"
)

// platformViewsChannel carries platform view commands (Go -> native) and
// view events (native -> Go).
const platformViewsChannel = "drift/platform_views"

// PlatformView represents a native view embedded in Drift UI.
type PlatformView interface {
	// ViewID returns the unique identifier for this view.
	ViewID() int64

	// ViewType returns the type identifier for this view (e.g., "native_navigation_view").
	ViewType() string

	// Create initializes the native view with given parameters.
	Create(params map[string]any) error

	// Dispose cleans up the native view.
	Dispose()

	// SetSize updates the view size in logical pixels.
	SetSize(size graphics.Size)

	// SetOffset updates the view position in logical pixels.
	SetOffset(offset graphics.Offset)

	// SetVisible shows or hides the native view.
	SetVisible(visible bool)
}

// viewEventHandler is implemented by views that receive native events.
type viewEventHandler interface {
	handleEvent(method string, args map[string]any)
}

// PlatformViewFactory creates platform views of a specific type.
type PlatformViewFactory interface {
	// Create creates a new platform view instance.
	Create(viewID int64, params map[string]any) (PlatformView, error)

	// ViewType returns the view type this factory creates.
	ViewType() string
}

// PlatformViewRegistry manages platform view types and instances.
type PlatformViewRegistry struct {
	factories map[string]PlatformViewFactory
	views     map[int64]PlatformView
	nextID    atomic.Int64
	mu        sync.RWMutex
	channel   *MethodChannel
	events    *EventChannel
}

var (
	platformViewRegistry     *PlatformViewRegistry
	platformViewRegistryOnce sync.Once
)

// GetPlatformViewRegistry returns the global platform view registry.
func GetPlatformViewRegistry() *PlatformViewRegistry {
	platformViewRegistryOnce.Do(func() {
		platformViewRegistry = newPlatformViewRegistry()
	})
	return platformViewRegistry
}

func newPlatformViewRegistry() *PlatformViewRegistry {
	r := &PlatformViewRegistry{
		factories: make(map[string]PlatformViewFactory),
		views:     make(map[int64]PlatformView),
		channel:   NewMethodChannel(platformViewsChannel),
		events:    NewEventChannel(platformViewsChannel),
	}
	r.channel.SetHandler(r.handleMethodCall)
	registerBuiltinInit(func() {
		r.events.Listen(EventHandler{
			OnEvent: r.routeEvent,
			OnError: func(err error) {
				errors.Report(&errors.DriftError{
					Op:      "platform.PlatformViewRegistry",
					Kind:    errors.KindPlatform,
					Channel: platformViewsChannel,
					Err:     err,
				})
			},
		})
	})
	return r
}

// RegisterFactory registers a factory for a platform view type.
func (r *PlatformViewRegistry) RegisterFactory(factory PlatformViewFactory) {
	r.mu.Lock()
	r.factories[factory.ViewType()] = factory
	r.mu.Unlock()
}

// Create creates a new platform view of the given type and asks native to
// create its counterpart.
func (r *PlatformViewRegistry) Create(viewType string, params map[string]any) (PlatformView, error) {
	r.mu.RLock()
	factory, ok := r.factories[viewType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewTypeNotFound, viewType)
	}

	viewID := r.nextID.Add(1)

	view, err := factory.Create(viewID, params)
	if err != nil {
		return nil, err
	}
	if err := view.Create(params); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.views[viewID] = view
	r.mu.Unlock()

	_, err = r.channel.Invoke("create", map[string]any{
		"viewId":   viewID,
		"viewType": viewType,
		"params":   params,
	})
	if err != nil {
		r.mu.Lock()
		delete(r.views, viewID)
		r.mu.Unlock()
		return nil, err
	}

	return view, nil
}

// Dispose destroys a platform view. Unknown ids are ignored.
func (r *PlatformViewRegistry) Dispose(viewID int64) {
	r.mu.Lock()
	view, ok := r.views[viewID]
	if ok {
		delete(r.views, viewID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	view.Dispose()
	if _, err := r.channel.Invoke("dispose", map[string]any{"viewId": viewID}); err != nil {
		errors.Report(&errors.DriftError{
			Op:      "platform.PlatformViewRegistry.Dispose",
			Kind:    errors.KindPlatform,
			Channel: platformViewsChannel,
			ViewID:  viewID,
			Err:     err,
		})
	}
}

// GetView returns a platform view by ID, or nil.
func (r *PlatformViewRegistry) GetView(viewID int64) PlatformView {
	r.mu.RLock()
	view := r.views[viewID]
	r.mu.RUnlock()
	return view
}

// UpdateViewGeometry notifies native of a view's position and size change.
func (r *PlatformViewRegistry) UpdateViewGeometry(viewID int64, offset graphics.Offset, size graphics.Size) error {
	_, err := r.channel.Invoke("setGeometry", map[string]any{
		"viewId": viewID,
		"x":      offset.X,
		"y":      offset.Y,
		"width":  size.Width,
		"height": size.Height,
	})
	return err
}

// SetViewVisible notifies native to show or hide a view.
func (r *PlatformViewRegistry) SetViewVisible(viewID int64, visible bool) error {
	_, err := r.channel.Invoke("setVisible", map[string]any{
		"viewId":  viewID,
		"visible": visible,
	})
	return err
}

// InvokeViewMethod invokes a method on a specific platform view.
func (r *PlatformViewRegistry) InvokeViewMethod(viewID int64, method string, args map[string]any) (any, error) {
	invokeArgs := make(map[string]any, len(args)+2)
	for k, v := range args {
		invokeArgs[k] = v
	}
	invokeArgs["viewId"] = viewID
	invokeArgs["method"] = method
	return r.channel.Invoke("invokeViewMethod", invokeArgs)
}

// handleMethodCall processes incoming method calls from native code.
func (r *PlatformViewRegistry) handleMethodCall(method string, args any) (any, error) {
	switch method {
	case "onViewCreated", "onViewDisposed":
		return nil, nil
	default:
		return nil, ErrMethodNotFound
	}
}

// routeEvent delivers a native view event ({method, viewId, ...}) to its view.
func (r *PlatformViewRegistry) routeEvent(data any) {
	args := parseMap(data)
	viewID, ok := toInt64(args["viewId"])
	method := parseString(args["method"])
	if !ok || method == "" {
		errors.Report(&errors.DriftError{
			Op:      "platform.PlatformViewRegistry.routeEvent",
			Kind:    errors.KindParsing,
			Channel: platformViewsChannel,
			Err:     &errors.ParseError{Channel: platformViewsChannel, DataType: "PlatformViewEvent", Got: data},
		})
		return
	}

	view := r.GetView(viewID)
	if view == nil {
		errors.Report(&errors.DriftError{
			Op:      "platform.PlatformViewRegistry.routeEvent",
			Kind:    errors.KindPlatform,
			Channel: platformViewsChannel,
			ViewID:  viewID,
			Err:     fmt.Errorf("%w: %s", ErrViewNotFound, method),
		})
		return
	}
	if h, ok := view.(viewEventHandler); ok {
		h.handleEvent(method, args)
	}
}

func (r *PlatformViewRegistry) reset() {
	r.mu.Lock()
	r.views = make(map[int64]PlatformView)
	r.mu.Unlock()
	r.nextID.Store(0)
}

// basePlatformView provides common implementation for platform views.
type basePlatformView struct {
	viewID   int64
	viewType string

	geoMu   sync.Mutex
	offset  graphics.Offset
	size    graphics.Size
	visible bool
}

func (v *basePlatformView) ViewID() int64 {
	return v.viewID
}

func (v *basePlatformView) ViewType() string {
	return v.viewType
}

func (v *basePlatformView) SetSize(size graphics.Size) {
	v.geoMu.Lock()
	v.size = size
	offset := v.offset
	v.geoMu.Unlock()
	v.reportGeometryError(GetPlatformViewRegistry().UpdateViewGeometry(v.viewID, offset, size))
}

func (v *basePlatformView) SetOffset(offset graphics.Offset) {
	v.geoMu.Lock()
	v.offset = offset
	size := v.size
	v.geoMu.Unlock()
	v.reportGeometryError(GetPlatformViewRegistry().UpdateViewGeometry(v.viewID, offset, size))
}

func (v *basePlatformView) SetVisible(visible bool) {
	v.geoMu.Lock()
	v.visible = visible
	v.geoMu.Unlock()
	v.reportGeometryError(GetPlatformViewRegistry().SetViewVisible(v.viewID, visible))
}

// Bounds returns the last geometry sent to native.
func (v *basePlatformView) Bounds() graphics.Rect {
	v.geoMu.Lock()
	defer v.geoMu.Unlock()
	return graphics.RectFromOffsetSize(v.offset, v.size)
}

func (v *basePlatformView) reportGeometryError(err error) {
	if err == nil {
		return
	}
	errors.Report(&errors.DriftError{
		Op:      "platform." + v.viewType + ".geometry",
		Kind:    errors.KindPlatform,
		Channel: platformViewsChannel,
		ViewID:  v.viewID,
		Err:     err,
	})
}
