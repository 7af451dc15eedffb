package platform

import (
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/go-drift/navview/pkg/errors"
	"github.com/go-drift/navview/pkg/graphics"
)

// --- Test helpers ---

// testBridge captures native method invocations for assertions.
type testBridge struct {
	mu    sync.Mutex
	calls []testBridgeCall

	// onInvoke, when set, runs for every call after it is recorded. It may
	// send native events back synchronously and can fail the call.
	onInvoke func(call testBridgeCall) error

	started []string
	stopped []string
}

type testBridgeCall struct {
	channel string
	method  string
	args    any // JSON-decoded
}

func (c testBridgeCall) argsMap() map[string]any {
	m, _ := c.args.(map[string]any)
	return m
}

func (b *testBridge) InvokeMethod(channel, method string, argsData []byte) ([]byte, error) {
	var args any
	if len(argsData) > 0 {
		json.Unmarshal(argsData, &args)
	}
	call := testBridgeCall{channel: channel, method: method, args: args}
	b.mu.Lock()
	b.calls = append(b.calls, call)
	hook := b.onInvoke
	b.mu.Unlock()

	if hook != nil {
		if err := hook(call); err != nil {
			return nil, err
		}
	}
	return DefaultCodec.Encode(nil)
}

func (b *testBridge) StartEventStream(channel string) error {
	b.mu.Lock()
	b.started = append(b.started, channel)
	b.mu.Unlock()
	return nil
}

func (b *testBridge) StopEventStream(channel string) error {
	b.mu.Lock()
	b.stopped = append(b.stopped, channel)
	b.mu.Unlock()
	return nil
}

func (b *testBridge) setOnInvoke(fn func(call testBridgeCall) error) {
	b.mu.Lock()
	b.onInvoke = fn
	b.mu.Unlock()
}

// viewMethodCalls returns the invokeViewMethod calls, in order.
func (b *testBridge) viewMethodCalls() []testBridgeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []testBridgeCall
	for _, c := range b.calls {
		if c.method == "invokeViewMethod" {
			result = append(result, c)
		}
	}
	return result
}

func (b *testBridge) callsFor(method string) []testBridgeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []testBridgeCall
	for _, c := range b.calls {
		if c.method == method {
			result = append(result, c)
		}
	}
	return result
}

func setupTestBridge(t *testing.T) *testBridge {
	bridge := &testBridge{}
	SetupTestBridge(t.Cleanup)
	SetNativeBridge(bridge)
	return bridge
}

// captureErrors installs an error handler for the duration of the test.
func captureErrors(t *testing.T) *capturedErrors {
	t.Helper()
	h := &capturedErrors{}
	prev := errors.SetHandler(h)
	t.Cleanup(func() { errors.SetHandler(prev) })
	return h
}

type capturedErrors struct {
	mu     sync.Mutex
	errs   []*errors.DriftError
	panics []*errors.PanicError
}

func (h *capturedErrors) HandleError(err *errors.DriftError) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
}

func (h *capturedErrors) HandlePanic(err *errors.PanicError) {
	h.mu.Lock()
	h.panics = append(h.panics, err)
	h.mu.Unlock()
}

func (h *capturedErrors) reported() []*errors.DriftError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*errors.DriftError(nil), h.errs...)
}

// sendViewEvent simulates a native event arriving for a platform view.
func sendViewEvent(t *testing.T, method string, args map[string]any) {
	t.Helper()
	payload := make(map[string]any, len(args)+1)
	for k, v := range args {
		payload[k] = v
	}
	payload["method"] = method
	data, err := DefaultCodec.Encode(payload)
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	if err := HandleEvent(platformViewsChannel, data); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
}

// recordingView is a PlatformView that records the events routed to it.
type recordingView struct {
	basePlatformView
	mu     sync.Mutex
	events []string
}

func (v *recordingView) Create(map[string]any) error { return nil }
func (v *recordingView) Dispose()                    {}

func (v *recordingView) handleEvent(method string, args map[string]any) {
	v.mu.Lock()
	v.events = append(v.events, method)
	v.mu.Unlock()
}

type recordingViewFactory struct {
	err error
}

func (recordingViewFactory) ViewType() string { return "test_recording" }

func (f recordingViewFactory) Create(viewID int64, params map[string]any) (PlatformView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &recordingView{basePlatformView: basePlatformView{viewID: viewID, viewType: "test_recording"}}, nil
}

// --- Tests ---

func TestPlatformViewRegistry_CreateNotifiesNative(t *testing.T) {
	bridge := setupTestBridge(t)
	reg := GetPlatformViewRegistry()
	reg.RegisterFactory(recordingViewFactory{})

	view, err := reg.Create("test_recording", map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.ViewID() == 0 {
		t.Error("expected non-zero view id")
	}
	if reg.GetView(view.ViewID()) != view {
		t.Error("GetView should return the created view")
	}

	calls := bridge.callsFor("create")
	if len(calls) != 1 {
		t.Fatalf("expected 1 create call, got %d", len(calls))
	}
	args := calls[0].argsMap()
	if args["viewType"] != "test_recording" {
		t.Errorf("viewType = %v", args["viewType"])
	}
	if int64(args["viewId"].(float64)) != view.ViewID() {
		t.Errorf("viewId = %v, want %d", args["viewId"], view.ViewID())
	}
}

func TestPlatformViewRegistry_UnknownType(t *testing.T) {
	setupTestBridge(t)
	_, err := GetPlatformViewRegistry().Create("no_such_view", nil)
	if !stderrors.Is(err, ErrViewTypeNotFound) {
		t.Errorf("Create = %v, want ErrViewTypeNotFound", err)
	}
}

func TestPlatformViewRegistry_FactoryError(t *testing.T) {
	setupTestBridge(t)
	want := stderrors.New("factory failed")
	reg := GetPlatformViewRegistry()
	reg.RegisterFactory(recordingViewFactory{err: want})
	t.Cleanup(func() { reg.RegisterFactory(recordingViewFactory{}) })

	if _, err := reg.Create("test_recording", nil); !stderrors.Is(err, want) {
		t.Errorf("Create = %v, want %v", err, want)
	}
}

func TestPlatformViewRegistry_CreateFailsWithoutBridge(t *testing.T) {
	t.Cleanup(ResetForTest)
	ResetForTest()
	reg := GetPlatformViewRegistry()
	reg.RegisterFactory(recordingViewFactory{})

	_, err := reg.Create("test_recording", nil)
	if !stderrors.Is(err, ErrPlatformUnavailable) {
		t.Fatalf("Create = %v, want ErrPlatformUnavailable", err)
	}
	if reg.GetView(1) != nil {
		t.Error("failed create should not leave the view registered")
	}
}

func TestPlatformViewRegistry_DisposeNotifiesNative(t *testing.T) {
	bridge := setupTestBridge(t)
	reg := GetPlatformViewRegistry()
	reg.RegisterFactory(recordingViewFactory{})

	view, err := reg.Create("test_recording", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	reg.Dispose(view.ViewID())
	reg.Dispose(view.ViewID()) // unknown ids are ignored

	if reg.GetView(view.ViewID()) != nil {
		t.Error("view should be removed after Dispose")
	}
	if n := len(bridge.callsFor("dispose")); n != 1 {
		t.Errorf("expected 1 dispose call, got %d", n)
	}
}

func TestPlatformViewRegistry_InvokeViewMethodDoesNotMutateArgs(t *testing.T) {
	bridge := setupTestBridge(t)
	args := map[string]any{"title": "Inbox"}

	if _, err := GetPlatformViewRegistry().InvokeViewMethod(4, "setTitle", args); err != nil {
		t.Fatalf("InvokeViewMethod: %v", err)
	}
	if len(args) != 1 {
		t.Errorf("caller args mutated: %v", args)
	}
	calls := bridge.viewMethodCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	got := calls[0].argsMap()
	if got["method"] != "setTitle" || got["title"] != "Inbox" || got["viewId"] != float64(4) {
		t.Errorf("unexpected args: %v", got)
	}
}

func TestPlatformViewRegistry_RoutesEventsToView(t *testing.T) {
	setupTestBridge(t)
	reg := GetPlatformViewRegistry()
	reg.RegisterFactory(recordingViewFactory{})

	view, err := reg.Create("test_recording", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sendViewEvent(t, "onSomething", map[string]any{"viewId": view.ViewID()})

	rv := view.(*recordingView)
	rv.mu.Lock()
	defer rv.mu.Unlock()
	if len(rv.events) != 1 || rv.events[0] != "onSomething" {
		t.Errorf("routed events = %v", rv.events)
	}
}

func TestPlatformViewRegistry_ReportsBadEvents(t *testing.T) {
	setupTestBridge(t)
	captured := captureErrors(t)

	sendViewEvent(t, "onSomething", map[string]any{"viewId": 999})
	sendViewEvent(t, "onSomething", map[string]any{})

	errs := captured.reported()
	if len(errs) != 2 {
		t.Fatalf("expected 2 reported errors, got %d", len(errs))
	}
	if !stderrors.Is(errs[0].Err, ErrViewNotFound) || errs[0].ViewID != 999 {
		t.Errorf("first error = %v", errs[0])
	}
	if errs[1].Kind != errors.KindParsing {
		t.Errorf("second error kind = %v, want parsing", errs[1].Kind)
	}
}

func TestBasePlatformView_GeometryUpdates(t *testing.T) {
	bridge := setupTestBridge(t)
	v := &recordingView{basePlatformView: basePlatformView{viewID: 3, viewType: "test_recording"}}

	v.SetOffset(graphics.Offset{X: 10, Y: 20})
	v.SetSize(graphics.Size{Width: 100, Height: 50})
	v.SetVisible(false)

	geo := bridge.callsFor("setGeometry")
	if len(geo) != 2 {
		t.Fatalf("expected 2 setGeometry calls, got %d", len(geo))
	}
	last := geo[1].argsMap()
	if last["x"] != float64(10) || last["y"] != float64(20) || last["width"] != float64(100) || last["height"] != float64(50) {
		t.Errorf("unexpected geometry: %v", last)
	}
	if want := (graphics.Rect{Left: 10, Top: 20, Right: 110, Bottom: 70}); v.Bounds() != want {
		t.Errorf("Bounds() = %+v, want %+v", v.Bounds(), want)
	}
	vis := bridge.callsFor("setVisible")
	if len(vis) != 1 || vis[0].argsMap()["visible"] != false {
		t.Errorf("unexpected setVisible calls: %v", vis)
	}
}
