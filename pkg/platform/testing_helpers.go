package platform

// testHost is a NativeBridge standing in for the iOS host in tests. It
// accepts every call and finishes animated navigation commands at once by
// answering with onTransitionEnd, as a host with animations disabled would.
type testHost struct{}

func (testHost) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	if channel == platformViewsChannel && method == "invokeViewMethod" {
		finishAnimatedCommand(args)
	}
	return DefaultCodec.Encode(nil)
}

func (testHost) StartEventStream(string) error { return nil }
func (testHost) StopEventStream(string) error  { return nil }

func finishAnimatedCommand(args []byte) {
	decoded, err := DefaultCodec.Decode(args)
	if err != nil {
		return
	}
	m := parseMap(decoded)
	if !parseBool(m["animated"]) {
		return
	}
	end, err := DefaultCodec.Encode(map[string]any{
		"method":    navEventTransitionEnd,
		"viewId":    m["viewId"],
		"commandId": m["commandId"],
	})
	if err != nil {
		return
	}
	_ = HandleEvent(platformViewsChannel, end)
}

// SetupTestBridge installs a test host bridge and a synchronous dispatch
// function. Animated navigation commands complete immediately. The cleanup
// function should be testing.T.Cleanup or equivalent; it registers a
// teardown that calls ResetForTest.
//
//	platform.SetupTestBridge(t.Cleanup)
//	nav := platform.NewNavigationViewController(platform.Route{Name: "/"}, navconfig.Default())
//	err := nav.Push(ctx, platform.Route{Name: "/details"}, true) // returns once pushed
func SetupTestBridge(cleanup func(func())) {
	SetNativeBridge(testHost{})
	RegisterDispatch(func(cb func()) { cb() })
	cleanup(ResetForTest)
}
