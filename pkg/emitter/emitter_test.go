package emitter

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/navview/pkg/errors"
)

var (
	keyTitle = NewKey[string]("title")
	keyDepth = NewKey[int]("depth")
)

func TestEmitWithoutListenersIsNoop(t *testing.T) {
	e := New()
	Emit(e, keyTitle, "x")

	var zero Emitter
	Emit(&zero, keyTitle, "x")
	zero.RemoveAllListeners()
	RemoveListener(&zero, keyTitle, NewListener(func(string) {}))
}

func TestEmitInInsertionOrder(t *testing.T) {
	e := New()
	var got []string
	On(e, keyTitle, func(s string) { got = append(got, "f1("+s+")") })
	On(e, keyTitle, func(s string) { got = append(got, "f2("+s+")") })

	Emit(e, keyTitle, "x")

	if diff := cmp.Diff([]string{"f1(x)", "f2(x)"}, got); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestSameListenerAddedTwiceFiresTwice(t *testing.T) {
	e := New()
	calls := 0
	l := NewListener(func(string) { calls++ })
	AddListener(e, keyTitle, l)
	AddListener(e, keyTitle, l)

	Emit(e, keyTitle, "x")
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	RemoveListener(e, keyTitle, l)
	Emit(e, keyTitle, "y")
	if calls != 2 {
		t.Errorf("RemoveListener should remove every occurrence; calls = %d", calls)
	}
}

func TestRemoveListenerKeepsOthers(t *testing.T) {
	e := New()
	var got []string
	l1 := On(e, keyTitle, func(s string) { got = append(got, "l1") })
	On(e, keyTitle, func(s string) { got = append(got, "l2") })

	RemoveListener(e, keyTitle, l1)
	Emit(e, keyTitle, "x")

	if diff := cmp.Diff([]string{"l2"}, got); diff != "" {
		t.Errorf("listeners mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveListenerUnknownKeyIsNoop(t *testing.T) {
	e := New()
	RemoveListener(e, keyTitle, NewListener(func(string) {}))
	if n := e.ListenerCount("title"); n != 0 {
		t.Errorf("ListenerCount = %d, want 0", n)
	}
}

// Adding to a key that already has listeners keeps them.
func TestAddListenerPreservesExistingListeners(t *testing.T) {
	e := New()
	first, second := 0, 0
	On(e, keyTitle, func(string) { first++ })
	On(e, keyTitle, func(string) { second++ })

	Emit(e, keyTitle, "x")
	if first != 1 || second != 1 {
		t.Errorf("first=%d second=%d, want 1 and 1", first, second)
	}
}

func TestOnceFiresOnce(t *testing.T) {
	e := New()
	var got []string
	Once(e, keyTitle, func(s string) { got = append(got, s) })

	Emit(e, keyTitle, "x")
	Emit(e, keyTitle, "y")

	if diff := cmp.Diff([]string{"x"}, got); diff != "" {
		t.Errorf("once listener mismatch (-want +got):\n%s", diff)
	}
	if n := e.ListenerCount("title"); n != 0 {
		t.Errorf("ListenerCount after once fired = %d, want 0", n)
	}
}

func TestOnceReentrantEmitFiresOnce(t *testing.T) {
	e := New()
	calls := 0
	Once(e, keyTitle, func(s string) {
		calls++
		Emit(e, keyTitle, "again")
	})

	Emit(e, keyTitle, "x")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestOnceRemovedBeforeEmit(t *testing.T) {
	e := New()
	calls := 0
	l := Once(e, keyTitle, func(string) { calls++ })
	RemoveListener(e, keyTitle, l)

	Emit(e, keyTitle, "x")
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestRemoveAllListeners(t *testing.T) {
	e := New()
	calls := 0
	On(e, keyTitle, func(string) { calls++ })
	On(e, keyDepth, func(int) { calls++ })

	e.RemoveAllListeners()
	Emit(e, keyTitle, "x")
	Emit(e, keyDepth, 1)

	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}

	On(e, keyTitle, func(string) { calls++ })
	Emit(e, keyTitle, "x")
	if calls != 1 {
		t.Errorf("listener added after RemoveAllListeners: calls = %d, want 1", calls)
	}
}

func TestKeysWithSameNameDifferentTypesAreDistinct(t *testing.T) {
	e := New()
	asString := NewKey[string]("changed")
	asInt := NewKey[int]("changed")

	var gotString string
	var gotInt int
	On(e, asString, func(s string) { gotString = s })
	On(e, asInt, func(n int) { gotInt = n })

	Emit(e, asInt, 5)
	if gotString != "" || gotInt != 5 {
		t.Errorf("gotString=%q gotInt=%d", gotString, gotInt)
	}
	if n := e.ListenerCount("changed"); n != 2 {
		t.Errorf("ListenerCount = %d, want 2", n)
	}
}

func TestEmitUsesSnapshot(t *testing.T) {
	e := New()
	var got []string
	var late *Listener[string]
	var second *Listener[string]

	On(e, keyTitle, func(s string) {
		got = append(got, "first")
		late = On(e, keyTitle, func(string) { got = append(got, "late") })
		RemoveListener(e, keyTitle, second)
	})
	second = On(e, keyTitle, func(string) { got = append(got, "second") })

	Emit(e, keyTitle, "x")

	if diff := cmp.Diff([]string{"first", "second"}, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if late == nil {
		t.Fatal("late listener not registered")
	}
}

func TestPanickingListenerDoesNotStopEmit(t *testing.T) {
	var reported *errors.PanicError
	prev := errors.SetHandler(&recordingHandler{onPanic: func(p *errors.PanicError) { reported = p }})
	t.Cleanup(func() { errors.SetHandler(prev) })

	e := New()
	after := false
	On(e, keyTitle, func(string) { panic("listener failed") })
	On(e, keyTitle, func(string) { after = true })

	Emit(e, keyTitle, "x")

	if !after {
		t.Error("listener after the panicking one should still run")
	}
	if reported == nil || reported.Op != "emitter.Emit(title)" {
		t.Errorf("panic not reported correctly: %+v", reported)
	}
}

func TestConcurrentEmitAndRegister(t *testing.T) {
	e := New()
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		calls int
	)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l := On(e, keyDepth, func(int) {
				mu.Lock()
				calls++
				mu.Unlock()
			})
			RemoveListener(e, keyDepth, l)
		}()
		go func(n int) {
			defer wg.Done()
			Emit(e, keyDepth, n)
		}(i)
	}
	wg.Wait()

	if n := e.ListenerCount("depth"); n != 0 {
		t.Errorf("ListenerCount = %d, want 0", n)
	}
}

type recordingHandler struct {
	onPanic func(*errors.PanicError)
}

func (h *recordingHandler) HandleError(*errors.DriftError) {}

func (h *recordingHandler) HandlePanic(p *errors.PanicError) {
	if h.onPanic != nil {
		h.onPanic(p)
	}
}
