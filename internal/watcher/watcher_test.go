package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests control the debounce decision directly. Timers are
// inert; tests call flush themselves.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer { return noopTimer{} }

type noopTimer struct{}

func (noopTimer) Reset(time.Duration) bool { return true }
func (noopTimer) Stop() bool               { return true }

type dispatched struct {
	path   string
	change ChangeType
}

func collectDispatches() (DispatchFunc, chan dispatched) {
	ch := make(chan dispatched, 16)
	return func(path string, change ChangeType) {
		ch <- dispatched{path: path, change: change}
	}, ch
}

func waitDispatch(t *testing.T, ch chan dispatched, timeout time.Duration) dispatched {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(timeout):
		t.Fatal("timed out waiting for dispatch")
		return dispatched{}
	}
}

func assertNoDispatch(t *testing.T, ch chan dispatched) {
	t.Helper()
	select {
	case d := <-ch:
		t.Fatalf("unexpected dispatch: %+v", d)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebounceCoalescing(t *testing.T) {
	clock := newFakeClock()
	dispatch, ch := collectDispatches()
	path := filepath.Join(t.TempDir(), "spec.pdf")
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(t.TempDir(), []string{".pdf"}, 2*time.Second, dispatch, WithClock(clock))

	// Three rapid events on the same path within the window.
	w.record(path)
	clock.Advance(100 * time.Millisecond)
	w.record(path)
	clock.Advance(100 * time.Millisecond)
	w.record(path)

	// Not due yet: last event is only 1s old at flush time.
	clock.Advance(time.Second)
	w.flush()
	assertNoDispatch(t, ch)

	clock.Advance(time.Second)
	w.flush()
	got := waitDispatch(t, ch, time.Second)
	if got.path != path || got.change != ChangeModified {
		t.Errorf("dispatched %+v, want Modified %s", got, path)
	}
	assertNoDispatch(t, ch)
}

func TestFlushDerivesDeletedForMissingPath(t *testing.T) {
	clock := newFakeClock()
	dispatch, ch := collectDispatches()
	w := NewWatcher(t.TempDir(), []string{".pdf"}, time.Second, dispatch, WithClock(clock))

	missing := filepath.Join(t.TempDir(), "removed.pdf")
	w.record(missing)
	clock.Advance(time.Second)
	w.flush()

	got := waitDispatch(t, ch, time.Second)
	if got.change != ChangeDeleted {
		t.Errorf("change = %s, want Deleted", got.change)
	}
}

func TestFlushKeepsYoungEntries(t *testing.T) {
	clock := newFakeClock()
	dispatch, ch := collectDispatches()
	w := NewWatcher(t.TempDir(), nil, 2*time.Second, dispatch, WithClock(clock))

	dir := t.TempDir()
	older := filepath.Join(dir, "older.pdf")
	newer := filepath.Join(dir, "newer.pdf")
	for _, p := range []string{older, newer} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	w.record(older)
	clock.Advance(1500 * time.Millisecond)
	w.record(newer)
	clock.Advance(600 * time.Millisecond)
	w.flush()

	got := waitDispatch(t, ch, time.Second)
	if got.path != older {
		t.Errorf("flushed %s first, want %s", got.path, older)
	}
	assertNoDispatch(t, ch)

	clock.Advance(2 * time.Second)
	w.flush()
	got = waitDispatch(t, ch, time.Second)
	if got.path != newer {
		t.Errorf("flushed %s, want %s", got.path, newer)
	}
}

func TestDispatchPanicContained(t *testing.T) {
	clock := newFakeClock()
	w := NewWatcher(t.TempDir(), nil, time.Second, func(path string, change ChangeType) {
		panic("handler fault")
	}, WithClock(clock))

	w.record(filepath.Join(t.TempDir(), "a.pdf"))
	clock.Advance(time.Second)
	w.flush()
	// Give the dispatch goroutine time to run; the test fails by crashing
	// if the panic escapes.
	time.Sleep(100 * time.Millisecond)
}

func TestMatchExtension(t *testing.T) {
	w := NewWatcher("/tmp", []string{".pdf"}, time.Second, nil)
	tests := []struct {
		path string
		want bool
	}{
		{"/inbox/spec.pdf", true},
		{"/inbox/SPEC.PDF", true},
		{"/inbox/readme.txt", false},
		{"/inbox/noext", false},
	}
	for _, tt := range tests {
		if got := w.matchExtension(tt.path); got != tt.want {
			t.Errorf("matchExtension(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	all := NewWatcher("/tmp", nil, time.Second, nil)
	if !all.matchExtension("/inbox/anything.bin") {
		t.Error("empty extension list should match everything")
	}
}

func TestStopIdempotent(t *testing.T) {
	w := NewWatcher(t.TempDir(), []string{".pdf"}, time.Second, func(string, ChangeType) {})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcherEndToEnd(t *testing.T) {
	root := t.TempDir()
	dispatch, ch := collectDispatches()
	w := NewWatcher(root, []string{".pdf"}, 50*time.Millisecond, dispatch)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(root, "device-spec.pdf")
	if err := os.WriteFile(path, []byte("pdf body"), 0644); err != nil {
		t.Fatal(err)
	}
	got := waitDispatch(t, ch, 5*time.Second)
	if got.path != path || got.change != ChangeModified {
		t.Errorf("dispatched %+v, want Modified %s", got, path)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	got = waitDispatch(t, ch, 5*time.Second)
	if got.path != path || got.change != ChangeDeleted {
		t.Errorf("dispatched %+v, want Deleted %s", got, path)
	}
}

func TestSyncExistingFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "existing.pdf"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "ignored.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	dispatch, ch := collectDispatches()
	w := NewWatcher(root, []string{".pdf"}, 50*time.Millisecond, dispatch)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	w.SyncExistingFiles()
	got := waitDispatch(t, ch, 5*time.Second)
	if filepath.Base(got.path) != "existing.pdf" || got.change != ChangeModified {
		t.Errorf("dispatched %+v, want existing.pdf Modified", got)
	}
	assertNoDispatch(t, ch)
}
