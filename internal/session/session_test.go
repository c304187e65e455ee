package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alucardeht/specsync/internal/syncer"
	"github.com/alucardeht/specsync/internal/watcher"
)

type fakeSyncer struct {
	mu       sync.Mutex
	triggers []string
	calls    chan string
	delay    time.Duration
	release  chan struct{}
	err      error

	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{calls: make(chan string, 256)}
}

func (f *fakeSyncer) Sync(ctx context.Context, trigger string) (syncer.Result, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		max := f.maxActive.Load()
		if n <= max || f.maxActive.CompareAndSwap(max, n) {
			break
		}
	}

	if f.release != nil {
		<-f.release
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.triggers = append(f.triggers, trigger)
	f.mu.Unlock()
	f.calls <- trigger

	return syncer.Result{ID: trigger, Trigger: trigger, Err: f.err, Kind: syncer.Classify(f.err)}, f.err
}

func (f *fakeSyncer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.triggers)
}

func (f *fakeSyncer) wait(t *testing.T) string {
	t.Helper()
	select {
	case trigger := <-f.calls:
		return trigger
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a sync")
		return ""
	}
}

// runSession starts Run in the background. The returned channel is closed
// when Run returns; runErr holds its result.
func runSession(t *testing.T, s *Session) (cancel func(), done <-chan struct{}, runErr *error) {
	t.Helper()
	ctx, cancelFn := context.WithCancel(context.Background())
	finished := make(chan struct{})
	var err error
	go func() {
		err = s.Run(ctx)
		close(finished)
	}()
	t.Cleanup(func() {
		cancelFn()
		<-finished
	})
	return cancelFn, finished, &err
}

func TestRunSyncsOnStartup(t *testing.T) {
	fs := newFakeSyncer()
	runSession(t, New(fs, Options{}))

	if got := fs.wait(t); got != TriggerStartup {
		t.Errorf("first trigger = %q, want %q", got, TriggerStartup)
	}
}

func TestBurstOfFileEventsProducesOneSync(t *testing.T) {
	fs := newFakeSyncer()
	s := New(fs, Options{})
	runSession(t, s)
	fs.wait(t)

	d := watcher.NewDebouncer(60*time.Millisecond, 0, s.OnChange)
	defer d.Stop(false)

	for i := 0; i < 100; i++ {
		d.Add(watcher.FileEvent{Path: "src/main/java/Flight.java", Type: watcher.EventModify})
	}

	if got := fs.wait(t); got != TriggerFileChange {
		t.Errorf("trigger = %q", got)
	}

	time.Sleep(250 * time.Millisecond)
	if n := fs.count(); n != 2 {
		t.Errorf("expected startup + 1 sync, got %d", n)
	}
}

func TestSpacedFileEventsProduceSeparateSyncs(t *testing.T) {
	fs := newFakeSyncer()
	s := New(fs, Options{})
	runSession(t, s)
	fs.wait(t)

	d := watcher.NewDebouncer(30*time.Millisecond, 0, s.OnChange)
	defer d.Stop(false)

	for i := 0; i < 3; i++ {
		d.Add(watcher.FileEvent{Path: "src/main/java/Flight.java", Type: watcher.EventModify})
		if got := fs.wait(t); got != TriggerFileChange {
			t.Errorf("trigger %d = %q", i, got)
		}
	}

	if n := fs.count(); n != 4 {
		t.Errorf("expected 4 syncs, got %d", n)
	}
}

func TestPeriodicSyncWithoutFileEvents(t *testing.T) {
	fs := newFakeSyncer()
	runSession(t, New(fs, Options{Interval: 30 * time.Millisecond}))
	fs.wait(t)

	for i := 0; i < 3; i++ {
		if got := fs.wait(t); got != TriggerPeriodic {
			t.Errorf("trigger = %q, want %q", got, TriggerPeriodic)
		}
	}
}

func TestSyncsNeverOverlap(t *testing.T) {
	fs := newFakeSyncer()
	fs.delay = 20 * time.Millisecond
	s := New(fs, Options{Interval: 5 * time.Millisecond})
	runSession(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				s.Trigger(TriggerManual)
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		fs.wait(t)
	}

	if max := fs.maxActive.Load(); max != 1 {
		t.Errorf("observed %d concurrent syncs", max)
	}
	if s.Status().Coalesced == 0 {
		t.Error("expected some triggers to be coalesced")
	}
}

func TestTriggerWhileInFlightIsCoalesced(t *testing.T) {
	fs := newFakeSyncer()
	fs.release = make(chan struct{})
	s := New(fs, Options{})
	runSession(t, s)

	deadline := time.Now().Add(5 * time.Second)
	for !s.Status().InFlight {
		if time.Now().After(deadline) {
			t.Fatal("startup sync never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !s.Trigger(TriggerManual) {
		t.Error("first trigger during a sync should be queued")
	}
	if s.Trigger(TriggerFileChange) {
		t.Error("second trigger should be coalesced")
	}
	if !s.Status().Pending {
		t.Error("status should report a pending trigger")
	}

	close(fs.release)

	if got := fs.wait(t); got != TriggerStartup {
		t.Errorf("first = %q", got)
	}
	if got := fs.wait(t); got != TriggerManual {
		t.Errorf("second = %q", got)
	}

	time.Sleep(100 * time.Millisecond)
	if n := fs.count(); n != 2 {
		t.Errorf("expected 2 syncs, got %d", n)
	}
	if c := s.Status().Coalesced; c != 1 {
		t.Errorf("Coalesced = %d", c)
	}
}

func TestStatusTracksFailures(t *testing.T) {
	fs := newFakeSyncer()
	fs.err = errors.New("boom")
	s := New(fs, Options{})
	runSession(t, s)
	fs.wait(t)

	deadline := time.Now().Add(5 * time.Second)
	for s.Status().Failures == 0 {
		if time.Now().After(deadline) {
			t.Fatal("failure never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	st := s.Status()
	if st.Syncs != 1 || st.LastRun == nil || st.LastRun.Kind != syncer.KindUnknown {
		t.Errorf("unexpected status %+v", st)
	}

	summary := s.Controller().Status()
	if summary.LastRun == nil || summary.LastRun.Error != "boom" {
		t.Errorf("unexpected control status %+v", summary)
	}
}

type fakeSource struct {
	started atomic.Bool
	stopped atomic.Bool
	err     error
}

func (f *fakeSource) Start(ctx context.Context) error {
	f.started.Store(true)
	return f.err
}

func (f *fakeSource) Stop() error {
	f.stopped.Store(true)
	return nil
}

func TestShutdownStopsProducers(t *testing.T) {
	fs := newFakeSyncer()
	src := &fakeSource{}
	s := New(fs, Options{Interval: 10 * time.Millisecond})
	s.SetSource(src)

	cancel, done, runErr := runSession(t, s)
	fs.wait(t)

	cancel()
	select {
	case <-done:
		if *runErr != nil {
			t.Errorf("Run returned %v", *runErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if !src.started.Load() || !src.stopped.Load() {
		t.Error("file watcher was not started and stopped")
	}

	n := fs.count()
	time.Sleep(60 * time.Millisecond)
	if fs.count() != n {
		t.Error("sync ran after shutdown")
	}
}

func TestRunFailsWhenSourceFails(t *testing.T) {
	fs := newFakeSyncer()
	s := New(fs, Options{})
	s.SetSource(&fakeSource{err: errors.New("too many open files")})

	if err := s.Run(context.Background()); err == nil {
		t.Error("expected error from failing watcher")
	}
}
