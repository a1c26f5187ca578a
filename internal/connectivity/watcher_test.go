package connectivity

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"ideas-go/internal/ideas"
	"ideas-go/internal/testutil"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []bool
	err   error
}

func (n *recordingNotifier) NotifyConnectivity(online bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, online)
	return n.err
}

func (n *recordingNotifier) snapshot() []bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.calls)
}

func TestWatcher_NotifiesOnChange(t *testing.T) {
	ctx := context.Background()
	probe := testutil.NewStubProbe()
	n := &recordingNotifier{}
	w, err := NewWatcher(probe, n, time.Minute, ideas.NewNopLogger())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	w.Check(ctx)
	w.Check(ctx)
	probe.SetOnline(false)
	if w.Check(ctx) {
		t.Error("Check() = true while offline")
	}
	w.Check(ctx)
	probe.SetOnline(true)
	w.Check(ctx)

	if got, want := n.snapshot(), []bool{true, false, true}; !slices.Equal(got, want) {
		t.Errorf("notifications = %v, want %v", got, want)
	}
}

func TestWatcher_NotifierErrorIsLogged(t *testing.T) {
	probe := testutil.NewStubProbe()
	probe.SetOnline(false)
	n := &recordingNotifier{err: errors.New("kv broken")}
	w, err := NewWatcher(probe, n, time.Second, ideas.NewNopLogger())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if w.Check(context.Background()) {
		t.Error("Check() = true, want false")
	}
	if len(n.snapshot()) != 1 {
		t.Errorf("notifications = %v", n.snapshot())
	}
}

func TestWatcher_OfflineActivatesFailover(t *testing.T) {
	h := testutil.NewTestService(t, ideas.DefaultFailoverPolicy())
	h.Probe.SetOnline(false)

	w, err := NewWatcher(h.Probe, h.Service, time.Minute, ideas.NewNopLogger())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.Check(context.Background())

	if !h.Service.IsDemoMode() {
		t.Error("failover not active after the watcher saw the device offline")
	}
}

func TestWatcher_Schedule(t *testing.T) {
	probe := testutil.NewStubProbe()
	n := &recordingNotifier{}
	w, err := NewWatcher(probe, n, 10*time.Millisecond, ideas.NewNopLogger())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	probe.SetOnline(false)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if got := n.snapshot(); len(got) == 2 {
			if !got[0] || got[1] {
				t.Errorf("notifications = %v, want [true false]", got)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("scheduled check never ran; notifications = %v", n.snapshot())
}

func TestNewWatcher_RejectsZeroInterval(t *testing.T) {
	if _, err := NewWatcher(testutil.NewStubProbe(), &recordingNotifier{}, 0, ideas.NewNopLogger()); err == nil {
		t.Error("NewWatcher(0) error = nil")
	}
}
