package telemetry

import (
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"

	"ideas-go/internal/ideas"
	"ideas-go/internal/testutil"
)

// captured collects events through BeforeSend and drops them.
type captured struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *captured) beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captured) all() []*sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*sentry.Event(nil), c.events...)
}

func newTestReporter(t *testing.T) (*Reporter, *captured) {
	t.Helper()
	c := &captured{}
	r, err := NewReporter(sentry.ClientOptions{BeforeSend: c.beforeSend})
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}
	t.Cleanup(r.Close)
	return r, c
}

func TestReporter_RemoteFailure(t *testing.T) {
	r, c := newTestReporter(t)

	r.FallbackServed("GetGroupIdeas")
	r.RemoteFailure("GetGroupIdeas", ideas.ClassConnectivity, errors.New("dial tcp: connection refused"))

	events := c.all()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Tags["op"] != "GetGroupIdeas" || ev.Tags["class"] != "connectivity" {
		t.Errorf("tags = %v", ev.Tags)
	}
	if len(ev.Exception) == 0 || ev.Exception[len(ev.Exception)-1].Value != "dial tcp: connection refused" {
		t.Errorf("exception = %+v", ev.Exception)
	}
	if len(ev.Breadcrumbs) != 1 || ev.Breadcrumbs[0].Category != "failover" {
		t.Errorf("breadcrumbs = %+v", ev.Breadcrumbs)
	}
}

func TestReporter_FailoverActivated(t *testing.T) {
	r, c := newTestReporter(t)

	r.FailoverActivated("offline at startup")
	r.FailoverDeactivated()

	events := c.all()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Message != "failover activated: offline at startup" || events[0].Level != sentry.LevelWarning {
		t.Errorf("event = %q at %q", events[0].Message, events[0].Level)
	}
	if events[0].Tags["reason"] != "offline at startup" {
		t.Errorf("tags = %v", events[0].Tags)
	}
}

func TestReporter_ScopeDoesNotLeak(t *testing.T) {
	r, c := newTestReporter(t)

	r.RemoteFailure("CreateIdea", ideas.ClassUnknown, errors.New("boom"))
	r.FailoverActivated("manual")

	events := c.all()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if _, ok := events[1].Tags["op"]; ok {
		t.Errorf("second event carries op tag from the first: %v", events[1].Tags)
	}
}

func TestObservers_ThroughService(t *testing.T) {
	h := testutil.NewTestService(t, ideas.DefaultFailoverPolicy())
	r, c := newTestReporter(t)
	obs := ideas.MultiObserver{h.Observer, r}

	obs.RemoteFailure("GetGroupCategories", ideas.ClassConnectivity, ideas.ErrUnavailable)
	obs.FailoverActivated("single strike")

	failures, _, activations := h.Observer.Snapshot()
	if len(failures) != 1 || len(activations) != 1 {
		t.Errorf("recording observer saw %d failures, %d activations", len(failures), len(activations))
	}
	if len(c.all()) != 2 {
		t.Errorf("sentry events = %d, want 2", len(c.all()))
	}
}
