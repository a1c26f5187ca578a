package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"ideas-go/internal/fallback"
	"ideas-go/internal/ideas"
)

// StubProbe is a connectivity probe whose answer is set by the test.
type StubProbe struct {
	offline atomic.Bool
	calls   atomic.Int64
}

// NewStubProbe returns a probe that reports online.
func NewStubProbe() *StubProbe {
	return &StubProbe{}
}

func (p *StubProbe) SetOnline(online bool) { p.offline.Store(!online) }

func (p *StubProbe) Online(context.Context) bool {
	p.calls.Add(1)
	return !p.offline.Load()
}

// Calls returns how many times the probe was consulted.
func (p *StubProbe) Calls() int { return int(p.calls.Load()) }

// RemoteFailure is one RecordingObserver.RemoteFailure event.
type RemoteFailure struct {
	Op    string
	Class ideas.ErrorClass
	Err   error
}

// RecordingObserver keeps every event it receives.
type RecordingObserver struct {
	mu          sync.Mutex
	Failures    []RemoteFailure
	Served      []string
	Activations []string
	Deactivated int
}

var _ ideas.Observer = (*RecordingObserver)(nil)

func (o *RecordingObserver) RemoteFailure(op string, class ideas.ErrorClass, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Failures = append(o.Failures, RemoteFailure{Op: op, Class: class, Err: err})
}

func (o *RecordingObserver) FallbackServed(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Served = append(o.Served, op)
}

func (o *RecordingObserver) FailoverActivated(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Activations = append(o.Activations, reason)
}

func (o *RecordingObserver) FailoverDeactivated() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Deactivated++
}

// Snapshot returns copies of the recorded failures, served ops and activations.
func (o *RecordingObserver) Snapshot() ([]RemoteFailure, []string, []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]RemoteFailure(nil), o.Failures...),
		append([]string(nil), o.Served...),
		append([]string(nil), o.Activations...)
}

// Harness is a Service wired to in-memory parts the test can reach into.
// The remote is a FlakyBackend over a demo dataset whose IDs carry a
// "remote" prefix; the fallback's carry "fallback".
type Harness struct {
	Service  *ideas.Service
	Remote   *FlakyBackend
	Fallback *fallback.Dataset
	Mode     *ideas.ModeStore
	Tracker  *ideas.ErrorTracker
	Device   *BrokenStore
	Session  *BrokenStore
	Probe    *StubProbe
	Observer *RecordingObserver
	Clock    *StubClock
}

// NewTestService builds a Harness with the given policy.
func NewTestService(t *testing.T, policy ideas.FailoverPolicy) *Harness {
	t.Helper()

	h := &Harness{
		Device:   NewBrokenStore(),
		Session:  NewBrokenStore(),
		Probe:    NewStubProbe(),
		Observer: &RecordingObserver{},
		Clock:    FixedClock(),
	}
	logger := ideas.NewNopLogger()

	h.Remote = NewFlakyBackend(fallback.New(h.Clock, NewPrefixedIDGenerator("remote"), 0))
	h.Fallback = fallback.New(h.Clock, NewPrefixedIDGenerator("fallback"), 0)
	h.Mode = ideas.NewModeStore(h.Device, h.Fallback.CanonicalGroup(), h.Observer, h.Clock, logger)
	h.Tracker = ideas.NewErrorTracker(h.Session, h.Mode, policy.Threshold, logger)
	h.Service = ideas.NewService(h.Remote, h.Fallback, h.Mode, h.Tracker, h.Probe, policy, h.Observer, logger)
	return h
}
