package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ideas-go/internal/ideas"
)

// Notifier receives connectivity changes. *ideas.Service implements it.
type Notifier interface {
	NotifyConnectivity(online bool) error
}

// Watcher re-probes on a schedule and notifies on every change. The first
// check always notifies.
type Watcher struct {
	probe    ideas.ConnectivityProbe
	notifier Notifier
	logger   ideas.Logger
	cron     *cron.Cron

	mu    sync.Mutex
	known bool
	last  bool
}

// NewWatcher schedules a check every interval. Intervals under a second are
// rounded up to one second.
func NewWatcher(probe ideas.ConnectivityProbe, notifier Notifier, interval time.Duration, logger ideas.Logger) (*Watcher, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	interval = max(interval.Round(time.Second), time.Second)

	w := &Watcher{
		probe:    probe,
		notifier: notifier,
		logger:   logger,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := w.cron.AddFunc(spec, func() { w.Check(context.Background()) }); err != nil {
		return nil, fmt.Errorf("scheduling connectivity check %q: %w", spec, err)
	}
	return w, nil
}

// Check probes once and returns the result.
func (w *Watcher) Check(ctx context.Context) bool {
	online := w.probe.Online(ctx)

	w.mu.Lock()
	changed := !w.known || online != w.last
	w.known, w.last = true, online
	w.mu.Unlock()

	if !changed {
		return online
	}
	w.logger.Info("connectivity changed", "online", online)
	if err := w.notifier.NotifyConnectivity(online); err != nil {
		w.logger.Error("notifying connectivity change", "online", online, "error", err)
	}
	return online
}

// Start runs an initial check and then the schedule in the background.
func (w *Watcher) Start(ctx context.Context) {
	w.Check(ctx)
	w.cron.Start()
}

// Stop halts the schedule and waits for a running check to finish.
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
}
