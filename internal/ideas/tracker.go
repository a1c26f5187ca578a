package ideas

import (
	"fmt"
	"strconv"
	"sync"
)

// Session-scope key.
const keyRemoteErrors = "remoteErrors"

// ErrorTracker counts consecutive remote failures in session-scope storage.
// Reaching the threshold activates failover; the counter itself is not reset
// by that.
type ErrorTracker struct {
	store     KeyValueStore
	mode      *ModeStore
	threshold int
	logger    Logger

	mu sync.Mutex
}

// NewErrorTracker creates a tracker that activates mode after threshold
// failures. A non-positive threshold uses DefaultThreshold.
func NewErrorTracker(store KeyValueStore, mode *ModeStore, threshold int, logger Logger) *ErrorTracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &ErrorTracker{
		store:     store,
		mode:      mode,
		threshold: threshold,
		logger:    logger,
	}
}

// RecordFailure increments the counter and returns the new count.
func (t *ErrorTracker) RecordFailure() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := t.count() + 1
	if err := t.store.Set(keyRemoteErrors, strconv.Itoa(count)); err != nil {
		return count, fmt.Errorf("storing error count: %w", err)
	}
	t.logger.Debug("remote failure recorded", "count", count, "threshold", t.threshold)

	if count >= t.threshold {
		if err := t.mode.Activate(fmt.Sprintf("%d consecutive remote failures", count)); err != nil {
			return count, err
		}
	}
	return count, nil
}

// Clear resets the counter to zero. It does not touch the failover flag.
func (t *ErrorTracker) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Delete(keyRemoteErrors); err != nil {
		return fmt.Errorf("clearing error count: %w", err)
	}
	return nil
}

// Count returns the current counter. A missing or malformed value counts as zero.
func (t *ErrorTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count()
}

// Threshold returns the failure count that activates failover.
func (t *ErrorTracker) Threshold() int {
	return t.threshold
}

func (t *ErrorTracker) count() int {
	raw, ok, err := t.store.Get(keyRemoteErrors)
	if err != nil {
		t.logger.Error("reading error count", "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
