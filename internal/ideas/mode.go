package ideas

import (
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"ideas-go/internal/model"
)

// Device-scope keys.
const (
	keyFailoverActive    = "demoMode"
	keySelectedGroup     = "selectedGroup"
	keyRemoteUnavailable = "remoteUnavailable"
)

// Event is delivered to subscribers when failover activates.
type Event struct {
	Reason string
	At     time.Time
}

// ModeStore persists the failover flag in device-scope storage, so it
// survives restarts until explicitly deactivated.
type ModeStore struct {
	store    KeyValueStore
	snapshot *model.GroupWithMembers
	observer Observer
	clock    Clock
	logger   Logger

	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewModeStore creates a ModeStore over the device-scope store. snapshot is
// the group persisted on activation so callers have a group to navigate to.
func NewModeStore(store KeyValueStore, snapshot *model.GroupWithMembers, observer Observer, clock Clock, logger Logger) *ModeStore {
	if observer == nil {
		observer = NopObserver{}
	}
	return &ModeStore{
		store:    store,
		snapshot: snapshot,
		observer: observer,
		clock:    clock,
		logger:   logger,
		subs:     make(map[int]chan Event),
	}
}

// IsFailoverActive reads the persisted flag. A storage error reads as inactive.
func (m *ModeStore) IsFailoverActive() bool {
	return m.flag(keyFailoverActive)
}

// IsRemoteMarkedUnavailable reads the flag set by MarkRemoteUnavailable.
func (m *ModeStore) IsRemoteMarkedUnavailable() bool {
	return m.flag(keyRemoteUnavailable)
}

// MarkRemoteUnavailable records that the remote is known to be down. It is
// checked at startup.
func (m *ModeStore) MarkRemoteUnavailable() error {
	if err := m.store.Set(keyRemoteUnavailable, "true"); err != nil {
		return fmt.Errorf("marking remote unavailable: %w", err)
	}
	return nil
}

// Activate sets the failover flag, persists the group snapshot and notifies
// subscribers. Activating an already active store does nothing.
func (m *ModeStore) Activate(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.flag(keyFailoverActive) {
		return nil
	}

	if m.snapshot != nil {
		data, err := json.Marshal(m.snapshot)
		if err != nil {
			return fmt.Errorf("encoding group snapshot: %w", err)
		}
		if err := m.store.Set(keySelectedGroup, string(data)); err != nil {
			return fmt.Errorf("storing group snapshot: %w", err)
		}
	}
	if err := m.store.Set(keyFailoverActive, "true"); err != nil {
		return fmt.Errorf("storing failover flag: %w", err)
	}

	m.logger.Warn("failover activated", "reason", reason)
	m.observer.FailoverActivated(reason)

	ev := Event{Reason: reason, At: m.clock.Now()}
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Deactivate clears the flag, the snapshot and the remote-unavailable mark.
func (m *ModeStore) Deactivate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range []string{keyFailoverActive, keySelectedGroup, keyRemoteUnavailable} {
		if err := m.store.Delete(key); err != nil {
			return fmt.Errorf("clearing %s: %w", key, err)
		}
	}
	m.logger.Info("failover deactivated")
	m.observer.FailoverDeactivated()
	return nil
}

// SelectedGroup decodes the snapshot stored on activation. Returns nil, nil
// when there is none.
func (m *ModeStore) SelectedGroup() (*model.GroupWithMembers, error) {
	raw, ok, err := m.store.Get(keySelectedGroup)
	if err != nil {
		return nil, fmt.Errorf("reading group snapshot: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var g model.GroupWithMembers
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, fmt.Errorf("decoding group snapshot: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid group snapshot: %w", err)
	}
	return &g, nil
}

// Subscribe returns a channel that receives an Event each time failover
// activates, and a function that cancels the subscription. Delivery is
// best-effort: an event is dropped if the previous one is still unread.
func (m *ModeStore) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan Event, 1)
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
}

func (m *ModeStore) flag(key string) bool {
	v, ok, err := m.store.Get(key)
	if err != nil {
		m.logger.Error("reading mode flag", "key", key, "error", err)
		return false
	}
	return ok && v == "true"
}
