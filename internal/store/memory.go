package store

import (
	"cmp"
	"slices"
	"sync"
)

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive updates via buffered channels. Updates are sent
// non-blocking; if a subscriber's buffer is full, the update is dropped for
// that subscriber.
type MemoryStore struct {
	mu          sync.RWMutex
	statuses    map[string]StationStatus
	subscribers map[chan StationStatus]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses:    make(map[string]StationStatus),
		subscribers: make(map[chan StationStatus]struct{}),
	}
}

// Update stores status under its Name and notifies all subscribers.
func (m *MemoryStore) Update(status StationStatus) {
	m.mu.Lock()
	m.statuses[status.Name] = status
	m.mu.Unlock()

	m.notifySubscribers(status)
}

// Get returns the stored status for name.
func (m *MemoryStore) Get(name string) (StationStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.statuses[name]
	return status, ok
}

// GetAll returns a copy of all stored statuses ordered by name.
func (m *MemoryStore) GetAll() []StationStatus {
	m.mu.RLock()
	results := make([]StationStatus, 0, len(m.statuses))
	for _, status := range m.statuses {
		results = append(results, status)
	}
	m.mu.RUnlock()

	slices.SortFunc(results, func(a, b StationStatus) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return results
}

// Subscribe creates a new subscription with a buffer of 100 updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan StationStatus {
	ch := make(chan StationStatus, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan StationStatus) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (m *MemoryStore) notifySubscribers(status StationStatus) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- status:
		default:
			// subscriber is slow, drop the message
		}
	}
}
