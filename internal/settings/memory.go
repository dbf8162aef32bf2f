package settings

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps settings in memory.
type MemoryStore struct {
	writeMu sync.Mutex // held across update and publish
	mu      sync.RWMutex
	cur     Settings
	hub     hub
}

// NewMemoryStore creates a store holding initial.
func NewMemoryStore(initial Settings) *MemoryStore {
	return &MemoryStore{cur: initial.Clone()}
}

// Get returns the current settings.
func (m *MemoryStore) Get(context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.Clone(), nil
}

// Save validates and stores s, then notifies subscribers. Subscribers see
// changes in the order they were stored and must not write to the store.
func (m *MemoryStore) Save(_ context.Context, s Settings) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.save(s)
}

func (m *MemoryStore) save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	old := m.cur
	m.cur = s.Clone()
	m.mu.Unlock()

	m.hub.publish(old, s)
	return nil
}

// SetLocales replaces the enabled locale set, keeping every other field.
func (m *MemoryStore) SetLocales(ctx context.Context, ids []string) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	s, _ := m.Get(ctx)
	s.EnabledLocales = slices.Clone(ids)
	return m.save(s)
}

// EnabledLocales returns the enabled locale ids.
func (m *MemoryStore) EnabledLocales(ctx context.Context) ([]string, error) {
	s, err := m.Get(ctx)
	return s.EnabledLocales, err
}

// WatchLocales calls fn after every change of the enabled locale set.
func (m *MemoryStore) WatchLocales(ctx context.Context, fn func([]string)) error {
	m.hub.add(subscription{ctx: ctx, onLocales: fn})
	return nil
}

// Watch calls fn after every change.
func (m *MemoryStore) Watch(ctx context.Context, fn func(Settings)) error {
	m.hub.add(subscription{ctx: ctx, onChange: fn})
	return nil
}
