package config

import (
	"errors"
	"sync"
)

// ErrNoConfiguration is returned by Load when nothing has been saved yet.
var ErrNoConfiguration = errors.New("no configuration stored")

// Store persists the single configuration record of an installation.
// Load returns a copy; mutations only reach storage through Save.
type Store interface {
	Load() (*Configuration, error)
	Save(cfg *Configuration) error
	Clear() error
}

// HasConfig reports whether s holds a configuration record.
func HasConfig(s Store) bool {
	_, err := s.Load()
	return err == nil
}

// Updater is implemented by stores that can apply a read-modify-write
// under their own lock.
type Updater interface {
	Update(fn func(cfg *Configuration)) (*Configuration, error)
}

// Update re-reads the stored record, applies fn and saves the result.
// Stores implementing Updater run the whole cycle atomically.
func Update(s Store, fn func(cfg *Configuration)) (*Configuration, error) {
	if u, ok := s.(Updater); ok {
		return u.Update(fn)
	}
	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}
	fn(cfg)
	if err := s.Save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MemoryStore keeps the record in memory. It is the store used by tests
// and by hosts that manage persistence themselves.
type MemoryStore struct {
	mu    sync.Mutex
	cfg   *Configuration
	saves int
}

// NewMemoryStore returns a store seeded with cfg, which may be nil.
func NewMemoryStore(cfg *Configuration) *MemoryStore {
	return &MemoryStore{cfg: cfg.Clone()}
}

// Load returns a copy of the stored record.
func (m *MemoryStore) Load() (*Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return nil, ErrNoConfiguration
	}
	return m.cfg.Clone(), nil
}

// Save replaces the stored record.
func (m *MemoryStore) Save(cfg *Configuration) error {
	if cfg == nil {
		return errors.New("cannot save nil configuration")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg.Clone()
	m.saves++
	return nil
}

// Update applies fn to the stored record while holding the store lock.
func (m *MemoryStore) Update(fn func(cfg *Configuration)) (*Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return nil, ErrNoConfiguration
	}
	cfg := m.cfg.Clone()
	fn(cfg)
	m.cfg = cfg.Clone()
	m.saves++
	return cfg, nil
}

// Clear drops the stored record.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = nil
	return nil
}

// SaveCount returns how many times Save succeeded.
func (m *MemoryStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
