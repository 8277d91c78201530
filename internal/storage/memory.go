package storage

import (
	"sync"
	"time"
)

type MemoryStorage struct {
	prefs map[string]Preferences
	mu    sync.RWMutex
	now   func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		prefs: make(map[string]Preferences),
		now:   time.Now,
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) Get(clientID string) (Preferences, error) {
	if err := validateClientID(clientID); err != nil {
		return Preferences{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.prefs[clientID]
	if !exists {
		return Preferences{}, ErrPreferencesNotFound
	}
	return p, nil
}

func (m *MemoryStorage) Put(clientID string, prefs Preferences) (Preferences, error) {
	if err := validateClientID(clientID); err != nil {
		return Preferences{}, err
	}
	prefs, err := prefs.Normalize()
	if err != nil {
		return Preferences{}, err
	}
	prefs.UpdatedAt = m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.prefs[clientID] = prefs
	return prefs, nil
}

func (m *MemoryStorage) Delete(clientID string) error {
	if err := validateClientID(clientID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.prefs[clientID]; !exists {
		return ErrPreferencesNotFound
	}
	delete(m.prefs, clientID)
	return nil
}
