package testing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/encore/internal/shared"
)

var errStorage = errors.New("storage disabled")

// MemoryStorage is an in-memory key/value store matching repositories.LocalStorage.
//
// FailReads and FailWrites simulate disabled storage or an exceeded quota.
type MemoryStorage struct {
	mu         sync.Mutex
	values     map[string]string
	FailReads  bool
	FailWrites bool
	Writes     int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailReads {
		return "", fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, errStorage)
	}
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrNotFound, key)
	}
	return v, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, errStorage)
	}
	m.values[key] = value
	m.Writes++
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, errStorage)
	}
	delete(m.values, key)
	return nil
}

// Has reports whether key is stored, ignoring FailReads.
func (m *MemoryStorage) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// WriteCount returns how many successful Set calls were made.
func (m *MemoryStorage) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Writes
}
