package storage

import "sync"

// Memory is an in-process Storage. Nothing survives the process.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = value
	return nil
}

func (m *Memory) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Noop is used where no durable storage is available.
// Reads always miss and writes are dropped; no operation ever fails.
type Noop struct{}

func (Noop) GetItem(string) (string, bool, error) { return "", false, nil }
func (Noop) SetItem(string, string) error         { return nil }
func (Noop) RemoveItem(string) error              { return nil }
func (Noop) Close() error                         { return nil }
