package credentials

import (
	"sync"

	"github.com/jrsteele09/officehub-client/internal/errors"
)

// MemoryBackend keeps the snapshot in process memory only
type MemoryBackend struct {
	data []byte
	lock sync.RWMutex
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Read() ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.data == nil {
		return nil, errors.ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBackend) Write(data []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) Delete() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.data = nil
	return nil
}
