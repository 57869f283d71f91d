package storefake

import (
	"errors"
	"sync"

	"github.com/jrsteele09/officehub-client/credentials"
)

var _ credentials.Backend = (*FakeBackend)(nil)

// FakeBackend is an in-memory credentials.Backend with fault injection and write counting
type FakeBackend struct {
	*credentials.MemoryBackend
	lock      sync.Mutex
	writes    int
	deletes   int
	failWrite error
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{MemoryBackend: credentials.NewMemoryBackend()}
}

// NewFakeStore returns a BlobStore over a fresh FakeBackend
func NewFakeStore() (*credentials.BlobStore, *FakeBackend) {
	backend := NewFakeBackend()
	store, err := credentials.New(backend)
	if err != nil {
		panic(err)
	}
	return store, backend
}

func (f *FakeBackend) Write(data []byte) error {
	f.lock.Lock()
	failWrite := f.failWrite
	f.writes++
	f.lock.Unlock()
	if failWrite != nil {
		return failWrite
	}
	return f.MemoryBackend.Write(data)
}

func (f *FakeBackend) Delete() error {
	f.lock.Lock()
	f.deletes++
	f.lock.Unlock()
	return f.MemoryBackend.Delete()
}

// Corrupt stores raw bytes as if they had been written by a broken client
func (f *FakeBackend) Corrupt(data string) {
	_ = f.MemoryBackend.Write([]byte(data))
}

// FailWrites makes every later Write return err; nil restores normal behaviour
func (f *FakeBackend) FailWrites(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.failWrite = err
}

// Raw returns the stored bytes, or nil when nothing is stored
func (f *FakeBackend) Raw() []byte {
	data, err := f.MemoryBackend.Read()
	if err != nil {
		return nil
	}
	return data
}

func (f *FakeBackend) Empty() bool {
	return f.Raw() == nil
}

func (f *FakeBackend) Writes() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.writes
}

func (f *FakeBackend) Deletes() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.deletes
}

var ErrDiskFull = errors.New("disk full")
