package credentials

import (
	"sync"

	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store persists the session snapshot across process restarts.
// Load never reports a failure: unreadable or corrupted data is treated as absent.
type Store interface {
	Load() (Snapshot, bool)
	Save(Snapshot) error
	Clear() error
}

// Backend is raw byte storage for the encoded snapshot under StorageKey
type Backend interface {
	// Read returns errors.ErrNotFound when nothing is stored
	Read() ([]byte, error)
	Write(data []byte) error
	Delete() error
}

// Sealer optionally protects the encoded snapshot at rest
type Sealer interface {
	Seal(plain []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// BlobStore implements Store on top of a Backend, with an explicit encode/decode
// boundary and optional sealing.
type BlobStore struct {
	backend Backend
	sealer  Sealer
	logger  zerolog.Logger
	mu      sync.Mutex
}

var _ Store = (*BlobStore)(nil)

type Option func(*BlobStore)

func WithSealer(sealer Sealer) Option {
	return func(s *BlobStore) {
		s.sealer = sealer
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *BlobStore) {
		s.logger = logger
	}
}

func New(backend Backend, options ...Option) (*BlobStore, error) {
	if backend == nil {
		return nil, errors.New("[credentials.New] backend is required")
	}
	s := &BlobStore{
		backend: backend,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "credentials").Logger()
	return s, nil
}

func (s *BlobStore) Load() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Read()
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("Failed to read persisted session")
		}
		return Snapshot{}, false
	}

	if s.sealer != nil {
		if data, err = s.sealer.Open(data); err != nil {
			s.logger.Warn().Err(err).Msg("Discarding persisted session that could not be opened")
			return Snapshot{}, false
		}
	}

	snap, err := Decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Discarding corrupted persisted session")
		return Snapshot{}, false
	}
	return snap, true
}

func (s *BlobStore) Save(snap Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if s.sealer != nil {
		if data, err = s.sealer.Seal(data); err != nil {
			return errors.Wrapf(err, "seal snapshot")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Write(data); err != nil {
		return errors.Wrapf(err, "write snapshot")
	}
	return nil
}

func (s *BlobStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(); err != nil {
		return errors.Wrapf(err, "delete snapshot")
	}
	return nil
}
