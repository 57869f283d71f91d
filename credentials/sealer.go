package credentials

import (
	"bytes"
	"crypto/rand"
	"io"
	"sync"

	"github.com/jrsteele09/officehub-client/internal/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32

	argonTime    = 1
	argonMemory  = 19 * 1024
	argonThreads = 1
)

// PassphraseSealer encrypts snapshots with NaCl secretbox under a key derived from a
// passphrase with argon2id. Layout: salt(16) | nonce(24) | box.
// The derived key is cached per salt so only the first Seal/Open pays for derivation.
type PassphraseSealer struct {
	passphrase []byte

	mu   sync.Mutex
	salt []byte
	key  *[keyLength]byte
}

var _ Sealer = (*PassphraseSealer)(nil)

func NewPassphraseSealer(passphrase string) (*PassphraseSealer, error) {
	if passphrase == "" {
		return nil, errors.New("[credentials.NewPassphraseSealer] passphrase is required")
	}
	return &PassphraseSealer{passphrase: []byte(passphrase)}, nil
}

func (p *PassphraseSealer) Seal(plain []byte) ([]byte, error) {
	salt, key, err := p.currentKey()
	if err != nil {
		return nil, err
	}

	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, errors.Wrapf(err, "generate nonce")
	}

	out := make([]byte, 0, saltLength+nonceLength+len(plain)+secretbox.Overhead)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, key), nil
}

func (p *PassphraseSealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < saltLength+nonceLength+secretbox.Overhead {
		return nil, errors.Wrapf(errors.ErrCorruptedState, "sealed snapshot too short")
	}
	salt := sealed[:saltLength]
	var nonce [nonceLength]byte
	copy(nonce[:], sealed[saltLength:saltLength+nonceLength])

	plain, ok := secretbox.Open(nil, sealed[saltLength+nonceLength:], &nonce, p.keyFor(salt))
	if !ok {
		return nil, errors.Wrapf(errors.ErrCorruptedState, "sealed snapshot failed authentication")
	}
	return plain, nil
}

func (p *PassphraseSealer) currentKey() ([]byte, *[keyLength]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key == nil {
		salt := make([]byte, saltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, nil, errors.Wrapf(err, "generate salt")
		}
		p.salt, p.key = salt, p.derive(salt)
	}
	return p.salt, p.key, nil
}

func (p *PassphraseSealer) keyFor(salt []byte) *[keyLength]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key != nil && bytes.Equal(p.salt, salt) {
		return p.key
	}
	key := p.derive(salt)
	p.salt, p.key = append([]byte(nil), salt...), key
	return key
}

func (p *PassphraseSealer) derive(salt []byte) *[keyLength]byte {
	var key [keyLength]byte
	copy(key[:], argon2.IDKey(p.passphrase, salt, argonTime, argonMemory, argonThreads, keyLength))
	return &key
}
