package credentials

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/jrsteele09/officehub-client/users"
)

// StorageKey is the single durable key the session snapshot lives under
const StorageKey = "auth-storage"

// Snapshot is the persisted subset of the session needed to restore it after a restart.
// Empty token strings mean "absent".
type Snapshot struct {
	User            *users.User `json:"user,omitempty"`
	AccessToken     string      `json:"accessToken,omitempty"`
	RefreshToken    string      `json:"refreshToken,omitempty"`
	IsAuthenticated bool        `json:"isAuthenticated"`
}

// Complete reports whether user, access token and refresh token are all present
func (s Snapshot) Complete() bool {
	return s.User != nil && s.AccessToken != "" && s.RefreshToken != ""
}

// Consistent reports whether the authentication flag agrees with the stored fields
func (s Snapshot) Consistent() bool {
	return s.IsAuthenticated == s.Complete()
}

// Encode serialises a snapshot. Inconsistent snapshots are refused so that nothing
// written can later decode into a half-authenticated session.
func Encode(s Snapshot) ([]byte, error) {
	if !s.Consistent() {
		return nil, fmt.Errorf("encode snapshot: isAuthenticated=%t does not match stored fields", s.IsAuthenticated)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrapf(err, "encode snapshot")
	}
	return data, nil
}

// Decode parses a snapshot. Any malformed or inconsistent input returns ErrCorruptedState.
func Decode(data []byte) (Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Snapshot{}, errors.ErrCorruptedState
	}

	var s Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return Snapshot{}, errors.Wrapf(errors.ErrCorruptedState, "decode snapshot: %v", err)
	}
	if dec.More() {
		return Snapshot{}, errors.Wrapf(errors.ErrCorruptedState, "decode snapshot: trailing data")
	}
	if !s.Consistent() {
		return Snapshot{}, errors.Wrapf(errors.ErrCorruptedState, "decode snapshot: inconsistent fields")
	}
	return s, nil
}
