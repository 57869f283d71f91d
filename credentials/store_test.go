package credentials_test

import (
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/officehub-client/credentials"
	"github.com/jrsteele09/officehub-client/credentials/storefake"
	"github.com/jrsteele09/officehub-client/internal/errors"
	"github.com/jrsteele09/officehub-client/users"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func authenticatedSnapshot() credentials.Snapshot {
	return credentials.Snapshot{
		User: &users.User{
			ID:        1,
			Username:  "alice",
			FirstName: "Alice",
			LastName:  "Smith",
			Email:     "alice@example.com",
			Role:      users.RoleEmployee,
		},
		AccessToken:     "a1",
		RefreshToken:    "r1",
		IsAuthenticated: true,
	}
}

func newRedisBackend(t *testing.T) (*miniredis.Miniredis, *credentials.RedisBackend) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return mr, credentials.NewRedisBackend(client, "test:")
}

func backends(t *testing.T) map[string]credentials.Backend {
	t.Helper()

	_, rb := newRedisBackend(t)
	return map[string]credentials.Backend{
		"memory": credentials.NewMemoryBackend(),
		"file":   credentials.NewFileBackend(t.TempDir()),
		"redis":  rb,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	sealer, err := credentials.NewPassphraseSealer("correct horse battery staple")
	require.NoError(t, err)

	snapshots := map[string]credentials.Snapshot{
		"authenticated":   authenticatedSnapshot(),
		"unauthenticated": {},
	}

	for name, backend := range backends(t) {
		for _, sealed := range []bool{false, true} {
			var opts []credentials.Option
			if sealed {
				opts = append(opts, credentials.WithSealer(sealer))
			}
			store, err := credentials.New(backend, opts...)
			require.NoError(t, err)

			for snapName, snap := range snapshots {
				t.Run(name+"/"+snapName, func(t *testing.T) {
					require.NoError(t, store.Save(snap))

					loaded, ok := store.Load()
					require.True(t, ok)
					require.Equal(t, snap, loaded)
				})
			}
		}
	}
}

func TestStore_LoadMissing(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store, err := credentials.New(backend)
			require.NoError(t, err)

			_, ok := store.Load()
			require.False(t, ok)
		})
	}
}

func TestStore_ClearRemovesSnapshot(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store, err := credentials.New(backend)
			require.NoError(t, err)

			require.NoError(t, store.Save(authenticatedSnapshot()))
			require.NoError(t, store.Clear())
			require.NoError(t, store.Clear(), "clearing twice is not an error")

			_, ok := store.Load()
			require.False(t, ok)
		})
	}
}

func TestStore_CorruptedDataIsAbsent(t *testing.T) {
	corrupted := []string{
		"not json",
		`{"user": "alice"}`,
		`{"accessToken": 42}`,
		`{"user":{"username":"alice"},"accessToken":"a1","refreshToken":"r1","isAuthenticated":true} trailing`,
		`{"accessToken":"a1","isAuthenticated":true}`,
		`null`,
		`[]`,
	}

	for _, raw := range corrupted {
		t.Run(raw, func(t *testing.T) {
			store, backend := storefake.NewFakeStore()
			backend.Corrupt(raw)

			_, ok := store.Load()
			require.False(t, ok)
		})
	}
}

func TestStore_SealedBlobTamperedIsAbsent(t *testing.T) {
	sealer, err := credentials.NewPassphraseSealer("passphrase")
	require.NoError(t, err)

	backend := storefake.NewFakeBackend()
	store, err := credentials.New(backend, credentials.WithSealer(sealer))
	require.NoError(t, err)
	require.NoError(t, store.Save(authenticatedSnapshot()))

	raw := backend.Raw()
	require.NotContains(t, string(raw), "alice", "sealed snapshot must not be readable")
	raw[len(raw)-1] ^= 0xff
	require.NoError(t, backend.Write(raw))

	_, ok := store.Load()
	require.False(t, ok)

	t.Run("wrong passphrase", func(t *testing.T) {
		require.NoError(t, store.Save(authenticatedSnapshot()))

		other, err := credentials.NewPassphraseSealer("another passphrase")
		require.NoError(t, err)
		otherStore, err := credentials.New(backend, credentials.WithSealer(other))
		require.NoError(t, err)

		_, ok := otherStore.Load()
		require.False(t, ok)
	})
}

func TestPassphraseSealer_SaltPerInstanceNoncePerWrite(t *testing.T) {
	const saltLength, nonceLength = 16, 24

	sealer, err := credentials.NewPassphraseSealer("passphrase")
	require.NoError(t, err)

	first, err := sealer.Seal([]byte("snapshot"))
	require.NoError(t, err)
	second, err := sealer.Seal([]byte("snapshot"))
	require.NoError(t, err)

	require.Equal(t, first[:saltLength], second[:saltLength], "one salt per sealer")
	require.NotEqual(t, first[saltLength:saltLength+nonceLength], second[saltLength:saltLength+nonceLength])
	require.NotEqual(t, first, second)

	other, err := credentials.NewPassphraseSealer("passphrase")
	require.NoError(t, err)
	third, err := other.Seal([]byte("snapshot"))
	require.NoError(t, err)
	require.NotEqual(t, first[:saltLength], third[:saltLength])

	plain, err := other.Open(first)
	require.NoError(t, err)
	require.Equal(t, "snapshot", string(plain))
}

func TestStore_SaveRefusesInconsistentSnapshot(t *testing.T) {
	store, backend := storefake.NewFakeStore()

	err := store.Save(credentials.Snapshot{AccessToken: "a1", IsAuthenticated: true})
	require.Error(t, err)
	require.True(t, backend.Empty())
}

func TestFileBackend_Permissions(t *testing.T) {
	dir := t.TempDir()
	backend := credentials.NewFileBackend(dir)
	store, err := credentials.New(backend)
	require.NoError(t, err)

	require.NoError(t, store.Save(authenticatedSnapshot()))

	info, err := os.Stat(backend.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestRedisBackend_UsesSingleKey(t *testing.T) {
	mr, backend := newRedisBackend(t)
	store, err := credentials.New(backend)
	require.NoError(t, err)

	require.NoError(t, store.Save(authenticatedSnapshot()))
	require.Equal(t, "test:auth-storage", backend.Key())
	require.True(t, mr.Exists("test:auth-storage"))
	require.Len(t, mr.Keys(), 1)

	require.NoError(t, store.Clear())
	require.False(t, mr.Exists("test:auth-storage"))
}

func TestRedisBackend_UnavailableIsAbsent(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		_ = client.Close()
	})
	backend := credentials.NewRedisBackend(client, "test:").WithTimeout(500 * time.Millisecond)

	store, err := credentials.New(backend)
	require.NoError(t, err)
	require.NoError(t, store.Save(authenticatedSnapshot()))

	mr.Close()

	_, ok := store.Load()
	require.False(t, ok)
	require.Error(t, store.Save(authenticatedSnapshot()))
}

func TestDecode(t *testing.T) {
	data, err := credentials.Encode(authenticatedSnapshot())
	require.NoError(t, err)
	require.JSONEq(t, `{
		"user": {"id":1,"username":"alice","firstName":"Alice","lastName":"Smith","email":"alice@example.com","role":"EMPLOYEE"},
		"accessToken": "a1",
		"refreshToken": "r1",
		"isAuthenticated": true
	}`, string(data))

	_, err = credentials.Decode([]byte("{"))
	require.ErrorIs(t, err, errors.ErrCorruptedState)
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := credentials.New(nil)
	require.Error(t, err)
}
