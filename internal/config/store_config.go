package config

import "strings"

type StoreKind string

const (
	StoreFile   StoreKind = "file"
	StoreRedis  StoreKind = "redis"
	StoreMemory StoreKind = "memory"
)

type StoreConfig interface {
	GetStoreKind() StoreKind
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisPrefix() string
	GetCredentialPassphrase() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreKind() StoreKind {
	switch kind := StoreKind(strings.ToLower(GetEnv("CREDENTIAL_STORE", string(StoreFile)))); kind {
	case StoreFile, StoreRedis, StoreMemory:
		return kind
	default:
		return StoreFile
	}
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Store) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "officehub:")
}

// GetCredentialPassphrase enables encryption of the persisted session when set
func (Store) GetCredentialPassphrase() string {
	return GetEnv("CREDENTIAL_PASSPHRASE", "")
}
