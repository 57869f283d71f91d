package main

import (
	"net/http"

	"github.com/jrsteele09/officehub-client/access"
	"github.com/jrsteele09/officehub-client/authapi"
	"github.com/jrsteele09/officehub-client/credentials"
	"github.com/jrsteele09/officehub-client/hub"
	"github.com/jrsteele09/officehub-client/internal/config"
	"github.com/jrsteele09/officehub-client/refresh"
	"github.com/jrsteele09/officehub-client/session"
	"github.com/jrsteele09/officehub-client/transport"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// app wires the session subsystem together from configuration
type app struct {
	session *session.Manager
	api     *authapi.Client
	guard   *access.Guard
	hub     *hub.Client
	closers []func() error
}

func newApp(c config.Config) (*app, error) {
	a := &app{}

	store, err := a.newStore(c)
	if err != nil {
		return nil, err
	}

	// The auth client and the resource client share one http.Client. Its transport
	// is installed last because it depends on the session built from the auth client.
	httpClient := &http.Client{Timeout: c.GetRequestTimeout()}
	api, err := authapi.New(c.GetAPIBaseURL(), httpClient)
	if err != nil {
		return nil, err
	}
	a.api = api

	if a.session, err = session.New(api, store, session.WithLogger(log.Logger)); err != nil {
		return nil, err
	}

	coordinator, err := refresh.New(a.session, api,
		refresh.WithTimeout(c.GetRequestTimeout()),
		refresh.WithLogger(log.Logger),
		refresh.WithExpiredHandler(func() {
			log.Warn().Str("redirect", access.LoginPath).Msg("Session expired, please log in again")
		}),
	)
	if err != nil {
		return nil, err
	}

	tr, err := transport.New(transport.Logging(http.DefaultTransport, log.Logger), c.GetAPIBaseURL(), a.session, coordinator,
		transport.WithLogger(log.Logger))
	if err != nil {
		return nil, err
	}
	httpClient.Transport = tr

	if a.hub, err = hub.New(c.GetAPIBaseURL(), httpClient, hub.WithProfileUpdater(a.session)); err != nil {
		return nil, err
	}
	a.guard = access.NewGuard(a.session)

	a.session.InitializeAuth()
	return a, nil
}

func (a *app) newStore(c config.Config) (credentials.Store, error) {
	var backend credentials.Backend
	switch c.GetStoreKind() {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
		})
		a.closers = append(a.closers, client.Close)
		backend = credentials.NewRedisBackend(client, c.GetRedisPrefix())
	case config.StoreMemory:
		backend = credentials.NewMemoryBackend()
	default:
		backend = credentials.NewFileBackend(c.GetDataFolder())
	}

	options := []credentials.Option{credentials.WithLogger(log.Logger)}
	if passphrase := c.GetCredentialPassphrase(); passphrase != "" {
		sealer, err := credentials.NewPassphraseSealer(passphrase)
		if err != nil {
			return nil, err
		}
		options = append(options, credentials.WithSealer(sealer))
	}

	log.Debug().Str("store", string(c.GetStoreKind())).Msg("Credential store configured")
	return credentials.New(backend, options...)
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("Close failed")
		}
	}
}
