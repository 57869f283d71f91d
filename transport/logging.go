package transport

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Logging wraps base and logs every request at debug level: method, path, status and
// elapsed time. Headers are never logged.
func Logging(base http.RoundTripper, logger zerolog.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base, logger: logger.With().Str("component", "http").Logger()}
}

type loggingTransport struct {
	base   http.RoundTripper
	logger zerolog.Logger
}

func (l *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.base.RoundTrip(req)

	var event *zerolog.Event
	if err != nil {
		event = l.logger.Warn().Err(err)
	} else {
		event = l.logger.Debug()
	}
	event = event.Str("method", req.Method).Str("path", req.URL.Path).Dur("elapsed", time.Since(start))
	if id := req.Header.Get(RequestIDHeader); id != "" {
		event = event.Str("request_id", id)
	}
	if resp != nil {
		event = event.Int("status", resp.StatusCode)
	}
	event.Msg("HTTP request")
	return resp, err
}
