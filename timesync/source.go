// Package timesync brings a DS1302 in line with a reference time source and
// reports how far it drifted.
package timesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/beevik/ntp"
)

const (
	DefaultServer   = "pool.ntp.org"
	DefaultRetries  = 10
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 5 * time.Second
)

var ErrNoTime = errors.New("reference time not available")

// Source provides the reference time.
type Source interface {
	Now(ctx context.Context) (time.Time, error)
}

// QueryFunc performs a single NTP query, ntp.QueryWithOptions by default.
type QueryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

type NTPOpts struct {
	Retries  int
	Interval time.Duration
	Timeout  time.Duration
	Query    QueryFunc
	Logger   *slog.Logger
}

type NTPOpt func(*NTPOpts)

// WithRetries sets the number of query attempts.
func WithRetries(n int) NTPOpt {
	return func(o *NTPOpts) {
		o.Retries = n
	}
}

// WithInterval sets the pause between two attempts.
func WithInterval(d time.Duration) NTPOpt {
	return func(o *NTPOpts) {
		o.Interval = d
	}
}

// WithTimeout sets the timeout of a single query.
func WithTimeout(d time.Duration) NTPOpt {
	return func(o *NTPOpts) {
		o.Timeout = d
	}
}

func WithQuery(q QueryFunc) NTPOpt {
	return func(o *NTPOpts) {
		o.Query = q
	}
}

func WithLogger(l *slog.Logger) NTPOpt {
	return func(o *NTPOpts) {
		o.Logger = l
	}
}

// NTPSource queries an NTP server and corrects the local clock by the
// measured offset.
type NTPSource struct {
	server string
	opts   NTPOpts
}

var _ Source = &NTPSource{}

func NewNTPSource(server string, opts ...NTPOpt) *NTPSource {
	config := NTPOpts{
		Retries:  DefaultRetries,
		Interval: DefaultInterval,
		Timeout:  DefaultTimeout,
		Query:    ntp.QueryWithOptions,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Retries < 1 {
		config.Retries = 1
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if server == "" {
		server = DefaultServer
	}
	return &NTPSource{server: server, opts: config}
}

func (s *NTPSource) Server() string {
	return s.server
}

// Now returns the network time. Failed or invalid responses are retried
// until the attempts run out or ctx is done.
func (s *NTPSource) Now(ctx context.Context) (time.Time, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.Retries; attempt++ {
		resp, err := s.opts.Query(s.server, ntp.QueryOptions{Timeout: s.opts.Timeout})
		if err == nil {
			err = resp.Validate()
		}
		if err == nil {
			return time.Now().Add(resp.ClockOffset), nil
		}
		lastErr = err
		if attempt == s.opts.Retries {
			break
		}
		s.opts.Logger.Info("waiting for network time", "server", s.server, "attempt", attempt, "retries", s.opts.Retries, "error", err)
		select {
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		case <-time.After(s.opts.Interval):
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s: %w", ErrNoTime, s.server, lastErr)
}
