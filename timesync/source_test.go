package timesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beevik/ntp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnreachable = errors.New("network unreachable")

func validResponse(offset time.Duration) *ntp.Response {
	now := time.Now()
	return &ntp.Response{
		Time:          now,
		ReferenceTime: now.Add(-time.Minute),
		ClockOffset:   offset,
		Stratum:       2,
	}
}

func TestNTPSource_Retries(t *testing.T) {
	calls := 0
	src := NewNTPSource("ntp.example.org",
		WithInterval(time.Millisecond),
		WithQuery(func(host string, opt ntp.QueryOptions) (*ntp.Response, error) {
			calls++
			assert.Equal(t, "ntp.example.org", host)
			assert.Equal(t, DefaultTimeout, opt.Timeout)
			switch calls {
			case 1:
				return nil, errUnreachable
			case 2:
				// kiss of death
				return &ntp.Response{Stratum: 0}, nil
			}
			return validResponse(time.Hour), nil
		}),
	)
	now, err := src.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.WithinDuration(t, time.Now().Add(time.Hour), now, 5*time.Second)
}

func TestNTPSource_GivesUp(t *testing.T) {
	calls := 0
	src := NewNTPSource("",
		WithRetries(3),
		WithInterval(time.Millisecond),
		WithQuery(func(host string, opt ntp.QueryOptions) (*ntp.Response, error) {
			calls++
			assert.Equal(t, DefaultServer, host)
			return nil, errUnreachable
		}),
	)
	_, err := src.Now(context.Background())
	require.ErrorIs(t, err, ErrNoTime)
	assert.ErrorIs(t, err, errUnreachable)
	assert.Equal(t, 3, calls)
}

func TestNTPSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := NewNTPSource("ntp.example.org",
		WithInterval(time.Hour),
		WithQuery(func(host string, opt ntp.QueryOptions) (*ntp.Response, error) {
			cancel()
			return nil, errUnreachable
		}),
	)
	_, err := src.Now(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockSource(t *testing.T) {
	ts := time.Date(2024, time.June, 15, 13, 30, 45, 0, time.UTC)
	now, err := NewFixedSource(ts).Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ts, now)

	_, err = NewMockSource(func(ctx context.Context) (time.Time, error) {
		return time.Time{}, ErrNoTime
	}).Now(context.Background())
	assert.ErrorIs(t, err, ErrNoTime)
}
