package timesync

import (
	"context"
	"time"
)

// SourceBehaviorFunc produces the reference time of a MockSource.
type SourceBehaviorFunc func(ctx context.Context) (time.Time, error)

// MockSource is a Source driven by a behavior function, no network needed.
type MockSource struct {
	behavior SourceBehaviorFunc
}

var _ Source = &MockSource{}

// NewMockSource creates a mock source calling behavior on every Now.
//
// Example usage:
//
//	// Fixed time
//	src := NewMockSource(func(ctx context.Context) (time.Time, error) {
//		return time.Date(2024, 6, 15, 13, 30, 45, 0, time.UTC), nil
//	})
//
//	// Unreachable server
//	src := NewMockSource(func(ctx context.Context) (time.Time, error) {
//		return time.Time{}, ErrNoTime
//	})
func NewMockSource(behavior SourceBehaviorFunc) *MockSource {
	return &MockSource{
		behavior: behavior,
	}
}

// NewFixedSource always returns t.
func NewFixedSource(t time.Time) *MockSource {
	return NewMockSource(func(context.Context) (time.Time, error) {
		return t, nil
	})
}

func (m *MockSource) Now(ctx context.Context) (time.Time, error) {
	return m.behavior(ctx)
}
