package data

import "time"

// TimeProvider supplies the clock used for created_at/updated_at stamps.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider reads the system clock in UTC.
type RealTimeProvider struct{}

func (RealTimeProvider) Now() time.Time { return time.Now().UTC() }

// FixedTimeProvider always returns the same instant. Test use.
type FixedTimeProvider struct {
	T time.Time
}

func (f *FixedTimeProvider) Now() time.Time { return f.T }
