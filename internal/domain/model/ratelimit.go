package model

import (
	"errors"
	"time"
)

// RateLimitRecord is the per-(user, action) sliding window of admitted request
// timestamps. Entries older than the window age out on read.
type RateLimitRecord struct {
	Key          string      `json:"key"           db:"id"`
	RequestTimes []time.Time `json:"request_times" db:"request_times"`
	UpdatedAt    time.Time   `json:"updated_at"    db:"updated_at"`
}

// RateLimitReservation is one admission attempt against a sliding window key.
type RateLimitReservation struct {
	Key    string
	Window time.Duration
	Limit  int
	Now    time.Time
}

// Validate validates the RateLimitReservation fields.
func (r *RateLimitReservation) Validate() error {
	if r.Key == "" {
		return errors.New("rate limit key is required")
	}
	if r.Window <= 0 {
		return errors.New("window must be positive")
	}
	if r.Limit <= 0 {
		return errors.New("limit must be positive")
	}
	return nil
}

// RateLimitResult is the store's view after a reservation attempt.
type RateLimitResult struct {
	// Reserved reports whether the attempt was admitted into the window.
	Reserved bool
	// Count is the number of entries in the window, including this attempt
	// when Reserved.
	Count int
	// OldestEntry is the oldest timestamp still counted. Zero when the window
	// is empty.
	OldestEntry time.Time
}

// RateLimitDecision is the outcome of an admission check.
type RateLimitDecision struct {
	Allowed bool
	// Remaining is the number of admissions left in the window after this check.
	Remaining int
	// RetryAfter is how long until the oldest counted entry leaves the window.
	// Zero when Allowed.
	RetryAfter time.Duration
	// FailedOpen is set when the decision admitted the request because the
	// counter store was unreachable.
	FailedOpen bool
}
