package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrStaleStatus is returned by ConditionalUpdate when the ride exists
	// but its status no longer matches any of the expected statuses. The
	// caller re-reads the ride to report the current status.
	ErrStaleStatus = errors.New("ride status did not match expected status")
)
