package database

import (
	"errors"
	"fmt"
)

var (
	// ErrBookingNotFound is returned on lookup, update or delete of an
	// absent booking id.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrDateConflict is returned when the requested range overlaps a
	// non-cancelled booking for the same car.
	ErrDateConflict = errors.New("car is already booked for the requested dates")

	// ErrInvalidDateRange is returned when start date is after end date.
	ErrInvalidDateRange = errors.New("start date is after end date")

	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrCarNotFound is returned when a car id is not in the fleet.
	ErrCarNotFound = errors.New("car not found")

	// ErrStorageUnavailable wraps unexpected storage failures. Callers
	// decide retry policy; the store never retries.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// storageErr tags a driver or connection failure with
// ErrStorageUnavailable while keeping the cause inspectable.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
