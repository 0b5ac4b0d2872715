package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced garage, booking or exception row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput means a malformed date, time-of-day or non-positive duration.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPastSlot means a mutation targeted a slot whose start time has elapsed.
	ErrPastSlot = errors.New("slot is in the past")
	// ErrQuotaExhausted means the garage has no remaining bookable capacity.
	ErrQuotaExhausted = errors.New("garage quota exhausted")
	// ErrNotPermitted means the requester does not own the booking.
	ErrNotPermitted = errors.New("operation not permitted")
)

// SlotConflictError reports that a slot is already reserved or blocked.
// It always carries the slot key so callers can tell which slot lost the race.
// Reason is "reserved" when an active booking is known to hold the slot, and
// "unavailable" when the slot is absent from the availability output without a
// single attributable cause (blocked, booked or outside the window).
type SlotConflictError struct {
	GarageID int64
	Date     string
	TimeSlot string
	Reason   string
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot %s %s at garage %d already %s", e.Date, e.TimeSlot, e.GarageID, e.Reason)
}

// IsConflict reports whether err is a slot conflict.
func IsConflict(err error) bool {
	var ce *SlotConflictError
	return errors.As(err, &ce)
}
