package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		allowed  bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusNoShow, true},
		{StatusPending, StatusInProgress, false},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusInProgress, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusNoShow, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, IsTerminalStatus(StatusCompleted))
	assert.True(t, IsTerminalStatus(StatusCancelled))
	assert.True(t, IsTerminalStatus(StatusNoShow))
	assert.False(t, IsTerminalStatus(StatusPending))
	assert.False(t, IsTerminalStatus(StatusConfirmed))
	assert.False(t, IsTerminalStatus(StatusInProgress))
}

func TestIsCancellable(t *testing.T) {
	assert.True(t, IsCancellable(StatusPending))
	assert.True(t, IsCancellable(StatusConfirmed))
	assert.False(t, IsCancellable(StatusInProgress))
	assert.False(t, IsCancellable(StatusCompleted))
	assert.False(t, IsCancellable(StatusCancelled))
	assert.False(t, IsCancellable(StatusNoShow))
}

func TestBookingIsActive(t *testing.T) {
	for _, status := range ActiveStatuses {
		b := Booking{Status: status}
		assert.True(t, b.IsActive(), status)
	}
	for _, status := range []string{StatusCompleted, StatusCancelled, StatusNoShow} {
		b := Booking{Status: status}
		assert.False(t, b.IsActive(), status)
	}
}

func TestSlotTime(t *testing.T) {
	got, err := SlotTime("2026-03-09", "14:30", time.UTC)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC), got)

	_, err = SlotTime("09-03-2026", "14:30", time.UTC)
	assert.Error(t, err)

	_, err = SlotTime("2026-03-09", "2pm", time.UTC)
	assert.Error(t, err)
}
