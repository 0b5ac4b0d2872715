package models

import "time"

// DateFormat and SlotFormat are the wire/storage representations for calendar
// dates and slot start times. Slots are compared as strings, which works
// because "HH:MM" is lexicographically ordered.
const (
	DateFormat = "2006-01-02"
	SlotFormat = "15:04"
)

// WeeklySchedule holds the recurring opening hours for one weekday.
// Unique per (garage_id, day_of_week); upserted, never deleted.
type WeeklySchedule struct {
	ID           int64     `json:"id"`
	GarageID     int64     `json:"garage_id"`
	DayOfWeek    int       `json:"day_of_week"` // 0-6, Sunday = 0
	IsOpen       bool      `json:"is_open"`
	OpenTime     string    `json:"open_time"`     // "09:00"
	CloseTime    string    `json:"close_time"`    // "18:00"
	SlotDuration int       `json:"slot_duration"` // minutes
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ScheduleException overrides the weekly schedule for a single calendar date.
// When present it fully supersedes the weekday row: IsClosed yields no slots,
// open with custom hours yields a window distinct from the weekday default.
type ScheduleException struct {
	ID        int64     `json:"id"`
	GarageID  int64     `json:"garage_id"`
	Date      string    `json:"date"` // "2006-01-02"
	IsClosed  bool      `json:"is_closed"`
	OpenTime  string    `json:"open_time,omitempty"`
	CloseTime string    `json:"close_time,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimeSlotBlock withholds one slot from availability independent of bookings.
type TimeSlotBlock struct {
	ID        int64     `json:"id"`
	GarageID  int64     `json:"garage_id"`
	Date      string    `json:"date"`
	TimeSlot  string    `json:"time_slot"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Booking statuses. A slot is consumed while status != cancelled.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

// ActiveStatuses are the statuses that remove a slot from availability output.
var ActiveStatuses = []string{StatusPending, StatusConfirmed, StatusInProgress}

// statusTransitions is the allowed transition table for bookings.
// completed, cancelled and no_show are terminal.
var statusTransitions = map[string][]string{
	StatusPending:    {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transitions are allowed.
func IsTerminalStatus(status string) bool {
	return len(statusTransitions[status]) == 0
}

// IsCancellable reports whether the booking status permits cancellation.
func IsCancellable(status string) bool {
	return CanTransition(status, StatusCancelled)
}

// Booking is a customer's reservation of one slot.
type Booking struct {
	ID         int64     `json:"id"`
	Reference  string    `json:"reference"` // external-facing UUID
	GarageID   int64     `json:"garage_id"`
	Date       string    `json:"date"`
	TimeSlot   string    `json:"time_slot"`
	Status     string    `json:"status"`
	CustomerID int64     `json:"customer_id"`
	VehicleID  int64     `json:"vehicle_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsActive reports whether the booking currently consumes its slot
// for availability purposes.
func (b *Booking) IsActive() bool {
	switch b.Status {
	case StatusPending, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

// StartsAt resolves the booking's slot to a point in time in loc.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	return SlotTime(b.Date, b.TimeSlot, loc)
}

// SlotTime combines a date and a slot key into a time.Time in loc.
func SlotTime(date, slot string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateFormat+" "+SlotFormat, date+" "+slot, loc)
}
