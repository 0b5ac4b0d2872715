// Package availability computes the authoritative set of bookable slots for a
// garage and date. The computation is canonical; any cached representation is
// derived and invalidated on write, never consulted for conflict resolution.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"garagebook/internal/models"
	"garagebook/internal/slots"
)

// ScheduleStore reads the recurring weekly hours and per-date exceptions.
type ScheduleStore interface {
	GetWeeklySchedule(ctx context.Context, garageID int64, dayOfWeek int) (*models.WeeklySchedule, error)
	GetScheduleException(ctx context.Context, garageID int64, date string) (*models.ScheduleException, error)
}

// SlotReader reads the subtraction sets: administrative blocks and slots
// consumed by active bookings.
type SlotReader interface {
	GetBlockedSlots(ctx context.Context, garageID int64, date string) ([]string, error)
	GetBookedSlots(ctx context.Context, garageID int64, date string) ([]string, error)
}

// Window is the effective opening window for one date after exception
// precedence has been applied.
type Window struct {
	Open         bool
	OpenTime     string
	CloseTime    string
	SlotDuration int
}

// Resolver composes schedule, exception, block and booking reads into the
// bookable slot list for a date.
type Resolver struct {
	schedules ScheduleStore
	reader    SlotReader
	loc       *time.Location
	now       func() time.Time
}

// NewResolver creates a resolver. A nil now falls back to time.Now.
func NewResolver(schedules ScheduleStore, reader SlotReader, loc *time.Location, now func() time.Time) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{schedules: schedules, reader: reader, loc: loc, now: now}
}

// ResolveWindow applies exception-over-schedule precedence for one date.
// An exception fully supersedes the weekday row; a closed exception or a
// missing/closed weekday yields a closed window.
func (r *Resolver) ResolveWindow(ctx context.Context, garageID int64, date string) (Window, error) {
	day, err := time.ParseInLocation(models.DateFormat, date, r.loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", models.ErrInvalidInput, date)
	}

	sched, err := r.schedules.GetWeeklySchedule(ctx, garageID, int(day.Weekday()))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return Window{}, fmt.Errorf("read weekly schedule: %w", err)
	}

	exc, excErr := r.schedules.GetScheduleException(ctx, garageID, date)
	if excErr != nil && !errors.Is(excErr, models.ErrNotFound) {
		return Window{}, fmt.Errorf("read schedule exception: %w", excErr)
	}

	if exc != nil {
		if exc.IsClosed {
			return Window{}, nil
		}
		w := Window{Open: true, OpenTime: exc.OpenTime, CloseTime: exc.CloseTime}
		// Custom-hours exceptions inherit slot duration from the weekday row.
		if sched != nil {
			w.SlotDuration = sched.SlotDuration
			if w.OpenTime == "" || w.CloseTime == "" {
				w.OpenTime = sched.OpenTime
				w.CloseTime = sched.CloseTime
			}
		}
		if w.SlotDuration <= 0 {
			w.SlotDuration = 60
		}
		if w.OpenTime == "" || w.CloseTime == "" {
			return Window{}, nil
		}
		return w, nil
	}

	if sched == nil || !sched.IsOpen {
		return Window{}, nil
	}
	return Window{
		Open:         true,
		OpenTime:     sched.OpenTime,
		CloseTime:    sched.CloseTime,
		SlotDuration: sched.SlotDuration,
	}, nil
}

// AvailableSlots returns the bookable slot keys for a date, ascending.
// Blocks and active bookings are independent subtraction sets; a slot present
// in both is absent exactly once. For today, slots not strictly later than the
// resolver's own clock are dropped.
func (r *Resolver) AvailableSlots(ctx context.Context, garageID int64, date string) ([]string, error) {
	window, err := r.ResolveWindow(ctx, garageID, date)
	if err != nil {
		return nil, err
	}
	if !window.Open {
		return []string{}, nil
	}

	candidates, err := slots.Generate(window.OpenTime, window.CloseTime, window.SlotDuration)
	if err != nil {
		return nil, fmt.Errorf("generate slots: %w", err)
	}

	blocked, err := r.reader.GetBlockedSlots(ctx, garageID, date)
	if err != nil {
		return nil, fmt.Errorf("read blocks: %w", err)
	}
	booked, err := r.reader.GetBookedSlots(ctx, garageID, date)
	if err != nil {
		return nil, fmt.Errorf("read bookings: %w", err)
	}

	taken := make(map[string]struct{}, len(blocked)+len(booked))
	for _, s := range blocked {
		taken[s] = struct{}{}
	}
	for _, s := range booked {
		taken[s] = struct{}{}
	}

	now := r.now().In(r.loc)
	today := now.Format(models.DateFormat)

	available := make([]string, 0, len(candidates))
	for _, slot := range candidates {
		if _, ok := taken[slot]; ok {
			continue
		}
		if date == today {
			start, err := models.SlotTime(date, slot, r.loc)
			if err != nil {
				return nil, err
			}
			if !start.After(now) {
				continue
			}
		}
		available = append(available, slot)
	}

	sort.Strings(available)
	return available, nil
}

// IsSlotAvailable re-validates a single slot at commit time. Reservation
// admission must call this rather than trust an earlier availability read.
func (r *Resolver) IsSlotAvailable(ctx context.Context, garageID int64, date, slot string) (bool, error) {
	available, err := r.AvailableSlots(ctx, garageID, date)
	if err != nil {
		return false, err
	}
	for _, s := range available {
		if s == slot {
			return true, nil
		}
	}
	return false, nil
}
