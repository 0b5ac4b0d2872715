// Package blocks implements administrative slot withholding: single and bulk
// block/unblock over date ranges, and the per-date holiday override.
package blocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"garagebook/internal/availability"
	"garagebook/internal/metrics"
	"garagebook/internal/models"
	"garagebook/internal/slots"
)

// Store is the persistence surface for blocks and date overrides.
type Store interface {
	CreateBlocks(ctx context.Context, garageID int64, date string, slotKeys []string, reason string) (int, error)
	DeleteBlocks(ctx context.Context, garageID int64, date string, slotKeys []string) (int, error)
	DeleteBlocksForDate(ctx context.Context, garageID int64, date string) (int, error)
	GetBookedSlots(ctx context.Context, garageID int64, date string) ([]string, error)
	GetWeeklySchedule(ctx context.Context, garageID int64, dayOfWeek int) (*models.WeeklySchedule, error)
	GetScheduleException(ctx context.Context, garageID int64, date string) (*models.ScheduleException, error)
	UpsertScheduleException(ctx context.Context, e *models.ScheduleException) error
	DeleteScheduleException(ctx context.Context, garageID int64, date string) error
}

// WindowResolver applies the same exception-over-schedule precedence the
// availability path uses, so bulk operations and queries agree on what is open.
type WindowResolver interface {
	ResolveWindow(ctx context.Context, garageID int64, date string) (availability.Window, error)
}

// RangeRequest describes a bulk block or unblock operation.
type RangeRequest struct {
	GarageID int64
	FromDate string
	ToDate   string
	Weekdays []int    // optional filter, 0-6; empty means every day
	Slots    []string // optional explicit slot list; empty means the whole window
	Reason   string
}

// Rejection records one slot the bulk operation refused to touch while the
// rest of the batch proceeded.
type Rejection struct {
	Date   string `json:"date"`
	Slot   string `json:"slot"`
	Reason string `json:"reason"` // "booked" or "past"
}

// Result summarises a bulk operation.
type Result struct {
	Affected int         `json:"affected"`
	Rejected []Rejection `json:"rejected,omitempty"`
}

// Manager performs block mutations and holiday overrides.
type Manager struct {
	store       Store
	windows     WindowResolver
	invalidator availability.Invalidator
	loc         *time.Location
	now         func() time.Time
	rejectPast  bool
	logger      *zerolog.Logger
}

// NewManager creates a block manager. A nil now falls back to time.Now.
func NewManager(
	store Store,
	windows WindowResolver,
	invalidator availability.Invalidator,
	loc *time.Location,
	now func() time.Time,
	rejectPastMutations bool,
	logger *zerolog.Logger,
) *Manager {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	if invalidator == nil {
		invalidator = availability.NoopInvalidator{}
	}
	return &Manager{
		store:       store,
		windows:     windows,
		invalidator: invalidator,
		loc:         loc,
		now:         now,
		rejectPast:  rejectPastMutations,
		logger:      logger,
	}
}

// BlockRange expands the date range day by day, resolves each day's effective
// window and blocks its slots. Slots with an active booking are rejected
// individually; the batch is one storage round-trip per day.
func (m *Manager) BlockRange(ctx context.Context, req RangeRequest) (*Result, error) {
	return m.applyRange(ctx, req, true)
}

// UnblockRange is the inverse of BlockRange; deleting an absent block is a
// no-op, so the operation is idempotent.
func (m *Manager) UnblockRange(ctx context.Context, req RangeRequest) (*Result, error) {
	return m.applyRange(ctx, req, false)
}

func (m *Manager) applyRange(ctx context.Context, req RangeRequest, block bool) (*Result, error) {
	from, err := time.ParseInLocation(models.DateFormat, req.FromDate, m.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid from date %q", models.ErrInvalidInput, req.FromDate)
	}
	to, err := time.ParseInLocation(models.DateFormat, req.ToDate, m.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid to date %q", models.ErrInvalidInput, req.ToDate)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: from date is after to date", models.ErrInvalidInput)
	}

	result := &Result{}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if !weekdayMatches(day, req.Weekdays) {
			continue
		}
		date := day.Format(models.DateFormat)

		affected, rejected, err := m.applyDay(ctx, req, date, block)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", date, err)
		}
		result.Affected += affected
		result.Rejected = append(result.Rejected, rejected...)
		if affected > 0 {
			m.invalidator.Invalidate(ctx, req.GarageID, date)
		}
	}

	op := "block"
	if !block {
		op = "unblock"
	}
	metrics.IncSlotsBlocked(op, result.Affected)
	m.logger.Info().
		Int64("garage_id", req.GarageID).
		Str("from", req.FromDate).
		Str("to", req.ToDate).
		Str("op", op).
		Int("affected", result.Affected).
		Int("rejected", len(result.Rejected)).
		Msg("bulk slot mutation applied")
	return result, nil
}

func (m *Manager) applyDay(ctx context.Context, req RangeRequest, date string, block bool) (int, []Rejection, error) {
	window, err := m.windows.ResolveWindow(ctx, req.GarageID, date)
	if err != nil {
		return 0, nil, err
	}
	if !window.Open {
		return 0, nil, nil
	}

	candidates, err := slots.Generate(window.OpenTime, window.CloseTime, window.SlotDuration)
	if err != nil {
		return 0, nil, err
	}
	targets := candidates
	if len(req.Slots) > 0 {
		targets = intersect(req.Slots, candidates)
	}
	if len(targets) == 0 {
		return 0, nil, nil
	}

	var rejected []Rejection
	accepted := make([]string, 0, len(targets))

	var booked map[string]struct{}
	if block {
		bookedSlots, err := m.store.GetBookedSlots(ctx, req.GarageID, date)
		if err != nil {
			return 0, nil, err
		}
		booked = make(map[string]struct{}, len(bookedSlots))
		for _, s := range bookedSlots {
			booked[s] = struct{}{}
		}
	}

	now := m.now().In(m.loc)
	for _, slot := range targets {
		if m.rejectPast {
			start, err := models.SlotTime(date, slot, m.loc)
			if err != nil {
				return 0, nil, err
			}
			if !start.After(now) {
				rejected = append(rejected, Rejection{Date: date, Slot: slot, Reason: "past"})
				continue
			}
		}
		if block {
			if _, taken := booked[slot]; taken {
				rejected = append(rejected, Rejection{Date: date, Slot: slot, Reason: "booked"})
				continue
			}
		}
		accepted = append(accepted, slot)
	}

	var affected int
	if block {
		affected, err = m.store.CreateBlocks(ctx, req.GarageID, date, accepted, req.Reason)
	} else {
		affected, err = m.store.DeleteBlocks(ctx, req.GarageID, date, accepted)
	}
	if err != nil {
		return 0, nil, err
	}
	return affected, rejected, nil
}

// BlockSingle blocks one slot, rejecting booked or elapsed slots.
func (m *Manager) BlockSingle(ctx context.Context, garageID int64, date, slot, reason string) error {
	result, err := m.applyRangeSingle(ctx, garageID, date, slot, reason, true)
	if err != nil {
		return err
	}
	if len(result.Rejected) > 0 {
		r := result.Rejected[0]
		if r.Reason == "past" {
			return models.ErrPastSlot
		}
		return &models.SlotConflictError{GarageID: garageID, Date: date, TimeSlot: slot, Reason: "reserved"}
	}
	return nil
}

// UnblockSingle removes one block. Removing an absent block is a no-op.
func (m *Manager) UnblockSingle(ctx context.Context, garageID int64, date, slot string) error {
	result, err := m.applyRangeSingle(ctx, garageID, date, slot, "", false)
	if err != nil {
		return err
	}
	if len(result.Rejected) > 0 {
		return models.ErrPastSlot
	}
	return nil
}

func (m *Manager) applyRangeSingle(ctx context.Context, garageID int64, date, slot, reason string, block bool) (*Result, error) {
	if _, err := slots.ParseClock(slot); err != nil {
		return nil, err
	}
	return m.applyRange(ctx, RangeRequest{
		GarageID: garageID,
		FromDate: date,
		ToDate:   date,
		Slots:    []string{slot},
		Reason:   reason,
	}, block)
}

// SetDateOverride toggles a holiday override for one date.
//
// Making the date available upserts an open exception (keeping existing custom
// hours, else the weekday default) AND deletes every block on the date. The
// cascade is deliberate: reopening a holiday means the full window goes back
// on sale, not the window minus stale holiday blocks.
//
// Making the date unavailable upserts a closed exception and leaves block rows
// alone; they are moot while the date is closed but come back into force if
// the date is reopened through the schedule path.
func (m *Manager) SetDateOverride(ctx context.Context, garageID int64, date string, isAvailable bool, reason string) error {
	day, err := time.ParseInLocation(models.DateFormat, date, m.loc)
	if err != nil {
		return fmt.Errorf("%w: invalid date %q", models.ErrInvalidInput, date)
	}

	exc := &models.ScheduleException{
		GarageID: garageID,
		Date:     date,
		IsClosed: !isAvailable,
		Reason:   reason,
	}

	if isAvailable {
		existing, err := m.store.GetScheduleException(ctx, garageID, date)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("read exception: %w", err)
		}
		if existing != nil && existing.OpenTime != "" && existing.CloseTime != "" {
			exc.OpenTime = existing.OpenTime
			exc.CloseTime = existing.CloseTime
		} else {
			sched, err := m.store.GetWeeklySchedule(ctx, garageID, int(day.Weekday()))
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("read weekly schedule: %w", err)
			}
			if sched != nil {
				exc.OpenTime = sched.OpenTime
				exc.CloseTime = sched.CloseTime
			}
		}
	}

	if err := m.store.UpsertScheduleException(ctx, exc); err != nil {
		return fmt.Errorf("upsert exception: %w", err)
	}

	if isAvailable {
		if _, err := m.store.DeleteBlocksForDate(ctx, garageID, date); err != nil {
			return fmt.Errorf("clear blocks: %w", err)
		}
	}

	m.invalidator.Invalidate(ctx, garageID, date)
	m.logger.Info().
		Int64("garage_id", garageID).
		Str("date", date).
		Bool("available", isAvailable).
		Msg("date override set")
	return nil
}

// ClearDateOverride removes the exception for a date entirely, so the weekday
// schedule governs the date again. Deleting an absent exception is a no-op.
// Block rows are untouched; a block placed before the override comes back into
// force with the weekday window.
func (m *Manager) ClearDateOverride(ctx context.Context, garageID int64, date string) error {
	if _, err := time.ParseInLocation(models.DateFormat, date, m.loc); err != nil {
		return fmt.Errorf("%w: invalid date %q", models.ErrInvalidInput, date)
	}

	if err := m.store.DeleteScheduleException(ctx, garageID, date); err != nil {
		return fmt.Errorf("delete exception: %w", err)
	}

	m.invalidator.Invalidate(ctx, garageID, date)
	m.logger.Info().
		Int64("garage_id", garageID).
		Str("date", date).
		Msg("date override cleared")
	return nil
}

func weekdayMatches(day time.Time, weekdays []int) bool {
	if len(weekdays) == 0 {
		return true
	}
	dow := int(day.Weekday())
	for _, w := range weekdays {
		if w == dow {
			return true
		}
	}
	return false
}

func intersect(requested, candidates []string) []string {
	allowed := make(map[string]struct{}, len(candidates))
	for _, s := range candidates {
		allowed[s] = struct{}{}
	}
	var out []string
	for _, s := range requested {
		if _, ok := allowed[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
