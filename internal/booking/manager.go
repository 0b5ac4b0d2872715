// Package booking owns the reservation lifecycle: admission of new bookings,
// status transitions and the at-most-one-active-reservation-per-slot rule.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"garagebook/internal/availability"
	"garagebook/internal/metrics"
	"garagebook/internal/models"
)

// Repository is the persistence surface the manager needs. The storage layer
// must guarantee the conditional-insert semantics: CreateBooking and
// MoveBooking return SlotConflictError when the target slot is taken.
type Repository interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, fromStatus, toStatus string) error
	MoveBooking(ctx context.Context, id int64, newDate, newSlot string) error
}

// AvailabilityChecker re-validates a slot against the canonical computation at
// commit time. Reads from earlier availability queries are never trusted.
type AvailabilityChecker interface {
	IsSlotAvailable(ctx context.Context, garageID int64, date, slot string) (bool, error)
}

// QuotaGate is the external consumable-capacity check consulted before a
// booking may be confirmed. Restore gives a unit back when the confirmation
// fails after consuming; replenishment proper is entirely outside this service.
type QuotaGate interface {
	Consume(ctx context.Context, garageID int64) error
	Restore(ctx context.Context, garageID int64) error
}

// Manager enforces the booking state machine and slot invariants.
type Manager struct {
	repo        Repository
	checker     AvailabilityChecker
	quota       QuotaGate
	invalidator availability.Invalidator
	loc         *time.Location
	now         func() time.Time
	rejectPast  bool
	logger      *zerolog.Logger
}

// NewManager creates a reservation manager. A nil now falls back to time.Now;
// a nil invalidator disables cache invalidation.
func NewManager(
	repo Repository,
	checker AvailabilityChecker,
	quota QuotaGate,
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
		repo:        repo,
		checker:     checker,
		quota:       quota,
		invalidator: invalidator,
		loc:         loc,
		now:         now,
		rejectPast:  rejectPastMutations,
		logger:      logger,
	}
}

// Reserve admits a new pending booking for a slot. The slot is re-validated
// against the resolver and then committed through the storage-level uniqueness
// constraint, so concurrent reservers of the same slot resolve to exactly one
// winner; losers get SlotConflictError.
func (m *Manager) Reserve(ctx context.Context, garageID int64, date, slot string, customerID, vehicleID int64) (*models.Booking, error) {
	start, err := models.SlotTime(date, slot, m.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date or slot (%s %s)", models.ErrInvalidInput, date, slot)
	}
	if !start.After(m.now().In(m.loc)) {
		return nil, models.ErrPastSlot
	}

	available, err := m.checker.IsSlotAvailable(ctx, garageID, date, slot)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !available {
		metrics.IncReservationConflict()
		return nil, &models.SlotConflictError{GarageID: garageID, Date: date, TimeSlot: slot, Reason: "unavailable"}
	}

	b := &models.Booking{
		Reference:  uuid.NewString(),
		GarageID:   garageID,
		Date:       date,
		TimeSlot:   slot,
		Status:     models.StatusPending,
		CustomerID: customerID,
		VehicleID:  vehicleID,
	}
	if err := m.repo.CreateBooking(ctx, b); err != nil {
		if models.IsConflict(err) {
			metrics.IncReservationConflict()
		}
		return nil, err
	}

	metrics.IncBookingCreated(b.Status)
	m.invalidator.Invalidate(ctx, garageID, date)
	m.logger.Info().
		Int64("garage_id", garageID).
		Str("date", date).
		Str("slot", slot).
		Int64("booking_id", b.ID).
		Msg("booking reserved")
	return b, nil
}

// Confirm moves a pending booking to confirmed after the quota gate admits it.
// Exhaustion surfaces as ErrQuotaExhausted; the booking stays pending.
func (m *Manager) Confirm(ctx context.Context, bookingID int64) error {
	b, err := m.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !models.CanTransition(b.Status, models.StatusConfirmed) {
		return fmt.Errorf("%w: cannot confirm booking in status %s", models.ErrInvalidInput, b.Status)
	}

	if m.quota != nil {
		if err := m.quota.Consume(ctx, b.GarageID); err != nil {
			return err
		}
	}

	if err := m.transition(ctx, b, models.StatusConfirmed); err != nil {
		// The booking stays pending, so the consumed unit goes back; otherwise
		// a retried Confirm would charge the garage twice.
		if m.quota != nil {
			if restoreErr := m.quota.Restore(ctx, b.GarageID); restoreErr != nil {
				m.logger.Error().Err(restoreErr).
					Int64("garage_id", b.GarageID).
					Int64("booking_id", b.ID).
					Msg("quota restore failed")
			}
		}
		return err
	}
	return nil
}

// Start moves a confirmed booking to in_progress.
func (m *Manager) Start(ctx context.Context, bookingID int64) error {
	return m.transitionByID(ctx, bookingID, models.StatusInProgress)
}

// Complete moves an in-progress booking to completed.
func (m *Manager) Complete(ctx context.Context, bookingID int64) error {
	return m.transitionByID(ctx, bookingID, models.StatusCompleted)
}

// MarkNoShow records that the customer did not turn up. Only allowed once the
// slot's start time has passed.
func (m *Manager) MarkNoShow(ctx context.Context, bookingID int64) error {
	b, err := m.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !models.CanTransition(b.Status, models.StatusNoShow) {
		return fmt.Errorf("%w: cannot mark no-show in status %s", models.ErrInvalidInput, b.Status)
	}
	start, err := b.StartsAt(m.loc)
	if err != nil {
		return err
	}
	if start.After(m.now().In(m.loc)) {
		return fmt.Errorf("%w: booking has not started yet", models.ErrInvalidInput)
	}
	return m.transition(ctx, b, models.StatusNoShow)
}

// Cancel sets a booking to cancelled. Permitted only for the owning customer
// or a garage operator, only while pending/confirmed, and only before the
// slot's start time. The freed slot reappears on the next availability read.
func (m *Manager) Cancel(ctx context.Context, bookingID, requesterID int64, operator bool) error {
	b, err := m.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !operator && b.CustomerID != requesterID {
		return models.ErrNotPermitted
	}
	if !models.IsCancellable(b.Status) {
		return fmt.Errorf("%w: cannot cancel booking in status %s", models.ErrInvalidInput, b.Status)
	}

	start, err := b.StartsAt(m.loc)
	if err != nil {
		return err
	}
	if m.rejectPast && !start.After(m.now().In(m.loc)) {
		return models.ErrPastSlot
	}

	if err := m.transition(ctx, b, models.StatusCancelled); err != nil {
		return err
	}
	metrics.IncBookingCancelled()
	return nil
}

// Reschedule atomically moves a booking to a new slot. The target is validated
// against availability first, then committed through the unique index: if the
// target is taken the original booking is left untouched and the caller gets
// SlotConflictError.
func (m *Manager) Reschedule(ctx context.Context, bookingID, requesterID int64, operator bool, newDate, newSlot string) error {
	b, err := m.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !operator && b.CustomerID != requesterID {
		return models.ErrNotPermitted
	}
	if !b.IsActive() {
		return fmt.Errorf("%w: cannot reschedule booking in status %s", models.ErrInvalidInput, b.Status)
	}
	if b.Date == newDate && b.TimeSlot == newSlot {
		return nil
	}

	start, err := models.SlotTime(newDate, newSlot, m.loc)
	if err != nil {
		return fmt.Errorf("%w: bad date or slot (%s %s)", models.ErrInvalidInput, newDate, newSlot)
	}
	if !start.After(m.now().In(m.loc)) {
		return models.ErrPastSlot
	}

	// The booking's own row occupies its old slot, so this check naturally
	// excludes it for any genuinely different target.
	available, err := m.checker.IsSlotAvailable(ctx, b.GarageID, newDate, newSlot)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if !available {
		metrics.IncReservationConflict()
		return &models.SlotConflictError{GarageID: b.GarageID, Date: newDate, TimeSlot: newSlot, Reason: "unavailable"}
	}

	if err := m.repo.MoveBooking(ctx, bookingID, newDate, newSlot); err != nil {
		if models.IsConflict(err) {
			metrics.IncReservationConflict()
		}
		return err
	}

	m.invalidator.Invalidate(ctx, b.GarageID, b.Date)
	m.invalidator.Invalidate(ctx, b.GarageID, newDate)
	m.logger.Info().
		Int64("booking_id", bookingID).
		Str("from", b.Date+" "+b.TimeSlot).
		Str("to", newDate+" "+newSlot).
		Msg("booking rescheduled")
	return nil
}

func (m *Manager) transitionByID(ctx context.Context, bookingID int64, to string) error {
	b, err := m.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !models.CanTransition(b.Status, to) {
		return fmt.Errorf("%w: transition %s -> %s not allowed", models.ErrInvalidInput, b.Status, to)
	}
	return m.transition(ctx, b, to)
}

func (m *Manager) transition(ctx context.Context, b *models.Booking, to string) error {
	if err := m.repo.UpdateBookingStatus(ctx, b.ID, b.Status, to); err != nil {
		return fmt.Errorf("transition %s -> %s: %w", b.Status, to, err)
	}
	m.invalidator.Invalidate(ctx, b.GarageID, b.Date)
	m.logger.Info().
		Int64("booking_id", b.ID).
		Str("from", b.Status).
		Str("to", to).
		Msg("booking status changed")
	return nil
}
