package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"garagebook/internal/models"
)

// CreateBooking inserts a booking. The partial unique index on active slots
// turns a concurrent double-reserve into exactly one winner; the loser gets a
// SlotConflictError, never a silent duplicate.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO bookings (reference, garage_id, date, time_slot, status, customer_id, vehicle_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.GarageID, b.Date, b.TimeSlot, b.Status, b.CustomerID, b.VehicleID, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.SlotConflictError{
				GarageID: b.GarageID, Date: b.Date, TimeSlot: b.TimeSlot, Reason: "reserved",
			}
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("booking id: %w", err)
	}
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// GetBooking returns a booking by id, or ErrNotFound.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return db.getBooking(ctx, "id = ?", id)
}

// GetBookingByReference returns a booking by its external reference.
func (db *DB) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return db.getBooking(ctx, "reference = ?", reference)
}

func (db *DB) getBooking(ctx context.Context, where string, arg any) (*models.Booking, error) {
	var b models.Booking
	err := db.QueryRowContext(ctx, `
		SELECT id, reference, garage_id, date, time_slot, status, customer_id, vehicle_id, created_at, updated_at
		FROM bookings WHERE `+where+` LIMIT 1`,
		arg,
	).Scan(
		&b.ID, &b.Reference, &b.GarageID, &b.Date, &b.TimeSlot, &b.Status,
		&b.CustomerID, &b.VehicleID, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBookingStatus moves a booking to a new status. The expected current
// status guards against lost updates from concurrent transitions.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, fromStatus, toStatus string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		toStatus, time.Now(), id, fromStatus,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MoveBooking atomically reassigns a booking to a new slot. If the target slot
// already has an active booking the unique index rejects the update and the
// original row is left untouched.
func (db *DB) MoveBooking(ctx context.Context, id int64, newDate, newSlot string) error {
	var garageID int64
	err := db.QueryRowContext(ctx,
		"SELECT garage_id FROM bookings WHERE id = ?", id,
	).Scan(&garageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		"UPDATE bookings SET date = ?, time_slot = ?, updated_at = ? WHERE id = ?",
		newDate, newSlot, time.Now(), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.SlotConflictError{
				GarageID: garageID, Date: newDate, TimeSlot: newSlot, Reason: "reserved",
			}
		}
		return fmt.Errorf("move booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetBookedSlots returns slot keys consumed by active bookings on one date.
func (db *DB) GetBookedSlots(ctx context.Context, garageID int64, date string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT time_slot FROM bookings
		WHERE garage_id = ? AND date = ? AND status IN (%s)
		ORDER BY time_slot`,
		statusPlaceholders(len(models.ActiveStatuses)),
	)

	args := []any{garageID, date}
	for _, s := range models.ActiveStatuses {
		args = append(args, s)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// GetActiveBookingAt returns the active booking occupying a slot, or ErrNotFound.
func (db *DB) GetActiveBookingAt(ctx context.Context, garageID int64, date, slot string) (*models.Booking, error) {
	query := fmt.Sprintf(`
		SELECT id, reference, garage_id, date, time_slot, status, customer_id, vehicle_id, created_at, updated_at
		FROM bookings
		WHERE garage_id = ? AND date = ? AND time_slot = ? AND status IN (%s)
		LIMIT 1`,
		statusPlaceholders(len(models.ActiveStatuses)),
	)

	args := []any{garageID, date, slot}
	for _, s := range models.ActiveStatuses {
		args = append(args, s)
	}

	var b models.Booking
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&b.ID, &b.Reference, &b.GarageID, &b.Date, &b.TimeSlot, &b.Status,
		&b.CustomerID, &b.VehicleID, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBookingsByDateRange returns a garage's bookings within [from, to].
func (db *DB) ListBookingsByDateRange(ctx context.Context, garageID int64, from, to string) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, reference, garage_id, date, time_slot, status, customer_id, vehicle_id, created_at, updated_at
		FROM bookings
		WHERE garage_id = ? AND date >= ? AND date <= ?
		ORDER BY date, time_slot`,
		garageID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListBookingsByCustomer returns all bookings owned by a customer, newest first.
func (db *DB) ListBookingsByCustomer(ctx context.Context, customerID int64) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, reference, garage_id, date, time_slot, status, customer_id, vehicle_id, created_at, updated_at
		FROM bookings
		WHERE customer_id = ?
		ORDER BY date DESC, time_slot DESC`,
		customerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.Reference, &b.GarageID, &b.Date, &b.TimeSlot, &b.Status,
			&b.CustomerID, &b.VehicleID, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func statusPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
