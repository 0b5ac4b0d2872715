package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"garagebook/internal/models"
)

// DefaultScheduleConfig provides the window applied when seeding a new garage.
var DefaultScheduleConfig = struct {
	OpenTime     string
	CloseTime    string
	SlotDuration int
}{
	OpenTime:     "09:00",
	CloseTime:    "17:00",
	SlotDuration: 60,
}

// UpsertWeeklySchedule creates or updates the schedule row for one weekday.
func (db *DB) UpsertWeeklySchedule(ctx context.Context, s *models.WeeklySchedule) error {
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return fmt.Errorf("%w: day_of_week %d out of range", models.ErrInvalidInput, s.DayOfWeek)
	}
	if s.IsOpen {
		if s.OpenTime >= s.CloseTime {
			return fmt.Errorf("%w: open_time %s must be before close_time %s", models.ErrInvalidInput, s.OpenTime, s.CloseTime)
		}
		if s.SlotDuration <= 0 {
			return fmt.Errorf("%w: slot_duration must be positive", models.ErrInvalidInput)
		}
	}

	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO weekly_schedules (
			garage_id, day_of_week, is_open, open_time, close_time, slot_duration, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(garage_id, day_of_week) DO UPDATE SET
			is_open = excluded.is_open,
			open_time = excluded.open_time,
			close_time = excluded.close_time,
			slot_duration = excluded.slot_duration,
			updated_at = excluded.updated_at`,
		s.GarageID, s.DayOfWeek, s.IsOpen, s.OpenTime, s.CloseTime, s.SlotDuration, now, now,
	)
	return err
}

// GetWeeklySchedule returns the schedule row for one weekday, or ErrNotFound.
func (db *DB) GetWeeklySchedule(ctx context.Context, garageID int64, dayOfWeek int) (*models.WeeklySchedule, error) {
	var s models.WeeklySchedule
	err := db.QueryRowContext(ctx, `
		SELECT id, garage_id, day_of_week, is_open, open_time, close_time, slot_duration, created_at, updated_at
		FROM weekly_schedules
		WHERE garage_id = ? AND day_of_week = ?
		LIMIT 1`,
		garageID, dayOfWeek,
	).Scan(
		&s.ID, &s.GarageID, &s.DayOfWeek, &s.IsOpen, &s.OpenTime, &s.CloseTime,
		&s.SlotDuration, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListWeeklySchedules returns all weekday rows for a garage ordered by weekday.
func (db *DB) ListWeeklySchedules(ctx context.Context, garageID int64) ([]models.WeeklySchedule, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, garage_id, day_of_week, is_open, open_time, close_time, slot_duration, created_at, updated_at
		FROM weekly_schedules
		WHERE garage_id = ?
		ORDER BY day_of_week`,
		garageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []models.WeeklySchedule
	for rows.Next() {
		var s models.WeeklySchedule
		if err := rows.Scan(
			&s.ID, &s.GarageID, &s.DayOfWeek, &s.IsOpen, &s.OpenTime, &s.CloseTime,
			&s.SlotDuration, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// EnsureDefaultSchedules seeds a weekly schedule for every weekday of a garage
// that does not have one yet. Sunday is seeded closed.
func (db *DB) EnsureDefaultSchedules(ctx context.Context, garageID int64) error {
	for dayOfWeek := 0; dayOfWeek <= 6; dayOfWeek++ {
		_, err := db.GetWeeklySchedule(ctx, garageID, dayOfWeek)
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("check schedule: %w", err)
		}

		s := &models.WeeklySchedule{
			GarageID:     garageID,
			DayOfWeek:    dayOfWeek,
			IsOpen:       dayOfWeek != 0,
			OpenTime:     DefaultScheduleConfig.OpenTime,
			CloseTime:    DefaultScheduleConfig.CloseTime,
			SlotDuration: DefaultScheduleConfig.SlotDuration,
		}
		if err := db.UpsertWeeklySchedule(ctx, s); err != nil {
			return fmt.Errorf("seed schedule for garage %d day %d: %w", garageID, dayOfWeek, err)
		}
	}
	return nil
}

// GetScheduleException returns the override for one date, or ErrNotFound.
func (db *DB) GetScheduleException(ctx context.Context, garageID int64, date string) (*models.ScheduleException, error) {
	var e models.ScheduleException
	var openTime, closeTime, reason sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, garage_id, date, is_closed, open_time, close_time, reason, created_at, updated_at
		FROM schedule_exceptions
		WHERE garage_id = ? AND date = ?
		LIMIT 1`,
		garageID, date,
	).Scan(
		&e.ID, &e.GarageID, &e.Date, &e.IsClosed, &openTime, &closeTime, &reason,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.OpenTime = openTime.String
	e.CloseTime = closeTime.String
	e.Reason = reason.String
	return &e, nil
}

// UpsertScheduleException creates or replaces the override for one date.
func (db *DB) UpsertScheduleException(ctx context.Context, e *models.ScheduleException) error {
	if !e.IsClosed && e.OpenTime != "" && e.OpenTime >= e.CloseTime {
		return fmt.Errorf("%w: open_time %s must be before close_time %s", models.ErrInvalidInput, e.OpenTime, e.CloseTime)
	}

	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO schedule_exceptions (
			garage_id, date, is_closed, open_time, close_time, reason, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(garage_id, date) DO UPDATE SET
			is_closed = excluded.is_closed,
			open_time = excluded.open_time,
			close_time = excluded.close_time,
			reason = excluded.reason,
			updated_at = excluded.updated_at`,
		e.GarageID, e.Date, e.IsClosed, e.OpenTime, e.CloseTime, e.Reason, now, now,
	)
	return err
}

// DeleteScheduleException removes the override for one date.
func (db *DB) DeleteScheduleException(ctx context.Context, garageID int64, date string) error {
	_, err := db.ExecContext(ctx,
		"DELETE FROM schedule_exceptions WHERE garage_id = ? AND date = ?",
		garageID, date,
	)
	return err
}

// ListScheduleExceptions returns overrides within a date range, ordered by date.
func (db *DB) ListScheduleExceptions(ctx context.Context, garageID int64, from, to string) ([]models.ScheduleException, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, garage_id, date, is_closed, open_time, close_time, reason, created_at, updated_at
		FROM schedule_exceptions
		WHERE garage_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		garageID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exceptions []models.ScheduleException
	for rows.Next() {
		var e models.ScheduleException
		var openTime, closeTime, reason sql.NullString
		if err := rows.Scan(
			&e.ID, &e.GarageID, &e.Date, &e.IsClosed, &openTime, &closeTime, &reason,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		e.OpenTime = openTime.String
		e.CloseTime = closeTime.String
		e.Reason = reason.String
		exceptions = append(exceptions, e)
	}
	return exceptions, rows.Err()
}
