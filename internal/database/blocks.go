package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"garagebook/internal/models"
)

// CreateBlock withholds one slot. Inserting a block that already exists is a
// no-op; it reports whether a new row was created.
func (db *DB) CreateBlock(ctx context.Context, b *models.TimeSlotBlock) (bool, error) {
	res, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO time_slot_blocks (garage_id, date, time_slot, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		b.GarageID, b.Date, b.TimeSlot, b.Reason, time.Now(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateBlocks inserts blocks for many slots of one date in a single statement.
// Duplicates are ignored. Returns the number of rows actually created.
func (db *DB) CreateBlocks(ctx context.Context, garageID int64, date string, slots []string, reason string) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	now := time.Now()
	placeholders := make([]string, 0, len(slots))
	args := make([]any, 0, len(slots)*5)
	for _, slot := range slots {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?)")
		args = append(args, garageID, date, slot, reason, now)
	}

	res, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO time_slot_blocks (garage_id, date, time_slot, reason, created_at) VALUES "+
			strings.Join(placeholders, ", "),
		args...,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteBlock removes one block; reports whether a row existed.
func (db *DB) DeleteBlock(ctx context.Context, garageID int64, date, slot string) (bool, error) {
	res, err := db.ExecContext(ctx,
		"DELETE FROM time_slot_blocks WHERE garage_id = ? AND date = ? AND time_slot = ?",
		garageID, date, slot,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteBlocks removes blocks for many slots of one date in a single statement.
func (db *DB) DeleteBlocks(ctx context.Context, garageID int64, date string, slots []string) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(slots))
	args := make([]any, 0, len(slots)+2)
	args = append(args, garageID, date)
	for i, slot := range slots {
		placeholders[i] = "?"
		args = append(args, slot)
	}

	res, err := db.ExecContext(ctx,
		"DELETE FROM time_slot_blocks WHERE garage_id = ? AND date = ? AND time_slot IN ("+
			strings.Join(placeholders, ", ")+")",
		args...,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteBlocksForDate removes every block on a date. Used by the holiday
// override when a date is reopened.
func (db *DB) DeleteBlocksForDate(ctx context.Context, garageID int64, date string) (int, error) {
	res, err := db.ExecContext(ctx,
		"DELETE FROM time_slot_blocks WHERE garage_id = ? AND date = ?",
		garageID, date,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// GetBlockedSlots returns the blocked slot keys for one date, ordered.
func (db *DB) GetBlockedSlots(ctx context.Context, garageID int64, date string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT time_slot FROM time_slot_blocks WHERE garage_id = ? AND date = ? ORDER BY time_slot",
		garageID, date,
	)
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

// ListBlocks returns full block rows for one date, ordered by slot.
func (db *DB) ListBlocks(ctx context.Context, garageID int64, date string) ([]models.TimeSlotBlock, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, garage_id, date, time_slot, reason, created_at
		FROM time_slot_blocks
		WHERE garage_id = ? AND date = ?
		ORDER BY time_slot`,
		garageID, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []models.TimeSlotBlock
	for rows.Next() {
		var b models.TimeSlotBlock
		var reason sql.NullString
		if err := rows.Scan(&b.ID, &b.GarageID, &b.Date, &b.TimeSlot, &reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Reason = reason.String
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan blocks: %w", err)
	}
	return blocks, nil
}
