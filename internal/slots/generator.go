// Package slots turns an opening window into the ordered candidate start times
// for one day. Generation is pure; availability subtraction lives elsewhere.
package slots

import (
	"fmt"
	"strconv"
	"strings"

	"garagebook/internal/models"
)

// Generate emits a slot key every durationMinutes starting at openTime, keeping
// only slots that fit entirely inside the window: a trailing partial period is
// dropped, never truncated. The result is ordered ascending and deterministic.
func Generate(openTime, closeTime string, durationMinutes int) ([]string, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive, got %d", models.ErrInvalidInput, durationMinutes)
	}

	openMin, err := ParseClock(openTime)
	if err != nil {
		return nil, err
	}
	closeMin, err := ParseClock(closeTime)
	if err != nil {
		return nil, err
	}
	if openMin >= closeMin {
		return nil, fmt.Errorf("%w: open time %s must be before close time %s", models.ErrInvalidInput, openTime, closeTime)
	}

	var result []string
	for cursor := openMin; cursor+durationMinutes <= closeMin; cursor += durationMinutes {
		result = append(result, FormatClock(cursor))
	}
	return result, nil
}

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: invalid time %q, expected HH:MM", models.ErrInvalidInput, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: invalid hour in %q", models.ErrInvalidInput, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: invalid minute in %q", models.ErrInvalidInput, s)
	}
	return hour*60 + minute, nil
}

// FormatClock converts minutes since midnight back to a "HH:MM" slot key.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
