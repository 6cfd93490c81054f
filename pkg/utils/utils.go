package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidClock = errors.New("invalid clock value")

const (
	firstSlotMinutes = 6 * 60  // 06:00
	lastSlotMinutes  = 22 * 60 // 22:00
	slotStepMinutes  = 30
	minutesPerDay    = 24 * 60
)

// ParseClock parses an "HH:MM" 24-hour value into minutes since midnight.
func ParseClock(clock string) (int, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, ErrInvalidClock
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, ErrInvalidClock
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, ErrInvalidClock
	}
	return hours*60 + minutes, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// IsValidStartTime reports whether clock lands on the booking grid:
// 30-minute slots between 06:00 and 22:00 inclusive.
func IsValidStartTime(clock string) bool {
	minutes, err := ParseClock(clock)
	if err != nil {
		return false
	}
	if minutes < firstSlotMinutes || minutes > lastSlotMinutes {
		return false
	}
	return minutes%slotStepMinutes == 0
}

// IsValidDuration reports whether a session length is one of the offered
// durations.
func IsValidDuration(durationMinutes int) bool {
	switch durationMinutes {
	case 60, 90, 120:
		return true
	}
	return false
}

// EndTimeFor derives the end clock from a start clock and duration. Sessions
// never span midnight, so an end at or past 24:00 is rejected.
func EndTimeFor(startTime string, durationMinutes int) (string, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return "", err
	}
	end := start + durationMinutes
	if end >= minutesPerDay {
		return "", ErrInvalidClock
	}
	return FormatClock(end), nil
}

// CombineDateClock builds the wall-clock instant for a calendar day plus an
// "HH:MM" time-of-day, in the day's location.
func CombineDateClock(day time.Time, clock string) (time.Time, error) {
	minutes, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		minutes/60, minutes%60, 0, 0,
		day.Location(),
	), nil
}
