package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses a wall-clock value in HH:MM or HH:MM:SS form. It returns
// the offset in seconds since midnight and the normalized HH:MM:SS string.
func ParseClock(value string) (int, string, error) {
	raw := strings.TrimSpace(value)
	parts := strings.Split(raw, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, "", fmt.Errorf("time must be HH:MM or HH:MM:SS, got %q", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, "", fmt.Errorf("invalid minute in %q", value)
	}
	second := 0
	if len(parts) == 3 {
		second, err = strconv.Atoi(parts[2])
		if err != nil {
			return 0, "", fmt.Errorf("invalid second in %q", value)
		}
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, "", fmt.Errorf("time out of range: %q", value)
	}

	seconds := hour*3600 + minute*60 + second
	return seconds, fmt.Sprintf("%02d:%02d:%02d", hour, minute, second), nil
}

// WeekdayIndex maps a time to the schedule day convention, Monday=0 .. Sunday=6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
