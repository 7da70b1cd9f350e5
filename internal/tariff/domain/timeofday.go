package tariff

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a clock time normalized to seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into a TimeOfDay. The
// whole string must be consumed; trailing text is rejected.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, ErrInvalidTimeOfDay
	}

	fields := [3]int{}
	for i, part := range parts {
		n, err := parseClockField(part)
		if err != nil {
			return 0, err
		}
		fields[i] = n
	}

	hour, minute, second := fields[0], fields[1], fields[2]
	if hour > 23 || minute > 59 || second > 59 {
		return 0, ErrInvalidTimeOfDay
	}
	return TimeOfDay(hour*3600 + minute*60 + second), nil
}

func parseClockField(part string) (int, error) {
	if len(part) == 0 || len(part) > 2 {
		return 0, ErrInvalidTimeOfDay
	}
	n := 0
	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, ErrInvalidTimeOfDay
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

// TimeOfDayOf extracts the clock time of the given instant.
// The caller chooses the location; tariff times are local to the site.
func TimeOfDayOf(at time.Time) TimeOfDay {
	hour, minute, second := at.Clock()
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// String renders the time as HH:MM:SS.
func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// Valid reports whether the time falls within a single day.
func (t TimeOfDay) Valid() bool { return t >= 0 && t < secondsPerDay }
