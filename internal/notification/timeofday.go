package notification

import (
	"fmt"
	"time"
)

// TimeOfDay is a local wall-clock time with minute precision and no date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// At builds a TimeOfDay. Callers pass values in range; ParseTimeOfDay
// validates untrusted input.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// ParseTimeOfDay parses "HH:MM" (24h clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: time of day %q must be HH:MM", ErrInvalidInput, s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// TimeOfDayOf extracts the wall-clock part of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t.Minutes()) * time.Minute
}

// On returns the instant at this wall-clock time on the calendar day of day.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MarshalText encodes as "HH:MM".
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes "HH:MM".
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MealPeriod names the meal a reminder at t refers to.
func MealPeriod(t TimeOfDay) string {
	switch {
	case t.Hour < 11:
		return "breakfast"
	case t.Hour < 16:
		return "lunch"
	default:
		return "dinner"
	}
}
