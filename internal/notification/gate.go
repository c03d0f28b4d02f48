package notification

import "time"

// IsAllowed decides whether a notification of type t may be generated for
// the owner of prefs on the calendar day of today.
//
// Unknown types are allowed. This keeps new categories working before
// preferences learn about them, at the cost of bypassing user settings for
// a corrupted type value.
func IsAllowed(prefs *Preferences, t Type, today time.Time) bool {
	enabled, known := prefs.Enabled(t)
	if !known {
		return true
	}
	if !enabled {
		return false
	}

	if IsWeekend(today) && !prefs.SendNotificationsOnWeekends {
		return false
	}
	return true
}

// IsWeekend reports whether day falls on Saturday or Sunday in its location.
func IsWeekend(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	default:
		return false
	}
}
