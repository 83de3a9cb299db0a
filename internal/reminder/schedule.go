// Package reminder nudges the user to take a reading once a month.
package reminder

import "time"

const (
	DefaultDay  = 14
	DefaultHour = 12
)

// NextReminderDate returns the reminder time of now's month when it is still
// ahead of now, otherwise the one of the following month. Days past the end
// of a month fall on its last day.
func NextReminderDate(now time.Time, day, hour int) time.Time {
	day, hour = normalize(day, hour)
	candidate := reminderIn(now.Year(), now.Month(), day, hour, now.Location())
	if now.Before(candidate) {
		return candidate
	}
	return reminderIn(now.Year(), now.Month()+1, day, hour, now.Location())
}

// PreviousReminderDate returns the latest reminder time at or before now.
func PreviousReminderDate(now time.Time, day, hour int) time.Time {
	day, hour = normalize(day, hour)
	candidate := reminderIn(now.Year(), now.Month(), day, hour, now.Location())
	if !candidate.After(now) {
		return candidate
	}
	return reminderIn(now.Year(), now.Month()-1, day, hour, now.Location())
}

func reminderIn(year int, month time.Month, day, hour int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, 0, 0, 0, loc)
}

func normalize(day, hour int) (int, int) {
	if day < 1 || day > 31 {
		day = DefaultDay
	}
	if hour < 0 || hour > 23 {
		hour = DefaultHour
	}
	return day, hour
}
