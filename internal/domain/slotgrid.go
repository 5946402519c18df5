package domain

import "time"

// Consultations start on the hour or half hour inside two daily windows,
// morning [08:00, 12:30] and afternoon [14:00, 18:30]. Both window closes
// are valid slot starts. All times are clinic wall-clock.
const (
	morningOpen    = 8 * time.Hour
	morningClose   = 12*time.Hour + 30*time.Minute
	afternoonOpen  = 14 * time.Hour
	afternoonClose = 18*time.Hour + 30*time.Minute
)

// Weekday returns the roster weekday index for t, Sunday=0 .. Saturday=6.
func Weekday(t time.Time) int {
	return int(t.Weekday())
}

// IsWorkingInstant reports whether t is a valid consultation start: on a
// half-hour boundary inside either working window.
func IsWorkingInstant(t time.Time) bool {
	if t.Second() != 0 || t.Nanosecond() != 0 {
		return false
	}
	if m := t.Minute(); m != 0 && m != 30 {
		return false
	}
	c := clockOf(t)
	return (c >= morningOpen && c <= morningClose) || (c >= afternoonOpen && c <= afternoonClose)
}

// NextHalfHour advances t to the next grid instant: minutes below 30 snap
// to :30 of the same hour, otherwise to :00 of the next hour. A result at
// or past 19:00 wraps to the next day's opening, a result before 08:00
// snaps to 08:00, and a result inside the lunch gap [13:00, 14:00) snaps
// to 14:00. The result is always a working instant strictly after t.
func NextHalfHour(t time.Time) time.Time {
	var next time.Time
	if t.Minute() < 30 {
		next = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 30, 0, 0, t.Location())
	} else {
		next = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
	}

	switch c := clockOf(next); {
	case c >= 19*time.Hour:
		return NextDayOpening(next)
	case c < morningOpen:
		return time.Date(next.Year(), next.Month(), next.Day(), 8, 0, 0, 0, next.Location())
	case c >= 13*time.Hour && c < afternoonOpen:
		return time.Date(next.Year(), next.Month(), next.Day(), 14, 0, 0, 0, next.Location())
	}
	return next
}

// NextDayOpening advances to 08:00 on the following calendar day,
// discarding t's time of day.
func NextDayOpening(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 8, 0, 0, 0, t.Location())
}

func clockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}
