package calendar

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time-of-day or timezone attached. Trading
// sessions are identified by Date; an instant only acquires a session once a
// timezone says which wall-clock date it falls on.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the wall-clock date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()

	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight at the start of the date in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// DayEnd returns the last representable instant of the date in loc.
func (d Date) DayEnd(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
}

// Before reports whether d falls before other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}

	if d.Month != other.Month {
		return d.Month < other.Month
	}

	return d.Day < other.Day
}

// After reports whether d falls after other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// Next returns the following calendar date.
func (d Date) Next() Date {
	return d.AddDays(1)
}

// AddDays returns the date n days later, negative n going backwards.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// Weekday returns the day of week the date falls on.
func (d Date) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
