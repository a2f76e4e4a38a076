package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-histdata/pkg/errors"
)

// TimeUnit is a canonical duration unit. Lowercase units are sub-day,
// uppercase units are calendar periods.
type TimeUnit string

const (
	UnitSecond TimeUnit = "s"
	UnitMinute TimeUnit = "m"
	UnitHour   TimeUnit = "h"
	UnitDay    TimeUnit = "d"
	UnitWeek   TimeUnit = "W"
	UnitMonth  TimeUnit = "M"
	UnitYear   TimeUnit = "Y"
)

// TimeDur is a duration in the compact "<magnitude><unit>" form used by
// historical data requests, e.g. "5m", "30s", "10d", "1Y".
type TimeDur struct {
	Magnitude int
	Unit      TimeUnit
}

// Longhand unit spellings, matched by substring in this order. The first
// match wins, so "min" must precede "mo" and "hour" must precede "hr".
var timedurKeywords = []struct {
	keyword string
	unit    TimeUnit
}{
	{"sec", UnitSecond},
	{"min", UnitMinute},
	{"hour", UnitHour},
	{"hr", UnitHour},
	{"day", UnitDay},
	{"wk", UnitWeek},
	{"week", UnitWeek},
	{"mo", UnitMonth},
	{"mon", UnitMonth},
	{"yr", UnitYear},
	{"year", UnitYear},
}

// ParseTimeDur parses a free-form duration label into its canonical form.
//
// The magnitude is the first run of digits. The unit comes from the letters:
// a single letter must be one of s, m, h, d, w, y in either case, where w and
// y always mean weeks and years, a lowercase m means minutes and an uppercase
// M means months. Longer spellings are matched case-insensitively against the
// keywords sec, min, hour, hr, day, wk, week, mo, mon, yr and year.
func ParseTimeDur(text string) (TimeDur, error) {
	magnitude, ok := firstNumber(text)
	if !ok {
		return TimeDur{}, errors.Newf(errors.ErrCodeInvalidDurationFormat,
			"no magnitude found in duration %q", text)
	}

	letters := letterRunes(text)

	var unit TimeUnit

	switch {
	case len(letters) == 1:
		c := letters[0]
		switch asciiLower(c) {
		case 's':
			unit = UnitSecond
		case 'm':
			unit = UnitMinute
		case 'h':
			unit = UnitHour
		case 'd':
			unit = UnitDay
		case 'w':
			unit = UnitWeek
		case 'y':
			unit = UnitYear
		default:
			return TimeDur{}, errors.Newf(errors.ErrCodeInvalidDurationFormat,
				"unrecognized unit letter %q in duration %q", string(c), text)
		}

		// A capital M is the month unit; lowercase m stays minutes.
		if c == 'M' {
			unit = UnitMonth
		}
	case len(letters) > 1:
		lowered := strings.ToLower(string(letters))

		found := false

		for _, kw := range timedurKeywords {
			if strings.Contains(lowered, kw.keyword) {
				unit = kw.unit
				found = true

				break
			}
		}

		if !found {
			return TimeDur{}, errors.Newf(errors.ErrCodeInvalidDurationFormat,
				"unrecognized unit %q in duration %q", string(letters), text)
		}
	default:
		return TimeDur{}, errors.Newf(errors.ErrCodeInvalidDurationFormat,
			"no unit found in duration %q", text)
	}

	return TimeDur{Magnitude: magnitude, Unit: unit}, nil
}

// String returns the canonical "<magnitude><unit>" form.
func (d TimeDur) String() string {
	return fmt.Sprintf("%d%s", d.Magnitude, d.Unit)
}

// IsZero reports whether d is the zero value.
func (d TimeDur) IsZero() bool {
	return d.Magnitude == 0 && d.Unit == ""
}

// IsIntraday reports whether the unit is shorter than a day.
func (d TimeDur) IsIntraday() bool {
	return d.Unit == UnitSecond || d.Unit == UnitMinute || d.Unit == UnitHour
}

// IsCalendarPeriod reports whether the unit is a calendar period (weeks,
// months or years), where "one period earlier" is calendar arithmetic rather
// than a fixed number of seconds.
func (d TimeDur) IsCalendarPeriod() bool {
	return d.Unit == UnitWeek || d.Unit == UnitMonth || d.Unit == UnitYear
}

// Duration converts a sub-day TimeDur to a time.Duration. It is only defined
// for second, minute and hour units; other units return false.
func (d TimeDur) Duration() (time.Duration, bool) {
	switch d.Unit {
	case UnitSecond:
		return time.Duration(d.Magnitude) * time.Second, true
	case UnitMinute:
		return time.Duration(d.Magnitude) * time.Minute, true
	case UnitHour:
		return time.Duration(d.Magnitude) * time.Hour, true
	default:
		return 0, false
	}
}

// DaysAndRemainder splits the duration into whole days and a sub-day
// remainder. Weeks count as seven days; month and year units return false
// because their day count depends on the calendar.
func (d TimeDur) DaysAndRemainder() (int, time.Duration, bool) {
	switch d.Unit {
	case UnitDay:
		return d.Magnitude, 0, true
	case UnitWeek:
		return 7 * d.Magnitude, 0, true
	case UnitSecond, UnitMinute, UnitHour:
		dur, _ := d.Duration()
		days := int(dur / (24 * time.Hour))

		return days, dur % (24 * time.Hour), true
	default:
		return 0, 0, false
	}
}

// SubFrom returns t minus this duration. Calendar units step by calendar
// fields in t's location; sub-day units subtract an absolute duration.
func (d TimeDur) SubFrom(t time.Time) time.Time {
	switch d.Unit {
	case UnitYear:
		return t.AddDate(-d.Magnitude, 0, 0)
	case UnitMonth:
		return t.AddDate(0, -d.Magnitude, 0)
	case UnitWeek:
		return t.AddDate(0, 0, -7*d.Magnitude)
	case UnitDay:
		return t.AddDate(0, 0, -d.Magnitude)
	default:
		dur, _ := d.Duration()

		return t.Add(-dur)
	}
}

// ApproxSeconds returns the approximate span of the duration in seconds,
// treating a month as 30 days and a year as 365. Use it only for ordering
// durations against each other, never for date arithmetic.
func (d TimeDur) ApproxSeconds() int64 {
	m := int64(d.Magnitude)

	switch d.Unit {
	case UnitSecond:
		return m
	case UnitMinute:
		return m * 60
	case UnitHour:
		return m * 3600
	case UnitDay:
		return m * 86400
	case UnitWeek:
		return m * 7 * 86400
	case UnitMonth:
		return m * 30 * 86400
	case UnitYear:
		return m * 365 * 86400
	default:
		return 0
	}
}

// firstNumber extracts the first run of ASCII digits from s.
func firstNumber(s string) (int, bool) {
	start := -1

	for i, r := range s {
		isDigit := r >= '0' && r <= '9'
		if isDigit && start < 0 {
			start = i
		}

		if !isDigit && start >= 0 {
			n, err := strconv.Atoi(s[start:i])

			return n, err == nil
		}
	}

	if start >= 0 {
		n, err := strconv.Atoi(s[start:])

		return n, err == nil
	}

	return 0, false
}

// letterRunes collects the ASCII letters of s, in order.
func letterRunes(s string) []rune {
	var letters []rune

	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters = append(letters, r)
		}
	}

	return letters
}

func asciiLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}

	return r
}
