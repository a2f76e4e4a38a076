package calendar

import (
	"time"

	"github.com/rxtech-lab/argo-histdata/pkg/errors"
)

const (
	nyseFirstYear = 1990
	nyseLastYear  = 2030
)

// One-off full-day closures: presidential funerals, September 2001 and
// Hurricane Sandy.
var nyseSpecialClosures = map[Date]bool{
	{1994, time.April, 27}:     true,
	{2001, time.September, 11}: true,
	{2001, time.September, 12}: true,
	{2001, time.September, 13}: true,
	{2001, time.September, 14}: true,
	{2004, time.June, 11}:      true,
	{2007, time.January, 2}:    true,
	{2012, time.October, 29}:   true,
	{2012, time.October, 30}:   true,
	{2018, time.December, 5}:   true,
	{2025, time.January, 9}:    true,
}

// NewNYSE returns the NYSE trading calendar covering 1990 through 2030,
// generated from the exchange's holiday rules. It is used as the reference
// session calendar for every exchange.
func NewNYSE() (*Calendar, error) {
	zone, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration,
			"failed to load exchange timezone", err)
	}

	var sessions []Date

	for year := nyseFirstYear; year <= nyseLastYear; year++ {
		holidays := nyseHolidays(year)

		for d := (Date{year, time.January, 1}); d.Year == year; d = d.Next() {
			wd := d.Weekday()
			if wd == time.Saturday || wd == time.Sunday {
				continue
			}

			if holidays[d] || nyseSpecialClosures[d] {
				continue
			}

			sessions = append(sessions, d)
		}
	}

	return New("NYSE", zone, sessions), nil
}

func nyseHolidays(year int) map[Date]bool {
	holidays := make(map[Date]bool)
	add := func(d Date) { holidays[d] = true }

	// New Year's Day. A Sunday January 1 moves to Monday; a Saturday one is
	// not observed at all.
	newYears := Date{year, time.January, 1}
	switch newYears.Weekday() {
	case time.Saturday:
	case time.Sunday:
		add(Date{year, time.January, 2})
	default:
		add(newYears)
	}

	// Martin Luther King Jr. Day, observed since 1998.
	if year >= 1998 {
		add(nthWeekday(year, time.January, time.Monday, 3))
	}

	// Washington's Birthday.
	add(nthWeekday(year, time.February, time.Monday, 3))

	// Good Friday.
	add(easterSunday(year).AddDays(-2))

	// Memorial Day.
	add(lastWeekday(year, time.May, time.Monday))

	// Juneteenth, observed since 2022.
	if year >= 2022 {
		add(nearestWeekday(Date{year, time.June, 19}))
	}

	// Independence Day.
	add(nearestWeekday(Date{year, time.July, 4}))

	// Labor Day.
	add(nthWeekday(year, time.September, time.Monday, 1))

	// Thanksgiving.
	add(nthWeekday(year, time.November, time.Thursday, 4))

	// Christmas.
	add(nearestWeekday(Date{year, time.December, 25}))

	return holidays
}

// easterSunday computes Gregorian Easter with the anonymous algorithm.
func easterSunday(year int) Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451

	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	return Date{Year: year, Month: time.Month(month), Day: day}
}

// nthWeekday returns the nth given weekday of a month.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) Date {
	first := Date{year, month, 1}
	offset := (int(wd) - int(first.Weekday()) + 7) % 7

	return first.AddDays(offset + 7*(n-1))
}

// lastWeekday returns the last given weekday of a month.
func lastWeekday(year int, month time.Month, wd time.Weekday) Date {
	last := DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC))
	offset := (int(last.Weekday()) - int(wd) + 7) % 7

	return last.AddDays(-offset)
}

// nearestWeekday shifts a weekend holiday to the adjacent weekday: Saturday
// observes on Friday, Sunday on Monday.
func nearestWeekday(d Date) Date {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDays(-1)
	case time.Sunday:
		return d.AddDays(1)
	default:
		return d
	}
}
