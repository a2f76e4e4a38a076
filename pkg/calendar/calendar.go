// Package calendar models exchange trading sessions. A Calendar is a finite
// ascending list of session dates; lookups bisect the list, so an instant's
// position is found without scanning.
package calendar

import (
	"sort"
	"time"

	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// Calendar is an immutable ascending sequence of exchange trading sessions.
type Calendar struct {
	name     string
	zone     *time.Location
	sessions []Date
	ordinals map[Date]int
}

// New builds a calendar from a session list. The list is copied, sorted and
// de-duplicated.
func New(name string, zone *time.Location, sessions []Date) *Calendar {
	sorted := make([]Date, len(sessions))
	copy(sorted, sessions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	deduped := sorted[:0]

	for i, d := range sorted {
		if i == 0 || sorted[i-1].Before(d) {
			deduped = append(deduped, d)
		}
	}

	ordinals := make(map[Date]int, len(deduped))
	for i, d := range deduped {
		ordinals[d] = i
	}

	return &Calendar{
		name:     name,
		zone:     zone,
		sessions: deduped,
		ordinals: ordinals,
	}
}

// Name returns the calendar's name.
func (c *Calendar) Name() string {
	return c.name
}

// Zone returns the exchange timezone the calendar belongs to.
func (c *Calendar) Zone() *time.Location {
	return c.zone
}

// Len returns the number of sessions.
func (c *Calendar) Len() int {
	return len(c.sessions)
}

// SessionAt returns the session with ordinal i.
func (c *Calendar) SessionAt(i int) Date {
	return c.sessions[i]
}

// Index returns the global ordinal of a session date. Gap runs are grouped by
// ordinal adjacency, so a weekend or holiday between two sessions does not
// split a run.
func (c *Calendar) Index(d Date) (int, bool) {
	i, ok := c.ordinals[d]

	return i, ok
}

// Contains reports whether d is a trading session.
func (c *Calendar) Contains(d Date) bool {
	_, ok := c.ordinals[d]

	return ok
}

// ordinalBefore returns the number of sessions whose midnight, read as a wall
// clock in t's location, falls strictly before t. An instant exactly at a
// session's midnight therefore excludes that session.
func (c *Calendar) ordinalBefore(t time.Time) int {
	loc := t.Location()

	return sort.Search(len(c.sessions), func(i int) bool {
		return !c.sessions[i].Time(loc).Before(t)
	})
}

// SessionsBetween returns the sessions s with start <= midnight(s) < end,
// each bound compared in its own location.
func (c *Calendar) SessionsBetween(start, end time.Time) []Date {
	lo := c.ordinalBefore(start)
	hi := c.ordinalBefore(end)

	if lo >= hi {
		return nil
	}

	out := make([]Date, hi-lo)
	copy(out, c.sessions[lo:hi])

	return out
}

// SessionsEndingAt returns the trailing sessions a duration reaches back from
// end. The session count is the duration's whole days, plus one when the
// sub-day remainder crosses the start of end's date, plus one when end is not
// exactly at a day boundary. Only second, minute, hour, day and week
// durations can be counted this way.
func (c *Calendar) SessionsEndingAt(end time.Time, dur types.TimeDur) ([]Date, error) {
	days, rem, ok := dur.DaysAndRemainder()
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"duration %s has no fixed session count", dur)
	}

	dayStart := DateOf(end).Time(end.Location())

	n := days
	if end.Add(-rem).Before(dayStart) {
		n++
	}

	if !end.Equal(dayStart) {
		n++
	}

	hi := c.ordinalBefore(end)

	lo := hi - n
	if lo < 0 {
		lo = 0
	}

	out := make([]Date, hi-lo)
	copy(out, c.sessions[lo:hi])

	return out, nil
}
