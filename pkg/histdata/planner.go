package histdata

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-histdata/internal/logger"
	"github.com/rxtech-lab/argo-histdata/pkg/calendar"
	"github.com/rxtech-lab/argo-histdata/pkg/datablock"
	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// TimeRange is a closed interval of instants.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// SubRequest is one provider download the planner scheduled to fill a gap.
// The fetch bounds say what to ask the provider for; InsertLimit clips what
// gets persisted, so a provider over-delivering near the window edges cannot
// write bars outside the gap being filled.
type SubRequest struct {
	Request     Request
	FetchStart  time.Time
	FetchEnd    time.Time
	InsertLimit TimeRange
}

// plan is everything one sync call has to do: the downloads that fill the
// cache's gaps and the required window the final result is trimmed to.
type plan struct {
	subs  []SubRequest
	start time.Time
	end   time.Time
}

// requestWindow resolves the instants a request covers and the trading
// sessions inside them, in the exchange zone.
//
// A request with an explicit Start spans [Start, End] as given. Otherwise the
// window reaches back from End by Duration: calendar-period durations
// subtract calendar fields, day durations cover whole trading sessions from
// the first session's midnight, and a duration that is intraday like the
// bars themselves keeps the window inside the end date's session.
func requestWindow(req Request, cal *calendar.Calendar, xzone *time.Location, log *logger.Logger) (time.Time, time.Time, []calendar.Date, error) {
	end := req.End.In(xzone)

	if !req.Start.IsZero() {
		start := req.Start.In(xzone)

		return start, end, cal.SessionsBetween(start, end), nil
	}

	if req.Duration.IsCalendarPeriod() {
		start := req.Duration.SubFrom(end)

		return start, end, cal.SessionsBetween(start, end), nil
	}

	sessions, err := cal.SessionsEndingAt(end, req.Duration)
	if err != nil {
		return time.Time{}, time.Time{}, nil, err
	}

	if len(sessions) == 0 {
		return time.Time{}, time.Time{}, nil, errors.Newf(errors.ErrCodeInvalidTimeRange,
			"no trading sessions within %s ending at %s",
			req.Duration, end.Format(time.RFC3339))
	}

	if req.Duration.Unit == types.UnitDay || req.BarSize.IsDailyOrCoarser() {
		return sessions[0].Time(xzone), end, sessions, nil
	}

	// Duration and bar size are both intraday, so the window must not reach
	// past the start of the end date's session.
	dayStart := sessions[len(sessions)-1].Time(xzone)
	start := req.Duration.SubFrom(end)

	if start.Before(dayStart) {
		log.Warn("duration crosses the session start, narrowing the window to intraday",
			zap.String("symbol", req.Symbol),
			zap.String("duration", req.Duration.String()),
			zap.String("bar_size", req.BarSize.String()),
			zap.Time("start", dayStart),
			zap.Time("end", end))

		start = dayStart
	}

	return start, end, sessions, nil
}

// planGaps diffs cached coverage against the request window and schedules one
// download per missing stretch. Daily-or-coarser bars are fetched in whole
// calendar years, intraday bars in runs of consecutive trading sessions. The
// cached block must already be expressed in the exchange zone, since gaps
// are decided by the wall-clock dates its bars fall on.
func planGaps(req Request, cal *calendar.Calendar, xzone *time.Location, cached *datablock.Block, now time.Time, log *logger.Logger) (plan, error) {
	if !req.BarSize.Splittable() {
		return plan{}, errors.Newf(errors.ErrCodeUnsupportedGranularity,
			"cannot plan gaps for %s bars", req.BarSize)
	}

	start, end, sessions, err := requestWindow(req, cal, xzone, log)
	if err != nil {
		return plan{}, err
	}

	p := plan{start: start, end: end}
	cachedDates := cached.SessionDates()

	if req.BarSize.IsDailyOrCoarser() {
		required := requiredYears(req, start, end, sessions)
		p.subs = yearSubRequests(req, xzone, required, cachedDates, now.In(xzone).Year())
	} else {
		p.subs = sessionSubRequests(req, cal, xzone, sessions, cachedDates)
	}

	return p, nil
}

// requiredYears lists the calendar years the request spans. A day-unit
// duration counts the years its trading sessions fall in; every other window
// form spans all years between the bounds.
func requiredYears(req Request, start, end time.Time, sessions []calendar.Date) []int {
	years := make(map[int]bool)

	if req.Start.IsZero() && req.Duration.Unit == types.UnitDay {
		for _, s := range sessions {
			years[s.Year] = true
		}
	} else {
		for yr := start.Year(); yr <= end.Year(); yr++ {
			years[yr] = true
		}
	}

	out := make([]int, 0, len(years))
	for yr := range years {
		out = append(out, yr)
	}

	sort.Ints(out)

	return out
}

// yearSubRequests schedules one whole-year download per required year the
// cache is missing. The still-accruing current year never counts as cached,
// so every sync refreshes it. Cached years outside the required set are
// ignored rather than diffed, since the cache read is unbounded.
func yearSubRequests(req Request, xzone *time.Location, required []int, cachedDates []calendar.Date, currentYear int) []SubRequest {
	requiredSet := make(map[int]bool, len(required))
	for _, yr := range required {
		requiredSet[yr] = true
	}

	cachedYears := make(map[int]bool)

	for _, d := range cachedDates {
		if requiredSet[d.Year] && d.Year != currentYear {
			cachedYears[d.Year] = true
		}
	}

	var subs []SubRequest

	for _, yr := range required {
		if cachedYears[yr] {
			continue
		}

		window := TimeRange{
			Start: calendar.Date{Year: yr, Month: time.January, Day: 1}.Time(xzone),
			End:   calendar.Date{Year: yr, Month: time.December, Day: 31}.DayEnd(xzone),
		}

		sub := req
		sub.Duration = types.TimeDur{Magnitude: 1, Unit: types.UnitYear}
		sub.Start = time.Time{}
		sub.End = window.End

		subs = append(subs, SubRequest{
			Request:     sub,
			FetchStart:  window.Start,
			FetchEnd:    window.End,
			InsertLimit: window,
		})
	}

	return subs
}

// sessionSubRequests schedules one download per run of consecutive missing
// sessions. Runs group by session ordinal, so a weekend or holiday between
// two missing days does not split them.
func sessionSubRequests(req Request, cal *calendar.Calendar, xzone *time.Location, sessions []calendar.Date, cachedDates []calendar.Date) []SubRequest {
	cachedSet := make(map[calendar.Date]bool, len(cachedDates))
	for _, d := range cachedDates {
		cachedSet[d] = true
	}

	var gaps []calendar.Date

	for _, s := range sessions {
		if !cachedSet[s] {
			gaps = append(gaps, s)
		}
	}

	var (
		subs     []SubRequest
		runStart int
	)

	for i := range gaps {
		if i < len(gaps)-1 {
			cur, _ := cal.Index(gaps[i])
			next, _ := cal.Index(gaps[i+1])

			if next == cur+1 {
				continue
			}
		}

		first, last := gaps[runStart], gaps[i]
		window := TimeRange{Start: first.Time(xzone), End: last.DayEnd(xzone)}

		sub := req
		sub.Duration = types.TimeDur{Magnitude: i - runStart + 1, Unit: types.UnitDay}
		sub.Start = time.Time{}
		sub.End = window.End

		subs = append(subs, SubRequest{
			Request:     sub,
			FetchStart:  window.Start,
			FetchEnd:    window.End,
			InsertLimit: window,
		})

		runStart = i + 1
	}

	return subs
}
