package histdata

import (
	"time"

	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// stepCeilings caps how much history one provider call may cover at each bar
// size. Broker APIs reject requests whose duration is out of proportion to
// the bar width, so longer windows are fetched as a sequence of chunks.
var stepCeilings = map[types.BarSize]types.TimeDur{
	types.BarSize1Sec:   {Magnitude: 30, Unit: types.UnitMinute},
	types.BarSize5Sec:   {Magnitude: 1, Unit: types.UnitHour},
	types.BarSize10Sec:  {Magnitude: 4, Unit: types.UnitHour},
	types.BarSize15Sec:  {Magnitude: 4, Unit: types.UnitHour},
	types.BarSize30Sec:  {Magnitude: 8, Unit: types.UnitHour},
	types.BarSize1Min:   {Magnitude: 1, Unit: types.UnitDay},
	types.BarSize2Min:   {Magnitude: 2, Unit: types.UnitDay},
	types.BarSize3Min:   {Magnitude: 1, Unit: types.UnitWeek},
	types.BarSize5Min:   {Magnitude: 1, Unit: types.UnitWeek},
	types.BarSize10Min:  {Magnitude: 1, Unit: types.UnitWeek},
	types.BarSize15Min:  {Magnitude: 1, Unit: types.UnitWeek},
	types.BarSize20Min:  {Magnitude: 1, Unit: types.UnitWeek},
	types.BarSize30Min:  {Magnitude: 1, Unit: types.UnitMonth},
	types.BarSize1Hour:  {Magnitude: 1, Unit: types.UnitMonth},
	types.BarSize2Hour:  {Magnitude: 1, Unit: types.UnitMonth},
	types.BarSize3Hour:  {Magnitude: 1, Unit: types.UnitMonth},
	types.BarSize4Hour:  {Magnitude: 1, Unit: types.UnitMonth},
	types.BarSize8Hour:  {Magnitude: 1, Unit: types.UnitMonth},
	types.BarSize1Day:   {Magnitude: 1, Unit: types.UnitYear},
	types.BarSize1Week:  {Magnitude: 1, Unit: types.UnitYear},
	types.BarSize1Month: {Magnitude: 1, Unit: types.UnitYear},
}

// stepCeiling returns the widest window one provider call may cover at the
// given bar size.
func stepCeiling(barSize types.BarSize) (types.TimeDur, error) {
	step, ok := stepCeilings[barSize]
	if !ok {
		return types.TimeDur{}, errors.Newf(errors.ErrCodeUnsupportedBarSize,
			"no fetch step defined for %s bars", barSize)
	}

	return step, nil
}

// splitByStep cuts a fetch window into sequential chunks no wider than the
// bar size's step ceiling, oldest first. Adjacent chunks share their
// boundary instant; a bar landing exactly on it is fetched twice and
// deduplicated by key when the chunks are combined.
func splitByStep(start, end time.Time, barSize types.BarSize) ([]TimeRange, error) {
	step, err := stepCeiling(barSize)
	if err != nil {
		return nil, err
	}

	if !start.Before(end) {
		return []TimeRange{{Start: start, End: end}}, nil
	}

	var windows []TimeRange

	for cur := start; cur.Before(end); {
		next := addStep(cur, step)
		if next.After(end) {
			next = end
		}

		windows = append(windows, TimeRange{Start: cur, End: next})
		cur = next
	}

	return windows, nil
}

// addStep advances t by one step. Calendar units step by calendar fields in
// t's location, so a one-month step from January 15 lands on February 15
// whatever the month lengths are.
func addStep(t time.Time, step types.TimeDur) time.Time {
	switch step.Unit {
	case types.UnitYear:
		return t.AddDate(step.Magnitude, 0, 0)
	case types.UnitMonth:
		return t.AddDate(0, step.Magnitude, 0)
	case types.UnitWeek:
		return t.AddDate(0, 0, 7*step.Magnitude)
	case types.UnitDay:
		return t.AddDate(0, 0, step.Magnitude)
	default:
		dur, _ := step.Duration()

		return t.Add(dur)
	}
}
