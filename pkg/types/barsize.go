package types

// BarSize is the canonical width of one bar, in the same "<magnitude><unit>"
// form as TimeDur, e.g. "5m" or "1d".
type BarSize string

const (
	BarSize1Sec   BarSize = "1s"
	BarSize5Sec   BarSize = "5s"
	BarSize10Sec  BarSize = "10s"
	BarSize15Sec  BarSize = "15s"
	BarSize30Sec  BarSize = "30s"
	BarSize1Min   BarSize = "1m"
	BarSize2Min   BarSize = "2m"
	BarSize3Min   BarSize = "3m"
	BarSize5Min   BarSize = "5m"
	BarSize10Min  BarSize = "10m"
	BarSize15Min  BarSize = "15m"
	BarSize20Min  BarSize = "20m"
	BarSize30Min  BarSize = "30m"
	BarSize1Hour  BarSize = "1h"
	BarSize2Hour  BarSize = "2h"
	BarSize3Hour  BarSize = "3h"
	BarSize4Hour  BarSize = "4h"
	BarSize8Hour  BarSize = "8h"
	BarSize1Day   BarSize = "1d"
	BarSize1Week  BarSize = "1W"
	BarSize1Month BarSize = "1M"
)

// ParseBarSize normalizes a free-form bar size label ("5 mins", "1 day") to
// its canonical form.
func ParseBarSize(text string) (BarSize, error) {
	d, err := ParseTimeDur(text)
	if err != nil {
		return "", err
	}

	return BarSize(d.String()), nil
}

// TimeDur returns the bar size as a parsed duration.
func (b BarSize) TimeDur() (TimeDur, error) {
	return ParseTimeDur(string(b))
}

// Unit returns the duration unit, or the empty unit when b is not parseable.
func (b BarSize) Unit() TimeUnit {
	d, err := ParseTimeDur(string(b))
	if err != nil {
		return ""
	}

	return d.Unit
}

// Magnitude returns the duration magnitude, or zero when b is not parseable.
func (b BarSize) Magnitude() int {
	d, err := ParseTimeDur(string(b))
	if err != nil {
		return 0
	}

	return d.Magnitude
}

// IsIntraday reports whether bars of this size subdivide a trading day.
func (b BarSize) IsIntraday() bool {
	switch b.Unit() {
	case UnitSecond, UnitMinute, UnitHour:
		return true
	default:
		return false
	}
}

// IsDailyOrCoarser reports whether one bar covers at least a full day. Series
// at these sizes are expressed in the exchange timezone rather than UTC.
func (b BarSize) IsDailyOrCoarser() bool {
	switch b.Unit() {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	default:
		return false
	}
}

// Splittable reports whether the gap planner can diff cached coverage at this
// bar size. Second, week and month bars are fetched whole instead.
func (b BarSize) Splittable() bool {
	switch b.Unit() {
	case UnitMinute, UnitHour, UnitDay, UnitYear:
		return true
	default:
		return false
	}
}

func (b BarSize) String() string {
	return string(b)
}
