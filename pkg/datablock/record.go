package datablock

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// Record is one loosely typed ingestion row, as a provider or cache reader
// hands it over. Keys are matched case-insensitively against the canonical
// column names and their aliases; unknown keys are ignored.
type Record map[string]any

// Canonical column names. The four key columns identify a bar, the rest are
// value cells.
const (
	colSymbol     = "Symbol"
	colDataType   = "DataType"
	colBarSize    = "BarSize"
	colTickerTime = "TickerTime"
	colOpen       = "opening"
	colHigh       = "high"
	colLow        = "low"
	colClose      = "closing"
	colVolume     = "volume"
	colBarCount   = "barcount"
	colAverage    = "average"
)

// Accepted spellings for each column, after stripping and lowercasing.
var columnAliases = map[string]string{
	"symbol":     colSymbol,
	"symb":       colSymbol,
	"sym":        colSymbol,
	"datatype":   colDataType,
	"barsize":    colBarSize,
	"bar":        colBarSize,
	"tickertime": colTickerTime,
	"ticktime":   colTickerTime,
	"date":       colTickerTime,
	"time":       colTickerTime,
	"datetime":   colTickerTime,
	"opening":    colOpen,
	"open":       colOpen,
	"o":          colOpen,
	"high":       colHigh,
	"h":          colHigh,
	"low":        colLow,
	"l":          colLow,
	"closing":    colClose,
	"close":      colClose,
	"c":          colClose,
	"volume":     colVolume,
	"vol":        colVolume,
	"v":          colVolume,
	"barcount":   colBarCount,
	"barcnt":     colBarCount,
	"average":    colAverage,
	"avg":        colAverage,
}

// Timestamp layouts tried in order for string timestamps that carry no
// offset. Offset-less strings need a timezone from UpdateOptions.
var naiveTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// normalize maps a record's keys onto canonical column names. Later aliases
// of the same column overwrite earlier ones.
func (r Record) normalize() map[string]any {
	out := make(map[string]any, len(r))

	for key, value := range r {
		if col, ok := columnAliases[strings.ToLower(strings.TrimSpace(key))]; ok {
			out[col] = value
		}
	}

	return out
}

// buildBar turns one normalized record into a Bar, filling absent key
// columns from opts.
func buildBar(rec map[string]any, opts UpdateOptions) (types.Bar, error) {
	var bar types.Bar

	symbol, err := keyString(rec, colSymbol, opts.Symbol)
	if err != nil {
		return bar, err
	}

	dataType, err := keyString(rec, colDataType, string(opts.DataType))
	if err != nil {
		return bar, err
	}

	rawBarSize, err := keyString(rec, colBarSize, string(opts.BarSize))
	if err != nil {
		return bar, err
	}

	barSize, err := types.ParseBarSize(rawBarSize)
	if err != nil {
		return bar, err
	}

	tickerTime, ok := rec[colTickerTime]
	if !ok {
		return bar, errors.Newf(errors.ErrCodeMissingKeyColumn,
			"record has no %s column and none can be supplied", colTickerTime)
	}

	ts, err := coerceTime(tickerTime, opts.TZ)
	if err != nil {
		return bar, err
	}

	bar = types.Bar{
		Symbol:   symbol,
		DataType: types.DataType(dataType),
		BarSize:  barSize,
		Time:     ts,
	}

	if bar.Open, err = coerceDecimal(rec, colOpen); err != nil {
		return bar, err
	}

	if bar.High, err = coerceDecimal(rec, colHigh); err != nil {
		return bar, err
	}

	if bar.Low, err = coerceDecimal(rec, colLow); err != nil {
		return bar, err
	}

	if bar.Close, err = coerceDecimal(rec, colClose); err != nil {
		return bar, err
	}

	if bar.Volume, err = coerceCount(rec, colVolume); err != nil {
		return bar, err
	}

	if bar.BarCount, err = coerceCount(rec, colBarCount); err != nil {
		return bar, err
	}

	if bar.Average, err = coerceDecimal(rec, colAverage); err != nil {
		return bar, err
	}

	return bar, nil
}

func keyString(rec map[string]any, col, fallback string) (string, error) {
	if v, ok := rec[col]; ok {
		switch s := v.(type) {
		case string:
			return s, nil
		case fmt.Stringer:
			return s.String(), nil
		default:
			return fmt.Sprintf("%v", v), nil
		}
	}

	if fallback == "" {
		return "", errors.Newf(errors.ErrCodeMissingKeyColumn,
			"record has no %s column and no value was supplied", col)
	}

	return fallback, nil
}

// coerceTime reads a timestamp cell. Epoch numbers count seconds and strings
// without an offset are read as wall clock time in tz.
func coerceTime(v any, tz *time.Location) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case int:
		return time.Unix(int64(t), 0).UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case float64:
		sec, frac := math.Modf(t)

		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, nil
		}

		for _, layout := range naiveTimeLayouts {
			if _, err := time.Parse(layout, t); err != nil {
				continue
			}

			if tz == nil {
				return time.Time{}, errors.Newf(errors.ErrCodeMissingTimezone,
					"timestamp %q carries no offset and no timezone was supplied", t)
			}

			parsed, err := time.ParseInLocation(layout, t, tz)
			if err != nil {
				return time.Time{}, errors.Wrapf(errors.ErrCodeInvalidTimestamp, err,
					"cannot read timestamp %q", t)
			}

			return parsed, nil
		}

		return time.Time{}, errors.Newf(errors.ErrCodeInvalidTimestamp,
			"cannot read timestamp %q", t)
	default:
		return time.Time{}, errors.Newf(errors.ErrCodeInvalidTimestamp,
			"cannot read timestamp of type %T", v)
	}
}

// coerceDecimal reads a price cell. Absent cells, nils, NaNs and empty
// strings are None.
func coerceDecimal(rec map[string]any, col string) (optional.Option[decimal.Decimal], error) {
	v, ok := rec[col]
	if !ok || v == nil {
		return optional.None[decimal.Decimal](), nil
	}

	switch n := v.(type) {
	case decimal.Decimal:
		return optional.Some(n), nil
	case float64:
		if math.IsNaN(n) {
			return optional.None[decimal.Decimal](), nil
		}

		return optional.Some(decimal.NewFromFloat(n)), nil
	case float32:
		if math.IsNaN(float64(n)) {
			return optional.None[decimal.Decimal](), nil
		}

		return optional.Some(decimal.NewFromFloat32(n)), nil
	case int:
		return optional.Some(decimal.NewFromInt(int64(n))), nil
	case int64:
		return optional.Some(decimal.NewFromInt(n)), nil
	case string:
		if n == "" {
			return optional.None[decimal.Decimal](), nil
		}

		d, err := decimal.NewFromString(n)
		if err != nil {
			return optional.None[decimal.Decimal](), errors.Wrapf(errors.ErrCodeInvalidParameter, err,
				"cannot read %s value %q", col, n)
		}

		return optional.Some(d), nil
	default:
		return optional.None[decimal.Decimal](), errors.Newf(errors.ErrCodeInvalidParameter,
			"cannot read %s value of type %T", col, v)
	}
}

// coerceCount reads a volume or bar count cell. Negative values are the wire
// sentinel for a missing cell and come back as None.
func coerceCount(rec map[string]any, col string) (optional.Option[int64], error) {
	v, ok := rec[col]
	if !ok || v == nil {
		return optional.None[int64](), nil
	}

	var n int64

	switch c := v.(type) {
	case int:
		n = int64(c)
	case int64:
		n = c
	case int32:
		n = int64(c)
	case float64:
		if math.IsNaN(c) {
			return optional.None[int64](), nil
		}

		n = int64(c)
	case string:
		if c == "" {
			return optional.None[int64](), nil
		}

		f, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return optional.None[int64](), errors.Wrapf(errors.ErrCodeInvalidParameter, err,
				"cannot read %s value %q", col, c)
		}

		n = int64(f)
	default:
		return optional.None[int64](), errors.Newf(errors.ErrCodeInvalidParameter,
			"cannot read %s value of type %T", col, v)
	}

	if n < 0 {
		return optional.None[int64](), nil
	}

	return optional.Some(n), nil
}
