package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Bar is one OHLCV row of a historical series. Value cells are optional: a
// None cell is a value the provider did not report, and merging never lets a
// None overwrite a reported value.
type Bar struct {
	Symbol   string
	DataType DataType
	BarSize  BarSize
	Time     time.Time
	Open     optional.Option[decimal.Decimal]
	High     optional.Option[decimal.Decimal]
	Low      optional.Option[decimal.Decimal]
	Close    optional.Option[decimal.Decimal]
	Volume   optional.Option[int64]
	BarCount optional.Option[int64]
	Average  optional.Option[decimal.Decimal]
}

// BarKey is the identity of a bar. Timestamps are stored as absolute instants
// so the key never changes when a series is re-expressed in another timezone.
type BarKey struct {
	Symbol   string
	DataType DataType
	BarSize  BarSize
	UnixNano int64
}

// Key returns the bar's identity.
func (b Bar) Key() BarKey {
	return BarKey{
		Symbol:   b.Symbol,
		DataType: b.DataType,
		BarSize:  b.BarSize,
		UnixNano: b.Time.UnixNano(),
	}
}

// Less orders keys by symbol, data type, bar size, then time.
func (k BarKey) Less(other BarKey) bool {
	if k.Symbol != other.Symbol {
		return k.Symbol < other.Symbol
	}

	if k.DataType != other.DataType {
		return k.DataType < other.DataType
	}

	if k.BarSize != other.BarSize {
		return k.BarSize < other.BarSize
	}

	return k.UnixNano < other.UnixNano
}

// Time returns the key's timestamp in the given location.
func (k BarKey) Time(loc *time.Location) time.Time {
	return time.Unix(0, k.UnixNano).In(loc)
}

// MergeFrom overlays the incoming bar's reported cells onto b and returns the
// result. Cells the incoming bar does not report keep their current value.
func (b Bar) MergeFrom(in Bar) Bar {
	if in.Open.IsSome() {
		b.Open = in.Open
	}

	if in.High.IsSome() {
		b.High = in.High
	}

	if in.Low.IsSome() {
		b.Low = in.Low
	}

	if in.Close.IsSome() {
		b.Close = in.Close
	}

	if in.Volume.IsSome() {
		b.Volume = in.Volume
	}

	if in.BarCount.IsSome() {
		b.BarCount = in.BarCount
	}

	if in.Average.IsSome() {
		b.Average = in.Average
	}

	return b
}

// Equal reports whether two bars carry the same key and the same cells.
// Decimal cells compare by numeric value and times by instant, so the same
// bar expressed in two timezones is still equal.
func (b Bar) Equal(other Bar) bool {
	if b.Symbol != other.Symbol || b.DataType != other.DataType || b.BarSize != other.BarSize {
		return false
	}

	if !b.Time.Equal(other.Time) {
		return false
	}

	return decimalCellEqual(b.Open, other.Open) &&
		decimalCellEqual(b.High, other.High) &&
		decimalCellEqual(b.Low, other.Low) &&
		decimalCellEqual(b.Close, other.Close) &&
		intCellEqual(b.Volume, other.Volume) &&
		intCellEqual(b.BarCount, other.BarCount) &&
		decimalCellEqual(b.Average, other.Average)
}

func decimalCellEqual(a, b optional.Option[decimal.Decimal]) bool {
	if a.IsSome() != b.IsSome() {
		return false
	}

	if a.IsNone() {
		return true
	}

	return a.Unwrap().Equal(b.Unwrap())
}

func intCellEqual(a, b optional.Option[int64]) bool {
	if a.IsSome() != b.IsSome() {
		return false
	}

	if a.IsNone() {
		return true
	}

	return a.Unwrap() == b.Unwrap()
}
