// Package histcache persists historical bar series. All timestamps are
// stored in UTC; queries re-express results in the caller's zone.
package histcache

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-histdata/pkg/datablock"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// MinTime and MaxTime bound an unbounded cache read: everything the store
// holds for a series falls inside [MinTime, MaxTime].
var (
	MinTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxTime = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// CoverageRow summarizes one cached series.
type CoverageRow struct {
	SecurityType types.SecurityType
	Symbol       string
	DataType     types.DataType
	BarSize      types.BarSize
	Bars         int64
	FirstTime    time.Time
	LastTime     time.Time
}

// Store is the cache adapter the sync engine works against.
type Store interface {
	// Query returns the cached bars of one series with
	// start <= TickerTime <= end, expressed in start's timezone. A series
	// with no cached bars yields an empty block, not an error.
	Query(ctx context.Context, secType types.SecurityType, symbol string,
		dataType types.DataType, barSize types.BarSize, start, end time.Time) (*datablock.Block, error)

	// Insert persists a block's bars under the given security type. Rows
	// whose key already exists are left untouched, so replaying an insert
	// is harmless.
	Insert(ctx context.Context, secType types.SecurityType, block *datablock.Block) error

	// Coverage summarizes every cached series.
	Coverage(ctx context.Context) ([]CoverageRow, error)

	Close() error
}
