// Package datablock holds historical bar series as ordered, unique-keyed
// collections that can absorb loosely typed rows, merge cell-wise and be
// re-expressed in another timezone without disturbing bar identity.
package datablock

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-histdata/pkg/calendar"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// Block is an ordered collection of bars with unique keys and a single
// display timezone. Keys are absolute instants, so converting a block to
// another timezone never reorders or re-identifies its bars.
type Block struct {
	rows map[types.BarKey]types.Bar
	keys []types.BarKey
	loc  *time.Location
}

// UpdateOptions supplies key column values for records that do not carry
// their own, and the timezone used to read offset-less timestamps.
type UpdateOptions struct {
	Symbol   string
	DataType types.DataType
	BarSize  types.BarSize
	TZ       *time.Location
}

// New returns an empty block. An empty block has no timezone until rows
// arrive.
func New() *Block {
	return &Block{
		rows: make(map[types.BarKey]types.Bar),
	}
}

// Update absorbs a batch of records. Missing key columns are filled from
// opts, bar sizes are normalized, and rows landing on an existing key
// overwrite only the cells they actually report. An empty batch is a no-op.
func (b *Block) Update(recs []Record, opts UpdateOptions) error {
	if len(recs) == 0 {
		return nil
	}

	bars := make([]types.Bar, 0, len(recs))

	for _, rec := range recs {
		bar, err := buildBar(rec.normalize(), opts)
		if err != nil {
			return err
		}

		bars = append(bars, bar)
	}

	targetLoc := b.loc
	if len(b.keys) == 0 {
		if opts.TZ != nil {
			targetLoc = opts.TZ
		} else {
			targetLoc = bars[0].Time.Location()
		}
	}

	b.loc = targetLoc
	b.mergeBars(bars)

	return nil
}

// Combine merges another block's bars into this one, cell-wise. The incoming
// bars are re-expressed in this block's timezone; an empty receiver adopts
// the other block's timezone instead.
func (b *Block) Combine(other *Block) {
	if other == nil || other.Len() == 0 {
		return
	}

	if len(b.keys) == 0 {
		b.loc = other.loc
	}

	b.mergeBars(other.Bars())
}

func (b *Block) mergeBars(bars []types.Bar) {
	if b.rows == nil {
		b.rows = make(map[types.BarKey]types.Bar)
	}

	added := false

	for _, bar := range bars {
		bar.Time = bar.Time.In(b.loc)

		key := bar.Key()
		if existing, ok := b.rows[key]; ok {
			b.rows[key] = existing.MergeFrom(bar)
		} else {
			b.rows[key] = bar
			b.keys = append(b.keys, key)
			added = true
		}
	}

	if added {
		sort.Slice(b.keys, func(i, j int) bool { return b.keys[i].Less(b.keys[j]) })
	}
}

// Timezone returns the block's display timezone, or nil when the block is
// empty.
func (b *Block) Timezone() *time.Location {
	if b.Len() == 0 {
		return nil
	}

	return b.loc
}

// SetTimezone re-expresses every bar in loc. The represented instants do not
// change. On an empty block this is a no-op.
func (b *Block) SetTimezone(loc *time.Location) {
	if b.Len() == 0 || loc == nil {
		return
	}

	b.loc = loc

	for key, bar := range b.rows {
		bar.Time = bar.Time.In(loc)
		b.rows[key] = bar
	}
}

// Slice returns a new block holding the bars with start <= t <= end. The
// bounds are instants, so their zones only matter for what they denote.
func (b *Block) Slice(start, end time.Time) *Block {
	out := &Block{
		rows: make(map[types.BarKey]types.Bar),
		loc:  b.loc,
	}

	lo, hi := start.UnixNano(), end.UnixNano()

	for _, key := range b.keys {
		if key.UnixNano < lo || key.UnixNano > hi {
			continue
		}

		out.keys = append(out.keys, key)
		out.rows[key] = b.rows[key]
	}

	return out
}

// Bars returns the block's bars in ascending key order.
func (b *Block) Bars() []types.Bar {
	out := make([]types.Bar, len(b.keys))
	for i, key := range b.keys {
		out[i] = b.rows[key]
	}

	return out
}

// Len returns the number of bars.
func (b *Block) Len() int {
	return len(b.keys)
}

// Empty reports whether the block has no bars.
func (b *Block) Empty() bool {
	return b.Len() == 0
}

// First returns the earliest bar, if any.
func (b *Block) First() optional.Option[types.Bar] {
	if b.Len() == 0 {
		return optional.None[types.Bar]()
	}

	return optional.Some(b.rows[b.keys[0]])
}

// Last returns the latest bar, if any.
func (b *Block) Last() optional.Option[types.Bar] {
	if b.Len() == 0 {
		return optional.None[types.Bar]()
	}

	return optional.Some(b.rows[b.keys[len(b.keys)-1]])
}

// Equal reports whether two blocks hold the same keys with the same cells.
// Display timezones are not compared; the same series expressed in two zones
// is equal.
func (b *Block) Equal(other *Block) bool {
	if other == nil || b.Len() != other.Len() {
		return false
	}

	for i, key := range b.keys {
		if key != other.keys[i] {
			return false
		}

		if !b.rows[key].Equal(other.rows[key]) {
			return false
		}
	}

	return true
}

// SessionDates returns the distinct wall-clock dates the block's bars fall
// on, read in the block's timezone, ascending. The gap planner diffs these
// against the sessions a request needs.
func (b *Block) SessionDates() []calendar.Date {
	var (
		out  []calendar.Date
		seen = make(map[calendar.Date]bool)
	)

	for _, key := range b.keys {
		d := calendar.DateOf(b.rows[key].Time)
		if !seen[d] {
			seen[d] = true

			out = append(out, d)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	return out
}
