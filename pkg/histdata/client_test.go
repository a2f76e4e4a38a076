package histdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-histdata/internal/logger"
	"github.com/rxtech-lab/argo-histdata/pkg/calendar"
	"github.com/rxtech-lab/argo-histdata/pkg/datablock"
	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/histcache"
	"github.com/rxtech-lab/argo-histdata/pkg/provider"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// intradayClocks are the wall clock times the fake provider stamps intraday
// bars with.
var intradayClocks = []struct{ hour, min int }{{9, 30}, {10, 0}, {10, 30}}

// sessionRecord derives a bar deterministically from its instant, so two
// downloads of the same window agree cell for cell.
func sessionRecord(ts time.Time) datablock.Record {
	day := float64(ts.YearDay())

	return datablock.Record{
		"time":   ts.UTC(),
		"open":   1000 + day,
		"high":   1000.5 + day,
		"low":    999.5 + day,
		"close":  1000.25 + day,
		"volume": ts.Unix() % 100000,
	}
}

// copyBlock clones a block by reslicing its own bounds, so later combines
// cannot reach the caller's rows.
func copyBlock(b *datablock.Block) *datablock.Block {
	if b.Empty() {
		return datablock.New()
	}

	return b.Slice(b.First().Unwrap().Time, b.Last().Unwrap().Time)
}

type fakeProvider struct {
	mu       sync.Mutex
	cal      *calendar.Calendar
	zone     *time.Location
	zoneErr  error
	fetchErr error
	padDays  int
	requests []provider.FetchRequest
}

var _ provider.Provider = (*fakeProvider)(nil)

// FetchBars serves one bar per session in the window for daily and coarser
// sizes, three per session for intraday ones. padDays widens the served
// window backwards, mimicking an API that hands back more than asked for.
func (f *fakeProvider) FetchBars(_ context.Context, req provider.FetchRequest, _ provider.OnFetchProgress) (*datablock.Block, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fetchErr := f.fetchErr
	padDays := f.padDays
	f.mu.Unlock()

	if fetchErr != nil {
		return nil, fetchErr
	}

	start := req.Start
	if padDays > 0 {
		start = start.AddDate(0, 0, -padDays)
	}

	var recs []datablock.Record

	for _, s := range f.cal.SessionsBetween(start, req.End) {
		if req.BarSize.IsIntraday() {
			for _, clock := range intradayClocks {
				ts := time.Date(s.Year, s.Month, s.Day, clock.hour, clock.min, 0, 0, f.zone)
				if ts.Before(start) || ts.After(req.End) {
					continue
				}

				recs = append(recs, sessionRecord(ts))
			}
		} else {
			ts := s.Time(f.zone)
			if ts.Before(start) || ts.After(req.End) {
				continue
			}

			recs = append(recs, sessionRecord(ts))
		}
	}

	block := datablock.New()
	if err := block.Update(recs, datablock.UpdateOptions{
		Symbol:   req.Contract.Symbol,
		DataType: req.DataType,
		BarSize:  req.BarSize,
		TZ:       time.UTC,
	}); err != nil {
		return nil, err
	}

	return block, nil
}

func (f *fakeProvider) ExchangeTimezone(_ context.Context, _ provider.Contract) (*time.Location, error) {
	if f.zoneErr != nil {
		return nil, f.zoneErr
	}

	return f.zone, nil
}

func (f *fakeProvider) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.requests)
}

func (f *fakeProvider) fetchWindows() []TimeRange {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]TimeRange, len(f.requests))
	for i, r := range f.requests {
		out[i] = TimeRange{Start: r.Start, End: r.End}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })

	return out
}

type fakeSeries struct {
	secType types.SecurityType
	block   *datablock.Block
}

type fakeStore struct {
	mu        sync.Mutex
	series    map[string]*fakeSeries
	inserts   int
	queryErr  error
	insertErr error
	closed    bool
}

var _ histcache.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{series: make(map[string]*fakeSeries)}
}

func seriesKey(secType types.SecurityType, symbol string, dataType types.DataType, barSize types.BarSize) string {
	return fmt.Sprintf("%s|%s|%s|%s", secType, symbol, dataType, barSize)
}

func (f *fakeStore) Query(_ context.Context, secType types.SecurityType, symbol string,
	dataType types.DataType, barSize types.BarSize, start, end time.Time) (*datablock.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queryErr != nil {
		return nil, f.queryErr
	}

	entry, ok := f.series[seriesKey(secType, symbol, dataType, barSize)]
	if !ok {
		return datablock.New(), nil
	}

	out := copyBlock(entry.block)
	if !start.Equal(histcache.MinTime) || !end.Equal(histcache.MaxTime) {
		out = out.Slice(start, end)
	}
	out.SetTimezone(start.Location())

	return out, nil
}

func (f *fakeStore) Insert(_ context.Context, secType types.SecurityType, block *datablock.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inserts++

	if f.insertErr != nil {
		return f.insertErr
	}

	if block == nil || block.Empty() {
		return nil
	}

	first := block.First().Unwrap()
	key := seriesKey(secType, first.Symbol, first.DataType, first.BarSize)

	incoming := copyBlock(block)
	if existing, ok := f.series[key]; ok {
		// Rows already cached win, matching the store's insert-or-ignore.
		incoming.Combine(existing.block)
	}

	f.series[key] = &fakeSeries{secType: secType, block: incoming}

	return nil
}

func (f *fakeStore) Coverage(_ context.Context) ([]histcache.CoverageRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := make([]histcache.CoverageRow, 0, len(f.series))
	for _, entry := range f.series {
		first := entry.block.First().Unwrap()
		last := entry.block.Last().Unwrap()

		rows = append(rows, histcache.CoverageRow{
			SecurityType: entry.secType,
			Symbol:       first.Symbol,
			DataType:     first.DataType,
			BarSize:      first.BarSize,
			Bars:         int64(entry.block.Len()),
			FirstTime:    first.Time.UTC(),
			LastTime:     last.Time.UTC(),
		})
	}

	return rows, nil
}

func (f *fakeStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

func (f *fakeStore) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.inserts
}

func (f *fakeStore) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

type ClientTestSuite struct {
	suite.Suite
	tempDir string
	cal     *calendar.Calendar
	ny      *time.Location
	ctx     context.Context
}

func (suite *ClientTestSuite) SetupSuite() {
	tempDir, err := os.MkdirTemp("", "histdata-client-test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir

	cal, err := calendar.NewNYSE()
	suite.Require().NoError(err)

	suite.cal = cal
	suite.ny = cal.Zone()
	suite.ctx = context.Background()
}

func (suite *ClientTestSuite) TearDownSuite() {
	os.RemoveAll(suite.tempDir)
}

// at builds an instant on the exchange clock.
func (suite *ClientTestSuite) at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, suite.ny)
}

func (suite *ClientTestSuite) newProvider() *fakeProvider {
	return &fakeProvider{cal: suite.cal, zone: suite.ny}
}

// newSyncClient wires a client over fakes, pinned to a clock well past the
// test fixtures so "now" defaults stay deterministic.
func (suite *ClientTestSuite) newSyncClient(p *fakeProvider, store histcache.Store) *Client {
	client := newClient(p, store, suite.cal, nil, logger.NewNop())
	client.now = func() time.Time { return suite.at(2024, 6, 3, 12, 0) }

	return client
}

func (suite *ClientTestSuite) request(barSize types.BarSize, duration string, end time.Time) Request {
	dur, err := types.ParseTimeDur(duration)
	suite.Require().NoError(err)

	return Request{
		SecurityType: types.SecurityTypeStock,
		Symbol:       "AAPL",
		BarSize:      barSize,
		Duration:     dur,
		End:          end,
	}
}

// seedIntraday pre-populates the cache with the same bars the provider would
// serve for the given March 2024 days.
func (suite *ClientTestSuite) seedIntraday(store *fakeStore, days ...int) {
	var recs []datablock.Record
	for _, day := range days {
		for _, clock := range intradayClocks {
			recs = append(recs, sessionRecord(time.Date(2024, 3, day, clock.hour, clock.min, 0, 0, suite.ny)))
		}
	}

	block := datablock.New()
	err := block.Update(recs, datablock.UpdateOptions{
		Symbol:   "AAPL",
		DataType: types.DataTypeTrades,
		BarSize:  types.BarSize5Min,
		TZ:       time.UTC,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(store.Insert(suite.ctx, types.SecurityTypeStock, block))
}

func (suite *ClientTestSuite) storeLen(store *fakeStore, barSize types.BarSize) int {
	block, err := store.Query(suite.ctx, types.SecurityTypeStock, "AAPL", types.DataTypeTrades, barSize,
		histcache.MinTime, histcache.MaxTime)
	suite.Require().NoError(err)

	return block.Len()
}

func (suite *ClientTestSuite) assertAscending(block *datablock.Block) {
	bars := block.Bars()
	for i := 1; i < len(bars); i++ {
		suite.True(bars[i-1].Time.Before(bars[i].Time), "bars out of order at %d", i)
	}
}

func (suite *ClientTestSuite) TestSync_DailyBars_ColdCache_FetchesWholeYear() {
	fp := suite.newProvider()
	store := newFakeStore()
	client := suite.newSyncClient(fp, store)

	got, err := client.Sync(suite.ctx, suite.request(types.BarSize1Day, "3d", suite.at(2024, 3, 22, 16, 0)))
	suite.Require().NoError(err)

	// Tuesday through the partial Friday.
	suite.Equal(4, got.Len())
	suite.assertAscending(got)

	bar := got.First().Unwrap()
	suite.True(bar.Time.Equal(suite.at(2024, 3, 19, 0, 0)))
	suite.Equal(suite.ny, bar.Time.Location())
	suite.True(bar.Close.IsSome())

	suite.Require().Equal(1, fp.fetchCount())
	window := fp.fetchWindows()[0]
	suite.True(window.Start.Equal(suite.at(2024, 1, 1, 0, 0)))
	suite.True(window.End.Equal(calendar.Date{Year: 2024, Month: 12, Day: 31}.DayEnd(suite.ny)))

	// The whole year lands in the cache even though the request wanted
	// three days of it.
	suite.Equal(1, store.insertCount())
	suite.Equal(len(suite.cal.SessionsBetween(window.Start, window.End)),
		suite.storeLen(store, types.BarSize1Day))
}

func (suite *ClientTestSuite) TestSync_DailyBars_WarmCache_SecondSyncFetchesNothing() {
	fp := suite.newProvider()
	store := newFakeStore()
	client := suite.newSyncClient(fp, store)
	req := suite.request(types.BarSize1Day, "3d", suite.at(2023, 12, 30, 0, 0))

	first, err := client.Sync(suite.ctx, req)
	suite.Require().NoError(err)
	suite.Equal(3, first.Len())
	suite.Equal(1, fp.fetchCount())

	second, err := client.Sync(suite.ctx, req)
	suite.Require().NoError(err)

	// 2023 is fully cached and no longer accruing, so the second sync is
	// answered from the cache alone.
	suite.Equal(1, fp.fetchCount())
	suite.Equal(1, store.insertCount())
	suite.True(first.Equal(second))
}

func (suite *ClientTestSuite) TestSync_DailyBars_AccruingYearRefetched() {
	fp := suite.newProvider()
	store := newFakeStore()
	client := suite.newSyncClient(fp, store)
	req := suite.request(types.BarSize1Day, "3d", suite.at(2024, 3, 22, 16, 0))

	first, err := client.Sync(suite.ctx, req)
	suite.Require().NoError(err)
	suite.Equal(1, fp.fetchCount())

	second, err := client.Sync(suite.ctx, req)
	suite.Require().NoError(err)

	// The clock still reads 2024, so the 2024 coverage cannot be trusted
	// and the year is downloaded again.
	suite.Equal(2, fp.fetchCount())
	suite.True(first.Equal(second))
}

func (suite *ClientTestSuite) TestSync_IntradayBars_PartialCache_DownloadsOnlyMissingRuns() {
	fp := suite.newProvider()
	store := newFakeStore()
	client := suite.newSyncClient(fp, store)
	suite.seedIntraday(store, 18, 19, 21)

	got, err := client.Sync(suite.ctx, suite.request(types.BarSize5Min, "5d", suite.at(2024, 3, 23, 0, 0)))
	suite.Require().NoError(err)

	suite.Equal(15, got.Len())
	suite.assertAscending(got)
	suite.Equal(suite.ny, got.First().Unwrap().Time.Location())

	suite.Require().Equal(2, fp.fetchCount())
	windows := fp.fetchWindows()
	suite.True(windows[0].Start.Equal(suite.at(2024, 3, 20, 0, 0)))
	suite.True(windows[1].Start.Equal(suite.at(2024, 3, 22, 0, 0)))

	suite.Equal(15, suite.storeLen(store, types.BarSize5Min))
}

func (suite *ClientTestSuite) TestSync_IntradayBars_FullCache_NoDownload() {
	fp := suite.newProvider()
	store := newFakeStore()
	client := suite.newSyncClient(fp, store)
	suite.seedIntraday(store, 18, 19, 20, 21, 22)

	got, err := client.Sync(suite.ctx, suite.request(types.BarSize5Min, "5d", suite.at(2024, 3, 23, 0, 0)))
	suite.Require().NoError(err)

	suite.Equal(15, got.Len())
	suite.Equal(0, fp.fetchCount())
	suite.Equal(1, store.insertCount())
}

func (suite *ClientTestSuite) TestSync_OverDelivery_PersistsOnlyInsideTheGapWindow() {
	fp := suite.newProvider()
	fp.padDays = 3
	store := newFakeStore()
	client := suite.newSyncClient(fp, store)

	got, err := client.Sync(suite.ctx, suite.request(types.BarSize5Min, "2d", suite.at(2024, 3, 23, 0, 0)))
	suite.Require().NoError(err)

	// Thursday and Friday, three bars each. The padded Monday through
	// Wednesday stay out of both the result and the cache.
	suite.Equal(6, got.Len())
	suite.Equal(1, fp.fetchCount())
	suite.Equal(6, suite.storeLen(store, types.BarSize5Min))
}

func (suite *ClientTestSuite) TestSync_CacheReadError_FallsBackToDirect() {
	fp := suite.newProvider()
	store := newFakeStore()
	store.queryErr = errors.New(errors.ErrCodeCacheUnavailable, "cache locked")
	client := suite.newSyncClient(fp, store)

	got, err := client.Sync(suite.ctx, suite.request(types.BarSize1Day, "3d", suite.at(2024, 3, 22, 16, 0)))
	suite.Require().NoError(err)

	suite.Equal(4, got.Len())
	suite.Require().Equal(1, fp.fetchCount())

	// Direct fetches ask for the request window, not whole years, and
	// nothing is persisted.
	window := fp.fetchWindows()[0]
	suite.True(window.Start.Equal(suite.at(2024, 3, 19, 0, 0)))
	suite.True(window.End.Equal(suite.at(2024, 3, 22, 16, 0)))
	suite.Equal(0, store.insertCount())
}

func (suite *ClientTestSuite) TestSync_NoCacheConfigured_FetchesDirect() {
	fp := suite.newProvider()
	client := suite.newSyncClient(fp, nil)

	got, err := client.Sync(suite.ctx, suite.request(types.BarSize1Day, "3d", suite.at(2024, 3, 22, 16, 0)))
	suite.Require().NoError(err)

	suite.Equal(4, got.Len())
	suite.Equal(suite.ny, got.First().Unwrap().Time.Location())
	suite.Equal(1, fp.fetchCount())
}

func (suite *ClientTestSuite) TestSync_WeekBars_BypassTheCache() {
	fp := suite.newProvider()
	store := newFakeStore()
	client := suite.newSyncClient(fp, store)

	got, err := client.Sync(suite.ctx, suite.request(types.BarSize1Week, "1M", suite.at(2024, 3, 22, 16, 0)))
	suite.Require().NoError(err)

	// The fake serves one bar per session whatever the size; what matters
	// is that week bars skip the planner and leave the cache untouched.
	suite.Equal(21, got.Len())
	suite.Equal(1, fp.fetchCount())
	suite.Equal(0, store.insertCount())
}

func (suite *ClientTestSuite) TestSync_ProviderError_AbortsWithoutPartialMerge() {
	fp := suite.newProvider()
	store := newFakeStore()
	client := suite.newSyncClient(fp, store)
	suite.seedIntraday(store, 18, 19, 21)
	fp.fetchErr = errors.New(errors.ErrCodeProviderFetchFailed, "stream reset")

	got, err := client.Sync(suite.ctx, suite.request(types.BarSize5Min, "5d", suite.at(2024, 3, 23, 0, 0)))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeProviderFetchFailed))
	suite.Nil(got)

	suite.Equal(9, suite.storeLen(store, types.BarSize5Min))
}

func (suite *ClientTestSuite) TestSync_CacheWriteError_Aborts() {
	fp := suite.newProvider()
	store := newFakeStore()
	store.insertErr = errors.New(errors.ErrCodeCacheWriteFailed, "disk full")
	client := suite.newSyncClient(fp, store)

	got, err := client.Sync(suite.ctx, suite.request(types.BarSize1Day, "3d", suite.at(2024, 3, 22, 16, 0)))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeCacheWriteFailed))
	suite.Nil(got)
}

func (suite *ClientTestSuite) TestSync_TimezoneLookupError() {
	fp := suite.newProvider()
	fp.zoneErr = errors.New(errors.ErrCodeTimezoneLookupFailed, "unknown exchange")
	client := suite.newSyncClient(fp, newFakeStore())

	_, err := client.Sync(suite.ctx, suite.request(types.BarSize1Day, "3d", suite.at(2024, 3, 22, 16, 0)))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeTimezoneLookupFailed))
	suite.Equal(0, fp.fetchCount())
}

func (suite *ClientTestSuite) TestSync_InvalidRequest() {
	fp := suite.newProvider()
	client := suite.newSyncClient(fp, newFakeStore())

	suite.Run("missing symbol", func() {
		req := suite.request(types.BarSize1Day, "3d", suite.at(2024, 3, 22, 16, 0))
		req.Symbol = ""

		_, err := client.Sync(suite.ctx, req)
		suite.Require().Error(err)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
	})

	suite.Run("missing window", func() {
		req := Request{
			SecurityType: types.SecurityTypeStock,
			Symbol:       "AAPL",
			BarSize:      types.BarSize1Day,
		}

		_, err := client.Sync(suite.ctx, req)
		suite.Require().Error(err)
		suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
	})

	suite.Equal(0, fp.fetchCount())
}

func (suite *ClientTestSuite) TestSync_SharesTheSessionPool() {
	fp := suite.newProvider()
	store := newFakeStore()
	pool, err := provider.NewConnectionPool(1)
	suite.Require().NoError(err)

	client := newClient(fp, store, suite.cal, pool, logger.NewNop())
	client.now = func() time.Time { return suite.at(2024, 6, 3, 12, 0) }
	suite.seedIntraday(store, 18, 19, 21)

	// Two gap downloads share a single session and still both finish.
	got, err := client.Sync(suite.ctx, suite.request(types.BarSize5Min, "5d", suite.at(2024, 3, 23, 0, 0)))
	suite.Require().NoError(err)
	suite.Equal(15, got.Len())
	suite.Equal(2, fp.fetchCount())
}

func (suite *ClientTestSuite) TestCoverage() {
	fp := suite.newProvider()
	store := newFakeStore()
	client := suite.newSyncClient(fp, store)

	_, err := client.Sync(suite.ctx, suite.request(types.BarSize1Day, "3d", suite.at(2024, 3, 22, 16, 0)))
	suite.Require().NoError(err)

	rows, err := client.Coverage(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(rows, 1)

	row := rows[0]
	suite.Equal(types.SecurityTypeStock, row.SecurityType)
	suite.Equal("AAPL", row.Symbol)
	suite.Equal(types.DataTypeTrades, row.DataType)
	suite.Equal(types.BarSize1Day, row.BarSize)
	suite.Positive(row.Bars)
	suite.True(row.FirstTime.Before(row.LastTime))
}

func (suite *ClientTestSuite) TestCoverage_NoCacheConfigured() {
	client := suite.newSyncClient(suite.newProvider(), nil)

	_, err := client.Coverage(suite.ctx)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeCacheUnavailable))
}

func (suite *ClientTestSuite) TestClose_ReleasesPoolAndStore() {
	store := newFakeStore()
	pool, err := provider.NewConnectionPool(2)
	suite.Require().NoError(err)

	client := newClient(suite.newProvider(), store, suite.cal, pool, logger.NewNop())
	suite.Require().NoError(client.Close())

	suite.True(store.isClosed())

	_, err = pool.Acquire(suite.ctx)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodePoolClosed))
}

func (suite *ClientTestSuite) TestNewClient_FromConfig() {
	config := ClientConfig{
		Provider:  provider.Config{Type: provider.ProviderBinance},
		CachePath: filepath.Join(suite.tempDir, "client-config.db"),
		PoolSize:  2,
	}

	client, err := NewClient(config, logger.NewNop())
	suite.Require().NoError(err)
	suite.Require().NotNil(client)
	suite.Require().NoError(client.Close())
}

func (suite *ClientTestSuite) TestNewClient_InvalidConfig() {
	_, err := NewClient(ClientConfig{Provider: provider.Config{Type: "ibkr"}}, logger.NewNop())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
