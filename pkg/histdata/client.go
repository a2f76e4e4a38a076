package histdata

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rxtech-lab/argo-histdata/internal/logger"
	"github.com/rxtech-lab/argo-histdata/pkg/calendar"
	"github.com/rxtech-lab/argo-histdata/pkg/datablock"
	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/histcache"
	"github.com/rxtech-lab/argo-histdata/pkg/provider"
)

// Client synchronizes historical bar series between a market data provider
// and a local cache.
type Client struct {
	provider   provider.Provider
	store      histcache.Store
	calendar   *calendar.Calendar
	pool       *provider.ConnectionPool
	logger     *logger.Logger
	onProgress provider.OnFetchProgress
	now        func() time.Time
}

// NewClient builds a Client from its config: a provider from the factory, a
// DuckDB cache when a path is configured, the NYSE session calendar and a
// bounded provider session pool.
func NewClient(config ClientConfig, log *logger.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p, err := provider.NewProvider(config.Provider)
	if err != nil {
		return nil, err
	}

	var store histcache.Store

	if config.CachePath != "" {
		store, err = histcache.NewDuckDBStore(config.CachePath, log)
		if err != nil {
			return nil, err
		}
	}

	cal, err := calendar.NewNYSE()
	if err != nil {
		closeStore(store)

		return nil, err
	}

	poolSize := config.PoolSize
	if poolSize == 0 {
		poolSize = provider.DefaultPoolSize
	}

	pool, err := provider.NewConnectionPool(poolSize)
	if err != nil {
		closeStore(store)

		return nil, err
	}

	client := newClient(p, store, cal, pool, log)

	return client, nil
}

// newClient wires a Client from explicit parts. Tests substitute fakes here;
// NewClient assembles the real set. A nil store disables caching and a nil
// pool lifts the session limit.
func newClient(p provider.Provider, store histcache.Store, cal *calendar.Calendar, pool *provider.ConnectionPool, log *logger.Logger) *Client {
	return &Client{
		provider: p,
		store:    store,
		calendar: cal,
		pool:     pool,
		logger:   log,
		now:      time.Now,
	}
}

// SetOnFetchProgress registers a callback receiving provider download
// progress. Pass nil to remove it.
func (c *Client) SetOnFetchProgress(fn provider.OnFetchProgress) {
	c.onProgress = fn
}

// Sync returns the requested series, downloading only what the cache is
// missing. The result covers exactly the request window, ascending by key,
// expressed in the exchange timezone.
//
// Without a cache, and for bar sizes the gap planner cannot split, the whole
// window is fetched from the provider instead. A cache failing on the
// opening read degrades the same way rather than failing the sync.
func (c *Client) Sync(ctx context.Context, req Request) (*datablock.Block, error) {
	req = req.normalize(c.now())
	if err := req.Validate(); err != nil {
		return nil, err
	}

	xzone, err := c.provider.ExchangeTimezone(ctx, req.contract())
	if err != nil {
		return nil, err
	}

	log := c.logger.With(
		zap.String("run_id", uuid.New().String()),
		zap.String("symbol", req.Symbol),
		zap.String("bar_size", req.BarSize.String()),
		zap.String("data_type", req.DataType.String()),
	)

	if c.store == nil || !req.BarSize.Splittable() {
		return c.syncDirect(ctx, log, req, xzone)
	}

	cached, err := c.store.Query(ctx, req.SecurityType, req.Symbol, req.DataType, req.BarSize,
		histcache.MinTime, histcache.MaxTime)
	if err != nil {
		log.Warn("cache read failed, fetching the whole request from the provider", zap.Error(err))

		return c.syncDirect(ctx, log, req, xzone)
	}

	cached.SetTimezone(xzone)

	p, err := planGaps(req, c.calendar, xzone, cached, c.now(), log)
	if err != nil {
		return nil, err
	}

	log.Debug("planned gap downloads",
		zap.Int("sub_requests", len(p.subs)),
		zap.Int("cached_bars", cached.Len()),
		zap.Time("start", p.start),
		zap.Time("end", p.end))

	if len(p.subs) > 0 {
		results := make([]*datablock.Block, len(p.subs))

		g, gctx := errgroup.WithContext(ctx)

		for i, sub := range p.subs {
			g.Go(func() error {
				fetched, err := c.fetchSub(gctx, sub)
				if err != nil {
					return err
				}

				results[i] = fetched

				return nil
			})
		}

		// Merging waits for every download, so a failed sync never hands
		// back a partially filled series.
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for _, fetched := range results {
			cached.Combine(fetched)
		}
	}

	// An empty cache block adopts the provider's zone during the first
	// combine, so re-express before trimming.
	cached.SetTimezone(xzone)
	out := cached.Slice(p.start, p.end)

	log.Info("sync complete", zap.Int("bars", out.Len()))

	return out, nil
}

// syncDirect fetches the whole request window from the provider, bypassing
// the cache.
func (c *Client) syncDirect(ctx context.Context, log *logger.Logger, req Request, xzone *time.Location) (*datablock.Block, error) {
	start, end, _, err := requestWindow(req, c.calendar, xzone, log)
	if err != nil {
		return nil, err
	}

	fetched, err := c.fetchWindow(ctx, req, start, end)
	if err != nil {
		return nil, err
	}

	fetched.SetTimezone(xzone)

	log.Info("direct fetch complete", zap.Int("bars", fetched.Len()))

	return fetched, nil
}

// fetchSub downloads one gap: acquire a provider session, fetch the window,
// persist the bars inside the insert limit and hand the full download back
// for the in-memory merge.
func (c *Client) fetchSub(ctx context.Context, sub SubRequest) (*datablock.Block, error) {
	if c.pool != nil {
		session, err := c.pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer session.Release()
	}

	fetched, err := c.fetchWindow(ctx, sub.Request, sub.FetchStart, sub.FetchEnd)
	if err != nil {
		return nil, err
	}

	insert := fetched.Slice(sub.InsertLimit.Start, sub.InsertLimit.End)
	if err := c.store.Insert(ctx, sub.Request.SecurityType, insert); err != nil {
		return nil, err
	}

	return fetched, nil
}

// fetchWindow downloads [start, end] from the provider, splitting the window
// into chunks the provider accepts at this bar size.
func (c *Client) fetchWindow(ctx context.Context, req Request, start, end time.Time) (*datablock.Block, error) {
	windows, err := splitByStep(start, end, req.BarSize)
	if err != nil {
		return nil, err
	}

	out := datablock.New()

	for _, w := range windows {
		fetched, err := c.provider.FetchBars(ctx, provider.FetchRequest{
			Contract: req.contract(),
			DataType: req.DataType,
			BarSize:  req.BarSize,
			Start:    w.Start,
			End:      w.End,
		}, c.onProgress)
		if err != nil {
			return nil, err
		}

		out.Combine(fetched)
	}

	return out, nil
}

// Coverage summarizes every series the cache holds.
func (c *Client) Coverage(ctx context.Context) ([]histcache.CoverageRow, error) {
	if c.store == nil {
		return nil, errors.New(errors.ErrCodeCacheUnavailable, "no cache configured")
	}

	return c.store.Coverage(ctx)
}

// Close releases the cache and the session pool. The providers hold no
// connections of their own.
func (c *Client) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}

	if c.store != nil {
		return c.store.Close()
	}

	return nil
}

func closeStore(store histcache.Store) {
	if store != nil {
		_ = store.Close()
	}
}
