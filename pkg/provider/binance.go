package provider

import (
	"context"
	"fmt"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-histdata/pkg/datablock"
	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// binancePageLimit is the most klines one request returns.
const binancePageLimit = 500

// Service interfaces for mocking the Binance API

// KlinesService interface for fetching candlestick pages.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	StartTime(startTime int64) KlinesService
	EndTime(endTime int64) KlinesService
	Limit(limit int) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPI interface abstracts the Binance client for testing.
type BinanceAPI interface {
	NewKlinesService() KlinesService
}

// realBinanceAPI wraps the actual binance.Client.
type realBinanceAPI struct {
	client *binance.Client
}

func (r *realBinanceAPI) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) StartTime(startTime int64) KlinesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *realKlinesService) EndTime(endTime int64) KlinesService {
	s.service = s.service.EndTime(endTime)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceProvider fetches candlestick bars from the Binance API. Crypto
// trades around the clock, so its exchange zone is always UTC.
type BinanceProvider struct {
	client BinanceAPI
}

// NewBinanceProvider creates a Binance market data provider. Binance
// serves klines without credentials. If config.BaseURL is set it
// overrides the production endpoint.
func NewBinanceProvider(config Config) (*BinanceProvider, error) {
	client := binance.NewClient(config.APIKey, "")
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &BinanceProvider{
		client: &realBinanceAPI{client: client},
	}, nil
}

// newBinanceProviderWithClient creates a Binance provider with a custom
// client. This is used for testing with mock clients.
func newBinanceProviderWithClient(client BinanceAPI) *BinanceProvider {
	return &BinanceProvider{
		client: client,
	}
}

// FetchBars downloads the klines covering the request window, paging
// through the API limit, and assembles them into a block keyed by UTC
// open time.
func (b *BinanceProvider) FetchBars(ctx context.Context, req FetchRequest, onProgress OnFetchProgress) (*datablock.Block, error) {
	if req.DataType != types.DataTypeTrades {
		return nil, errors.Newf(errors.ErrCodeInvalidDataType, "binance klines carry trades only, got %s", req.DataType)
	}

	interval, err := binanceInterval(req.BarSize)
	if err != nil {
		return nil, err
	}

	// Binance API uses milliseconds for timestamps.
	startTimeMillis := req.Start.UnixMilli()
	endTimeMillis := req.End.UnixMilli()

	currentStartTime := startTimeMillis

	var recs []datablock.Record

	for {
		klines, err := b.client.NewKlinesService().
			Symbol(req.Contract.Symbol).
			Interval(interval).
			StartTime(currentStartTime).
			EndTime(endTimeMillis).
			Limit(binancePageLimit).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeProviderFetchFailed, err,
				"failed to fetch %s klines from binance", req.Contract.Symbol)
		}

		if onProgress != nil {
			go onProgress(float64(currentStartTime-startTimeMillis), float64(endTimeMillis-startTimeMillis),
				fmt.Sprintf("Fetching %s klines", req.Contract.Symbol))
		}

		for _, k := range klines {
			recs = append(recs, klineRecord(k))
		}

		// A short page is the last page.
		if len(klines) < binancePageLimit {
			break
		}

		// Resume from the close time of the last kline + 1ms to avoid
		// refetching it.
		currentStartTime = klines[len(klines)-1].CloseTime + 1
		if currentStartTime >= endTimeMillis {
			break
		}
	}

	block := datablock.New()
	err = block.Update(recs, datablock.UpdateOptions{
		Symbol:   req.Contract.Symbol,
		DataType: req.DataType,
		BarSize:  req.BarSize,
		TZ:       time.UTC,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderParseFailed, "failed to assemble binance klines", err)
	}

	return block, nil
}

// ExchangeTimezone returns UTC for every contract.
func (b *BinanceProvider) ExchangeTimezone(ctx context.Context, contract Contract) (*time.Location, error) {
	return time.UTC, nil
}

// Helper functions

// klineRecord converts one binance kline to a record. Prices arrive as
// decimal strings and are kept that way so no precision is lost.
func klineRecord(k *binance.Kline) datablock.Record {
	rec := datablock.Record{
		"time":   time.UnixMilli(k.OpenTime).UTC(),
		"open":   k.Open,
		"high":   k.High,
		"low":    k.Low,
		"close":  k.Close,
		"volume": k.Volume,
	}
	if k.TradeNum != 0 {
		rec["barcount"] = k.TradeNum
	}

	return rec
}

// binanceInterval converts a bar size to a Binance kline interval string.
// Binance intervals: 1s, 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 8h, 12h, 1d, 3d, 1w, 1M
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-data
func binanceInterval(barSize types.BarSize) (string, error) {
	dur, err := types.ParseTimeDur(string(barSize))
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeUnsupportedBarSize, err, "unsupported bar size %s", barSize)
	}

	switch dur.Unit {
	case types.UnitSecond, types.UnitMinute, types.UnitHour, types.UnitDay:
		return fmt.Sprintf("%d%s", dur.Magnitude, dur.Unit), nil
	case types.UnitWeek:
		if dur.Magnitude == 1 {
			return "1w", nil
		}

		return "", errors.Newf(errors.ErrCodeUnsupportedBarSize, "unsupported weekly bar size for binance: %s", barSize)
	case types.UnitMonth:
		if dur.Magnitude == 1 {
			return "1M", nil
		}

		return "", errors.Newf(errors.ErrCodeUnsupportedBarSize, "unsupported monthly bar size for binance: %s", barSize)
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedBarSize, "unsupported bar size for binance: %s", barSize)
	}
}

// Ensure BinanceProvider implements Provider.
var _ Provider = (*BinanceProvider)(nil)
