package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/schollz/progressbar/v3"

	"github.com/rxtech-lab/argo-histdata/pkg/datablock"
	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// PolygonProvider fetches aggregate bars from the Polygon REST API.
type PolygonProvider struct {
	client *polygon.Client
}

func NewPolygonProvider(config Config) (*PolygonProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon provider requires an API key")
	}

	return &PolygonProvider{
		client: polygon.New(config.APIKey),
	}, nil
}

// FetchBars downloads the aggregates covering the request window and
// assembles them into a block keyed by UTC open time.
func (p *PolygonProvider) FetchBars(ctx context.Context, req FetchRequest, onProgress OnFetchProgress) (*datablock.Block, error) {
	if req.DataType != types.DataTypeTrades {
		return nil, errors.Newf(errors.ErrCodeInvalidDataType, "polygon aggregates carry trades only, got %s", req.DataType)
	}

	multiplier, timespan, err := polygonTimespan(req.BarSize)
	if err != nil {
		return nil, err
	}

	totalIterations := int(req.End.Sub(req.Start).Hours()/24) + 1
	bar := progressbar.NewOptions(totalIterations,
		progressbar.OptionSetDescription(fmt.Sprintf("Fetching %s", req.Contract.Symbol)),
		progressbar.OptionShowCount())

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     req.Contract.Symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(req.Start),
		To:         models.Millis(req.End),
	}.WithLimit(50000)

	iter := p.client.ListAggs(ctx, params)

	var recs []datablock.Record

	processedCount := 0

	for iter.Next() {
		agg := iter.Item()
		recs = append(recs, aggRecord(agg))

		processedCount++
		if processedCount%1000 == 0 {
			currentTime := time.Time(agg.Timestamp)
			daysElapsed := int(currentTime.Sub(req.Start).Hours() / 24)
			bar.Set(daysElapsed)

			if onProgress != nil {
				go onProgress(float64(daysElapsed), float64(totalIterations),
					fmt.Sprintf("Fetching %s", req.Contract.Symbol))
			}
		}
	}

	if iter.Err() != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderFetchFailed, "error iterating polygon aggregates", iter.Err())
	}

	bar.Finish()

	block := datablock.New()
	err = block.Update(recs, datablock.UpdateOptions{
		Symbol:   req.Contract.Symbol,
		DataType: req.DataType,
		BarSize:  req.BarSize,
		TZ:       time.UTC,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderParseFailed, "failed to assemble polygon aggregates", err)
	}

	return block, nil
}

// ExchangeTimezone resolves the zone the contract trades in from the
// ticker's market metadata.
func (p *PolygonProvider) ExchangeTimezone(ctx context.Context, contract Contract) (*time.Location, error) {
	//nolint:exhaustruct // third-party struct with many optional fields
	details, err := p.client.GetTickerDetails(ctx, &models.GetTickerDetailsParams{
		Ticker: contract.Symbol,
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeTimezoneLookupFailed, err,
			"failed to look up ticker details for %s", contract.Symbol)
	}

	return marketTimezone(details.Results.Market)
}

// Helper functions

// aggRecord converts one polygon aggregate to a record. Zero vwap and
// transaction counts mean the field was not reported and stay absent.
func aggRecord(agg models.Agg) datablock.Record {
	rec := datablock.Record{
		"time":   time.Time(agg.Timestamp).UTC(),
		"open":   agg.Open,
		"high":   agg.High,
		"low":    agg.Low,
		"close":  agg.Close,
		"volume": agg.Volume,
	}
	if agg.VWAP != 0 {
		rec["average"] = agg.VWAP
	}

	if agg.Transactions != 0 {
		rec["barcount"] = agg.Transactions
	}

	return rec
}

// polygonTimespan converts a bar size to the polygon multiplier and
// timespan pair.
func polygonTimespan(barSize types.BarSize) (int, models.Timespan, error) {
	dur, err := types.ParseTimeDur(string(barSize))
	if err != nil {
		return 0, "", errors.Wrapf(errors.ErrCodeUnsupportedBarSize, err, "unsupported bar size %s", barSize)
	}

	switch dur.Unit {
	case types.UnitSecond:
		return dur.Magnitude, models.Second, nil
	case types.UnitMinute:
		return dur.Magnitude, models.Minute, nil
	case types.UnitHour:
		return dur.Magnitude, models.Hour, nil
	case types.UnitDay:
		return dur.Magnitude, models.Day, nil
	case types.UnitWeek:
		return dur.Magnitude, models.Week, nil
	case types.UnitMonth:
		return dur.Magnitude, models.Month, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeUnsupportedBarSize, "unsupported bar size for polygon: %s", barSize)
	}
}

// marketTimezone maps a polygon market class to its trading zone.
func marketTimezone(market string) (*time.Location, error) {
	switch market {
	case "crypto", "fx":
		return time.UTC, nil
	default:
		// Stocks, options, indices and OTC all trade on US exchanges.
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeTimezoneLookupFailed, "failed to load exchange timezone", err)
		}

		return loc, nil
	}
}

// Ensure PolygonProvider implements Provider.
var _ Provider = (*PolygonProvider)(nil)
