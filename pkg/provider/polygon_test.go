package provider

import (
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
	"github.com/stretchr/testify/suite"
)

type PolygonProviderTestSuite struct {
	suite.Suite
}

func TestPolygonProviderSuite(t *testing.T) {
	suite.Run(t, new(PolygonProviderTestSuite))
}

func (suite *PolygonProviderTestSuite) TestNewPolygonProvider_RequiresAPIKey() {
	_, err := NewPolygonProvider(Config{Type: ProviderPolygon})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	provider, err := NewPolygonProvider(Config{Type: ProviderPolygon, APIKey: "test-key"})
	suite.Require().NoError(err)
	suite.NotNil(provider)
}

func (suite *PolygonProviderTestSuite) TestAggRecord() {
	timestamp := time.Date(2024, 3, 11, 14, 30, 0, 0, time.UTC)

	suite.Run("full aggregate keeps every cell", func() {
		rec := aggRecord(models.Agg{
			Timestamp:    models.Millis(timestamp),
			Open:         150.25,
			High:         151.5,
			Low:          149.75,
			Close:        150.5,
			Volume:       120000,
			VWAP:         150.375,
			Transactions: 842,
		})

		suite.Equal(timestamp, rec["time"])
		suite.Equal(150.25, rec["open"])
		suite.Equal(150.5, rec["close"])
		suite.Equal(150.375, rec["average"])
		suite.Equal(int64(842), rec["barcount"])
	})

	suite.Run("unreported fields stay absent", func() {
		rec := aggRecord(models.Agg{
			Timestamp: models.Millis(timestamp),
			Open:      150.25,
			High:      151.5,
			Low:       149.75,
			Close:     150.5,
			Volume:    120000,
		})

		_, hasAverage := rec["average"]
		suite.False(hasAverage)
		_, hasBarCount := rec["barcount"]
		suite.False(hasBarCount)
	})
}

func (suite *PolygonProviderTestSuite) TestPolygonTimespan() {
	cases := []struct {
		barSize    types.BarSize
		multiplier int
		timespan   models.Timespan
	}{
		{types.BarSize1Sec, 1, models.Second},
		{types.BarSize30Sec, 30, models.Second},
		{types.BarSize5Min, 5, models.Minute},
		{types.BarSize2Hour, 2, models.Hour},
		{types.BarSize1Day, 1, models.Day},
		{types.BarSize1Week, 1, models.Week},
		{types.BarSize1Month, 1, models.Month},
	}

	for _, c := range cases {
		multiplier, timespan, err := polygonTimespan(c.barSize)
		suite.Require().NoError(err)
		suite.Equal(c.multiplier, multiplier)
		suite.Equal(c.timespan, timespan)
	}
}

func (suite *PolygonProviderTestSuite) TestPolygonTimespan_Invalid() {
	_, _, err := polygonTimespan(types.BarSize("soon"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupportedBarSize))
}

func (suite *PolygonProviderTestSuite) TestMarketTimezone() {
	suite.Run("crypto and fx trade in UTC", func() {
		for _, market := range []string{"crypto", "fx"} {
			loc, err := marketTimezone(market)
			suite.Require().NoError(err)
			suite.Equal(time.UTC, loc)
		}
	})

	suite.Run("us listings trade in New York", func() {
		for _, market := range []string{"stocks", "otc", "indices"} {
			loc, err := marketTimezone(market)
			suite.Require().NoError(err)
			suite.Equal("America/New_York", loc.String())
		}
	})
}
