package histdata

import (
	"time"

	"go.uber.org/mock/gomock"

	"github.com/rxtech-lab/argo-histdata/internal/logger"
	"github.com/rxtech-lab/argo-histdata/mocks"
	"github.com/rxtech-lab/argo-histdata/pkg/datablock"
	"github.com/rxtech-lab/argo-histdata/pkg/histcache"
	"github.com/rxtech-lab/argo-histdata/pkg/provider"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// Call-contract tests against generated mocks. Run `go generate ./mocks`
// after changing the Provider or Store interfaces.

func (suite *ClientTestSuite) TestSync_WarmCache_ReadsOnlyTheCache() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	p := mocks.NewMockProvider(ctrl)
	store := mocks.NewMockStore(ctrl)

	var recs []datablock.Record
	for _, clock := range intradayClocks {
		recs = append(recs, sessionRecord(time.Date(2024, 3, 20, clock.hour, clock.min, 0, 0, suite.ny)))
	}

	cached := datablock.New()
	suite.Require().NoError(cached.Update(recs, datablock.UpdateOptions{
		Symbol:   "AAPL",
		DataType: types.DataTypeTrades,
		BarSize:  types.BarSize5Min,
		TZ:       time.UTC,
	}))

	p.EXPECT().
		ExchangeTimezone(gomock.Any(), provider.Contract{
			SecurityType: types.SecurityTypeStock,
			Symbol:       "AAPL",
			Exchange:     "SMART",
			Currency:     "USD",
		}).
		Return(suite.ny, nil)

	// The cache covers the whole window, so the provider must stay idle
	// and nothing may be written back.
	store.EXPECT().
		Query(gomock.Any(), types.SecurityTypeStock, "AAPL", types.DataTypeTrades,
			types.BarSize5Min, histcache.MinTime, histcache.MaxTime).
		Return(cached, nil)

	client := newClient(p, store, suite.cal, nil, logger.NewNop())
	client.now = func() time.Time { return suite.at(2024, 6, 3, 12, 0) }

	result, err := client.Sync(suite.ctx, suite.request(types.BarSize5Min, "1d", suite.at(2024, 3, 21, 0, 0)))
	suite.Require().NoError(err)
	suite.Equal(3, result.Len())
}

func (suite *ClientTestSuite) TestSync_DirectFetch_RequestShape() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	p := mocks.NewMockProvider(ctrl)
	store := mocks.NewMockStore(ctrl)

	end := suite.at(2024, 3, 21, 0, 0)
	start := suite.at(2024, 2, 21, 0, 0)

	fetched, err := mocks.NewDataGenerator(7).GenerateBlock(mocks.GeneratorConfig{
		Symbol:       "AAPL",
		DataType:     types.DataTypeTrades,
		BarSize:      types.BarSize1Week,
		StartTime:    start.UTC(),
		Interval:     7 * 24 * time.Hour,
		Count:        4,
		InitialPrice: 180,
		Volatility:   0.01,
		VolumeBase:   5000,
	})
	suite.Require().NoError(err)

	p.EXPECT().
		ExchangeTimezone(gomock.Any(), gomock.Any()).
		Return(suite.ny, nil)

	// Week bars cannot be gap-planned, so the window goes to the provider
	// in one piece with the normalized routing fields filled in.
	p.EXPECT().
		FetchBars(gomock.Any(), provider.FetchRequest{
			Contract: provider.Contract{
				SecurityType: types.SecurityTypeStock,
				Symbol:       "AAPL",
				Exchange:     "SMART",
				Currency:     "USD",
			},
			DataType: types.DataTypeTrades,
			BarSize:  types.BarSize1Week,
			Start:    start,
			End:      end,
		}, gomock.Any()).
		Return(fetched, nil)

	client := newClient(p, store, suite.cal, nil, logger.NewNop())
	client.now = func() time.Time { return suite.at(2024, 6, 3, 12, 0) }

	result, err := client.Sync(suite.ctx, suite.request(types.BarSize1Week, "1M", end))
	suite.Require().NoError(err)
	suite.Equal(4, result.Len())
	suite.Equal(suite.ny, result.Timezone())
}
