package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MockServerTestSuite struct {
	suite.Suite
	server *MockBinanceServer
}

func (s *MockServerTestSuite) SetupTest() {
	s.server = NewMockBinanceServer(ServerConfig{
		InitialPrice:      50000.0,
		VolatilityPercent: 2.0,
		Seed:              12345,
	})

	err := s.server.Start(":0")
	s.Require().NoError(err)
}

func (s *MockServerTestSuite) TearDownTest() {
	if s.server != nil {
		err := s.server.Stop()
		s.Require().NoError(err)
	}
}

// fetchKlines queries the klines endpoint and decodes the response.
func (s *MockServerTestSuite) fetchKlines(query string) ([][]interface{}, int) {
	resp, err := http.Get(s.server.BaseURL() + "/api/v3/klines?" + query)
	s.Require().NoError(err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode
	}

	var klines [][]interface{}
	err = json.NewDecoder(resp.Body).Decode(&klines)
	s.Require().NoError(err)

	return klines, resp.StatusCode
}

func klinesQuery(symbol, interval string, start, end time.Time) string {
	return fmt.Sprintf("symbol=%s&interval=%s&startTime=%d&endTime=%d",
		symbol, interval, start.UnixMilli(), end.UnixMilli())
}

func (s *MockServerTestSuite) TestKlinesWindow() {
	start := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 20, 23, 59, 59, 999000000, time.UTC)

	klines, status := s.fetchKlines(klinesQuery("BTCUSDT", "1h", start, end))
	s.Require().Equal(http.StatusOK, status)
	s.Require().Len(klines, 24)

	// Open times step by the interval and stay inside the window
	for i, kline := range klines {
		openTime := int64(kline[0].(float64))
		expected := start.Add(time.Duration(i) * time.Hour)
		s.Equal(expected.UnixMilli(), openTime)

		closeTime := int64(kline[6].(float64))
		s.Equal(expected.Add(time.Hour).UnixMilli()-1, closeTime)
	}
}

func (s *MockServerTestSuite) TestKlinesDeterministic() {
	start := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 20, 11, 0, 0, 0, time.UTC)

	first, status := s.fetchKlines(klinesQuery("BTCUSDT", "1h", start, end))
	s.Require().Equal(http.StatusOK, status)

	second, status := s.fetchKlines(klinesQuery("BTCUSDT", "1h", start, end))
	s.Require().Equal(http.StatusOK, status)

	s.Equal(first, second)
}

func (s *MockServerTestSuite) TestOverlappingWindowsAgree() {
	dayStart := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	morning, status := s.fetchKlines(klinesQuery("BTCUSDT", "1h",
		dayStart, dayStart.Add(12*time.Hour)))
	s.Require().Equal(http.StatusOK, status)

	afternoon, status := s.fetchKlines(klinesQuery("BTCUSDT", "1h",
		dayStart.Add(6*time.Hour), dayStart.Add(23*time.Hour)))
	s.Require().Equal(http.StatusOK, status)

	// Index each response by open time and compare the shared hours
	byOpen := make(map[int64][]interface{})
	for _, kline := range morning {
		byOpen[int64(kline[0].(float64))] = kline
	}

	shared := 0
	for _, kline := range afternoon {
		openTime := int64(kline[0].(float64))
		if other, ok := byOpen[openTime]; ok {
			s.Equal(other, kline)
			shared++
		}
	}
	s.Equal(7, shared)
}

func (s *MockServerTestSuite) TestKlinesLimit() {
	start := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 20, 23, 59, 59, 999000000, time.UTC)

	// A full day of minute bars exceeds the default page size
	klines, status := s.fetchKlines(klinesQuery("BTCUSDT", "1m", start, end))
	s.Require().Equal(http.StatusOK, status)
	s.Require().Len(klines, 500)

	s.Equal(start.UnixMilli(), int64(klines[0][0].(float64)))
	s.Equal(start.Add(499*time.Minute).UnixMilli(), int64(klines[499][0].(float64)))
}

func (s *MockServerTestSuite) TestKlinesBadRequests() {
	start := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	_, status := s.fetchKlines(fmt.Sprintf("interval=1h&startTime=%d&endTime=%d",
		start.UnixMilli(), end.UnixMilli()))
	s.Equal(http.StatusBadRequest, status)

	_, status = s.fetchKlines(klinesQuery("BTCUSDT", "abc", start, end))
	s.Equal(http.StatusBadRequest, status)

	// Bars are anchored to UTC days, weekly and monthly intervals are out
	_, status = s.fetchKlines(klinesQuery("BTCUSDT", "1w", start, end))
	s.Equal(http.StatusBadRequest, status)
}

func (s *MockServerTestSuite) TestRequestLog() {
	s.Equal(0, s.server.KlineRequestCount())

	late := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	early := time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC)

	_, status := s.fetchKlines(klinesQuery("BTCUSDT", "1h", late, late.Add(2*time.Hour)))
	s.Require().Equal(http.StatusOK, status)

	_, status = s.fetchKlines(klinesQuery("ETHUSDT", "1h", early, early.Add(2*time.Hour)))
	s.Require().Equal(http.StatusOK, status)

	s.Equal(2, s.server.KlineRequestCount())

	requests := s.server.KlineRequests()
	s.Require().Len(requests, 2)

	// Ordered by window start, not arrival
	s.Equal("ETHUSDT", requests[0].Symbol)
	s.Equal(early, requests[0].StartTime)
	s.Equal("BTCUSDT", requests[1].Symbol)
	s.Equal("1h", requests[1].Interval)
	s.Equal(late, requests[1].StartTime)
	s.Equal(late.Add(2*time.Hour), requests[1].EndTime)
	s.Equal(500, requests[1].Limit)
}

func TestMockServerSuite(t *testing.T) {
	suite.Run(t, new(MockServerTestSuite))
}
