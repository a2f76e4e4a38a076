// Package mockserver provides a mock Binance klines endpoint for testing.
// Bars are generated per symbol and UTC day from a seed derived from both,
// so any two requests covering the same instant serve the same bar.
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/rxtech-lab/argo-histdata/mocks"
	"github.com/rxtech-lab/argo-histdata/pkg/datablock"
)

// MockBinanceServer serves the candlestick REST endpoint the sync client
// downloads from. Intervals up to one day are supported; coarser ones are
// rejected, since bars are anchored to UTC days.
type MockBinanceServer struct {
	mu sync.RWMutex

	// HTTP server
	httpServer *http.Server
	listener   net.Listener

	// Generator settings
	initialPrice float64
	volatility   float64
	seed         int64

	// Request log
	klineRequests []KlineRequest
}

// KlineRequest records one call to the klines endpoint.
type KlineRequest struct {
	Symbol    string
	Interval  string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

// ServerConfig holds configuration for the mock server.
type ServerConfig struct {
	// InitialPrice anchors every generated day
	InitialPrice float64
	// VolatilityPercent controls per-bar movement
	VolatilityPercent float64
	// Seed varies the served series between configurations
	Seed int64
}

// NewMockBinanceServer creates a new mock Binance server.
func NewMockBinanceServer(config ServerConfig) *MockBinanceServer {
	server := &MockBinanceServer{
		mu:            sync.RWMutex{},
		initialPrice:  config.InitialPrice,
		volatility:    config.VolatilityPercent / 100,
		seed:          config.Seed,
		klineRequests: make([]KlineRequest, 0),
		httpServer:    nil,
		listener:      nil,
	}

	if server.initialPrice == 0 {
		server.initialPrice = 100.0
	}

	if server.volatility == 0 {
		server.volatility = 0.02
	}

	return server
}

// Start starts the mock server on the given address.
// If address is empty or ":0", a random available port is used.
func (s *MockBinanceServer) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	router := mux.NewRouter()

	// REST API endpoints
	router.HandleFunc("/api/v3/klines", s.handleKlines).Methods("GET")

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	return nil
}

// Stop stops the mock server.
func (s *MockBinanceServer) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Address returns the address the server is listening on.
func (s *MockBinanceServer) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the base URL for the server.
func (s *MockBinanceServer) BaseURL() string {
	return "http://" + s.Address()
}

// KlineRequestCount returns how many kline downloads the server handled.
func (s *MockBinanceServer) KlineRequestCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.klineRequests)
}

// KlineRequests returns the handled downloads ordered by window start.
// Concurrent gap downloads arrive in no particular order.
func (s *MockBinanceServer) KlineRequests() []KlineRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]KlineRequest, len(s.klineRequests))
	copy(out, s.klineRequests)

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].StartTime.Before(out[j-1].StartTime); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}

	return out
}

// handleKlines handles GET /api/v3/klines
func (s *MockBinanceServer) handleKlines(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	interval := r.URL.Query().Get("interval")
	startTimeStr := r.URL.Query().Get("startTime")
	endTimeStr := r.URL.Query().Get("endTime")
	limitStr := r.URL.Query().Get("limit")

	if symbol == "" || interval == "" {
		http.Error(w, "Missing required parameters", http.StatusBadRequest)
		return
	}

	// Parse interval
	intervalDuration := parseInterval(interval)
	if intervalDuration == 0 {
		http.Error(w, "Invalid interval", http.StatusBadRequest)
		return
	}
	if intervalDuration > 24*time.Hour {
		http.Error(w, "Unsupported interval", http.StatusBadRequest)
		return
	}

	// Parse times
	var startTime, endTime time.Time
	if startTimeStr != "" {
		ms, _ := strconv.ParseInt(startTimeStr, 10, 64)
		startTime = time.UnixMilli(ms).UTC()
	} else {
		startTime = time.Now().UTC().Add(-24 * time.Hour)
	}
	if endTimeStr != "" {
		ms, _ := strconv.ParseInt(endTimeStr, 10, 64)
		endTime = time.UnixMilli(ms).UTC()
	} else {
		endTime = time.Now().UTC()
	}

	limit := 500
	if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
		limit = n
	}

	s.mu.Lock()
	s.klineRequests = append(s.klineRequests, KlineRequest{
		Symbol:    symbol,
		Interval:  interval,
		StartTime: startTime,
		EndTime:   endTime,
		Limit:     limit,
	})
	s.mu.Unlock()

	recs := s.generateWindow(symbol, intervalDuration, startTime, endTime)
	if len(recs) > limit {
		recs = recs[:limit]
	}

	// Convert to Binance kline format: [openTime, open, high, low, close, volume, closeTime, ...]
	klines := make([][]interface{}, 0, len(recs))
	for _, rec := range recs {
		openTime := rec["time"].(time.Time)
		closeTime := openTime.Add(intervalDuration).UnixMilli() - 1
		klines = append(klines, []interface{}{
			openTime.UnixMilli(), // Open time
			strconv.FormatFloat(rec["open"].(float64), 'f', 8, 64),   // Open
			strconv.FormatFloat(rec["high"].(float64), 'f', 8, 64),   // High
			strconv.FormatFloat(rec["low"].(float64), 'f', 8, 64),    // Low
			strconv.FormatFloat(rec["close"].(float64), 'f', 8, 64),  // Close
			strconv.FormatFloat(rec["volume"].(float64), 'f', 8, 64), // Volume
			closeTime,               // Close time
			"0",                     // Quote asset volume
			rec["barcount"].(int64), // Number of trades
			"0",                     // Taker buy base asset volume
			"0",                     // Taker buy quote asset volume
			"0",                     // Ignore
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(klines)
}

// generateWindow builds the bars of one symbol whose open times fall inside
// [start, end]. Generation runs whole UTC days regardless of the requested
// bounds, so overlapping windows always agree bar for bar.
func (s *MockBinanceServer) generateWindow(symbol string, interval time.Duration, start, end time.Time) []datablock.Record {
	perDay := int(24 * time.Hour / interval)

	var out []datablock.Record

	day := start.UTC().Truncate(24 * time.Hour)
	for !day.After(end) {
		gen := mocks.NewDataGenerator(s.daySeed(symbol, day))
		recs := gen.Generate(mocks.GeneratorConfig{
			Symbol:         symbol,
			StartTime:      day,
			Interval:       interval,
			Count:          perDay,
			InitialPrice:   s.initialPrice,
			Volatility:     s.volatility,
			VolumeBase:     10000,
			VolumeVariance: 0.3,
		})

		for _, rec := range recs {
			ts := rec["time"].(time.Time)
			if ts.Before(start) || ts.After(end) {
				continue
			}
			out = append(out, rec)
		}

		day = day.Add(24 * time.Hour)
	}

	return out
}

// daySeed derives the generator seed for one symbol-day.
func (s *MockBinanceServer) daySeed(symbol string, day time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))

	return s.seed + int64(h.Sum64()) + day.Unix()
}

// parseInterval converts a Binance interval string to a duration.
func parseInterval(interval string) time.Duration {
	if len(interval) < 2 {
		return 0
	}

	numStr := interval[:len(interval)-1]
	unit := interval[len(interval)-1:]

	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0
	}

	switch unit {
	case "s":
		return time.Duration(num) * time.Second
	case "m":
		return time.Duration(num) * time.Minute
	case "h":
		return time.Duration(num) * time.Hour
	case "d":
		return time.Duration(num) * 24 * time.Hour
	case "w":
		return time.Duration(num) * 7 * 24 * time.Hour
	case "M":
		return time.Duration(num) * 30 * 24 * time.Hour
	default:
		return 0
	}
}
