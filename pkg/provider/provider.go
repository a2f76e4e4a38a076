// Package provider fetches historical bars from market data vendors.
package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-histdata/pkg/datablock"
	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// Contract identifies the instrument a request is about.
type Contract struct {
	SecurityType types.SecurityType `json:"securityType" validate:"required"`
	Symbol       string             `json:"symbol" validate:"required"`
	Exchange     string             `json:"exchange"`
	Currency     string             `json:"currency"`
}

// FetchRequest asks for the bars of one series between two instants,
// inclusive on both ends. Bars come back keyed by their UTC open time.
type FetchRequest struct {
	Contract Contract
	DataType types.DataType
	BarSize  types.BarSize
	Start    time.Time
	End      time.Time
}

type OnFetchProgress = func(current float64, total float64, message string)

type Provider interface {
	// FetchBars downloads the bars covering the request window. The
	// context can be used to cancel the download. onProgress may be nil.
	FetchBars(ctx context.Context, req FetchRequest, onProgress OnFetchProgress) (*datablock.Block, error)
	// ExchangeTimezone resolves the timezone the contract's exchange
	// trades in.
	ExchangeTimezone(ctx context.Context, contract Contract) (*time.Location, error)
}

// Config contains configuration for a market data provider.
type Config struct {
	Type    ProviderType `json:"type" yaml:"type" jsonschema:"title=Provider Type,description=Market data provider to fetch from,enum=polygon,enum=binance" validate:"required,oneof=polygon binance"`
	APIKey  string       `json:"apiKey" yaml:"api_key" jsonschema:"title=API Key,description=Provider API key" validate:"required_if=Type polygon"`
	BaseURL string       `json:"baseUrl,omitempty" yaml:"base_url,omitempty" jsonschema:"title=Base URL,description=Override the provider endpoint (testing only)"`
}

// Validate validates the provider Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid provider config", err)
	}

	return nil
}

// ParseConfig parses a JSON configuration string into a Config.
func ParseConfig(jsonConfig string) (*Config, error) {
	var config Config
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse provider config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// NewProvider creates a new market data provider from its configuration.
func NewProvider(config Config) (Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case ProviderBinance:
		return NewBinanceProvider(config)
	case ProviderPolygon:
		return NewPolygonProvider(config)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", config.Type)
	}
}
