package histdata

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/provider"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// ClientConfig configures a sync Client.
type ClientConfig struct {
	Provider  provider.Config `json:"provider" yaml:"provider" jsonschema:"title=Provider,description=Market data provider settings" validate:"required"`
	CachePath string          `json:"cachePath,omitempty" yaml:"cache_path,omitempty" jsonschema:"title=Cache Path,description=DuckDB cache file; empty disables caching"`
	PoolSize  int             `json:"poolSize,omitempty" yaml:"pool_size,omitempty" jsonschema:"title=Pool Size,description=Simultaneous provider session limit,minimum=1,maximum=32" validate:"omitempty,min=1,max=32"`
}

// Validate validates the client config, including the nested provider
// settings.
func (c *ClientConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client config", err)
	}

	return nil
}

// RequestConfig is the YAML form of one sync request. Times and durations
// stay strings here and are parsed by ToRequest.
type RequestConfig struct {
	SecurityType types.SecurityType `json:"securityType" yaml:"security_type" jsonschema:"title=Security Type,description=Instrument class of the contract" validate:"required"`
	Symbol       string             `json:"symbol" yaml:"symbol" jsonschema:"title=Symbol,description=Ticker symbol to sync" validate:"required"`
	BarSize      string             `json:"barSize" yaml:"bar_size" jsonschema:"title=Bar Size,description=Width of one bar such as 5m or 1d" validate:"required"`
	Duration     string             `json:"duration,omitempty" yaml:"duration,omitempty" jsonschema:"title=Duration,description=How far back from the end the request reaches such as 10d or 1Y"`
	Start        string             `json:"start,omitempty" yaml:"start,omitempty" jsonschema:"title=Start,description=Window start (RFC3339 or 2006-01-02) overriding Duration"`
	End          string             `json:"end,omitempty" yaml:"end,omitempty" jsonschema:"title=End,description=Window end (RFC3339 or 2006-01-02) defaulting to now"`
	DataType     types.DataType     `json:"dataType,omitempty" yaml:"data_type,omitempty" jsonschema:"title=Data Type,description=Series of the contract to request"`
	Exchange     string             `json:"exchange,omitempty" yaml:"exchange,omitempty" jsonschema:"title=Exchange,description=Routing exchange"`
	Currency     string             `json:"currency,omitempty" yaml:"currency,omitempty" jsonschema:"title=Currency,description=Contract currency"`
}

// ToRequest parses the config entry into a Request.
func (r RequestConfig) ToRequest() (Request, error) {
	barSize, err := types.ParseBarSize(r.BarSize)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		SecurityType: r.SecurityType,
		Symbol:       r.Symbol,
		BarSize:      barSize,
		DataType:     r.DataType,
		Exchange:     r.Exchange,
		Currency:     r.Currency,
	}

	if r.Duration != "" {
		dur, err := types.ParseTimeDur(r.Duration)
		if err != nil {
			return Request{}, err
		}

		req.Duration = dur
	}

	if req.Start, err = parseConfigTime(r.Start); err != nil {
		return Request{}, err
	}

	if req.End, err = parseConfigTime(r.End); err != nil {
		return Request{}, err
	}

	return req, nil
}

// SyncConfig is the YAML file a sync run is driven by: the client settings
// plus the requests to execute.
type SyncConfig struct {
	Provider  provider.Config `json:"provider" yaml:"provider" jsonschema:"title=Provider,description=Market data provider settings" validate:"required"`
	CachePath string          `json:"cachePath,omitempty" yaml:"cache_path,omitempty" jsonschema:"title=Cache Path,description=DuckDB cache file; empty disables caching"`
	PoolSize  int             `json:"poolSize,omitempty" yaml:"pool_size,omitempty" jsonschema:"title=Pool Size,description=Simultaneous provider session limit,minimum=1,maximum=32" validate:"omitempty,min=1,max=32"`
	Requests  []RequestConfig `json:"requests" yaml:"requests" jsonschema:"title=Requests,description=Series to synchronize" validate:"required,min=1,dive"`
}

// Validate validates the sync config.
func (c *SyncConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid sync config", err)
	}

	return nil
}

// ClientConfig returns the client portion of the file.
func (c *SyncConfig) ClientConfig() ClientConfig {
	return ClientConfig{
		Provider:  c.Provider,
		CachePath: c.CachePath,
		PoolSize:  c.PoolSize,
	}
}

// ParseSyncConfig parses a YAML configuration string into a SyncConfig.
func ParseSyncConfig(yamlConfig string) (*SyncConfig, error) {
	var config SyncConfig
	if err := yaml.Unmarshal([]byte(yamlConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse sync config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// GenerateSchema generates a JSON schema for the SyncConfig
func (c *SyncConfig) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if strings.Contains(t.String(), "types.SecurityType") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: securityTypeEnum(),
				}
			}

			if strings.Contains(t.String(), "types.DataType") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: dataTypeEnum(),
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "histdata-sync-config"
	schema.Description = "Configuration schema for historical bar sync runs"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the SyncConfig
func (c *SyncConfig) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// EmptySyncConfig returns a SyncConfig skeleton with one request. The schema
// generator marshals it into the sample file.
func EmptySyncConfig() SyncConfig {
	return SyncConfig{
		Provider:  provider.Config{Type: provider.ProviderBinance},
		CachePath: "histdata.db",
		Requests: []RequestConfig{
			{
				SecurityType: types.SecurityTypeStock,
				Symbol:       "AAPL",
				BarSize:      "1d",
				Duration:     "1Y",
				DataType:     types.DataTypeTrades,
			},
		},
	}
}

func securityTypeEnum() []any {
	all := types.AllSecurityTypes()

	out := make([]any, len(all))
	for i, s := range all {
		out[i] = string(s)
	}

	return out
}

func dataTypeEnum() []any {
	all := types.AllDataTypes()

	out := make([]any, len(all))
	for i, d := range all {
		out[i] = string(d)
	}

	return out
}

// parseConfigTime reads a config timestamp, accepting RFC3339 instants and
// bare 2006-01-02 dates (read as UTC midnight). Empty means unset.
func parseConfigTime(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, nil
	}

	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.Newf(errors.ErrCodeInvalidTimestamp,
		"unrecognized time %q, use RFC3339 or 2006-01-02", text)
}
