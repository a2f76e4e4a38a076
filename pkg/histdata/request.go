// Package histdata synchronizes historical bar series between market data
// providers and a local cache. A sync call plans the gaps between what a
// request needs and what the cache holds, downloads only the missing
// stretches, and returns the merged series trimmed to the requested window.
package histdata

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/provider"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// Request asks for one series of historical bars. The window is either the
// explicit [Start, End] interval or, when Start is zero, the Duration
// reaching back from End. A zero End means now.
type Request struct {
	SecurityType types.SecurityType `json:"securityType" validate:"required"`
	Symbol       string             `json:"symbol" validate:"required"`
	BarSize      types.BarSize      `json:"barSize" validate:"required"`
	Duration     types.TimeDur      `json:"duration,omitempty"`
	Start        time.Time          `json:"start,omitempty"`
	End          time.Time          `json:"end,omitempty"`
	DataType     types.DataType     `json:"dataType,omitempty"`
	Exchange     string             `json:"exchange,omitempty"`
	Currency     string             `json:"currency,omitempty"`
}

// normalize fills the defaults a caller may omit: trade bars routed SMART in
// USD, ending now. The bar size label is canonicalized so "5 mins" and "5m"
// name the same series.
func (r Request) normalize(now time.Time) Request {
	if r.DataType == "" {
		r.DataType = types.DataTypeTrades
	}

	if r.Exchange == "" {
		r.Exchange = "SMART"
	}

	if r.Currency == "" {
		r.Currency = "USD"
	}

	if r.End.IsZero() {
		r.End = now.UTC()
	}

	if normalized, err := types.ParseBarSize(string(r.BarSize)); err == nil {
		r.BarSize = normalized
	}

	return r
}

// Validate validates the request. Format errors surface here, before any
// concurrent work starts.
func (r Request) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid request", err)
	}

	if !r.SecurityType.Valid() {
		return errors.Newf(errors.ErrCodeInvalidSecurityType,
			"unsupported security type %q", r.SecurityType)
	}

	if !r.DataType.Valid() {
		return errors.Newf(errors.ErrCodeInvalidDataType,
			"unsupported data type %q", r.DataType)
	}

	if _, err := r.BarSize.TimeDur(); err != nil {
		return err
	}

	if r.Start.IsZero() && r.Duration.IsZero() {
		return errors.New(errors.ErrCodeMissingParameter,
			"request needs a Start or a Duration")
	}

	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return errors.Newf(errors.ErrCodeInvalidTimeRange,
			"end %s precedes start %s",
			r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}

	return nil
}

// contract returns the instrument descriptor providers work with.
func (r Request) contract() provider.Contract {
	return provider.Contract{
		SecurityType: r.SecurityType,
		Symbol:       r.Symbol,
		Exchange:     r.Exchange,
		Currency:     r.Currency,
	}
}
