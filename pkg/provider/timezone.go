package provider

import (
	"time"

	"github.com/rxtech-lab/argo-histdata/pkg/errors"
)

// tzAbbreviations maps common North American zone abbreviations, as
// returned by broker session metadata, to IANA zone names. Abbreviations
// are ambiguous worldwide, so only the trading zones we deal with are
// listed.
var tzAbbreviations = map[string]string{
	"AST":  "America/Halifax",
	"EST":  "America/New_York",
	"EDT":  "America/New_York",
	"CST":  "America/Chicago",
	"CDT":  "America/Chicago",
	"MST":  "America/Denver",
	"MDT":  "America/Denver",
	"PST":  "America/Los_Angeles",
	"PDT":  "America/Los_Angeles",
	"AKST": "America/Anchorage",
	"AKDT": "America/Anchorage",
	"HST":  "Pacific/Honolulu",
	"HAST": "Pacific/Honolulu",
	"HADT": "Pacific/Honolulu",
}

// ParseTimezone resolves a zone name to a location. It accepts both IANA
// names and the abbreviations brokers put in contract metadata.
func ParseTimezone(name string) (*time.Location, error) {
	if name == "" {
		return nil, errors.New(errors.ErrCodeMissingTimezone, "timezone name is empty")
	}

	if iana, ok := tzAbbreviations[name]; ok {
		name = iana
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeTimezoneLookupFailed, err, "unknown timezone %q", name)
	}

	return loc, nil
}
