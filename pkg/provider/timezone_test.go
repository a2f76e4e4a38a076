package provider

import (
	"testing"

	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type TimezoneTestSuite struct {
	suite.Suite
}

func TestTimezoneSuite(t *testing.T) {
	suite.Run(t, new(TimezoneTestSuite))
}

func (suite *TimezoneTestSuite) TestParseTimezone_Abbreviations() {
	cases := map[string]string{
		"EST":  "America/New_York",
		"EDT":  "America/New_York",
		"CST":  "America/Chicago",
		"MST":  "America/Denver",
		"PDT":  "America/Los_Angeles",
		"AKST": "America/Anchorage",
		"HST":  "Pacific/Honolulu",
		"AST":  "America/Halifax",
	}

	for abbrev, want := range cases {
		loc, err := ParseTimezone(abbrev)
		suite.Require().NoError(err)
		suite.Equal(want, loc.String())
	}
}

func (suite *TimezoneTestSuite) TestParseTimezone_IANANamesPassThrough() {
	loc, err := ParseTimezone("Europe/London")
	suite.Require().NoError(err)
	suite.Equal("Europe/London", loc.String())

	loc, err = ParseTimezone("UTC")
	suite.Require().NoError(err)
	suite.Equal("UTC", loc.String())
}

func (suite *TimezoneTestSuite) TestParseTimezone_Empty() {
	_, err := ParseTimezone("")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingTimezone))
}

func (suite *TimezoneTestSuite) TestParseTimezone_Unknown() {
	_, err := ParseTimezone("Mars/Olympus_Mons")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeTimezoneLookupFailed))
}
