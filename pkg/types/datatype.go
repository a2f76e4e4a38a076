package types

// DataType selects which series of a contract a historical bar describes,
// e.g. traded prices or the bid/ask midpoint.
type DataType string

const (
	DataTypeTrades            DataType = "TRADES"
	DataTypeMidpoint          DataType = "MIDPOINT"
	DataTypeBid               DataType = "BID"
	DataTypeAsk               DataType = "ASK"
	DataTypeBidAsk            DataType = "BID_ASK"
	DataTypeAdjustedLast      DataType = "ADJUSTED_LAST"
	DataTypeHistoricalVol     DataType = "HISTORICAL_VOLATILITY"
	DataTypeOptionImpliedVol  DataType = "OPTION_IMPLIED_VOLATILITY"
	DataTypeRebateRate        DataType = "REBATE_RATE"
	DataTypeFeeRate           DataType = "FEE_RATE"
	DataTypeYieldBid          DataType = "YIELD_BID"
	DataTypeYieldAsk          DataType = "YIELD_ASK"
	DataTypeYieldBidAsk       DataType = "YIELD_BID_ASK"
	DataTypeYieldLast         DataType = "YIELD_LAST"
)

// AllDataTypes returns every supported historical data type.
func AllDataTypes() []DataType {
	return []DataType{
		DataTypeTrades,
		DataTypeMidpoint,
		DataTypeBid,
		DataTypeAsk,
		DataTypeBidAsk,
		DataTypeAdjustedLast,
		DataTypeHistoricalVol,
		DataTypeOptionImpliedVol,
		DataTypeRebateRate,
		DataTypeFeeRate,
		DataTypeYieldBid,
		DataTypeYieldAsk,
		DataTypeYieldBidAsk,
		DataTypeYieldLast,
	}
}

// Valid reports whether d is a supported historical data type.
func (d DataType) Valid() bool {
	for _, t := range AllDataTypes() {
		if d == t {
			return true
		}
	}

	return false
}

func (d DataType) String() string {
	return string(d)
}
