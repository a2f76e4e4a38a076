package types

// SecurityType identifies the instrument class of a contract. The cache store
// keeps one table per security type.
type SecurityType string

const (
	SecurityTypeStock         SecurityType = "Stock"
	SecurityTypeOption        SecurityType = "Option"
	SecurityTypeFuture        SecurityType = "Future"
	SecurityTypeForex         SecurityType = "Forex"
	SecurityTypeIndex         SecurityType = "Index"
	SecurityTypeCFD           SecurityType = "CFD"
	SecurityTypeCommodity     SecurityType = "Commodity"
	SecurityTypeBond          SecurityType = "Bond"
	SecurityTypeFuturesOption SecurityType = "FuturesOption"
	SecurityTypeMutualFund    SecurityType = "MutualFund"
	SecurityTypeWarrant       SecurityType = "Warrant"
)

// AllSecurityTypes returns every supported security type, in table
// provisioning order.
func AllSecurityTypes() []SecurityType {
	return []SecurityType{
		SecurityTypeIndex,
		SecurityTypeStock,
		SecurityTypeOption,
		SecurityTypeFuture,
		SecurityTypeCommodity,
		SecurityTypeFuturesOption,
		SecurityTypeForex,
		SecurityTypeBond,
		SecurityTypeMutualFund,
		SecurityTypeCFD,
		SecurityTypeWarrant,
	}
}

// Valid reports whether s is a supported security type.
func (s SecurityType) Valid() bool {
	for _, t := range AllSecurityTypes() {
		if s == t {
			return true
		}
	}

	return false
}

func (s SecurityType) String() string {
	return string(s)
}
