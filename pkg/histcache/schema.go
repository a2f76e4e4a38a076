package histcache

import (
	"fmt"

	"github.com/rxtech-lab/argo-histdata/pkg/types"
)

// barColumns is the insert column list shared by every bar table.
const barColumns = "Symbol, DataType, BarSize, TickerTime, opening, high, low, closing, volume, barcount, average"

// barTableDDL returns the CREATE TABLE statement for one security type.
// Each security type owns a table named after it; the four-column primary
// key makes inserts naturally idempotent.
func barTableDDL(secType types.SecurityType) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		Symbol VARCHAR NOT NULL,
		DataType VARCHAR NOT NULL,
		BarSize VARCHAR NOT NULL,
		TickerTime TIMESTAMP NOT NULL,
		opening DECIMAL(18, 6),
		high DECIMAL(18, 6),
		low DECIMAL(18, 6),
		closing DECIMAL(18, 6),
		volume UBIGINT,
		barcount UBIGINT,
		average DECIMAL(18, 6),
		PRIMARY KEY (Symbol, DataType, BarSize, TickerTime)
	)`, secType)
}

const schemaInfoDDL = `CREATE TABLE IF NOT EXISTS schema_info (
	name VARCHAR PRIMARY KEY,
	value VARCHAR
)`

const schemaVersionKey = "schema_version"
