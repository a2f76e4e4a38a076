package histcache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-histdata/internal/logger"
	"github.com/rxtech-lab/argo-histdata/internal/version"
	"github.com/rxtech-lab/argo-histdata/pkg/datablock"
	"github.com/rxtech-lab/argo-histdata/pkg/errors"
	"github.com/rxtech-lab/argo-histdata/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DuckDBStore keeps bar series in a DuckDB database file. Use ":memory:"
// as the path for an ephemeral cache.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBStore opens (or creates) the database at path and provisions
// the bar tables. Opening a cache written by an incompatible schema
// version fails with a SchemaVersionError.
func NewDuckDBStore(path string, l *logger.Logger) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeCacheInitFailed, err, "failed to open database at %s", path)
	}

	if _, err := db.Exec("SET memory_limit='4GB'; SET threads=4;"); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeCacheInitFailed, "failed to configure database", err)
	}

	store := &DuckDBStore{
		db:     db,
		logger: l,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// ensureSchema provisions the meta table and one bar table per security
// type, and rejects caches written by an incompatible build.
func (s *DuckDBStore) ensureSchema() error {
	if _, err := s.db.Exec(schemaInfoDDL); err != nil {
		return errors.Wrap(errors.ErrCodeCacheInitFailed, "failed to create schema_info table", err)
	}

	var stored string
	err := s.db.QueryRow("SELECT value FROM schema_info WHERE name = $1", schemaVersionKey).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec("INSERT INTO schema_info (name, value) VALUES ($1, $2)",
			schemaVersionKey, version.SchemaVersion); err != nil {
			return errors.Wrap(errors.ErrCodeCacheInitFailed, "failed to record schema version", err)
		}
	case err != nil:
		return errors.Wrap(errors.ErrCodeCacheInitFailed, "failed to read schema version", err)
	default:
		if err := version.CheckSchemaCompatibility(version.SchemaVersion, stored); err != nil {
			return errors.Wrap(errors.ErrCodeSchemaVersionMismatch,
				"cache schema is incompatible with this build",
				errors.NewSchemaVersionErrorf(stored, version.SchemaVersion, "%v", err))
		}
	}

	for _, secType := range types.AllSecurityTypes() {
		if _, err := s.db.Exec(barTableDDL(secType)); err != nil {
			return errors.Wrapf(errors.ErrCodeCacheInitFailed, err, "failed to create %s table", secType)
		}
	}
	return nil
}

// Query returns the cached bars of one series with
// start <= TickerTime <= end, expressed in start's timezone.
func (s *DuckDBStore) Query(ctx context.Context, secType types.SecurityType, symbol string,
	dataType types.DataType, barSize types.BarSize, start, end time.Time) (*datablock.Block, error) {
	query, args, err := s.sq.
		Select("TickerTime",
			"CAST(opening AS DOUBLE) AS opening",
			"CAST(high AS DOUBLE) AS high",
			"CAST(low AS DOUBLE) AS low",
			"CAST(closing AS DOUBLE) AS closing",
			"volume",
			"barcount",
			"CAST(average AS DOUBLE) AS average").
		From(string(secType)).
		Where(squirrel.And{
			squirrel.Eq{"Symbol": symbol, "DataType": string(dataType), "BarSize": string(barSize)},
			squirrel.GtOrEq{"TickerTime": start.UTC()},
			squirrel.LtOrEq{"TickerTime": end.UTC()},
		}).
		OrderBy("TickerTime ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query %s bars for %s", secType, symbol)
	}
	defer rows.Close()

	var recs []datablock.Record
	for rows.Next() {
		var (
			tickerTime                           time.Time
			opening, high, low, closing, average sql.NullFloat64
			volume, barCount                     sql.NullInt64
		)
		if err := rows.Scan(&tickerTime, &opening, &high, &low, &closing, &volume, &barCount, &average); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar row", err)
		}

		rec := datablock.Record{"TickerTime": tickerTime.UTC()}
		putFloat(rec, "opening", opening)
		putFloat(rec, "high", high)
		putFloat(rec, "low", low)
		putFloat(rec, "closing", closing)
		putInt(rec, "volume", volume)
		putInt(rec, "barcount", barCount)
		putFloat(rec, "average", average)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read bar rows", err)
	}

	block := datablock.New()
	if err := block.Update(recs, datablock.UpdateOptions{
		Symbol:   symbol,
		DataType: dataType,
		BarSize:  barSize,
		TZ:       time.UTC,
	}); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to assemble cached bars", err)
	}
	block.SetTimezone(start.Location())

	s.logger.Debug("queried cached bars",
		zap.String("security_type", string(secType)),
		zap.String("symbol", symbol),
		zap.String("bar_size", string(barSize)),
		zap.Int("bars", block.Len()))
	return block, nil
}

// putFloat sets col only when the scanned value was non-NULL, so NULL
// cells stay absent and come back as None.
func putFloat(rec datablock.Record, col string, v sql.NullFloat64) {
	if v.Valid {
		rec[col] = v.Float64
	}
}

func putInt(rec datablock.Record, col string, v sql.NullInt64) {
	if v.Valid {
		rec[col] = v.Int64
	}
}

// Insert persists a block's bars under the given security type. Existing
// rows keep their values; only new keys are written.
func (s *DuckDBStore) Insert(ctx context.Context, secType types.SecurityType, block *datablock.Block) error {
	if block == nil || block.Empty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to begin transaction", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", 11), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (%s) VALUES (%s)", secType, barColumns, placeholders))
	if err != nil {
		tx.Rollback()
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to prepare insert statement", err)
	}

	for _, bar := range block.Bars() {
		_, err := stmt.ExecContext(ctx,
			bar.Symbol,
			string(bar.DataType),
			string(bar.BarSize),
			bar.Time.UTC(),
			decimalArg(bar.Open),
			decimalArg(bar.High),
			decimalArg(bar.Low),
			decimalArg(bar.Close),
			countArg(bar.Volume),
			countArg(bar.BarCount),
			decimalArg(bar.Average))
		if err != nil {
			stmt.Close()
			tx.Rollback()
			return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err,
				"failed to insert %s bar at %s", bar.Symbol, bar.Time)
		}
	}

	if err := stmt.Close(); err != nil {
		tx.Rollback()
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to close insert statement", err)
	}
	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to commit inserts", err)
	}

	s.logger.Debug("inserted bars",
		zap.String("security_type", string(secType)),
		zap.Int("bars", block.Len()))
	return nil
}

// decimalArg converts an optional price cell to a driver argument,
// mapping None to NULL.
func decimalArg(v optional.Option[decimal.Decimal]) any {
	if v.IsNone() {
		return nil
	}
	return v.Unwrap().InexactFloat64()
}

func countArg(v optional.Option[int64]) any {
	if v.IsNone() {
		return nil
	}
	return v.Unwrap()
}

// Coverage summarizes every cached series across all security type tables.
func (s *DuckDBStore) Coverage(ctx context.Context) ([]CoverageRow, error) {
	var out []CoverageRow
	for _, secType := range types.AllSecurityTypes() {
		query, args, err := s.sq.
			Select("Symbol", "DataType", "BarSize",
				"COUNT(*) AS bars",
				"MIN(TickerTime) AS first_time",
				"MAX(TickerTime) AS last_time").
			From(string(secType)).
			GroupBy("Symbol", "DataType", "BarSize").
			OrderBy("Symbol ASC", "DataType ASC", "BarSize ASC").
			ToSql()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build coverage query", err)
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query %s coverage", secType)
		}
		for rows.Next() {
			row := CoverageRow{SecurityType: secType}
			var dataType, barSize string
			if err := rows.Scan(&row.Symbol, &dataType, &barSize, &row.Bars, &row.FirstTime, &row.LastTime); err != nil {
				rows.Close()
				return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan coverage row", err)
			}
			row.DataType = types.DataType(dataType)
			row.BarSize = types.BarSize(barSize)
			row.FirstTime = row.FirstTime.UTC()
			row.LastTime = row.LastTime.UTC()
			out = append(out, row)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read %s coverage", secType)
		}
		rows.Close()
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *DuckDBStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeCacheUnavailable, "failed to close database", err)
	}
	s.db = nil
	return nil
}
