package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"portfolioStress/internal/finance"
)

const dateLayout = "2006-01-02"

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Close() error
}

// PriceStore keeps a price history in long format, one row per (date, asset).
// Asset column order is the order in which assets were first inserted.
type PriceStore struct {
	db     DB
	source string
}

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(ctx context.Context, db DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS prices(
		date TEXT NOT NULL, asset TEXT NOT NULL, price REAL,
		PRIMARY KEY(date, asset)
	)`)
	return err
}

func NewPriceStore(db DB, source string) *PriceStore { return &PriceStore{db: db, source: source} }

// SaveSeries replaces the stored history with series.
func (s *PriceStore) SaveSeries(ctx context.Context, series *finance.PriceSeries) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM prices`); err != nil {
		return fmt.Errorf("failed to clear prices: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO prices(date,asset,price) VALUES(?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, day := range series.Days {
		date := day.Date.Format(dateLayout)
		for a, asset := range series.Assets {
			if _, err := stmt.ExecContext(ctx, date, asset, day.Prices[a]); err != nil {
				return fmt.Errorf("failed to insert %s %s: %w", date, asset, err)
			}
		}
	}
	return tx.Commit()
}

// Load pivots the stored rows back into a PriceSeries.
func (s *PriceStore) Load(ctx context.Context) (*finance.PriceSeries, error) {
	var exists int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='prices'`, &exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, &finance.DataNotFoundError{Source: s.source, Cause: errors.New("no prices table")}
	}

	assets, err := s.assets(ctx)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, &finance.DataNotFoundError{Source: s.source, Cause: errors.New("prices table is empty")}
	}
	position := make(map[string]int, len(assets))
	for i, a := range assets {
		position[a] = i
	}

	rows, err := s.db.QueryContext(ctx, `SELECT date, asset, price FROM prices ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var days []finance.TradingDay
	var filled []int
	var current string
	for rows.Next() {
		var date, asset string
		var price sql.NullFloat64
		if err := rows.Scan(&date, &asset, &price); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		if !price.Valid {
			return nil, &finance.SchemaError{Source: s.source, Reason: fmt.Sprintf("%s: null price for %s", date, asset)}
		}
		if date != current || len(days) == 0 {
			t, err := finance.ParseDate(date)
			if err != nil {
				return nil, &finance.SchemaError{Source: s.source, Reason: err.Error()}
			}
			days = append(days, finance.TradingDay{Date: t, Prices: make([]float64, len(assets))})
			filled = append(filled, 0)
			current = date
		}
		last := len(days) - 1
		days[last].Prices[position[asset]] = price.Float64
		filled[last]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prices: %w", err)
	}

	for i, n := range filled {
		if n != len(assets) {
			return nil, &finance.SchemaError{Source: s.source, Reason: fmt.Sprintf(
				"%s: %d of %d asset prices present", days[i].Date.Format(dateLayout), n, len(assets))}
		}
	}
	return finance.NewPriceSeries(s.source, assets, days)
}

func (s *PriceStore) assets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT asset FROM prices GROUP BY asset ORDER BY MIN(rowid)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PriceStore) queryRow(ctx context.Context, query string, dest any) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return fmt.Errorf("query returned no rows: %s", query)
	}
	if err := rows.Scan(dest); err != nil {
		return err
	}
	return rows.Err()
}

// Source reads a price history from an existing SQLite file.
type Source struct {
	Path string
}

func (s Source) Load(ctx context.Context) (*finance.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &finance.DataNotFoundError{Source: s.Path}
		}
		return nil, fmt.Errorf("failed to stat %s: %w", s.Path, err)
	}
	db, err := OpenSQLite("file:" + s.Path + "?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	defer db.Close()
	return NewPriceStore(db, s.Path).Load(ctx)
}

// Save creates or replaces the price history in the SQLite file at path.
func Save(ctx context.Context, path string, series *finance.PriceSeries) error {
	db, err := OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer db.Close()
	if err := InitSchema(ctx, db); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return NewPriceStore(db, path).SaveSeries(ctx, series)
}
