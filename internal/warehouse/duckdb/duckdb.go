// Package duckdb is the columnar warehouse backend, preferred when the
// downstream KPI queries aggregate over large fact tables.
package duckdb

import (
	"context"
	"database/sql"

	_ "github.com/marcboeker/go-duckdb"

	"retaildw/internal/warehouse"
)

func init() {
	warehouse.Register("duckdb", New)
}

var dialect = warehouse.Dialect{
	IntType:     "BIGINT",
	FloatType:   "DOUBLE",
	TextType:    "VARCHAR",
	Placeholder: warehouse.QuestionPlaceholder,
	Quote:       warehouse.QuoteANSI,
	MaxParams:   16384,
}

// New opens the DuckDB database at the DSN path, creating it when absent.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Loader, error) {
	db, err := sql.Open("duckdb", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return warehouse.NewSQLLoader(db, dialect), nil
}
