// Package sqlite is the default warehouse backend: a zero-setup embedded
// file database, good for the single-writer batch loads this pipeline
// performs.
package sqlite

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"retaildw/internal/warehouse"
)

func init() {
	warehouse.Register("sqlite", New)
}

var dialect = warehouse.Dialect{
	IntType:     "INTEGER",
	FloatType:   "REAL",
	TextType:    "TEXT",
	Placeholder: warehouse.QuestionPlaceholder,
	Quote:       warehouse.QuoteANSI,
	// SQLite's historical default bind limit.
	MaxParams: 999,
}

// New opens the SQLite database at the DSN path, creating it when absent.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Loader, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return warehouse.NewSQLLoader(db, dialect), nil
}
