// Package postgres loads the warehouse into a shared PostgreSQL instance
// for teams querying the galaxy schema with external BI tooling.
package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"retaildw/internal/warehouse"
)

func init() {
	warehouse.Register("postgres", New)
}

var dialect = warehouse.Dialect{
	IntType:     "BIGINT",
	FloatType:   "DOUBLE PRECISION",
	TextType:    "TEXT",
	Placeholder: warehouse.DollarPlaceholder,
	Quote:       warehouse.QuoteANSI,
	// Postgres protocol limit is 65535 binds per statement.
	MaxParams: 65535,
}

// New connects with the pgx stdlib driver.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Loader, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return warehouse.NewSQLLoader(db, dialect), nil
}
