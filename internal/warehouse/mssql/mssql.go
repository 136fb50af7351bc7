// Package mssql loads the warehouse into SQL Server, for deployments
// standardized on the Microsoft stack.
package mssql

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"retaildw/internal/warehouse"
)

func init() {
	warehouse.Register("mssql", New)
}

var dialect = warehouse.Dialect{
	IntType:     "BIGINT",
	FloatType:   "FLOAT",
	TextType:    "NVARCHAR(MAX)",
	Placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
	Quote:       quoteBracket,
	// SQL Server caps RPC parameters at 2100.
	MaxParams: 2000,
}

func quoteBracket(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

// New connects with the sqlserver driver.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Loader, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return warehouse.NewSQLLoader(db, dialect), nil
}
