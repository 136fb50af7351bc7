package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"retaildw/internal/table"
)

// Dialect captures the SQL differences between backends so the load logic
// itself is shared: type names, placeholder syntax, identifier quoting and
// the parameter budget that bounds the insert batch size.
type Dialect struct {
	IntType   string
	FloatType string
	TextType  string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// Quote renders an identifier.
	Quote func(ident string) string

	// MaxParams bounds bind parameters per statement.
	MaxParams int
}

// QuestionPlaceholder renders ? regardless of position.
func QuestionPlaceholder(int) string { return "?" }

// QuoteANSI double-quotes an identifier, escaping embedded quotes.
func QuoteANSI(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// SQLLoader implements Loader on top of database/sql for every backend;
// the Dialect carries the per-backend differences.
type SQLLoader struct {
	db *sql.DB
	d  Dialect
}

// NewSQLLoader wraps an open handle with a dialect.
func NewSQLLoader(db *sql.DB, d Dialect) *SQLLoader {
	return &SQLLoader{db: db, d: d}
}

// DB exposes the underlying handle for analytical queries.
func (l *SQLLoader) DB() *sql.DB { return l.db }

// Close releases the handle.
func (l *SQLLoader) Close() { _ = l.db.Close() }

// ReplaceTable drops, recreates and refills the named table from t.
func (l *SQLLoader) ReplaceTable(ctx context.Context, name string, t *table.Table) error {
	if name == "" {
		return fmt.Errorf("warehouse: empty table name")
	}
	cols := Infer(t)

	qname := l.d.Quote(name)
	if _, err := l.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+qname); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := l.db.ExecContext(ctx, l.createSQL(qname, cols)); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := l.insert(ctx, qname, t, cols); err != nil {
		return fmt.Errorf("insert %s: %w", name, err)
	}
	return nil
}

func (l *SQLLoader) createSQL(qname string, cols []Column) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(qname)
	sb.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(l.d.Quote(c.Name))
		sb.WriteByte(' ')
		switch c.Type {
		case TypeInt:
			sb.WriteString(l.d.IntType)
		case TypeFloat:
			sb.WriteString(l.d.FloatType)
		default:
			sb.WriteString(l.d.TextType)
		}
	}
	sb.WriteString(")")
	return sb.String()
}

func (l *SQLLoader) insert(ctx context.Context, qname string, t *table.Table, cols []Column) error {
	if t.Len() == 0 || len(cols) == 0 {
		return nil
	}

	batch := l.d.MaxParams / len(cols)
	if batch < 1 {
		batch = 1
	}
	if batch > 500 {
		batch = 500
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = l.d.Quote(c.Name)
	}
	prefix := "INSERT INTO " + qname + " (" + strings.Join(quoted, ", ") + ") VALUES "

	for start := 0; start < t.Len(); start += batch {
		end := start + batch
		if end > t.Len() {
			end = t.Len()
		}

		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]any, 0, (end-start)*len(cols))
		n := 0
		for ri := start; ri < end; ri++ {
			if ri > start {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			row := t.Rows[ri]
			for ci, c := range cols {
				if ci > 0 {
					sb.WriteString(", ")
				}
				n++
				sb.WriteString(l.d.Placeholder(n))
				var cell any
				if ci < len(row) {
					cell = row[ci]
				}
				args = append(args, Arg(cell, c.Type))
			}
			sb.WriteByte(')')
		}

		if _, err := l.db.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("rows %d..%d: %w", start, end-1, err)
		}
	}
	return nil
}

// DollarPlaceholder renders $n bind parameters.
func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }
