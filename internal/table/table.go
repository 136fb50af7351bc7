// Package table provides the in-memory table model shared by every pipeline
// stage: an ordered column list plus positional rows.
//
// Ownership contract:
//   - Each stage produces new Tables and never mutates a Table it received.
//   - Files are replaced wholesale (temp file + rename); a written table is
//     either the full new dataset or absent.
package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMissingSource marks a required input file that does not exist. Builders
// wrap it with the source name; callers check errors.Is and skip the one
// dependent output instead of aborting the run.
var ErrMissingSource = errors.New("source table missing")

// Table is an ordered set of columns with positional rows. Cell values are
// nil (missing), string, int64, float64 or time.Time.
type Table struct {
	Columns []string
	Rows    [][]any

	colIdx map[string]int
}

// New returns an empty table with the given column order.
func New(columns ...string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.colIdx = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.colIdx[c] = i
	}
}

// Col returns the index of a column, or -1 when absent.
func (t *Table) Col(name string) int {
	if t.colIdx == nil {
		t.reindex()
	}
	if i, ok := t.colIdx[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool { return t.Col(name) >= 0 }

// Len returns the row count.
func (t *Table) Len() int { return len(t.Rows) }

// Append adds a row. The row must match the column count.
func (t *Table) Append(row []any) {
	t.Rows = append(t.Rows, row)
}

// Value returns the cell for a column in the given row, or nil when the
// column is absent.
func (t *Table) Value(row []any, column string) any {
	i := t.Col(column)
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

// Select returns a new table restricted to the given columns, in the given
// order. Columns absent from the source become all-nil columns, so callers
// can declare a fixed output schema without probing first.
func (t *Table) Select(columns ...string) *Table {
	out := New(columns...)
	src := make([]int, len(columns))
	for i, c := range columns {
		src[i] = t.Col(c)
	}
	out.Rows = make([][]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		dst := make([]any, len(columns))
		for i, si := range src {
			if si >= 0 && si < len(row) {
				dst[i] = row[si]
			}
		}
		out.Rows = append(out.Rows, dst)
	}
	return out
}

// Rename returns a new table with columns renamed per mapping. Unmapped
// columns keep their names; rows are shared, not copied, because renaming
// never changes cell values.
func (t *Table) Rename(mapping map[string]string) *Table {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if n, ok := mapping[c]; ok {
			cols[i] = n
		} else {
			cols[i] = c
		}
	}
	out := New(cols...)
	out.Rows = t.Rows
	return out
}

// DropDuplicates returns a new table keeping the first row per distinct
// value combination of the key columns. Rows whose key columns are all nil
// are kept only once as well (keyed on the empty string).
func (t *Table) DropDuplicates(keyColumns ...string) *Table {
	idx := make([]int, len(keyColumns))
	for i, c := range keyColumns {
		idx[i] = t.Col(c)
	}

	out := New(t.Columns...)
	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		var b strings.Builder
		for _, ci := range idx {
			if ci >= 0 && ci < len(row) {
				b.WriteString(Key(row[ci]))
			}
			b.WriteByte('\x1f')
		}
		k := b.String()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// WithKeyColumn returns a new table with an integer key column prepended,
// valued 1..N by row position. Surrogate and fact primary keys are assigned
// this way: stable within a build, rebuilt from scratch every run.
func (t *Table) WithKeyColumn(name string) *Table {
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, name)
	cols = append(cols, t.Columns...)

	out := New(cols...)
	out.Rows = make([][]any, 0, len(t.Rows))
	for i, row := range t.Rows {
		dst := make([]any, 0, len(cols))
		dst = append(dst, int64(i+1))
		dst = append(dst, row...)
		out.Rows = append(out.Rows, dst)
	}
	return out
}

// WithColumn returns a new table carrying the named column, computed per row
// by fn (which receives the source row). An existing column of the same name
// is replaced in place; a new column is appended.
func (t *Table) WithColumn(name string, fn func(row []any) any) *Table {
	existing := t.Col(name)
	cols := append([]string(nil), t.Columns...)
	if existing < 0 {
		cols = append(cols, name)
	}
	out := New(cols...)
	out.Rows = make([][]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		dst := make([]any, len(cols))
		copy(dst, row)
		if existing >= 0 {
			dst[existing] = fn(row)
		} else {
			dst[len(cols)-1] = fn(row)
		}
		out.Rows = append(out.Rows, dst)
	}
	return out
}

// Key converts a cell value to a canonical string for joins, dedupe and
// lookup caches. Backends and builders must not assume a particular cell
// type; this helper keeps key comparisons consistent across stages.
func Key(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case time.Time:
		return t.Format("2006-01-02")
	case []byte:
		return strings.TrimSpace(string(t))
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Float coerces a cell to float64. Unparseable or nil cells report ok=false.
func Float(v any) (f float64, ok bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Int coerces a cell to int64. Floats truncate; unparseable cells report
// ok=false.
func Int(v any) (n int64, ok bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// String coerces a cell to a trimmed string; nil reports ok=false.
func String(v any) (s string, ok bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return strings.TrimSpace(t), true
	case []byte:
		return strings.TrimSpace(string(t)), true
	default:
		return strings.TrimSpace(fmt.Sprint(v)), true
	}
}
