package warehouse

import (
	"strconv"
	"strings"
	"time"

	"retaildw/internal/table"
)

// ColumnType is the abstract storage type of a loaded column. Backends
// map it to their own type names.
type ColumnType int

const (
	TypeInt ColumnType = iota
	TypeFloat
	TypeText
)

// Column pairs a column name with its inferred storage type.
type Column struct {
	Name string
	Type ColumnType
}

// Infer scans every cell of a table and assigns each column the narrowest
// type that holds all its non-nil values, promoting int → float → text.
// Tables that were round-tripped through CSV carry string cells; numeric-
// looking strings still infer as numeric so a reloaded table produces the
// same schema as a freshly built one. Columns with no non-nil cells load
// as text.
func Infer(t *table.Table) []Column {
	cols := make([]Column, len(t.Columns))
	seen := make([]bool, len(t.Columns))
	for i, name := range t.Columns {
		cols[i] = Column{Name: name, Type: TypeInt}
	}

	for _, row := range t.Rows {
		for i := range t.Columns {
			if i >= len(row) || row[i] == nil {
				continue
			}
			if cols[i].Type == TypeText && seen[i] {
				continue
			}
			ct := cellType(row[i])
			if !seen[i] || ct > cols[i].Type {
				cols[i].Type = ct
			}
			seen[i] = true
		}
	}

	for i := range cols {
		if !seen[i] {
			cols[i].Type = TypeText
		}
	}
	return cols
}

func cellType(v any) ColumnType {
	switch c := v.(type) {
	case int64, int:
		return TypeInt
	case float64:
		if c == float64(int64(c)) {
			return TypeInt
		}
		return TypeFloat
	case time.Time:
		return TypeText
	case string:
		s := strings.TrimSpace(c)
		if s == "" {
			return TypeText
		}
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			return TypeInt
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return TypeFloat
		}
		return TypeText
	default:
		return TypeText
	}
}

// Arg converts a cell to the driver value matching the inferred column
// type. Cells that do not convert load as NULL.
func Arg(v any, ct ColumnType) any {
	if v == nil {
		return nil
	}
	switch ct {
	case TypeInt:
		if n, ok := table.Int(v); ok {
			return n
		}
		return nil
	case TypeFloat:
		if f, ok := table.Float(v); ok {
			return f
		}
		return nil
	default:
		return table.Key(v)
	}
}
