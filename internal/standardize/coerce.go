package standardize

import (
	"strings"
	"time"

	"retaildw/internal/table"
)

// coerceDate parses a cell with the given layout. Unparseable values become
// nil, never errors: malformed dates surface later as null-ratio findings.
func coerceDate(v any, layout string) any {
	s, ok := table.String(v)
	if !ok || s == "" {
		return nil
	}
	ts, err := time.Parse(layout, s)
	if err != nil {
		return nil
	}
	return ts
}

// coerceFloat parses a cell as float64; unparseable values become nil.
func coerceFloat(v any) any {
	f, ok := table.Float(v)
	if !ok {
		return nil
	}
	return f
}

// coerceFlag maps yes/true/1 (case-insensitive) to 1 and everything else,
// including nil, to 0. Flags are stored as 0/1 integers in the standardized
// layer.
func coerceFlag(v any) any {
	s, ok := table.String(v)
	if !ok {
		return int64(0)
	}
	switch strings.ToLower(s) {
	case "yes", "true", "1", "y":
		return int64(1)
	default:
		return int64(0)
	}
}
