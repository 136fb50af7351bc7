// Package quality validates pipeline outputs stage by stage and folds the
// results into a single run report consumed by the gate.
package quality

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"retaildw/internal/table"
)

// Pipeline stages a check can be attributed to.
const (
	StageRaw    = "raw"
	StageSilver = "silver"
	StageGolden = "golden"
)

// CheckResult is the outcome of one check against one table or file.
// Details carries structured counts as native scalars so the result
// serializes cleanly.
type CheckResult struct {
	CheckName string         `json:"check_name"`
	Stage     string         `json:"stage"`
	Table     string         `json:"table"`
	Passed    bool           `json:"passed"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Checker runs individual checks and accumulates their results in a
// report. Each check method is independently invocable.
type Checker struct {
	report *Report
	log    zerolog.Logger
}

// NewChecker returns a Checker accumulating into report.
func NewChecker(report *Report, log zerolog.Logger) *Checker {
	return &Checker{report: report, log: log}
}

func (c *Checker) add(res CheckResult) CheckResult {
	res.Timestamp = time.Now().UTC()
	c.report.Add(res)
	ev := c.log.Debug()
	if !res.Passed {
		ev = c.log.Warn()
	}
	ev.Str("check", res.CheckName).Str("stage", res.Stage).
		Str("table", res.Table).Bool("passed", res.Passed).Msg(res.Message)
	return res
}

// FileExists checks that a stage input or output file is present on disk.
func (c *Checker) FileExists(stage, dir, file string) CheckResult {
	path := filepath.Join(dir, file)
	_, err := os.Stat(path)
	return c.add(CheckResult{
		CheckName: "file_exists",
		Stage:     stage,
		Table:     file,
		Passed:    err == nil,
		Message:   existsMessage(path, err),
	})
}

func existsMessage(path string, err error) string {
	if err == nil {
		return fmt.Sprintf("%s present", path)
	}
	return fmt.Sprintf("%s missing", path)
}

// RowCountFloor checks that a table carries at least floor rows.
func (c *Checker) RowCountFloor(stage string, t *table.Table, name string, floor int) CheckResult {
	return c.add(CheckResult{
		CheckName: "row_count",
		Stage:     stage,
		Table:     name,
		Passed:    t.Len() >= floor,
		Message:   fmt.Sprintf("%d rows (floor %d)", t.Len(), floor),
		Details:   map[string]any{"rows": t.Len(), "floor": floor},
	})
}

// NullRatio checks that the share of nil or blank cells in a critical
// column does not exceed maxRatio.
func (c *Checker) NullRatio(stage string, t *table.Table, name, column string, maxRatio float64) CheckResult {
	nulls := 0
	for _, row := range t.Rows {
		if table.Key(t.Value(row, column)) == "" {
			nulls++
		}
	}
	ratio := 0.0
	if t.Len() > 0 {
		ratio = float64(nulls) / float64(t.Len())
	}
	return c.add(CheckResult{
		CheckName: "null_ratio:" + column,
		Stage:     stage,
		Table:     name,
		Passed:    ratio <= maxRatio,
		Message:   fmt.Sprintf("%s null ratio %.3f (max %.3f)", column, ratio, maxRatio),
		Details:   map[string]any{"column": column, "null_count": nulls, "null_ratio": ratio, "max_ratio": maxRatio},
	})
}

// UniqueKey checks that the key columns form a primary key: no duplicate
// combinations and no null key parts.
func (c *Checker) UniqueKey(stage string, t *table.Table, name string, keyColumns ...string) CheckResult {
	seen := make(map[string]struct{}, t.Len())
	dups, nulls := 0, 0
	for _, row := range t.Rows {
		var sb strings.Builder
		empty := true
		for i, col := range keyColumns {
			if i > 0 {
				sb.WriteByte('\x1f')
			}
			k := table.Key(t.Value(row, col))
			if k != "" {
				empty = false
			}
			sb.WriteString(k)
		}
		if empty {
			nulls++
			continue
		}
		k := sb.String()
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return c.add(CheckResult{
		CheckName: "unique_key:" + strings.Join(keyColumns, "+"),
		Stage:     stage,
		Table:     name,
		Passed:    dups == 0 && nulls == 0,
		Message:   fmt.Sprintf("%d duplicate, %d null key rows", dups, nulls),
		Details:   map[string]any{"duplicate_count": dups, "null_count": nulls},
	})
}

// ForeignKey checks referential integrity of one fact foreign-key column
// against a dimension primary key. Sentinel (-1) values and true orphans
// (non-sentinel values absent from the dimension) are counted separately;
// either count being nonzero fails the check, but they are distinct
// defects: an orphan means data loss, a sentinel means an unresolved
// lookup was deliberately kept.
func (c *Checker) ForeignKey(stage string, fact *table.Table, factName, fkColumn string, dim *table.Table, pkColumn string) CheckResult {
	pks := make(map[int64]struct{}, dim.Len())
	for _, row := range dim.Rows {
		if k, ok := table.Int(dim.Value(row, pkColumn)); ok {
			pks[k] = struct{}{}
		}
	}

	sentinels, orphans := 0, 0
	for _, row := range fact.Rows {
		fk, ok := table.Int(fact.Value(row, fkColumn))
		if !ok {
			orphans++
			continue
		}
		if fk == -1 {
			sentinels++
			continue
		}
		if _, member := pks[fk]; !member {
			orphans++
		}
	}
	return c.add(CheckResult{
		CheckName: "fk_integrity:" + fkColumn,
		Stage:     stage,
		Table:     factName,
		Passed:    sentinels == 0 && orphans == 0,
		Message:   fmt.Sprintf("%s: %d orphaned, %d sentinel of %d rows", fkColumn, orphans, sentinels, fact.Len()),
		Details:   map[string]any{"column": fkColumn, "orphan_count": orphans, "sentinel_count": sentinels, "rows": fact.Len()},
	})
}

// NumericRange checks that a numeric column stays within optional min/max
// bounds, counting violations per bound. Non-numeric cells are ignored.
func (c *Checker) NumericRange(stage string, t *table.Table, name, column string, min, max *float64) CheckResult {
	belowMin, aboveMax := 0, 0
	for _, row := range t.Rows {
		f, ok := table.Float(t.Value(row, column))
		if !ok {
			continue
		}
		if min != nil && f < *min {
			belowMin++
		}
		if max != nil && f > *max {
			aboveMax++
		}
	}
	details := map[string]any{"column": column, "below_min": belowMin, "above_max": aboveMax}
	if min != nil {
		details["min"] = *min
	}
	if max != nil {
		details["max"] = *max
	}
	return c.add(CheckResult{
		CheckName: "numeric_range:" + column,
		Stage:     stage,
		Table:     name,
		Passed:    belowMin == 0 && aboveMax == 0,
		Message:   fmt.Sprintf("%s: %d below min, %d above max", column, belowMin, aboveMax),
		Details:   details,
	})
}

// SchemaColumns checks that every expected column is present, reporting
// the missing set.
func (c *Checker) SchemaColumns(stage string, t *table.Table, name string, expected []string) CheckResult {
	missing := []string{}
	for _, col := range expected {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	return c.add(CheckResult{
		CheckName: "schema_columns",
		Stage:     stage,
		Table:     name,
		Passed:    len(missing) == 0,
		Message:   fmt.Sprintf("%d of %d expected columns missing", len(missing), len(expected)),
		Details:   map[string]any{"missing": missing, "expected": len(expected)},
	})
}
