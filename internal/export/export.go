// Package export reads the loaded warehouse and writes the KPI JSON
// documents the presentation layer consumes. Exports run after the
// quality gate and are advisory: a failed export is logged by the
// orchestrator, never fatal to the run.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Export output filenames.
const (
	FileRetailSales      = "retail_sales.json"
	FileStorePerformance = "store_performance.json"
	FileEcommerce        = "ecommerce.json"
)

// Exporter runs analytical queries against a loaded warehouse and writes
// one JSON document per star schema.
type Exporter struct {
	db     *sql.DB
	outDir string
	log    zerolog.Logger
}

// NewExporter returns an Exporter querying db and writing to outDir.
func NewExporter(db *sql.DB, outDir string, log zerolog.Logger) *Exporter {
	return &Exporter{db: db, outDir: outDir, log: log}
}

// Run writes every KPI document. Each document is attempted even when an
// earlier one fails; the joined error reports all failures.
func (e *Exporter) Run(ctx context.Context) error {
	var errs []error
	for _, doc := range []struct {
		file  string
		build func(context.Context) error
	}{
		{FileRetailSales, e.RetailSales},
		{FileStorePerformance, e.StorePerformance},
		{FileEcommerce, e.Ecommerce},
	} {
		if err := doc.build(ctx); err != nil {
			e.log.Warn().Str("export", doc.file).Err(err).Msg("export failed")
			errs = append(errs, fmt.Errorf("%s: %w", doc.file, err))
			continue
		}
		e.log.Info().Str("export", doc.file).Msg("export written")
	}
	return errors.Join(errs...)
}

func (e *Exporter) writeJSON(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(e.outDir, name)
	tmp, err := os.CreateTemp(e.outDir, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// queryRows runs a query and feeds each row to scan.
func (e *Exporter) queryRows(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) error {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
