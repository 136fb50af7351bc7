// Package pipeline sequences the warehouse build: standardize →
// dimensions → facts → warehouse load → quality gate → KPI export. The
// order is fixed; there is no retry or rollback beyond re-running the
// whole pipeline, which rebuilds every table from scratch.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"retaildw/internal/config"
	"retaildw/internal/dims"
	"retaildw/internal/export"
	"retaildw/internal/facts"
	"retaildw/internal/metrics"
	"retaildw/internal/quality"
	"retaildw/internal/standardize"
	"retaildw/internal/table"
	"retaildw/internal/warehouse"
)

// Pipeline runs the full build.
type Pipeline struct {
	cfg config.Config
	log zerolog.Logger
	mx  metrics.Backend
}

// New returns a Pipeline. mx may be metrics.Nop{}.
func New(cfg config.Config, log zerolog.Logger, mx metrics.Backend) *Pipeline {
	return &Pipeline{cfg: cfg, log: log, mx: mx}
}

// Run executes every stage in order. Builder-level gaps (missing sources)
// skip only their outputs; the returned error is non-nil for
// infrastructure failures and, when the gate mode is fail, for a failed
// quality report.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Logger()
	log.Info().Msg("pipeline run starting")

	err := p.stage(log, "standardize", func() error {
		_, err := standardize.New(p.cfg.CleanDir, p.cfg.StdDir, log).Run()
		return err
	})
	if err != nil {
		return fmt.Errorf("standardize: %w", err)
	}

	var dimTables map[string]*table.Table
	err = p.stage(log, "dimensions", func() error {
		var err error
		dimTables, err = dims.NewBuilder(p.cfg.StdDir, p.cfg.DimDir, log).BuildAll()
		return err
	})
	if err != nil {
		return fmt.Errorf("dimensions: %w", err)
	}

	var factTables map[string]*table.Table
	err = p.stage(log, "facts", func() error {
		var err error
		factTables, err = facts.NewBuilder(p.cfg.StdDir, p.cfg.DimDir, p.cfg.FactDir, log).BuildAll()
		return err
	})
	if err != nil {
		return fmt.Errorf("facts: %w", err)
	}

	loader, err := warehouse.New(ctx, warehouse.Config{Kind: p.cfg.Warehouse.Kind, DSN: p.cfg.Warehouse.DSN})
	if err != nil {
		return fmt.Errorf("warehouse: %w", err)
	}
	defer loader.Close()

	err = p.stage(log, "load", func() error {
		return p.load(ctx, log, loader, dimTables, factTables)
	})
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	var report *quality.Report
	err = p.stage(log, "quality", func() error {
		report = p.runQuality(log, runID)
		return report.WriteJSON(p.cfg.ReportPath)
	})
	if err != nil {
		return fmt.Errorf("quality: %w", err)
	}

	exportErr := p.stage(log, "export", func() error {
		return export.NewExporter(loader.DB(), p.cfg.ExportDir, log).Run(ctx)
	})
	if exportErr != nil {
		log.Warn().Err(exportErr).Msg("export errors (continuing)")
	}

	gate := quality.NewGate(p.cfg.Quality.GateMode, log)
	if err := gate.Enforce(report); err != nil {
		return err
	}

	log.Info().Msg("pipeline run finished")
	return nil
}

// load replaces one warehouse table per built dimension and fact CSV.
func (p *Pipeline) load(ctx context.Context, log zerolog.Logger, loader warehouse.Loader, groups ...map[string]*table.Table) error {
	for _, tables := range groups {
		for file, t := range tables {
			name := warehouse.TableName(file)
			if err := loader.ReplaceTable(ctx, name, t); err != nil {
				return err
			}
			p.mx.IncCounter(metrics.RowsTotal, float64(t.Len()), metrics.Labels{"table": name})
			log.Info().Str("table", name).Int("rows", t.Len()).Msg("table loaded")
		}
	}
	return nil
}

// runQuality runs the full validation suite, tags the report with the run
// ID and emits per-check counters.
func (p *Pipeline) runQuality(log zerolog.Logger, runID string) *quality.Report {
	suite := quality.NewSuite(quality.SuiteConfig{
		RawDir:       p.cfg.RawDir,
		CleanDir:     p.cfg.CleanDir,
		StdDir:       p.cfg.StdDir,
		DimDir:       p.cfg.DimDir,
		FactDir:      p.cfg.FactDir,
		RawRowFloor:  p.cfg.Quality.RawRowFloor,
		MaxNullRatio: p.cfg.Quality.MaxNullRatio,
	}, log)
	report := suite.Run()
	report.RunID = runID

	for _, res := range report.Results() {
		status := "passed"
		if !res.Passed {
			status = "failed"
		}
		p.mx.IncCounter(metrics.ChecksTotal, 1, metrics.Labels{"stage": res.Stage, "status": status})
	}
	return report
}

// stage runs one pipeline stage with duration logging and metrics.
func (p *Pipeline) stage(log zerolog.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	labels := metrics.Labels{"stage": name, "status": status}
	p.mx.IncCounter(metrics.StageTotal, 1, labels)
	p.mx.ObserveHistogram(metrics.StageDurationSeconds, elapsed.Seconds(), labels)

	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Str("stage", name).Dur("elapsed", elapsed).Msg("stage finished")
	return err
}
