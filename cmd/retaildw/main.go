// Command retaildw builds and validates the retail galaxy-schema
// warehouse from cleaned CSV extracts.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"retaildw/internal/config"
	"retaildw/internal/export"
	"retaildw/internal/logging"
	"retaildw/internal/metrics"
	"retaildw/internal/metrics/datadog"
	"retaildw/internal/pipeline"
	"retaildw/internal/quality"
	"retaildw/internal/warehouse"

	// Registered warehouse backends.
	_ "retaildw/internal/warehouse/duckdb"
	_ "retaildw/internal/warehouse/mssql"
	_ "retaildw/internal/warehouse/postgres"
	_ "retaildw/internal/warehouse/sqlite"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "retaildw:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg config.Config
	log zerolog.Logger

	configPath string
	dataDir    string
	whKind     string
	whDSN      string
	gateMode   string
	logLevel   string
	logPretty  bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "retaildw",
		Short:         "Batch pipeline building the retail galaxy-schema warehouse",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to YAML config file")
	pf.StringVar(&a.dataDir, "data-dir", "", "data root directory (overrides config)")
	pf.StringVar(&a.whKind, "warehouse", "", "warehouse backend: sqlite, duckdb, postgres, mssql")
	pf.StringVar(&a.whDSN, "dsn", "", "warehouse DSN")
	pf.StringVar(&a.gateMode, "gate", "", "quality gate mode: warn or fail")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.BoolVar(&a.logPretty, "pretty", false, "human-readable console logging")

	root.AddCommand(newRunCmd(a), newQualityCmd(a), newExportCmd(a))
	return root
}

// setup loads the config and applies any CLI flag overrides on top.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = a.dataDir
		cfg.RawDir, cfg.CleanDir, cfg.StdDir = "", "", ""
		cfg.DimDir, cfg.FactDir, cfg.ExportDir, cfg.ReportPath = "", "", "", ""
		if cfg.Warehouse.Kind == "sqlite" {
			cfg.Warehouse.DSN = ""
		}
		cfg.Derive()
	}
	if a.whKind != "" {
		cfg.Warehouse.Kind = a.whKind
	}
	if a.whDSN != "" {
		cfg.Warehouse.DSN = a.whDSN
	}
	if a.gateMode != "" {
		cfg.Quality.GateMode = a.gateMode
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Log.Pretty = a.logPretty
	}

	a.cfg = cfg
	a.log = logging.New(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	return nil
}

// backend builds the configured metrics backend, Nop when disabled.
func (a *app) backend(cmd *cobra.Command) (metrics.Backend, error) {
	if !a.cfg.Metrics.Enabled {
		return metrics.Nop{}, nil
	}
	return datadog.NewBackend(cmd.Context(), datadog.Options{
		JobName:    a.cfg.Metrics.JobName,
		Tags:       datadog.ParseTagsCSV(a.cfg.Metrics.Tags),
		FlushEvery: time.Duration(a.cfg.Metrics.FlushSeconds) * time.Second,
	})
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: standardize, build, load, gate, export",
		RunE: func(cmd *cobra.Command, args []string) error {
			mx, err := a.backend(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := mx.Close(); err != nil {
					a.log.Warn().Err(err).Msg("metrics flush failed")
				}
			}()

			return pipeline.New(a.cfg, a.log, mx).Run(cmd.Context())
		},
	}
}

func newQualityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quality",
		Short: "Run the validation suite standalone and write the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			suite := quality.NewSuite(quality.SuiteConfig{
				RawDir:       a.cfg.RawDir,
				CleanDir:     a.cfg.CleanDir,
				StdDir:       a.cfg.StdDir,
				DimDir:       a.cfg.DimDir,
				FactDir:      a.cfg.FactDir,
				RawRowFloor:  a.cfg.Quality.RawRowFloor,
				MaxNullRatio: a.cfg.Quality.MaxNullRatio,
			}, a.log)

			report := suite.Run()
			if err := report.WriteJSON(a.cfg.ReportPath); err != nil {
				return err
			}
			a.log.Info().Str("report", a.cfg.ReportPath).Str("pass_rate", report.Summarize().PassRate).Msg("quality report written")

			return quality.NewGate(a.cfg.Quality.GateMode, a.log).Enforce(report)
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Re-run the KPI exports from an existing warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := warehouse.New(cmd.Context(), warehouse.Config{
				Kind: a.cfg.Warehouse.Kind,
				DSN:  a.cfg.Warehouse.DSN,
			})
			if err != nil {
				return err
			}
			defer loader.Close()

			return export.NewExporter(loader.DB(), a.cfg.ExportDir, a.log).Run(cmd.Context())
		},
	}
}
