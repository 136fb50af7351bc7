// Package config loads the immutable pipeline configuration: layer
// directories, warehouse selection, quality thresholds, gate mode and
// metrics options. Sources layer as defaults < YAML file < environment
// (RETAILDW_ prefix) < CLI flags applied by the command layer.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Warehouse selects and connects the analytical database.
type Warehouse struct {
	Kind string `mapstructure:"kind"`
	DSN  string `mapstructure:"dsn"`
}

// Quality carries the checker thresholds and the gate mode.
type Quality struct {
	RawRowFloor  int     `mapstructure:"raw_row_floor"`
	MaxNullRatio float64 `mapstructure:"max_null_ratio"`
	GateMode     string  `mapstructure:"gate_mode"`
}

// Metrics configures the optional Datadog backend.
type Metrics struct {
	Enabled      bool   `mapstructure:"enabled"`
	JobName      string `mapstructure:"job_name"`
	Tags         string `mapstructure:"tags"`
	FlushSeconds int    `mapstructure:"flush_seconds"`
}

// Log configures the zerolog logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Config is the full pipeline configuration. Directory fields left empty
// derive from DataDir; see Derive.
type Config struct {
	DataDir string `mapstructure:"data_dir"`

	RawDir     string `mapstructure:"raw_dir"`
	CleanDir   string `mapstructure:"clean_dir"`
	StdDir     string `mapstructure:"std_dir"`
	DimDir     string `mapstructure:"dim_dir"`
	FactDir    string `mapstructure:"fact_dir"`
	ExportDir  string `mapstructure:"export_dir"`
	ReportPath string `mapstructure:"report_path"`

	Warehouse Warehouse `mapstructure:"warehouse"`
	Quality   Quality   `mapstructure:"quality"`
	Metrics   Metrics   `mapstructure:"metrics"`
	Log       Log       `mapstructure:"log"`
}

// Load reads configuration from the given YAML file (optional), layered
// over defaults and under RETAILDW_* environment overrides, then derives
// the layer paths.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", "data")
	v.SetDefault("warehouse.kind", "sqlite")
	v.SetDefault("quality.raw_row_floor", 100)
	v.SetDefault("quality.max_null_ratio", 0.05)
	v.SetDefault("quality.gate_mode", "warn")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.job_name", "retaildw")
	v.SetDefault("metrics.flush_seconds", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetEnvPrefix("RETAILDW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only surfaces keys viper already knows about, so keys
	// without defaults must be bound explicitly or their env overrides
	// are dropped on Unmarshal.
	for _, key := range []string{
		"raw_dir", "clean_dir", "std_dir", "dim_dir", "fact_dir",
		"export_dir", "report_path", "warehouse.dsn", "metrics.tags",
	} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Derive()
	return cfg, nil
}

// Derive fills empty directory fields from DataDir using the fixed layer
// layout, and defaults the sqlite DSN into the data directory.
func (c *Config) Derive() {
	if c.RawDir == "" {
		c.RawDir = filepath.Join(c.DataDir, "Raw")
	}
	if c.CleanDir == "" {
		c.CleanDir = filepath.Join(c.DataDir, "Clean")
	}
	if c.StdDir == "" {
		c.StdDir = filepath.Join(c.DataDir, "Golden", "standardized")
	}
	if c.DimDir == "" {
		c.DimDir = filepath.Join(c.DataDir, "Golden", "dimensions")
	}
	if c.FactDir == "" {
		c.FactDir = filepath.Join(c.DataDir, "Golden", "facts")
	}
	if c.ExportDir == "" {
		c.ExportDir = filepath.Join(c.DataDir, "Exports")
	}
	if c.ReportPath == "" {
		c.ReportPath = filepath.Join(c.DataDir, "Reports", "quality_report.json")
	}
	if c.Warehouse.Kind == "sqlite" && c.Warehouse.DSN == "" {
		c.Warehouse.DSN = filepath.Join(c.DataDir, "warehouse.db")
	}
}
