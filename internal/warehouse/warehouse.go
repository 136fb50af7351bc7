// Package warehouse loads the golden-layer tables into an embedded
// analytical database behind a backend registry. Backends register a
// factory under a kind string from an init function; the pipeline selects
// one by configuration.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"retaildw/internal/table"
)

// Config selects and connects a warehouse backend.
//
// Kind must match a registered backend ("sqlite", "duckdb", "postgres",
// "mssql"). DSN is passed through to the backend driver unchanged.
type Config struct {
	Kind string
	DSN  string
}

// Loader is the warehouse contract the pipeline needs: wholesale table
// replacement plus query access for the downstream exports.
type Loader interface {
	// Close releases the database handle. Call once at shutdown.
	Close()

	// ReplaceTable drops any previous version of the named table and
	// recreates it from the given rows. The load is a full rebuild; there
	// is no incremental path.
	ReplaceTable(ctx context.Context, name string, t *table.Table) error

	// DB exposes the underlying handle for read-only analytical queries.
	DB() *sql.DB
}

type factory func(ctx context.Context, cfg Config) (Loader, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Backend packages call this
// from init; registering the same kind twice panics so an ambiguous
// backend selection fails at startup, not at load time.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("warehouse: Register called with empty kind")
	}
	if f == nil {
		panic("warehouse: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("warehouse: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Loader for the configured kind.
func New(ctx context.Context, cfg Config) (Loader, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("warehouse: missing kind")
	}

	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("warehouse: unsupported kind %q (registered: %s)", cfg.Kind, strings.Join(kinds(), ", "))
	}
	return f(ctx, cfg)
}

func kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// TableName derives a warehouse table name from a CSV filename: the stem
// lower-cased with non-alphanumeric runs collapsed to single underscores.
// DIM_PRODUCT.csv becomes dim_product.
func TableName(file string) string {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	var sb strings.Builder
	pending := false
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pending && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			pending = false
			sb.WriteRune(r)
		default:
			pending = true
		}
	}
	return sb.String()
}
