// Package facts assembles the fact tables of the three star schemas.
//
// Foreign keys resolve by left join on business keys: a fact row is never
// dropped because a lookup fails, it is kept with an unresolved key. The
// unresolved state lives in FKey in memory and serializes as -1 only when
// the row is written out, so the quality checks downstream can tell a
// deliberate fallback from a true orphan.
package facts

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"retaildw/internal/bands"
	"retaildw/internal/dims"
	"retaildw/internal/standardize"
	"retaildw/internal/table"
)

// Fact output filenames.
const (
	FileSales            = "FACT_SALES.csv"
	FileStorePerformance = "FACT_STORE_PERFORMANCE.csv"
	FileEcommerceSales   = "FACT_ECOMMERCE_SALES.csv"
)

// SentinelKey marks an unresolved foreign key at the storage boundary.
const SentinelKey int64 = -1

// FKey is a resolved-or-not dimension reference. The zero value is
// unresolved.
type FKey struct {
	Key      int64
	Resolved bool
}

// Value returns the storage representation: the surrogate key when
// resolved, the -1 sentinel otherwise.
func (k FKey) Value() int64 {
	if !k.Resolved {
		return SentinelKey
	}
	return k.Key
}

// Builder assembles fact tables from the standardized layer and the built
// dimensions.
type Builder struct {
	stdDir string
	dimDir string
	outDir string
	log    zerolog.Logger
}

// NewBuilder returns a Builder reading standardized tables from stdDir,
// dimensions from dimDir, and writing facts to outDir.
func NewBuilder(stdDir, dimDir, outDir string, log zerolog.Logger) *Builder {
	return &Builder{stdDir: stdDir, dimDir: dimDir, outDir: outDir, log: log}
}

// BuildAll runs every fact builder. A missing fact source skips only that
// fact; any other error aborts. The returned map is keyed by output
// filename.
func (b *Builder) BuildAll() (map[string]*table.Table, error) {
	builders := []struct {
		file  string
		build func() (*table.Table, error)
	}{
		{FileSales, b.Sales},
		{FileStorePerformance, b.StorePerformance},
		{FileEcommerceSales, b.EcommerceSales},
	}

	out := make(map[string]*table.Table, len(builders))
	for _, f := range builders {
		t, err := f.build()
		if err != nil {
			if errors.Is(err, table.ErrMissingSource) {
				b.log.Warn().Str("fact", f.file).Err(err).Msg("source missing, skipping fact")
				continue
			}
			return nil, err
		}
		out[f.file] = t
	}
	return out, nil
}

// Sales builds FACT_SALES from the standardized purchase transactions,
// resolving customer, product, payment and category keys.
func (b *Builder) Sales() (*table.Table, error) {
	src, err := table.ReadSource(b.stdDir, standardize.OutCustomerPurchases)
	if err != nil {
		return nil, err
	}

	customers := b.lookup(dims.FileCustomer, "customer_key", "customer_id")
	products := b.lookup(dims.FileProduct, "product_key", "product_id")
	payments := b.lookup(dims.FilePayment, "payment_key", "payment_method")
	categories := b.lookup(dims.FileCategory, "category_key", "category_name")

	fact := table.New(
		"date_key", "customer_key", "product_key", "payment_key",
		"category_key", "purchase_amount", "discount_applied", "rating",
		"repeat_customer",
	)
	for _, row := range src.Rows {
		fact.Append([]any{
			dateKeyCell(src.Value(row, "purchase_date")),
			resolve(customers, src.Value(row, "customer_id")).Value(),
			resolve(products, src.Value(row, "product_id")).Value(),
			resolve(payments, src.Value(row, "payment_method")).Value(),
			resolve(categories, src.Value(row, "category")).Value(),
			measure(src.Value(row, "purchase_amount")),
			flag(src.Value(row, "discount_applied_flag")),
			measure(src.Value(row, "rating")),
			flag(src.Value(row, "repeat_customer_flag")),
		})
	}
	return b.write(fact.WithKeyColumn("sale_id"), FileSales)
}

// StorePerformance builds FACT_STORE_PERFORMANCE from the weekly store
// observations, resolving the store key and classifying temperature into
// the shared bands.
func (b *Builder) StorePerformance() (*table.Table, error) {
	src, err := table.ReadSource(b.stdDir, standardize.OutStorePerformance)
	if err != nil {
		return nil, err
	}

	stores := b.lookup(dims.FileStore, "store_key", "store_id")

	fact := table.New(
		"date_key", "store_key", "temp_category_key", "weekly_sales",
		"temperature", "fuel_price", "cpi", "unemployment", "holiday_flag",
	)
	for _, row := range src.Rows {
		tempKey := SentinelKey
		if f, ok := table.Float(src.Value(row, "temperature")); ok {
			tempKey = bands.TemperatureKey(f)
		}
		fact.Append([]any{
			dateKeyCell(src.Value(row, "sale_date")),
			resolve(stores, src.Value(row, "store_id")).Value(),
			tempKey,
			measure(src.Value(row, "weekly_sales")),
			measure(src.Value(row, "temperature")),
			measure(src.Value(row, "fuel_price")),
			measure(src.Value(row, "cpi")),
			measure(src.Value(row, "unemployment")),
			flag(src.Value(row, "holiday_flag")),
		})
	}
	return b.write(fact.WithKeyColumn("performance_id"), FileStorePerformance)
}

// EcommerceSales builds FACT_ECOMMERCE_SALES from the standardized listing
// table, resolving product, category and brand keys and deriving the
// discount measures.
func (b *Builder) EcommerceSales() (*table.Table, error) {
	src, err := table.ReadSource(b.stdDir, standardize.OutEcommerceSales)
	if err != nil {
		return nil, err
	}

	products := b.lookup(dims.FileEcommerceProduct, "ecommerce_product_key", "product_id")
	categories := b.lookup(dims.FileEcommerceCategory, "ecommerce_category_key", "root_category", "sub_category")
	brandKeys := b.lookup(dims.FileEcommerceBrand, "brand_key", "brand")

	fact := table.New(
		"ecommerce_product_key", "ecommerce_category_key", "brand_key",
		"list_price", "sale_price", "discount_amount", "discount_pct",
		"available_flag",
	)
	for _, row := range src.Rows {
		list := measure(src.Value(row, "list_price"))
		sale := measure(src.Value(row, "sale_price"))
		amount := math.Max(list-sale, 0)
		var pct float64
		if list > 0 {
			pct = amount / list * 100
		}
		fact.Append([]any{
			resolve(products, src.Value(row, "product_id")).Value(),
			resolve(categories, src.Value(row, "root_category"), src.Value(row, "sub_category")).Value(),
			resolve(brandKeys, src.Value(row, "brand")).Value(),
			list,
			sale,
			amount,
			pct,
			availableFlag(src.Value(row, "available")),
		})
	}
	return b.write(fact.WithKeyColumn("ecommerce_sale_id"), FileEcommerceSales)
}

// lookup loads a dimension table and maps its business key (possibly
// composite) to the surrogate key. A missing dimension leaves the map
// empty, so every dependent foreign key stays unresolved rather than
// failing the fact build.
func (b *Builder) lookup(dimFile, surrogate string, keyColumns ...string) map[string]int64 {
	dim, err := table.ReadSource(b.dimDir, dimFile)
	if err != nil {
		if errors.Is(err, table.ErrMissingSource) {
			b.log.Warn().Str("dimension", dimFile).Msg("dimension missing, foreign keys will be unresolved")
			return map[string]int64{}
		}
		b.log.Error().Str("dimension", dimFile).Err(err).Msg("dimension unreadable, foreign keys will be unresolved")
		return map[string]int64{}
	}

	m := make(map[string]int64, dim.Len())
	for _, row := range dim.Rows {
		key := compositeKey(dim, row, keyColumns)
		if key == "" {
			continue
		}
		sk, ok := table.Int(dim.Value(row, surrogate))
		if !ok {
			continue
		}
		if _, dup := m[key]; dup {
			continue
		}
		m[key] = sk
	}
	return m
}

// resolve joins the business key values against a lookup map. Nil or
// unmatched keys yield an unresolved FKey.
func resolve(m map[string]int64, parts ...any) FKey {
	var sb strings.Builder
	empty := true
	for i, p := range parts {
		if i > 0 {
			sb.WriteByte('\x1f')
		}
		k := table.Key(p)
		if k != "" {
			empty = false
		}
		sb.WriteString(k)
	}
	if empty {
		return FKey{}
	}
	sk, ok := m[sb.String()]
	if !ok {
		return FKey{}
	}
	return FKey{Key: sk, Resolved: true}
}

func compositeKey(t *table.Table, row []any, columns []string) string {
	var sb strings.Builder
	empty := true
	for i, c := range columns {
		if i > 0 {
			sb.WriteByte('\x1f')
		}
		k := table.Key(t.Value(row, c))
		if k != "" {
			empty = false
		}
		sb.WriteString(k)
	}
	if empty {
		return ""
	}
	return sb.String()
}

// dateKeyCell converts a serialized date to its YYYYMMDD key, -1 when the
// cell does not parse.
func dateKeyCell(v any) int64 {
	s, ok := table.String(v)
	if !ok || s == "" {
		return SentinelKey
	}
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		return SentinelKey
	}
	return dims.DateKey(ts)
}

// measure coerces a numeric measure, defaulting missing or unparseable
// cells to 0.0.
func measure(v any) float64 {
	f, ok := table.Float(v)
	if !ok {
		return 0
	}
	return f
}

// flag coerces a 0/1 flag cell, defaulting to 0.
func flag(v any) int64 {
	n, ok := table.Int(v)
	if !ok {
		return 0
	}
	return n
}

// availableFlag reads the listing availability, which arrives as free text
// from the crawl rather than a standardized 0/1 flag.
func availableFlag(v any) int64 {
	if n, ok := table.Int(v); ok {
		if n != 0 {
			return 1
		}
		return 0
	}
	s, ok := table.String(v)
	if !ok {
		return 0
	}
	switch strings.ToLower(s) {
	case "yes", "true", "y", "in stock", "available":
		return 1
	default:
		return 0
	}
}

func (b *Builder) write(t *table.Table, name string) (*table.Table, error) {
	if err := t.WriteFile(filepath.Join(b.outDir, name)); err != nil {
		return nil, err
	}
	b.log.Info().Str("fact", name).Int("rows", t.Len()).Msg("fact built")
	return t, nil
}
