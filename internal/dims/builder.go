// Package dims builds the dimension tables for the three star schemas.
//
// Every builder follows the same contract: declare the standardized inputs
// it needs, return a wrapped table.ErrMissingSource when one is absent,
// de-duplicate on the natural business key (first occurrence wins), assign
// a fresh 1..N surrogate key, and write the dimension CSV. Partial builds
// are expected; the caller skips dependent facts rather than aborting.
package dims

import (
	"errors"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"retaildw/internal/bands"
	"retaildw/internal/standardize"
	"retaildw/internal/table"
)

// Dimension output filenames.
const (
	FileProduct           = "DIM_PRODUCT.csv"
	FileCustomer          = "DIM_CUSTOMER.csv"
	FileDate              = "DIM_DATE.csv"
	FilePayment           = "DIM_PAYMENT.csv"
	FileCategory          = "DIM_CATEGORY.csv"
	FileStore             = "DIM_STORE.csv"
	FileDateStore         = "DIM_DATE_STORE.csv"
	FileTemperature       = "DIM_TEMPERATURE.csv"
	FileEcommerceProduct  = "DIM_ECOMMERCE_PRODUCT.csv"
	FileEcommerceCategory = "DIM_ECOMMERCE_CATEGORY.csv"
	FileEcommerceBrand    = "DIM_ECOMMERCE_BRAND.csv"
)

// Builder creates all dimension tables from the standardized layer.
type Builder struct {
	stdDir string
	outDir string
	log    zerolog.Logger
}

// NewBuilder returns a Builder reading standardized tables from stdDir and
// writing dimensions to outDir.
func NewBuilder(stdDir, outDir string, log zerolog.Logger) *Builder {
	return &Builder{stdDir: stdDir, outDir: outDir, log: log}
}

// BuildAll runs every dimension builder. Missing inputs skip only the one
// dimension; any other error aborts. The returned map is keyed by output
// filename and holds only the dimensions actually built.
func (b *Builder) BuildAll() (map[string]*table.Table, error) {
	builders := []struct {
		file  string
		build func() (*table.Table, error)
	}{
		{FileProduct, b.Product},
		{FileCustomer, b.Customer},
		{FileDate, b.Date},
		{FilePayment, b.Payment},
		{FileCategory, b.Category},
		{FileStore, b.Store},
		{FileDateStore, b.DateStore},
		{FileTemperature, b.Temperature},
		{FileEcommerceProduct, b.EcommerceProduct},
		{FileEcommerceCategory, b.EcommerceCategory},
		{FileEcommerceBrand, b.EcommerceBrand},
	}

	out := make(map[string]*table.Table, len(builders))
	for _, d := range builders {
		t, err := d.build()
		if err != nil {
			if errors.Is(err, table.ErrMissingSource) {
				b.log.Warn().Str("dimension", d.file).Err(err).Msg("input missing, skipping dimension")
				continue
			}
			return nil, err
		}
		out[d.file] = t
	}
	return out, nil
}

// Product builds DIM_PRODUCT from the product master.
func (b *Builder) Product() (*table.Table, error) {
	src, err := table.ReadSource(b.stdDir, standardize.OutProductMaster)
	if err != nil {
		return nil, err
	}
	dim := src.Select(
		"product_id", "product_name", "brand", "category_name",
		"root_category_name", "rating", "review_count", "source",
	).WithKeyColumn("product_key")
	return b.write(dim, FileProduct)
}

// Customer builds DIM_CUSTOMER from the purchase transactions. Rows without
// a customer_id carry no usable business key and are excluded; the fact
// builder keeps those sales with a sentinel customer key instead.
func (b *Builder) Customer() (*table.Table, error) {
	src, err := table.ReadSource(b.stdDir, standardize.OutCustomerPurchases)
	if err != nil {
		return nil, err
	}

	dim := src.Select("customer_id", "age", "gender", "city")
	kept := table.New(dim.Columns...)
	for _, row := range dim.Rows {
		if table.Key(dim.Value(row, "customer_id")) == "" {
			continue
		}
		kept.Append(row)
	}

	kept = kept.DropDuplicates("customer_id").WithKeyColumn("customer_key")
	kept = kept.WithColumn("age_group", func(row []any) any {
		age, ok := table.Int(kept.Value(row, "age"))
		if !ok {
			return nil
		}
		return bands.AgeGroup(age)
	})
	return b.write(kept, FileCustomer)
}

// Payment builds DIM_PAYMENT from the distinct payment methods observed in
// the purchase transactions.
func (b *Builder) Payment() (*table.Table, error) {
	src, err := table.ReadSource(b.stdDir, standardize.OutCustomerPurchases)
	if err != nil {
		return nil, err
	}

	dim := table.New("payment_method")
	seen := map[string]struct{}{}
	for _, row := range src.Rows {
		m, ok := table.String(src.Value(row, "payment_method"))
		if !ok || m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		dim.Append([]any{m})
	}
	return b.write(dim.WithKeyColumn("payment_key"), FilePayment)
}

// Category builds DIM_CATEGORY from the catalog category hierarchy plus any
// purchase categories the catalog does not know about.
func (b *Builder) Category() (*table.Table, error) {
	dim := table.New("category_name", "root_category_name")
	found := false

	if catalog, err := table.ReadSource(b.stdDir, standardize.OutProducts); err == nil {
		found = true
		for _, row := range catalog.Rows {
			name, ok := table.String(catalog.Value(row, "category_name"))
			if !ok || name == "" {
				continue
			}
			dim.Append([]any{name, catalog.Value(row, "root_category_name")})
		}
	} else if !errors.Is(err, table.ErrMissingSource) {
		return nil, err
	}

	if purchases, err := table.ReadSource(b.stdDir, standardize.OutCustomerPurchases); err == nil {
		found = true
		for _, row := range purchases.Rows {
			name, ok := table.String(purchases.Value(row, "category"))
			if !ok || name == "" {
				continue
			}
			dim.Append([]any{name, nil})
		}
	} else if !errors.Is(err, table.ErrMissingSource) {
		return nil, err
	}

	if !found {
		return nil, errors.Join(errors.New("no category sources"), table.ErrMissingSource)
	}

	dim = dim.DropDuplicates("category_name").WithKeyColumn("category_key")
	return b.write(dim, FileCategory)
}

// Store builds DIM_STORE from the distinct store identifiers, sorted
// numerically when the identifiers parse as integers.
func (b *Builder) Store() (*table.Table, error) {
	src, err := table.ReadSource(b.stdDir, standardize.OutStorePerformance)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	ids := make([]string, 0, 64)
	for _, row := range src.Rows {
		id, ok := table.String(src.Value(row, "store_id"))
		if !ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		a, aerr := strconv.ParseInt(ids[i], 10, 64)
		b, berr := strconv.ParseInt(ids[j], 10, 64)
		if aerr == nil && berr == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})

	dim := table.New("store_id", "store_name", "region")
	for _, id := range ids {
		dim.Append([]any{id, "Store " + id, "USA"})
	}
	return b.write(dim.WithKeyColumn("store_key"), FileStore)
}

// Temperature builds the static DIM_TEMPERATURE band table from the shared
// banding definitions.
func (b *Builder) Temperature() (*table.Table, error) {
	dim := table.New("temp_category_key", "temp_category", "temp_range_min", "temp_range_max", "description")
	for _, band := range bands.TemperatureBands {
		dim.Append([]any{band.Key, band.Name, band.RangeMin, band.RangeMax, band.Description})
	}
	return b.write(dim, FileTemperature)
}

// EcommerceProduct builds DIM_ECOMMERCE_PRODUCT keyed on product_id.
func (b *Builder) EcommerceProduct() (*table.Table, error) {
	src, err := table.ReadSource(b.stdDir, standardize.OutEcommerceSales)
	if err != nil {
		return nil, err
	}
	dim := src.Select("product_id", "product_name", "brand", "root_category", "sub_category").
		DropDuplicates("product_id").
		WithKeyColumn("ecommerce_product_key")
	return b.write(dim, FileEcommerceProduct)
}

// EcommerceCategory builds DIM_ECOMMERCE_CATEGORY from distinct
// (root_category, sub_category) pairs.
func (b *Builder) EcommerceCategory() (*table.Table, error) {
	src, err := table.ReadSource(b.stdDir, standardize.OutEcommerceSales)
	if err != nil {
		return nil, err
	}
	dim := src.Select("root_category", "sub_category").
		DropDuplicates("root_category", "sub_category").
		WithKeyColumn("ecommerce_category_key")
	return b.write(dim, FileEcommerceCategory)
}

// EcommerceBrand builds DIM_ECOMMERCE_BRAND from distinct non-empty brands,
// sorted for stable key assignment.
func (b *Builder) EcommerceBrand() (*table.Table, error) {
	src, err := table.ReadSource(b.stdDir, standardize.OutEcommerceSales)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	brandNames := make([]string, 0, 64)
	for _, row := range src.Rows {
		name, ok := table.String(src.Value(row, "brand"))
		if !ok || name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		brandNames = append(brandNames, name)
	}
	sort.Strings(brandNames)

	dim := table.New("brand")
	for _, name := range brandNames {
		dim.Append([]any{name})
	}
	return b.write(dim.WithKeyColumn("brand_key"), FileEcommerceBrand)
}

func (b *Builder) write(t *table.Table, name string) (*table.Table, error) {
	if err := t.WriteFile(filepath.Join(b.outDir, name)); err != nil {
		return nil, err
	}
	b.log.Info().Str("dimension", name).Int("rows", t.Len()).Msg("dimension built")
	return t, nil
}

// parseISODate reads a serialized calendar date back from a standardized
// table cell.
func parseISODate(v any) (time.Time, bool) {
	s, ok := table.String(v)
	if !ok || s == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
