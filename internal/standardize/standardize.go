// Package standardize maps the heterogeneous Silver-layer source schemas
// onto the common Golden-layer vocabulary: canonical column names, typed
// key fields and deterministic content-derived product identifiers.
package standardize

import (
	"errors"
	"path/filepath"

	"github.com/rs/zerolog"

	"retaildw/internal/table"
)

// Silver-layer input filenames, one per logical source.
const (
	SrcCustomerPurchases = "cleaned_customer_purchases.csv"
	SrcStorePerformance  = "cleaned_store_performance.csv"
	SrcEcommerceListings = "cleaned_ecommerce_listings.csv"
	SrcProductCatalog    = "cleaned_product_catalog.csv"
)

// Standardized-layer output filenames.
const (
	OutCustomerPurchases = "std_customer_purchases.csv"
	OutStorePerformance  = "std_store_performance.csv"
	OutEcommerceSales    = "std_ecommerce_sales.csv"
	OutProducts          = "std_products.csv"
	OutProductMaster     = "product_master.csv"
)

// Date layouts per source. Purchases arrive as M-D-YY, store observations
// as D-M-YYYY; both are fixed per upstream extract.
const (
	purchaseDateLayout = "01-02-06"
	saleDateLayout     = "02-01-2006"
)

// Standardizer rewrites each cleaned source into its standardized table and
// merges the per-source product attributes into a single product master.
type Standardizer struct {
	cleanDir string
	outDir   string
	log      zerolog.Logger
}

// New returns a Standardizer reading from cleanDir and writing to outDir.
func New(cleanDir, outDir string, log zerolog.Logger) *Standardizer {
	return &Standardizer{cleanDir: cleanDir, outDir: outDir, log: log}
}

// Result carries the standardized tables a single run produced. Absent
// sources leave their field nil; downstream builders must tolerate that.
type Result struct {
	Purchases        *table.Table
	StorePerformance *table.Table
	Ecommerce        *table.Table
	Products         *table.Table
	ProductMaster    *table.Table
}

// Run standardizes every configured source. A missing source file is logged
// and skipped; only write failures abort the run.
func (s *Standardizer) Run() (*Result, error) {
	res := &Result{}
	var err error

	if res.Purchases, err = s.standardizeSource("purchases", s.CustomerPurchases); err != nil {
		return nil, err
	}
	if res.StorePerformance, err = s.standardizeSource("store_performance", s.StorePerformance); err != nil {
		return nil, err
	}
	if res.Ecommerce, err = s.standardizeSource("ecommerce", s.EcommerceSales); err != nil {
		return nil, err
	}
	if res.Products, err = s.standardizeSource("product_catalog", s.ProductCatalog); err != nil {
		return nil, err
	}

	master, err := s.BuildProductMaster(res)
	if err != nil {
		if errors.Is(err, table.ErrMissingSource) {
			s.log.Warn().Msg("no product sources present, skipping product_master")
			return res, nil
		}
		return nil, err
	}
	res.ProductMaster = master
	return res, nil
}

// standardizeSource runs one builder, tolerating a missing input.
func (s *Standardizer) standardizeSource(name string, build func() (*table.Table, error)) (*table.Table, error) {
	t, err := build()
	if err != nil {
		if errors.Is(err, table.ErrMissingSource) {
			s.log.Warn().Str("source", name).Err(err).Msg("source file not found, skipping")
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// CustomerPurchases standardizes the retail purchase transactions: typed
// purchase date and amount, 0/1 flags, and the derived product_id.
func (s *Standardizer) CustomerPurchases() (*table.Table, error) {
	t, err := table.ReadSource(s.cleanDir, SrcCustomerPurchases)
	if err != nil {
		return nil, err
	}

	t = t.WithColumn("product_id", func(row []any) any {
		return productIDCell(t.Value(row, "product_name"))
	})
	t = t.WithColumn("purchase_date", func(row []any) any {
		return coerceDate(t.Value(row, "purchase_date"), purchaseDateLayout)
	})
	t = t.WithColumn("purchase_amount", func(row []any) any {
		return coerceFloat(t.Value(row, "purchase_amount"))
	})
	t = t.WithColumn("rating", func(row []any) any {
		return coerceFloat(t.Value(row, "rating"))
	})
	t = t.WithColumn("discount_applied_flag", func(row []any) any {
		return coerceFlag(t.Value(row, "discount_applied"))
	})
	t = t.WithColumn("repeat_customer_flag", func(row []any) any {
		return coerceFlag(t.Value(row, "repeat_customer"))
	})
	t = t.WithColumn("source", func([]any) any { return "purchases" })

	out := t.Select(
		"customer_id", "age", "gender", "city", "category",
		"product_id", "product_name", "purchase_date", "purchase_amount",
		"payment_method", "discount_applied_flag", "rating",
		"repeat_customer_flag", "source",
	)
	return s.write(out, OutCustomerPurchases)
}

// StorePerformance standardizes the weekly store observations: typed sale
// date, numeric weather/economic measures and a 0/1 holiday flag.
func (s *Standardizer) StorePerformance() (*table.Table, error) {
	t, err := table.ReadSource(s.cleanDir, SrcStorePerformance)
	if err != nil {
		return nil, err
	}

	t = t.WithColumn("sale_date", func(row []any) any {
		return coerceDate(t.Value(row, "sale_date"), saleDateLayout)
	})
	for _, col := range []string{"weekly_sales", "temperature", "fuel_price", "cpi", "unemployment"} {
		col := col
		t = t.WithColumn(col, func(row []any) any {
			return coerceFloat(t.Value(row, col))
		})
	}
	t = t.WithColumn("holiday_flag", func(row []any) any {
		return coerceFlag(t.Value(row, "holiday_flag"))
	})
	t = t.WithColumn("source", func([]any) any { return "store" })

	out := t.Select(
		"store_id", "sale_date", "weekly_sales", "temperature",
		"fuel_price", "cpi", "unemployment", "holiday_flag", "source",
	)
	return s.write(out, OutStorePerformance)
}

// EcommerceSales standardizes the crawled e-commerce catalog: typed prices,
// HTML-stripped descriptions and the derived product_id.
func (s *Standardizer) EcommerceSales() (*table.Table, error) {
	t, err := table.ReadSource(s.cleanDir, SrcEcommerceListings)
	if err != nil {
		return nil, err
	}

	t = t.WithColumn("product_id", func(row []any) any {
		return productIDCell(t.Value(row, "product_name"))
	})
	t = t.WithColumn("list_price", func(row []any) any {
		return coerceFloat(t.Value(row, "list_price"))
	})
	t = t.WithColumn("sale_price", func(row []any) any {
		return coerceFloat(t.Value(row, "sale_price"))
	})
	t = t.WithColumn("description", func(row []any) any {
		v, ok := table.String(t.Value(row, "description"))
		if !ok {
			return nil
		}
		return StripHTML(v)
	})
	t = t.WithColumn("source", func([]any) any { return "ecommerce" })

	out := t.Select(
		"product_id", "product_name", "brand", "root_category",
		"sub_category", "list_price", "sale_price", "available",
		"description", "source",
	)
	return s.write(out, OutEcommerceSales)
}

// ProductCatalog standardizes the retailer product catalog: renamed price
// column, numeric rating/review count, and the derived product_id with the
// original catalog key preserved as source_product_id.
func (s *Standardizer) ProductCatalog() (*table.Table, error) {
	t, err := table.ReadSource(s.cleanDir, SrcProductCatalog)
	if err != nil {
		return nil, err
	}

	t = t.Rename(map[string]string{"final_price": "price"})
	t = t.WithColumn("source_product_id", func(row []any) any {
		return t.Value(row, "product_id")
	})
	t = t.WithColumn("product_id", func(row []any) any {
		return productIDCell(t.Value(row, "product_name"))
	})
	t = t.WithColumn("rating", func(row []any) any {
		return coerceFloat(t.Value(row, "rating"))
	})
	t = t.WithColumn("review_count", func(row []any) any {
		return coerceFloat(t.Value(row, "review_count"))
	})
	t = t.WithColumn("source", func([]any) any { return "catalog" })

	out := t.Select(
		"product_id", "product_name", "brand", "category_name",
		"root_category_name", "price", "rating", "review_count",
		"source_product_id", "source",
	)
	return s.write(out, OutProducts)
}

func productIDCell(v any) any {
	name, ok := table.String(v)
	if !ok {
		return nil
	}
	id, ok := ProductID(name)
	if !ok {
		return nil
	}
	return id
}

func (s *Standardizer) write(t *table.Table, name string) (*table.Table, error) {
	path := filepath.Join(s.outDir, name)
	if err := t.WriteFile(path); err != nil {
		return nil, err
	}
	s.log.Info().Str("file", name).Int("rows", t.Len()).Msg("standardized")
	return t, nil
}
