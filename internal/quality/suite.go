package quality

import (
	"errors"

	"github.com/rs/zerolog"

	"retaildw/internal/dims"
	"retaildw/internal/facts"
	"retaildw/internal/standardize"
	"retaildw/internal/table"
)

// Default thresholds. Raw extracts are expected to carry real volume;
// every later table only has to be non-empty.
const (
	DefaultRawRowFloor  = 100
	DefaultMaxNullRatio = 0.05
)

// Raw-layer input filenames, as delivered by the extract jobs.
const (
	RawCustomerPurchases = "customer_purchases.csv"
	RawStorePerformance  = "store_performance.csv"
	RawEcommerceListings = "ecommerce_listings.csv"
	RawProductCatalog    = "product_catalog.csv"
)

// SuiteConfig locates the layer directories and sets the thresholds the
// stage drivers check against.
type SuiteConfig struct {
	RawDir   string
	CleanDir string
	StdDir   string
	DimDir   string
	FactDir  string

	RawRowFloor  int
	MaxNullRatio float64
}

func (c SuiteConfig) withDefaults() SuiteConfig {
	if c.RawRowFloor <= 0 {
		c.RawRowFloor = DefaultRawRowFloor
	}
	if c.MaxNullRatio <= 0 {
		c.MaxNullRatio = DefaultMaxNullRatio
	}
	return c
}

// Suite drives the full raw → silver → golden validation sequence.
type Suite struct {
	cfg     SuiteConfig
	checker *Checker
	report  *Report
	log     zerolog.Logger
}

// NewSuite returns a Suite accumulating into a fresh report.
func NewSuite(cfg SuiteConfig, log zerolog.Logger) *Suite {
	report := NewReport()
	return &Suite{
		cfg:     cfg.withDefaults(),
		checker: NewChecker(report, log),
		report:  report,
		log:     log,
	}
}

// Report returns the accumulated report.
func (s *Suite) Report() *Report { return s.report }

// Run validates every stage in order and returns the report.
func (s *Suite) Run() *Report {
	s.ValidateRaw()
	s.ValidateSilver()
	s.ValidateGolden()
	return s.report
}

// ValidateRaw checks the raw extracts: presence and a row-count floor high
// enough to catch truncated deliveries.
func (s *Suite) ValidateRaw() {
	for _, file := range []string{
		RawCustomerPurchases, RawStorePerformance,
		RawEcommerceListings, RawProductCatalog,
	} {
		t, ok := s.load(StageRaw, s.cfg.RawDir, file)
		if !ok {
			continue
		}
		s.checker.RowCountFloor(StageRaw, t, file, s.cfg.RawRowFloor)
	}
}

type silverSpec struct {
	file      string
	raw       string
	critical  []string
	uniqueKey []string
}

var silverSpecs = []silverSpec{
	{
		file:     standardize.SrcCustomerPurchases,
		raw:      RawCustomerPurchases,
		critical: []string{"product_name", "purchase_amount", "purchase_date"},
	},
	{
		file:      standardize.SrcStorePerformance,
		raw:       RawStorePerformance,
		critical:  []string{"store_id", "sale_date", "weekly_sales"},
		uniqueKey: []string{"store_id", "sale_date"},
	},
	{
		file:     standardize.SrcEcommerceListings,
		raw:      RawEcommerceListings,
		critical: []string{"product_name", "sale_price"},
	},
	{
		file:      standardize.SrcProductCatalog,
		raw:       RawProductCatalog,
		critical:  []string{"product_name"},
		uniqueKey: []string{"product_id"},
	},
}

// ValidateSilver checks the cleaned tables: presence, non-empty, null
// ratios on critical columns, natural-key uniqueness where one exists, and
// a raw/silver row-count comparison logged for drift visibility.
func (s *Suite) ValidateSilver() {
	for _, spec := range silverSpecs {
		t, ok := s.load(StageSilver, s.cfg.CleanDir, spec.file)
		if !ok {
			continue
		}
		s.checker.RowCountFloor(StageSilver, t, spec.file, 1)
		for _, col := range spec.critical {
			s.checker.NullRatio(StageSilver, t, spec.file, col, s.cfg.MaxNullRatio)
		}
		if len(spec.uniqueKey) > 0 {
			s.checker.UniqueKey(StageSilver, t, spec.file, spec.uniqueKey...)
		}
		if raw, err := table.ReadSource(s.cfg.RawDir, spec.raw); err == nil {
			s.log.Info().Str("table", spec.file).
				Int("raw_rows", raw.Len()).Int("silver_rows", t.Len()).
				Msg("raw to silver row comparison")
		}
	}
}

type dimSpec struct {
	file      string
	surrogate string
	schema    []string
}

var dimSpecs = []dimSpec{
	{dims.FileProduct, "product_key", []string{"product_key", "product_id", "product_name"}},
	{dims.FileCustomer, "customer_key", []string{"customer_key", "customer_id", "age", "gender", "city", "age_group"}},
	{dims.FileDate, "date_key", []string{"date_key", "full_date", "day_of_week", "is_weekend", "month", "quarter", "year"}},
	{dims.FilePayment, "payment_key", []string{"payment_key", "payment_method"}},
	{dims.FileCategory, "category_key", []string{"category_key", "category_name"}},
	{dims.FileStore, "store_key", []string{"store_key", "store_id", "store_name", "region"}},
	{dims.FileDateStore, "date_key", []string{"date_key", "full_date", "day_of_week", "is_weekend", "month", "quarter", "year"}},
	{dims.FileTemperature, "temp_category_key", []string{"temp_category_key", "temp_category", "temp_range_min", "temp_range_max"}},
	{dims.FileEcommerceProduct, "ecommerce_product_key", []string{"ecommerce_product_key", "product_id", "product_name"}},
	{dims.FileEcommerceCategory, "ecommerce_category_key", []string{"ecommerce_category_key", "root_category", "sub_category"}},
	{dims.FileEcommerceBrand, "brand_key", []string{"brand_key", "brand"}},
}

type fkSpec struct {
	column  string
	dimFile string
	dimPK   string
}

type factSpec struct {
	file     string
	pk       string
	fks      []fkSpec
	currency []string
}

var factSpecs = []factSpec{
	{
		file: facts.FileSales,
		pk:   "sale_id",
		fks: []fkSpec{
			{"date_key", dims.FileDate, "date_key"},
			{"customer_key", dims.FileCustomer, "customer_key"},
			{"product_key", dims.FileProduct, "product_key"},
			{"payment_key", dims.FilePayment, "payment_key"},
			{"category_key", dims.FileCategory, "category_key"},
		},
		currency: []string{"purchase_amount"},
	},
	{
		file: facts.FileStorePerformance,
		pk:   "performance_id",
		fks: []fkSpec{
			{"date_key", dims.FileDateStore, "date_key"},
			{"store_key", dims.FileStore, "store_key"},
			{"temp_category_key", dims.FileTemperature, "temp_category_key"},
		},
		currency: []string{"weekly_sales"},
	},
	{
		file: facts.FileEcommerceSales,
		pk:   "ecommerce_sale_id",
		fks: []fkSpec{
			{"ecommerce_product_key", dims.FileEcommerceProduct, "ecommerce_product_key"},
			{"ecommerce_category_key", dims.FileEcommerceCategory, "ecommerce_category_key"},
			{"brand_key", dims.FileEcommerceBrand, "brand_key"},
		},
		currency: []string{"list_price", "sale_price", "discount_amount"},
	},
}

// ValidateGolden checks dimensions (presence, non-empty, surrogate-key
// uniqueness, schema completeness) and facts (presence, non-empty, primary
// key uniqueness, every declared foreign key, non-negative currency
// measures).
func (s *Suite) ValidateGolden() {
	for _, spec := range dimSpecs {
		t, ok := s.load(StageGolden, s.cfg.DimDir, spec.file)
		if !ok {
			continue
		}
		s.checker.RowCountFloor(StageGolden, t, spec.file, 1)
		s.checker.UniqueKey(StageGolden, t, spec.file, spec.surrogate)
		s.checker.SchemaColumns(StageGolden, t, spec.file, spec.schema)
	}

	zero := 0.0
	for _, spec := range factSpecs {
		t, ok := s.load(StageGolden, s.cfg.FactDir, spec.file)
		if !ok {
			continue
		}
		s.checker.RowCountFloor(StageGolden, t, spec.file, 1)
		s.checker.UniqueKey(StageGolden, t, spec.file, spec.pk)
		for _, fk := range spec.fks {
			dim, err := table.ReadSource(s.cfg.DimDir, fk.dimFile)
			if err != nil {
				// Validated as absent above; every FK into it counts
				// against an empty key set.
				dim = table.New(fk.dimPK)
			}
			s.checker.ForeignKey(StageGolden, t, spec.file, fk.column, dim, fk.dimPK)
		}
		for _, col := range spec.currency {
			s.checker.NumericRange(StageGolden, t, spec.file, col, &zero, nil)
		}
	}
}

// load runs the existence check and reads the table when present. A
// missing file records the one failed existence check and skips the
// table-level checks.
func (s *Suite) load(stage, dir, file string) (*table.Table, bool) {
	res := s.checker.FileExists(stage, dir, file)
	if !res.Passed {
		return nil, false
	}
	t, err := table.ReadSource(dir, file)
	if err != nil && !errors.Is(err, table.ErrMissingSource) {
		s.log.Error().Str("file", file).Err(err).Msg("table unreadable, skipping checks")
		return nil, false
	}
	if t == nil {
		return nil, false
	}
	return t, true
}
