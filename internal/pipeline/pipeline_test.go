package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"retaildw/internal/config"
	"retaildw/internal/export"
	"retaildw/internal/metrics"
	"retaildw/internal/quality"
	"retaildw/internal/standardize"
	"retaildw/internal/warehouse"

	_ "retaildw/internal/warehouse/sqlite"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// fixtureConfig lays out a data directory with all three cleaned sources
// and returns a config pointing at it.
func fixtureConfig(t *testing.T) config.Config {
	t.Helper()
	dataDir := t.TempDir()
	cleanDir := filepath.Join(dataDir, "Clean")
	if err := os.MkdirAll(cleanDir, 0o755); err != nil {
		t.Fatalf("mkdir clean: %v", err)
	}

	writeFile(t, cleanDir, standardize.SrcCustomerPurchases,
		"customer_id,age,gender,city,category,product_name,purchase_date,purchase_amount,payment_method,discount_applied,rating,repeat_customer\n"+
			"c1,34,F,Austin,Electronics,Sony TV,03-15-24,499.99,Cash,yes,4.5,no\n"+
			",29,M,Boston,Electronics,Sony TV,03-16-24,99.99,Card,no,4.0,no\n"+
			"c2,64,M,Chicago,Toys,Yo-yo,03-17-24,5.00,Cash,no,3.0,yes\n")

	writeFile(t, cleanDir, standardize.SrcStorePerformance,
		"store_id,sale_date,weekly_sales,temperature,fuel_price,cpi,unemployment,holiday_flag\n"+
			"1,05-01-2024,24000.50,45.2,3.10,211.4,7.8,0\n"+
			"2,12-01-2024,18000.00,88.0,3.20,211.6,7.9,1\n")

	writeFile(t, cleanDir, standardize.SrcEcommerceListings,
		"product_name,brand,root_category,sub_category,list_price,sale_price,available,description\n"+
			"Sony TV,Sony,Electronics,TVs,599.99,499.99,yes,<p>Great TV</p>\n"+
			"Yo-yo,Duncan,Toys,Classic,9.99,9.99,no,A classic toy\n")

	writeFile(t, cleanDir, standardize.SrcProductCatalog,
		"product_id,product_name,brand,category_name,root_category_name,final_price,rating,review_count\n"+
			"SKU-1,Sony TV,Sony,TVs,Electronics,499.99,4.4,120\n"+
			"SKU-2,Yo-yo,Duncan,Classic,Toys,9.99,4.9,15\n")

	cfg := config.Config{
		DataDir:   dataDir,
		Warehouse: config.Warehouse{Kind: "sqlite"},
		Quality:   config.Quality{RawRowFloor: 100, MaxNullRatio: 0.05, GateMode: "warn"},
	}
	cfg.Derive()
	return cfg
}

func TestRun_EndToEndWarnMode(t *testing.T) {
	cfg := fixtureConfig(t)
	ctx := context.Background()

	// Raw inputs are absent so the report fails, but warn mode lets the
	// run complete.
	p := New(cfg, zerolog.Nop(), metrics.Nop{})
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(cfg.ReportPath)
	if err != nil {
		t.Fatalf("quality report missing: %v", err)
	}
	var report struct {
		RunID   string `json:"run_id"`
		Summary struct {
			TotalChecks int `json:"total_checks"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.RunID == "" || report.Summary.TotalChecks == 0 {
		t.Fatalf("report incomplete: %+v", report)
	}

	for _, name := range []string{export.FileRetailSales, export.FileStorePerformance, export.FileEcommerce} {
		if _, err := os.Stat(filepath.Join(cfg.ExportDir, name)); err != nil {
			t.Errorf("export %s missing: %v", name, err)
		}
	}

	loader, err := warehouse.New(ctx, warehouse.Config{Kind: cfg.Warehouse.Kind, DSN: cfg.Warehouse.DSN})
	if err != nil {
		t.Fatalf("reopen warehouse: %v", err)
	}
	defer loader.Close()

	var n int
	if err := loader.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM fact_sales").Scan(&n); err != nil {
		t.Fatalf("fact_sales: %v", err)
	}
	if n != 3 {
		t.Fatalf("fact_sales rows: %d", n)
	}
	for _, tbl := range []string{"dim_customer", "dim_product", "dim_date", "dim_store", "dim_temperature", "fact_store_performance", "fact_ecommerce_sales"} {
		var c int
		if err := loader.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tbl).Scan(&c); err != nil {
			t.Errorf("table %s not loaded: %v", tbl, err)
		}
	}
}

func TestRun_FailModeReturnsGateError(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Quality.GateMode = "fail"

	err := New(cfg, zerolog.Nop(), metrics.Nop{}).Run(context.Background())
	var gateErr *quality.GateError
	if !errors.As(err, &gateErr) {
		t.Fatalf("expected GateError, got %v", err)
	}
	if gateErr.Failed == 0 {
		t.Fatalf("gate error should report failed checks: %+v", gateErr)
	}
}

func TestRun_MissingSourcesStillCompletes(t *testing.T) {
	dataDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dataDir, "Clean"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg := config.Config{
		DataDir:   dataDir,
		Warehouse: config.Warehouse{Kind: "sqlite"},
		Quality:   config.Quality{GateMode: "warn"},
	}
	cfg.Derive()

	if err := New(cfg, zerolog.Nop(), metrics.Nop{}).Run(context.Background()); err != nil {
		t.Fatalf("empty clean layer should not abort the run: %v", err)
	}
	if _, err := os.Stat(cfg.ReportPath); err != nil {
		t.Fatalf("report missing: %v", err)
	}
}
