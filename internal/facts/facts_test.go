package facts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"retaildw/internal/dims"
	"retaildw/internal/standardize"
	"retaildw/internal/table"
)

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const purchasesHeader = "customer_id,age,gender,city,category,product_id,product_name,purchase_date,purchase_amount,payment_method,discount_applied_flag,rating,repeat_customer_flag,source\n"

func TestFKey_Value(t *testing.T) {
	if (FKey{}).Value() != SentinelKey {
		t.Fatalf("unresolved FKey should serialize as sentinel")
	}
	if (FKey{Key: 7, Resolved: true}).Value() != 7 {
		t.Fatalf("resolved FKey should serialize its key")
	}
}

func TestSales_RowParityAndSentinelCustomer(t *testing.T) {
	stdDir, dimDir, factDir := t.TempDir(), t.TempDir(), t.TempDir()
	writeCSV(t, stdDir, standardize.OutCustomerPurchases, purchasesHeader+
		"c1,34,F,Austin,Electronics,PROD_1,Sony TV,2024-03-15,499.99,Cash,1,4.5,0,purchases\n"+
		",29,M,Boston,Electronics,PROD_1,Sony TV,2024-03-16,99.99,Card,0,4.0,0,purchases\n"+
		"c2,64,M,Chicago,Toys,PROD_2,Yo-yo,2024-03-17,5.00,Cash,0,3.0,1,purchases\n")

	if _, err := dims.NewBuilder(stdDir, dimDir, zerolog.Nop()).BuildAll(); err != nil {
		t.Fatalf("dims: %v", err)
	}

	fact, err := NewBuilder(stdDir, dimDir, factDir, zerolog.Nop()).Sales()
	if err != nil {
		t.Fatalf("Sales: %v", err)
	}

	// Left-join semantics: every source row survives.
	if fact.Len() != 3 {
		t.Fatalf("expected 3 fact rows, got %d", fact.Len())
	}

	keys := make([]int64, 3)
	for i, row := range fact.Rows {
		k, ok := table.Int(fact.Value(row, "customer_key"))
		if !ok {
			t.Fatalf("row %d: bad customer_key", i)
		}
		keys[i] = k
		if id, _ := table.Int(fact.Value(row, "sale_id")); id != int64(i+1) {
			t.Fatalf("row %d: sale_id %d", i, id)
		}
	}
	if keys[0] == SentinelKey || keys[2] == SentinelKey {
		t.Fatalf("known customers should resolve: %v", keys)
	}
	if keys[1] != SentinelKey {
		t.Fatalf("nil customer_id should fall back to sentinel, got %d", keys[1])
	}

	// The product master was never built, so DIM_PRODUCT is absent and
	// every product_key stays unresolved.
	for i, row := range fact.Rows {
		if k, _ := table.Int(fact.Value(row, "product_key")); k != SentinelKey {
			t.Fatalf("row %d: product_key %d without a product dimension", i, k)
		}
	}

	if dk, _ := table.Int(fact.Value(fact.Rows[0], "date_key")); dk != 20240315 {
		t.Fatalf("date_key: %d", dk)
	}
	if amt, _ := table.Float(fact.Value(fact.Rows[2], "purchase_amount")); amt != 5.0 {
		t.Fatalf("purchase_amount: %v", amt)
	}
}

func TestSales_MalformedDateGetsSentinelDateKey(t *testing.T) {
	stdDir, dimDir, factDir := t.TempDir(), t.TempDir(), t.TempDir()
	writeCSV(t, stdDir, standardize.OutCustomerPurchases, purchasesHeader+
		"c1,34,F,Austin,Electronics,PROD_1,Sony TV,,499.99,Cash,1,4.5,0,purchases\n")

	fact, err := NewBuilder(stdDir, dimDir, factDir, zerolog.Nop()).Sales()
	if err != nil {
		t.Fatalf("Sales: %v", err)
	}
	if dk, _ := table.Int(fact.Value(fact.Rows[0], "date_key")); dk != SentinelKey {
		t.Fatalf("expected sentinel date_key, got %d", dk)
	}
}

func TestEcommerceSales_DiscountDerivation(t *testing.T) {
	stdDir, dimDir, factDir := t.TempDir(), t.TempDir(), t.TempDir()
	writeCSV(t, stdDir, standardize.OutEcommerceSales,
		"product_id,product_name,brand,root_category,sub_category,list_price,sale_price,available,description,source\n"+
			"PROD_1,TV,Zenith,Electronics,TVs,100,75,1,,ecommerce\n"+
			"PROD_2,Radio,Acme,Electronics,Audio,50,60,yes,,ecommerce\n"+
			"PROD_3,Speaker,Acme,Electronics,Audio,,40,0,,ecommerce\n")

	fact, err := NewBuilder(stdDir, dimDir, factDir, zerolog.Nop()).EcommerceSales()
	if err != nil {
		t.Fatalf("EcommerceSales: %v", err)
	}
	if fact.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", fact.Len())
	}

	r0 := fact.Rows[0]
	if amt, _ := table.Float(fact.Value(r0, "discount_amount")); amt != 25 {
		t.Fatalf("discount_amount: %v", amt)
	}
	if pct, _ := table.Float(fact.Value(r0, "discount_pct")); pct != 25.0 {
		t.Fatalf("discount_pct: %v", pct)
	}

	// sale above list clips to zero, never negative.
	r1 := fact.Rows[1]
	if amt, _ := table.Float(fact.Value(r1, "discount_amount")); amt != 0 {
		t.Fatalf("clipped discount_amount: %v", amt)
	}
	if flag, _ := table.Int(fact.Value(r1, "available_flag")); flag != 1 {
		t.Fatalf("available_flag for yes: %d", flag)
	}

	// missing list price defaults to 0; the pct guard avoids dividing.
	r2 := fact.Rows[2]
	if pct, _ := table.Float(fact.Value(r2, "discount_pct")); pct != 0 {
		t.Fatalf("guarded discount_pct: %v", pct)
	}
}

func TestStorePerformance_TemperatureClassification(t *testing.T) {
	stdDir, dimDir, factDir := t.TempDir(), t.TempDir(), t.TempDir()
	writeCSV(t, stdDir, standardize.OutStorePerformance,
		"store_id,sale_date,weekly_sales,temperature,fuel_price,cpi,unemployment,holiday_flag,source\n"+
			"1,2024-01-05,1000,45,3.1,210,4.2,0,store\n"+
			"1,2024-01-12,1500,,3.2,211,4.1,1,store\n")

	if _, err := dims.NewBuilder(stdDir, dimDir, zerolog.Nop()).BuildAll(); err != nil {
		t.Fatalf("dims: %v", err)
	}

	fact, err := NewBuilder(stdDir, dimDir, factDir, zerolog.Nop()).StorePerformance()
	if err != nil {
		t.Fatalf("StorePerformance: %v", err)
	}

	r0 := fact.Rows[0]
	if k, _ := table.Int(fact.Value(r0, "temp_category_key")); k != 2 {
		t.Fatalf("45F should classify Cold (2), got %d", k)
	}
	if sk, _ := table.Int(fact.Value(r0, "store_key")); sk == SentinelKey {
		t.Fatalf("store_key should resolve")
	}

	r1 := fact.Rows[1]
	if k, _ := table.Int(fact.Value(r1, "temp_category_key")); k != SentinelKey {
		t.Fatalf("nil temperature should yield sentinel, got %d", k)
	}
	if f, _ := table.Float(fact.Value(r1, "temperature")); f != 0 {
		t.Fatalf("nil temperature measure should default to 0, got %v", f)
	}
	if h, _ := table.Int(fact.Value(r1, "holiday_flag")); h != 1 {
		t.Fatalf("holiday_flag: %d", h)
	}
}

func TestBuildAll_MissingSourcesSkipOnlyThatFact(t *testing.T) {
	stdDir, dimDir, factDir := t.TempDir(), t.TempDir(), t.TempDir()
	writeCSV(t, stdDir, standardize.OutEcommerceSales,
		"product_id,product_name,brand,root_category,sub_category,list_price,sale_price,available,description,source\n"+
			"PROD_1,TV,Zenith,Electronics,TVs,100,75,1,,ecommerce\n")

	built, err := NewBuilder(stdDir, dimDir, factDir, zerolog.Nop()).BuildAll()
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if _, ok := built[FileEcommerceSales]; !ok {
		t.Fatalf("ecommerce fact should build")
	}
	if _, ok := built[FileSales]; ok {
		t.Fatalf("sales fact should be skipped")
	}
	if _, ok := built[FileStorePerformance]; ok {
		t.Fatalf("store fact should be skipped")
	}
}
