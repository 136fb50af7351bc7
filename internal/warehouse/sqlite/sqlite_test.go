package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"retaildw/internal/table"
	"retaildw/internal/warehouse"
)

func openTestLoader(t *testing.T) warehouse.Loader {
	t.Helper()
	ctx := context.Background()
	loader, err := warehouse.New(ctx, warehouse.Config{
		Kind: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(loader.Close)
	return loader
}

func TestReplaceTable_CreatesAndFills(t *testing.T) {
	loader := openTestLoader(t)
	ctx := context.Background()

	tbl := table.New("customer_key", "customer_id", "age", "rating")
	tbl.Append([]any{int64(1), "c1", int64(34), float64(4.5)})
	tbl.Append([]any{int64(2), "c2", int64(64), float64(3.0)})
	tbl.Append([]any{int64(3), "c3", nil, nil})

	if err := loader.ReplaceTable(ctx, "dim_customer", tbl); err != nil {
		t.Fatalf("ReplaceTable: %v", err)
	}

	var n int
	if err := loader.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM dim_customer").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}

	var id string
	var age int64
	err := loader.DB().QueryRowContext(ctx,
		`SELECT customer_id, age FROM dim_customer WHERE customer_key = 2`).Scan(&id, &age)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if id != "c2" || age != 64 {
		t.Fatalf("row mismatch: %s %d", id, age)
	}

	var nulls int
	if err := loader.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM dim_customer WHERE age IS NULL").Scan(&nulls); err != nil {
		t.Fatalf("nulls: %v", err)
	}
	if nulls != 1 {
		t.Fatalf("expected 1 null age, got %d", nulls)
	}
}

func TestReplaceTable_ReplacesPreviousLoad(t *testing.T) {
	loader := openTestLoader(t)
	ctx := context.Background()

	first := table.New("k", "v")
	for i := 0; i < 10; i++ {
		first.Append([]any{int64(i + 1), "old"})
	}
	if err := loader.ReplaceTable(ctx, "t", first); err != nil {
		t.Fatalf("first load: %v", err)
	}

	// Second load has a different schema; the table is rebuilt, not merged.
	second := table.New("k", "v", "extra")
	second.Append([]any{int64(1), "new", float64(1.5)})
	if err := loader.ReplaceTable(ctx, "t", second); err != nil {
		t.Fatalf("second load: %v", err)
	}

	var n int
	if err := loader.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected full replacement, got %d rows", n)
	}
	var extra float64
	if err := loader.DB().QueryRowContext(ctx, "SELECT extra FROM t").Scan(&extra); err != nil {
		t.Fatalf("new column missing: %v", err)
	}
}

func TestReplaceTable_BatchesLargeLoads(t *testing.T) {
	loader := openTestLoader(t)
	ctx := context.Background()

	// Enough rows to force several insert batches under the bind limit.
	tbl := table.New("a", "b", "c", "d")
	for i := 0; i < 1200; i++ {
		tbl.Append([]any{int64(i), float64(i) / 2, "row", int64(i % 7)})
	}
	if err := loader.ReplaceTable(ctx, "wide", tbl); err != nil {
		t.Fatalf("ReplaceTable: %v", err)
	}

	var n int
	if err := loader.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM wide").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1200 {
		t.Fatalf("expected 1200 rows, got %d", n)
	}
}
