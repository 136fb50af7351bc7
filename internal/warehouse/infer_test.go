package warehouse

import (
	"context"
	"testing"
	"time"

	"retaildw/internal/table"
)

func TestInfer_TypePromotion(t *testing.T) {
	tbl := table.New("ints", "floats", "mixed", "text", "stringy_nums", "empty")
	tbl.Append([]any{int64(1), float64(1.5), int64(2), "a", "10", nil})
	tbl.Append([]any{int64(2), float64(2.5), float64(3.5), "b", "2.5", nil})
	tbl.Append([]any{nil, nil, "oops", "c", "7", nil})

	cols := Infer(tbl)
	want := []ColumnType{TypeInt, TypeFloat, TypeText, TypeText, TypeFloat, TypeText}
	for i, w := range want {
		if cols[i].Type != w {
			t.Errorf("column %s: got %v, want %v", tbl.Columns[i], cols[i].Type, w)
		}
	}
}

func TestInfer_WholeFloatsStayInt(t *testing.T) {
	tbl := table.New("flag")
	tbl.Append([]any{float64(1)})
	tbl.Append([]any{float64(0)})

	if cols := Infer(tbl); cols[0].Type != TypeInt {
		t.Fatalf("whole-valued floats should infer integer, got %v", cols[0].Type)
	}
}

func TestArg_Conversions(t *testing.T) {
	if got := Arg(nil, TypeInt); got != nil {
		t.Fatalf("nil cell: %#v", got)
	}
	if got := Arg("42", TypeInt); got != int64(42) {
		t.Fatalf("int arg: %#v", got)
	}
	if got := Arg("2.5", TypeFloat); got != float64(2.5) {
		t.Fatalf("float arg: %#v", got)
	}
	if got := Arg("junk", TypeFloat); got != nil {
		t.Fatalf("unparseable numeric should load as NULL: %#v", got)
	}
	when := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if got := Arg(when, TypeText); got != "2024-05-01" {
		t.Fatalf("date arg: %#v", got)
	}
}

func TestTableName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"DIM_PRODUCT.csv", "dim_product"},
		{"FACT_STORE_PERFORMANCE.csv", "fact_store_performance"},
		{"std customer purchases.csv", "std_customer_purchases"},
		{"Weird--Name!!.csv", "weird_name"},
	}
	for _, c := range cases {
		if got := TableName(c.in); got != c.want {
			t.Errorf("TableName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRegister_UnknownKindErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, Config{Kind: "no-such-backend"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, err := New(ctx, Config{}); err == nil {
		t.Fatalf("expected error for empty kind")
	}
}
