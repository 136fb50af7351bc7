package table

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadFile_NormalizesHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	data := "\uFEFFCustomer ID, Purchase Amount ,City\nc1,10.5,Austin\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := []string{"customer_id", "purchase_amount", "city"}
	for i, col := range want {
		if got.Columns[i] != col {
			t.Fatalf("column %d: got %q, want %q", i, got.Columns[i], col)
		}
	}
}

func TestReadFile_EmptyCellsBecomeNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(path, []byte("a,b\n,x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Rows[0][0] != nil {
		t.Fatalf("expected nil cell, got %#v", got.Rows[0][0])
	}
	if got.Rows[0][1] != "x" {
		t.Fatalf("expected x, got %#v", got.Rows[0][1])
	}
}

func TestReadFile_Latin1Fallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	// "café" with a latin-1 encoded é (0xE9), invalid as UTF-8.
	data := append([]byte("name\ncaf"), 0xE9, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Rows[0][0] != "café" {
		t.Fatalf("expected café, got %#v", got.Rows[0][0])
	}
}

func TestReadFile_MalformedRowsDoNotTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	// Bare quotes, a stray quote inside a quoted field and ragged field
	// counts, followed by clean rows. Every row after the messy ones must
	// still load.
	data := "id,name,city\n" +
		"c1,say \"hi\",Austin\n" +
		"c2,\"mid\"quote\",Boston\n" +
		"c3,short\n" +
		"c4,fine,Chicago\n" +
		"c5,also fine,Denver\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Len() < 2 {
		t.Fatalf("rows after malformed records were dropped: %d rows", got.Len())
	}
	last := got.Rows[got.Len()-1]
	if got.Value(last, "id") != "c5" || got.Value(last, "city") != "Denver" {
		t.Fatalf("last row lost: %#v", last)
	}
}

func TestReadSource_MissingFileIsErrMissingSource(t *testing.T) {
	_, err := ReadSource(t.TempDir(), "absent.csv")
	if !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := New("id", "amount", "when", "note")
	src.Append([]any{int64(1), float64(10.5), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), nil})

	path := filepath.Join(dir, "nested", "out.csv")
	if err := src.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	row := got.Rows[0]
	if got.Value(row, "id") != "1" {
		t.Fatalf("id: %#v", got.Value(row, "id"))
	}
	if got.Value(row, "amount") != "10.5" {
		t.Fatalf("amount: %#v", got.Value(row, "amount"))
	}
	if got.Value(row, "when") != "2024-01-02" {
		t.Fatalf("when: %#v", got.Value(row, "when"))
	}
	if got.Value(row, "note") != nil {
		t.Fatalf("note: expected nil, got %#v", got.Value(row, "note"))
	}
}

func TestWriteFile_ReplacesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	first := New("a")
	first.Append([]any{"1"})
	first.Append([]any{"2"})
	if err := first.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	second := New("a")
	second.Append([]any{"only"})
	if err := second.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Len() != 1 || got.Rows[0][0] != "only" {
		t.Fatalf("old content survived: %#v", got.Rows)
	}
}
