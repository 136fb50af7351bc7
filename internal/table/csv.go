package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ReadFile loads a CSV file into a Table.
//
// Header handling mirrors the standardized vocabulary rules: cells are
// trimmed, a UTF-8 BOM on the first header is stripped, and headers are
// lower-cased with spaces collapsed to underscores. Empty cells become nil.
//
// Files that are not valid UTF-8 are re-decoded as Latin-1; retail extracts
// routinely arrive in mixed encodings and a decode failure must surface as a
// data-quality finding, not a crash.
func ReadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrMissingSource)
		}
		return nil, err
	}

	if !utf8.Valid(raw) {
		raw, err = charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	hdr, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", filepath.Base(path), err)
	}

	cols := make([]string, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		cols[i] = strings.ReplaceAll(strings.ToLower(h), " ", "_")
	}

	t := New(cols...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip the malformed record and keep reading; a bad row is a
			// data-quality finding, not a reason to drop the rest of the
			// file.
			continue
		}
		row := make([]any, len(cols))
		for i := range cols {
			if i >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v == "" {
				continue
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadSource loads a named CSV from a layer directory.
func ReadSource(dir, name string) (*Table, error) {
	return ReadFile(filepath.Join(dir, name))
}

// WriteFile writes the table as CSV, replacing any existing file atomically:
// the table is written to a temp file in the same directory and renamed over
// the target, so readers never observe a half-written table.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Columns); err != nil {
		tmp.Close()
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range rec {
			if i < len(row) {
				rec[i] = formatCell(row[i])
			} else {
				rec[i] = ""
			}
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}
