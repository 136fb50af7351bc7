package standardize

import (
	"fmt"
	"sort"
	"strings"

	"retaildw/internal/table"
)

// masterColumns is the fixed product_master schema: the hash key first,
// then merged descriptive attributes, then the contributing source set.
var masterColumns = []string{
	"product_id", "product_name", "brand", "category_name",
	"root_category_name", "rating", "review_count", "source",
}

// BuildProductMaster merges per-source product attribute subsets into one
// deduplicated master table keyed by product_id.
//
// Conflict resolution per attribute is "first non-nil value wins", in source
// priority order: purchases, catalog, ecommerce. The source column collects
// the sorted, de-duplicated set of contributing source names, comma-joined.
// Rows without a product_id never reach the master.
func (s *Standardizer) BuildProductMaster(res *Result) (*table.Table, error) {
	type subset struct {
		name string
		t    *table.Table
	}
	subsets := make([]subset, 0, 3)

	if res.Purchases != nil {
		subsets = append(subsets, subset{"purchases", res.Purchases.Rename(map[string]string{"category": "category_name"})})
	}
	if res.Products != nil {
		subsets = append(subsets, subset{"catalog", res.Products})
	}
	if res.Ecommerce != nil {
		subsets = append(subsets, subset{"ecommerce", res.Ecommerce.Rename(map[string]string{
			"sub_category":  "category_name",
			"root_category": "root_category_name",
		})})
	}

	if len(subsets) == 0 {
		return nil, fmt.Errorf("product_master: %w", table.ErrMissingSource)
	}

	type entry struct {
		attrs   []any // aligned to masterColumns[1:len-1]
		sources map[string]struct{}
	}
	attrCols := masterColumns[1 : len(masterColumns)-1]

	merged := make(map[string]*entry)
	var order []string // first-seen product_id order, before the final sort

	for _, sub := range subsets {
		for _, row := range sub.t.Rows {
			id, ok := table.String(sub.t.Value(row, "product_id"))
			if !ok || id == "" {
				continue
			}
			e := merged[id]
			if e == nil {
				e = &entry{attrs: make([]any, len(attrCols)), sources: make(map[string]struct{}, 2)}
				merged[id] = e
				order = append(order, id)
			}
			e.sources[sub.name] = struct{}{}
			for i, col := range attrCols {
				if e.attrs[i] != nil {
					continue
				}
				if v := sub.t.Value(row, col); v != nil {
					e.attrs[i] = v
				}
			}
		}
	}

	sort.Strings(order)

	out := table.New(masterColumns...)
	for _, id := range order {
		e := merged[id]
		names := make([]string, 0, len(e.sources))
		for n := range e.sources {
			names = append(names, n)
		}
		sort.Strings(names)

		row := make([]any, 0, len(masterColumns))
		row = append(row, id)
		row = append(row, e.attrs...)
		row = append(row, strings.Join(names, ","))
		out.Append(row)
	}

	written, err := s.write(out, OutProductMaster)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("products", out.Len()).Msg("product master created")
	return written, nil
}
