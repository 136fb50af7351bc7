package export

import (
	"context"
	"database/sql"
)

type ecommerceTotals struct {
	Listings       int64   `json:"listings"`
	AvgListPrice   float64 `json:"avg_list_price"`
	AvgSalePrice   float64 `json:"avg_sale_price"`
	AvgDiscountPct float64 `json:"avg_discount_pct"`
}

type brandListings struct {
	Brand    string `json:"brand"`
	Listings int64  `json:"listings"`
}

type categoryDiscount struct {
	RootCategory   string  `json:"root_category"`
	SubCategory    string  `json:"sub_category"`
	AvgDiscountPct float64 `json:"avg_discount_pct"`
	Listings       int64   `json:"listings"`
}

type availabilitySplit struct {
	Available bool  `json:"available"`
	Listings  int64 `json:"listings"`
}

type ecommerceDocument struct {
	Totals             ecommerceTotals     `json:"totals"`
	TopBrands          []brandListings     `json:"top_brands"`
	DiscountByCategory []categoryDiscount  `json:"discount_by_category"`
	Availability       []availabilitySplit `json:"availability"`
}

// topBrandLimit bounds the brand leaderboard; the truncation happens
// client-side because the backends disagree on LIMIT/TOP syntax.
const topBrandLimit = 10

// Ecommerce writes ecommerce.json from the e-commerce star.
func (e *Exporter) Ecommerce(ctx context.Context) error {
	doc := ecommerceDocument{
		TopBrands:          []brandListings{},
		DiscountByCategory: []categoryDiscount{},
		Availability:       []availabilitySplit{},
	}

	row := e.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(list_price), 0),
		       COALESCE(AVG(sale_price), 0),
		       COALESCE(AVG(discount_pct), 0)
		FROM fact_ecommerce_sales`)
	if err := row.Scan(&doc.Totals.Listings, &doc.Totals.AvgListPrice,
		&doc.Totals.AvgSalePrice, &doc.Totals.AvgDiscountPct); err != nil {
		return err
	}

	err := e.queryRows(ctx, `
		SELECT b.brand, COUNT(*)
		FROM fact_ecommerce_sales f
		JOIN dim_ecommerce_brand b ON f.brand_key = b.brand_key
		GROUP BY b.brand
		ORDER BY COUNT(*) DESC, b.brand`,
		func(rows *sql.Rows) error {
			if len(doc.TopBrands) >= topBrandLimit {
				return nil
			}
			var b brandListings
			if err := rows.Scan(&b.Brand, &b.Listings); err != nil {
				return err
			}
			doc.TopBrands = append(doc.TopBrands, b)
			return nil
		})
	if err != nil {
		return err
	}

	err = e.queryRows(ctx, `
		SELECT COALESCE(c.root_category, ''), COALESCE(c.sub_category, ''),
		       COALESCE(AVG(f.discount_pct), 0), COUNT(*)
		FROM fact_ecommerce_sales f
		JOIN dim_ecommerce_category c ON f.ecommerce_category_key = c.ecommerce_category_key
		GROUP BY c.root_category, c.sub_category
		ORDER BY AVG(f.discount_pct) DESC`,
		func(rows *sql.Rows) error {
			var c categoryDiscount
			if err := rows.Scan(&c.RootCategory, &c.SubCategory, &c.AvgDiscountPct, &c.Listings); err != nil {
				return err
			}
			doc.DiscountByCategory = append(doc.DiscountByCategory, c)
			return nil
		})
	if err != nil {
		return err
	}

	err = e.queryRows(ctx, `
		SELECT available_flag, COUNT(*)
		FROM fact_ecommerce_sales
		GROUP BY available_flag
		ORDER BY available_flag`,
		func(rows *sql.Rows) error {
			var flag int64
			var a availabilitySplit
			if err := rows.Scan(&flag, &a.Listings); err != nil {
				return err
			}
			a.Available = flag != 0
			doc.Availability = append(doc.Availability, a)
			return nil
		})
	if err != nil {
		return err
	}

	return e.writeJSON(FileEcommerce, doc)
}
