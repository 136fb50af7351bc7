package export

import (
	"context"
	"database/sql"
)

type storeTotals struct {
	WeeklySalesSum float64 `json:"weekly_sales_sum"`
	WeeklySalesAvg float64 `json:"weekly_sales_avg"`
	Stores         int64   `json:"stores"`
	Weeks          int64   `json:"weeks"`
}

type salesByStore struct {
	StoreName string  `json:"store_name"`
	Sales     float64 `json:"sales"`
	Weeks     int64   `json:"weeks"`
}

type salesByYear struct {
	Year  int64   `json:"year"`
	Sales float64 `json:"sales"`
}

type salesByBand struct {
	Band  string  `json:"band"`
	Sales float64 `json:"sales"`
	Weeks int64   `json:"weeks"`
}

type holidaySplit struct {
	Holiday  bool    `json:"holiday"`
	Sales    float64 `json:"sales"`
	AvgSales float64 `json:"avg_sales"`
	Weeks    int64   `json:"weeks"`
}

type storePerformanceDocument struct {
	Totals             storeTotals    `json:"totals"`
	SalesByStore       []salesByStore `json:"sales_by_store"`
	SalesByYear        []salesByYear  `json:"sales_by_year"`
	SalesByTemperature []salesByBand  `json:"sales_by_temperature_band"`
	HolidaySplit       []holidaySplit `json:"holiday_split"`
}

// StorePerformance writes store_performance.json from the store star.
func (e *Exporter) StorePerformance(ctx context.Context) error {
	doc := storePerformanceDocument{
		SalesByStore:       []salesByStore{},
		SalesByYear:        []salesByYear{},
		SalesByTemperature: []salesByBand{},
		HolidaySplit:       []holidaySplit{},
	}

	row := e.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(weekly_sales), 0),
		       COALESCE(AVG(weekly_sales), 0),
		       COUNT(DISTINCT CASE WHEN store_key <> -1 THEN store_key END),
		       COUNT(*)
		FROM fact_store_performance`)
	if err := row.Scan(&doc.Totals.WeeklySalesSum, &doc.Totals.WeeklySalesAvg,
		&doc.Totals.Stores, &doc.Totals.Weeks); err != nil {
		return err
	}

	err := e.queryRows(ctx, `
		SELECT s.store_name, COALESCE(SUM(f.weekly_sales), 0), COUNT(*)
		FROM fact_store_performance f
		JOIN dim_store s ON f.store_key = s.store_key
		GROUP BY s.store_name
		ORDER BY SUM(f.weekly_sales) DESC`,
		func(rows *sql.Rows) error {
			var s salesByStore
			if err := rows.Scan(&s.StoreName, &s.Sales, &s.Weeks); err != nil {
				return err
			}
			doc.SalesByStore = append(doc.SalesByStore, s)
			return nil
		})
	if err != nil {
		return err
	}

	err = e.queryRows(ctx, `
		SELECT d.year, COALESCE(SUM(f.weekly_sales), 0)
		FROM fact_store_performance f
		JOIN dim_date_store d ON f.date_key = d.date_key
		GROUP BY d.year
		ORDER BY d.year`,
		func(rows *sql.Rows) error {
			var y salesByYear
			if err := rows.Scan(&y.Year, &y.Sales); err != nil {
				return err
			}
			doc.SalesByYear = append(doc.SalesByYear, y)
			return nil
		})
	if err != nil {
		return err
	}

	err = e.queryRows(ctx, `
		SELECT t.temp_category, COALESCE(SUM(f.weekly_sales), 0), COUNT(*)
		FROM fact_store_performance f
		JOIN dim_temperature t ON f.temp_category_key = t.temp_category_key
		GROUP BY t.temp_category
		ORDER BY SUM(f.weekly_sales) DESC`,
		func(rows *sql.Rows) error {
			var b salesByBand
			if err := rows.Scan(&b.Band, &b.Sales, &b.Weeks); err != nil {
				return err
			}
			doc.SalesByTemperature = append(doc.SalesByTemperature, b)
			return nil
		})
	if err != nil {
		return err
	}

	err = e.queryRows(ctx, `
		SELECT holiday_flag, COALESCE(SUM(weekly_sales), 0), COALESCE(AVG(weekly_sales), 0), COUNT(*)
		FROM fact_store_performance
		GROUP BY holiday_flag
		ORDER BY holiday_flag`,
		func(rows *sql.Rows) error {
			var flag int64
			var h holidaySplit
			if err := rows.Scan(&flag, &h.Sales, &h.AvgSales, &h.Weeks); err != nil {
				return err
			}
			h.Holiday = flag != 0
			doc.HolidaySplit = append(doc.HolidaySplit, h)
			return nil
		})
	if err != nil {
		return err
	}

	return e.writeJSON(FileStorePerformance, doc)
}
