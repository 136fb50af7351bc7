package export

import (
	"context"
	"database/sql"
)

type retailTotals struct {
	Revenue         float64 `json:"revenue"`
	Orders          int64   `json:"orders"`
	AvgOrderValue   float64 `json:"avg_order_value"`
	AvgRating       float64 `json:"avg_rating"`
	UniqueCustomers int64   `json:"unique_customers"`
}

type revenueByMonth struct {
	Year    int64   `json:"year"`
	Month   int64   `json:"month"`
	Revenue float64 `json:"revenue"`
	Orders  int64   `json:"orders"`
}

type revenueByName struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
	Orders  int64   `json:"orders"`
}

type customersByGroup struct {
	Group     string `json:"group"`
	Customers int64  `json:"customers"`
}

type retailSalesDocument struct {
	Totals            retailTotals       `json:"totals"`
	RevenueByMonth    []revenueByMonth   `json:"revenue_by_month"`
	RevenueByCategory []revenueByName    `json:"revenue_by_category"`
	RevenueByPayment  []revenueByName    `json:"revenue_by_payment_method"`
	CustomersByAge    []customersByGroup `json:"customers_by_age_group"`
	CustomersByGender []customersByGroup `json:"customers_by_gender"`
}

// RetailSales writes retail_sales.json from the retail star.
func (e *Exporter) RetailSales(ctx context.Context) error {
	doc := retailSalesDocument{
		RevenueByMonth:    []revenueByMonth{},
		RevenueByCategory: []revenueByName{},
		RevenueByPayment:  []revenueByName{},
		CustomersByAge:    []customersByGroup{},
		CustomersByGender: []customersByGroup{},
	}

	row := e.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(purchase_amount), 0),
		       COUNT(*),
		       COALESCE(AVG(purchase_amount), 0),
		       COALESCE(AVG(rating), 0),
		       COUNT(DISTINCT CASE WHEN customer_key <> -1 THEN customer_key END)
		FROM fact_sales`)
	if err := row.Scan(&doc.Totals.Revenue, &doc.Totals.Orders, &doc.Totals.AvgOrderValue,
		&doc.Totals.AvgRating, &doc.Totals.UniqueCustomers); err != nil {
		return err
	}

	err := e.queryRows(ctx, `
		SELECT d.year, d.month, COALESCE(SUM(f.purchase_amount), 0), COUNT(*)
		FROM fact_sales f
		JOIN dim_date d ON f.date_key = d.date_key
		GROUP BY d.year, d.month
		ORDER BY d.year, d.month`,
		func(rows *sql.Rows) error {
			var m revenueByMonth
			if err := rows.Scan(&m.Year, &m.Month, &m.Revenue, &m.Orders); err != nil {
				return err
			}
			doc.RevenueByMonth = append(doc.RevenueByMonth, m)
			return nil
		})
	if err != nil {
		return err
	}

	err = e.queryRows(ctx, `
		SELECT c.category_name, COALESCE(SUM(f.purchase_amount), 0), COUNT(*)
		FROM fact_sales f
		JOIN dim_category c ON f.category_key = c.category_key
		GROUP BY c.category_name
		ORDER BY SUM(f.purchase_amount) DESC`,
		func(rows *sql.Rows) error {
			var r revenueByName
			if err := rows.Scan(&r.Name, &r.Revenue, &r.Orders); err != nil {
				return err
			}
			doc.RevenueByCategory = append(doc.RevenueByCategory, r)
			return nil
		})
	if err != nil {
		return err
	}

	err = e.queryRows(ctx, `
		SELECT p.payment_method, COALESCE(SUM(f.purchase_amount), 0), COUNT(*)
		FROM fact_sales f
		JOIN dim_payment p ON f.payment_key = p.payment_key
		GROUP BY p.payment_method
		ORDER BY SUM(f.purchase_amount) DESC`,
		func(rows *sql.Rows) error {
			var r revenueByName
			if err := rows.Scan(&r.Name, &r.Revenue, &r.Orders); err != nil {
				return err
			}
			doc.RevenueByPayment = append(doc.RevenueByPayment, r)
			return nil
		})
	if err != nil {
		return err
	}

	err = e.queryRows(ctx, `
		SELECT COALESCE(age_group, 'unknown'), COUNT(*)
		FROM dim_customer
		GROUP BY age_group
		ORDER BY COALESCE(age_group, 'unknown')`,
		func(rows *sql.Rows) error {
			var g customersByGroup
			if err := rows.Scan(&g.Group, &g.Customers); err != nil {
				return err
			}
			doc.CustomersByAge = append(doc.CustomersByAge, g)
			return nil
		})
	if err != nil {
		return err
	}

	err = e.queryRows(ctx, `
		SELECT COALESCE(gender, 'unknown'), COUNT(*)
		FROM dim_customer
		GROUP BY gender
		ORDER BY COALESCE(gender, 'unknown')`,
		func(rows *sql.Rows) error {
			var g customersByGroup
			if err := rows.Scan(&g.Group, &g.Customers); err != nil {
				return err
			}
			doc.CustomersByGender = append(doc.CustomersByGender, g)
			return nil
		})
	if err != nil {
		return err
	}

	return e.writeJSON(FileRetailSales, doc)
}
