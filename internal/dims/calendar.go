package dims

import (
	"fmt"
	"time"

	"retaildw/internal/standardize"
	"retaildw/internal/table"
)

// Fallback calendar range used when the purchase source carries no
// parseable dates at all.
var (
	fallbackCalendarStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	fallbackCalendarEnd   = time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Padding around the observed purchase date range, so late-arriving facts
// near the edges still resolve a date key.
const (
	calendarPadBefore = 30 * 24 * time.Hour
	calendarPadAfter  = 90 * 24 * time.Hour
)

// Date builds DIM_DATE covering the observed purchase date range padded by
// 30 days before and 90 days after. With no parseable dates the dimension
// falls back to a fixed 2020..2030 calendar so the star stays joinable.
func (b *Builder) Date() (*table.Table, error) {
	src, err := table.ReadSource(b.stdDir, standardize.OutCustomerPurchases)
	if err != nil {
		return nil, err
	}

	start, end, ok := dateRange(src, "purchase_date")
	if ok {
		start = start.Add(-calendarPadBefore)
		end = end.Add(calendarPadAfter)
	} else {
		start, end = fallbackCalendarStart, fallbackCalendarEnd
	}

	return b.write(calendar(start, end), FileDate)
}

// DateStore builds DIM_DATE_STORE covering exactly the observed sale date
// range, unpadded. Weekly store observations are bounded, so the calendar
// tracks them precisely; with no parseable dates the dimension is skipped.
func (b *Builder) DateStore() (*table.Table, error) {
	src, err := table.ReadSource(b.stdDir, standardize.OutStorePerformance)
	if err != nil {
		return nil, err
	}

	start, end, ok := dateRange(src, "sale_date")
	if !ok {
		return nil, fmt.Errorf("no parseable sale dates: %w", table.ErrMissingSource)
	}

	return b.write(calendar(start, end), FileDateStore)
}

// dateRange scans a column of ISO-serialized dates and returns the observed
// min and max. ok is false when no cell parses.
func dateRange(t *table.Table, column string) (start, end time.Time, ok bool) {
	for _, row := range t.Rows {
		ts, parsed := parseISODate(t.Value(row, column))
		if !parsed {
			continue
		}
		if !ok || ts.Before(start) {
			start = ts
		}
		if !ok || ts.After(end) {
			end = ts
		}
		ok = true
	}
	return start, end, ok
}

func calendarTable() *table.Table {
	return table.New(
		"date_key", "full_date", "day", "day_name", "day_of_week",
		"is_weekend", "month", "month_name", "quarter", "week_of_year", "year",
	)
}

// calendar generates one row per day from start to end inclusive. date_key
// is the YYYYMMDD integer; day_of_week runs Monday=1 through Sunday=7 and
// week_of_year is the ISO week number.
func calendar(start, end time.Time) *table.Table {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	out := calendarTable()
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dow := int64(d.Weekday())
		if dow == 0 {
			dow = 7
		}
		var weekend int64
		if dow >= 6 {
			weekend = 1
		}
		_, isoWeek := d.ISOWeek()

		out.Append([]any{
			DateKey(d),
			d,
			int64(d.Day()),
			d.Weekday().String(),
			dow,
			weekend,
			int64(d.Month()),
			d.Month().String(),
			int64((d.Month()-1)/3 + 1),
			int64(isoWeek),
			int64(d.Year()),
		})
	}
	return out
}

// DateKey converts a date to its YYYYMMDD integer key. Fact builders use the
// same function, so date keys resolve by construction whenever the date lies
// inside the calendar range.
func DateKey(t time.Time) int64 {
	return int64(t.Year())*10000 + int64(t.Month())*100 + int64(t.Day())
}
