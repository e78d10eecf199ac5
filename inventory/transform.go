package inventory

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/stocksync/upstream"
)

// Upstream reports name the same field many different ways depending on the
// export. Each canonical field maps to an ordered list of candidate source
// names; the first candidate with a non-empty value wins. Keeping the
// mapping declarative makes it independently testable.
var (
	skuFields      = []string{"sku", "item_sku", "product_code", "code"}
	nameFields     = []string{"name", "item_name", "display_name", "description", "title"}
	vendorFields   = []string{"vendor", "vendor_name", "supplier", "supplier_name"}
	stockFields    = []string{"stock", "current_stock", "quantity", "qty_on_hand", "units_on_hand"}
	costFields     = []string{"unit_cost", "cost", "unit_price", "price"}
	locationFields = []string{"location", "warehouse", "bin", "site"}
	reorderFields  = []string{"reorder_point", "reorder_level", "min_stock", "minimum_stock"}
	velocityFields = []string{"sales_velocity", "avg_daily_sales", "daily_sales", "velocity"}
	daysFields     = []string{"days_until_stockout", "days_of_stock", "days_remaining"}
	externalFields = []string{"id", "external_id", "record_id", "row_id"}
)

// transformRecords normalizes raw upstream rows into Items stamped with the
// refresh time. Rows without a resolvable SKU are skipped; the skipped count
// is returned for logging.
func transformRecords(records []upstream.RawRecord, now time.Time) ([]Item, int) {
	items := make([]Item, 0, len(records))
	skipped := 0

	for _, rec := range records {
		sku := firstString(rec, skuFields)
		if sku == "" {
			skipped++
			continue
		}

		stock := clampInt(firstInt(rec, stockFields))
		velocity := firstFloat(rec, velocityFields)
		days := daysUntilStockout(rec, stock, velocity)

		items = append(items, Item{
			SKU:               sku,
			Name:              firstString(rec, nameFields),
			Vendor:            firstString(rec, vendorFields),
			Stock:             stock,
			UnitCost:          clampDecimal(firstDecimal(rec, costFields)),
			Location:          firstString(rec, locationFields),
			ReorderPoint:      clampInt(firstInt(rec, reorderFields)),
			SalesVelocity:     velocity,
			DaysUntilStockout: days,
			StockStatus:       DeriveStockStatus(stock, clampInt(firstInt(rec, reorderFields)), days),
			LastUpdated:       now,
			ExternalID:        firstString(rec, externalFields),
		})
	}

	return items, skipped
}

// daysUntilStockout prefers the source's own estimate and otherwise derives
// stock/velocity for items that are actually selling. nil means unknown.
func daysUntilStockout(rec upstream.RawRecord, stock int, velocity float64) *float64 {
	if d, ok := numberField(rec, daysFields); ok {
		return &d
	}
	if velocity > 0 {
		d := float64(stock) / velocity
		return &d
	}
	return nil
}

// firstString returns the first non-empty string value among the candidates
func firstString(rec upstream.RawRecord, candidates []string) string {
	for _, name := range candidates {
		if v, ok := rec[name]; ok {
			if s := strings.TrimSpace(asString(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstFloat returns the first parseable numeric value among the candidates,
// or 0 when none resolves
func firstFloat(rec upstream.RawRecord, candidates []string) float64 {
	v, _ := numberField(rec, candidates)
	return v
}

// firstInt is firstFloat truncated to an integer
func firstInt(rec upstream.RawRecord, candidates []string) int {
	return int(firstFloat(rec, candidates))
}

// firstDecimal returns the first parseable decimal among the candidates;
// strings and JSON numbers are both accepted so money survives either form
func firstDecimal(rec upstream.RawRecord, candidates []string) decimal.Decimal {
	for _, name := range candidates {
		v, ok := rec[name]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return decimal.NewFromFloat(n)
		case int:
			return decimal.NewFromInt(int64(n))
		case int64:
			return decimal.NewFromInt(n)
		case json.Number:
			if d, err := decimal.NewFromString(n.String()); err == nil {
				return d
			}
		case string:
			if d, err := decimal.NewFromString(strings.TrimSpace(n)); err == nil {
				return d
			}
		}
	}
	return decimal.Zero
}

// numberField resolves the first parseable number and reports whether any
// candidate was present
func numberField(rec upstream.RawRecord, candidates []string) (float64, bool) {
	for _, name := range candidates {
		v, ok := rec[name]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// asString renders scalar values as strings; non-scalars resolve to ""
func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// clampInt floors negative counts at zero; stock and reorder points are
// non-negative by contract
func clampInt(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// clampDecimal floors negative costs at zero
func clampDecimal(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
