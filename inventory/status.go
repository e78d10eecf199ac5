package inventory

// Stock-status thresholds, in days of remaining coverage
const (
	criticalDays    = 7
	lowDays         = 30
	overstockedDays = 180
)

// DeriveStockStatus classifies stock as a pure function of the current stock
// level, the reorder point and the optional days-until-stockout estimate
// (nil = unknown). Precedence: critical conditions are checked before low,
// low before overstocked.
func DeriveStockStatus(stock, reorderPoint int, daysUntilStockout *float64) StockStatus {
	if stock == 0 {
		return StockCritical
	}
	if daysUntilStockout != nil && *daysUntilStockout <= criticalDays {
		return StockCritical
	}
	if stock <= reorderPoint || (daysUntilStockout != nil && *daysUntilStockout <= lowDays) {
		return StockLow
	}
	if daysUntilStockout != nil && *daysUntilStockout > overstockedDays {
		return StockOverstocked
	}
	return StockAdequate
}
