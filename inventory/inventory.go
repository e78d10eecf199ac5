// Package inventory keeps a locally queryable snapshot of inventory data
// sourced from a slow, rate-limited external system.
//
// The package follows the repo conventions:
// - Interface-driven design for testability
// - Uses logger.Logger interface for unified logging
// - Configuration with validation and defaults
// - Structured error handling
//
// A distributed refresh lock held in the store guarantees that any number of
// concurrent callers, across any number of process instances, trigger at most
// one upstream fetch per refresh cycle. Snapshot writes go through a single
// atomic batch so readers never observe a partially updated cache, and a
// failed refresh never touches the previous snapshot.
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus classifies an item's stock level
type StockStatus string

const (
	// StockCritical means the item is out of stock or about to run out
	StockCritical StockStatus = "critical"
	// StockLow means the item is at or below its reorder point
	StockLow StockStatus = "low"
	// StockAdequate means no action is needed
	StockAdequate StockStatus = "adequate"
	// StockOverstocked means the item covers demand far beyond need
	StockOverstocked StockStatus = "overstocked"
)

// Item is one cached inventory record. Items are immutable once written for
// a refresh cycle and are replaced wholesale by the next successful refresh.
type Item struct {
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Vendor            string          `json:"vendor,omitempty"`
	Stock             int             `json:"stock"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	Location          string          `json:"location,omitempty"`
	ReorderPoint      int             `json:"reorder_point"`
	SalesVelocity     float64         `json:"sales_velocity"`
	DaysUntilStockout *float64        `json:"days_until_stockout,omitempty"`
	StockStatus       StockStatus     `json:"stock_status"`
	LastUpdated       time.Time       `json:"last_updated"`
	ExternalID        string          `json:"external_id,omitempty"`
}

// Summary aggregates the snapshot for dashboard-style consumers. It is
// recomputed lazily and cached under its own TTL-bearing key.
type Summary struct {
	TotalItems       int             `json:"total_items"`
	TotalStockValue  decimal.Decimal `json:"total_stock_value"`
	CriticalCount    int             `json:"critical_count"`
	LowCount         int             `json:"low_count"`
	AdequateCount    int             `json:"adequate_count"`
	OverstockedCount int             `json:"overstocked_count"`
	VendorCount      int             `json:"vendor_count"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// SyncStatus is a derived, read-only view of the refresh machinery. It is
// computed on each query and never stored as a unit.
type SyncStatus struct {
	IsSyncing bool       `json:"is_syncing"`
	LastSync  *time.Time `json:"last_sync,omitempty"`
	NextSync  *time.Time `json:"next_sync,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// keys derives the namespaced store keys used by the cache
type keys struct {
	ns string
}

func (k keys) full() string      { return k.ns + ":full" }
func (k keys) skuHash() string   { return k.ns + ":sku:hash" }
func (k keys) syncing() string   { return k.ns + ":sync_status" }
func (k keys) lock() string      { return k.ns + ":sync_status:lock" }
func (k keys) lastError() string { return k.ns + ":sync_status:error" }
func (k keys) lastSync() string  { return k.ns + ":last_sync" }
func (k keys) vendors() string   { return k.ns + ":vendors" }
func (k keys) summary() string   { return k.ns + ":summary" }
func (k keys) pattern() string   { return k.ns + ":*" }
