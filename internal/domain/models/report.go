package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSnapshot is the point-in-time statistics block shown on the dashboard.
// Counts may reflect slightly different moments; Degraded names the fields whose
// sub-query failed and were zeroed.
type DashboardSnapshot struct {
	TotalItems             int64              `json:"totalItems"`
	TotalStock             int64              `json:"totalStock"`
	LowStockCount          int64              `json:"lowStockCount"`
	OutOfStockCount        int64              `json:"outOfStockCount"`
	TodayDeliveryCount     int64              `json:"todayDeliveryCount"`
	ThisMonthDeliveryCount int64              `json:"thisMonthDeliveryCount"`
	RecentDeliveries       []DeliveryView     `json:"recentDeliveries"`
	LowStockList           []InventoryVariant `json:"lowStockList"`
	CategoryBreakdown      []CategoryStock    `json:"categoryBreakdown"`
	GeneratedAt            time.Time          `json:"generatedAt"`
	Degraded               []string           `json:"degraded,omitempty"`
}

// Table is an export dataset. Every row has exactly len(Columns) cells in column order;
// the column set and order are relied upon by spreadsheet and PDF layouts.
type Table struct {
	Name    string         `json:"name"`
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Summary *TableSummary  `json:"summary,omitempty"`
	Widths  map[string]int `json:"-"`
}

// TableSummary carries the aggregate figures of an export.
type TableSummary struct {
	RowCount    int             `json:"rowCount"`
	TotalUnits  int64           `json:"totalUnits"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	LowStock    int             `json:"lowStock,omitempty"`
	OutOfStock  int             `json:"outOfStock,omitempty"`
}
